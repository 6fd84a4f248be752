package providers

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// TransportError reports a failed exchange with the inference server: the
// endpoint was unreachable, the timeout elapsed, the server answered with a
// non-success status, or the body was not a JSON object.
type TransportError struct {
	Model      string
	URL        string
	StatusCode int
	Body       string
	Err        error

	retryable bool
}

func (e *TransportError) Error() string {
	prefix := "transport error"
	if e.Model != "" {
		prefix = fmt.Sprintf("transport error (model %s)", e.Model)
	}
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("%s: %s: status %d: %v", prefix, e.URL, e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: %s: status %d: %s", prefix, e.URL, e.StatusCode, e.Body)
	default:
		return fmt.Sprintf("%s: %s: %v", prefix, e.URL, e.Err)
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// Retryable reports whether the failure is transient (network error, 429
// or 5xx).
func (e *TransportError) Retryable() bool { return e.retryable }

// IsTransportError checks if an error is a transport error.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// baseBackoff is the first retry delay; it doubles on each attempt.
var baseBackoff = 500 * time.Millisecond

// retryWithBackoff runs fn once plus up to maxRetries more times while it
// keeps failing with a retryable TransportError. Delays grow exponentially
// with up to 50% jitter.
func retryWithBackoff(ctx context.Context, maxRetries int, fn func() error) error {
	var lastErr error
	delay := baseBackoff
	for attempt := 0; attempt <= maxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		var te *TransportError
		if !errors.As(lastErr, &te) || !te.Retryable() {
			return lastErr
		}

		if attempt < maxRetries {
			jitter := time.Duration(0)
			if half := int64(delay / 2); half > 0 {
				jitter = time.Duration(rand.Int63n(half))
			}
			select {
			case <-ctx.Done():
				return lastErr
			case <-time.After(delay + jitter):
			}
			delay *= 2
		}
	}
	return lastErr
}
