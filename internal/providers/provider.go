package providers

import (
	"context"
	"fmt"
	"time"
)

// Message is one role-tagged chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Roles accepted by the chat endpoint.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// ChatRequest contains the data sent to a model for one council stage.
type ChatRequest struct {
	Model    string
	Messages []Message
}

// ChatResponse holds the decoded top-level response object as raw JSON.
// Extracting the generated text is left to the caller.
type ChatResponse struct {
	Raw []byte
}

// ChatModel is the capability every inference backend provides: one
// synchronous, non-streaming chat exchange per call.
type ChatModel interface {
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)
	Name() string
}

// Options configures a backend.
type Options struct {
	BaseURL string
	// Timeout bounds each individual request. Zero means no timeout.
	Timeout time.Duration
	// MaxRetries is the number of extra attempts for transient failures.
	// Zero keeps the fail-fast contract.
	MaxRetries int
}

// New creates a backend by name.
func New(backend string, opts Options) (ChatModel, error) {
	switch backend {
	case "", "ollama":
		return NewOllama(opts), nil
	default:
		return nil, fmt.Errorf("unknown backend: %s", backend)
	}
}
