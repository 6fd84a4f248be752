package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// DefaultOllamaURL is the address of a locally running Ollama server.
const DefaultOllamaURL = "http://127.0.0.1:11434"

// maxErrorBody caps how much of a failed response body is kept in errors.
const maxErrorBody = 512

// Ollama implements ChatModel against the native Ollama /api/chat endpoint.
type Ollama struct {
	baseURL    string
	timeout    time.Duration
	maxRetries int
	client     *http.Client
}

// NewOllama creates a new Ollama backend. No API key is required.
func NewOllama(opts Options) *Ollama {
	return &Ollama{
		baseURL:    NormalizeBaseURL(opts.BaseURL),
		timeout:    opts.Timeout,
		maxRetries: opts.MaxRetries,
		client:     &http.Client{Timeout: opts.Timeout},
	}
}

// NormalizeBaseURL strips a trailing slash and any endpoint path the user
// may have pasted, leaving the server root.
func NormalizeBaseURL(baseURL string) string {
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	baseURL = strings.TrimSuffix(baseURL, "/api/chat")
	baseURL = strings.TrimSuffix(baseURL, "/api")
	return baseURL
}

func (o *Ollama) Name() string { return "ollama" }

// BaseURL returns the normalized server root.
func (o *Ollama) BaseURL() string { return o.baseURL }

type ollamaChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

// Chat sends one non-streaming chat request and returns the decoded
// response envelope. Every failure is a *TransportError.
func (o *Ollama) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	url := o.baseURL + "/api/chat"
	payload, err := json.Marshal(ollamaChatRequest{
		Model:    req.Model,
		Messages: req.Messages,
		Stream:   false,
	})
	if err != nil {
		return ChatResponse{}, &TransportError{Model: req.Model, URL: url, Err: fmt.Errorf("marshaling request: %w", err)}
	}

	var resp ChatResponse
	err = retryWithBackoff(ctx, o.maxRetries, func() error {
		body, err := o.post(ctx, url, payload)
		if err != nil {
			if te, ok := err.(*TransportError); ok {
				te.Model = req.Model
				return te
			}
			return &TransportError{Model: req.Model, URL: url, Err: err}
		}
		resp = ChatResponse{Raw: body}
		return nil
	})
	return resp, err
}

func (o *Ollama) post(ctx context.Context, url string, payload []byte) ([]byte, error) {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, &TransportError{URL: url, Err: fmt.Errorf("sending request: %w", err), retryable: true}
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &TransportError{URL: url, Err: fmt.Errorf("reading response: %w", err), retryable: true}
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, &TransportError{
			URL:        url,
			StatusCode: httpResp.StatusCode,
			Body:       truncate(string(respBody), maxErrorBody),
			retryable:  httpResp.StatusCode == http.StatusTooManyRequests || httpResp.StatusCode >= 500,
		}
	}

	if !gjson.ValidBytes(respBody) || !gjson.ParseBytes(respBody).IsObject() {
		return nil, &TransportError{
			URL:        url,
			StatusCode: httpResp.StatusCode,
			Body:       truncate(string(respBody), maxErrorBody),
			Err:        fmt.Errorf("response is not a JSON object"),
		}
	}
	return respBody, nil
}

// ModelInfo describes one model installed on the server.
type ModelInfo struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// ListModels returns the models installed on the server (GET /api/tags).
func (o *Ollama) ListModels(ctx context.Context) ([]ModelInfo, error) {
	url := o.baseURL + "/api/tags"
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpResp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, &TransportError{URL: url, Err: fmt.Errorf("sending request: %w", err)}
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &TransportError{URL: url, Err: fmt.Errorf("reading response: %w", err)}
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, &TransportError{URL: url, StatusCode: httpResp.StatusCode, Body: truncate(string(body), maxErrorBody)}
	}

	var result struct {
		Models []ModelInfo `json:"models"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &TransportError{URL: url, StatusCode: httpResp.StatusCode, Err: fmt.Errorf("parsing response: %w", err)}
	}
	return result.Models, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
