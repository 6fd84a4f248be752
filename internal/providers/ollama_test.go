package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestOllama_Chat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %s, want /api/chat", r.URL.Path)
		}

		var body ollamaChatRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if body.Model != "llama3.2:3b" {
			t.Errorf("model = %q, want llama3.2:3b", body.Model)
		}
		if body.Stream {
			t.Error("stream must be false")
		}
		if len(body.Messages) != 2 || body.Messages[0].Role != RoleSystem || body.Messages[1].Role != RoleUser {
			t.Errorf("unexpected messages: %+v", body.Messages)
		}

		w.Write([]byte(`{"model":"llama3.2:3b","message":{"role":"assistant","content":"{\"severity\":\"low\"}"},"done":true}`))
	}))
	defer server.Close()

	o := &Ollama{
		baseURL: server.URL,
		client:  server.Client(),
	}

	resp, err := o.Chat(context.Background(), ChatRequest{
		Model: "llama3.2:3b",
		Messages: []Message{
			{Role: RoleSystem, Content: "sys"},
			{Role: RoleUser, Content: "user"},
		},
	})
	if err != nil {
		t.Fatalf("Chat error: %v", err)
	}
	if !strings.Contains(string(resp.Raw), `"done":true`) {
		t.Errorf("Raw = %s, want full envelope", resp.Raw)
	}
}

func TestOllama_StreamFieldAlwaysSent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]any
		json.NewDecoder(r.Body).Decode(&raw)
		v, ok := raw["stream"]
		if !ok || v != false {
			t.Errorf("stream = %v (present %v), want explicit false", v, ok)
		}
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	o := &Ollama{baseURL: server.URL, client: server.Client()}
	if _, err := o.Chat(context.Background(), ChatRequest{Model: "m"}); err != nil {
		t.Fatalf("Chat error: %v", err)
	}
}

func TestOllama_ServerErrorFailsFast(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(500)
		w.Write([]byte(`{"error":"model not loaded"}`))
	}))
	defer server.Close()

	o := &Ollama{baseURL: server.URL, client: server.Client()}

	_, err := o.Chat(context.Background(), ChatRequest{Model: "qwen3-coder:30b"})
	if err == nil {
		t.Fatal("Expected error for server error response")
	}
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("error type = %T, want *TransportError", err)
	}
	if te.StatusCode != 500 {
		t.Errorf("StatusCode = %d, want 500", te.StatusCode)
	}
	if te.Model != "qwen3-coder:30b" {
		t.Errorf("Model = %q, want qwen3-coder:30b", te.Model)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 (no retry by default)", attempts)
	}
}

func TestOllama_RetriesWhenConfigured(t *testing.T) {
	orig := baseBackoff
	baseBackoff = time.Millisecond
	defer func() { baseBackoff = orig }()

	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(503)
			return
		}
		w.Write([]byte(`{"message":{"content":"ok"}}`))
	}))
	defer server.Close()

	o := &Ollama{baseURL: server.URL, client: server.Client(), maxRetries: 3}
	if _, err := o.Chat(context.Background(), ChatRequest{Model: "m"}); err != nil {
		t.Fatalf("Chat error: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestOllama_ClientErrorNotRetried(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(404)
		w.Write([]byte(`{"error":"model 'nope' not found"}`))
	}))
	defer server.Close()

	o := &Ollama{baseURL: server.URL, client: server.Client(), maxRetries: 3}
	_, err := o.Chat(context.Background(), ChatRequest{Model: "nope"})
	if !IsTransportError(err) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("error should carry response body: %v", err)
	}
}

func TestOllama_NonJSONBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>proxy error</html>"))
	}))
	defer server.Close()

	o := &Ollama{baseURL: server.URL, client: server.Client()}
	_, err := o.Chat(context.Background(), ChatRequest{Model: "m"})
	if !IsTransportError(err) {
		t.Fatalf("expected TransportError for non-JSON body, got %v", err)
	}
}

func TestOllama_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	o := &Ollama{baseURL: server.URL, client: server.Client(), timeout: 50 * time.Millisecond}
	start := time.Now()
	_, err := o.Chat(context.Background(), ChatRequest{Model: "m"})
	if !IsTransportError(err) {
		t.Fatalf("expected TransportError on timeout, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Errorf("timeout not applied, took %v", time.Since(start))
	}
}

func TestOllama_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	o := NewOllama(Options{BaseURL: url, Timeout: time.Second})
	_, err := o.Chat(context.Background(), ChatRequest{Model: "m"})
	if !IsTransportError(err) {
		t.Fatalf("expected TransportError for unreachable server, got %v", err)
	}
}

func TestOllama_ListModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("path = %s, want /api/tags", r.URL.Path)
		}
		w.Write([]byte(`{"models":[{"name":"llama3.2:3b","size":2019393189},{"name":"gpt-oss:20b","size":1}]}`))
	}))
	defer server.Close()

	o := &Ollama{baseURL: server.URL, client: server.Client()}
	models, err := o.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels error: %v", err)
	}
	if len(models) != 2 || models[0].Name != "llama3.2:3b" {
		t.Errorf("models = %+v", models)
	}
}

func TestOllama_Name(t *testing.T) {
	o := &Ollama{}
	if o.Name() != "ollama" {
		t.Errorf("Name() = %q, want %q", o.Name(), "ollama")
	}
}

func TestNormalizeBaseURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty uses default", "", DefaultOllamaURL},
		{"plain", "http://localhost:11434", "http://localhost:11434"},
		{"trailing slash", "http://localhost:11434/", "http://localhost:11434"},
		{"api suffix", "http://localhost:11434/api", "http://localhost:11434"},
		{"chat suffix", "http://localhost:11434/api/chat", "http://localhost:11434"},
		{"chat suffix trailing slash", "http://gpu-box:11434/api/chat/", "http://gpu-box:11434"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeBaseURL(tt.in); got != tt.want {
				t.Errorf("NormalizeBaseURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
