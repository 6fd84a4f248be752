// Package providers implements the ChatModel interface for local inference
// backends.
//
// The only supported backend is Ollama, reached over its native /api/chat
// endpoint with streaming disabled so each call returns one complete JSON
// envelope. Every failure (unreachable server, elapsed timeout, non-2xx
// status, non-JSON body) is reported as a [*TransportError].
//
// Calls fail fast by default. Options.MaxRetries enables bounded retry with
// jittered exponential back-off for transient failures only. HTTP clients are
// injected via a struct field so tests can point calls at httptest servers.
//
// Use [New] to obtain a ChatModel by backend name.
package providers
