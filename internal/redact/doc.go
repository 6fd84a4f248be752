// Package redact removes secrets from finding evidence before it is sent to a
// model.
//
// Detection uses regex heuristics covering common secret shapes: API keys,
// JWTs, private key headers, AWS keys, bearer tokens, credentials embedded in
// URLs and provider tokens. Evidence from files whose paths match configured
// glob patterns is replaced wholesale rather than scanned.
//
// Redaction only applies to prompts when privacy.redact_prompts is enabled;
// findings written to disk are never altered.
package redact
