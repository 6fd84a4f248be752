// Package cache provides a file-based cache for model responses.
//
// Entries are keyed by a SHA-256 hash of the model name, system prompt and
// user payload of one council call, and store the raw /api/chat envelope with
// a creation timestamp and a TTL in seconds. Expired entries are removed on
// read.
//
// The cache is off by default: the council is expected to make fresh calls on
// every run. The default directory is $XDG_CACHE_HOME/citadel (or the
// OS-appropriate equivalent).
package cache
