// Package config manages citadel configuration with layered resolution.
//
// Configuration is resolved in order of increasing priority:
//  1. Built-in defaults
//  2. YAML file (.citadel-local.yaml unless --config says otherwise)
//  3. Environment variables (OLLAMA_HOST, CITADEL_*)
//  4. CLI flag overrides
//
// Keys use the YAML names joined by dots, for example ollama.deep_model or
// cache.enabled. [Validate] rejects unknown severities, failure modes, match
// policies and log settings before a scan starts.
package config
