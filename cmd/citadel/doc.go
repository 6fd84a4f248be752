// Citadel is a local-first security scanner for source repositories.
//
// Deterministic detectors flag hardcoded secrets, injection sinks and weak
// cryptography. Each finding can then be reviewed by a council of local
// Ollama models: a triage model decides whether deeper review is needed, a
// deep model proposes a root cause and fix plan, and a skeptic model tries
// to disprove the finding.
//
// Usage:
//
//	citadel scan .                        # scan a repository folder
//	citadel diff . --base origin/main     # scan files changed against a base
//	citadel baseline . --out baseline.json
//	citadel scan . --baseline baseline.json --fail-on high
//	citadel report out/findings.json --format text --out -
//	citadel models doctor                 # check the council models respond
//
// Results are written to out/findings.json and out/report.md.
package main
