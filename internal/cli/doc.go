// Package cli wires together the Cobra command tree for the citadel binary.
//
// It defines the root command and all subcommands (scan, diff, baseline,
// report, config, models, cache, hook, version), binds flags, reads
// configuration, runs the detectors and the council, and returns
// deterministic exit codes for CI gating:
//
//	0  success
//	1  a finding met the --fail-on threshold
//	2  usage or configuration error
//	3  the Ollama server could not be reached or answered with an error
//	4  any other runtime failure
package cli
