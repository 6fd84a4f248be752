// Package detectors finds candidate security issues with line-oriented
// regular expressions.
//
// Three built-in detectors run in a fixed order: secrets on every file,
// injection on script and web sources, crypto on common application
// languages. Each match becomes a [review.Finding] carrying the trimmed line
// and a window of surrounding lines for the council to judge.
//
// A YAML rule pack can disable built-in rules, override severities by rule
// ID or category, and add regex rules of its own:
//
//	disable: [crypto.insecure_random]
//	severity_overrides:
//	  injection: critical
//	rules:
//	  - id: custom.hardcoded_ip
//	    severity: low
//	    confidence: 0.3
//	    title: Hardcoded IP address
//	    pattern: '\b\d{1,3}(\.\d{1,3}){3}\b'
//	    extensions: [.py, .go]
package detectors
