package detectors

import (
	"regexp"

	"github.com/joeynyc/Citadel-Local/internal/review"
)

var (
	shellCall = regexp.MustCompile(`(?i)\b(os\.system|subprocess\.(popen|call|run)|exec\(|eval\()\b`)
	sqlConcat = regexp.MustCompile(`(?i)\bSELECT\b.*\+.*\bFROM\b|\bINSERT\b.*\+|\bUPDATE\b.*\+|\bDELETE\b.*\+`)
)

// Injection returns the command and SQL injection detector.
func Injection() Detector {
	return Detector{
		Name:       "injection",
		Extensions: []string{".py", ".js", ".ts", ".tsx", ".jsx", ".sh"},
		Rules: []Rule{
			{
				ID:          "injection.shell_call",
				Category:    review.CategoryInjection,
				Severity:    review.SeverityMedium,
				Confidence:  0.55,
				Title:       "Potential command injection surface",
				Description: "A shell execution primitive was detected. Validate and constrain inputs before use.",
				Pattern:     shellCall,
				Recommendation: []string{
					"Avoid shell=True and string concatenation.",
					"Use argument arrays, strict allowlists, and escaping where appropriate.",
					"Add tests for malicious-looking inputs (safe, non-payload).",
				},
				References: []string{"CWE-78: OS Command Injection"},
			},
			{
				ID:          "injection.sql_concat",
				Category:    review.CategoryInjection,
				Severity:    review.SeverityHigh,
				Confidence:  0.5,
				Title:       "Potential SQL injection via string concatenation",
				Description: "SQL query construction via concatenation can allow injection if user input is included.",
				Pattern:     sqlConcat,
				Recommendation: []string{
					"Use parameterized queries / prepared statements.",
					"Validate inputs with strict schemas.",
					"Add unit tests that confirm parameters are bound.",
				},
				References: []string{"CWE-89: SQL Injection"},
			},
		},
	}
}
