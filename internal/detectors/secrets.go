package detectors

import (
	"regexp"

	"github.com/joeynyc/Citadel-Local/internal/review"
)

var (
	awsAccessKeyID  = regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`)
	genericAPIKey   = regexp.MustCompile(`(?i)\b(api[_-]?key|secret|token)\b\s*[:=]\s*['"][A-Za-z0-9_\-]{16,}['"]`)
	privateKeyBlock = regexp.MustCompile(`-----BEGIN (RSA|EC|OPENSSH) PRIVATE KEY-----`)
)

var secretsRecommendation = []string{
	"Remove the secret from the repo history if possible.",
	"Rotate the credential immediately.",
	"Use environment variables or a secret manager.",
}

func secretRule(id string, pattern *regexp.Regexp) Rule {
	return Rule{
		ID:             id,
		Category:       review.CategorySecrets,
		Severity:       review.SeverityHigh,
		Confidence:     0.7,
		Title:          "Possible secret detected",
		Description:    "A string matching a secret pattern was found.",
		Pattern:        pattern,
		Recommendation: secretsRecommendation,
		References:     []string{"OWASP:Secrets Management"},
	}
}

// Secrets returns the hardcoded credential detector. It scans every file.
func Secrets() Detector {
	return Detector{
		Name: "secrets",
		Rules: []Rule{
			secretRule("secrets.aws_access_key_id", awsAccessKeyID),
			secretRule("secrets.generic_api_key", genericAPIKey),
			secretRule("secrets.private_key_block", privateKeyBlock),
		},
	}
}
