package detectors

import (
	"regexp"

	"github.com/joeynyc/Citadel-Local/internal/review"
)

var (
	weakHash       = regexp.MustCompile(`(?i)\b(md5|sha1)\b`)
	insecureRandom = regexp.MustCompile(`(?i)\b(Math\.random\(|random\.random\(|rand\()`)
)

// Crypto returns the weak hash and non-cryptographic RNG detector.
func Crypto() Detector {
	return Detector{
		Name:       "crypto",
		Extensions: []string{".py", ".js", ".ts", ".go", ".java"},
		Rules: []Rule{
			{
				ID:          "crypto.weak_hash",
				Category:    review.CategoryCrypto,
				Severity:    review.SeverityMedium,
				Confidence:  0.6,
				Title:       "Potential weak hash usage (md5/sha1)",
				Description: "md5/sha1 are considered weak for many security uses (passwords, signatures).",
				Pattern:     weakHash,
				Recommendation: []string{
					"Use modern algorithms (e.g., SHA-256/512) for non-password hashing.",
					"For passwords, use a KDF (bcrypt/scrypt/Argon2) via a reputable library.",
					"Confirm the hash is not used for security-sensitive decisions.",
				},
				References: []string{"OWASP:Cryptographic Storage"},
			},
			{
				ID:          "crypto.insecure_random",
				Category:    review.CategoryCrypto,
				Severity:    review.SeverityLow,
				Confidence:  0.5,
				Title:       "Potential insecure randomness for security use",
				Description: "Non-cryptographic RNG may be unsafe for tokens, resets, or secrets.",
				Pattern:     insecureRandom,
				Recommendation: []string{
					"Use a cryptographically secure RNG for tokens/secrets.",
					"Audit usage sites: if only for UI/UX, downgrade severity.",
				},
				References: []string{"CWE-338: Use of Cryptographically Weak PRNG"},
			},
		},
	}
}
