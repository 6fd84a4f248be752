package council

import (
	"fmt"
	"math"
	"strings"

	"github.com/joeynyc/Citadel-Local/internal/review"
)

// DefaultNeedsDeepReview applies when triage omits needs_deep_review.
const DefaultNeedsDeepReview = true

// DowngradeConfidence is the confidence ceiling applied when the skeptic
// recommends a downgrade or dismissal.
const DowngradeConfidence = 0.4

// NeedsDeepReview reads the triage decision. Only an explicit JSON false
// skips deep review; a missing, null or non-boolean value escalates.
func NeedsDeepReview(triage map[string]any) bool {
	v, ok := triage["needs_deep_review"]
	if !ok {
		return DefaultNeedsDeepReview
	}
	if b, isBool := v.(bool); isBool {
		return b
	}
	return DefaultNeedsDeepReview
}

// MatchPolicy decides whether a skeptic recommendation triggers the merge.
type MatchPolicy string

const (
	// MatchExact accepts only the literal strings "downgrade" and "dismiss".
	MatchExact MatchPolicy = "exact"
	// MatchNormalized also accepts case and surrounding punctuation or
	// whitespace variants such as "Downgrade." or " DISMISS ".
	MatchNormalized MatchPolicy = "normalized"
)

// ParseMatchPolicy validates a policy name. Empty selects MatchExact.
func ParseMatchPolicy(s string) (MatchPolicy, error) {
	switch MatchPolicy(s) {
	case "", MatchExact:
		return MatchExact, nil
	case MatchNormalized:
		return MatchNormalized, nil
	default:
		return "", fmt.Errorf("unknown skeptic match policy: %q (want exact or normalized)", s)
	}
}

// Matches reports whether rec asks for a downgrade or dismissal.
func (p MatchPolicy) Matches(rec string) bool {
	if p == MatchNormalized {
		rec = strings.ToLower(strings.Trim(strings.TrimSpace(rec), ".!;:\"' "))
	}
	return rec == "downgrade" || rec == "dismiss"
}

// Merge applies the skeptic verdict to the finding and reports whether it
// changed anything. On a matching recommendation the confidence is capped at
// DowngradeConfidence, and when triage reported critical or high the
// severity is capped at medium. Severity is never raised.
func Merge(f *review.Finding, triage, skeptic review.Verdict, policy MatchPolicy) bool {
	rec, ok := skeptic.StringField("recommendation")
	if !ok || !policy.Matches(rec) {
		return false
	}
	f.Confidence = math.Min(f.Confidence, DowngradeConfidence)
	if sev, ok := triage.StringField("severity"); ok {
		if sev == string(review.SeverityCritical) || sev == string(review.SeverityHigh) {
			f.Severity = review.AtMost(f.Severity, review.SeverityMedium)
		}
	}
	return true
}
