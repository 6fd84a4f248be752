package review

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Severity represents the severity level of a finding.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// SeverityRank returns a numeric rank for sorting (higher = more severe).
func SeverityRank(s Severity) int {
	switch s {
	case SeverityCritical:
		return 5
	case SeverityHigh:
		return 4
	case SeverityMedium:
		return 3
	case SeverityLow:
		return 2
	case SeverityInfo:
		return 1
	default:
		return 0
	}
}

// ValidSeverity reports whether s is one of the known severity levels.
func ValidSeverity(s string) bool {
	return SeverityRank(Severity(s)) > 0
}

// MeetsThreshold returns true if severity is at or above the threshold.
func MeetsThreshold(s Severity, threshold string) bool {
	if threshold == "none" || threshold == "" {
		return false
	}
	return SeverityRank(s) >= SeverityRank(Severity(threshold))
}

// AtMost caps s at ceiling. A severity already at or below the ceiling is
// returned unchanged, so the result is never more severe than s.
func AtMost(s, ceiling Severity) Severity {
	if SeverityRank(s) > SeverityRank(ceiling) {
		return ceiling
	}
	return s
}

// Category represents the detector family that produced a finding.
type Category string

const (
	CategorySecrets   Category = "secrets"
	CategoryInjection Category = "injection"
	CategoryCrypto    Category = "crypto"
	CategoryOther     Category = "other"
)

// Evidence locates a finding in the scanned repository.
type Evidence struct {
	Path      string `json:"path"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
	Snippet   string `json:"snippet"`
	Context   string `json:"context"`
}

// Verdict is the parsed output of one council stage. Fields holds whatever
// JSON object the model produced; Model records which model produced it.
type Verdict struct {
	Model  string
	Fields map[string]any
}

// MarshalJSON flattens the verdict into a single object with a "model" key.
// The recorded model name takes precedence over a "model" key emitted by
// the model itself.
func (v Verdict) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(v.Fields)+1)
	for k, val := range v.Fields {
		out[k] = val
	}
	out["model"] = v.Model
	return marshalRaw(out)
}

// UnmarshalJSON restores a verdict written by MarshalJSON.
func (v *Verdict) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	if name, ok := m["model"].(string); ok {
		v.Model = name
		delete(m, "model")
	}
	v.Fields = m
	return nil
}

// StringField returns the named field if it is a JSON string.
func (v Verdict) StringField(key string) (string, bool) {
	s, ok := v.Fields[key].(string)
	return s, ok
}

// StringList returns the named field as a list of strings. A single string is
// treated as a one-element list; non-string elements are formatted.
func (v Verdict) StringList(key string) []string {
	switch val := v.Fields[key].(type) {
	case string:
		return []string{val}
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				out = append(out, s)
			} else {
				out = append(out, fmt.Sprint(item))
			}
		}
		return out
	case []string:
		return val
	default:
		return nil
	}
}

// DeepReview holds the verdicts of the deep and skeptic stages. Both are
// always present together.
type DeepReview struct {
	Analysis Verdict
	Skeptic  Verdict
}

// StageFailure records a council stage that could not complete. Analysis
// carries the deep verdict when the failure happened at the skeptic stage.
type StageFailure struct {
	Stage    string   `json:"stage"`
	Error    string   `json:"error"`
	Analysis *Verdict `json:"analysis,omitempty"`
}

// Review is the council outcome for one finding. Exactly one shape is valid:
// triage only (deep review skipped), triage plus Deep, or a Failure with
// whatever stages committed before it.
type Review struct {
	Triage  *Verdict
	Deep    *DeepReview
	Failure *StageFailure
}

// Outcome names the shape of the review.
func (r *Review) Outcome() string {
	switch {
	case r == nil:
		return "none"
	case r.Failure != nil:
		return "failed"
	case r.Deep != nil:
		return "reviewed"
	default:
		return "skipped"
	}
}

// Finding is a single security finding, optionally annotated by the council.
type Finding struct {
	ID             string
	RuleID         string
	Category       Category
	Severity       Severity
	Confidence     float64
	Title          string
	Description    string
	Evidence       Evidence
	Recommendation []string
	References     []string
	Review         *Review
}

// findingJSON is the wire shape of a Finding. Council verdicts are
// flattened into the triage, analysis and skeptic keys.
type findingJSON struct {
	ID             string        `json:"id"`
	RuleID         string        `json:"rule_id"`
	Category       Category      `json:"category"`
	Severity       Severity      `json:"severity"`
	Confidence     float64       `json:"confidence"`
	Title          string        `json:"title"`
	Description    string        `json:"description"`
	Evidence       Evidence      `json:"evidence"`
	Recommendation []string      `json:"recommendation"`
	References     []string      `json:"references"`
	Triage         *Verdict      `json:"triage,omitempty"`
	Analysis       *Verdict      `json:"analysis,omitempty"`
	Skeptic        *Verdict      `json:"skeptic,omitempty"`
	CouncilError   *StageFailure `json:"council_error,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (f Finding) MarshalJSON() ([]byte, error) {
	fj := findingJSON{
		ID:             f.ID,
		RuleID:         f.RuleID,
		Category:       f.Category,
		Severity:       f.Severity,
		Confidence:     f.Confidence,
		Title:          f.Title,
		Description:    f.Description,
		Evidence:       f.Evidence,
		Recommendation: f.Recommendation,
		References:     f.References,
	}
	if fj.Recommendation == nil {
		fj.Recommendation = []string{}
	}
	if fj.References == nil {
		fj.References = []string{}
	}
	if r := f.Review; r != nil {
		fj.Triage = r.Triage
		if r.Deep != nil {
			analysis, skeptic := r.Deep.Analysis, r.Deep.Skeptic
			fj.Analysis = &analysis
			fj.Skeptic = &skeptic
		}
		fj.CouncilError = r.Failure
	}
	return marshalRaw(fj)
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *Finding) UnmarshalJSON(data []byte) error {
	var fj findingJSON
	if err := json.Unmarshal(data, &fj); err != nil {
		return err
	}
	*f = Finding{
		ID:             fj.ID,
		RuleID:         fj.RuleID,
		Category:       fj.Category,
		Severity:       fj.Severity,
		Confidence:     fj.Confidence,
		Title:          fj.Title,
		Description:    fj.Description,
		Evidence:       fj.Evidence,
		Recommendation: fj.Recommendation,
		References:     fj.References,
	}
	if fj.Triage == nil && fj.CouncilError == nil {
		return nil
	}
	r := &Review{Triage: fj.Triage, Failure: fj.CouncilError}
	if fj.Analysis != nil && fj.Skeptic != nil {
		r.Deep = &DeepReview{Analysis: *fj.Analysis, Skeptic: *fj.Skeptic}
	}
	f.Review = r
	return nil
}

// Analysis returns the deep-review verdict if one was recorded, including
// one preserved on a skeptic-stage failure.
func (f Finding) Analysis() (Verdict, bool) {
	if f.Review == nil {
		return Verdict{}, false
	}
	if f.Review.Deep != nil {
		return f.Review.Deep.Analysis, true
	}
	if f.Review.Failure != nil && f.Review.Failure.Analysis != nil {
		return *f.Review.Failure.Analysis, true
	}
	return Verdict{}, false
}

// ExtCount is one entry of the extension histogram. It serializes as a
// two-element [extension, count] array.
type ExtCount struct {
	Ext   string
	Count int
}

// MarshalJSON implements json.Marshaler.
func (e ExtCount) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{e.Ext, e.Count})
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *ExtCount) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("extension count: want 2 elements, got %d", len(pair))
	}
	if err := json.Unmarshal(pair[0], &e.Ext); err != nil {
		return err
	}
	return json.Unmarshal(pair[1], &e.Count)
}

// RepoContext summarizes the scanned repository. It is passed verbatim to
// every council call.
type RepoContext struct {
	RepoRoot         string     `json:"repo_root"`
	FileCount        int        `json:"file_count"`
	TopExtensions    []ExtCount `json:"top_extensions"`
	HasDocker        bool       `json:"has_docker"`
	HasGitHubActions bool       `json:"has_github_actions"`
	HasEnvFiles      bool       `json:"has_env_files"`
}

// GitInfo contains repository metadata for diff scans.
type GitInfo struct {
	Root   string `json:"root"`
	Head   string `json:"head"`
	Branch string `json:"branch"`
}

// Timing contains performance metrics.
type Timing struct {
	ScanMs  int64 `json:"scan_ms"`
	LLMMs   int64 `json:"llm_ms"`
	TotalMs int64 `json:"total_ms"`
}

// ScanInfo describes the scan that produced a report.
type ScanInfo struct {
	RepoRoot  string      `json:"repo_root"`
	Timestamp string      `json:"timestamp"`
	RunID     string      `json:"run_id,omitempty"`
	Mode      string      `json:"mode,omitempty"`
	Base      string      `json:"base,omitempty"`
	Council   bool        `json:"council"`
	Meta      RepoContext `json:"meta"`
	Git       *GitInfo    `json:"git,omitempty"`
	Timing    Timing      `json:"timing"`
}

// SeverityCounts holds counts by severity level.
type SeverityCounts struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
	Info     int `json:"info"`
}

// Total returns the sum of all counts.
func (c SeverityCounts) Total() int {
	return c.Critical + c.High + c.Medium + c.Low + c.Info
}

// Summary provides an overview of findings.
type Summary struct {
	Counts          SeverityCounts `json:"counts"`
	HighestSeverity Severity       `json:"highest_severity,omitempty"`
	Reviewed        int            `json:"reviewed"`
	Failed          int            `json:"failed"`
}

// SchemaVersion is the findings.json schema version.
const SchemaVersion = "1.0"

// Report is the top-level output structure written to findings.json.
type Report struct {
	SchemaVersion string    `json:"schema_version"`
	Tool          string    `json:"tool,omitempty"`
	Version       string    `json:"version,omitempty"`
	Scan          ScanInfo  `json:"scan"`
	Summary       Summary   `json:"summary"`
	Findings      []Finding `json:"findings"`
}

// ComputeSummary calculates the summary from findings.
func ComputeSummary(findings []Finding) Summary {
	var s Summary
	for _, f := range findings {
		switch f.Severity {
		case SeverityCritical:
			s.Counts.Critical++
		case SeverityHigh:
			s.Counts.High++
		case SeverityMedium:
			s.Counts.Medium++
		case SeverityLow:
			s.Counts.Low++
		case SeverityInfo:
			s.Counts.Info++
		}
		if SeverityRank(f.Severity) > SeverityRank(s.HighestSeverity) {
			s.HighestSeverity = f.Severity
		}
		switch f.Review.Outcome() {
		case "reviewed":
			s.Reviewed++
		case "failed":
			s.Failed++
		}
	}
	return s
}

// SortFindings orders findings by severity (most severe first), then by
// confidence descending. The sort is stable so equal findings keep their
// detector order.
func SortFindings(findings []Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		ri := SeverityRank(findings[i].Severity)
		rj := SeverityRank(findings[j].Severity)
		if ri != rj {
			return ri > rj
		}
		return findings[i].Confidence > findings[j].Confidence
	})
}

// marshalRaw encodes v without HTML escaping. Escaping, if wanted, is left
// to the outermost encoder.
func marshalRaw(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
