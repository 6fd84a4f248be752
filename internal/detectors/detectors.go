package detectors

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/joeynyc/Citadel-Local/internal/repo"
	"github.com/joeynyc/Citadel-Local/internal/review"
)

// maxSnippet caps the evidence snippet length in characters.
const maxSnippet = 300

// DefaultContextLines is the context window on each side of a match.
const DefaultContextLines = 40

// Rule is one line-oriented regex check.
type Rule struct {
	ID          string
	Category    review.Category
	Severity    review.Severity
	Confidence  float64
	Title       string
	Description string
	Pattern     *regexp.Regexp
	// Extensions further restricts the rule within its detector.
	Extensions     []string
	Recommendation []string
	References     []string
}

// Detector groups rules that share a file filter. Rules are tried in order
// on every line.
type Detector struct {
	Name string
	// Extensions restricts the detector to files with these lowercased
	// suffixes. Empty means every file.
	Extensions []string
	Rules      []Rule
}

// Applies reports whether the detector should scan path.
func (d Detector) Applies(path string) bool {
	return hasExt(d.Extensions, path)
}

func hasExt(exts []string, path string) bool {
	if len(exts) == 0 {
		return true
	}
	ext := repo.Ext(path)
	for _, e := range exts {
		if e == ext {
			return true
		}
	}
	return false
}

// Options controls a detector run.
type Options struct {
	// ContextLines is the window kept on each side of a match. Negative
	// values are treated as zero.
	ContextLines int
	// Rules is an optional custom rule pack.
	Rules *Rules
}

// Builtin returns the built-in detectors in run order.
func Builtin() []Detector {
	return []Detector{Secrets(), Injection(), Crypto()}
}

// Run scans files with the built-in detectors followed by any custom rules.
// Findings are grouped by detector in that order, then by file order, line
// and rule. Files that cannot be read are skipped.
func Run(root string, files []string, opts Options) []review.Finding {
	dets := Builtin()
	if opts.Rules != nil {
		dets = opts.Rules.Apply(dets)
	}
	ctxLines := max(opts.ContextLines, 0)

	buckets := make([][]review.Finding, len(dets))
	for _, path := range files {
		var lines []string
		loaded := false
		for i, d := range dets {
			if !d.Applies(path) {
				continue
			}
			if !loaded {
				var err error
				lines, err = readLines(path)
				if err != nil {
					break
				}
				loaded = true
			}
			buckets[i] = append(buckets[i], d.scan(root, path, lines, ctxLines)...)
		}
	}

	findings := []review.Finding{}
	for _, b := range buckets {
		findings = append(findings, b...)
	}
	return findings
}

func (d Detector) scan(root, path string, lines []string, ctxLines int) []review.Finding {
	var out []review.Finding
	rel := relPath(root, path)
	rules := make([]Rule, 0, len(d.Rules))
	for _, r := range d.Rules {
		if hasExt(r.Extensions, path) {
			rules = append(rules, r)
		}
	}
	for i, line := range lines {
		for _, r := range rules {
			if !r.Pattern.MatchString(line) {
				continue
			}
			out = append(out, r.finding(path, rel, lines, i+1, ctxLines))
		}
	}
	return out
}

func (r Rule) finding(path, rel string, lines []string, lineNo, ctxLines int) review.Finding {
	return review.Finding{
		ID:          fmt.Sprintf("%s:%s:%d", r.ID, path, lineNo),
		RuleID:      r.ID,
		Category:    r.Category,
		Severity:    r.Severity,
		Confidence:  r.Confidence,
		Title:       r.Title,
		Description: r.Description,
		Evidence: review.Evidence{
			Path:      rel,
			StartLine: lineNo,
			EndLine:   lineNo,
			Snippet:   snippet(lines[lineNo-1]),
			Context:   contextWindow(lines, lineNo, ctxLines),
		},
		Recommendation: append([]string(nil), r.Recommendation...),
		References:     append([]string(nil), r.References...),
	}
}

// snippet trims the line and cuts it to maxSnippet characters.
func snippet(line string) string {
	s := strings.TrimSpace(line)
	if len(s) <= maxSnippet {
		return s
	}
	r := []rune(s)
	if len(r) <= maxSnippet {
		return s
	}
	return string(r[:maxSnippet])
}

// contextWindow returns lines [lineNo-1-n, lineNo-1+n) joined by newlines,
// clipped to the file. The window is asymmetric: n lines before the match,
// the match itself, and n-1 lines after it. With n == 0 it is empty.
func contextWindow(lines []string, lineNo, n int) string {
	start := max(0, lineNo-1-n)
	end := min(len(lines), lineNo-1+n)
	if start >= end {
		return ""
	}
	return strings.Join(lines[start:end], "\n")
}

// readLines reads a file as UTF-8, dropping invalid bytes, and splits it
// into lines without terminators.
func readLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text := strings.ToValidUTF8(string(data), "")
	if text == "" {
		return nil, nil
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.TrimSuffix(text, "\n")
	return strings.Split(text, "\n"), nil
}

func relPath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}
