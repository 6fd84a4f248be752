package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/joeynyc/Citadel-Local/internal/review"
)

// MarkdownWriter outputs report.md: a header with scan facts followed by one
// section per finding, most severe first.
type MarkdownWriter struct{}

func (m *MarkdownWriter) Write(w io.Writer, report *review.Report) error {
	findings := make([]review.Finding, len(report.Findings))
	copy(findings, report.Findings)
	review.SortFindings(findings)

	generated := report.Scan.Timestamp
	if generated == "" {
		generated = Timestamp(time.Now())
	}

	var lines []string
	add := func(format string, args ...any) {
		lines = append(lines, fmt.Sprintf(format, args...))
	}

	add("# Security Report")
	add("")
	add("- Repo: `%s`", report.Scan.RepoRoot)
	add("- Generated: %s", generated)
	add("- Files scanned: %d", report.Scan.Meta.FileCount)
	add("")

	if len(findings) == 0 {
		add("No findings.")
		return writeLines(w, lines)
	}

	add("## Findings")
	add("")
	for i, f := range findings {
		ev := f.Evidence
		add("### %d. %s", i+1, orDefault(f.Title, "Finding"))
		add("- Severity: **%s**", orDefault(string(f.Severity), string(review.SeverityInfo)))
		add("- Confidence: **%s**", formatConfidence(f.Confidence))
		add("- Category: `%s`", orDefault(string(f.Category), string(review.CategoryOther)))
		add("- Rule: `%s`", f.RuleID)
		add("- Location: `%s`:%s", ev.Path, lineOrUnknown(ev.StartLine))
		add("")
		add("%s", f.Description)
		add("")
		add("**Evidence (snippet):**")
		add("```")
		add("%s", ev.Snippet)
		add("```")
		add("")

		if len(f.Recommendation) > 0 {
			add("**Recommendation:**")
			for _, r := range f.Recommendation {
				add("- %s", r)
			}
			add("")
		}

		if analysis, ok := f.Analysis(); ok {
			add("**Fix plan (LLM-assisted):**")
			for _, step := range analysis.StringList("fix_plan") {
				add("- %s", step)
			}
			add("")
		}

		if f.Review != nil && f.Review.Failure != nil {
			add("**Council error:** %s stage: %s", f.Review.Failure.Stage, f.Review.Failure.Error)
			add("")
		}
	}
	return writeLines(w, lines)
}

// Timestamp formats t as a UTC timestamp with microseconds and a Z suffix.
func Timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000") + "Z"
}

func writeLines(w io.Writer, lines []string) error {
	_, err := io.WriteString(w, strings.Join(lines, "\n"))
	return err
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func lineOrUnknown(n int) string {
	if n <= 0 {
		return "?"
	}
	return strconv.Itoa(n)
}

// formatConfidence prints the shortest decimal form, always with a
// fractional part ("1.0", "0.85").
func formatConfidence(c float64) string {
	s := strconv.FormatFloat(c, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
