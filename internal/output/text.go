package output

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/joeynyc/Citadel-Local/internal/review"
)

// TextWriter outputs a human-readable text report.
type TextWriter struct{}

var severityOrder = []review.Severity{
	review.SeverityCritical,
	review.SeverityHigh,
	review.SeverityMedium,
	review.SeverityLow,
	review.SeverityInfo,
}

func (t *TextWriter) Write(w io.Writer, report *review.Report) error {
	ew := &errWriter{w: w}
	counts := report.Summary.Counts
	total := counts.Total()

	mode := report.Scan.Mode
	if mode == "" {
		mode = "scan"
	}
	ew.printf("Citadel security scan (%s)\n", mode)
	ew.printf("Repository: %s\n", report.Scan.RepoRoot)
	if report.Scan.Base != "" {
		ew.printf("Base: %s\n", report.Scan.Base)
	}
	ew.printf("Files scanned: %d\n", report.Scan.Meta.FileCount)
	ew.println(strings.Repeat("─", 60))
	ew.printf("Findings: %d total", total)
	if total > 0 {
		ew.printf(" (%d critical, %d high, %d medium, %d low, %d info)",
			counts.Critical, counts.High, counts.Medium, counts.Low, counts.Info)
	}
	ew.println("")
	if report.Scan.Council {
		ew.printf("Council: %d reviewed, %d failed\n", report.Summary.Reviewed, report.Summary.Failed)
	}
	ew.println(strings.Repeat("─", 60))

	if total == 0 {
		ew.println("\nNo findings.")
		return ew.err
	}

	grouped := groupBySeverity(report.Findings)
	for _, sev := range severityOrder {
		findings := grouped[sev]
		if len(findings) == 0 {
			continue
		}

		ew.printf("\n%s %s\n", severityIcon(sev), strings.ToUpper(string(sev)))
		ew.println(strings.Repeat("─", 40))

		sort.SliceStable(findings, func(i, j int) bool {
			if findings[i].Evidence.Path != findings[j].Evidence.Path {
				return findings[i].Evidence.Path < findings[j].Evidence.Path
			}
			return findings[i].Evidence.StartLine < findings[j].Evidence.StartLine
		})

		for _, f := range findings {
			ew.printf("\n  %s:%d  %s\n", f.Evidence.Path, f.Evidence.StartLine, f.Title)
			ew.printf("  Rule: %s | Confidence: %.0f%%\n", f.RuleID, f.Confidence*100)
			if f.Evidence.Snippet != "" {
				ew.printf("    > %s\n", f.Evidence.Snippet)
			}
			for _, line := range wrapText(f.Description, 70) {
				ew.printf("    %s\n", line)
			}
			if len(f.Recommendation) > 0 {
				ew.println("  Recommendation:")
				for _, r := range f.Recommendation {
					for i, line := range wrapText(r, 68) {
						prefix := "    - "
						if i > 0 {
							prefix = "      "
						}
						ew.printf("%s%s\n", prefix, line)
					}
				}
			}
			writeCouncil(ew, f)
		}
	}

	ew.printf("\n%s\n", strings.Repeat("─", 60))
	ew.printf("Completed in %dms (scan: %dms, LLM: %dms)\n",
		report.Scan.Timing.TotalMs, report.Scan.Timing.ScanMs, report.Scan.Timing.LLMMs)

	return ew.err
}

func writeCouncil(ew *errWriter, f review.Finding) {
	r := f.Review
	if r == nil {
		return
	}
	if r.Triage != nil {
		if sev, ok := r.Triage.StringField("severity"); ok && sev != "" {
			ew.printf("  Triage (%s): %s\n", r.Triage.Model, sev)
		}
	}
	if r.Deep != nil {
		if rec, ok := r.Deep.Skeptic.StringField("recommendation"); ok {
			ew.printf("  Skeptic (%s): %s\n", r.Deep.Skeptic.Model, rec)
		}
	}
	if analysis, ok := f.Analysis(); ok {
		steps := analysis.StringList("fix_plan")
		if len(steps) > 0 {
			ew.println("  Fix plan:")
			for _, s := range steps {
				ew.printf("    - %s\n", s)
			}
		}
	}
	if r.Failure != nil {
		ew.printf("  Council error at %s: %s\n", r.Failure.Stage, r.Failure.Error)
	}
}

// errWriter wraps an io.Writer and captures the first error.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *errWriter) println(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintln(ew.w, s)
}

func groupBySeverity(findings []review.Finding) map[review.Severity][]review.Finding {
	m := make(map[review.Severity][]review.Finding)
	for _, f := range findings {
		m[f.Severity] = append(m[f.Severity], f)
	}
	return m
}

func severityIcon(s review.Severity) string {
	switch s {
	case review.SeverityCritical:
		return "[!!!]"
	case review.SeverityHigh:
		return "[!!]"
	case review.SeverityMedium:
		return "[!]"
	case review.SeverityLow:
		return "[-]"
	default:
		return "[i]"
	}
}

func wrapText(text string, width int) []string {
	if len(text) <= width {
		return []string{text}
	}
	var lines []string
	var current strings.Builder
	for _, word := range strings.Fields(text) {
		if current.Len()+len(word)+1 > width && current.Len() > 0 {
			lines = append(lines, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		lines = append(lines, current.String())
	}
	return lines
}
