package ui

import (
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/pterm/pterm"

	"github.com/joeynyc/Citadel-Local/internal/review"
)

// UI prints progress and results. Results go to out; the banner, spinners
// and notices go to err so that out stays parseable.
type UI struct {
	out         io.Writer
	err         io.Writer
	interactive bool
}

// New creates a UI. When interactive is false, spinners and the banner are
// suppressed and only plain result lines are printed.
func New(out, err io.Writer, interactive bool) *UI {
	return &UI{out: out, err: err, interactive: interactive}
}

// Printf writes a plain line to the result stream.
func (u *UI) Printf(format string, args ...any) {
	fmt.Fprintf(u.out, format, args...)
}

// Wrote reports an output file.
func (u *UI) Wrote(path string) {
	fmt.Fprintf(u.out, "Wrote: %s\n", path)
}

// Warn prints a warning notice.
func (u *UI) Warn(format string, args ...any) {
	fmt.Fprint(u.err, pterm.Warning.Sprintf(format, args...)+"\n")
}

// Findings prints a table of findings, most severe first. The input slice
// is not reordered.
func (u *UI) Findings(findings []review.Finding) {
	if len(findings) == 0 {
		fmt.Fprint(u.out, pterm.Success.Sprint("No findings.")+"\n")
		return
	}

	sorted := make([]review.Finding, len(findings))
	copy(sorted, findings)
	review.SortFindings(sorted)

	fmt.Fprint(u.out, pterm.Warning.Sprintf("Found %d potential issues:", len(sorted))+"\n\n")

	data := [][]string{
		{"Severity", "Conf", "Rule", "Location", "Council"},
	}
	for _, f := range sorted {
		data = append(data, []string{
			severityStyle(f.Severity),
			strconv.FormatFloat(f.Confidence, 'f', 2, 64),
			pterm.FgCyan.Sprint(f.RuleID),
			fmt.Sprintf("%s:%d", f.Evidence.Path, f.Evidence.StartLine),
			f.Review.Outcome(),
		})
	}

	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return
	}
	fmt.Fprintln(u.out, table)
}

func severityStyle(s review.Severity) string {
	switch s {
	case review.SeverityCritical:
		return pterm.FgRed.Sprint("CRITICAL")
	case review.SeverityHigh:
		return pterm.FgRed.Sprint("HIGH")
	case review.SeverityMedium:
		return pterm.FgYellow.Sprint("MEDIUM")
	case review.SeverityLow:
		return pterm.FgBlue.Sprint("LOW")
	default:
		return pterm.FgGray.Sprint("INFO")
	}
}

// Spinner wraps a pterm spinner. A nil *Spinner is valid and does nothing.
type Spinner struct {
	mu sync.Mutex
	sp *pterm.SpinnerPrinter
}

// StartSpinner starts a spinner on the notice stream. It returns nil when
// the UI is not interactive.
func (u *UI) StartSpinner(text string) *Spinner {
	if !u.interactive {
		return nil
	}
	sp, err := pterm.DefaultSpinner.WithWriter(u.err).Start(text)
	if err != nil {
		return nil
	}
	return &Spinner{sp: sp}
}

// Update replaces the spinner text. It is safe for concurrent use.
func (s *Spinner) Update(text string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sp.UpdateText(text)
}

// Success stops the spinner with a success message.
func (s *Spinner) Success(msg string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sp.Success(msg)
}

// Fail stops the spinner with a failure message.
func (s *Spinner) Fail(msg string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sp.Fail(msg)
}
