package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/joeynyc/Citadel-Local/internal/review"
)

// JSONWriter outputs the full report as findings.json. Non-ASCII text and
// HTML metacharacters in evidence are written as-is.
type JSONWriter struct{}

func (j *JSONWriter) Write(w io.Writer, report *review.Report) error {
	out := *report
	if out.SchemaVersion == "" {
		out.SchemaVersion = review.SchemaVersion
	}
	if out.Findings == nil {
		out.Findings = []review.Finding{}
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(&out); err != nil {
		return fmt.Errorf("writing JSON: %w", err)
	}
	return nil
}
