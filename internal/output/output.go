package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/joeynyc/Citadel-Local/internal/review"
)

// Writer writes a report in a specific format.
type Writer interface {
	Write(w io.Writer, report *review.Report) error
}

// Formats lists the supported format names in their canonical order.
var Formats = []string{"json", "md", "sarif", "text"}

// GetWriter returns a writer for the specified format.
func GetWriter(format string) (Writer, error) {
	switch format {
	case "json":
		return &JSONWriter{}, nil
	case "md", "markdown":
		return &MarkdownWriter{}, nil
	case "sarif":
		return &SARIFWriter{}, nil
	case "text":
		return &TextWriter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// FileName returns the file a format is written to inside the output
// directory.
func FileName(format string) string {
	switch format {
	case "json":
		return "findings.json"
	case "md", "markdown":
		return "report.md"
	case "sarif":
		return "report.sarif"
	default:
		return "report.txt"
	}
}

// WriteReport writes the report to the specified output (file path or stdout).
func WriteReport(report *review.Report, format, outPath string) error {
	writer, err := GetWriter(format)
	if err != nil {
		return err
	}

	if outPath == "" {
		return writer.Write(os.Stdout, report)
	}

	if dir := filepath.Dir(outPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	if err := writer.Write(f, report); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteAll writes one file per format into dir and returns the paths written,
// in format order.
func WriteAll(report *review.Report, formats []string, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	paths := make([]string, 0, len(formats))
	for _, format := range formats {
		p := filepath.Join(dir, FileName(format))
		if err := WriteReport(report, format, p); err != nil {
			return paths, fmt.Errorf("writing %s: %w", format, err)
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// ReadReport loads a findings.json written by JSONWriter.
func ReadReport(path string) (*review.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}
	var report review.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("parsing report %s: %w", path, err)
	}
	if report.SchemaVersion == "" {
		return nil, fmt.Errorf("parsing report %s: missing schema_version", path)
	}
	if report.Findings == nil {
		report.Findings = []review.Finding{}
	}
	return &report, nil
}
