package output

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGetWriter(t *testing.T) {
	for _, f := range Formats {
		if _, err := GetWriter(f); err != nil {
			t.Errorf("GetWriter(%q): %v", f, err)
		}
	}
	if _, err := GetWriter("xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestWriteAll_AndReadReport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	paths, err := WriteAll(sampleReport(), []string{"json", "md"}, dir)
	if err != nil {
		t.Fatalf("WriteAll: %v", err)
	}
	want := []string{filepath.Join(dir, "findings.json"), filepath.Join(dir, "report.md")}
	if strings.Join(paths, ",") != strings.Join(want, ",") {
		t.Errorf("paths = %v, want %v", paths, want)
	}

	report, err := ReadReport(paths[0])
	if err != nil {
		t.Fatalf("ReadReport: %v", err)
	}
	if len(report.Findings) != 2 {
		t.Fatalf("findings = %d, want 2", len(report.Findings))
	}
	got := report.Findings[1]
	if got.Review.Outcome() != "reviewed" {
		t.Errorf("outcome = %q, want reviewed", got.Review.Outcome())
	}
	if steps := got.Review.Deep.Analysis.StringList("fix_plan"); len(steps) != 2 {
		t.Errorf("fix_plan = %v", steps)
	}
	if report.Scan.Meta.TopExtensions[0].Ext != "py" {
		t.Errorf("top_extensions lost: %+v", report.Scan.Meta.TopExtensions)
	}
}

func TestReadReport_Invalid(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"findings": []}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadReport(bad); err == nil {
		t.Error("expected error for report without schema_version")
	}
	if _, err := ReadReport(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
