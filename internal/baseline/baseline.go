package baseline

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joeynyc/Citadel-Local/internal/review"
)

// Version is the baseline file format version.
const Version = "1"

// Entry is one accepted finding.
type Entry struct {
	Fingerprint string `json:"fingerprint"`
	RuleID      string `json:"rule_id"`
	Path        string `json:"path"`
	Title       string `json:"title,omitempty"`
}

// Baseline is a set of accepted findings, keyed by fingerprint.
type Baseline struct {
	Version   string  `json:"version"`
	CreatedAt string  `json:"created_at"`
	Entries   []Entry `json:"entries"`

	index map[string]struct{}
}

// Fingerprint identifies a finding independently of its line number, so
// that unrelated edits above it do not resurface an accepted finding.
func Fingerprint(f review.Finding) string {
	h := sha256.New()
	h.Write([]byte(f.RuleID))
	h.Write([]byte{0})
	h.Write([]byte(filepath.ToSlash(f.Evidence.Path)))
	h.Write([]byte{0})
	h.Write([]byte(strings.TrimSpace(f.Evidence.Snippet)))
	return hex.EncodeToString(h.Sum(nil))
}

// New builds a baseline accepting every given finding. Duplicate
// fingerprints are stored once; entries are sorted for stable diffs.
func New(findings []review.Finding) *Baseline {
	b := &Baseline{
		Version:   Version,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Entries:   []Entry{},
		index:     make(map[string]struct{}),
	}
	for _, f := range findings {
		fp := Fingerprint(f)
		if _, ok := b.index[fp]; ok {
			continue
		}
		b.index[fp] = struct{}{}
		b.Entries = append(b.Entries, Entry{
			Fingerprint: fp,
			RuleID:      f.RuleID,
			Path:        filepath.ToSlash(f.Evidence.Path),
			Title:       f.Title,
		})
	}
	sort.Slice(b.Entries, func(i, j int) bool {
		if b.Entries[i].Path != b.Entries[j].Path {
			return b.Entries[i].Path < b.Entries[j].Path
		}
		if b.Entries[i].RuleID != b.Entries[j].RuleID {
			return b.Entries[i].RuleID < b.Entries[j].RuleID
		}
		return b.Entries[i].Fingerprint < b.Entries[j].Fingerprint
	})
	return b
}

// Len returns the number of accepted fingerprints.
func (b *Baseline) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Entries)
}

// Contains reports whether f was accepted. A nil baseline contains nothing.
func (b *Baseline) Contains(f review.Finding) bool {
	if b == nil {
		return false
	}
	if b.index == nil {
		b.reindex()
	}
	_, ok := b.index[Fingerprint(f)]
	return ok
}

func (b *Baseline) reindex() {
	b.index = make(map[string]struct{}, len(b.Entries))
	for _, e := range b.Entries {
		b.index[e.Fingerprint] = struct{}{}
	}
}

// Filter returns the findings not present in the baseline, in input order,
// and the number suppressed.
func Filter(findings []review.Finding, b *Baseline) ([]review.Finding, int) {
	kept := make([]review.Finding, 0, len(findings))
	suppressed := 0
	for _, f := range findings {
		if b.Contains(f) {
			suppressed++
			continue
		}
		kept = append(kept, f)
	}
	return kept, suppressed
}

// Save writes the baseline for findings to path.
func Save(path string, findings []review.Finding) (*Baseline, error) {
	b := New(findings)
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling baseline: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating baseline directory: %w", err)
		}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return nil, fmt.Errorf("writing baseline: %w", err)
	}
	return b, nil
}

// Load reads a baseline file. An empty path yields a nil baseline, which
// suppresses nothing.
func Load(path string) (*Baseline, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("baseline %s not found", path)
		}
		return nil, fmt.Errorf("reading baseline: %w", err)
	}
	var b Baseline
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("parsing baseline %s: %w", path, err)
	}
	if b.Version != Version {
		return nil, fmt.Errorf("baseline %s: unsupported version %q", path, b.Version)
	}
	b.reindex()
	return &b, nil
}
