package detectors

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/joeynyc/Citadel-Local/internal/review"
)

// Rules is a custom rule pack loaded from rules_file.
type Rules struct {
	// Disable lists built-in rule IDs to turn off.
	Disable []string `yaml:"disable,omitempty"`
	// SeverityOverrides maps a rule ID or a category to a severity.
	SeverityOverrides map[string]string `yaml:"severity_overrides,omitempty" validate:"dive,keys,required,endkeys,oneof=info low medium high critical"`
	Rules             []CustomRule      `yaml:"rules,omitempty" validate:"dive"`

	compiled []Rule
}

// CustomRule is the YAML form of a regex rule.
type CustomRule struct {
	ID             string   `yaml:"id" validate:"required"`
	Category       string   `yaml:"category,omitempty" validate:"omitempty,oneof=secrets injection crypto other"`
	Severity       string   `yaml:"severity" validate:"required,oneof=info low medium high critical"`
	Confidence     float64  `yaml:"confidence" validate:"gte=0,lte=1"`
	Title          string   `yaml:"title" validate:"required"`
	Description    string   `yaml:"description,omitempty"`
	Pattern        string   `yaml:"pattern" validate:"required"`
	Extensions     []string `yaml:"extensions,omitempty"`
	Recommendation []string `yaml:"recommendation,omitempty"`
	References     []string `yaml:"references,omitempty"`
}

// LoadRules loads a rule pack from disk. Returns nil Rules and nil error if
// path is empty.
func LoadRules(path string) (*Rules, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules file: %w", err)
	}
	return ParseRules(data)
}

// ParseRules decodes, validates and compiles a YAML rule pack.
func ParseRules(data []byte) (*Rules, error) {
	var rules Rules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parsing rules file: %w", err)
	}
	if err := validateRules(&rules); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	for _, cr := range rules.Rules {
		if seen[cr.ID] {
			return nil, fmt.Errorf("rules file: duplicate rule id %q", cr.ID)
		}
		seen[cr.ID] = true

		pat, err := regexp.Compile(cr.Pattern)
		if err != nil {
			return nil, fmt.Errorf("rules file: rule %q: %w", cr.ID, err)
		}
		category := review.Category(cr.Category)
		if category == "" {
			category = review.CategoryOther
		}
		rules.compiled = append(rules.compiled, Rule{
			ID:             cr.ID,
			Category:       category,
			Severity:       review.Severity(cr.Severity),
			Confidence:     cr.Confidence,
			Title:          cr.Title,
			Description:    cr.Description,
			Pattern:        pat,
			Extensions:     normalizeExts(cr.Extensions),
			Recommendation: cr.Recommendation,
			References:     cr.References,
		})
	}
	return &rules, nil
}

func validateRules(r *Rules) error {
	err := validator.New().Struct(r)
	if err == nil {
		return nil
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return fmt.Errorf("rules file validation error: %w", err)
	}
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msg := fmt.Sprintf("Validation failed for '%s': rule '%s'", e.Namespace(), e.Tag())
		if e.Param() != "" {
			msg += fmt.Sprintf(" (expected: %s)", e.Param())
		}
		msgs = append(msgs, msg)
	}
	return fmt.Errorf("rules file validation failed:\n  %s", strings.Join(msgs, "\n  "))
}

// Apply returns dets with disabled rules removed, severity overrides
// applied, and the custom rules appended as a final "custom" detector.
func (r *Rules) Apply(dets []Detector) []Detector {
	if r == nil {
		return dets
	}
	disabled := make(map[string]bool, len(r.Disable))
	for _, id := range r.Disable {
		disabled[id] = true
	}

	out := make([]Detector, 0, len(dets)+1)
	for _, d := range dets {
		kept := make([]Rule, 0, len(d.Rules))
		for _, rule := range d.Rules {
			if disabled[rule.ID] {
				continue
			}
			kept = append(kept, r.override(rule))
		}
		d.Rules = kept
		out = append(out, d)
	}

	if len(r.compiled) > 0 {
		custom := Detector{Name: "custom"}
		for _, rule := range r.compiled {
			if !disabled[rule.ID] {
				custom.Rules = append(custom.Rules, r.override(rule))
			}
		}
		out = append(out, custom)
	}
	return out
}

// override applies a rule-ID override, falling back to a category override.
func (r *Rules) override(rule Rule) Rule {
	if sev, ok := r.SeverityOverrides[rule.ID]; ok {
		rule.Severity = review.Severity(sev)
	} else if sev, ok := r.SeverityOverrides[string(rule.Category)]; ok {
		rule.Severity = review.Severity(sev)
	}
	return rule
}

func normalizeExts(exts []string) []string {
	if len(exts) == 0 {
		return nil
	}
	out := make([]string, 0, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		out = append(out, e)
	}
	return out
}
