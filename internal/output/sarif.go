package output

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/joeynyc/Citadel-Local/internal/review"
)

// SARIFWriter outputs findings in SARIF v2.1.0 format.
type SARIFWriter struct{}

func (s *SARIFWriter) Write(w io.Writer, report *review.Report) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(buildSARIF(report)); err != nil {
		return fmt.Errorf("writing SARIF: %w", err)
	}
	return nil
}

// SARIF schema types (v2.1.0)

type sarifLog struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string      `json:"name"`
	Version        string      `json:"version,omitempty"`
	InformationURI string      `json:"informationUri"`
	Rules          []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string              `json:"id"`
	Name             string              `json:"name"`
	ShortDescription sarifMessage        `json:"shortDescription"`
	FullDescription  *sarifMessage       `json:"fullDescription,omitempty"`
	HelpURI          string              `json:"helpUri,omitempty"`
	DefaultConfig    sarifDefaultConfig  `json:"defaultConfiguration"`
	Properties       sarifRuleProperties `json:"properties,omitempty"`
}

type sarifDefaultConfig struct {
	Level string `json:"level"`
}

type sarifRuleProperties struct {
	Tags []string `json:"tags,omitempty"`
}

type sarifResult struct {
	RuleID     string                `json:"ruleId"`
	Level      string                `json:"level"`
	Message    sarifMessage          `json:"message"`
	Locations  []sarifLocation       `json:"locations,omitempty"`
	Fixes      []sarifFix            `json:"fixes,omitempty"`
	Properties sarifResultProperties `json:"properties"`
}

type sarifResultProperties struct {
	Severity   review.Severity `json:"severity"`
	Confidence float64         `json:"confidence"`
	Council    string          `json:"council,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           sarifRegion           `json:"region"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine int           `json:"startLine"`
	EndLine   int           `json:"endLine"`
	Snippet   *sarifMessage `json:"snippet,omitempty"`
}

type sarifFix struct {
	Description sarifMessage `json:"description"`
}

func buildSARIF(report *review.Report) sarifLog {
	rulesMap := make(map[string]sarifRule)
	var ruleOrder []string
	results := make([]sarifResult, 0, len(report.Findings))

	for _, f := range report.Findings {
		ruleID := sarifRuleID(f)

		if _, ok := rulesMap[ruleID]; !ok {
			rule := sarifRule{
				ID:               ruleID,
				Name:             f.Title,
				ShortDescription: sarifMessage{Text: f.Title},
				DefaultConfig:    sarifDefaultConfig{Level: severityToLevel(f.Severity)},
				Properties:       sarifRuleProperties{Tags: []string{"security", string(f.Category)}},
			}
			if f.Description != "" {
				rule.FullDescription = &sarifMessage{Text: f.Description}
			}
			if len(f.References) > 0 {
				rule.HelpURI = f.References[0]
			}
			rulesMap[ruleID] = rule
			ruleOrder = append(ruleOrder, ruleID)
		}

		result := sarifResult{
			RuleID:  ruleID,
			Level:   severityToLevel(f.Severity),
			Message: sarifMessage{Text: resultMessage(f)},
			Properties: sarifResultProperties{
				Severity:   f.Severity,
				Confidence: f.Confidence,
			},
		}
		if f.Review != nil {
			result.Properties.Council = f.Review.Outcome()
		}

		if f.Evidence.Path != "" {
			region := sarifRegion{
				StartLine: f.Evidence.StartLine,
				EndLine:   f.Evidence.EndLine,
			}
			if f.Evidence.Snippet != "" {
				region.Snippet = &sarifMessage{Text: f.Evidence.Snippet}
			}
			result.Locations = append(result.Locations, sarifLocation{
				PhysicalLocation: sarifPhysicalLocation{
					ArtifactLocation: sarifArtifactLocation{URI: f.Evidence.Path},
					Region:           region,
				},
			})
		}

		if len(f.Recommendation) > 0 {
			result.Fixes = append(result.Fixes, sarifFix{
				Description: sarifMessage{Text: strings.Join(f.Recommendation, " ")},
			})
		}

		results = append(results, result)
	}

	rules := make([]sarifRule, 0, len(ruleOrder))
	for _, id := range ruleOrder {
		rules = append(rules, rulesMap[id])
	}

	return sarifLog{
		Version: "2.1.0",
		Schema:  "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/main/sarif-2.1/schema/sarif-schema-2.1.0.json",
		Runs: []sarifRun{
			{
				Tool: sarifTool{
					Driver: sarifDriver{
						Name:           "citadel",
						Version:        report.Version,
						InformationURI: "https://github.com/joeynyc/Citadel-Local",
						Rules:          rules,
					},
				},
				Results: results,
			},
		},
	}
}

func resultMessage(f review.Finding) string {
	if f.Description == "" {
		return f.Title
	}
	return f.Title + ": " + f.Description
}

// severityToLevel maps a finding severity to a SARIF level.
func severityToLevel(s review.Severity) string {
	switch s {
	case review.SeverityCritical, review.SeverityHigh:
		return "error"
	case review.SeverityMedium:
		return "warning"
	default:
		return "note"
	}
}

// sarifRuleID uses the detector rule ID, falling back to a stable hash of
// category and title for findings without one.
func sarifRuleID(f review.Finding) string {
	if f.RuleID != "" {
		return f.RuleID
	}
	h := sha256.Sum256([]byte(fmt.Sprintf("%s/%s", f.Category, f.Title)))
	return fmt.Sprintf("citadel/%s/%x", f.Category, h[:4])
}
