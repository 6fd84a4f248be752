package council

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/joeynyc/Citadel-Local/internal/review"
)

// Stage identifies one step of the council.
type Stage string

const (
	StageTriage  Stage = "triage"
	StageDeep    Stage = "deep"
	StageSkeptic Stage = "skeptic"
)

const (
	// TriageSystem is the system prompt for the first-pass triage call.
	TriageSystem = "You are a defensive code auditor. Be conservative. " +
		"Do not invent evidence. Output valid JSON only."

	// DeepSystem is the system prompt for root-cause and remediation analysis.
	DeepSystem = "You are a defensive code auditor. " +
		"Do NOT provide exploit payloads or instructions for attacking systems. " +
		"Focus on root cause and remediation. Output valid JSON only."

	// SkepticSystem is the system prompt for the adversarial review.
	SkepticSystem = "You are a skeptical reviewer. Try to disprove the finding unless evidence is strong. " +
		"Do not invent evidence. Output valid JSON only."
)

// SystemPrompt returns the fixed system instruction for the stage.
func (s Stage) SystemPrompt() string {
	switch s {
	case StageTriage:
		return TriageSystem
	case StageDeep:
		return DeepSystem
	case StageSkeptic:
		return SkepticSystem
	default:
		return ""
	}
}

// Policy is attached to every request.
type Policy struct {
	DefensiveOnly     bool `json:"defensive_only"`
	NoExploitPayloads bool `json:"no_exploit_payloads"`
}

// DefaultPolicy returns the fixed safety policy.
func DefaultPolicy() Policy {
	return Policy{DefensiveOnly: true, NoExploitPayloads: true}
}

// Attached holds the verdicts committed so far in the current pass.
type Attached struct {
	Triage   *review.Verdict
	Analysis *review.Verdict
}

type userPayload struct {
	RepoContext review.RepoContext         `json:"repo_context"`
	Finding     map[string]json.RawMessage `json:"finding"`
	Policy      Policy                     `json:"policy"`
}

// BuildUserPayload serializes the user message for one stage: the repository
// context, the finding with the verdicts from this pass attached, and the
// policy. Any review left over from an earlier pass is not included.
func BuildUserPayload(repoCtx review.RepoContext, f review.Finding, prior Attached) (string, error) {
	f.Review = nil
	base, err := f.MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("marshaling finding: %w", err)
	}
	var view map[string]json.RawMessage
	if err := json.Unmarshal(base, &view); err != nil {
		return "", fmt.Errorf("decoding finding: %w", err)
	}
	if prior.Triage != nil {
		if view["triage"], err = prior.Triage.MarshalJSON(); err != nil {
			return "", fmt.Errorf("marshaling triage verdict: %w", err)
		}
	}
	if prior.Analysis != nil {
		if view["analysis"], err = prior.Analysis.MarshalJSON(); err != nil {
			return "", fmt.Errorf("marshaling analysis verdict: %w", err)
		}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(userPayload{RepoContext: repoCtx, Finding: view, Policy: DefaultPolicy()}); err != nil {
		return "", fmt.Errorf("marshaling payload: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
