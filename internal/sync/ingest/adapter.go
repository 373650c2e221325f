package ingest

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"attest/internal/fulfillment/models"
	id "attest/pkg/domain"
	dErrors "attest/pkg/domain-errors"
)

// envelope is the provider payload contract. Unknown fields are ignored so
// providers can extend their payloads without breaking ingestion.
type envelope struct {
	Provider    string       `json:"provider"`
	ObservedAt  time.Time    `json:"observed_at"`
	Assessments []assessment `json:"assessments"`
}

type assessment struct {
	RequirementID string `json:"requirement_id,omitempty"`
	ControlRef    string `json:"control_ref,omitempty"`
	Status        string `json:"status"`
	Confidence    string `json:"confidence,omitempty"`
	Evidence      string `json:"evidence,omitempty"`
}

// Result is one payload's normalized output. Skipped lists assessments that
// referenced controls the ruleset does not map; they are reported, not fatal.
type Result struct {
	Provider string
	Findings []models.AutoFinding
	Skipped  []string
}

// Adapter turns raw provider payloads into findings. Pure per call; a nil
// ruleset supports payloads that reference requirements directly.
type Adapter struct {
	rules *Ruleset
}

// NewAdapter constructs an Adapter over a mapping ruleset.
func NewAdapter(rules *Ruleset) *Adapter {
	return &Adapter{rules: rules}
}

// Ingest parses and normalizes one payload. A missing or invalid required
// field is malformed_payload and fatal for the whole payload; an unmapped
// control reference only skips that assessment.
//
// Multiple assessments for the same requirement collapse to one finding,
// last assessment wins, so reconciliation order cannot change the outcome.
func (a *Adapter) Ingest(payload []byte) (*Result, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeMalformedPayload, "payload is not a valid provider envelope")
	}
	if strings.TrimSpace(env.Provider) == "" {
		return nil, dErrors.New(dErrors.CodeMalformedPayload, "payload provider is required")
	}
	if env.ObservedAt.IsZero() {
		return nil, dErrors.New(dErrors.CodeMalformedPayload, "payload observation time is required")
	}

	result := &Result{Provider: env.Provider}
	position := make(map[id.RequirementID]int)

	for i, item := range env.Assessments {
		reqID, skip, err := a.resolveRequirement(env.Provider, i, item)
		if err != nil {
			return nil, err
		}
		if skip != "" {
			result.Skipped = append(result.Skipped, skip)
			continue
		}

		status, err := a.normalizeStatus(env.Provider, i, item.Status)
		if err != nil {
			return nil, err
		}
		confidence, err := normalizeConfidence(i, item.Confidence)
		if err != nil {
			return nil, err
		}

		finding := models.AutoFinding{
			RequirementID: reqID,
			Status:        status,
			Confidence:    confidence,
			Evidence:      item.Evidence,
			Source:        env.Provider,
			ObservedAt:    env.ObservedAt,
		}
		if at, seen := position[reqID]; seen {
			result.Findings[at] = finding
			continue
		}
		position[reqID] = len(result.Findings)
		result.Findings = append(result.Findings, finding)
	}
	return result, nil
}

// resolveRequirement returns the catalog requirement an assessment targets.
// A direct requirement_id wins over a control_ref when both are present.
func (a *Adapter) resolveRequirement(provider string, i int, item assessment) (id.RequirementID, string, error) {
	if item.RequirementID != "" {
		reqID, err := id.ParseRequirementID(item.RequirementID)
		if err != nil {
			return id.RequirementID{}, "", dErrors.Newf(dErrors.CodeMalformedPayload, "assessment %d: invalid requirement id %q", i, item.RequirementID)
		}
		return reqID, "", nil
	}
	if item.ControlRef == "" {
		return id.RequirementID{}, "", dErrors.Newf(dErrors.CodeMalformedPayload, "assessment %d carries neither requirement_id nor control_ref", i)
	}
	reqID, ok := a.rules.resolveControl(provider, item.ControlRef)
	if !ok {
		return id.RequirementID{}, fmt.Sprintf("assessment %d: unmapped control ref %q", i, item.ControlRef), nil
	}
	return reqID, "", nil
}

func (a *Adapter) normalizeStatus(provider string, i int, raw string) (id.FulfillmentStatus, error) {
	if raw == "" {
		return "", dErrors.Newf(dErrors.CodeMalformedPayload, "assessment %d: status is required", i)
	}
	if status, ok := a.rules.normalizeStatus(provider, raw); ok {
		return status, nil
	}
	status, err := id.ParseFulfillmentStatus(strings.ToLower(raw))
	if err != nil {
		return "", dErrors.Newf(dErrors.CodeMalformedPayload, "assessment %d: unknown status %q", i, raw)
	}
	return status, nil
}

func normalizeConfidence(i int, raw string) (id.ConfidenceLevel, error) {
	if raw == "" {
		return id.ConfidenceMedium, nil
	}
	confidence, err := id.ParseConfidenceLevel(strings.ToLower(raw))
	if err != nil {
		return "", dErrors.Newf(dErrors.CodeMalformedPayload, "assessment %d: unknown confidence %q", i, raw)
	}
	return confidence, nil
}
