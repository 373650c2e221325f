// Package ingest normalizes provider payloads into automated findings.
package ingest

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	id "attest/pkg/domain"
)

// ProviderRules translate one provider's native vocabulary.
type ProviderRules struct {
	// StatusMap translates provider-native states (e.g. Azure's
	// Healthy/Unhealthy/NotApplicable) to fulfillment statuses.
	StatusMap map[string]string `yaml:"status_map"`
	// Controls maps provider-native control references to catalog
	// requirement IDs.
	Controls map[string]string `yaml:"controls"`
}

// Ruleset is the per-provider mapping configuration loaded at startup.
// Assessments that reference requirements directly work without one.
type Ruleset struct {
	Providers map[string]ProviderRules `yaml:"providers"`
}

// LoadRuleset reads and validates a mapping ruleset from a YAML file.
func LoadRuleset(path string) (*Ruleset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading ingest ruleset: %w", err)
	}
	return ParseRuleset(data)
}

// ParseRuleset parses a YAML ruleset and fails fast on targets that are not
// catalog IDs or statuses. A broken mapping should stop startup, not
// surface sync by sync.
func ParseRuleset(data []byte) (*Ruleset, error) {
	var rs Ruleset
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("parsing ingest ruleset: %w", err)
	}
	for provider, rules := range rs.Providers {
		for ref, target := range rules.Controls {
			if _, err := id.ParseRequirementID(target); err != nil {
				return nil, fmt.Errorf("ingest ruleset: provider %q control %q maps to invalid requirement id %q", provider, ref, target)
			}
		}
		for raw, target := range rules.StatusMap {
			if _, err := id.ParseFulfillmentStatus(target); err != nil {
				return nil, fmt.Errorf("ingest ruleset: provider %q status %q maps to invalid status %q", provider, raw, target)
			}
		}
	}
	return &rs, nil
}

// resolveControl maps a provider-native control reference to a requirement
// ID. The false return covers both an unconfigured provider and an unmapped
// reference.
func (r *Ruleset) resolveControl(provider, controlRef string) (id.RequirementID, bool) {
	if r == nil {
		return id.RequirementID{}, false
	}
	target, ok := r.Providers[provider].Controls[controlRef]
	if !ok {
		return id.RequirementID{}, false
	}
	reqID, err := id.ParseRequirementID(target)
	if err != nil {
		return id.RequirementID{}, false
	}
	return reqID, true
}

// normalizeStatus translates a provider-native status. Lookup is exact
// first, then case-insensitive.
func (r *Ruleset) normalizeStatus(provider, raw string) (id.FulfillmentStatus, bool) {
	if r == nil {
		return "", false
	}
	statusMap := r.Providers[provider].StatusMap
	if target, ok := statusMap[raw]; ok {
		status, err := id.ParseFulfillmentStatus(target)
		return status, err == nil
	}
	for key, target := range statusMap {
		if strings.EqualFold(key, raw) {
			status, err := id.ParseFulfillmentStatus(target)
			return status, err == nil
		}
	}
	return "", false
}
