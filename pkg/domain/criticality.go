package domain

import dErrors "attest/pkg/domain-errors"

// Criticality ranks how important an application is to the business.
// It is reporting metadata; it does not affect reconciliation or scoring.
type Criticality string

const (
	CriticalityLow      Criticality = "low"
	CriticalityMedium   Criticality = "medium"
	CriticalityHigh     Criticality = "high"
	CriticalityCritical Criticality = "critical"
)

var validCriticalities = map[Criticality]bool{
	CriticalityLow:      true,
	CriticalityMedium:   true,
	CriticalityHigh:     true,
	CriticalityCritical: true,
}

// ParseCriticality constructs a Criticality from external input.
func ParseCriticality(s string) (Criticality, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "criticality cannot be empty")
	}
	c := Criticality(s)
	if !c.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid criticality")
	}
	return c, nil
}

func (c Criticality) IsValid() bool {
	return validCriticalities[c]
}

func (c Criticality) String() string {
	return string(c)
}
