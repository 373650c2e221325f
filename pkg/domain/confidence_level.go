package domain

import dErrors "attest/pkg/domain-errors"

// ConfidenceLevel expresses how reliable an automated finding is considered.
type ConfidenceLevel string

const (
	ConfidenceLow    ConfidenceLevel = "low"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceHigh   ConfidenceLevel = "high"
)

var validConfidenceLevels = map[ConfidenceLevel]bool{
	ConfidenceLow:    true,
	ConfidenceMedium: true,
	ConfidenceHigh:   true,
}

// ParseConfidenceLevel constructs a ConfidenceLevel from external input.
func ParseConfidenceLevel(s string) (ConfidenceLevel, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "confidence level cannot be empty")
	}
	c := ConfidenceLevel(s)
	if !c.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid confidence level")
	}
	return c, nil
}

func (c ConfidenceLevel) IsValid() bool {
	return validConfidenceLevels[c]
}

func (c ConfidenceLevel) String() string {
	return string(c)
}
