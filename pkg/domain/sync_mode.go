package domain

import dErrors "attest/pkg/domain-errors"

// SyncMode controls whether an application accepts automated findings.
//
// Invariant: findings are only reconciled while the application is in
// SyncModeProvider. Switching to SyncModeManual freezes automated values in
// place; it never rewrites them.
type SyncMode string

const (
	// SyncModeManual means all fulfillment values are human-maintained.
	SyncModeManual SyncMode = "manual"

	// SyncModeProvider means a cloud provider integration feeds findings
	// through the sync pipeline.
	SyncModeProvider SyncMode = "provider-synced"
)

var validSyncModes = map[SyncMode]bool{
	SyncModeManual:   true,
	SyncModeProvider: true,
}

// ParseSyncMode constructs a SyncMode from external input.
func ParseSyncMode(s string) (SyncMode, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "sync mode cannot be empty")
	}
	m := SyncMode(s)
	if !m.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid sync mode")
	}
	return m, nil
}

func (m SyncMode) IsValid() bool {
	return validSyncModes[m]
}

func (m SyncMode) String() string {
	return string(m)
}
