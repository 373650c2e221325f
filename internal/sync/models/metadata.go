// Package models defines the sync metadata tracked per provider-synced
// application and its state machine.
package models

import (
	"time"

	id "attest/pkg/domain"
	dErrors "attest/pkg/domain-errors"
)

// SyncStatus is the outcome state of an application's sync machine.
type SyncStatus string

const (
	// SyncPending - armed for the next attempt, or one is in flight.
	SyncPending SyncStatus = "pending"
	// SyncSynced - the last attempt landed findings (possibly with
	// per-finding failures).
	SyncSynced SyncStatus = "synced"
	// SyncError - the last attempt produced nothing usable.
	SyncError SyncStatus = "error"
)

var validSyncStatuses = map[SyncStatus]bool{
	SyncPending: true,
	SyncSynced:  true,
	SyncError:   true,
}

func (s SyncStatus) IsValid() bool {
	return validSyncStatuses[s]
}

func (s SyncStatus) String() string {
	return string(s)
}

// validSyncTransitions encodes the machine: outcome states are only ever set
// on an in-flight attempt, so they must pass through pending first. pending
// is initial; there is no terminal state.
var validSyncTransitions = map[SyncStatus]map[SyncStatus]bool{
	SyncPending: {SyncPending: true, SyncSynced: true, SyncError: true},
	SyncSynced:  {SyncPending: true},
	SyncError:   {SyncPending: true},
}

// CanTransitionTo reports whether the machine allows moving to target.
func (s SyncStatus) CanTransitionTo(target SyncStatus) bool {
	return validSyncTransitions[s][target]
}

// Frequency is the scheduling cadence for provider syncs.
type Frequency string

const (
	FrequencyHourly Frequency = "hourly"
	FrequencyDaily  Frequency = "daily"
	FrequencyWeekly Frequency = "weekly"
)

// DefaultFrequency applies when an application is registered without an
// explicit cadence.
const DefaultFrequency = FrequencyDaily

var validFrequencies = map[Frequency]bool{
	FrequencyHourly: true,
	FrequencyDaily:  true,
	FrequencyWeekly: true,
}

func (f Frequency) IsValid() bool {
	return validFrequencies[f]
}

func (f Frequency) String() string {
	return string(f)
}

// ParseFrequency constructs a Frequency from external input.
func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(s)
	if !f.IsValid() {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "invalid sync frequency: %q", s)
	}
	return f, nil
}

// Metadata is the per-application sync state. One row per application,
// created at registration and deleted with it.
//
// Invariants:
//   - LastSuccessfulSync is never after LastSyncAttempt
//   - Status transitions follow SyncStatus.CanTransitionTo
//   - Status == error implies Errors gained an entry on that attempt
//   - Errors is ordered most recent last and capped; oldest entries are
//     dropped first
//
// InFlight mirrors the lease for observability. The lease itself is the
// arbiter of at-most-one-sync: a crashed holder leaves InFlight true until
// the lease expires and the next attempt rearms the machine.
type Metadata struct {
	ApplicationID      id.ApplicationID `json:"application_id"`
	Status             SyncStatus       `json:"status"`
	Frequency          Frequency        `json:"frequency"`
	InFlight           bool             `json:"in_flight"`
	LastSyncAttempt    *time.Time       `json:"last_sync_attempt,omitempty"`
	LastSuccessfulSync *time.Time       `json:"last_successful_sync,omitempty"`
	Errors             []string         `json:"errors,omitempty"`
	// LeaseToken is the release token of the in-flight attempt. Persisted
	// so a completion handled by another replica can release the lease.
	LeaseToken string    `json:"-"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewMetadata constructs the initial pending state for an application.
// An empty frequency defaults to daily.
func NewMetadata(appID id.ApplicationID, frequency Frequency, now time.Time) (*Metadata, error) {
	if appID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "application id is required")
	}
	if frequency == "" {
		frequency = DefaultFrequency
	}
	if !frequency.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "sync frequency is invalid")
	}
	return &Metadata{
		ApplicationID: appID,
		Status:        SyncPending,
		Frequency:     frequency,
		UpdatedAt:     now,
	}, nil
}

// CanBegin checks whether a new attempt may start. The lease decides
// contention; this only guards the status machine.
func (m *Metadata) CanBegin() error {
	if !m.Status.CanTransitionTo(SyncPending) {
		return dErrors.New(dErrors.CodeInvariantViolation, "sync cannot restart from "+m.Status.String())
	}
	return nil
}

// ApplyBegin arms the machine for an attempt holding the given lease token.
// Call CanBegin first to validate.
func (m *Metadata) ApplyBegin(now time.Time, leaseToken string) {
	m.Status = SyncPending
	m.InFlight = true
	m.LastSyncAttempt = &now
	m.LeaseToken = leaseToken
	m.UpdatedAt = now
}

// CanFinish checks that an attempt is actually in flight. Completing or
// failing a sync that was never begun is a caller bug surfaced as a conflict.
func (m *Metadata) CanFinish() error {
	if !m.InFlight {
		return dErrors.New(dErrors.CodeInvariantViolation, "no sync in flight")
	}
	return nil
}

// ApplyResult records an attempt's outcome. Any landed finding makes the
// attempt a success; per-finding failures are appended without flipping the
// status. An attempt where nothing landed and something failed goes to error.
// Call CanFinish first to validate.
func (m *Metadata) ApplyResult(now time.Time, applied int, failures []string, maxErrors int) {
	m.InFlight = false
	m.LeaseToken = ""
	m.UpdatedAt = now
	m.appendErrors(failures, maxErrors)

	if len(failures) > 0 && applied == 0 {
		m.Status = SyncError
		return
	}
	m.Status = SyncSynced
	// Success is stamped with the attempt's begin time so the pair orders
	// attempts rather than wall-clock completion.
	success := now
	if m.LastSyncAttempt != nil {
		success = *m.LastSyncAttempt
	}
	m.LastSuccessfulSync = &success
}

// ApplyFailure records an attempt that never produced findings
// (unreachable provider, malformed payload).
// Call CanFinish first to validate.
func (m *Metadata) ApplyFailure(now time.Time, msg string, maxErrors int) {
	m.InFlight = false
	m.LeaseToken = ""
	m.Status = SyncError
	m.UpdatedAt = now
	m.appendErrors([]string{msg}, maxErrors)
}

// ApplyReset rearms the machine after a switch to provider-synced mode so
// the next scheduled sync runs.
func (m *Metadata) ApplyReset(now time.Time) {
	m.Status = SyncPending
	m.InFlight = false
	m.LeaseToken = ""
	m.UpdatedAt = now
}

// appendErrors keeps the log ordered most recent last, dropping the oldest
// entries beyond max. A non-positive max disables the cap.
func (m *Metadata) appendErrors(msgs []string, max int) {
	m.Errors = append(m.Errors, msgs...)
	if max > 0 && len(m.Errors) > max {
		m.Errors = m.Errors[len(m.Errors)-max:]
	}
}

// Validate checks structural invariants. Stores call it before persisting.
func (m *Metadata) Validate() error {
	if m.ApplicationID.IsNil() {
		return dErrors.New(dErrors.CodeInvariantViolation, "application id is required")
	}
	if !m.Status.IsValid() {
		return dErrors.New(dErrors.CodeInvariantViolation, "sync status is invalid")
	}
	if !m.Frequency.IsValid() {
		return dErrors.New(dErrors.CodeInvariantViolation, "sync frequency is invalid")
	}
	if m.LastSuccessfulSync != nil {
		if m.LastSyncAttempt == nil || m.LastSuccessfulSync.After(*m.LastSyncAttempt) {
			return dErrors.New(dErrors.CodeInvariantViolation, "successful sync cannot be after the last attempt")
		}
	}
	return nil
}
