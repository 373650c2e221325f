// Package models defines the fulfillment aggregate and the inputs that
// mutate it: automated findings from providers and manual edits from humans.
package models

import (
	"strings"
	"time"

	id "attest/pkg/domain"
	dErrors "attest/pkg/domain-errors"
)

// SystemActor is the provenance identity recorded on automated writes.
const SystemActor = "system:sync"

// ReconcileOutcome names what applying an automated finding did to a record.
type ReconcileOutcome string

const (
	// OutcomeCreated - no record existed, one was created from the finding.
	OutcomeCreated ReconcileOutcome = "created"
	// OutcomeApplied - the finding replaced the authoritative fields.
	OutcomeApplied ReconcileOutcome = "applied"
	// OutcomeSuppressed - a manual override held; only the shadow was refreshed.
	OutcomeSuppressed ReconcileOutcome = "suppressed"
)

// AutomatedAnswer is the latest automated opinion for one requirement. While a
// manual override is active it acts as the shadow the override is diffed
// against; otherwise Status mirrors the authoritative Fulfillment.Status.
type AutomatedAnswer struct {
	Status     id.FulfillmentStatus `json:"status"`
	Confidence id.ConfidenceLevel   `json:"confidence"`
	Source     string               `json:"source"`
	ObservedAt time.Time            `json:"observed_at"`
}

// Override marks that a human superseded the automated answer. Its presence is
// the single source of truth for "manually overridden".
type Override struct {
	By string    `json:"by"`
	At time.Time `json:"at"`
}

// Fulfillment tracks how one application satisfies one requirement. Status,
// Evidence and Justification are always the authoritative current values,
// whoever wrote them.
//
// Invariants:
//   - Override non-nil implies Automated non-nil (only automation can be
//     overridden)
//   - Override nil and Automated non-nil implies Status == Automated.Status
//   - CreatedAt is immutable after construction
//   - Records are never deleted by reconciliation; application
//     deregistration is the only deletion path
//
// # Shadow Refresh Invariant
//
// While an override is active, incoming findings never touch Status,
// Evidence or Justification. They refresh Automated in place, so the
// override is always diffed against the latest automated opinion rather
// than the one it originally displaced.
type Fulfillment struct {
	ApplicationID    id.ApplicationID     `json:"application_id"`
	RequirementID    id.RequirementID     `json:"requirement_id"`
	Status           id.FulfillmentStatus `json:"status"`
	Evidence         string               `json:"evidence,omitempty"`
	Justification    string               `json:"justification,omitempty"`
	Automated        *AutomatedAnswer     `json:"-"`
	Override         *Override            `json:"-"`
	ResponsibleParty string               `json:"responsible_party,omitempty"`
	LastModifiedBy   string               `json:"last_modified_by"`
	LastModifiedAt   time.Time            `json:"last_modified_at"`
	LastAssessedAt   time.Time            `json:"last_assessed_at"`
	CreatedAt        time.Time            `json:"created_at"`
	Version          int64                `json:"-"`
}

// IsAutoAnswered reports whether the authoritative status is automation's
// current opinion.
func (f *Fulfillment) IsAutoAnswered() bool {
	return f.Override == nil && f.Automated != nil
}

// IsManualOverride reports whether a human superseded automation.
func (f *Fulfillment) IsManualOverride() bool {
	return f.Override != nil
}

// AutoFinding is one normalized automated assessment produced by the ingest
// adapter.
type AutoFinding struct {
	RequirementID id.RequirementID
	Status        id.FulfillmentStatus
	Confidence    id.ConfidenceLevel
	Evidence      string
	Source        string
	ObservedAt    time.Time
}

// Validate checks the finding carries everything reconciliation needs.
func (af AutoFinding) Validate() error {
	if af.RequirementID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "finding requirement id is required")
	}
	if !af.Status.IsValid() {
		return dErrors.New(dErrors.CodeInvalidInput, "finding status is invalid")
	}
	if !af.Confidence.IsValid() {
		return dErrors.New(dErrors.CodeInvalidInput, "finding confidence is invalid")
	}
	if strings.TrimSpace(af.Source) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "finding source is required")
	}
	if af.ObservedAt.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "finding observation time is required")
	}
	return nil
}

func (af AutoFinding) answer() AutomatedAnswer {
	return AutomatedAnswer{
		Status:     af.Status,
		Confidence: af.Confidence,
		Source:     af.Source,
		ObservedAt: af.ObservedAt,
	}
}

// ManualEdit is a human assessment. It replaces the human-owned fields
// wholesale; an empty Evidence or Justification clears the stored value.
type ManualEdit struct {
	Status           id.FulfillmentStatus
	Evidence         string
	Justification    string
	ResponsibleParty string
	Editor           string
}

// Validate checks the edit is applicable.
func (e ManualEdit) Validate() error {
	if !e.Status.IsValid() {
		return dErrors.New(dErrors.CodeInvalidInput, "edit status is invalid")
	}
	if strings.TrimSpace(e.Editor) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "edit requires an acting principal")
	}
	return nil
}

// NewFromFinding creates the record for a (application, requirement) pair that
// automation assessed first.
func NewFromFinding(appID id.ApplicationID, finding AutoFinding, now time.Time) (*Fulfillment, error) {
	if appID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "application id is required")
	}
	if err := finding.Validate(); err != nil {
		return nil, err
	}
	answer := finding.answer()
	return &Fulfillment{
		ApplicationID:  appID,
		RequirementID:  finding.RequirementID,
		Status:         finding.Status,
		Evidence:       finding.Evidence,
		Automated:      &answer,
		LastModifiedBy: SystemActor,
		LastModifiedAt: now,
		LastAssessedAt: finding.ObservedAt,
		CreatedAt:      now,
		Version:        1,
	}, nil
}

// NewFromManualEdit creates the record for a pair a human assessed before
// automation ever reported. No override is recorded: there is no automated
// answer to supersede.
func NewFromManualEdit(appID id.ApplicationID, reqID id.RequirementID, edit ManualEdit, now time.Time) (*Fulfillment, error) {
	if appID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "application id is required")
	}
	if reqID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "requirement id is required")
	}
	if err := edit.Validate(); err != nil {
		return nil, err
	}
	return &Fulfillment{
		ApplicationID:    appID,
		RequirementID:    reqID,
		Status:           edit.Status,
		Evidence:         edit.Evidence,
		Justification:    edit.Justification,
		ResponsibleParty: edit.ResponsibleParty,
		LastModifiedBy:   edit.Editor,
		LastModifiedAt:   now,
		CreatedAt:        now,
		Version:          1,
	}, nil
}

// ApplyFinding reconciles an automated finding into an existing record.
// With an active override only the shadow is refreshed (suppressed);
// otherwise the finding fully replaces the authoritative fields (applied).
// Call finding.Validate first; the mode gate is the caller's job.
func (f *Fulfillment) ApplyFinding(finding AutoFinding, now time.Time) ReconcileOutcome {
	answer := finding.answer()
	f.Automated = &answer
	f.LastAssessedAt = finding.ObservedAt

	if f.Override != nil {
		return OutcomeSuppressed
	}

	f.Status = finding.Status
	f.Evidence = finding.Evidence
	f.Justification = ""
	f.LastModifiedBy = SystemActor
	f.LastModifiedAt = now
	return OutcomeApplied
}

// ApplyManualEdit applies a human assessment. Editing an auto-answered record
// raises an override; the pre-edit automated status needs no separate capture
// because Automated already holds it. Editing an overridden record updates
// fields and provenance only.
// Call edit.Validate first.
func (f *Fulfillment) ApplyManualEdit(edit ManualEdit, now time.Time) {
	if f.Override == nil && f.Automated != nil {
		f.Override = &Override{By: edit.Editor, At: now}
	}
	f.Status = edit.Status
	f.Evidence = edit.Evidence
	f.Justification = edit.Justification
	f.ResponsibleParty = edit.ResponsibleParty
	f.LastModifiedBy = edit.Editor
	f.LastModifiedAt = now
}

// CanRevert checks whether the record can return to its automated answer.
// Use with ApplyRevert in Execute callbacks.
func (f *Fulfillment) CanRevert() error {
	if f.Override == nil {
		return dErrors.New(dErrors.CodeInvariantViolation, "no manual override to revert")
	}
	if f.Automated == nil {
		return dErrors.New(dErrors.CodeInvariantViolation, "no automated answer on record")
	}
	return nil
}

// ApplyRevert restores Status from the automated shadow and clears the
// override. This is a snapshot restore of the last reported automated
// opinion, not a provider re-fetch.
// Call CanRevert first to validate.
func (f *Fulfillment) ApplyRevert(actor string, now time.Time) {
	f.Status = f.Automated.Status
	f.Override = nil
	f.LastModifiedBy = actor
	f.LastModifiedAt = now
}

// Revert validates and applies the revert in one call.
// Prefer CanRevert + ApplyRevert for Execute callback pattern.
func (f *Fulfillment) Revert(actor string, now time.Time) error {
	if err := f.CanRevert(); err != nil {
		return err
	}
	f.ApplyRevert(actor, now)
	return nil
}

// Validate checks structural invariants. Stores call it before persisting.
func (f *Fulfillment) Validate() error {
	if f.ApplicationID.IsNil() {
		return dErrors.New(dErrors.CodeInvariantViolation, "application id is required")
	}
	if f.RequirementID.IsNil() {
		return dErrors.New(dErrors.CodeInvariantViolation, "requirement id is required")
	}
	if !f.Status.IsValid() {
		return dErrors.New(dErrors.CodeInvariantViolation, "status is invalid")
	}
	if f.Override != nil && f.Automated == nil {
		return dErrors.New(dErrors.CodeInvariantViolation, "override without an automated answer")
	}
	if f.IsAutoAnswered() && f.Status != f.Automated.Status {
		return dErrors.New(dErrors.CodeInvariantViolation, "auto-answered status must mirror the automated answer")
	}
	return nil
}
