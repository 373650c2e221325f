// Package service reconciles automated provider findings with human
// overrides on per-(application, requirement) fulfillment records.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	application "attest/internal/application/models"
	fulfillmentmetrics "attest/internal/fulfillment/metrics"
	"attest/internal/fulfillment/models"
	id "attest/pkg/domain"
	dErrors "attest/pkg/domain-errors"
	"attest/pkg/platform/audit"
	"attest/pkg/platform/sentinel"
	"attest/pkg/requestcontext"
)

// Store is the fulfillment persistence surface. Execute serializes writers
// per (application, requirement) pair; the callback receives the current
// record (nil when the pair has none) and returns the record to persist.
type Store interface {
	Execute(ctx context.Context, appID id.ApplicationID, reqID id.RequirementID, fn func(current *models.Fulfillment) (*models.Fulfillment, error)) (*models.Fulfillment, error)
	Get(ctx context.Context, appID id.ApplicationID, reqID id.RequirementID) (*models.Fulfillment, error)
	ListByApplication(ctx context.Context, appID id.ApplicationID) ([]*models.Fulfillment, error)
	DeleteByApplication(ctx context.Context, appID id.ApplicationID) (int, error)
}

// ApplicationReader resolves applications for the sync-mode gate and
// existence checks.
type ApplicationReader interface {
	FindByID(ctx context.Context, appID id.ApplicationID) (*application.Application, error)
}

// AuditPublisher records reconciliation decisions on the audit trail.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service owns all writes to fulfillment records: automated findings,
// manual edits, and override reverts.
type Service struct {
	store     Store
	apps      ApplicationReader
	publisher AuditPublisher
	metrics   *fulfillmentmetrics.Metrics
	logger    *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.publisher = publisher
	}
}

func WithMetrics(m *fulfillmentmetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New constructs a Service.
func New(store Store, apps ApplicationReader, opts ...Option) *Service {
	s := &Service{store: store, apps: apps}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Reconcile applies one automated finding to the (application, requirement)
// record. The outcome depends on the record's state: no record creates one,
// an auto-answered record adopts the finding, a manual override suppresses
// it and only the automated shadow is refreshed.
//
// The sync-mode gate runs inside the store's critical section so a finding
// racing a switch to manual mode cannot slip through after the gate.
func (s *Service) Reconcile(ctx context.Context, appID id.ApplicationID, finding models.AutoFinding) (*models.Fulfillment, error) {
	start := time.Now()
	ctx, span := otel.Tracer("fulfillment").Start(ctx, "fulfillment.Reconcile",
		trace.WithAttributes(
			attribute.String("application_id", appID.String()),
			attribute.String("requirement_id", finding.RequirementID.String()),
			attribute.String("source", finding.Source),
		))
	defer span.End()

	if err := requireApplicationID(appID); err != nil {
		return nil, err
	}
	if err := finding.Validate(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid finding")
		return nil, err
	}

	now := requestcontext.Now(ctx)
	var outcome models.ReconcileOutcome
	record, err := s.store.Execute(ctx, appID, finding.RequirementID, func(current *models.Fulfillment) (*models.Fulfillment, error) {
		app, err := s.apps.FindByID(ctx, appID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil, dErrors.New(dErrors.CodeNotFound, "application not found")
			}
			return nil, err
		}
		if !app.IsProviderSynced() {
			return nil, dErrors.New(dErrors.CodeSyncModeMismatch, "application is in manual mode")
		}

		if current == nil {
			outcome = models.OutcomeCreated
			return models.NewFromFinding(appID, finding, now)
		}
		outcome = current.ApplyFinding(finding, now)
		return current, nil
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeSyncModeMismatch) {
			s.auditFinding(ctx, audit.EventFindingRejected, appID, finding, "rejected", "application is in manual mode")
			if s.metrics != nil {
				s.metrics.IncrementReconciled("rejected")
			}
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "reconcile failed")
		return nil, wrapFulfillmentErr(err)
	}

	s.auditFinding(ctx, outcomeEvent(outcome), appID, finding, string(outcome), "")
	if s.metrics != nil {
		s.metrics.IncrementReconciled(string(outcome))
		s.metrics.ObserveReconcile(start)
	}
	span.SetAttributes(attribute.String("outcome", string(outcome)))
	s.logger.Debug("finding reconciled",
		slog.String("application_id", appID.String()),
		slog.String("requirement_id", finding.RequirementID.String()),
		slog.String("outcome", string(outcome)))
	return record, nil
}

// ApplyManualEdit sets or replaces the manual override on a record. Manual
// edits are accepted in both sync modes; on provider-synced applications the
// override shields the record from subsequent findings until reverted.
// An edit without an explicit editor takes the acting principal from the
// request context.
func (s *Service) ApplyManualEdit(ctx context.Context, appID id.ApplicationID, reqID id.RequirementID, edit models.ManualEdit) (*models.Fulfillment, error) {
	ctx, span := otel.Tracer("fulfillment").Start(ctx, "fulfillment.ApplyManualEdit",
		trace.WithAttributes(
			attribute.String("application_id", appID.String()),
			attribute.String("requirement_id", reqID.String()),
		))
	defer span.End()

	if err := requireIDs(appID, reqID); err != nil {
		return nil, err
	}
	if edit.Editor == "" {
		edit.Editor = requestcontext.Actor(ctx)
	}
	if err := edit.Validate(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid edit")
		return nil, err
	}

	if _, err := s.apps.FindByID(ctx, appID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "application not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve application")
	}

	now := requestcontext.Now(ctx)
	record, err := s.store.Execute(ctx, appID, reqID, func(current *models.Fulfillment) (*models.Fulfillment, error) {
		if current == nil {
			return models.NewFromManualEdit(appID, reqID, edit, now)
		}
		current.ApplyManualEdit(edit, now)
		return current, nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "edit failed")
		return nil, wrapFulfillmentErr(err)
	}

	if err := s.auditDecision(ctx, audit.EventManualEditApplied, appID, reqID, edit.Editor, string(edit.Status), edit.Justification); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "audit write failed")
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.IncrementManualEdit()
	}
	s.logger.Info("manual edit applied",
		slog.String("application_id", appID.String()),
		slog.String("requirement_id", reqID.String()),
		slog.String("editor", edit.Editor),
		slog.String("status", string(edit.Status)))
	return record, nil
}

// RevertToAutomated drops the manual override and restores the status from
// the automated shadow. This is a snapshot restore of the last reported
// automated answer, not a provider re-fetch.
func (s *Service) RevertToAutomated(ctx context.Context, appID id.ApplicationID, reqID id.RequirementID) (*models.Fulfillment, error) {
	ctx, span := otel.Tracer("fulfillment").Start(ctx, "fulfillment.RevertToAutomated",
		trace.WithAttributes(
			attribute.String("application_id", appID.String()),
			attribute.String("requirement_id", reqID.String()),
		))
	defer span.End()

	if err := requireIDs(appID, reqID); err != nil {
		return nil, err
	}
	actor := requestcontext.Actor(ctx)
	if actor == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "revert requires an acting principal")
	}

	now := requestcontext.Now(ctx)
	record, err := s.store.Execute(ctx, appID, reqID, func(current *models.Fulfillment) (*models.Fulfillment, error) {
		if current == nil {
			return nil, dErrors.New(dErrors.CodeNotFound, "fulfillment record not found")
		}
		if err := current.CanRevert(); err != nil {
			if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
				return nil, dErrors.New(dErrors.CodeConflict, dErrors.MessageOf(err))
			}
			return nil, err
		}
		current.ApplyRevert(actor, now)
		return current, nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "revert failed")
		return nil, wrapFulfillmentErr(err)
	}

	if err := s.auditDecision(ctx, audit.EventOverrideReverted, appID, reqID, actor, string(record.Status), ""); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "audit write failed")
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.IncrementRevert()
	}
	s.logger.Info("manual override reverted",
		slog.String("application_id", appID.String()),
		slog.String("requirement_id", reqID.String()),
		slog.String("actor", actor),
		slog.String("restored_status", string(record.Status)))
	return record, nil
}

// Get returns one fulfillment record.
func (s *Service) Get(ctx context.Context, appID id.ApplicationID, reqID id.RequirementID) (*models.Fulfillment, error) {
	if err := requireIDs(appID, reqID); err != nil {
		return nil, err
	}
	record, err := s.store.Get(ctx, appID, reqID)
	if err != nil {
		return nil, wrapFulfillmentErr(err)
	}
	return record, nil
}

// ListByApplication returns the application's fulfillment records ordered by
// requirement ID.
func (s *Service) ListByApplication(ctx context.Context, appID id.ApplicationID) ([]*models.Fulfillment, error) {
	if err := requireApplicationID(appID); err != nil {
		return nil, err
	}
	if _, err := s.apps.FindByID(ctx, appID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "application not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve application")
	}
	records, err := s.store.ListByApplication(ctx, appID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list fulfillments")
	}
	return records, nil
}

// DeleteByApplication purges the application's fulfillment records and
// returns how many were removed. Deregistration is the only caller.
func (s *Service) DeleteByApplication(ctx context.Context, appID id.ApplicationID) (int, error) {
	if err := requireApplicationID(appID); err != nil {
		return 0, err
	}
	purged, err := s.store.DeleteByApplication(ctx, appID)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete fulfillments")
	}
	return purged, nil
}

// auditFinding records an automated reconciliation outcome. Finding events
// are operational: emission failures are logged and swallowed so a broken
// audit sink cannot stall a sync attempt mid-batch.
func (s *Service) auditFinding(ctx context.Context, action audit.AuditEvent, appID id.ApplicationID, finding models.AutoFinding, decision, reason string) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.Emit(ctx, audit.Event{
		ApplicationID: appID,
		RequirementID: finding.RequirementID,
		Action:        string(action),
		Actor:         models.SystemActor,
		Source:        finding.Source,
		Decision:      decision,
		Reason:        reason,
	})
	if err != nil {
		s.logger.Error("failed to record finding audit event",
			slog.String("application_id", appID.String()),
			slog.String("action", string(action)),
			slog.String("error", err.Error()))
	}
}

// auditDecision records a human decision. These are compliance events, so
// emission is fail-closed: an audit failure fails the operation.
func (s *Service) auditDecision(ctx context.Context, action audit.AuditEvent, appID id.ApplicationID, reqID id.RequirementID, actor, decision, reason string) error {
	if s.publisher == nil {
		return nil
	}
	err := s.publisher.Emit(ctx, audit.Event{
		ApplicationID: appID,
		RequirementID: reqID,
		Action:        string(action),
		Actor:         actor,
		Decision:      decision,
		Reason:        reason,
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record audit event")
	}
	return nil
}

func outcomeEvent(outcome models.ReconcileOutcome) audit.AuditEvent {
	switch outcome {
	case models.OutcomeCreated:
		return audit.EventFulfillmentCreated
	case models.OutcomeSuppressed:
		return audit.EventFindingSuppressed
	default:
		return audit.EventFindingApplied
	}
}

func requireApplicationID(appID id.ApplicationID) error {
	if appID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "application id is required")
	}
	return nil
}

func requireIDs(appID id.ApplicationID, reqID id.RequirementID) error {
	if err := requireApplicationID(appID); err != nil {
		return err
	}
	if reqID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "requirement id is required")
	}
	return nil
}

func wrapFulfillmentErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "fulfillment record not found")
	case dErrors.HasCode(err, dErrors.CodeNotFound),
		dErrors.HasCode(err, dErrors.CodeConflict),
		dErrors.HasCode(err, dErrors.CodeSyncModeMismatch),
		dErrors.HasCode(err, dErrors.CodeInvalidInput),
		dErrors.HasCode(err, dErrors.CodeValidation),
		dErrors.HasCode(err, dErrors.CodeInvariantViolation):
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "fulfillment operation failed")
	}
}
