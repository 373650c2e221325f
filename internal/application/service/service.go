// Package service orchestrates the application registry: registration,
// sync-mode administration, and deregistration with its cascades.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	appmetrics "attest/internal/application/metrics"
	"attest/internal/application/models"
	id "attest/pkg/domain"
	dErrors "attest/pkg/domain-errors"
	"attest/pkg/platform/audit"
	"attest/pkg/platform/sentinel"
	"attest/pkg/requestcontext"
)

// ApplicationStore is the registry persistence surface.
type ApplicationStore interface {
	CreateIfNameAvailable(ctx context.Context, app *models.Application) error
	FindByID(ctx context.Context, appID id.ApplicationID) (*models.Application, error)
	List(ctx context.Context) ([]*models.Application, error)
	Execute(ctx context.Context, appID id.ApplicationID, validate func(*models.Application) error, mutate func(*models.Application)) (*models.Application, error)
	Delete(ctx context.Context, appID id.ApplicationID) error
}

// CatalogVerifier checks requirement IDs against the catalog.
type CatalogVerifier interface {
	VerifyRequirements(ctx context.Context, ids []id.RequirementID) error
}

// SyncStateStore is the slice of the sync store the registry drives:
// metadata lifecycle tied to the application's own lifecycle.
type SyncStateStore interface {
	InitMetadata(ctx context.Context, appID id.ApplicationID) error
	ResetToPending(ctx context.Context, appID id.ApplicationID) error
	DeleteByApplication(ctx context.Context, appID id.ApplicationID) error
}

// FulfillmentPurger removes an application's fulfillment records on
// deregistration. Deregistration is the only deletion path for fulfillments.
type FulfillmentPurger interface {
	DeleteByApplication(ctx context.Context, appID id.ApplicationID) (int, error)
}

// AuditPublisher records registry decisions on the audit trail.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service orchestrates application lifecycle management.
type Service struct {
	apps         ApplicationStore
	catalog      CatalogVerifier
	syncState    SyncStateStore
	fulfillments FulfillmentPurger
	publisher    AuditPublisher
	metrics      *appmetrics.Metrics
	logger       *slog.Logger
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

func WithMetrics(m *appmetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithSyncState wires the sync metadata lifecycle into registration,
// mode changes, and deregistration.
func WithSyncState(store SyncStateStore) Option {
	return func(s *Service) {
		s.syncState = store
	}
}

// WithFulfillmentPurger wires the deregistration cascade.
func WithFulfillmentPurger(purger FulfillmentPurger) Option {
	return func(s *Service) {
		s.fulfillments = purger
	}
}

// New constructs a Service.
func New(apps ApplicationStore, catalog CatalogVerifier, opts ...Option) *Service {
	s := &Service{apps: apps, catalog: catalog}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Register creates an application with its requirement associations. Every
// requirement must exist in the catalog. Names are unique case-insensitively.
func (s *Service) Register(ctx context.Context, name string, criticality id.Criticality, mode id.SyncMode, requirementIDs []id.RequirementID) (*models.Application, error) {
	start := time.Now()

	app, err := models.NewApplication(id.ApplicationID(uuid.New()), name, criticality, mode, requirementIDs, requestcontext.Now(ctx))
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, dErrors.MessageOf(err))
		}
		return nil, err
	}

	if err := s.catalog.VerifyRequirements(ctx, app.RequirementIDs); err != nil {
		return nil, err
	}

	if err := s.apps.CreateIfNameAvailable(ctx, app); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "application name must be unique")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to register application")
	}

	if s.syncState != nil {
		if err := s.syncState.InitMetadata(ctx, app.ID); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to initialize sync state")
		}
	}

	if err := s.emitAudit(ctx, audit.EventApplicationRegistered, app.ID, string(app.SyncMode), ""); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncrementRegistered()
		s.metrics.ObserveRegister(start)
	}
	s.logger.Info("application registered",
		slog.String("application_id", app.ID.String()),
		slog.String("name", app.Name),
		slog.Int("requirements", len(app.RequirementIDs)))
	return app, nil
}

// Get returns one application.
func (s *Service) Get(ctx context.Context, appID id.ApplicationID) (*models.Application, error) {
	if err := requireApplicationID(appID); err != nil {
		return nil, err
	}
	app, err := s.apps.FindByID(ctx, appID)
	if err != nil {
		return nil, wrapApplicationErr(err)
	}
	return app, nil
}

// List returns all applications ordered by name.
func (s *Service) List(ctx context.Context) ([]*models.Application, error) {
	apps, err := s.apps.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list applications")
	}
	return apps, nil
}

// ChangeSyncMode switches an application between manual and provider-synced
// modes. Switching to provider-synced resets the sync state machine to
// pending so the next scheduled sync runs; switching to manual freezes
// automated writes immediately (the reconciler gate enforces it).
//
// Uses the Execute callback pattern for atomic validate-then-mutate.
func (s *Service) ChangeSyncMode(ctx context.Context, appID id.ApplicationID, target id.SyncMode) (*models.Application, error) {
	if err := requireApplicationID(appID); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	app, err := s.apps.Execute(ctx, appID,
		func(a *models.Application) error {
			if err := a.CanChangeSyncMode(target); err != nil {
				if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
					return dErrors.New(dErrors.CodeConflict, dErrors.MessageOf(err))
				}
				return err
			}
			return nil
		},
		func(a *models.Application) {
			a.ApplySyncModeChange(target, now)
		},
	)
	if err != nil {
		return nil, wrapApplicationErr(err)
	}

	if target == id.SyncModeProvider && s.syncState != nil {
		if err := s.syncState.ResetToPending(ctx, appID); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to reset sync state")
		}
	}

	if err := s.emitAudit(ctx, audit.EventSyncModeChanged, appID, string(target), ""); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncrementSyncModeChange(string(target))
	}
	return app, nil
}

// Deregister removes an application together with its fulfillments and sync
// state.
func (s *Service) Deregister(ctx context.Context, appID id.ApplicationID) error {
	if err := requireApplicationID(appID); err != nil {
		return err
	}

	app, err := s.apps.FindByID(ctx, appID)
	if err != nil {
		return wrapApplicationErr(err)
	}

	purged := 0
	if s.fulfillments != nil {
		purged, err = s.fulfillments.DeleteByApplication(ctx, appID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete fulfillments")
		}
	}
	if s.syncState != nil {
		if err := s.syncState.DeleteByApplication(ctx, appID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete sync state")
		}
	}
	if err := s.apps.Delete(ctx, appID); err != nil {
		return wrapApplicationErr(err)
	}

	if err := s.emitAudit(ctx, audit.EventApplicationDeregistered, appID, "", ""); err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.IncrementDeregistered()
	}
	s.logger.Info("application deregistered",
		slog.String("application_id", appID.String()),
		slog.String("name", app.Name),
		slog.Int("fulfillments_purged", purged))
	return nil
}

// emitAudit records a registry decision. Registry actions are human
// decisions, so emission is fail-closed: an audit failure fails the
// operation.
func (s *Service) emitAudit(ctx context.Context, action audit.AuditEvent, appID id.ApplicationID, decision, reason string) error {
	if s.publisher == nil {
		return nil
	}
	err := s.publisher.Emit(ctx, audit.Event{
		ApplicationID: appID,
		Action:        string(action),
		Actor:         requestcontext.Actor(ctx),
		Decision:      decision,
		Reason:        reason,
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record audit event")
	}
	return nil
}

func requireApplicationID(appID id.ApplicationID) error {
	if appID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "application id is required")
	}
	return nil
}

func wrapApplicationErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "application not found")
	case dErrors.HasCode(err, dErrors.CodeConflict),
		dErrors.HasCode(err, dErrors.CodeValidation),
		dErrors.HasCode(err, dErrors.CodeInvalidInput):
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "application operation failed")
	}
}
