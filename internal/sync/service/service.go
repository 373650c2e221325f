// Package service drives the sync attempt lifecycle: begin under a
// per-application lease, fan findings out to the reconciler, finish with the
// accumulated result on the state machine.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	application "attest/internal/application/models"
	fulfillment "attest/internal/fulfillment/models"
	"attest/internal/sync/ingest"
	"attest/internal/sync/lease"
	syncmetrics "attest/internal/sync/metrics"
	"attest/internal/sync/models"
	id "attest/pkg/domain"
	dErrors "attest/pkg/domain-errors"
	"attest/pkg/platform/audit"
	"attest/pkg/platform/sentinel"
	"attest/pkg/requestcontext"
)

const (
	// DefaultLeaseTTL bounds how long a crashed sync holder can block the
	// next attempt.
	DefaultLeaseTTL = 5 * time.Minute

	// DefaultApplyWorkers bounds the reconciliation fan-out per batch.
	DefaultApplyWorkers = 8

	// DefaultMaxErrors caps the per-application error log, most recent kept.
	DefaultMaxErrors = 50
)

// MetadataStore is the sync state persistence surface.
type MetadataStore interface {
	Create(ctx context.Context, m *models.Metadata) error
	FindByApplication(ctx context.Context, appID id.ApplicationID) (*models.Metadata, error)
	Execute(ctx context.Context, appID id.ApplicationID, validate func(*models.Metadata) error, mutate func(*models.Metadata)) (*models.Metadata, error)
	Delete(ctx context.Context, appID id.ApplicationID) error
}

// ApplicationReader resolves the sync-mode gate.
type ApplicationReader interface {
	FindByID(ctx context.Context, appID id.ApplicationID) (*application.Application, error)
}

// Reconciler applies one automated finding to the fulfillment ledger.
type Reconciler interface {
	Reconcile(ctx context.Context, appID id.ApplicationID, finding fulfillment.AutoFinding) (*fulfillment.Fulfillment, error)
}

// Lease grants at most one sync attempt per application at a time.
type Lease interface {
	Acquire(ctx context.Context, appID id.ApplicationID, ttl time.Duration) (string, error)
	Release(ctx context.Context, appID id.ApplicationID, token string) error
}

// Ingester normalizes raw provider payloads into findings.
type Ingester interface {
	Ingest(payload []byte) (*ingest.Result, error)
}

// AuditPublisher records sync lifecycle events on the audit trail.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service owns the per-application sync state machine.
type Service struct {
	store      MetadataStore
	apps       ApplicationReader
	reconciler Reconciler
	lease      Lease
	ingester   Ingester
	publisher  AuditPublisher
	metrics    *syncmetrics.Metrics
	logger     *slog.Logger

	leaseTTL     time.Duration
	applyWorkers int
	maxErrors    int
	frequency    models.Frequency
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

func WithMetrics(m *syncmetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithIngester enables payload-driven completion.
func WithIngester(ingester Ingester) Option {
	return func(s *Service) {
		s.ingester = ingester
	}
}

func WithLeaseTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.leaseTTL = ttl
		}
	}
}

func WithApplyWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.applyWorkers = n
		}
	}
}

func WithMaxErrors(n int) Option {
	return func(s *Service) {
		s.maxErrors = n
	}
}

// WithDefaultFrequency sets the schedule stamped on newly seeded metadata.
func WithDefaultFrequency(f models.Frequency) Option {
	return func(s *Service) {
		s.frequency = f
	}
}

// New constructs a Service.
func New(store MetadataStore, apps ApplicationReader, reconciler Reconciler, l Lease, opts ...Option) *Service {
	s := &Service{
		store:        store,
		apps:         apps,
		reconciler:   reconciler,
		lease:        l,
		leaseTTL:     DefaultLeaseTTL,
		applyWorkers: DefaultApplyWorkers,
		maxErrors:    DefaultMaxErrors,
		frequency:    models.DefaultFrequency,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// BeginSync opens a sync attempt. The lease is the concurrency arbiter: of two
// concurrent calls for the same application exactly one wins, the other gets
// sync_in_flight. Manual-mode applications reject attempts outright.
func (s *Service) BeginSync(ctx context.Context, appID id.ApplicationID) (*models.Metadata, error) {
	if err := requireApplicationID(appID); err != nil {
		return nil, err
	}

	app, err := s.apps.FindByID(ctx, appID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "application not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load application")
	}
	if !app.IsProviderSynced() {
		return nil, dErrors.New(dErrors.CodeSyncModeMismatch, "application is in manual mode")
	}

	token, err := s.lease.Acquire(ctx, appID, s.leaseTTL)
	if err != nil {
		if errors.Is(err, sentinel.ErrLeaseHeld) {
			if s.metrics != nil {
				s.metrics.IncrementLeaseContention()
			}
			return nil, dErrors.New(dErrors.CodeSyncInFlight, "a sync attempt is already in flight")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to acquire sync lease")
	}

	now := requestcontext.Now(ctx)
	m, err := s.beginAttempt(ctx, appID, token, now)
	if errors.Is(err, sentinel.ErrNotFound) {
		// Registration seeds the metadata row, but a row can be missing
		// after a partial restore. Seed it and retry once.
		if initErr := s.InitMetadata(ctx, appID); initErr != nil {
			s.releaseLease(ctx, appID, token)
			return nil, initErr
		}
		m, err = s.beginAttempt(ctx, appID, token, now)
	}
	if err != nil {
		s.releaseLease(ctx, appID, token)
		return nil, wrapSyncErr(err)
	}

	s.auditLifecycle(ctx, audit.EventSyncStarted, appID, string(models.SyncPending), "")
	if s.metrics != nil {
		s.metrics.IncrementStarted()
	}
	s.logger.Info("sync attempt started",
		slog.String("application_id", appID.String()))
	return m, nil
}

func (s *Service) beginAttempt(ctx context.Context, appID id.ApplicationID, token string, now time.Time) (*models.Metadata, error) {
	return s.store.Execute(ctx, appID,
		func(m *models.Metadata) error {
			if err := m.CanBegin(); err != nil {
				if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
					return dErrors.New(dErrors.CodeConflict, dErrors.MessageOf(err))
				}
				return err
			}
			return nil
		},
		func(m *models.Metadata) {
			m.ApplyBegin(now, token)
		},
	)
}

// CompleteSync finishes the in-flight attempt: every finding goes through the
// reconciler, then the result lands on the state machine. One bad finding does
// not abort the batch; an attempt where nothing applied is marked error.
func (s *Service) CompleteSync(ctx context.Context, appID id.ApplicationID, findings []fulfillment.AutoFinding) (*models.Metadata, error) {
	if err := requireApplicationID(appID); err != nil {
		return nil, err
	}
	return s.complete(ctx, appID, findings, nil)
}

// CompleteSyncFromPayload ingests a raw provider payload and completes the
// attempt with its findings. A malformed payload fails the attempt: the sync
// already began, so the error must land on the state machine instead of
// leaving the attempt stranded in flight.
func (s *Service) CompleteSyncFromPayload(ctx context.Context, appID id.ApplicationID, payload []byte) (*models.Metadata, error) {
	if err := requireApplicationID(appID); err != nil {
		return nil, err
	}
	if s.ingester == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "payload ingestion is not configured")
	}

	result, err := s.ingester.Ingest(payload)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeMalformedPayload) {
			if _, failErr := s.FailSync(ctx, appID, dErrors.MessageOf(err)); failErr != nil {
				s.logger.Error("failed to record malformed payload on sync state",
					slog.String("application_id", appID.String()),
					slog.String("error", failErr.Error()))
			}
		}
		return nil, err
	}
	return s.complete(ctx, appID, result.Findings, result.Skipped)
}

func (s *Service) complete(ctx context.Context, appID id.ApplicationID, findings []fulfillment.AutoFinding, skipped []string) (*models.Metadata, error) {
	// Pre-check outside the row lock so a stray completion fails fast
	// instead of reconciling findings nobody asked for.
	current, err := s.store.FindByApplication(ctx, appID)
	if err != nil {
		return nil, wrapSyncErr(err)
	}
	if err := current.CanFinish(); err != nil {
		return nil, dErrors.New(dErrors.CodeConflict, dErrors.MessageOf(err))
	}

	applied, failures := s.applyFindings(ctx, appID, findings)
	failures = append(failures, skipped...)

	now := requestcontext.Now(ctx)
	var token string
	m, err := s.store.Execute(ctx, appID,
		func(m *models.Metadata) error {
			if err := m.CanFinish(); err != nil {
				return dErrors.New(dErrors.CodeConflict, dErrors.MessageOf(err))
			}
			token = m.LeaseToken
			return nil
		},
		func(m *models.Metadata) {
			m.ApplyResult(now, applied, failures, s.maxErrors)
		},
	)
	if err != nil {
		return nil, wrapSyncErr(err)
	}
	s.releaseLease(ctx, appID, token)

	outcome := string(m.Status)
	if m.Status == models.SyncSynced && len(failures) > 0 {
		outcome = "partial"
	}
	s.auditLifecycle(ctx, audit.EventSyncCompleted, appID, outcome,
		fmt.Sprintf("applied %d/%d findings", applied, len(findings)))
	if s.metrics != nil {
		s.metrics.IncrementFinished(outcome)
		if m.LastSyncAttempt != nil {
			s.metrics.ObserveSync(*m.LastSyncAttempt)
		}
	}
	s.logger.Info("sync attempt completed",
		slog.String("application_id", appID.String()),
		slog.String("outcome", outcome),
		slog.Int("applied", applied),
		slog.Int("failed", len(failures)))
	return m, nil
}

// applyFindings fans the batch out to the reconciler. Closures collect
// failures instead of returning them: one bad finding must not cancel the
// rest of the batch.
func (s *Service) applyFindings(ctx context.Context, appID id.ApplicationID, findings []fulfillment.AutoFinding) (int, []string) {
	if len(findings) == 0 {
		return 0, nil
	}

	var (
		mu       sync.Mutex
		applied  int
		failures []string
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.applyWorkers)
	for _, finding := range findings {
		g.Go(func() error {
			if _, err := s.reconciler.Reconcile(ctx, appID, finding); err != nil {
				mu.Lock()
				failures = append(failures, fmt.Sprintf("requirement %s: %s", finding.RequirementID, dErrors.MessageOf(err)))
				mu.Unlock()
				return nil
			}
			mu.Lock()
			applied++
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return applied, failures
}

// FailSync records an attempt the caller could not complete: provider
// unreachable, credentials expired. Requires an attempt in flight.
func (s *Service) FailSync(ctx context.Context, appID id.ApplicationID, reason string) (*models.Metadata, error) {
	if err := requireApplicationID(appID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(reason) == "" {
		reason = "sync failed without a reported reason"
	}

	now := requestcontext.Now(ctx)
	var token string
	m, err := s.store.Execute(ctx, appID,
		func(m *models.Metadata) error {
			if err := m.CanFinish(); err != nil {
				return dErrors.New(dErrors.CodeConflict, dErrors.MessageOf(err))
			}
			token = m.LeaseToken
			return nil
		},
		func(m *models.Metadata) {
			m.ApplyFailure(now, reason, s.maxErrors)
		},
	)
	if err != nil {
		return nil, wrapSyncErr(err)
	}
	s.releaseLease(ctx, appID, token)

	s.auditLifecycle(ctx, audit.EventSyncFailed, appID, string(models.SyncError), reason)
	if s.metrics != nil {
		s.metrics.IncrementFinished("failed")
	}
	s.logger.Warn("sync attempt failed",
		slog.String("application_id", appID.String()),
		slog.String("reason", reason))
	return m, nil
}

// Metadata returns the sync state for one application.
func (s *Service) Metadata(ctx context.Context, appID id.ApplicationID) (*models.Metadata, error) {
	if err := requireApplicationID(appID); err != nil {
		return nil, err
	}
	m, err := s.store.FindByApplication(ctx, appID)
	if err != nil {
		return nil, wrapSyncErr(err)
	}
	return m, nil
}

// InitMetadata seeds pending sync state for a freshly registered application.
// Idempotent: an existing row is left alone.
func (s *Service) InitMetadata(ctx context.Context, appID id.ApplicationID) error {
	m, err := models.NewMetadata(appID, s.frequency, requestcontext.Now(ctx))
	if err != nil {
		return err
	}
	if err := s.store.Create(ctx, m); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrConflict):
			return nil
		case errors.Is(err, sentinel.ErrNotFound):
			return dErrors.New(dErrors.CodeNotFound, "application not found")
		default:
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to initialize sync state")
		}
	}
	return nil
}

// ResetToPending rearms the state machine after a switch to provider-synced
// mode. Missing metadata is seeded instead; a lease left by a crashed attempt
// is released so the next attempt does not wait out the TTL.
func (s *Service) ResetToPending(ctx context.Context, appID id.ApplicationID) error {
	now := requestcontext.Now(ctx)
	var token string
	_, err := s.store.Execute(ctx, appID,
		func(m *models.Metadata) error {
			token = m.LeaseToken
			return nil
		},
		func(m *models.Metadata) {
			m.ApplyReset(now)
		},
	)
	if errors.Is(err, sentinel.ErrNotFound) {
		return s.InitMetadata(ctx, appID)
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to reset sync state")
	}
	s.releaseLease(ctx, appID, token)
	return nil
}

// DeleteByApplication removes the sync state on deregistration. A missing row
// is fine.
func (s *Service) DeleteByApplication(ctx context.Context, appID id.ApplicationID) error {
	if err := s.store.Delete(ctx, appID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete sync state")
	}
	return nil
}

func (s *Service) releaseLease(ctx context.Context, appID id.ApplicationID, token string) {
	if token == "" {
		return
	}
	if err := s.lease.Release(ctx, appID, token); err != nil {
		if errors.Is(err, lease.ErrLeaseLost) {
			s.logger.Warn("sync lease expired before release",
				slog.String("application_id", appID.String()))
			return
		}
		s.logger.Error("failed to release sync lease",
			slog.String("application_id", appID.String()),
			slog.String("error", err.Error()))
	}
}

// auditLifecycle records sync lifecycle events. They are operational, not
// human decisions, so emission failures are logged and swallowed: a broken
// audit sink must not wedge the sync pipeline.
func (s *Service) auditLifecycle(ctx context.Context, action audit.AuditEvent, appID id.ApplicationID, decision, reason string) {
	if s.publisher == nil {
		return
	}
	actor := requestcontext.Actor(ctx)
	if actor == "" {
		actor = fulfillment.SystemActor
	}
	err := s.publisher.Emit(ctx, audit.Event{
		ApplicationID: appID,
		Action:        string(action),
		Actor:         actor,
		Decision:      decision,
		Reason:        reason,
	})
	if err != nil {
		s.logger.Error("failed to record sync audit event",
			slog.String("application_id", appID.String()),
			slog.String("action", string(action)),
			slog.String("error", err.Error()))
	}
}

func requireApplicationID(appID id.ApplicationID) error {
	if appID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "application id is required")
	}
	return nil
}

func wrapSyncErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "sync state not found")
	case dErrors.HasCode(err, dErrors.CodeConflict),
		dErrors.HasCode(err, dErrors.CodeSyncInFlight),
		dErrors.HasCode(err, dErrors.CodeSyncModeMismatch),
		dErrors.HasCode(err, dErrors.CodeInvalidInput),
		dErrors.HasCode(err, dErrors.CodeInvariantViolation):
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "sync state operation failed")
	}
}
