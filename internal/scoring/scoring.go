// Package scoring computes per-application compliance scores over the
// application's associated requirement set.
package scoring

import (
	"context"
	"errors"
	"log/slog"
	"math"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	application "attest/internal/application/models"
	fulfillment "attest/internal/fulfillment/models"
	id "attest/pkg/domain"
	dErrors "attest/pkg/domain-errors"
	"attest/pkg/platform/sentinel"
)

// ApplicationReader resolves the application and its requirement
// associations.
type ApplicationReader interface {
	FindByID(ctx context.Context, appID id.ApplicationID) (*application.Application, error)
}

// FulfillmentReader lists the fulfillment records a score is computed from.
type FulfillmentReader interface {
	ListByApplication(ctx context.Context, appID id.ApplicationID) ([]*fulfillment.Fulfillment, error)
}

// Counts breaks an application's associated requirements down by status.
// Requirements without a fulfillment record count as not fulfilled.
type Counts struct {
	Fulfilled          int `json:"fulfilled"`
	PartiallyFulfilled int `json:"partially_fulfilled"`
	NotFulfilled       int `json:"not_fulfilled"`
	NotApplicable      int `json:"not_applicable"`
}

// Score is the compliance roll-up for one application.
// AssessedRequirements counts associated requirements with any record on
// file, human or automated; TotalRequirements is the association size.
type Score struct {
	ApplicationID        id.ApplicationID `json:"application_id"`
	Percentage           int              `json:"percentage"`
	Counts               Counts           `json:"counts"`
	AssessedRequirements int              `json:"assessed_requirements"`
	TotalRequirements    int              `json:"total_requirements"`
}

// Service computes scores. Pure read: no locks, no mutation, and a score may
// trail in-flight writes.
type Service struct {
	apps         ApplicationReader
	fulfillments FulfillmentReader
	logger       *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// New constructs a Service.
func New(apps ApplicationReader, fulfillments FulfillmentReader, opts ...Option) *Service {
	s := &Service{apps: apps, fulfillments: fulfillments}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Score computes the application's compliance percentage.
//
//	percentage = round(100 * (fulfilled + 0.5*partial) / (total - notApplicable))
//
// Not-applicable requirements drop out of both sides of the ratio; an
// application whose whole association is not applicable scores 0. Records
// for requirements no longer associated with the application are ignored.
func (s *Service) Score(ctx context.Context, appID id.ApplicationID) (*Score, error) {
	ctx, span := otel.Tracer("scoring").Start(ctx, "scoring.Score",
		trace.WithAttributes(attribute.String("application_id", appID.String())))
	defer span.End()

	if appID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "application id is required")
	}

	app, err := s.apps.FindByID(ctx, appID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "application not found")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "application lookup failed")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve application")
	}

	records, err := s.fulfillments.ListByApplication(ctx, appID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fulfillment read failed")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read fulfillments")
	}

	byRequirement := make(map[id.RequirementID]*fulfillment.Fulfillment, len(records))
	for _, rec := range records {
		byRequirement[rec.RequirementID] = rec
	}

	score := &Score{
		ApplicationID:     appID,
		TotalRequirements: len(app.RequirementIDs),
	}
	var weighted float64
	for _, reqID := range app.RequirementIDs {
		rec, ok := byRequirement[reqID]
		if !ok {
			score.Counts.NotFulfilled++
			continue
		}
		score.AssessedRequirements++
		switch rec.Status {
		case id.StatusFulfilled:
			score.Counts.Fulfilled++
		case id.StatusPartiallyFulfilled:
			score.Counts.PartiallyFulfilled++
		case id.StatusNotApplicable:
			score.Counts.NotApplicable++
		default:
			score.Counts.NotFulfilled++
		}
		weighted += rec.Status.Weight()
	}

	denominator := score.TotalRequirements - score.Counts.NotApplicable
	if denominator > 0 {
		score.Percentage = int(math.Round(100 * weighted / float64(denominator)))
	}

	span.SetAttributes(attribute.Int("percentage", score.Percentage))
	s.logger.Debug("score computed",
		slog.String("application_id", appID.String()),
		slog.Int("percentage", score.Percentage),
		slog.Int("assessed", score.AssessedRequirements),
		slog.Int("total", score.TotalRequirements))
	return score, nil
}
