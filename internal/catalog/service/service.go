// Package service exposes catalog reads and the seed import used at startup.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"attest/internal/catalog/models"
	"attest/internal/catalog/seed"
	id "attest/pkg/domain"
	dErrors "attest/pkg/domain-errors"
	"attest/pkg/platform/sentinel"
)

// Store is the catalog persistence surface the service needs.
type Store interface {
	PutStandard(ctx context.Context, std models.Standard) error
	PutRequirement(ctx context.Context, req models.Requirement) error
	FindStandard(ctx context.Context, stdID id.StandardID) (*models.Standard, error)
	ListStandards(ctx context.Context) ([]models.Standard, error)
	FindRequirement(ctx context.Context, reqID id.RequirementID) (*models.Requirement, error)
	ListByStandard(ctx context.Context, stdID id.StandardID) ([]models.Requirement, error)
	MissingRequirements(ctx context.Context, ids []id.RequirementID) ([]id.RequirementID, error)
}

// Service serves the requirements catalog.
type Service struct {
	store  Store
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// New constructs a Service.
func New(store Store, opts ...Option) *Service {
	s := &Service{store: store}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// ImportSeed loads parsed dump content into the store. Standards go first so
// requirement foreign keys resolve; requirements referencing a standard the
// dump does not carry are skipped with a warning rather than failing the
// import.
func (s *Service) ImportSeed(ctx context.Context, sd *seed.Seed) error {
	for _, std := range sd.Standards {
		if err := s.store.PutStandard(ctx, std); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, fmt.Sprintf("failed to import standard %s", std.Code))
		}
	}

	orphaned := 0
	for _, req := range sd.Requirements {
		if err := s.store.PutRequirement(ctx, req); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				orphaned++
				s.logger.Warn("skipping requirement with unknown standard",
					slog.String("requirement_id", req.ID.String()),
					slog.String("standard_id", req.StandardID.String()))
				continue
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, fmt.Sprintf("failed to import requirement %s", req.Code))
		}
	}

	s.logger.Info("catalog seed imported",
		slog.Int("standards", len(sd.Standards)),
		slog.Int("requirements", len(sd.Requirements)-orphaned),
		slog.Int("orphaned", orphaned),
		slog.Int("malformed", sd.Skipped))
	return nil
}

// Standard returns one standard by ID.
func (s *Service) Standard(ctx context.Context, stdID id.StandardID) (*models.Standard, error) {
	if stdID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "standard id is required")
	}
	std, err := s.store.FindStandard(ctx, stdID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "standard not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load standard")
	}
	return std, nil
}

// Standards lists all standards ordered by code.
func (s *Service) Standards(ctx context.Context) ([]models.Standard, error) {
	out, err := s.store.ListStandards(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list standards")
	}
	return out, nil
}

// Requirement returns one requirement by ID.
func (s *Service) Requirement(ctx context.Context, reqID id.RequirementID) (*models.Requirement, error) {
	if reqID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "requirement id is required")
	}
	req, err := s.store.FindRequirement(ctx, reqID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "requirement not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load requirement")
	}
	return req, nil
}

// RequirementsByStandard lists a standard's controls ordered by control code.
// Unknown standards are an error; an empty catalog section is not.
func (s *Service) RequirementsByStandard(ctx context.Context, stdID id.StandardID) ([]models.Requirement, error) {
	if _, err := s.Standard(ctx, stdID); err != nil {
		return nil, err
	}
	out, err := s.store.ListByStandard(ctx, stdID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list requirements")
	}
	return out, nil
}

// VerifyRequirements checks that every ID references a cataloged control.
// Applications may only attach requirements the catalog knows about.
func (s *Service) VerifyRequirements(ctx context.Context, ids []id.RequirementID) error {
	if len(ids) == 0 {
		return nil
	}
	missing, err := s.store.MissingRequirements(ctx, ids)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify requirements")
	}
	if len(missing) == 0 {
		return nil
	}

	shown := missing
	const maxShown = 5
	if len(shown) > maxShown {
		shown = shown[:maxShown]
	}
	strs := make([]string, len(shown))
	for i, reqID := range shown {
		strs[i] = reqID.String()
	}
	msg := fmt.Sprintf("unknown requirement ids: %s", strings.Join(strs, ", "))
	if len(missing) > maxShown {
		msg = fmt.Sprintf("%s (and %d more)", msg, len(missing)-maxShown)
	}
	return dErrors.New(dErrors.CodeInvalidInput, msg)
}
