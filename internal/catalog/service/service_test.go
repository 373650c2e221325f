package service

import (
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"attest/internal/catalog/models"
	"attest/internal/catalog/seed"
	"attest/internal/catalog/store"
	id "attest/pkg/domain"
	dErrors "attest/pkg/domain-errors"
)

type CatalogServiceSuite struct {
	suite.Suite
	svc *Service
	ctx context.Context

	iso  models.Standard
	reqA models.Requirement
	reqB models.Requirement
}

func TestCatalogServiceSuite(t *testing.T) {
	suite.Run(t, new(CatalogServiceSuite))
}

func (s *CatalogServiceSuite) SetupTest() {
	s.svc = New(store.NewInMemory(), WithLogger(slog.New(slog.DiscardHandler)))
	s.ctx = context.Background()

	s.iso = models.Standard{
		ID:      id.StandardID(uuid.New()),
		Code:    "iso-27001-2022",
		Name:    "ISO 27001",
		Version: "2022",
	}
	s.reqA = models.Requirement{
		ID:          id.RequirementID(uuid.New()),
		StandardID:  s.iso.ID,
		Code:        "A.5.1",
		Title:       "Policies for information security",
		Criticality: id.CriticalityHigh,
	}
	s.reqB = models.Requirement{
		ID:          id.RequirementID(uuid.New()),
		StandardID:  s.iso.ID,
		Code:        "A.8.2",
		Title:       "Privileged access rights",
		Criticality: id.CriticalityMedium,
	}
}

func (s *CatalogServiceSuite) importFixture() {
	err := s.svc.ImportSeed(s.ctx, &seed.Seed{
		Standards:    []models.Standard{s.iso},
		Requirements: []models.Requirement{s.reqB, s.reqA},
	})
	s.Require().NoError(err)
}

func (s *CatalogServiceSuite) TestImportSeed() {
	s.Run("imports standards and requirements", func() {
		s.importFixture()

		std, err := s.svc.Standard(s.ctx, s.iso.ID)
		s.Require().NoError(err)
		s.Equal("ISO 27001", std.Name)

		req, err := s.svc.Requirement(s.ctx, s.reqA.ID)
		s.Require().NoError(err)
		s.Equal("A.5.1", req.Code)
	})

	s.Run("skips requirements referencing unknown standards", func() {
		orphan := models.Requirement{
			ID:          id.RequirementID(uuid.New()),
			StandardID:  id.StandardID(uuid.New()),
			Code:        "X.1",
			Title:       "Orphaned control",
			Criticality: id.CriticalityLow,
		}
		err := s.svc.ImportSeed(s.ctx, &seed.Seed{
			Standards:    []models.Standard{s.iso},
			Requirements: []models.Requirement{s.reqA, orphan},
		})
		s.Require().NoError(err)

		_, err = s.svc.Requirement(s.ctx, orphan.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("reimport is idempotent", func() {
		s.importFixture()
		s.importFixture()

		reqs, err := s.svc.RequirementsByStandard(s.ctx, s.iso.ID)
		s.Require().NoError(err)
		s.Len(reqs, 2)
	})
}

func (s *CatalogServiceSuite) TestReads() {
	s.importFixture()

	s.Run("lists standards", func() {
		stds, err := s.svc.Standards(s.ctx)
		s.Require().NoError(err)
		s.Require().Len(stds, 1)
		s.Equal("iso-27001-2022", stds[0].Code)
	})

	s.Run("lists requirements ordered by control code", func() {
		reqs, err := s.svc.RequirementsByStandard(s.ctx, s.iso.ID)
		s.Require().NoError(err)
		s.Require().Len(reqs, 2)
		s.Equal("A.5.1", reqs[0].Code)
		s.Equal("A.8.2", reqs[1].Code)
	})

	s.Run("unknown standard is not found", func() {
		_, err := s.svc.RequirementsByStandard(s.ctx, id.StandardID(uuid.New()))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("nil ids are rejected", func() {
		_, err := s.svc.Standard(s.ctx, id.StandardID{})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

		_, err = s.svc.Requirement(s.ctx, id.RequirementID{})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *CatalogServiceSuite) TestVerifyRequirements() {
	s.importFixture()

	s.Run("accepts cataloged ids", func() {
		err := s.svc.VerifyRequirements(s.ctx, []id.RequirementID{s.reqA.ID, s.reqB.ID})
		s.NoError(err)
	})

	s.Run("accepts empty input", func() {
		s.NoError(s.svc.VerifyRequirements(s.ctx, nil))
	})

	s.Run("rejects unknown ids and names them", func() {
		unknown := id.RequirementID(uuid.New())
		err := s.svc.VerifyRequirements(s.ctx, []id.RequirementID{s.reqA.ID, unknown})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
		s.Contains(err.Error(), unknown.String())
	})

	s.Run("caps the ids listed in the message", func() {
		ids := make([]id.RequirementID, 8)
		for i := range ids {
			ids[i] = id.RequirementID(uuid.New())
		}
		err := s.svc.VerifyRequirements(s.ctx, ids)
		s.Require().Error(err)
		s.Contains(err.Error(), "and 3 more")
	})
}
