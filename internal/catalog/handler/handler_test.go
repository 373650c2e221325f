package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"attest/internal/catalog/handler/mocks"
	"attest/internal/catalog/models"
	id "attest/pkg/domain"
	dErrors "attest/pkg/domain-errors"
)

//go:generate mockgen -source=handler.go -destination=mocks/catalog-mocks.go -package=mocks Service

type CatalogHandlerSuite struct {
	suite.Suite
}

func TestCatalogHandlerSuite(t *testing.T) {
	suite.Run(t, new(CatalogHandlerSuite))
}

func newTestHandler(t *testing.T) (http.Handler, *mocks.MockService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	mockService := mocks.NewMockService(ctrl)

	h := New(mockService, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	h.Register(r)
	return r, mockService
}

func fixtureStandard() models.Standard {
	return models.Standard{
		ID:        id.StandardID(uuid.New()),
		Code:      "ISO27001",
		Name:      "ISO/IEC 27001",
		Version:   "2022",
		CreatedAt: time.Now().UTC(),
	}
}

func fixtureRequirement(stdID id.StandardID) models.Requirement {
	return models.Requirement{
		ID:          id.RequirementID(uuid.New()),
		StandardID:  stdID,
		Code:        "A.5.1",
		Title:       "Policies for information security",
		Criticality: id.CriticalityHigh,
		CreatedAt:   time.Now().UTC(),
	}
}

func (s *CatalogHandlerSuite) TestHandleListStandards() {
	router, mockService := newTestHandler(s.T())
	mockService.EXPECT().Standards(gomock.Any()).
		Return([]models.Standard{fixtureStandard(), fixtureStandard()}, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/standards", nil))

	s.Equal(http.StatusOK, w.Code)
	var resp ListStandardsResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Len(resp.Standards, 2)
	s.Equal("ISO27001", resp.Standards[0].Code)
}

func (s *CatalogHandlerSuite) TestHandleGetStandard() {
	router, mockService := newTestHandler(s.T())
	standard := fixtureStandard()
	mockService.EXPECT().Standard(gomock.Any(), standard.ID).Return(&standard, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/standards/"+standard.ID.String(), nil))

	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "ISO/IEC 27001")
}

func (s *CatalogHandlerSuite) TestHandleRequirementsByStandard() {
	router, mockService := newTestHandler(s.T())
	stdID := id.StandardID(uuid.New())
	mockService.EXPECT().RequirementsByStandard(gomock.Any(), stdID).
		Return([]models.Requirement{fixtureRequirement(stdID)}, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/standards/"+stdID.String()+"/requirements", nil))

	s.Equal(http.StatusOK, w.Code)
	var resp ListRequirementsResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Require().Len(resp.Requirements, 1)
	s.Equal("A.5.1", resp.Requirements[0].Code)
	s.Equal(id.CriticalityHigh, resp.Requirements[0].Criticality)
}

func (s *CatalogHandlerSuite) TestHandleGetRequirement() {
	router, mockService := newTestHandler(s.T())
	requirement := fixtureRequirement(id.StandardID(uuid.New()))
	mockService.EXPECT().Requirement(gomock.Any(), requirement.ID).Return(&requirement, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/requirements/"+requirement.ID.String(), nil))

	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "Policies for information security")
}

func (s *CatalogHandlerSuite) TestHandleErrors() {
	router, mockService := newTestHandler(s.T())

	s.Run("malformed requirement id", func() {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/requirements/not-a-uuid", nil))
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("unknown requirement", func() {
		reqID := id.RequirementID(uuid.New())
		mockService.EXPECT().Requirement(gomock.Any(), reqID).
			Return(nil, dErrors.New(dErrors.CodeNotFound, "requirement not found"))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/requirements/"+reqID.String(), nil))
		s.Equal(http.StatusNotFound, w.Code)
	})

	s.Run("unknown standard", func() {
		stdID := id.StandardID(uuid.New())
		mockService.EXPECT().Standard(gomock.Any(), stdID).
			Return(nil, dErrors.New(dErrors.CodeNotFound, "standard not found"))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/standards/"+stdID.String(), nil))
		s.Equal(http.StatusNotFound, w.Code)
	})
}
