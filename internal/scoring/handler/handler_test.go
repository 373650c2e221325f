package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"attest/internal/scoring"
	"attest/internal/scoring/handler/mocks"
	id "attest/pkg/domain"
	dErrors "attest/pkg/domain-errors"
)

//go:generate mockgen -source=handler.go -destination=mocks/scoring-mocks.go -package=mocks Service

type ScoringHandlerSuite struct {
	suite.Suite
}

func TestScoringHandlerSuite(t *testing.T) {
	suite.Run(t, new(ScoringHandlerSuite))
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

func (s *ScoringHandlerSuite) TestHandleScore() {
	router, mockService := newTestHandler(s.T())
	appID := id.ApplicationID(uuid.New())
	mockService.EXPECT().Score(gomock.Any(), appID).Return(&scoring.Score{
		ApplicationID:        appID,
		Percentage:           75,
		Counts:               scoring.Counts{Fulfilled: 3, NotFulfilled: 1},
		AssessedRequirements: 3,
		TotalRequirements:    4,
	}, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/applications/"+appID.String()+"/score", nil))

	s.Equal(http.StatusOK, w.Code)
	var resp scoring.Score
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Equal(75, resp.Percentage)
	s.Equal(3, resp.Counts.Fulfilled)
	s.Equal(4, resp.TotalRequirements)
}

func (s *ScoringHandlerSuite) TestHandleScoreErrors() {
	router, mockService := newTestHandler(s.T())

	s.Run("malformed id", func() {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/applications/not-a-uuid/score", nil))
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("unknown application", func() {
		appID := id.ApplicationID(uuid.New())
		mockService.EXPECT().Score(gomock.Any(), appID).
			Return(nil, dErrors.New(dErrors.CodeNotFound, "application not found"))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/applications/"+appID.String()+"/score", nil))
		s.Equal(http.StatusNotFound, w.Code)
	})
}
