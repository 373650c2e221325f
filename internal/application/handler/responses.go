package handler

import (
	"attest/internal/application/models"
)

// ListApplicationsResponse is the HTTP response for GET /applications.
type ListApplicationsResponse struct {
	Applications []*models.Application `json:"applications"`
}
