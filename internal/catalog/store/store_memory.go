package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"attest/internal/catalog/models"
	id "attest/pkg/domain"
	"attest/pkg/platform/sentinel"
)

// InMemory keeps the catalog in process. Reference data is read-mostly, so a
// single RWMutex over plain maps is enough.
type InMemory struct {
	mu           sync.RWMutex
	standards    map[id.StandardID]models.Standard
	requirements map[id.RequirementID]models.Requirement
}

func NewInMemory() *InMemory {
	return &InMemory{
		standards:    make(map[id.StandardID]models.Standard),
		requirements: make(map[id.RequirementID]models.Requirement),
	}
}

// PutStandard upserts a standard.
func (s *InMemory) PutStandard(_ context.Context, std models.Standard) error {
	if err := std.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.standards[std.ID] = std
	return nil
}

// PutRequirement upserts a requirement. The referenced standard must already
// be present.
func (s *InMemory) PutRequirement(_ context.Context, req models.Requirement) error {
	if err := req.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.standards[req.StandardID]; !ok {
		return fmt.Errorf("standard %s: %w", req.StandardID, sentinel.ErrNotFound)
	}
	s.requirements[req.ID] = req
	return nil
}

func (s *InMemory) FindStandard(_ context.Context, stdID id.StandardID) (*models.Standard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	std, ok := s.standards[stdID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &std, nil
}

func (s *InMemory) ListStandards(_ context.Context) ([]models.Standard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Standard, 0, len(s.standards))
	for _, std := range s.standards {
		out = append(out, std)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (s *InMemory) FindRequirement(_ context.Context, reqID id.RequirementID) (*models.Requirement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	req, ok := s.requirements[reqID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &req, nil
}

// ListByStandard returns a standard's requirements ordered by control code.
func (s *InMemory) ListByStandard(_ context.Context, stdID id.StandardID) ([]models.Requirement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Requirement
	for _, req := range s.requirements {
		if req.StandardID == stdID {
			out = append(out, req)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// MissingRequirements returns the subset of ids not present in the catalog,
// preserving input order.
func (s *InMemory) MissingRequirements(_ context.Context, ids []id.RequirementID) ([]id.RequirementID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var missing []id.RequirementID
	for _, reqID := range ids {
		if _, ok := s.requirements[reqID]; !ok {
			missing = append(missing, reqID)
		}
	}
	return missing, nil
}
