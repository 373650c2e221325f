// Package store persists per-application sync metadata.
package store

import (
	"context"
	"sort"
	"sync"

	"attest/internal/sync/models"
	id "attest/pkg/domain"
	"attest/pkg/platform/sentinel"
)

// InMemory keeps sync metadata in process. Execute holds the write lock
// across read-validate-mutate so concurrent finishers cannot interleave.
type InMemory struct {
	mu    sync.RWMutex
	state map[id.ApplicationID]*models.Metadata
}

func NewInMemory() *InMemory {
	return &InMemory{state: make(map[id.ApplicationID]*models.Metadata)}
}

func clone(m *models.Metadata) *models.Metadata {
	out := *m
	if m.LastSyncAttempt != nil {
		t := *m.LastSyncAttempt
		out.LastSyncAttempt = &t
	}
	if m.LastSuccessfulSync != nil {
		t := *m.LastSuccessfulSync
		out.LastSuccessfulSync = &t
	}
	out.Errors = append([]string(nil), m.Errors...)
	return &out
}

// Create inserts the initial metadata row. Returns sentinel.ErrConflict when
// the application already has one.
func (s *InMemory) Create(_ context.Context, m *models.Metadata) error {
	if err := m.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.state[m.ApplicationID]; exists {
		return sentinel.ErrConflict
	}
	s.state[m.ApplicationID] = clone(m)
	return nil
}

func (s *InMemory) FindByApplication(_ context.Context, appID id.ApplicationID) (*models.Metadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.state[appID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(m), nil
}

// List returns all metadata ordered by application ID. Used by the sync
// scheduler to find applications due for an attempt.
func (s *InMemory) List(_ context.Context) ([]*models.Metadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Metadata, 0, len(s.state))
	for _, m := range s.state {
		out = append(out, clone(m))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ApplicationID.String() < out[j].ApplicationID.String()
	})
	return out, nil
}

// Execute runs validate-then-mutate atomically against the application's
// metadata. The mutation is discarded when validate fails.
func (s *InMemory) Execute(_ context.Context, appID id.ApplicationID, validate func(*models.Metadata) error, mutate func(*models.Metadata)) (*models.Metadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.state[appID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}

	next := clone(current)
	if validate != nil {
		if err := validate(next); err != nil {
			return nil, err
		}
	}
	mutate(next)
	if err := next.Validate(); err != nil {
		return nil, err
	}

	s.state[appID] = next
	return clone(next), nil
}

func (s *InMemory) Delete(_ context.Context, appID id.ApplicationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state[appID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.state, appID)
	return nil
}
