package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"attest/internal/application/models"
	id "attest/pkg/domain"
	"attest/pkg/platform/sentinel"
)

// InMemory stores applications in process. All reads and writes copy the
// aggregate so callers never alias store-owned state.
type InMemory struct {
	mu   sync.RWMutex
	apps map[id.ApplicationID]*models.Application
}

func NewInMemory() *InMemory {
	return &InMemory{apps: make(map[id.ApplicationID]*models.Application)}
}

// CreateIfNameAvailable inserts the application unless another one already
// uses the name (case-insensitive).
func (s *InMemory) CreateIfNameAvailable(_ context.Context, app *models.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lower := strings.ToLower(app.Name)
	for _, existing := range s.apps {
		if strings.ToLower(existing.Name) == lower {
			return sentinel.ErrAlreadyUsed
		}
	}
	s.apps[app.ID] = clone(app)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, appID id.ApplicationID) (*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	app, ok := s.apps[appID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(app), nil
}

func (s *InMemory) FindByName(_ context.Context, name string) (*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lower := strings.ToLower(name)
	for _, app := range s.apps {
		if strings.ToLower(app.Name) == lower {
			return clone(app), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// List returns all applications ordered by name.
func (s *InMemory) List(_ context.Context) ([]*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Application, 0, len(s.apps))
	for _, app := range s.apps {
		out = append(out, clone(app))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Execute runs validate-then-mutate while holding the store lock, so no
// concurrent writer can interleave between the check and the write. The
// mutation is applied to a copy and only committed when validate passes.
func (s *InMemory) Execute(_ context.Context, appID id.ApplicationID, validate func(*models.Application) error, mutate func(*models.Application)) (*models.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.apps[appID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}

	working := clone(current)
	if err := validate(working); err != nil {
		return nil, err
	}
	mutate(working)
	working.Version++

	s.apps[appID] = working
	return clone(working), nil
}

// Delete removes the application. The caller owns cascading deletes of
// fulfillments and sync state.
func (s *InMemory) Delete(_ context.Context, appID id.ApplicationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.apps[appID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.apps, appID)
	return nil
}

func clone(a *models.Application) *models.Application {
	cp := *a
	cp.RequirementIDs = append([]id.RequirementID(nil), a.RequirementIDs...)
	return &cp
}
