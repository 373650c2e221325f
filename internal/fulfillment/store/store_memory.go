// Package store persists fulfillment records with single-writer semantics per
// (application, requirement) pair.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"attest/internal/fulfillment/models"
	id "attest/pkg/domain"
	"attest/pkg/platform/sentinel"
)

type pairKey struct {
	app id.ApplicationID
	req id.RequirementID
}

// InMemory stores fulfillment records in process. Execute holds a per-pair
// lock across read-decide-write, so writers to the same pair serialize while
// different pairs proceed concurrently. All reads and writes copy the record
// so callers never alias store-owned state.
type InMemory struct {
	mu      sync.RWMutex
	records map[pairKey]*models.Fulfillment
	locks   map[pairKey]*sync.Mutex
}

func NewInMemory() *InMemory {
	return &InMemory{
		records: make(map[pairKey]*models.Fulfillment),
		locks:   make(map[pairKey]*sync.Mutex),
	}
}

// pairLock returns the mutex for one pair. Locks are never removed: a lock
// deleted while held could mint a second writer for the same pair.
func (s *InMemory) pairLock(key pairKey) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}

// Execute runs fn while holding the pair's lock. fn receives nil when no
// record exists yet and returns the record to persist; returning an error
// discards the write. The committed record gets a version bump.
func (s *InMemory) Execute(_ context.Context, appID id.ApplicationID, reqID id.RequirementID, fn func(current *models.Fulfillment) (*models.Fulfillment, error)) (*models.Fulfillment, error) {
	key := pairKey{app: appID, req: reqID}
	l := s.pairLock(key)
	l.Lock()
	defer l.Unlock()

	s.mu.RLock()
	current := s.records[key]
	s.mu.RUnlock()

	var working *models.Fulfillment
	if current != nil {
		working = clone(current)
	}
	next, err := fn(working)
	if err != nil {
		return nil, err
	}
	if next == nil {
		return nil, fmt.Errorf("execute returned no record: %w", sentinel.ErrInvalidState)
	}
	if err := next.Validate(); err != nil {
		return nil, err
	}
	if current != nil {
		next.Version = current.Version + 1
	} else if next.Version == 0 {
		next.Version = 1
	}

	s.mu.Lock()
	s.records[key] = clone(next)
	s.mu.Unlock()
	return clone(next), nil
}

func (s *InMemory) Get(_ context.Context, appID id.ApplicationID, reqID id.RequirementID) (*models.Fulfillment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[pairKey{app: appID, req: reqID}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(rec), nil
}

// ListByApplication returns the application's records ordered by requirement
// ID. Lock-free against in-flight Execute calls: readers may see the set just
// before or just after a concurrent write.
func (s *InMemory) ListByApplication(_ context.Context, appID id.ApplicationID) ([]*models.Fulfillment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Fulfillment
	for key, rec := range s.records {
		if key.app == appID {
			out = append(out, clone(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].RequirementID.String() < out[j].RequirementID.String()
	})
	return out, nil
}

// DeleteByApplication removes every record for the application and reports
// how many were purged. Deregistration is the only deletion path.
func (s *InMemory) DeleteByApplication(_ context.Context, appID id.ApplicationID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	purged := 0
	for key := range s.records {
		if key.app == appID {
			delete(s.records, key)
			purged++
		}
	}
	return purged, nil
}

func clone(f *models.Fulfillment) *models.Fulfillment {
	cp := *f
	if f.Automated != nil {
		a := *f.Automated
		cp.Automated = &a
	}
	if f.Override != nil {
		o := *f.Override
		cp.Override = &o
	}
	return &cp
}
