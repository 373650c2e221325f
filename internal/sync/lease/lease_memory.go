package lease

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	id "attest/pkg/domain"
	"attest/pkg/platform/sentinel"
)

type memoryEntry struct {
	token     string
	expiresAt time.Time
}

// InMemory is a process-local lease for single-instance deployments and
// tests. Expired entries are treated as free and reaped on contact.
type InMemory struct {
	mu     sync.Mutex
	leases map[id.ApplicationID]memoryEntry

	now func() time.Time
}

// NewInMemory constructs an in-process lease.
func NewInMemory() *InMemory {
	return &InMemory{
		leases: make(map[id.ApplicationID]memoryEntry),
		now:    time.Now,
	}
}

// Acquire takes the application's lease for ttl. Returns the release token,
// or sentinel.ErrLeaseHeld when another holder has it.
func (l *InMemory) Acquire(_ context.Context, appID id.ApplicationID, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if entry, ok := l.leases[appID]; ok && now.Before(entry.expiresAt) {
		return "", sentinel.ErrLeaseHeld
	}

	token := uuid.NewString()
	l.leases[appID] = memoryEntry{token: token, expiresAt: now.Add(ttl)}
	return token, nil
}

// Release frees the lease if it is still held under token.
func (l *InMemory) Release(_ context.Context, appID id.ApplicationID, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.leases[appID]
	if !ok || entry.token != token || !l.now().Before(entry.expiresAt) {
		return ErrLeaseLost
	}
	delete(l.leases, appID)
	return nil
}
