package lease

import (
	"context"
	"sync"
	"time"

	"github.com/Venkatavamsikrishna/Youtube-Auto-Reply/internal/model"
)

// MemoryLeaser implements Leaser with an in-process map. It is enough for a
// single server instance and for tests.
type MemoryLeaser struct {
	mu     sync.Mutex
	leases map[string]model.Lease
	now    func() time.Time
}

func NewMemoryLeaser() *MemoryLeaser {
	return &MemoryLeaser{leases: make(map[string]model.Lease), now: time.Now}
}

func (m *MemoryLeaser) Acquire(_ context.Context, key, owner string, ttl time.Duration) (*model.Lease, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if existing, ok := m.leases[key]; ok {
		if existing.ExpiresAt >= now.Unix() && existing.Owner != owner {
			return nil, ErrHeld
		}
	}

	l := model.Lease{Key: key, Owner: owner, ExpiresAt: expiry(now, ttl)}
	m.leases[key] = l
	return &l, nil
}

func (m *MemoryLeaser) Release(_ context.Context, key, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.leases[key]; ok && existing.Owner == owner {
		delete(m.leases, key)
	}
	return nil
}
