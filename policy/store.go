package policy

import (
	"context"
	"sync"
)

// Store loads and persists the active login policy. Durability is the
// integrator's concern; implementations must return [ErrNotFound] when no
// active policy has been written yet.
type Store interface {
	LoadActive(ctx context.Context) (Policy, error)
	Save(ctx context.Context, p Policy) error
}

// MemoryStore is an in-process [Store] used in tests and as a bootstrap
// default. Safe for concurrent use.
type MemoryStore struct {
	mu     sync.RWMutex
	policy Policy
	seeded bool
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// LoadActive returns the stored policy or [ErrNotFound].
func (s *MemoryStore) LoadActive(_ context.Context) (Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.seeded {
		return Policy{}, ErrNotFound
	}
	return s.policy, nil
}

// Save replaces the stored policy.
func (s *MemoryStore) Save(_ context.Context, p Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.policy = p
	s.seeded = true
	return nil
}
