package identity

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned when no account matches the tenant-scoped lookup.
var ErrNotFound = errors.New("identity: account not found")

// Store is the persistent account store consulted by the cross-server
// hand-off path. Lookups are always scoped to a tenant: the same account
// identifier may exist in several tenants with different credentials.
type Store interface {
	// Lookup returns the account with the given identifier in the given
	// tenant, or ErrNotFound.
	Lookup(ctx context.Context, tenant, id string) (*Principal, error)

	// SetLoggedOut persists the account's logged-out flag.
	SetLoggedOut(ctx context.Context, tenant, id string, loggedOut bool) error
}

// MemoryStore is an in-process Store, used in tests and single-node
// deployments without a database.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[storeKey]Principal
}

type storeKey struct {
	tenant string
	id     string
}

// NewMemoryStore creates an empty in-memory account store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[storeKey]Principal),
	}
}

// Add inserts or replaces an account
func (s *MemoryStore) Add(p Principal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[storeKey{tenant: p.Tenant, id: p.ID}] = p
}

// Lookup implements Store
func (s *MemoryStore) Lookup(ctx context.Context, tenant, id string) (*Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.accounts[storeKey{tenant: tenant, id: id}]
	if !ok {
		return nil, ErrNotFound
	}
	out := p
	return &out, nil
}

// SetLoggedOut implements Store
func (s *MemoryStore) SetLoggedOut(ctx context.Context, tenant, id string, loggedOut bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := storeKey{tenant: tenant, id: id}
	p, ok := s.accounts[key]
	if !ok {
		return ErrNotFound
	}
	p.HasLoggedOut = loggedOut
	s.accounts[key] = p
	return nil
}
