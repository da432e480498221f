package registry

import (
	"context"
	"sync"

	"github.com/platinummonkey/gatehouse/pkg/identity"
)

// Store maps opaque login keys to the principals they represent. Entries
// carry no expiry: a key lives exactly as long as the session reference
// that owns it, and is removed on rotation, logout, or session end.
//
// Implementations must be safe for unbounded concurrent readers and
// writers; operations on the same key are linearizable, operations on
// different keys carry no ordering guarantee.
type Store interface {
	// Put inserts the mapping, overwriting any existing entry for key.
	Put(ctx context.Context, key string, p identity.Principal) error

	// Get returns the principal bound to key, if present.
	Get(ctx context.Context, key string) (identity.Principal, bool, error)

	// Remove deletes the entry for key. Removing an absent key is a no-op.
	Remove(ctx context.Context, key string) error

	// Len returns the number of live entries.
	Len(ctx context.Context) (int, error)

	// Clear removes every entry. It exists for process shutdown and test
	// isolation, not for request-path use.
	Clear(ctx context.Context) error
}

// Memory is the default in-process Store. Its lifetime is the server
// process; construct it once at startup and inject it.
type Memory struct {
	mu   sync.RWMutex
	keys map[string]identity.Principal
}

// NewMemory creates an empty in-process registry
func NewMemory() *Memory {
	return &Memory{
		keys: make(map[string]identity.Principal),
	}
}

// Put implements Store
func (m *Memory) Put(ctx context.Context, key string, p identity.Principal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[key] = p
	return nil
}

// Get implements Store
func (m *Memory) Get(ctx context.Context, key string) (identity.Principal, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.keys[key]
	return p, ok, nil
}

// Remove implements Store
func (m *Memory) Remove(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, key)
	return nil
}

// Len implements Store
func (m *Memory) Len(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.keys), nil
}

// Clear implements Store
func (m *Memory) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys = make(map[string]identity.Principal)
	return nil
}
