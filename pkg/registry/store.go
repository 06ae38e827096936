package registry

import (
	"context"
	"sync"
)

// Store persists the full ordered client list. Implementations must round-trip
// every field and preserve client and proxy ordering.
type Store interface {
	// Load returns the persisted clients, or an empty list if nothing has
	// been saved yet.
	Load(ctx context.Context) ([]Client, error)

	// Save replaces the persisted clients with the given list.
	Save(ctx context.Context, clients []Client) error

	// Close releases resources held by the store.
	Close() error
}

// Pinger is implemented by stores that can report their own health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// MemoryStore is a Store that keeps a copy of the last saved list in memory.
// It is useful for tests and for running a server without persistence.
type MemoryStore struct {
	mu      sync.Mutex
	clients []Client
	// SaveErr, when set, is returned by Save instead of storing.
	SaveErr error
	saves   int
}

// NewMemoryStore creates a MemoryStore seeded with clients.
func NewMemoryStore(clients ...Client) *MemoryStore {
	return &MemoryStore{clients: cloneClients(clients)}
}

// Load implements Store.
func (m *MemoryStore) Load(ctx context.Context) ([]Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneClients(m.clients), nil
}

// Save implements Store.
func (m *MemoryStore) Save(ctx context.Context, clients []Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.clients = cloneClients(clients)
	m.saves++
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error { return nil }

// Saves returns how many successful saves happened.
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
