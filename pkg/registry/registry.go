package registry

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
)

// Observer is notified with the registry size after every successful
// mutation. The metrics collector implements it.
type Observer interface {
	RegistrySize(clients, proxies int)
}

// Registry is the in-memory, write-through collection of clients.
type Registry struct {
	mu       sync.RWMutex
	clients  []Client
	store    Store
	logger   *slog.Logger
	observer Observer
}

// Option configures a Registry.
type Option func(*Registry)

// WithObserver registers an Observer for size changes.
func WithObserver(o Observer) Option {
	return func(r *Registry) { r.observer = o }
}

// New loads the registry from store.
func New(ctx context.Context, store Store, logger *slog.Logger, opts ...Option) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}

	clients, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load registry: %w", err)
	}
	if err := checkUnique(clients); err != nil {
		return nil, fmt.Errorf("failed to load registry: %w", err)
	}

	r := &Registry{
		clients: clients,
		store:   store,
		logger:  logger.With("component", "registry"),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.logger.Info("registry loaded", "clients", len(clients), "proxies", countProxies(clients))
	r.notify(clients)
	return r, nil
}

// List returns a copy of every client in insertion order.
func (r *Registry) List() []Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneClients(r.clients)
}

// Get returns a copy of the client with the given id.
func (r *Registry) Get(id string) (Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i := clientIndex(r.clients, id)
	if i < 0 {
		return Client{}, ErrClientNotFound
	}
	return r.clients[i].Clone(), nil
}

// Len returns the number of clients and proxies.
func (r *Registry) Len() (clients, proxies int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients), countProxies(r.clients)
}

// CreateClient appends a client with no proxies.
func (r *Registry) CreateClient(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidClient)
	}

	return r.mutate(ctx, "create client", func(clients []Client) ([]Client, error) {
		if clientIndex(clients, id) >= 0 {
			return nil, ErrClientExists
		}
		return append(clients, Client{ID: id, Proxies: []Proxy{}}), nil
	})
}

// DeleteClient removes a client together with its proxies.
func (r *Registry) DeleteClient(ctx context.Context, id string) error {
	return r.mutate(ctx, "delete client", func(clients []Client) ([]Client, error) {
		i := clientIndex(clients, id)
		if i < 0 {
			return nil, ErrClientNotFound
		}
		return slices.Delete(clients, i, i+1), nil
	})
}

// AddProxy appends a proxy to a client. Proxy names are unique per client.
func (r *Registry) AddProxy(ctx context.Context, clientID string, p Proxy) error {
	if err := p.Validate(); err != nil {
		return err
	}
	p = p.Clone()

	return r.mutate(ctx, "add proxy", func(clients []Client) ([]Client, error) {
		i := clientIndex(clients, clientID)
		if i < 0 {
			return nil, ErrClientNotFound
		}
		if clients[i].proxyIndex(p.Name) >= 0 {
			return nil, ErrProxyExists
		}
		clients[i].Proxies = append(clients[i].Proxies, p)
		return clients, nil
	})
}

// RemoveProxy removes a named proxy from a client.
func (r *Registry) RemoveProxy(ctx context.Context, clientID, name string) error {
	return r.mutate(ctx, "remove proxy", func(clients []Client) ([]Client, error) {
		i := clientIndex(clients, clientID)
		if i < 0 {
			return nil, ErrClientNotFound
		}
		j := clients[i].proxyIndex(name)
		if j < 0 {
			return nil, ErrProxyNotFound
		}
		clients[i].Proxies = slices.Delete(clients[i].Proxies, j, j+1)
		return clients, nil
	})
}

// Ping reports whether the backing store is reachable.
func (r *Registry) Ping(ctx context.Context) error {
	if p, ok := r.store.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// mutate applies fn to a copy of the clients, persists the result and only
// then swaps it in. The write lock is held for the whole sequence.
func (r *Registry) mutate(ctx context.Context, op string, fn func([]Client) ([]Client, error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	next, err := fn(cloneClients(r.clients))
	if err != nil {
		return err
	}

	if err := r.store.Save(ctx, next); err != nil {
		r.logger.Error("failed to persist registry", "op", op, "error", err)
		return &PersistError{Op: op, Err: err}
	}

	r.clients = next
	r.logger.Debug("registry updated", "op", op, "clients", len(next))
	r.notify(next)
	return nil
}

func (r *Registry) notify(clients []Client) {
	if r.observer != nil {
		r.observer.RegistrySize(len(clients), countProxies(clients))
	}
}

func clientIndex(clients []Client, id string) int {
	return slices.IndexFunc(clients, func(c Client) bool { return c.ID == id })
}

func countProxies(clients []Client) int {
	n := 0
	for _, c := range clients {
		n += len(c.Proxies)
	}
	return n
}

// checkUnique rejects persisted data that violates id or name uniqueness.
func checkUnique(clients []Client) error {
	ids := make(map[string]struct{}, len(clients))
	for _, c := range clients {
		if _, dup := ids[c.ID]; dup {
			return fmt.Errorf("%w: duplicate client id %q", ErrClientExists, c.ID)
		}
		ids[c.ID] = struct{}{}

		names := make(map[string]struct{}, len(c.Proxies))
		for _, p := range c.Proxies {
			if _, dup := names[p.Name]; dup {
				return fmt.Errorf("%w: duplicate proxy %q in client %q", ErrProxyExists, p.Name, c.ID)
			}
			names[p.Name] = struct{}{}
		}
	}
	return nil
}
