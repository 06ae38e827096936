package storage

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"

	"ntm-hq/ntm/pkg/config"
	"ntm-hq/ntm/pkg/registry"
)

// sampleClients returns a registry with several clients, proxies in a
// non-alphabetical order, and flags, so round trips exercise ordering.
func sampleClients() []registry.Client {
	return []registry.Client{
		{ID: "zeta", Proxies: []registry.Proxy{
			{Name: "web", Type: "tcp", LocalIP: "127.0.0.1", LocalPort: 8080, RemotePort: 9090, Flags: []string{}},
			{Name: "ssh", Type: "tcp", LocalIP: "127.0.0.1", LocalPort: 22, RemotePort: 2222, Flags: []string{"useEncryption=true", "useCompression=true"}},
			{Name: "dns", Type: "udp", LocalIP: "10.0.0.2", LocalPort: 53, RemotePort: 5353, Flags: []string{}},
		}},
		{ID: "alpha", Proxies: []registry.Proxy{}},
		{ID: "mid", Proxies: []registry.Proxy{
			{Name: "b", Type: "http", LocalIP: "localhost", LocalPort: 3000, RemotePort: 3001, Flags: []string{`customDomains=["example.com"]`}},
			{Name: "a", Type: "tcp", LocalIP: "localhost", LocalPort: 1, RemotePort: 65535, Flags: []string{}},
		}},
	}
}

// stores returns one of each backend rooted in a fresh temp dir.
func stores(t *testing.T) map[string]registry.Store {
	t.Helper()
	dir := t.TempDir()

	jsonStore, err := NewJSONFileStore(filepath.Join(dir, "proxy_config.json"))
	if err != nil {
		t.Fatalf("NewJSONFileStore failed: %v", err)
	}
	sqliteStore, err := NewSQLiteStore(filepath.Join(dir, "registry.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { sqliteStore.Close() })

	return map[string]registry.Store{
		"json":   jsonStore,
		"sqlite": sqliteStore,
	}
}

func TestStores_EmptyLoad(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			clients, err := store.Load(context.Background())
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if clients == nil || len(clients) != 0 {
				t.Errorf("expected empty non-nil list, got %#v", clients)
			}
		})
	}
}

// TestStores_RoundTrip checks that load(save(r)) == r with every field and
// the ordering of clients and proxies preserved.
func TestStores_RoundTrip(t *testing.T) {
	ctx := context.Background()
	want := sampleClients()

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.Save(ctx, want); err != nil {
				t.Fatalf("Save failed: %v", err)
			}
			got, err := store.Load(ctx)
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("round trip mismatch\ngot:  %+v\nwant: %+v", got, want)
			}
		})
	}
}

func TestStores_SaveReplaces(t *testing.T) {
	ctx := context.Background()

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.Save(ctx, sampleClients()); err != nil {
				t.Fatalf("Save failed: %v", err)
			}

			smaller := []registry.Client{{ID: "only", Proxies: []registry.Proxy{
				{Name: "x", Type: "tcp", LocalIP: "127.0.0.1", LocalPort: 1, RemotePort: 2, Flags: []string{}},
			}}}
			if err := store.Save(ctx, smaller); err != nil {
				t.Fatalf("second Save failed: %v", err)
			}

			got, err := store.Load(ctx)
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if !reflect.DeepEqual(got, smaller) {
				t.Errorf("expected %+v, got %+v", smaller, got)
			}
		})
	}
}

func TestStores_WithRegistry(t *testing.T) {
	ctx := context.Background()

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			reg, err := registry.New(ctx, store, nil)
			if err != nil {
				t.Fatalf("registry.New failed: %v", err)
			}
			if err := reg.CreateClient(ctx, "office"); err != nil {
				t.Fatal(err)
			}
			if err := reg.AddProxy(ctx, "office", registry.Proxy{
				Name: "web", Type: "tcp", LocalIP: "127.0.0.1", LocalPort: 80, RemotePort: 8080,
			}); err != nil {
				t.Fatal(err)
			}

			// A second registry over the same store sees the same state.
			reopened, err := registry.New(ctx, store, nil)
			if err != nil {
				t.Fatalf("reload failed: %v", err)
			}
			if !reflect.DeepEqual(reopened.List(), reg.List()) {
				t.Errorf("reloaded registry differs: %+v vs %+v", reopened.List(), reg.List())
			}
		})
	}
}

func TestStores_Ping(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			p, ok := store.(registry.Pinger)
			if !ok {
				t.Fatal("store does not implement Pinger")
			}
			if err := p.Ping(context.Background()); err != nil {
				t.Errorf("Ping failed: %v", err)
			}
		})
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		cfg     config.RegistryConfig
		want    string
		wantErr bool
	}{
		{name: "json", cfg: config.RegistryConfig{Backend: "json", Path: filepath.Join(dir, "r.json")}, want: "*storage.JSONFileStore"},
		{name: "default backend", cfg: config.RegistryConfig{Path: filepath.Join(dir, "d.json")}, want: "*storage.JSONFileStore"},
		{name: "sqlite", cfg: config.RegistryConfig{Backend: "sqlite", Path: filepath.Join(dir, "r.db")}, want: "*storage.SQLiteStore"},
		{name: "unknown", cfg: config.RegistryConfig{Backend: "etcd", Path: "x"}, wantErr: true},
		{name: "empty path", cfg: config.RegistryConfig{Backend: "json"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := Open(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Open failed: %v", err)
			}
			defer store.Close()

			if got := reflect.TypeOf(store).String(); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}
