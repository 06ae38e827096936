package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"ntm-hq/ntm/pkg/registry"
)

const (
	typeClient = "Client"
	typeProxy  = "Proxy"
)

// document is the on-disk layout of the JSON registry file.
type document struct {
	Clients []clientRecord `json:"clients"`
}

type clientRecord struct {
	Type    string        `json:"__type__"`
	ID      string        `json:"id"`
	Proxies []proxyRecord `json:"proxies"`
}

type proxyRecord struct {
	Type       string   `json:"__type__"`
	Name       string   `json:"name"`
	ProxyType  string   `json:"type"`
	LocalIP    string   `json:"localIP"`
	LocalPort  int      `json:"localPort"`
	RemotePort int      `json:"remotePort"`
	Flags      []string `json:"flags"`
}

// JSONFileStore persists the registry to a single JSON file.
// Saves write a temporary file in the same directory and rename it over the
// target, so a crash mid-write leaves the previous document intact.
type JSONFileStore struct {
	path string
	mu   sync.Mutex
}

// NewJSONFileStore creates a store backed by the file at path. The file does
// not need to exist yet.
func NewJSONFileStore(path string) (*JSONFileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("registry path cannot be empty")
	}
	return &JSONFileStore{path: path}, nil
}

// Path returns the file the store writes to.
func (s *JSONFileStore) Path() string { return s.path }

// Load implements registry.Store. A missing or empty file is an empty registry.
func (s *JSONFileStore) Load(ctx context.Context) ([]registry.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []registry.Client{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read registry file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []registry.Client{}, nil
	}

	return decodeDocument(data)
}

// Save implements registry.Store.
func (s *JSONFileStore) Save(ctx context.Context, clients []registry.Client) error {
	data, err := encodeDocument(clients)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	return writeAtomic(s.path, data)
}

// Ping implements registry.Pinger by checking the parent directory exists.
func (s *JSONFileStore) Ping(ctx context.Context) error {
	dir := filepath.Dir(s.path)
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("registry directory unavailable: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("registry directory %s is not a directory", dir)
	}
	return nil
}

// Close implements registry.Store.
func (s *JSONFileStore) Close() error { return nil }

func decodeDocument(data []byte) ([]registry.Client, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse registry file: %w", err)
	}

	clients := make([]registry.Client, 0, len(doc.Clients))
	for i, rec := range doc.Clients {
		if rec.Type != typeClient {
			return nil, fmt.Errorf("clients[%d]: unexpected __type__ %q", i, rec.Type)
		}

		c := registry.Client{ID: rec.ID, Proxies: make([]registry.Proxy, 0, len(rec.Proxies))}
		for j, p := range rec.Proxies {
			if p.Type != typeProxy {
				return nil, fmt.Errorf("clients[%d].proxies[%d]: unexpected __type__ %q", i, j, p.Type)
			}
			flags := p.Flags
			if flags == nil {
				flags = []string{}
			}
			c.Proxies = append(c.Proxies, registry.Proxy{
				Name:       p.Name,
				Type:       p.ProxyType,
				LocalIP:    p.LocalIP,
				LocalPort:  p.LocalPort,
				RemotePort: p.RemotePort,
				Flags:      flags,
			})
		}
		clients = append(clients, c)
	}
	return clients, nil
}

func encodeDocument(clients []registry.Client) ([]byte, error) {
	doc := document{Clients: make([]clientRecord, 0, len(clients))}
	for _, c := range clients {
		rec := clientRecord{Type: typeClient, ID: c.ID, Proxies: make([]proxyRecord, 0, len(c.Proxies))}
		for _, p := range c.Proxies {
			flags := p.Flags
			if flags == nil {
				flags = []string{}
			}
			rec.Proxies = append(rec.Proxies, proxyRecord{
				Type:       typeProxy,
				Name:       p.Name,
				ProxyType:  p.Type,
				LocalIP:    p.LocalIP,
				LocalPort:  p.LocalPort,
				RemotePort: p.RemotePort,
				Flags:      flags,
			})
		}
		doc.Clients = append(doc.Clients, rec)
	}

	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode registry: %w", err)
	}
	return append(data, '\n'), nil
}

// writeAtomic replaces path with data via a temporary file and rename.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write registry: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync registry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close registry: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace registry file: %w", err)
	}
	return nil
}
