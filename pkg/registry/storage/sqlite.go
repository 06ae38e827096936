package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"ntm-hq/ntm/pkg/registry"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteStore persists the registry in a SQLite database.
// Clients and proxies are stored in two tables with explicit position
// columns so ordering survives a reload.
type SQLiteStore struct {
	db        *sql.DB
	path      string
	mu        sync.Mutex
	closeOnce sync.Once
}

// SQLiteConfig configures the SQLite store.
type SQLiteConfig struct {
	// Path is the database file.
	Path string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// NewSQLiteStore opens (and if needed creates) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	return NewSQLiteStoreWithConfig(SQLiteConfig{Path: path})
}

// NewSQLiteStoreWithConfig opens the database with custom settings.
func NewSQLiteStoreWithConfig(cfg SQLiteConfig) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)",
		cfg.Path, cfg.BusyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &SQLiteStore{db: db, path: cfg.Path}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS clients (
		id TEXT PRIMARY KEY,
		position INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS proxies (
		client_id TEXT NOT NULL REFERENCES clients(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		position INTEGER NOT NULL,
		type TEXT NOT NULL,
		local_ip TEXT NOT NULL,
		local_port INTEGER NOT NULL,
		remote_port INTEGER NOT NULL,
		flags TEXT NOT NULL,
		PRIMARY KEY (client_id, name)
	);

	CREATE INDEX IF NOT EXISTS idx_clients_position ON clients(position);
	CREATE INDEX IF NOT EXISTS idx_proxies_position ON proxies(client_id, position);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Load implements registry.Store.
func (s *SQLiteStore) Load(ctx context.Context) ([]registry.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id FROM clients ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}

	clients := []registry.Client{}
	index := map[string]int{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		index[id] = len(clients)
		clients = append(clients, registry.Client{ID: id, Proxies: []registry.Proxy{}})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("error iterating clients: %w", err)
	}
	rows.Close()

	rows, err = s.db.QueryContext(ctx, `
		SELECT client_id, name, type, local_ip, local_port, remote_port, flags
		FROM proxies
		ORDER BY client_id, position
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list proxies: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			clientID  string
			p         registry.Proxy
			flagsJSON string
		)
		if err := rows.Scan(&clientID, &p.Name, &p.Type, &p.LocalIP, &p.LocalPort, &p.RemotePort, &flagsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan proxy: %w", err)
		}
		if err := json.Unmarshal([]byte(flagsJSON), &p.Flags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal flags of proxy %q: %w", p.Name, err)
		}
		if p.Flags == nil {
			p.Flags = []string{}
		}

		i, ok := index[clientID]
		if !ok {
			return nil, fmt.Errorf("proxy %q references unknown client %q", p.Name, clientID)
		}
		clients[i].Proxies = append(clients[i].Proxies, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating proxies: %w", err)
	}

	return clients, nil
}

// Save implements registry.Store. The whole list is replaced in one
// transaction.
func (s *SQLiteStore) Save(ctx context.Context, clients []registry.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM proxies`); err != nil {
		return fmt.Errorf("failed to clear proxies: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM clients`); err != nil {
		return fmt.Errorf("failed to clear clients: %w", err)
	}

	clientStmt, err := tx.PrepareContext(ctx, `INSERT INTO clients (id, position) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare client insert: %w", err)
	}
	defer clientStmt.Close()

	proxyStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO proxies (client_id, name, position, type, local_ip, local_port, remote_port, flags)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare proxy insert: %w", err)
	}
	defer proxyStmt.Close()

	for i, c := range clients {
		if _, err := clientStmt.ExecContext(ctx, c.ID, i); err != nil {
			return fmt.Errorf("failed to save client %q: %w", c.ID, err)
		}
		for j, p := range c.Proxies {
			flags := p.Flags
			if flags == nil {
				flags = []string{}
			}
			flagsJSON, err := json.Marshal(flags)
			if err != nil {
				return fmt.Errorf("failed to marshal flags of proxy %q: %w", p.Name, err)
			}
			if _, err := proxyStmt.ExecContext(ctx,
				c.ID, p.Name, j, p.Type, p.LocalIP, p.LocalPort, p.RemotePort, string(flagsJSON),
			); err != nil {
				return fmt.Errorf("failed to save proxy %q: %w", p.Name, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit registry: %w", err)
	}
	return nil
}

// Ping implements registry.Pinger.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.db.Close()
	})
	return err
}
