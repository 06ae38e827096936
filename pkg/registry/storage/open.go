package storage

import (
	"fmt"

	"ntm-hq/ntm/pkg/config"
	"ntm-hq/ntm/pkg/registry"
)

// Open returns the registry store selected by cfg.
func Open(cfg config.RegistryConfig) (registry.Store, error) {
	switch cfg.Backend {
	case "", "json":
		s, err := NewJSONFileStore(cfg.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "sqlite":
		s, err := NewSQLiteStore(cfg.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown registry backend %q", cfg.Backend)
	}
}
