package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
// The configuration is not modified by environment variables; use LoadConfigWithEnvOverrides
// for that functionality.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Parse decodes a YAML document into a Config without applying defaults
// or validating it.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention NTM_SECTION_FIELD (e.g., NTM_REGISTRY_BACKEND).
// Environment variables always take precedence over file-based configuration.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	// Overrides run before defaults so that NTM_REGISTRY_BACKEND also
	// selects the matching default registry path.
	applyEnvOverrides(cfg)
	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	// Bootstrap keys
	if val := os.Getenv("NTM_TYPE"); val != "" {
		cfg.Type = val
	}
	if val := os.Getenv("NTM_SERVER_TOKEN"); val != "" {
		cfg.ServerToken = val
	}
	if val := os.Getenv("NTM_MASTER_PORT"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.MasterPort = i
		}
	}
	if val := os.Getenv("NTM_CLIENT_ID"); val != "" {
		cfg.ClientID = val
	}
	if val := os.Getenv("NTM_SERVER_ADDRESS"); val != "" {
		cfg.ServerAddress = val
	}
	if val := os.Getenv("NTM_BIND_PORT"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.BindPort = i
		}
	}

	// Paths overrides
	if val := os.Getenv("NTM_PATHS_CLIENT_BINARY"); val != "" {
		cfg.Paths.ClientBinary = val
	}
	if val := os.Getenv("NTM_PATHS_SERVER_BINARY"); val != "" {
		cfg.Paths.ServerBinary = val
	}
	if val := os.Getenv("NTM_PATHS_CLIENT_CONFIG"); val != "" {
		cfg.Paths.ClientConfig = val
	}
	if val := os.Getenv("NTM_PATHS_SERVER_CONFIG"); val != "" {
		cfg.Paths.ServerConfig = val
	}

	// Supervisor overrides
	if val := os.Getenv("NTM_SUPERVISOR_COOLDOWN"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Supervisor.Cooldown = d
		}
	}
	if val := os.Getenv("NTM_SUPERVISOR_BACKOFF"); val != "" {
		cfg.Supervisor.Backoff = val
	}
	if val := os.Getenv("NTM_SUPERVISOR_WATCH_CONFIG"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Supervisor.WatchConfig = b
		}
	}

	// Sync overrides
	if val := os.Getenv("NTM_SYNC_SCHEDULE"); val != "" {
		cfg.Sync.Schedule = val
	}
	if val := os.Getenv("NTM_SYNC_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Sync.Timeout = d
		}
	}
	if val := os.Getenv("NTM_SYNC_SKIP_UNCHANGED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Sync.SkipUnchanged = b
		}
	}

	// API overrides
	if val := os.Getenv("NTM_API_LISTEN_HOST"); val != "" {
		cfg.API.ListenHost = val
	}

	// Registry overrides
	if val := os.Getenv("NTM_REGISTRY_BACKEND"); val != "" {
		cfg.Registry.Backend = val
	}
	if val := os.Getenv("NTM_REGISTRY_PATH"); val != "" {
		cfg.Registry.Path = val
	}

	// Telemetry overrides
	if val := os.Getenv("NTM_LOGGING_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("NTM_LOGGING_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := os.Getenv("NTM_METRICS_LISTEN"); val != "" {
		cfg.Telemetry.Metrics.Listen = val
	}
	if val := os.Getenv("NTM_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = &b
		}
	}
}
