package config

import "time"

// Default values for configuration fields.
const (
	// Paths defaults
	DefaultClientBinary = "bin/frp/frpc"
	DefaultServerBinary = "bin/frp/frps"
	DefaultClientConfig = "frpc.toml"
	DefaultServerConfig = "frps.toml"

	// Supervisor defaults
	DefaultTerminationTimeout = 10 * time.Second
	DefaultCooldown           = 5 * time.Second
	DefaultBackoff            = "fixed"
	DefaultMaxCooldown        = time.Minute
	DefaultStatsInterval      = time.Second

	// Sync defaults
	DefaultSyncSchedule = "@every 60s"
	DefaultSyncTimeout  = 5 * time.Second

	// API defaults
	DefaultListenHost      = "0.0.0.0"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1048576 // 1MB

	// Registry defaults
	DefaultRegistryBackend    = "json"
	DefaultRegistryJSONPath   = "proxy_config.json"
	DefaultRegistrySQLitePath = "registry.db"

	// Telemetry defaults
	DefaultLoggingLevel     = "info"
	DefaultLoggingFormat    = "json"
	DefaultMetricsPath      = "/metrics"
	DefaultMetricsNamespace = "ntm"
)

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Paths defaults
	if cfg.Paths.ClientBinary == "" {
		cfg.Paths.ClientBinary = DefaultClientBinary
	}
	if cfg.Paths.ServerBinary == "" {
		cfg.Paths.ServerBinary = DefaultServerBinary
	}
	if cfg.Paths.ClientConfig == "" {
		cfg.Paths.ClientConfig = DefaultClientConfig
	}
	if cfg.Paths.ServerConfig == "" {
		cfg.Paths.ServerConfig = DefaultServerConfig
	}

	// Supervisor defaults
	if cfg.Supervisor.TerminationTimeout == 0 {
		cfg.Supervisor.TerminationTimeout = DefaultTerminationTimeout
	}
	if cfg.Supervisor.Cooldown == 0 {
		cfg.Supervisor.Cooldown = DefaultCooldown
	}
	if cfg.Supervisor.Backoff == "" {
		cfg.Supervisor.Backoff = DefaultBackoff
	}
	if cfg.Supervisor.MaxCooldown == 0 {
		cfg.Supervisor.MaxCooldown = DefaultMaxCooldown
	}
	if cfg.Supervisor.StatsInterval == 0 {
		cfg.Supervisor.StatsInterval = DefaultStatsInterval
	}

	// Sync defaults
	if cfg.Sync.Schedule == "" {
		cfg.Sync.Schedule = DefaultSyncSchedule
	}
	if cfg.Sync.Timeout == 0 {
		cfg.Sync.Timeout = DefaultSyncTimeout
	}

	// API defaults
	if cfg.API.ListenHost == "" {
		cfg.API.ListenHost = DefaultListenHost
	}
	if cfg.API.ReadTimeout == 0 {
		cfg.API.ReadTimeout = DefaultReadTimeout
	}
	if cfg.API.WriteTimeout == 0 {
		cfg.API.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.API.IdleTimeout == 0 {
		cfg.API.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.API.ShutdownTimeout == 0 {
		cfg.API.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.API.MaxHeaderBytes == 0 {
		cfg.API.MaxHeaderBytes = DefaultMaxHeaderBytes
	}

	// Registry defaults; the path depends on the backend
	if cfg.Registry.Backend == "" {
		cfg.Registry.Backend = DefaultRegistryBackend
	}
	if cfg.Registry.Path == "" {
		if cfg.Registry.Backend == "sqlite" {
			cfg.Registry.Path = DefaultRegistrySQLitePath
		} else {
			cfg.Registry.Path = DefaultRegistryJSONPath
		}
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
}
