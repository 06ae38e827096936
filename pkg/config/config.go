package config

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Roles an NTM instance can take.
const (
	RoleClient = "client"
	RoleServer = "server"
)

// Config is the root configuration structure for NTM.
type Config struct {
	// Type is the role of this instance: "client" or "server".
	Type string `yaml:"type"`

	// ServerToken is the shared secret. It authenticates the external
	// process against frps and every control API request.
	ServerToken string `yaml:"server-token"`

	// MasterPort is the control API port. In server role the API listens on
	// it; in client role it is the port of the remote control API.
	MasterPort int `yaml:"master-port"`

	// ClientID identifies this client in the server registry.
	// Required in client role.
	ClientID string `yaml:"client-id"`

	// ServerAddress is the frps address as "host:port". Optional in client
	// role; when empty the client runs standalone and never polls.
	ServerAddress string `yaml:"server-address"`

	// BindPort is the port frps accepts tunnel connections on.
	// Required in server role.
	BindPort int `yaml:"bind-port"`

	// Paths locates the external binaries and their generated config files.
	Paths PathsConfig `yaml:"paths"`

	// Supervisor tunes the process supervisor.
	Supervisor SupervisorConfig `yaml:"supervisor"`

	// Sync tunes the configuration synchronizer (client role).
	Sync SyncConfig `yaml:"sync"`

	// API tunes the control API HTTP server (server role).
	API APIConfig `yaml:"api"`

	// Registry selects the registry persistence backend (server role).
	Registry RegistryConfig `yaml:"registry"`

	// Telemetry contains logging and metrics configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// PathsConfig contains filesystem locations used by the supervisor.
type PathsConfig struct {
	// ClientBinary is the frpc executable.
	// Default: "bin/frp/frpc"
	ClientBinary string `yaml:"client_binary"`

	// ServerBinary is the frps executable.
	// Default: "bin/frp/frps"
	ServerBinary string `yaml:"server_binary"`

	// ClientConfig is the rendered frpc configuration file.
	// Default: "frpc.toml"
	ClientConfig string `yaml:"client_config"`

	// ServerConfig is the rendered frps configuration file.
	// Default: "frps.toml"
	ServerConfig string `yaml:"server_config"`

	// ServerExtraConfig is an optional operator-maintained TOML fragment
	// appended verbatim to the rendered frps configuration.
	ServerExtraConfig string `yaml:"server_extra_config"`

	// WorkDir is the working directory of the external process.
	// Default: "" (inherit)
	WorkDir string `yaml:"work_dir"`
}

// SupervisorConfig contains configuration for the process supervisor.
type SupervisorConfig struct {
	// TerminationTimeout bounds the wait for a gracefully terminated process
	// before it is killed.
	// Default: 10s
	TerminationTimeout time.Duration `yaml:"termination_timeout"`

	// Cooldown is the delay before relaunching after a restart or crash.
	// Default: 5s
	Cooldown time.Duration `yaml:"cooldown"`

	// Backoff is the relaunch delay policy after crashes.
	// Options: "fixed" (always Cooldown), "exponential" (doubles up to MaxCooldown)
	// Default: "fixed"
	Backoff string `yaml:"backoff"`

	// MaxCooldown caps the exponential policy.
	// Default: 1m
	MaxCooldown time.Duration `yaml:"max_cooldown"`

	// StatsInterval is how often the running process is sampled for
	// CPU and memory usage.
	// Default: 1s
	StatsInterval time.Duration `yaml:"stats_interval"`

	// WatchConfig restarts the process when an operator-managed config file
	// changes on disk (standalone client config, or the server extra config).
	// Default: false
	WatchConfig bool `yaml:"watch_config"`
}

// SyncConfig contains configuration for the configuration synchronizer.
type SyncConfig struct {
	// Schedule is a cron expression or descriptor for fetch cycles.
	// Default: "@every 60s"
	Schedule string `yaml:"schedule"`

	// Timeout bounds a single fetch request.
	// Default: 5s
	Timeout time.Duration `yaml:"timeout"`

	// SkipUnchanged skips the write and restart when the fetched
	// configuration is byte-identical to the last one written.
	// Default: false (restart every cycle)
	SkipUnchanged bool `yaml:"skip_unchanged"`
}

// APIConfig contains configuration for the control API HTTP server.
type APIConfig struct {
	// ListenHost is the interface the API binds to; the port is MasterPort.
	// Default: "0.0.0.0"
	ListenHost string `yaml:"listen_host"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response.
	// Default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle timeout.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits request header size.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`
}

// RegistryConfig contains configuration for registry persistence.
type RegistryConfig struct {
	// Backend selects the storage format.
	// Options: "json", "sqlite"
	// Default: "json"
	Backend string `yaml:"backend"`

	// Path is the single file holding the registry.
	// Default: "proxy_config.json" (json), "registry.db" (sqlite)
	Path string `yaml:"path"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains structured logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains Prometheus metrics configuration.
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains configuration for structured logging.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the output format: "json" or "text".
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file:line in log records.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// RedactSecrets masks the shared secret and token query values in
	// logged attributes.
	// Default: true
	RedactSecrets *bool `yaml:"redact_secrets"`
}

// SecretsRedacted reports whether secret redaction is on.
func (l LoggingConfig) SecretsRedacted() bool {
	return l.RedactSecrets == nil || *l.RedactSecrets
}

// MetricsConfig contains configuration for Prometheus metrics.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected and exposed.
	// Default: true
	Enabled *bool `yaml:"enabled"`

	// Path is the HTTP path of the metrics endpoint on the control API.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace prefixes every metric name.
	// Default: "ntm"
	Namespace string `yaml:"namespace"`

	// Listen is an address ("host:port" or ":port") on which a client node
	// serves its metrics. Servers expose metrics on the control API instead.
	// Default: "" (client metrics are not served)
	Listen string `yaml:"listen"`
}

// MetricsEnabled reports whether metrics collection is on.
func (m MetricsConfig) MetricsEnabled() bool {
	return m.Enabled == nil || *m.Enabled
}

// IsClient reports whether this instance runs in client role.
func (c *Config) IsClient() bool { return c.Type == RoleClient }

// IsServer reports whether this instance runs in server role.
func (c *Config) IsServer() bool { return c.Type == RoleServer }

// Standalone reports whether a client has no remote server to poll.
func (c *Config) Standalone() bool {
	return c.IsClient() && c.ServerAddress == ""
}

// ServerHost returns the host part of ServerAddress.
func (c *Config) ServerHost() string {
	host, _, err := net.SplitHostPort(c.ServerAddress)
	if err != nil {
		return ""
	}
	return host
}

// ControlURL is the base URL of the remote control API a client polls.
func (c *Config) ControlURL() string {
	return "http://" + net.JoinHostPort(c.ServerHost(), strconv.Itoa(c.MasterPort))
}

// ListenAddress is the address the control API binds to.
func (c *Config) ListenAddress() string {
	return net.JoinHostPort(c.API.ListenHost, strconv.Itoa(c.MasterPort))
}

// Process returns the binary and rendered config file for this role.
func (c *Config) Process() (binary, configPath string) {
	if c.IsServer() {
		return c.Paths.ServerBinary, c.Paths.ServerConfig
	}
	return c.Paths.ClientBinary, c.Paths.ClientConfig
}

// String summarizes the role-specific settings without the shared secret.
func (c *Config) String() string {
	if c.IsServer() {
		return fmt.Sprintf("server bind-port=%d master-port=%d registry=%s:%s",
			c.BindPort, c.MasterPort, c.Registry.Backend, c.Registry.Path)
	}
	if c.Standalone() {
		return fmt.Sprintf("client id=%s standalone", c.ClientID)
	}
	return fmt.Sprintf("client id=%s server=%s master-port=%d", c.ClientID, c.ServerAddress, c.MasterPort)
}
