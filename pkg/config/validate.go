package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "sync.schedule").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateBootstrap(cfg)...)
	errs = append(errs, validateSupervisor(&cfg.Supervisor)...)
	errs = append(errs, validateSync(&cfg.Sync)...)
	errs = append(errs, validateAPI(&cfg.API)...)
	errs = append(errs, validateRegistry(&cfg.Registry)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

// validateBootstrap validates the role-specific top-level keys.
func validateBootstrap(cfg *Config) []FieldError {
	var errs []FieldError

	switch cfg.Type {
	case "":
		errs = append(errs, FieldError{Field: "type", Message: "field is required"})
	case RoleClient, RoleServer:
	default:
		errs = append(errs, FieldError{
			Field:   "type",
			Message: fmt.Sprintf("invalid type %q (must be client or server)", cfg.Type),
		})
	}

	if cfg.ServerToken == "" {
		errs = append(errs, FieldError{Field: "server-token", Message: "field is required"})
	}

	if cfg.MasterPort == 0 {
		errs = append(errs, FieldError{Field: "master-port", Message: "field is required"})
	} else if !validPort(cfg.MasterPort) {
		errs = append(errs, FieldError{Field: "master-port", Message: "port must be between 1 and 65535"})
	}

	switch cfg.Type {
	case RoleClient:
		if cfg.ClientID == "" {
			errs = append(errs, FieldError{Field: "client-id", Message: "field is required for client role"})
		}
		if cfg.ServerAddress != "" {
			if err := validateHostPort(cfg.ServerAddress); err != nil {
				errs = append(errs, FieldError{
					Field:   "server-address",
					Message: fmt.Sprintf("must be host:port: %v", err),
				})
			}
		}
	case RoleServer:
		if cfg.BindPort == 0 {
			errs = append(errs, FieldError{Field: "bind-port", Message: "field is required for server role"})
		} else if !validPort(cfg.BindPort) {
			errs = append(errs, FieldError{Field: "bind-port", Message: "port must be between 1 and 65535"})
		}
	}

	return errs
}

// validateSupervisor validates supervisor configuration.
func validateSupervisor(cfg *SupervisorConfig) []FieldError {
	var errs []FieldError

	if cfg.TerminationTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "supervisor.termination_timeout",
			Message: "termination timeout must be positive",
		})
	}
	if cfg.Cooldown < 0 {
		errs = append(errs, FieldError{
			Field:   "supervisor.cooldown",
			Message: "cooldown must be positive",
		})
	}
	if cfg.StatsInterval < 0 {
		errs = append(errs, FieldError{
			Field:   "supervisor.stats_interval",
			Message: "stats interval must be positive",
		})
	}

	switch cfg.Backoff {
	case "fixed":
	case "exponential":
		if cfg.MaxCooldown < cfg.Cooldown {
			errs = append(errs, FieldError{
				Field:   "supervisor.max_cooldown",
				Message: "max cooldown must not be less than cooldown",
			})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "supervisor.backoff",
			Message: fmt.Sprintf("invalid backoff policy %q (must be fixed or exponential)", cfg.Backoff),
		})
	}

	return errs
}

// validateSync validates synchronizer configuration.
func validateSync(cfg *SyncConfig) []FieldError {
	var errs []FieldError

	if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
		errs = append(errs, FieldError{
			Field:   "sync.schedule",
			Message: fmt.Sprintf("invalid schedule %q: %v", cfg.Schedule, err),
		})
	}
	if cfg.Timeout < 0 {
		errs = append(errs, FieldError{
			Field:   "sync.timeout",
			Message: "timeout must be positive",
		})
	}

	return errs
}

// validateAPI validates control API configuration.
func validateAPI(cfg *APIConfig) []FieldError {
	var errs []FieldError

	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{Field: "api.read_timeout", Message: "read timeout must be positive"})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{Field: "api.write_timeout", Message: "write timeout must be positive"})
	}
	if cfg.IdleTimeout < 0 {
		errs = append(errs, FieldError{Field: "api.idle_timeout", Message: "idle timeout must be positive"})
	}
	if cfg.MaxHeaderBytes < 0 {
		errs = append(errs, FieldError{Field: "api.max_header_bytes", Message: "max header bytes must be non-negative"})
	}

	return errs
}

// validateRegistry validates registry persistence configuration.
func validateRegistry(cfg *RegistryConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "json", "sqlite":
	default:
		errs = append(errs, FieldError{
			Field:   "registry.backend",
			Message: fmt.Sprintf("invalid backend %q (must be json or sqlite)", cfg.Backend),
		})
	}
	if cfg.Path == "" {
		errs = append(errs, FieldError{Field: "registry.path", Message: "registry path is required"})
	}

	return errs
}

// validateTelemetry validates telemetry configuration.
func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid log level %q (must be debug, info, warn, or error)", cfg.Logging.Level),
		})
	}

	switch cfg.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid log format %q (must be json or text)", cfg.Logging.Format),
		})
	}

	if !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: "metrics path must start with /",
		})
	}

	if cfg.Metrics.Listen != "" {
		if err := validateListenAddress(cfg.Metrics.Listen); err != nil {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.listen",
				Message: fmt.Sprintf("must be host:port or :port: %v", err),
			})
		}
	}

	return errs
}

func validPort(port int) bool {
	return port > 0 && port <= 65535
}

// validateListenAddress checks a bind address; the host may be empty.
func validateListenAddress(addr string) error {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}
	p, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("invalid port %q", port)
	}
	if !validPort(p) {
		return fmt.Errorf("port %d out of range", p)
	}
	return nil
}

// validateHostPort checks an address of the form host:port.
func validateHostPort(addr string) error {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}
	if host == "" {
		return fmt.Errorf("missing host")
	}
	p, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("invalid port %q", port)
	}
	if !validPort(p) {
		return fmt.Errorf("port %d out of range", p)
	}
	return nil
}
