// Package config provides configuration management for NTM.
//
// Configuration is read once at startup from a YAML file, completed with
// default values, overridden from the environment and validated. The
// resulting Config is never mutated afterwards and is shared by every
// component without synchronization.
//
// # Bootstrap Keys
//
// The top-level keys describe the role of this instance:
//
//	type: client              # or "server"
//	server-token: "s3cret"    # shared secret for every control-plane request
//	master-port: 7500         # control API port (server) or remote control port (client)
//
//	# client role
//	client-id: "office-nas"
//	server-address: "203.0.113.10:7000"  # optional; absent means standalone
//
//	# server role
//	bind-port: 7000
//
// # Ambient Sections
//
// The remaining sections tune the supervisor, the synchronizer, the control
// API, registry persistence and telemetry:
//
//	paths:
//	  client_binary: "bin/frp/frpc"
//	  client_config: "frpc.toml"
//	supervisor:
//	  termination_timeout: "10s"
//	  cooldown: "5s"
//	  backoff: "fixed"          # or "exponential"
//	sync:
//	  schedule: "@every 60s"
//	  timeout: "5s"
//	registry:
//	  backend: "json"           # or "sqlite"
//	  path: "proxy_config.json"
//	telemetry:
//	  logging:
//	    level: "info"
//	    format: "json"
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention NTM_SECTION_FIELD, for
// example NTM_SERVER_TOKEN, NTM_REGISTRY_BACKEND or NTM_LOGGING_LEVEL.
// Environment variables always take precedence over file-based configuration.
//
// # Validation
//
// Validation collects every problem before failing:
//
//	configuration validation failed with 2 errors:
//	  - server-token: field is required
//	  - client-id: field is required for client role
//
// A validation failure is fatal; no worker is started with an invalid
// configuration.
package config
