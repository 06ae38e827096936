// Package telemetry groups the observability packages of NTM.
//
// # Components
//
//   - logging: slog construction and redaction of the shared secret
//   - metrics: Prometheus metrics for the control API, supervisor, registry and sync
//   - health: liveness, readiness and version endpoints
//
// # Usage
//
//	logger, err := logging.New(logging.FromConfig(cfg.Telemetry.Logging, cfg.ServerToken))
//	if err != nil {
//	    return err
//	}
//	slog.SetDefault(logger)
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	sup := supervisor.New(supervisor.FromConfig(cfg), launcher, supervisor.WithRecorder(collector))
//
//	checker := health.New(0)
//	checker.RegisterCheck("registry", health.PingCheck(reg))
//
// Metrics are served on telemetry.metrics.path of the control API; the
// health endpoints are always mounted and need no token.
package telemetry
