// Package metrics provides Prometheus metrics collection for NTM.
//
// # Metrics Categories
//
//   - API metrics: control API request count and duration by route
//   - Supervisor metrics: state, launches, exits, CPU and memory of the
//     supervised process
//   - Registry metrics: number of clients and proxies
//   - Sync metrics: synchronization cycles by result and their duration
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//
//	sup := supervisor.New(supCfg, launcher, supervisor.WithRecorder(collector))
//	reg, _ := registry.New(ctx, store, logger, registry.WithObserver(collector))
//
//	mux.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
//
// The Collector implements supervisor.Recorder, registry.Observer and
// syncer.Recorder, so components report through it without importing this
// package.
//
// # Prometheus Endpoint
//
// All metrics are exposed in standard Prometheus format:
//
//	# HELP ntm_supervisor_launches_total Process launch attempts
//	# TYPE ntm_supervisor_launches_total counter
//	ntm_supervisor_launches_total{result="success"} 3
//
// When metrics are disabled the Collector still satisfies every recorder
// interface but records nothing.
package metrics
