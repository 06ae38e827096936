package metrics

import (
	"time"

	"ntm-hq/ntm/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Collector is the main orchestrator for all Prometheus metrics in NTM.
// It manages metric registration and provides a unified interface for
// recording metrics across all components.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry
	enabled  bool

	apiMetrics        *APIMetrics
	supervisorMetrics *SupervisorMetrics
	registryMetrics   *RegistryMetrics
	syncMetrics       *SyncMetrics
}

// NewCollector creates a new metrics collector with the specified configuration
// and Prometheus registry. If registry is nil, a new registry with the Go and
// process collectors is created.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}

	c := &Collector{
		config:   cfg,
		registry: registry,
		enabled:  cfg.MetricsEnabled(),
	}

	c.apiMetrics = NewAPIMetrics(cfg, registry)
	c.supervisorMetrics = NewSupervisorMetrics(cfg, registry)
	c.registryMetrics = NewRegistryMetrics(cfg, registry)
	c.syncMetrics = NewSyncMetrics(cfg, registry)

	return c
}

// Enabled reports whether the collector records anything.
func (c *Collector) Enabled() bool {
	return c.enabled
}

// RecordAPIRequest records a completed control API request.
//
// Parameters:
//   - method: HTTP method
//   - route: matched route pattern (e.g., "PUT /client/{id}/proxy")
//   - status: HTTP status code
//   - duration: request duration
func (c *Collector) RecordAPIRequest(method, route string, status int, duration time.Duration) {
	if !c.enabled {
		return
	}

	c.apiMetrics.RecordRequest(method, route, status, duration)
}

// SupervisorState implements supervisor.Recorder.
func (c *Collector) SupervisorState(state string) {
	if !c.enabled {
		return
	}

	c.supervisorMetrics.SetState(state)
}

// RecordLaunch implements supervisor.Recorder.
func (c *Collector) RecordLaunch(ok bool) {
	if !c.enabled {
		return
	}

	c.supervisorMetrics.RecordLaunch(ok)
}

// RecordExit implements supervisor.Recorder.
func (c *Collector) RecordExit(reason string) {
	if !c.enabled {
		return
	}

	c.supervisorMetrics.RecordExit(reason)
}

// RecordProcessSample implements supervisor.Recorder.
func (c *Collector) RecordProcessSample(cpuPercent float64, rssBytes uint64) {
	if !c.enabled {
		return
	}

	c.supervisorMetrics.RecordSample(cpuPercent, rssBytes)
}

// RegistrySize implements registry.Observer.
func (c *Collector) RegistrySize(clients, proxies int) {
	if !c.enabled {
		return
	}

	c.registryMetrics.SetSize(clients, proxies)
}

// RecordSync implements syncer.Recorder.
func (c *Collector) RecordSync(result string, duration time.Duration) {
	if !c.enabled {
		return
	}

	c.syncMetrics.RecordSync(result, duration)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
