package metrics

import (
	"ntm-hq/ntm/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// RegistryMetrics tracks the size of the client registry.
type RegistryMetrics struct {
	clients prometheus.Gauge
	proxies prometheus.Gauge
}

// NewRegistryMetrics creates and registers registry metrics.
func NewRegistryMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RegistryMetrics {
	rm := &RegistryMetrics{
		clients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: "registry",
			Name:      "clients",
			Help:      "Number of registered clients",
		}),
		proxies: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: "registry",
			Name:      "proxies",
			Help:      "Number of registered proxies across all clients",
		}),
	}

	registry.MustRegister(rm.clients, rm.proxies)
	return rm
}

// SetSize records the current registry size.
func (rm *RegistryMetrics) SetSize(clients, proxies int) {
	rm.clients.Set(float64(clients))
	rm.proxies.Set(float64(proxies))
}
