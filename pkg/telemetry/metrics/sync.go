package metrics

import (
	"time"

	"ntm-hq/ntm/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// SyncMetrics tracks configuration synchronization cycles.
type SyncMetrics struct {
	cycles   *prometheus.CounterVec
	duration prometheus.Histogram
	lastRun  prometheus.Gauge
}

// NewSyncMetrics creates and registers sync metrics.
func NewSyncMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *SyncMetrics {
	sm := &SyncMetrics{
		cycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "sync",
				Name:      "cycles_total",
				Help:      "Configuration sync cycles by result",
			},
			[]string{"result"},
		),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: "sync",
			Name:      "duration_seconds",
			Help:      "Duration of configuration sync cycles",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: "sync",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last sync cycle",
		}),
	}

	registry.MustRegister(sm.cycles, sm.duration, sm.lastRun)
	return sm
}

// RecordSync records one cycle.
func (sm *SyncMetrics) RecordSync(result string, duration time.Duration) {
	sm.cycles.WithLabelValues(result).Inc()
	sm.duration.Observe(duration.Seconds())
	sm.lastRun.SetToCurrentTime()
}
