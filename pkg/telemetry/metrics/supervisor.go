package metrics

import (
	"ntm-hq/ntm/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// supervisorStates are the values of the state label. Kept in sync with
// supervisor.States; this package does not import supervisor.
var supervisorStates = []string{"idle", "launching", "running", "terminating", "crashed", "backoff"}

// SupervisorMetrics tracks the supervised process.
//
// Metrics:
//   - ntm_supervisor_state: 1 for the current state, 0 otherwise
//   - ntm_supervisor_launches_total: Launch attempts by result
//   - ntm_supervisor_exits_total: Process exits by reason
//   - ntm_supervisor_process_cpu_percent: CPU usage of the process
//   - ntm_supervisor_process_resident_memory_bytes: RSS of the process
type SupervisorMetrics struct {
	state    *prometheus.GaugeVec
	launches *prometheus.CounterVec
	exits    *prometheus.CounterVec
	cpu      prometheus.Gauge
	rss      prometheus.Gauge
}

// NewSupervisorMetrics creates and registers supervisor metrics.
func NewSupervisorMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *SupervisorMetrics {
	sm := &SupervisorMetrics{
		state: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: "supervisor",
				Name:      "state",
				Help:      "Current supervisor state (1 = active)",
			},
			[]string{"state"},
		),

		launches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "supervisor",
				Name:      "launches_total",
				Help:      "Process launch attempts",
			},
			[]string{"result"},
		),

		exits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "supervisor",
				Name:      "exits_total",
				Help:      "Process exits by reason",
			},
			[]string{"reason"},
		),

		cpu: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: "supervisor",
			Name:      "process_cpu_percent",
			Help:      "CPU usage of the supervised process",
		}),

		rss: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: "supervisor",
			Name:      "process_resident_memory_bytes",
			Help:      "Resident memory of the supervised process",
		}),
	}

	registry.MustRegister(sm.state, sm.launches, sm.exits, sm.cpu, sm.rss)

	for _, s := range supervisorStates {
		sm.state.WithLabelValues(s).Set(0)
	}
	sm.state.WithLabelValues("idle").Set(1)
	return sm
}

// SetState marks state as the current one.
func (sm *SupervisorMetrics) SetState(state string) {
	for _, s := range supervisorStates {
		if s == state {
			sm.state.WithLabelValues(s).Set(1)
		} else {
			sm.state.WithLabelValues(s).Set(0)
		}
	}
	if state != "running" {
		sm.cpu.Set(0)
		sm.rss.Set(0)
	}
}

// RecordLaunch records a launch attempt.
func (sm *SupervisorMetrics) RecordLaunch(ok bool) {
	result := "success"
	if !ok {
		result = "failure"
	}
	sm.launches.WithLabelValues(result).Inc()
}

// RecordExit records a process exit.
func (sm *SupervisorMetrics) RecordExit(reason string) {
	sm.exits.WithLabelValues(reason).Inc()
}

// RecordSample records a resource usage sample.
func (sm *SupervisorMetrics) RecordSample(cpuPercent float64, rssBytes uint64) {
	sm.cpu.Set(cpuPercent)
	sm.rss.Set(float64(rssBytes))
}
