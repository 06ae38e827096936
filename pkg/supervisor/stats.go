package supervisor

import (
	"context"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// Stats is a snapshot of the supervisor and its process.
type Stats struct {
	State      State     `json:"state"`
	Binary     string    `json:"binary"`
	ConfigPath string    `json:"config_path"`
	PID        int       `json:"pid,omitempty"`
	StartedAt  time.Time `json:"started_at,omitempty"`

	// UptimeSeconds is how long the current process has been running.
	UptimeSeconds float64 `json:"uptime_seconds"`

	// Launches counts successful process starts.
	Launches int `json:"launches"`

	// Restarts counts terminations requested through Restart.
	Restarts int `json:"restarts"`

	// Crashes counts unexpected exits and launch failures.
	Crashes int `json:"crashes"`

	CPUPercent float64 `json:"cpu_percent"`
	RSSBytes   uint64  `json:"rss_bytes"`
}

// Sample is a resource usage reading of a process.
type Sample struct {
	CPUPercent float64
	RSSBytes   uint64
}

// Sampler reads resource usage of a process.
type Sampler interface {
	Sample(ctx context.Context, pid int) (Sample, error)
}

// ProcessSampler samples processes through gopsutil. CPU usage is the
// percentage since the previous sample of the same pid.
type ProcessSampler struct {
	mu   sync.Mutex
	proc *process.Process
}

// NewProcessSampler creates a ProcessSampler.
func NewProcessSampler() *ProcessSampler {
	return &ProcessSampler{}
}

// Sample implements Sampler.
func (s *ProcessSampler) Sample(ctx context.Context, pid int) (Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.proc == nil || int(s.proc.Pid) != pid {
		p, err := process.NewProcessWithContext(ctx, int32(pid))
		if err != nil {
			s.proc = nil
			return Sample{}, err
		}
		s.proc = p
	}

	cpu, err := s.proc.PercentWithContext(ctx, 0)
	if err != nil {
		return Sample{}, err
	}
	mem, err := s.proc.MemoryInfoWithContext(ctx)
	if err != nil {
		return Sample{}, err
	}
	return Sample{CPUPercent: cpu, RSSBytes: mem.RSS}, nil
}
