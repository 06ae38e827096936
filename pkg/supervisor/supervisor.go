package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"

	"ntm-hq/ntm/pkg/config"
)

// ErrAlreadyRunning is returned by Run when another Run is active.
var ErrAlreadyRunning = errors.New("supervisor already running")

// Exit reasons reported to the Recorder.
const (
	ExitCrashed      = "crashed"
	ExitLaunchFailed = "launch_failed"
	ExitRestarted    = "restarted"
	ExitStopped      = "stopped"
)

// Recorder receives lifecycle events, typically for metrics.
type Recorder interface {
	SupervisorState(state string)
	RecordLaunch(ok bool)
	RecordExit(reason string)
	RecordProcessSample(cpuPercent float64, rssBytes uint64)
}

// Config configures a Supervisor.
type Config struct {
	// Binary is the executable to run.
	Binary string

	// ConfigPath is passed to the binary as "-c <ConfigPath>".
	ConfigPath string

	// TerminationTimeout bounds the wait after SIGTERM before SIGKILL.
	// Default: 10s
	TerminationTimeout time.Duration

	// Cooldown is the delay before relaunching after a restart, and the
	// crash backoff delay (or its starting value for "exponential").
	// Default: 5s
	Cooldown time.Duration

	// Backoff is "fixed" or "exponential".
	// Default: "fixed"
	Backoff string

	// MaxCooldown caps exponential backoff. A process that ran at least this
	// long before crashing resets the backoff.
	// Default: 1m
	MaxCooldown time.Duration

	// StatsInterval is how often the running process is sampled.
	// Zero disables sampling.
	StatsInterval time.Duration
}

// FromConfig builds a supervisor Config for the role in cfg.
func FromConfig(cfg *config.Config) Config {
	binary, configPath := cfg.Process()
	return Config{
		Binary:             binary,
		ConfigPath:         configPath,
		TerminationTimeout: cfg.Supervisor.TerminationTimeout,
		Cooldown:           cfg.Supervisor.Cooldown,
		Backoff:            cfg.Supervisor.Backoff,
		MaxCooldown:        cfg.Supervisor.MaxCooldown,
		StatsInterval:      cfg.Supervisor.StatsInterval,
	}
}

func (c *Config) applyDefaults() {
	if c.TerminationTimeout <= 0 {
		c.TerminationTimeout = config.DefaultTerminationTimeout
	}
	if c.Cooldown <= 0 {
		c.Cooldown = config.DefaultCooldown
	}
	if c.Backoff == "" {
		c.Backoff = config.DefaultBackoff
	}
	if c.MaxCooldown <= 0 {
		c.MaxCooldown = config.DefaultMaxCooldown
	}
	if c.MaxCooldown < c.Cooldown {
		c.MaxCooldown = c.Cooldown
	}
}

// newBackOff returns the crash backoff policy for cfg.
func newBackOff(cfg Config) backoff.BackOff {
	if cfg.Backoff == "exponential" {
		b := &backoff.ExponentialBackOff{
			InitialInterval:     cfg.Cooldown,
			RandomizationFactor: 0,
			Multiplier:          2,
			MaxInterval:         cfg.MaxCooldown,
		}
		b.Reset()
		return b
	}
	return backoff.NewConstantBackOff(cfg.Cooldown)
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Supervisor) { s.logger = logger }
}

// WithRecorder sets a Recorder for lifecycle events.
func WithRecorder(r Recorder) Option {
	return func(s *Supervisor) { s.recorder = r }
}

// WithSampler overrides the process sampler. Nil disables sampling.
func WithSampler(sampler Sampler) Option {
	return func(s *Supervisor) { s.sampler = sampler }
}

// WithStateHook registers a function called on every state change.
// It runs on the supervisor goroutine and must not block.
func WithStateHook(fn func(State)) Option {
	return func(s *Supervisor) { s.hook = fn }
}

// Supervisor runs and restarts one external process.
type Supervisor struct {
	cfg      Config
	launcher Launcher
	sampler  Sampler
	recorder Recorder
	logger   *slog.Logger
	hook     func(State)
	backoff  backoff.BackOff

	restart chan struct{}
	running atomic.Bool

	mu        sync.RWMutex
	state     State
	pid       int
	startedAt time.Time
	launches  int
	restarts  int
	crashes   int
	sample    Sample
}

// New creates a Supervisor. Zero durations in cfg take their defaults.
func New(cfg Config, launcher Launcher, opts ...Option) *Supervisor {
	cfg.applyDefaults()

	s := &Supervisor{
		cfg:      cfg,
		launcher: launcher,
		sampler:  NewProcessSampler(),
		logger:   slog.Default(),
		restart:  make(chan struct{}, 1),
		state:    StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "supervisor")
	s.backoff = newBackOff(cfg)
	return s
}

// Restart requests a restart of the process. It never blocks; requests made
// while one is already pending are merged into it.
func (s *Supervisor) Restart() {
	select {
	case s.restart <- struct{}{}:
		s.logger.Debug("restart requested")
	default:
	}
}

// State returns the current state.
func (s *Supervisor) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Stats returns a snapshot of the supervisor.
func (s *Supervisor) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{
		State:      s.state,
		Binary:     s.cfg.Binary,
		ConfigPath: s.cfg.ConfigPath,
		Launches:   s.launches,
		Restarts:   s.restarts,
		Crashes:    s.crashes,
	}
	if s.state == StateRunning {
		st.PID = s.pid
		st.StartedAt = s.startedAt
		st.UptimeSeconds = time.Since(s.startedAt).Seconds()
		st.CPUPercent = s.sample.CPUPercent
		st.RSSBytes = s.sample.RSSBytes
	}
	return st
}

// Run supervises the process until ctx is cancelled. It terminates the
// running process before returning and always returns nil unless another
// Run is active.
func (s *Supervisor) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer s.running.Store(false)
	defer s.setState(StateIdle)

	s.logger.Info("supervisor started",
		"binary", s.cfg.Binary,
		"config", s.cfg.ConfigPath,
		"backoff", s.cfg.Backoff,
	)

	for {
		if ctx.Err() != nil {
			s.logger.Info("supervisor stopped")
			return nil
		}

		// The launch below reads the current config file, which satisfies
		// any restart requested up to this point.
		s.drainRestart()

		var delay time.Duration
		proc, err := s.launch(ctx)
		if err != nil {
			s.logger.Error("failed to launch process", "binary", s.cfg.Binary, "error", err)
			delay = s.crashed(ExitLaunchFailed, 0)
		} else {
			switch reason := s.watch(ctx, proc); reason {
			case ExitStopped:
				s.logger.Info("supervisor stopped")
				return nil
			case ExitRestarted:
				s.backoff.Reset()
				delay = s.cfg.Cooldown
				s.logger.Info("restarting process", "delay", delay)
			default:
				delay = s.crashed(ExitCrashed, s.uptime())
				s.logExit(proc, delay)
			}
		}

		s.setState(StateBackoff)
		if !sleep(ctx, delay) {
			s.logger.Info("supervisor stopped")
			return nil
		}
	}
}

func (s *Supervisor) launch(ctx context.Context) (Process, error) {
	s.setState(StateLaunching)

	proc, err := s.launcher.Launch(ctx, s.cfg.Binary, "-c", s.cfg.ConfigPath)
	if s.recorder != nil {
		s.recorder.RecordLaunch(err == nil)
	}
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.pid = proc.Pid()
	s.startedAt = time.Now()
	s.launches++
	s.sample = Sample{}
	s.mu.Unlock()

	s.setState(StateRunning)
	s.logger.Info("process started", "pid", proc.Pid())
	return proc, nil
}

// watch blocks until the process exits, a restart is requested, or ctx is
// cancelled, and returns which of those happened.
func (s *Supervisor) watch(ctx context.Context, proc Process) string {
	var tick <-chan time.Time
	if s.sampler != nil && s.cfg.StatsInterval > 0 {
		ticker := time.NewTicker(s.cfg.StatsInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-proc.Done():
			return ExitCrashed

		case <-ctx.Done():
			s.terminate(proc)
			s.recordExit(ExitStopped)
			return ExitStopped

		case <-s.restart:
			s.terminate(proc)
			s.mu.Lock()
			s.restarts++
			s.mu.Unlock()
			s.recordExit(ExitRestarted)
			return ExitRestarted

		case <-tick:
			s.sampleProcess(ctx, proc.Pid())
		}
	}
}

// terminate sends SIGTERM, waits up to TerminationTimeout and kills the
// process if it is still alive. It does not observe ctx: a stop still waits
// for the child.
func (s *Supervisor) terminate(proc Process) {
	s.setState(StateTerminating)
	s.logger.Info("terminating process", "pid", proc.Pid())

	if err := proc.Terminate(); err != nil {
		s.logger.Debug("terminate signal failed", "pid", proc.Pid(), "error", err)
	}

	timer := time.NewTimer(s.cfg.TerminationTimeout)
	defer timer.Stop()

	select {
	case <-proc.Done():
		return
	case <-timer.C:
	}

	s.logger.Warn("process did not exit in time, killing",
		"pid", proc.Pid(),
		"timeout", s.cfg.TerminationTimeout,
	)
	if err := proc.Kill(); err != nil {
		s.logger.Error("failed to kill process", "pid", proc.Pid(), "error", err)
	}

	timer.Reset(s.cfg.TerminationTimeout)
	select {
	case <-proc.Done():
	case <-timer.C:
		s.logger.Error("process did not exit after kill", "pid", proc.Pid())
	}
}

// crashed records an unexpected exit and returns the delay before the next
// launch.
func (s *Supervisor) crashed(reason string, uptime time.Duration) time.Duration {
	s.setState(StateCrashed)
	s.mu.Lock()
	s.crashes++
	s.mu.Unlock()
	s.recordExit(reason)

	if uptime >= s.cfg.MaxCooldown {
		s.backoff.Reset()
	}
	delay := s.backoff.NextBackOff()
	if delay < 0 {
		delay = s.cfg.Cooldown
	}
	return delay
}

func (s *Supervisor) logExit(proc Process, delay time.Duration) {
	attrs := []any{"pid", proc.Pid(), "relaunch_in", delay}
	if e, ok := proc.(interface{ Err() error }); ok && e.Err() != nil {
		attrs = append(attrs, "error", e.Err())
	}
	s.logger.Warn("process exited unexpectedly", attrs...)
}

func (s *Supervisor) sampleProcess(ctx context.Context, pid int) {
	sample, err := s.sampler.Sample(ctx, pid)
	if err != nil {
		s.logger.Debug("failed to sample process", "pid", pid, "error", err)
		return
	}

	s.mu.Lock()
	s.sample = sample
	s.mu.Unlock()

	if s.recorder != nil {
		s.recorder.RecordProcessSample(sample.CPUPercent, sample.RSSBytes)
	}
}

func (s *Supervisor) uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Since(s.startedAt)
}

func (s *Supervisor) drainRestart() {
	select {
	case <-s.restart:
	default:
	}
}

func (s *Supervisor) setState(state State) {
	s.mu.Lock()
	changed := s.state != state
	s.state = state
	s.mu.Unlock()

	if !changed {
		return
	}
	s.logger.Debug("state changed", "state", state)
	if s.recorder != nil {
		s.recorder.SupervisorState(string(state))
	}
	if s.hook != nil {
		s.hook(state)
	}
}

func (s *Supervisor) recordExit(reason string) {
	if s.recorder != nil {
		s.recorder.RecordExit(reason)
	}
}

// sleep waits for d or until ctx is done. It reports whether the full
// duration elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
