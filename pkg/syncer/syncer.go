// Package syncer keeps a client's rendered frpc configuration in line with
// the server registry.
//
// On every tick of its schedule the Syncer fetches this client's proxies
// from the control API, combines them with the local preamble, writes the
// config file and asks the supervisor to restart. Failed fetches are logged
// and skipped; the previous file and process stay in place.
package syncer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"ntm-hq/ntm/pkg/apiclient"
	"ntm-hq/ntm/pkg/config"
	"ntm-hq/ntm/pkg/render"
)

// Result of one synchronization cycle.
const (
	ResultApplied   = "applied"
	ResultUnchanged = "unchanged"
	ResultRejected  = "rejected"
	ResultFailed    = "failed"
)

// Fetcher returns the rendered proxies section of a client.
type Fetcher interface {
	ClientConfig(ctx context.Context, id string) (string, error)
}

// Restarter is asked to restart the process after a new file is written.
type Restarter interface {
	Restart()
}

// Recorder receives the result of every cycle.
type Recorder interface {
	RecordSync(result string, duration time.Duration)
}

// Config configures a Syncer.
type Config struct {
	ClientID      string
	ServerAddress string
	Token         string

	// ConfigPath is the frpc config file to write.
	ConfigPath string

	// Schedule is a cron expression or descriptor such as "@every 60s".
	Schedule string

	// Timeout bounds one fetch.
	Timeout time.Duration

	// SkipUnchanged skips the write and restart when the rendered file
	// would not change.
	SkipUnchanged bool
}

// FromConfig builds a Syncer Config from the bootstrap configuration.
func FromConfig(cfg *config.Config) Config {
	return Config{
		ClientID:      cfg.ClientID,
		ServerAddress: cfg.ServerAddress,
		Token:         cfg.ServerToken,
		ConfigPath:    cfg.Paths.ClientConfig,
		Schedule:      cfg.Sync.Schedule,
		Timeout:       cfg.Sync.Timeout,
		SkipUnchanged: cfg.Sync.SkipUnchanged,
	}
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Syncer) { s.logger = logger }
}

// WithRecorder sets a Recorder for cycle results.
func WithRecorder(r Recorder) Option {
	return func(s *Syncer) { s.recorder = r }
}

// Syncer periodically pulls the client configuration.
type Syncer struct {
	cfg       Config
	schedule  cron.Schedule
	fetcher   Fetcher
	restarter Restarter
	recorder  Recorder
	logger    *slog.Logger

	mu      sync.Mutex
	lastRun time.Time
	lastErr error
}

// New creates a Syncer. It fails if the schedule cannot be parsed.
func New(cfg Config, fetcher Fetcher, restarter Restarter, opts ...Option) (*Syncer, error) {
	if cfg.Schedule == "" {
		cfg.Schedule = config.DefaultSyncSchedule
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = config.DefaultSyncTimeout
	}

	schedule, err := cron.ParseStandard(cfg.Schedule)
	if err != nil {
		return nil, fmt.Errorf("invalid sync schedule %q: %w", cfg.Schedule, err)
	}

	s := &Syncer{
		cfg:       cfg,
		schedule:  schedule,
		fetcher:   fetcher,
		restarter: restarter,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "syncer")
	return s, nil
}

// Run synchronizes on the schedule until ctx is cancelled. The first cycle
// runs one schedule period after start. Cycles never overlap.
func (s *Syncer) Run(ctx context.Context) error {
	logger := cronLogger{s.logger}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	c.Schedule(s.schedule, cron.FuncJob(func() {
		_, _ = s.SyncOnce(ctx)
	}))

	c.Start()
	s.logger.Info("config sync started",
		"schedule", s.cfg.Schedule,
		"client_id", s.cfg.ClientID,
		"server", s.cfg.ServerAddress,
	)

	<-ctx.Done()

	// Wait for a running cycle; it observes ctx and returns promptly.
	<-c.Stop().Done()
	s.logger.Info("config sync stopped")
	return nil
}

// Next returns the time of the next cycle after t.
func (s *Syncer) Next(t time.Time) time.Time {
	return s.schedule.Next(t)
}

// LastRun returns the time and error of the most recent cycle.
func (s *Syncer) LastRun() (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun, s.lastErr
}

// SyncOnce runs one cycle and returns its result. A non-nil error means the
// local file and the process were left untouched.
func (s *Syncer) SyncOnce(ctx context.Context) (string, error) {
	start := time.Now()
	result, err := s.syncOnce(ctx)

	s.mu.Lock()
	s.lastRun = start
	s.lastErr = err
	s.mu.Unlock()

	if s.recorder != nil {
		s.recorder.RecordSync(result, time.Since(start))
	}
	return result, err
}

func (s *Syncer) syncOnce(ctx context.Context) (string, error) {
	if ctx.Err() != nil {
		return ResultFailed, ctx.Err()
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	proxies, err := s.fetcher.ClientConfig(fetchCtx, s.cfg.ClientID)
	if err != nil {
		var serr *apiclient.StatusError
		if errors.As(err, &serr) {
			s.logger.Warn("server rejected config request, ignoring",
				"status", serr.StatusCode,
				"error", serr.Message,
			)
			return ResultRejected, err
		}
		s.logger.Warn("failed to reach server, ignoring", "error", err)
		return ResultFailed, err
	}

	contents, err := render.ClientConfig(s.cfg.ServerAddress, s.cfg.Token, proxies)
	if err != nil {
		s.logger.Error("failed to render client config", "error", err)
		return ResultFailed, err
	}

	if s.cfg.SkipUnchanged {
		current, err := os.ReadFile(s.cfg.ConfigPath)
		if err == nil && bytes.Equal(current, []byte(contents)) {
			s.logger.Debug("client config unchanged, skipping restart")
			return ResultUnchanged, nil
		}
	}

	if err := render.WriteFile(s.cfg.ConfigPath, contents); err != nil {
		s.logger.Error("failed to write client config", "path", s.cfg.ConfigPath, "error", err)
		return ResultFailed, err
	}

	s.logger.Info("client config updated, requesting restart", "path", s.cfg.ConfigPath)
	s.restarter.Restart()
	return ResultApplied, nil
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
