package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"ntm-hq/ntm/pkg/config"
	"ntm-hq/ntm/pkg/security/auth"
	"ntm-hq/ntm/pkg/server/handlers"
	"ntm-hq/ntm/pkg/server/middleware"
	"ntm-hq/ntm/pkg/telemetry/health"
	"ntm-hq/ntm/pkg/telemetry/logging"
	"ntm-hq/ntm/pkg/telemetry/metrics"
)

// VersionInfo is reported by /version.
type VersionInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.base = logger }
}

// WithStats exposes supervisor stats on /status.
func WithStats(stats handlers.StatsSource) Option {
	return func(s *Server) { s.stats = stats }
}

// WithHealthChecker replaces the default readiness checker.
func WithHealthChecker(checker *health.Checker) Option {
	return func(s *Server) { s.checker = checker }
}

// WithMetrics records request metrics and serves the metrics endpoint.
func WithMetrics(collector *metrics.Collector) Option {
	return func(s *Server) { s.collector = collector }
}

// WithVersion sets the build information served on /version.
func WithVersion(info VersionInfo) Option {
	return func(s *Server) { s.version = info }
}

// Server is the control API HTTP server.
type Server struct {
	cfg       *config.Config
	registry  handlers.Registry
	stats     handlers.StatsSource
	checker   *health.Checker
	collector *metrics.Collector
	version   VersionInfo
	base      *slog.Logger
	logger    *slog.Logger

	mu         sync.RWMutex
	httpServer *http.Server
	listener   net.Listener
	isRunning  bool
}

// NewServer creates a control API server for the registry. Without a
// health checker, readiness only pings the registry.
func NewServer(cfg *config.Config, reg handlers.Registry, opts ...Option) *Server {
	s := &Server{
		cfg:      cfg,
		registry: reg,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.base == nil {
		s.base = slog.Default()
	}
	s.logger = logging.Component(s.base, "api")
	if s.checker == nil {
		s.checker = health.New(0)
		if p, ok := reg.(health.Pinger); ok {
			s.checker.RegisterCheck("registry", health.PingCheck(p))
		}
	}
	return s
}

// Start listens on the configured address and serves until ctx is
// cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return errors.New("server is already running")
	}

	addr := s.cfg.ListenAddress()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.listener = ln
	s.httpServer = &http.Server{
		Handler:        s.Handler(),
		ReadTimeout:    s.cfg.API.ReadTimeout,
		WriteTimeout:   s.cfg.API.WriteTimeout,
		IdleTimeout:    s.cfg.API.IdleTimeout,
		MaxHeaderBytes: s.cfg.API.MaxHeaderBytes,
		ErrorLog:       slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}
	s.isRunning = true
	srv := s.httpServer
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting control API", "address", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	case err, ok := <-errChan:
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
		if ok {
			return err
		}
		return nil
	}
}

// Shutdown gracefully shuts down the server within the configured timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	srv := s.httpServer
	s.mu.Unlock()

	s.logger.Info("initiating graceful shutdown", "timeout", s.cfg.API.ShutdownTimeout.String())

	shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.API.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("error during server shutdown", "error", err)
		return fmt.Errorf("server shutdown error: %w", err)
	}

	s.logger.Info("control API stopped")
	return nil
}

// Addr returns the bound listener address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handler builds the routes and middleware chain. Registry routes and
// /status require the shared secret; health, version and metrics do not.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	tokenAuth := auth.NewTokenMiddleware(auth.NewTokenValidator(s.cfg.ServerToken), auth.DefaultSources())

	handlers.NewRegistryHandler(s.registry, s.base).Register(mux, tokenAuth.Handle)
	mux.Handle("GET /status", tokenAuth.Handle(handlers.NewStatusHandler(s.cfg.Type, s.registry, s.stats)))

	s.checker.Register(mux, s.version.Version, s.version.Commit, s.version.BuildTime)

	var recorder middleware.RequestRecorder
	if s.collector != nil && s.collector.Enabled() {
		mux.Handle("GET "+s.cfg.Telemetry.Metrics.Path, s.collector.Handler())
		recorder = s.collector
	}

	return middleware.Chain(mux,
		middleware.RecoveryMiddleware(s.base),
		middleware.RequestIDMiddleware,
		middleware.LoggingMiddleware(s.base),
		middleware.MetricsMiddleware(recorder),
	)
}
