package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"ntm-hq/ntm/pkg/apiclient"
	"ntm-hq/ntm/pkg/cli"
	"ntm-hq/ntm/pkg/config"
	"ntm-hq/ntm/pkg/registry"
	"ntm-hq/ntm/pkg/registry/storage"
	"ntm-hq/ntm/pkg/render"
	"ntm-hq/ntm/pkg/server"
	"ntm-hq/ntm/pkg/supervisor"
	"ntm-hq/ntm/pkg/syncer"
	"ntm-hq/ntm/pkg/telemetry/health"
	"ntm-hq/ntm/pkg/telemetry/logging"
	"ntm-hq/ntm/pkg/telemetry/metrics"
	"ntm-hq/ntm/pkg/watch"
)

var runFlags struct {
	logLevel string
	dryRun   bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the supervised frp process",
	Long: `Run frps or frpc under supervision, depending on the configured type.

Server nodes write the frps configuration, start frps and serve the control
API. Client nodes start frpc and, when a server address is configured, pull
their proxies from the server on the sync schedule.

Examples:
  # Start with default config
  ntm run

  # Start with custom config
  ntm run --config /etc/ntm/ntm.yaml

  # Validate config without starting anything
  ntm run --dry-run`,
	RunE: runNode,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting")
}

// loadConfig reads the --config file with environment overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, cli.WrapConfigError(cfgFile, err)
	}
	return cfg, nil
}

// newLogger builds the process logger from the telemetry section.
func newLogger(cfg *config.Config) (*slog.Logger, error) {
	logger, err := logging.New(logging.FromConfig(cfg.Telemetry.Logging, cfg.ServerToken))
	if err != nil {
		return nil, cli.NewConfigError("telemetry.logging", err.Error())
	}
	return logger, nil
}

func runNode(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	out := cmd.OutOrStdout()
	if runFlags.dryRun {
		fmt.Fprintln(out, "✓ Configuration valid")
		fmt.Fprintf(out, "  %s\n", cfg)
		return nil
	}

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	logger.Info("starting ntm", "version", Version, "config", cfgFile, "node", cfg.String())

	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
	sup := supervisor.New(
		supervisor.FromConfig(cfg),
		supervisor.ExecLauncher{WorkDir: cfg.Paths.WorkDir},
		supervisor.WithLogger(logger),
		supervisor.WithRecorder(collector),
		supervisor.WithSampler(supervisor.NewProcessSampler()),
	)

	if cfg.IsServer() {
		err = runServerNode(ctx, cfg, logger, collector, sup)
	} else {
		err = runClientNode(ctx, cfg, logger, collector, sup)
	}
	if err != nil {
		var cfgErr *cli.ConfigError
		if errors.As(err, &cfgErr) {
			return err
		}
		return cli.NewCommandError("run", err)
	}

	logger.Info("ntm stopped")
	return nil
}

func runServerNode(ctx context.Context, cfg *config.Config, logger *slog.Logger, collector *metrics.Collector, sup *supervisor.Supervisor) error {
	store, err := storage.Open(cfg.Registry)
	if err != nil {
		return fmt.Errorf("failed to open registry: %w", err)
	}
	defer store.Close()

	reg, err := registry.New(ctx, store, logger, registry.WithObserver(collector))
	if err != nil {
		return err
	}

	if err := writeServerConfig(cfg); err != nil {
		return err
	}

	checker := health.New(0)
	checker.RegisterCheck("registry", health.PingCheck(reg))
	checker.RegisterCheck("supervisor", health.StateCheck(sup.State, supervisor.StateLaunching, supervisor.StateRunning))

	srv := server.NewServer(cfg, reg,
		server.WithLogger(logger),
		server.WithStats(sup),
		server.WithHealthChecker(checker),
		server.WithMetrics(collector),
		server.WithVersion(server.VersionInfo{Version: Version, Commit: GitCommit, BuildTime: BuildDate}),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sup.Run(gctx) })
	g.Go(func() error { return srv.Start(gctx) })

	if cfg.Supervisor.WatchConfig && cfg.Paths.ServerExtraConfig != "" {
		g.Go(func() error {
			return watchAndRestart(gctx, cfg.Paths.ServerExtraConfig, logger, func() error {
				return writeServerConfig(cfg)
			}, sup)
		})
	}

	return g.Wait()
}

func runClientNode(ctx context.Context, cfg *config.Config, logger *slog.Logger, collector *metrics.Collector, sup *supervisor.Supervisor) error {
	g, gctx := errgroup.WithContext(ctx)

	if addr := cfg.Telemetry.Metrics.Listen; addr != "" && collector.Enabled() {
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("failed to listen for metrics on %s: %w", addr, err)
		}
		logger.Info("serving metrics", "addr", ln.Addr().String(), "path", cfg.Telemetry.Metrics.Path)
		g.Go(func() error { return collector.Serve(gctx, ln) })
	}

	if cfg.Standalone() {
		logger.Info("no server address configured, running standalone", "config", cfg.Paths.ClientConfig)
		if cfg.Supervisor.WatchConfig {
			g.Go(func() error {
				return watchAndRestart(gctx, cfg.Paths.ClientConfig, logger, nil, sup)
			})
		}
	} else {
		api := apiclient.New(cfg.ControlURL(), cfg.ServerToken,
			apiclient.WithTimeout(cfg.Sync.Timeout),
			apiclient.WithLogger(logger),
		)
		syn, err := syncer.New(syncer.FromConfig(cfg), api, sup,
			syncer.WithLogger(logger),
			syncer.WithRecorder(collector),
		)
		if err != nil {
			return cli.NewConfigError("sync.schedule", err.Error())
		}

		// The restart requested by a successful sync is consumed by the
		// supervisor's first launch.
		if _, err := syn.SyncOnce(ctx); err != nil {
			logger.Warn("initial config sync failed, starting with existing file",
				"config", cfg.Paths.ClientConfig, "error", err)
		}
		g.Go(func() error { return syn.Run(gctx) })
	}

	g.Go(func() error { return sup.Run(gctx) })
	return g.Wait()
}

// writeServerConfig renders frps.toml from the bootstrap config and the
// optional operator fragment.
func writeServerConfig(cfg *config.Config) error {
	var extra string
	if path := cfg.Paths.ServerExtraConfig; path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			slog.Warn("server extra config not found, ignoring", "path", path)
		case err != nil:
			return fmt.Errorf("failed to read server extra config: %w", err)
		default:
			extra = string(data)
		}
	}

	contents := render.ServerConfig(cfg.BindPort, cfg.ServerToken, extra)
	if err := render.WriteFile(cfg.Paths.ServerConfig, contents); err != nil {
		return fmt.Errorf("failed to write server config: %w", err)
	}
	return nil
}

// watchAndRestart restarts the supervised process whenever path changes.
// prepare, if set, runs first; a failing prepare skips the restart.
func watchAndRestart(ctx context.Context, path string, logger *slog.Logger, prepare func() error, sup *supervisor.Supervisor) error {
	fw, err := watch.NewFileWatcher(watch.Config{Path: path}, logger)
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}
	return fw.Watch(ctx, func() {
		if prepare != nil {
			if err := prepare(); err != nil {
				logger.Error("failed to apply changed config", "path", path, "error", err)
				return
			}
		}
		logger.Info("config file changed, restarting process", "path", path)
		sup.Restart()
	})
}
