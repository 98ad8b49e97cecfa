// Command iggy-server runs the partitioned pub/sub engine: it loads
// configuration, wires every collaborator pkg/engine needs, replays the
// metadata log into a Cluster, and blocks until an interrupt signal asks
// for graceful shutdown.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hadoop835/iggy/internal/logger"
	"github.com/hadoop835/iggy/internal/telemetry"
	"github.com/hadoop835/iggy/pkg/cachetracker"
	"github.com/hadoop835/iggy/pkg/config"
	"github.com/hadoop835/iggy/pkg/directory"
	"github.com/hadoop835/iggy/pkg/engine"
	"github.com/hadoop835/iggy/pkg/metadatalog"
	"github.com/hadoop835/iggy/pkg/metrics"
	"github.com/hadoop835/iggy/pkg/permission"
	"github.com/hadoop835/iggy/pkg/security"
	"github.com/hadoop835/iggy/pkg/segment"
	"github.com/hadoop835/iggy/pkg/session"
	"github.com/hadoop835/iggy/pkg/shard"
	"github.com/hadoop835/iggy/pkg/user"
)

// Build-time variables injected via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "iggy-server",
	Short:         "Persistent, partitioned pub/sub message engine",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("iggy-server %s (commit: %s, built: %s)\n", version, commit, date)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: $XDG_CONFIG_HOME/iggy/config.yaml)")
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	loggerCfg := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if err := logger.Init(loggerCfg); err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(ctx); err != nil {
			logger.Error("telemetry shutdown error", logger.Err(err))
		}
	}()

	profilingShutdown, err := telemetry.InitProfiling(telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.Types,
	})
	if err != nil {
		return fmt.Errorf("initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", logger.Err(err))
		}
	}()

	logger.Info("starting iggy-server", "version", version, "shards", cfg.Shards)
	if telemetry.IsEnabled() {
		logger.Info("telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	}
	if telemetry.IsProfilingEnabled() {
		logger.Info("profiling enabled", "endpoint", cfg.Telemetry.Profiling.Endpoint, "types", cfg.Telemetry.Profiling.Types)
	}

	metalog, err := config.BuildMetadataLog(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build metadata log: %w", err)
	}
	defer func() {
		if err := metalog.Close(); err != nil {
			logger.Error("metadata log close error", logger.Err(err))
		}
	}()

	segments, err := config.BuildSegmentStore(cfg)
	if err != nil {
		return fmt.Errorf("build segment store: %w", err)
	}
	defer func() {
		if err := segments.Close(); err != nil {
			logger.Error("segment store close error", logger.Err(err))
		}
	}()

	encryptor, err := config.BuildEncryptor(cfg)
	if err != nil {
		return fmt.Errorf("build encryptor: %w", err)
	}
	if encryptor != nil {
		logger.Info("at-rest payload encryption enabled")
	}

	tracker := config.BuildCacheTracker(cfg)

	registry := prometheus.NewRegistry()
	var sink *metrics.Sink
	if cfg.Metrics.Enabled {
		sink = metrics.New(registry)
	}

	cl := newCluster(cfg, metalog, segments, tracker, sink, encryptor)

	if err := cl.Bootstrap(ctx); err != nil {
		return fmt.Errorf("bootstrap cluster: %w", err)
	}
	logger.Info("cluster bootstrapped", "shards", len(cl.Shards()))

	group, groupCtx := errgroup.WithContext(ctx)

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		metricsServer = &http.Server{Addr: fmt.Sprintf(":%d", cfg.Metrics.Port), Handler: mux}
		group.Go(func() error {
			logger.Info("metrics server listening", "port", cfg.Metrics.Port)
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("iggy-server is running, press Ctrl+C to stop")

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("shutdown signal received, draining")
	case <-groupCtx.Done():
		logger.Error("a collaborator failed, shutting down")
	}

	cancel()

	if metricsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer shutdownCancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown error", logger.Err(err))
		}
	}

	if err := group.Wait(); err != nil {
		logger.Error("shutdown completed with error", logger.Err(err))
		return err
	}
	logger.Info("iggy-server stopped")
	return nil
}

// newCluster wires every collaborator pkg/engine.Collaborators needs and
// returns a Cluster with cfg.Shards Engine values over them.
func newCluster(cfg *config.EngineConfig, metalog metadatalog.MetadataLog, segments segment.SegmentStore, tracker *cachetracker.Tracker, sink *metrics.Sink, encryptor security.Encryptor) *engine.Cluster {
	hasher := security.NewBcryptHasher()
	permissions := permission.New()
	clients := session.NewClientManager()
	users := user.NewRegistry(hasher, permissions, clients, sink)
	dir := directory.New(permissions)
	router := shard.NewRouter(cfg.Shards)

	collaborators := engine.Collaborators{
		Directory:   dir,
		Users:       users,
		Clients:     clients,
		Permissions: permissions,
		Router:      router,
		Tracker:     tracker,
		Metrics:     sink,
		MetadataLog: metalog,
		Segments:    segments,
		Encryptor:   encryptor,
	}

	return engine.NewCluster(cfg.Shards, collaborators)
}
