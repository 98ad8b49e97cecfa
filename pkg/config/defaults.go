package config

import (
	"strings"
	"time"

	"github.com/hadoop835/iggy/internal/bytesize"
)

// ApplyDefaults fills in unset fields with sane defaults. Called after
// loading configuration from file and environment so a partially specified
// config file still produces a usable EngineConfig.
func ApplyDefaults(cfg *EngineConfig) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyMetricsDefaults(&cfg.Metrics)
	applyCacheDefaults(&cfg.Cache)

	if cfg.Shards == 0 {
		cfg.Shards = 1
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	// MetadataLogDSN has no default: empty means the in-memory log.
}

// applyLoggingDefaults sets logging defaults and normalizes the level.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyTelemetryDefaults sets OpenTelemetry defaults. Enabled stays false
// (opt-in); the endpoint and sample rate are filled in so turning Enabled on
// in a config file is enough to get a working exporter.
func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "iggy-server"
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}
	applyProfilingDefaults(&cfg.Profiling)
}

// applyProfilingDefaults sets Pyroscope profiling defaults.
func applyProfilingDefaults(cfg *ProfilingConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:4040"
	}
	if len(cfg.Types) == 0 {
		cfg.Types = []string{"cpu", "alloc_objects", "alloc_space", "inuse_objects", "inuse_space", "goroutines"}
	}
}

// applyMetricsDefaults sets the metrics port once metrics are enabled.
func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = 9090
	}
}

// applyCacheDefaults sets the cache memory budget once caching is enabled.
func applyCacheDefaults(cfg *CacheConfig) {
	if cfg.Enabled && cfg.Size == 0 {
		cfg.Size = bytesize.ByteSize(bytesize.GiB)
	}
}

// GetDefaultConfig returns an EngineConfig with every default applied,
// suitable for local development and for generating a sample config file.
func GetDefaultConfig() *EngineConfig {
	cfg := &EngineConfig{
		Cache: CacheConfig{Enabled: true},
	}
	ApplyDefaults(cfg)
	return cfg
}
