// Package config loads the engine's static configuration from defaults,
// file and environment, in that order of increasing precedence, and
// turns the loaded values into the runtime collaborators pkg/engine and
// cmd/iggy-server wire together.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/hadoop835/iggy/internal/bytesize"
)

// EngineConfig is the static configuration an iggy-server process is
// started with. Dynamic state - streams, topics, users - lives in the
// metadata log and the directory it replays into, not here.
//
// Configuration sources, in order of precedence (highest first):
//  1. Environment variables (IGGY_*)
//  2. Configuration file (YAML)
//  3. Default values
type EngineConfig struct {
	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Telemetry controls OpenTelemetry distributed tracing and Pyroscope
	// continuous profiling.
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	// ShutdownTimeout bounds how long graceful shutdown waits for the
	// metrics HTTP server to shut down.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`

	// Metrics controls the Prometheus metrics HTTP endpoint.
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// Cache configures the process-wide cache memory tracker shared by
	// every partition log.
	Cache CacheConfig `mapstructure:"cache" yaml:"cache"`

	// Shards is the number of Engine values the Cluster runs, and the
	// number of independent sequence spaces the metadata log keeps.
	Shards uint16 `mapstructure:"shards" yaml:"shards"`

	// DataDir is the directory the segment store keeps its BadgerDB files
	// in. Empty uses an in-memory store, meant for tests and local
	// development - nothing survives a restart.
	DataDir string `mapstructure:"data_dir" yaml:"data_dir,omitempty"`

	// MetadataLogDSN selects and configures the metadata log backend.
	// Empty or "memory://" uses an in-process, non-durable log, meant for
	// tests and local development. Anything starting with "postgres://"
	// or "postgresql://" opens a Postgres-backed log at that DSN.
	MetadataLogDSN string `mapstructure:"metadata_log_dsn" yaml:"metadata_log_dsn"`

	// RootUsername/RootPassword override the built-in root user credentials
	// bootstrap creates when the metadata log is empty. Leave both blank to
	// use the built-in defaults.
	RootUsername string `mapstructure:"root_username" yaml:"root_username,omitempty"`
	RootPassword string `mapstructure:"root_password" yaml:"root_password,omitempty"`

	// EncryptionEnabled turns on at-rest encryption of message payloads.
	// EncryptionKeyHex must then hold a 32-byte key, hex-encoded.
	EncryptionEnabled bool   `mapstructure:"encryption_enabled" yaml:"encryption_enabled"`
	EncryptionKeyHex  string `mapstructure:"encryption_key" yaml:"encryption_key,omitempty"`
}

// LoggingConfig controls the slog-based logger in internal/logger.
type LoggingConfig struct {
	// Level is the minimum log level to output.
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive).
	Level string `mapstructure:"level" yaml:"level"`

	// Format selects the log output format: text or json.
	Format string `mapstructure:"format" yaml:"format"`

	// Output is where logs are written: stdout, stderr, or a file path.
	Output string `mapstructure:"output" yaml:"output"`
}

// TelemetryConfig controls OpenTelemetry distributed tracing.
type TelemetryConfig struct {
	// Enabled turns on trace export. Default: false.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// ServiceName is reported to the trace backend.
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`

	// Endpoint is the OTLP collector endpoint (host:port).
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// Insecure disables TLS to the collector. Default: true (local dev).
	Insecure bool `mapstructure:"insecure" yaml:"insecure"`

	// SampleRate is the trace sampling rate, 0.0 to 1.0.
	SampleRate float64 `mapstructure:"sample_rate" yaml:"sample_rate"`

	// Profiling contains Pyroscope continuous profiling configuration.
	Profiling ProfilingConfig `mapstructure:"profiling" yaml:"profiling"`
}

// ProfilingConfig controls Pyroscope continuous profiling.
type ProfilingConfig struct {
	Enabled  bool     `mapstructure:"enabled" yaml:"enabled"`
	Endpoint string   `mapstructure:"endpoint" yaml:"endpoint"`
	Types    []string `mapstructure:"types" yaml:"types,omitempty"`
}

// MetricsConfig controls the Prometheus metrics HTTP endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	Port    int  `mapstructure:"port" yaml:"port"`
}

// CacheConfig controls the process-wide cache memory tracker.
type CacheConfig struct {
	// Enabled turns on cache-pressure accounting and eviction. When
	// false, partition logs never evict and AppendMessages never checks
	// cache headroom.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Size is the total memory budget across every partition's cache.
	// Accepts human-readable forms like "512Mi", "1Gi", "2GB".
	Size bytesize.ByteSize `mapstructure:"size" yaml:"size,omitempty"`
}

// Load reads configPath (or the default location if empty), applies
// environment overrides and defaults, and validates the result. IGGY_*
// environment variables override only keys that appear in the config file;
// when no config file is found they are not read and only the defaults and
// the root-credential variables apply.
func Load(configPath string) (*EngineConfig, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	cfg := &EngineConfig{}
	if found {
		if err := v.Unmarshal(cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
			return nil, fmt.Errorf("config: unmarshal: %w", err)
		}
	}

	ApplyDefaults(cfg)
	applyRootCredentialEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return cfg, nil
}

// MustLoad loads configuration, turning a missing file at the default
// location into an actionable error instead of silently falling back to
// defaults - useful for a CLI entry point that should refuse to start
// without an operator-reviewed config.
func MustLoad(configPath string) (*EngineConfig, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at %s\n\n"+
				"create one, or pass --config /path/to/config.yaml", GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	return cfg, nil
}

// applyRootCredentialEnvOverrides mirrors pkg/user.RootCredentials's own
// ROOT_USERNAME/ROOT_PASSWORD lookup: when the loaded config carries an
// override, it is exported into the process environment so bootstrap's
// later call to RootCredentials picks it up without pkg/config importing
// pkg/user.
func applyRootCredentialEnvOverrides(cfg *EngineConfig) {
	if cfg.RootUsername != "" {
		os.Setenv("ROOT_USERNAME", cfg.RootUsername)
	}
	if cfg.RootPassword != "" {
		os.Setenv("ROOT_PASSWORD", cfg.RootPassword)
	}
}

// SaveConfig writes cfg to path as YAML, creating parent directories as
// needed. Useful for an `iggy-server init` style bootstrap command.
func SaveConfig(cfg *EngineConfig, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("config: write file: %w", err)
	}
	return nil
}

// setupViper wires environment variable support and config file discovery.
func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("IGGY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}
	v.AddConfigPath(getConfigDir())
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}

// readConfigFile reads the configured file if present. A missing file is
// not an error: the caller falls back to defaults.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("config: read file: %w", err)
	}
	return true, nil
}

// configDecodeHooks combines the custom decode hooks Unmarshal needs.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		durationDecodeHook(),
	)
}

// byteSizeDecodeHook converts strings and numbers into bytesize.ByteSize,
// so config files and IGGY_CACHE_SIZE can use "1Gi", "512Mi", "100MB".
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(_ reflect.Type, to reflect.Type, data any) (any, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return bytesize.ParseByteSize(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

// durationDecodeHook converts strings like "30s" into time.Duration.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(_ reflect.Type, to reflect.Type, data any) (any, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns $XDG_CONFIG_HOME/iggy, falling back to
// ~/.config/iggy, or "." if the home directory can't be resolved.
func getConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "iggy")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "iggy")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists reports whether a config file exists at the default
// location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}
