package config

import (
	"testing"
	"time"
)

func TestApplyDefaults_Logging(t *testing.T) {
	cfg := &EngineConfig{}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default log level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default log format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stdout" {
		t.Errorf("Expected default log output 'stdout', got %q", cfg.Logging.Output)
	}
}

func TestApplyDefaults_UppercasesLevel(t *testing.T) {
	cfg := &EngineConfig{Logging: LoggingConfig{Level: "debug"}}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected level normalized to 'DEBUG', got %q", cfg.Logging.Level)
	}
}

func TestApplyDefaults_ShutdownTimeout(t *testing.T) {
	cfg := &EngineConfig{}
	ApplyDefaults(cfg)

	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown timeout 30s, got %v", cfg.ShutdownTimeout)
	}
}

func TestApplyDefaults_Shards(t *testing.T) {
	cfg := &EngineConfig{}
	ApplyDefaults(cfg)

	if cfg.Shards != 1 {
		t.Errorf("Expected default shards 1, got %d", cfg.Shards)
	}
}

func TestApplyDefaults_CacheSizeOnlyWhenEnabled(t *testing.T) {
	disabled := &EngineConfig{}
	ApplyDefaults(disabled)
	if disabled.Cache.Size != 0 {
		t.Errorf("Expected cache size 0 when cache disabled, got %v", disabled.Cache.Size)
	}

	enabled := &EngineConfig{Cache: CacheConfig{Enabled: true}}
	ApplyDefaults(enabled)
	if enabled.Cache.Size == 0 {
		t.Error("Expected non-zero default cache size when cache enabled")
	}
}

func TestApplyDefaults_MetricsPortOnlyWhenEnabled(t *testing.T) {
	disabled := &EngineConfig{}
	ApplyDefaults(disabled)
	if disabled.Metrics.Port != 0 {
		t.Errorf("Expected metrics port 0 when metrics disabled, got %d", disabled.Metrics.Port)
	}

	enabled := &EngineConfig{Metrics: MetricsConfig{Enabled: true}}
	ApplyDefaults(enabled)
	if enabled.Metrics.Port != 9090 {
		t.Errorf("Expected default metrics port 9090, got %d", enabled.Metrics.Port)
	}
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &EngineConfig{
		Logging: LoggingConfig{
			Level:  "DEBUG",
			Format: "json",
			Output: "/var/log/iggy.log",
		},
		ShutdownTimeout: 60 * time.Second,
		Shards:          4,
	}

	ApplyDefaults(cfg)

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected explicit level 'DEBUG' to be preserved, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Expected explicit format 'json' to be preserved, got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "/var/log/iggy.log" {
		t.Errorf("Expected explicit output to be preserved, got %q", cfg.Logging.Output)
	}
	if cfg.ShutdownTimeout != 60*time.Second {
		t.Errorf("Expected explicit timeout 60s to be preserved, got %v", cfg.ShutdownTimeout)
	}
	if cfg.Shards != 4 {
		t.Errorf("Expected explicit shards 4 to be preserved, got %d", cfg.Shards)
	}
}

func TestGetDefaultConfig_IsValid(t *testing.T) {
	cfg := GetDefaultConfig()

	if err := Validate(cfg); err != nil {
		t.Errorf("Default config should be valid, got error: %v", err)
	}
}

func TestGetDefaultConfig_HasRequiredFields(t *testing.T) {
	cfg := GetDefaultConfig()

	if cfg.Logging.Level == "" {
		t.Error("Default config missing logging level")
	}
	if cfg.Shards == 0 {
		t.Error("Default config missing shards")
	}
	if cfg.Cache.Size == 0 {
		t.Error("Default config missing cache size")
	}
}
