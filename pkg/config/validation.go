package config

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// validLogLevels mirrors internal/logger's accepted level strings.
var validLogLevels = map[string]bool{
	"DEBUG": true,
	"INFO":  true,
	"WARN":  true,
	"ERROR": true,
}

var validLogFormats = map[string]bool{
	"text": true,
	"json": true,
}

// Validate checks cfg for internally inconsistent or out-of-range values
// that ApplyDefaults cannot paper over. It runs after defaults are applied,
// so every field it inspects is expected to already be non-zero where a
// zero value would be meaningless.
func Validate(cfg *EngineConfig) error {
	if err := validateLogging(&cfg.Logging); err != nil {
		return err
	}
	if err := validateMetrics(&cfg.Metrics); err != nil {
		return err
	}
	if err := validateTelemetry(&cfg.Telemetry); err != nil {
		return err
	}
	if cfg.Shards == 0 {
		return fmt.Errorf("shards must be at least 1")
	}
	if err := validateMetadataLogDSN(cfg.MetadataLogDSN); err != nil {
		return err
	}
	if err := validateEncryption(cfg); err != nil {
		return err
	}
	return nil
}

func validateLogging(cfg *LoggingConfig) error {
	if !validLogLevels[cfg.Level] {
		return fmt.Errorf("logging.level %q is invalid: must be one of DEBUG, INFO, WARN, ERROR", cfg.Level)
	}
	if !validLogFormats[cfg.Format] {
		return fmt.Errorf("logging.format %q is invalid: must be one of text, json", cfg.Format)
	}
	return nil
}

func validateMetrics(cfg *MetricsConfig) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("metrics.port %d is invalid: must be between 1 and 65535", cfg.Port)
	}
	return nil
}

func validateTelemetry(cfg *TelemetryConfig) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.Endpoint == "" {
		return fmt.Errorf("telemetry.endpoint must be set when telemetry.enabled is true")
	}
	if cfg.SampleRate < 0 || cfg.SampleRate > 1 {
		return fmt.Errorf("telemetry.sample_rate %v is invalid: must be between 0 and 1", cfg.SampleRate)
	}
	return nil
}

// validateMetadataLogDSN accepts an empty DSN (in-memory log), "memory://",
// or a postgres:// / postgresql:// DSN. Anything else is rejected early
// rather than surfacing as a cryptic driver error at startup.
func validateMetadataLogDSN(dsn string) error {
	if dsn == "" || dsn == "memory://" {
		return nil
	}
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return nil
	}
	return fmt.Errorf("metadata_log_dsn %q is invalid: must be empty, \"memory://\", or a postgres:// DSN", dsn)
}

func validateEncryption(cfg *EngineConfig) error {
	if !cfg.EncryptionEnabled {
		return nil
	}
	if cfg.EncryptionKeyHex == "" {
		return fmt.Errorf("encryption_key must be set when encryption_enabled is true")
	}
	key, err := hex.DecodeString(cfg.EncryptionKeyHex)
	if err != nil {
		return fmt.Errorf("encryption_key is not valid hex: %w", err)
	}
	if len(key) != 32 {
		return fmt.Errorf("encryption_key must decode to 32 bytes, got %d", len(key))
	}
	return nil
}
