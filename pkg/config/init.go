package config

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/hadoop835/iggy/pkg/cachetracker"
	"github.com/hadoop835/iggy/pkg/metadatalog"
	"github.com/hadoop835/iggy/pkg/security"
	"github.com/hadoop835/iggy/pkg/segment"
)

// BuildMetadataLog opens the metadata log backend selected by
// cfg.MetadataLogDSN. An empty DSN or "memory://" opens a MemoryLog; a
// "postgres://" or "postgresql://" DSN opens a PostgresLog against it.
func BuildMetadataLog(ctx context.Context, cfg *EngineConfig) (metadatalog.MetadataLog, error) {
	dsn := cfg.MetadataLogDSN
	switch {
	case dsn == "" || dsn == "memory://":
		return metadatalog.NewMemoryLog(), nil
	case strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://"):
		pgCfg := metadatalog.PostgresConfig{DSN: dsn}
		pgCfg.ApplyDefaults()
		log, err := metadatalog.NewPostgresLog(ctx, pgCfg)
		if err != nil {
			return nil, fmt.Errorf("config: open postgres metadata log: %w", err)
		}
		return log, nil
	default:
		return nil, fmt.Errorf("config: unrecognized metadata_log_dsn %q", dsn)
	}
}

// BuildCacheTracker initializes the process-wide cache tracker singleton
// from cfg.Cache. Safe to call once per process; see cachetracker.Initialize.
func BuildCacheTracker(cfg *EngineConfig) *cachetracker.Tracker {
	return cachetracker.Initialize(cachetracker.Config{
		Enabled: cfg.Cache.Enabled,
		Size:    cfg.Cache.Size,
	})
}

// BuildSegmentStore opens the BadgerDB-backed segment store at cfg.DataDir,
// or an in-memory store when DataDir is empty.
func BuildSegmentStore(cfg *EngineConfig) (segment.SegmentStore, error) {
	store, err := segment.Open(segment.Config{
		Path:     cfg.DataDir,
		InMemory: cfg.DataDir == "",
	})
	if err != nil {
		return nil, fmt.Errorf("config: open segment store: %w", err)
	}
	return store, nil
}

// BuildEncryptor returns the at-rest payload encryptor selected by
// cfg.EncryptionEnabled, or nil if encryption is off. Validate already
// guarantees EncryptionKeyHex decodes to 32 bytes when enabled is true.
func BuildEncryptor(cfg *EngineConfig) (security.Encryptor, error) {
	if !cfg.EncryptionEnabled {
		return nil, nil
	}
	key, err := hex.DecodeString(cfg.EncryptionKeyHex)
	if err != nil {
		return nil, fmt.Errorf("config: decode encryption_key: %w", err)
	}
	enc, err := security.NewXChaChaEncryptor(key)
	if err != nil {
		return nil, fmt.Errorf("config: build encryptor: %w", err)
	}
	return enc, nil
}
