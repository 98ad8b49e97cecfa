package config

import (
	"context"
	"strings"
	"testing"

	"github.com/hadoop835/iggy/pkg/metadatalog"
)

func TestBuildMetadataLog_EmptyDSNUsesMemoryLog(t *testing.T) {
	cfg := &EngineConfig{}
	log, err := BuildMetadataLog(context.Background(), cfg)
	if err != nil {
		t.Fatalf("BuildMetadataLog() error = %v", err)
	}
	if _, ok := log.(*metadatalog.MemoryLog); !ok {
		t.Fatalf("BuildMetadataLog() = %T, want *metadatalog.MemoryLog", log)
	}
}

func TestBuildMetadataLog_MemorySchemeUsesMemoryLog(t *testing.T) {
	cfg := &EngineConfig{MetadataLogDSN: "memory://"}
	log, err := BuildMetadataLog(context.Background(), cfg)
	if err != nil {
		t.Fatalf("BuildMetadataLog() error = %v", err)
	}
	if _, ok := log.(*metadatalog.MemoryLog); !ok {
		t.Fatalf("BuildMetadataLog() = %T, want *metadatalog.MemoryLog", log)
	}
}

func TestBuildMetadataLog_UnrecognizedDSNRejected(t *testing.T) {
	cfg := &EngineConfig{MetadataLogDSN: "mysql://localhost/iggy"}
	if _, err := BuildMetadataLog(context.Background(), cfg); err == nil {
		t.Fatal("BuildMetadataLog() expected error for unrecognized DSN, got nil")
	}
}

func TestBuildCacheTracker_DisabledByDefault(t *testing.T) {
	cfg := &EngineConfig{}
	tracker := BuildCacheTracker(cfg)
	// A disabled tracker may be non-nil from a prior test's Initialize call
	// (the tracker is a process-wide singleton); this only checks that the
	// call doesn't panic.
	_ = tracker
}

func TestBuildEncryptor_NilWhenDisabled(t *testing.T) {
	cfg := &EngineConfig{EncryptionEnabled: false}
	enc, err := BuildEncryptor(cfg)
	if err != nil {
		t.Fatalf("BuildEncryptor() error = %v", err)
	}
	if enc != nil {
		t.Fatalf("BuildEncryptor() = %v, want nil when encryption disabled", enc)
	}
}

func TestBuildEncryptor_BuildsFromValidHexKey(t *testing.T) {
	cfg := &EngineConfig{
		EncryptionEnabled: true,
		EncryptionKeyHex:  strings.Repeat("00", 32),
	}
	enc, err := BuildEncryptor(cfg)
	if err != nil {
		t.Fatalf("BuildEncryptor() error = %v", err)
	}
	if enc == nil {
		t.Fatal("BuildEncryptor() = nil, want non-nil encryptor")
	}

	ciphertext, err := enc.Encrypt([]byte("payload"))
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	plaintext, err := enc.Decrypt(ciphertext)
	if err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	if string(plaintext) != "payload" {
		t.Fatalf("Decrypt() = %q, want %q", plaintext, "payload")
	}
}

func TestBuildEncryptor_InvalidHexRejected(t *testing.T) {
	cfg := &EngineConfig{EncryptionEnabled: true, EncryptionKeyHex: "not-hex"}
	if _, err := BuildEncryptor(cfg); err == nil {
		t.Fatal("BuildEncryptor() expected error for invalid hex key, got nil")
	}
}

func TestBuildSegmentStore_EmptyDataDirUsesInMemoryStore(t *testing.T) {
	cfg := &EngineConfig{}
	store, err := BuildSegmentStore(cfg)
	if err != nil {
		t.Fatalf("BuildSegmentStore() error = %v", err)
	}
	defer store.Close()
}

func TestBuildSegmentStore_DataDirOpensOnDisk(t *testing.T) {
	cfg := &EngineConfig{DataDir: t.TempDir()}
	store, err := BuildSegmentStore(cfg)
	if err != nil {
		t.Fatalf("BuildSegmentStore() error = %v", err)
	}
	defer store.Close()
}
