// Package segment implements the default SegmentStore: the physical,
// durable delegate behind a partition's persistent log, backed by BadgerDB.
// It stores already-encoded message bytes; compression and encryption are
// the partition facade's concern, not this package's.
package segment

import (
	"context"
	"encoding/json"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/hadoop835/iggy/internal/logger"
	"github.com/hadoop835/iggy/pkg/identifier"
	"github.com/hadoop835/iggy/pkg/message"
)

// SegmentStore is the physical delegate behind a partition's persistent
// log. It stores and retrieves already-encoded message bytes; it has no
// opinion on compression or encryption.
type SegmentStore interface {
	Append(ctx context.Context, ns identifier.ResourceNamespace, msgs []message.StoredMessage) error
	Read(ctx context.Context, ns identifier.ResourceNamespace, fromOffset uint64, limit int) ([]message.StoredMessage, error)
	Purge(ctx context.Context, ns identifier.ResourceNamespace) error
	Close() error
}

var _ SegmentStore = (*Store)(nil)

// Store is the default SegmentStore, backed by a single BadgerDB instance
// shared across every partition in the process.
type Store struct {
	db *badger.DB
}

// Config controls where the store keeps its data and how much write
// buffering Badger does before flushing.
type Config struct {
	Path       string
	InMemory   bool
	SyncWrites bool
}

// Open creates or reopens a Store at cfg.Path. InMemory is intended for
// tests: it skips disk entirely.
func Open(cfg Config) (*Store, error) {
	opts := badger.DefaultOptions(cfg.Path).
		WithLogger(nil).
		WithSyncWrites(cfg.SyncWrites)
	if cfg.InMemory {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("segment: open: %w", err)
	}
	logger.Info("segment store opened", logger.Source("segment"))
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append persists msgs under ns, one key per offset.
func (s *Store) Append(_ context.Context, ns identifier.ResourceNamespace, msgs []message.StoredMessage) error {
	return s.db.Update(func(txn *badger.Txn) error {
		for _, m := range msgs {
			value, err := json.Marshal(m)
			if err != nil {
				return fmt.Errorf("segment: encode message at offset %d: %w", m.Offset, err)
			}
			if err := txn.Set(messageKey(ns, m.Offset), value); err != nil {
				return fmt.Errorf("segment: append offset %d: %w", m.Offset, err)
			}
		}
		return nil
	})
}

// Read returns up to limit messages at or after fromOffset, in offset
// order, relying on Badger's key-ordered iteration over big-endian keys.
func (s *Store) Read(_ context.Context, ns identifier.ResourceNamespace, fromOffset uint64, limit int) ([]message.StoredMessage, error) {
	var out []message.StoredMessage
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = partitionPrefix(ns)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(messageKey(ns, fromOffset)); it.ValidForPrefix(opts.Prefix); it.Next() {
			if len(out) >= limit {
				break
			}
			var m message.StoredMessage
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &m)
			}); err != nil {
				return fmt.Errorf("segment: decode message: %w", err)
			}
			out = append(out, m)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Purge removes every message stored for ns.
func (s *Store) Purge(_ context.Context, ns identifier.ResourceNamespace) error {
	prefix := partitionPrefix(ns)
	return s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		var keys [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return fmt.Errorf("segment: purge: %w", err)
			}
		}
		return nil
	})
}
