package metadatalog

import (
	"context"
	"sync"
)

var _ MetadataLog = (*MemoryLog)(nil)

// MemoryLog is an in-process MetadataLog implementation backed by a plain
// slice per shard. It satisfies the same interface as PostgresLog and is
// suitable for tests and single-process deployments that accept losing the
// log on restart.
type MemoryLog struct {
	mu      sync.RWMutex
	byShard map[uint16][]Entry
}

// NewMemoryLog returns an empty MemoryLog.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{byShard: make(map[uint16][]Entry)}
}

// Apply appends entry to shardID's in-memory slice under the next
// SequenceNum and returns it.
func (l *MemoryLog) Apply(_ context.Context, shardID uint16, entry Entry) (Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry.SequenceNum = uint64(len(l.byShard[shardID])) + 1
	l.byShard[shardID] = append(l.byShard[shardID], entry)
	return entry, nil
}

// Replay invokes fn for every entry previously applied to shardID, in
// commit (append) order.
func (l *MemoryLog) Replay(_ context.Context, shardID uint16, fn func(Entry) error) error {
	l.mu.RLock()
	entries := append([]Entry(nil), l.byShard[shardID]...)
	l.mu.RUnlock()

	for _, e := range entries {
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}

// Close is a no-op; MemoryLog owns no external resources.
func (l *MemoryLog) Close() error { return nil }
