// Package cachetracker provides a process-wide accounting of how much memory
// is currently held by the per-partition page caches (pkg/partition), so the
// engine can decide when to run eviction before admitting a new batch of
// messages.
package cachetracker

import (
	"sync"
	"sync/atomic"

	"github.com/hadoop835/iggy/internal/bytesize"
	"github.com/hadoop835/iggy/internal/logger"
)

// Config controls whether cache accounting is enabled and, if so, how much
// memory the cache is allowed to use in total across all shards.
type Config struct {
	Enabled bool
	Size    bytesize.ByteSize
}

// Tracker is a singleton usage counter. usedBytes is adjusted with a
// compare-and-swap loop rather than a mutex, since it is on the hot path of
// every append and every cache eviction.
type Tracker struct {
	usedBytes atomic.Int64
	limit     bytesize.ByteSize
}

var (
	instanceOnce sync.Once
	instance     *Tracker // nil when accounting is disabled
)

// Initialize sets up the process-wide tracker from cfg. It is idempotent:
// only the first call takes effect, since the tracker is meant to be
// initialized exactly once at startup.
func Initialize(cfg Config) *Tracker {
	instanceOnce.Do(func() {
		if !cfg.Enabled {
			logger.Info("cache memory tracker disabled")
			return
		}
		instance = &Tracker{limit: cfg.Size}
		logger.Info("cache memory tracker started", logger.CacheCapacity(cfg.Size.Int64()))
	})
	return instance
}

// Instance returns the process-wide tracker, or nil if caching accounting
// was never enabled. Collaborators must treat a nil Tracker as "no limit,
// don't bother accounting" rather than panicking.
func Instance() *Tracker {
	return instance
}

// Increment adds size to the tracked usage.
func (t *Tracker) Increment(size uint64) {
	if t == nil {
		return
	}
	for {
		current := t.usedBytes.Load()
		next := current + int64(size)
		if t.usedBytes.CompareAndSwap(current, next) {
			return
		}
	}
}

// Decrement removes size from the tracked usage, floored at zero so a
// double-eviction or an accounting mismatch can never wrap the counter
// around to a huge positive value. Underflow is logged: it should never
// happen, and if it does the tracked usage is no longer trustworthy.
func (t *Tracker) Decrement(size uint64) {
	if t == nil {
		return
	}
	for {
		current := t.usedBytes.Load()
		next := current - int64(size)
		if next < 0 {
			logger.Warn("cache memory tracker underflow", logger.CacheUsed(current), logger.BatchBytes(int(size)))
			next = 0
		}
		if t.usedBytes.CompareAndSwap(current, next) {
			return
		}
	}
}

// UsageBytes returns the current tracked usage.
func (t *Tracker) UsageBytes() uint64 {
	if t == nil {
		return 0
	}
	return uint64(t.usedBytes.Load())
}

// WillFit reports whether requestedSize more bytes can be admitted without
// exceeding the configured limit. A nil Tracker always fits, since a nil
// Tracker means accounting (and therefore the limit) is disabled.
func (t *Tracker) WillFit(requestedSize uint64) bool {
	if t == nil {
		return true
	}
	return uint64(t.usedBytes.Load())+requestedSize <= t.limit.Uint64()
}

// reset clears the singleton so tests can reinitialize with a fresh Config.
// Unexported: production code initializes the tracker exactly once at
// startup and never needs to reset it.
func reset() {
	instanceOnce = sync.Once{}
	instance = nil
}
