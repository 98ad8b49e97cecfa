// Package shard maintains the authoritative mapping from a partition's
// resource namespace to the shard that owns it. Every concurrent reader of
// a partition routes through this table before dispatching work; nothing
// computes shard ownership ad hoc.
package shard

import (
	"sync"

	"github.com/hadoop835/iggy/pkg/identifier"
)

// Info describes the shard owning a given namespace.
type Info struct {
	ID uint16
}

// Router holds the namespace → Info table and the current shard count used
// to compute new placements.
type Router struct {
	mu         sync.RWMutex
	table      map[identifier.ResourceNamespace]Info
	liveShards uint16
}

// NewRouter builds a Router over liveShards shards. liveShards must be >0;
// a router over zero shards can never place anything.
func NewRouter(liveShards uint16) *Router {
	return &Router{table: make(map[identifier.ResourceNamespace]Info), liveShards: liveShards}
}

// ShardOf computes the owning shard for ns without registering it: a pure
// function of the namespace's hash and the current live shard count.
func (r *Router) ShardOf(ns identifier.ResourceNamespace) Info {
	r.mu.RLock()
	shards := r.liveShards
	r.mu.RUnlock()
	return Info{ID: uint16(ns.Hash() % uint64(shards))}
}

// Register computes ShardOf(ns) and inserts it into the table, returning
// the assigned Info. Called once per partition at create_topic/
// create_partitions time.
func (r *Router) Register(ns identifier.ResourceNamespace) Info {
	info := r.ShardOf(ns)
	r.mu.Lock()
	r.table[ns] = info
	r.mu.Unlock()
	return info
}

// Unregister removes ns's row, used by delete_topic/delete_partitions.
func (r *Router) Unregister(ns identifier.ResourceNamespace) {
	r.mu.Lock()
	delete(r.table, ns)
	r.mu.Unlock()
}

// Lookup returns the registered Info for ns, or false if ns has no row (it
// was never registered, or was already unregistered).
func (r *Router) Lookup(ns identifier.ResourceNamespace) (Info, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.table[ns]
	return info, ok
}

// LiveShards reports the shard count placements are currently computed
// against.
func (r *Router) LiveShards() uint16 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.liveShards
}
