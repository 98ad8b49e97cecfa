package engine

import (
	"context"

	"github.com/hadoop835/iggy/pkg/identifier"
	"github.com/hadoop835/iggy/pkg/shard"
)

// Cluster owns one Engine value per live shard and the router that tells a
// caller which one to hand a message command to. Structural commands
// (streams, topics, partitions, users) are served identically by every
// shard, since they share one Directory and one user Registry; only
// append_messages/poll_messages/consumer-offset commands are routed to a
// specific shard, by namespace.
type Cluster struct {
	shards []*Engine
	router *shard.Router
}

// NewCluster builds shardCount Engine values over the given collaborators.
func NewCluster(shardCount uint16, c Collaborators) *Cluster {
	shards := make([]*Engine, shardCount)
	for i := range shards {
		shards[i] = New(uint16(i), c)
	}
	return &Cluster{shards: shards, router: c.Router}
}

// Bootstrap replays the metadata log and creates the root user if needed,
// once per shard: each Engine replays only its own shard's slice of the
// log, but since every shard applies its replayed entries to the same
// shared Directory and Registry, running Bootstrap across every shard
// reconstructs the complete history.
func (cl *Cluster) Bootstrap(ctx context.Context) error {
	for _, e := range cl.shards {
		if err := e.Bootstrap(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Shard returns the Engine the router assigns ns to, falling back to shard
// zero when ns isn't registered yet (a namespace resolved before its
// create_topic/create_partitions has run) or the router's assignment is
// stale against a shrunk cluster.
func (cl *Cluster) Shard(ns identifier.ResourceNamespace) *Engine {
	if info, ok := cl.router.Lookup(ns); ok && int(info.ID) < len(cl.shards) {
		return cl.shards[info.ID]
	}
	return cl.shards[0]
}

// Directory returns the Engine used for structural and user commands.
// Any shard would do, since they share state; shard zero is as good as
// any other.
func (cl *Cluster) Directory() *Engine {
	return cl.shards[0]
}

// Shards returns every shard's Engine, for per-shard diagnostics (GetStats
// per shard, graceful shutdown).
func (cl *Cluster) Shards() []*Engine {
	return cl.shards
}
