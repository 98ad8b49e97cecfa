package engine

import (
	"github.com/hadoop835/iggy/pkg/apperror"
	"github.com/hadoop835/iggy/pkg/identifier"
	"github.com/hadoop835/iggy/pkg/user"
)

// Stats is a snapshot of process-wide counts, read live from the
// directory, user registry and cache tracker rather than from the
// metrics.Sink gauges, so it can never drift from the source of truth
// those gauges are themselves derived from.
type Stats struct {
	ShardID         uint16
	LiveShards      uint16
	Streams         int
	Topics          int
	Partitions      int
	Users           int
	CacheUsageBytes uint64
}

// Ping answers a liveness check. It performs no authentication: a
// transport-level connection that can't even ping has no session to
// authenticate yet.
func (e *Engine) Ping() error {
	return nil
}

// GetStats reports process-wide counts. Streams/topics/partitions are
// counted across the whole directory regardless of what the caller can
// individually read, the same root-scoped enumeration Bootstrap uses to
// rebuild partition logs after replay.
func (e *Engine) GetStats(callerUserID uint32) (Stats, error) {
	if callerUserID == 0 {
		return Stats{}, apperror.New(apperror.KindNotAuthenticated, "no authenticated user bound to this session")
	}

	streams, err := e.dir.GetStreams(user.RootUserID)
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{
		ShardID:         e.ShardID,
		LiveShards:      e.router.LiveShards(),
		Streams:         len(streams),
		CacheUsageBytes: e.tracker.UsageBytes(),
	}
	for _, s := range streams {
		topics, err := e.dir.GetTopics(user.RootUserID, identifier.Numeric(s.ID))
		if err != nil {
			return Stats{}, err
		}
		stats.Topics += len(topics)
		for _, t := range topics {
			stats.Partitions += len(t.PartitionIDs)
		}
	}

	users, err := e.users.GetUsers(user.RootUserID)
	if err != nil {
		return Stats{}, err
	}
	stats.Users = len(users)

	return stats, nil
}
