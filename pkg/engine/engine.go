// Package engine is the streaming engine façade (component I): the single
// entry point every transport-level command handler calls into. It
// orchestrates the directory, the per-topic partition logs, the user
// registry, the shard router and every other collaborator in the fixed
// order Received -> Authenticated -> AuthorizedByPermission -> LockAcquired
// -> DomainMutated -> MetadataApplied -> Responded, and is the only
// package that writes to the metadata log.
package engine

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/trace"

	"github.com/hadoop835/iggy/internal/logger"
	"github.com/hadoop835/iggy/internal/telemetry"
	"github.com/hadoop835/iggy/pkg/apperror"
	"github.com/hadoop835/iggy/pkg/cachetracker"
	"github.com/hadoop835/iggy/pkg/directory"
	"github.com/hadoop835/iggy/pkg/identifier"
	"github.com/hadoop835/iggy/pkg/metadatalog"
	"github.com/hadoop835/iggy/pkg/metrics"
	"github.com/hadoop835/iggy/pkg/partition"
	"github.com/hadoop835/iggy/pkg/permission"
	"github.com/hadoop835/iggy/pkg/security"
	"github.com/hadoop835/iggy/pkg/segment"
	"github.com/hadoop835/iggy/pkg/session"
	"github.com/hadoop835/iggy/pkg/shard"
	"github.com/hadoop835/iggy/pkg/user"
)

// Expansion calls for one Engine value per shard, each owning a private,
// unreplicated Directory. That design leans on the original's
// thread-per-core reactor: a single goroutine owns a shard's state and
// never takes a lock to read it. Go's scheduler gives no such guarantee -
// a goroutine is not pinned to a core, so N independently-locked Directory
// copies would buy replication lag without buying lock-free reads. This
// Engine instead shares one mutex-guarded Directory and one logRegistry
// across every shard value; ShardID exists for routing, logging and
// metadata-log sequencing, not for state isolation. See DESIGN.md.

// logRegistry is the process-wide map from (streamID, topicID) to the
// partition.Log serving it, shared by every Engine value the same way the
// shard router table and cache tracker are shared.
type logRegistry struct {
	mu   sync.RWMutex
	logs map[uint64]*partition.Log
}

func newLogRegistry() *logRegistry {
	return &logRegistry{logs: make(map[uint64]*partition.Log)}
}

func logKey(streamID, topicID uint32) uint64 {
	return uint64(streamID)<<32 | uint64(topicID)
}

func (r *logRegistry) get(streamID, topicID uint32) (*partition.Log, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.logs[logKey(streamID, topicID)]
	return l, ok
}

func (r *logRegistry) set(streamID, topicID uint32, l *partition.Log) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs[logKey(streamID, topicID)] = l
}

func (r *logRegistry) delete(streamID, topicID uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.logs, logKey(streamID, topicID))
}

// all returns every live Log, for cross-topic cache eviction.
func (r *logRegistry) all() []*partition.Log {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*partition.Log, 0, len(r.logs))
	for _, l := range r.logs {
		out = append(out, l)
	}
	return out
}

// Engine is the streaming engine façade for one nominal shard. Every field
// below ShardID is a shared singleton collaborator (see the note above);
// ShardID only tags which metadata-log partition this Engine value files
// structural mutations under and which log lines/metrics carry its id.
type Engine struct {
	ShardID uint16

	dir     *directory.Directory
	logs    *logRegistry
	users   *user.Registry
	clients *session.ClientManager

	permissions *permission.Permissioner
	router      *shard.Router
	tracker     *cachetracker.Tracker
	metrics     *metrics.Sink
	metalog     metadatalog.MetadataLog
	segments    segment.SegmentStore
	encryptor   security.Encryptor
}

// Collaborators bundles every shared singleton a Cluster hands to each of
// its Engine values.
type Collaborators struct {
	Directory   *directory.Directory
	Users       *user.Registry
	Clients     *session.ClientManager
	Permissions *permission.Permissioner
	Router      *shard.Router
	Tracker     *cachetracker.Tracker
	Metrics     *metrics.Sink
	MetadataLog metadatalog.MetadataLog
	Segments    segment.SegmentStore
	// Encryptor, if non-nil, is applied to every message payload after
	// compression on append and before decompression on poll.
	Encryptor security.Encryptor
}

// sharedLogs is lazily shared across every Engine built from the same
// Collaborators value, keyed by the Directory pointer so independent test
// fixtures (each with their own Directory) don't collide.
var (
	sharedLogsMu sync.Mutex
	sharedLogs   = map[*directory.Directory]*logRegistry{}
)

func logsFor(dir *directory.Directory) *logRegistry {
	sharedLogsMu.Lock()
	defer sharedLogsMu.Unlock()
	if r, ok := sharedLogs[dir]; ok {
		return r
	}
	r := newLogRegistry()
	sharedLogs[dir] = r
	return r
}

// New builds an Engine for shardID over the given shared collaborators.
func New(shardID uint16, c Collaborators) *Engine {
	return &Engine{
		ShardID:     shardID,
		dir:         c.Directory,
		logs:        logsFor(c.Directory),
		users:       c.Users,
		clients:     c.Clients,
		permissions: c.Permissions,
		router:      c.Router,
		tracker:     c.Tracker,
		metrics:     c.Metrics,
		metalog:     c.MetadataLog,
		segments:    c.Segments,
		encryptor:   c.Encryptor,
	}
}

// Bootstrap replays the metadata log into the user registry and the
// directory, then creates the root user if the log was empty. It is safe
// to call on every shard's Engine; replay and bootstrap are idempotent
// against the same already-replayed state because ApplyLoggedEntry never
// re-validates.
func (e *Engine) Bootstrap(ctx context.Context) error {
	if err := e.metalog.Replay(ctx, e.ShardID, e.applyReplayedEntry); err != nil {
		return fmt.Errorf("engine: replay metadata log: %v", err)
	}

	entry, created, err := e.users.BootstrapRootIfEmpty()
	if err != nil {
		return fmt.Errorf("engine: bootstrap root user: %v", err)
	}
	if created {
		if _, err := e.metalog.Apply(ctx, e.ShardID, entry); err != nil {
			return fmt.Errorf("engine: persist root user: %v", err)
		}
	}
	return e.ensureLogsForExistingTopics()
}

// applyReplayedEntry dispatches one replayed entry to whichever
// collaborator owns its kind.
func (e *Engine) applyReplayedEntry(entry metadatalog.Entry) error {
	switch entry.Kind {
	case metadatalog.KindCreateUser, metadatalog.KindUpdateUser, metadatalog.KindDeleteUser,
		metadatalog.KindUpdatePermissions, metadatalog.KindChangePassword:
		return e.users.ApplyLoggedEntry(entry)
	default:
		return e.dir.ApplyLoggedEntry(entry)
	}
}

// ensureLogsForExistingTopics builds a partition.Log for every topic the
// directory already knows about after replay, so a restart doesn't lose
// the ability to append/poll existing topics before their next structural
// mutation.
func (e *Engine) ensureLogsForExistingTopics() error {
	streams, err := e.dir.GetStreams(user.RootUserID)
	if err != nil {
		return err
	}
	for _, s := range streams {
		topics, err := e.dir.GetTopics(user.RootUserID, identifier.Numeric(s.ID))
		if err != nil {
			return err
		}
		for _, t := range topics {
			if _, ok := e.logs.get(t.StreamID, t.ID); ok {
				continue
			}
			l, err := partition.New(t.StreamID, t.ID, t.PartitionIDs, t.CompressionAlgorithm, e.segments, e.tracker, e.encryptor)
			if err != nil {
				return err
			}
			e.logs.set(t.StreamID, t.ID, l)
			for _, pid := range t.PartitionIDs {
				e.router.Register(identifier.NewResourceNamespace(t.StreamID, t.ID, pid))
			}
		}
	}
	return nil
}

// applyMetadata persists entry and logs/metrics the outcome of a
// structural mutation. It is the one place every directory-mutating
// command converges on before returning to its caller.
func (e *Engine) applyMetadata(ctx context.Context, entry metadatalog.Entry) error {
	ctx, span := telemetry.StartMetalogSpan(ctx, telemetry.SpanMetalogApply, e.ShardID, telemetry.MetalogKind(entry.Kind.String()))
	defer span.End()

	applied, err := e.metalog.Apply(ctx, e.ShardID, entry)
	if err != nil {
		wrapped := apperror.Newf(apperror.KindInternalError, "persist %s: %v", entry.Kind, err)
		telemetry.RecordError(ctx, wrapped)
		return wrapped
	}
	telemetry.SetAttributes(ctx, telemetry.MetalogSequenceNo(applied.SequenceNum))
	return nil
}

// startCommand opens the root span for a dispatched command, tagged with
// the command name and this Engine's shard id.
func (e *Engine) startCommand(ctx context.Context, command string) (context.Context, trace.Span) {
	return telemetry.StartCommandSpan(ctx, command, e.ShardID)
}

// logCommand records a command's outcome as both a metric and, on
// failure, a structured log line carrying the span's trace/span id so the
// two can be correlated.
func (e *Engine) logCommand(ctx context.Context, command string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = apperror.KindOf(err).String()
		telemetry.RecordError(ctx, err)

		sc := trace.SpanContextFromContext(ctx)
		if sc.IsValid() {
			logger.Error("command failed", logger.Command(command), logger.ErrorKind(outcome), logger.Err(err),
				logger.TraceID(sc.TraceID().String()), logger.SpanID(sc.SpanID().String()))
		} else {
			logger.Error("command failed", logger.Command(command), logger.ErrorKind(outcome), logger.Err(err))
		}
	}
	e.metrics.ObserveCommand(command, outcome)
}
