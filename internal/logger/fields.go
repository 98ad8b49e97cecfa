package logger

import (
	"log/slog"
)

// Standard field keys for structured logging.
// Use these keys consistently across all log statements for log aggregation and querying.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// Command & Session
	// ========================================================================
	KeyCommand  = "command"   // Engine command name: AppendMessages, PollMessages, ...
	KeyClientID = "client_id" // Session client ID
	KeyUserID   = "user_id"   // Authenticated user ID
	KeyUsername = "username"  // Username

	// ========================================================================
	// Topology
	// ========================================================================
	KeyStream      = "stream"       // Stream id or name
	KeyTopic       = "topic"        // Topic id or name
	KeyPartition   = "partition"    // Partition id
	KeyNamespace   = "namespace"    // Resource namespace (stream/topic/partition)
	KeyShardID     = "shard_id"     // Shard index this request routed to
	KeyLiveShards  = "live_shards"  // Number of live shards in the router table
	KeyConsumer    = "consumer"     // Consumer group or consumer id
	KeyOffset      = "offset"       // Message / consumer offset
	KeyMessagesLen = "messages_len" // Number of messages in a batch

	// ========================================================================
	// Client Identification
	// ========================================================================
	KeyClientIP   = "client_ip"   // Client IP address
	KeyClientPort = "client_port" // Client source port

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
	KeyErrorKind  = "error_kind"  // apperror.Kind name
	KeySource     = "source"      // Subsystem emitting the log line
	KeyOperation  = "operation"   // Sub-operation type for complex operations

	// ========================================================================
	// Cache Layer
	// ========================================================================
	KeyCacheHit      = "cache_hit"      // Cache hit indicator
	KeyCacheUsed     = "cache_used"     // Current tracked cache usage in bytes
	KeyCacheCapacity = "cache_capacity" // Configured cache capacity in bytes
	KeyEvicted       = "evicted"        // Number of entries evicted

	// ========================================================================
	// Storage Backend
	// ========================================================================
	KeySegmentPath = "segment_path" // On-disk/Badger segment key prefix
	KeyBytesRead   = "bytes_read"   // Actual bytes read from a segment
	KeyBatchBytes  = "batch_bytes"  // Size of an append batch in bytes
)

// ============================================================================
// Field constructors for type safety
// These functions provide type-safe construction of slog.Attr values.
// ============================================================================

// TraceID returns a slog.Attr for OpenTelemetry trace ID
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns a slog.Attr for OpenTelemetry span ID
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// Command returns a slog.Attr for the engine command name
func Command(name string) slog.Attr {
	return slog.String(KeyCommand, name)
}

// ClientID returns a slog.Attr for the session client id
func ClientID(id uint32) slog.Attr {
	return slog.Any(KeyClientID, id)
}

// UserID returns a slog.Attr for the authenticated user id
func UserID(id uint32) slog.Attr {
	return slog.Any(KeyUserID, id)
}

// Username returns a slog.Attr for a username
func Username(name string) slog.Attr {
	return slog.String(KeyUsername, name)
}

// Stream returns a slog.Attr for a stream identifier
func Stream(id string) slog.Attr {
	return slog.String(KeyStream, id)
}

// Topic returns a slog.Attr for a topic identifier
func Topic(id string) slog.Attr {
	return slog.String(KeyTopic, id)
}

// Partition returns a slog.Attr for a partition id
func Partition(id uint32) slog.Attr {
	return slog.Any(KeyPartition, id)
}

// Namespace returns a slog.Attr for a resource namespace
func Namespace(ns string) slog.Attr {
	return slog.String(KeyNamespace, ns)
}

// ShardID returns a slog.Attr for the routed shard index
func ShardID(id uint64) slog.Attr {
	return slog.Uint64(KeyShardID, id)
}

// LiveShards returns a slog.Attr for the router's live shard count
func LiveShards(n uint64) slog.Attr {
	return slog.Uint64(KeyLiveShards, n)
}

// Consumer returns a slog.Attr for a consumer/consumer-group identifier
func Consumer(id string) slog.Attr {
	return slog.String(KeyConsumer, id)
}

// Offset returns a slog.Attr for a message or consumer offset
func Offset(off uint64) slog.Attr {
	return slog.Uint64(KeyOffset, off)
}

// MessagesLen returns a slog.Attr for a batch's message count
func MessagesLen(n int) slog.Attr {
	return slog.Int(KeyMessagesLen, n)
}

// ClientIP returns a slog.Attr for client IP address
func ClientIP(addr string) slog.Attr {
	return slog.String(KeyClientIP, addr)
}

// ClientPort returns a slog.Attr for client source port
func ClientPort(port int) slog.Attr {
	return slog.Int(KeyClientPort, port)
}

// DurationMs returns a slog.Attr for duration in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// ErrorKind returns a slog.Attr for an apperror.Kind name
func ErrorKind(kind string) slog.Attr {
	return slog.String(KeyErrorKind, kind)
}

// Source returns a slog.Attr for the emitting subsystem
func Source(src string) slog.Attr {
	return slog.String(KeySource, src)
}

// Operation returns a slog.Attr for sub-operation type
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// CacheHit returns a slog.Attr for cache hit indicator
func CacheHit(hit bool) slog.Attr {
	return slog.Bool(KeyCacheHit, hit)
}

// CacheUsed returns a slog.Attr for current tracked cache usage
func CacheUsed(bytes int64) slog.Attr {
	return slog.Int64(KeyCacheUsed, bytes)
}

// CacheCapacity returns a slog.Attr for configured cache capacity
func CacheCapacity(bytes int64) slog.Attr {
	return slog.Int64(KeyCacheCapacity, bytes)
}

// Evicted returns a slog.Attr for number of entries evicted
func Evicted(n int) slog.Attr {
	return slog.Int(KeyEvicted, n)
}

// SegmentPath returns a slog.Attr for a segment store key prefix
func SegmentPath(p string) slog.Attr {
	return slog.String(KeySegmentPath, p)
}

// BytesRead returns a slog.Attr for actual bytes read from a segment
func BytesRead(n int) slog.Attr {
	return slog.Int(KeyBytesRead, n)
}

// BatchBytes returns a slog.Attr for an append batch's size in bytes
func BatchBytes(n int) slog.Attr {
	return slog.Int(KeyBatchBytes, n)
}
