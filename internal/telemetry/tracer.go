package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for engine operations.
const (
	// ========================================================================
	// Client/session attributes
	// ========================================================================
	AttrClientIP   = "client.ip"
	AttrClientAddr = "client.address"
	AttrClientID   = "client.id"

	// ========================================================================
	// Command attributes (protocol-agnostic: every command dispatched
	// through pkg/engine carries these)
	// ========================================================================
	AttrCommand   = "engine.command"
	AttrOutcome   = "engine.outcome"
	AttrShardID   = "engine.shard_id"
	AttrUsername  = "user.name"
	AttrUID       = "user.id"
	AttrAuthMethod = "auth.method"

	// ========================================================================
	// Stream/topic/partition attributes
	// ========================================================================
	AttrStreamID   = "stream.id"
	AttrStreamName = "stream.name"
	AttrTopicID    = "topic.id"
	AttrTopicName  = "topic.name"
	AttrPartitionID = "partition.id"
	AttrCompression = "topic.compression"

	// ========================================================================
	// Messaging attributes
	// ========================================================================
	AttrConsumerID     = "consumer.id"
	AttrConsumerGroup  = "consumer.group"
	AttrMessageCount   = "messages.count"
	AttrMessageOffset  = "messages.offset"
	AttrPollingKind    = "messages.polling_kind"
	AttrPartitioning   = "messages.partitioning_kind"

	// ========================================================================
	// Cache/segment attributes
	// ========================================================================
	AttrCacheHit    = "cache.hit"
	AttrCacheBytes  = "cache.bytes"
	AttrCacheState  = "cache.state"
	AttrSegmentPath = "segment.path"

	// ========================================================================
	// Metadata log attributes
	// ========================================================================
	AttrMetalogKind       = "metadata_log.entry_kind"
	AttrMetalogSequenceNo = "metadata_log.sequence_no"
)

// Span names for engine operations.
// Format: <component>.<operation>.
const (
	// Root span for a dispatched command, regardless of which command kind.
	SpanCommand = "engine.command"

	// Directory (stream/topic/partition structural) spans.
	SpanStreamCreate    = "directory.create_stream"
	SpanStreamUpdate    = "directory.update_stream"
	SpanStreamDelete    = "directory.delete_stream"
	SpanTopicCreate     = "directory.create_topic"
	SpanTopicUpdate     = "directory.update_topic"
	SpanTopicDelete     = "directory.delete_topic"
	SpanPartitionCreate = "directory.create_partitions"
	SpanPartitionDelete = "directory.delete_partitions"

	// Messaging spans.
	SpanMessagesAppend        = "messages.append"
	SpanMessagesPoll          = "messages.poll"
	SpanMessagesStoreOffset   = "messages.store_consumer_offset"
	SpanMessagesGetOffset     = "messages.get_consumer_offset"

	// Cache spans.
	SpanCacheLookup = "cache.lookup"
	SpanCacheEvict  = "cache.evict"

	// Segment store spans.
	SpanSegmentRead  = "segment.read"
	SpanSegmentWrite = "segment.write"

	// Metadata log spans.
	SpanMetalogApply  = "metadata_log.apply"
	SpanMetalogReplay = "metadata_log.replay"

	// User/session spans.
	SpanUserAuthenticate = "user.authenticate"
	SpanSessionCreate    = "session.create"
	SpanSessionDelete    = "session.delete"
)

// ClientIP returns an attribute for client IP address.
func ClientIP(ip string) attribute.KeyValue {
	return attribute.String(AttrClientIP, ip)
}

// ClientAddr returns an attribute for a full client address.
func ClientAddr(addr string) attribute.KeyValue {
	return attribute.String(AttrClientAddr, addr)
}

// ClientID returns an attribute for the session's client id.
func ClientID(id uint32) attribute.KeyValue {
	return attribute.Int64(AttrClientID, int64(id))
}

// Command returns an attribute naming the dispatched command.
func Command(name string) attribute.KeyValue {
	return attribute.String(AttrCommand, name)
}

// Outcome returns an attribute for a command's apperror kind outcome.
func Outcome(outcome string) attribute.KeyValue {
	return attribute.String(AttrOutcome, outcome)
}

// ShardID returns an attribute for the owning shard.
func ShardID(id uint16) attribute.KeyValue {
	return attribute.Int64(AttrShardID, int64(id))
}

// Username returns an attribute for a username.
func Username(name string) attribute.KeyValue {
	return attribute.String(AttrUsername, name)
}

// UID returns an attribute for a user id.
func UID(uid uint32) attribute.KeyValue {
	return attribute.Int64(AttrUID, int64(uid))
}

// AuthMethod returns an attribute for the authentication method used.
func AuthMethod(method string) attribute.KeyValue {
	return attribute.String(AttrAuthMethod, method)
}

// StreamID returns an attribute for a stream id.
func StreamID(id uint32) attribute.KeyValue {
	return attribute.Int64(AttrStreamID, int64(id))
}

// StreamName returns an attribute for a stream name.
func StreamName(name string) attribute.KeyValue {
	return attribute.String(AttrStreamName, name)
}

// TopicID returns an attribute for a topic id.
func TopicID(id uint32) attribute.KeyValue {
	return attribute.Int64(AttrTopicID, int64(id))
}

// TopicName returns an attribute for a topic name.
func TopicName(name string) attribute.KeyValue {
	return attribute.String(AttrTopicName, name)
}

// PartitionID returns an attribute for a partition id.
func PartitionID(id uint32) attribute.KeyValue {
	return attribute.Int64(AttrPartitionID, int64(id))
}

// Compression returns an attribute for a topic's compression algorithm.
func Compression(alg string) attribute.KeyValue {
	return attribute.String(AttrCompression, alg)
}

// ConsumerID returns an attribute for a consumer id.
func ConsumerID(id uint32) attribute.KeyValue {
	return attribute.Int64(AttrConsumerID, int64(id))
}

// MessageCount returns an attribute for a batch's message count.
func MessageCount(count int) attribute.KeyValue {
	return attribute.Int(AttrMessageCount, count)
}

// MessageOffset returns an attribute for a message offset.
func MessageOffset(offset uint64) attribute.KeyValue {
	return attribute.Int64(AttrMessageOffset, int64(offset))
}

// PollingKind returns an attribute for a poll's PollingStrategy kind.
func PollingKind(kind string) attribute.KeyValue {
	return attribute.String(AttrPollingKind, kind)
}

// PartitioningKind returns an attribute for an append's Partitioning kind.
func PartitioningKind(kind string) attribute.KeyValue {
	return attribute.String(AttrPartitioning, kind)
}

// CacheHit returns an attribute for a cache hit/miss indicator.
func CacheHit(hit bool) attribute.KeyValue {
	return attribute.Bool(AttrCacheHit, hit)
}

// CacheBytes returns an attribute for a cache-pressure byte count.
func CacheBytes(bytes uint64) attribute.KeyValue {
	return attribute.Int64(AttrCacheBytes, int64(bytes))
}

// MetalogKind returns an attribute for a metadata log entry kind.
func MetalogKind(kind string) attribute.KeyValue {
	return attribute.String(AttrMetalogKind, kind)
}

// MetalogSequenceNo returns an attribute for a metadata log sequence number.
func MetalogSequenceNo(seq uint64) attribute.KeyValue {
	return attribute.Int64(AttrMetalogSequenceNo, int64(seq))
}

// StartCommandSpan starts the root span for a dispatched engine command.
func StartCommandSpan(ctx context.Context, command string, shardID uint16, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := append([]attribute.KeyValue{Command(command), ShardID(shardID)}, attrs...)
	return StartSpan(ctx, SpanCommand, trace.WithAttributes(allAttrs...))
}

// StartMessagesSpan starts a span for an append/poll operation against a
// topic's partition.Log.
func StartMessagesSpan(ctx context.Context, spanName string, streamID, topicID uint32, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := append([]attribute.KeyValue{StreamID(streamID), TopicID(topicID)}, attrs...)
	return StartSpan(ctx, spanName, trace.WithAttributes(allAttrs...))
}

// StartMetalogSpan starts a span for a metadata log operation.
func StartMetalogSpan(ctx context.Context, spanName string, shardID uint16, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := append([]attribute.KeyValue{ShardID(shardID)}, attrs...)
	return StartSpan(ctx, spanName, trace.WithAttributes(allAttrs...))
}
