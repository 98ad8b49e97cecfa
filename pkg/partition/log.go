package partition

import (
	"context"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/hadoop835/iggy/pkg/apperror"
	"github.com/hadoop835/iggy/pkg/cachetracker"
	"github.com/hadoop835/iggy/pkg/directory"
	"github.com/hadoop835/iggy/pkg/identifier"
	"github.com/hadoop835/iggy/pkg/message"
	"github.com/hadoop835/iggy/pkg/security"
	"github.com/hadoop835/iggy/pkg/segment"
)

// defaultCacheLimitPerPartition bounds how much of a partition's tail is
// kept in memory; anything older falls back to the segment store on read.
const defaultCacheLimitPerPartition = 8 << 20 // 8 MiB

// partitionState is one partition's offset counter, cache tail, and
// per-consumer stored offsets. Guarded by the owning Log's mutex.
type partitionState struct {
	id              uint32
	nextOffset      uint64
	cache           []message.StoredMessage // uncompressed; segment store holds the compressed copy
	cacheBytes      uint64
	consumerOffsets map[consumerKey]uint64
}

// sliceCache returns the cached messages starting at fromOffset, up to
// count of them, and whether the cache could serve the request at all
// (fromOffset falls within what's currently cached).
func (p *partitionState) sliceCache(fromOffset uint64, count uint32) ([]message.StoredMessage, bool) {
	if len(p.cache) == 0 {
		return nil, false
	}
	first := p.cache[0].Offset
	if fromOffset < first {
		return nil, false
	}
	start := int(fromOffset - first)
	if start >= len(p.cache) {
		return nil, false
	}
	end := start + int(count)
	if end > len(p.cache) {
		end = len(p.cache)
	}
	out := make([]message.StoredMessage, end-start)
	copy(out, p.cache[start:end])
	return out, true
}

// Log is the topic/partition log facade (component F): resolves a target
// partition for append_messages, assigns monotonically increasing offsets,
// maintains a bounded in-memory tail per partition, and delegates durable
// storage to a segment.SegmentStore. One Log exists per topic.
type Log struct {
	streamID    uint32
	topicID     uint32
	partitions  map[uint32]*partitionState
	order       []uint32 // insertion order, used for Balanced round-robin
	rrCounter   uint64
	segments    segment.SegmentStore
	tracker     *cachetracker.Tracker
	compression compressor
	encryptor   security.Encryptor // nil disables at-rest encryption
}

// New builds a Log over the given partition ids. alg selects the
// compression applied to payloads before they reach segments; tracker may
// be nil, meaning cache-pressure accounting is disabled. enc may be nil,
// meaning segment payloads are stored compressed but unencrypted.
func New(streamID, topicID uint32, partitionIDs []uint32, alg directory.CompressionAlgorithm, segments segment.SegmentStore, tracker *cachetracker.Tracker, enc security.Encryptor) (*Log, error) {
	comp, err := compressorFor(alg)
	if err != nil {
		return nil, err
	}
	l := &Log{
		streamID:    streamID,
		topicID:     topicID,
		partitions:  make(map[uint32]*partitionState, len(partitionIDs)),
		segments:    segments,
		tracker:     tracker,
		compression: comp,
		encryptor:   enc,
	}
	for _, id := range partitionIDs {
		l.addPartition(id)
	}
	return l, nil
}

func (l *Log) addPartition(id uint32) {
	l.partitions[id] = &partitionState{id: id, consumerOffsets: make(map[consumerKey]uint64)}
	l.order = append(l.order, id)
}

// AddPartitions extends the log with newly allocated partition ids,
// mirroring directory.Directory.CreatePartitions.
func (l *Log) AddPartitions(ids []uint32) {
	for _, id := range ids {
		l.addPartition(id)
	}
}

// RemovePartitions drops the given partition ids, releasing their cached
// bytes from the tracker. It does not purge their segment-store data and
// does not touch the shard router.
func (l *Log) RemovePartitions(ids []uint32) {
	remove := make(map[uint32]bool, len(ids))
	for _, id := range ids {
		remove[id] = true
	}
	for _, id := range ids {
		if p, ok := l.partitions[id]; ok {
			l.tracker.Decrement(p.cacheBytes)
			delete(l.partitions, id)
		}
	}
	kept := l.order[:0]
	for _, id := range l.order {
		if !remove[id] {
			kept = append(kept, id)
		}
	}
	l.order = kept
}

func (l *Log) namespace(partitionID uint32) identifier.ResourceNamespace {
	return identifier.NewResourceNamespace(l.streamID, l.topicID, partitionID)
}

// resolvePartition picks the target partition id for partitioning. Callers
// must already hold whatever lock protects this Log (the engine serializes
// appends against directory mutations on a per-shard basis; Log itself
// does no internal locking since it never observes concurrent callers on
// the thread-per-core model it is built for).
func (l *Log) resolvePartition(partitioning Partitioning) (uint32, error) {
	if len(l.order) == 0 {
		return 0, apperror.New(apperror.KindNoPartitions, "topic has no partitions")
	}
	switch partitioning.Kind {
	case PartitioningBalanced:
		idx := l.rrCounter
		l.rrCounter++
		return l.order[idx%uint64(len(l.order))], nil
	case PartitioningPartitionID:
		if _, ok := l.partitions[partitioning.PartitionID]; !ok {
			return 0, apperror.Newf(apperror.KindResourceNotFound, "partition %d", partitioning.PartitionID)
		}
		return partitioning.PartitionID, nil
	case PartitioningMessagesKey:
		h := xxhash.Sum64(partitioning.MessagesKey)
		return l.order[h%uint64(len(l.order))], nil
	default:
		return 0, apperror.Newf(apperror.KindInvalidIdentifier, "unknown partitioning kind %d", partitioning.Kind)
	}
}

// AppendMessages assigns offsets to msgs, appends the compressed form to
// the segment store, keeps the uncompressed form in the partition's cache,
// adds the batch's logical byte size to the cache memory tracker, and
// returns that size.
func (l *Log) AppendMessages(ctx context.Context, partitioning Partitioning, msgs []message.Message) (uint64, error) {
	if len(msgs) == 0 {
		return 0, apperror.New(apperror.KindInvalidMessagesCount, "append_messages requires at least one message")
	}

	partitionID, err := l.resolvePartition(partitioning)
	if err != nil {
		return 0, err
	}
	p := l.partitions[partitionID]

	now := uint64(time.Now().UnixNano())
	forSegment := make([]message.StoredMessage, len(msgs))
	forCache := make([]message.StoredMessage, len(msgs))
	var batchSize uint64
	for i, m := range msgs {
		checksum := uint32(xxhash.Sum64(m.Payload))
		compressed, err := l.compression.compress(m.Payload)
		if err != nil {
			return 0, apperror.Newf(apperror.KindInternalError, "compress message: %v", err)
		}
		if l.encryptor != nil {
			compressed, err = l.encryptor.Encrypt(compressed)
			if err != nil {
				return 0, err
			}
		}
		offset := p.nextOffset
		p.nextOffset++

		forSegment[i] = message.StoredMessage{ID: m.ID, Offset: offset, Timestamp: now, Checksum: checksum, State: message.StateAvailable, Headers: m.Headers, Payload: compressed}
		forCache[i] = message.StoredMessage{ID: m.ID, Offset: offset, Timestamp: now, Checksum: checksum, State: message.StateAvailable, Headers: m.Headers, Payload: m.Payload}
		batchSize += forCache[i].Size()
	}

	if err := l.segments.Append(ctx, l.namespace(partitionID), forSegment); err != nil {
		return 0, err
	}

	p.cache = append(p.cache, forCache...)
	for _, m := range forCache {
		p.cacheBytes += m.Size()
	}
	l.tracker.Increment(batchSize)
	l.trimCache(p)
	return batchSize, nil
}

// trimCache evicts the oldest cached entries of p until it is back under
// defaultCacheLimitPerPartition. Anything evicted remains durable in the
// segment store; only the fast path is lost.
func (l *Log) trimCache(p *partitionState) {
	for p.cacheBytes > defaultCacheLimitPerPartition && len(p.cache) > 0 {
		oldest := p.cache[0]
		p.cache = p.cache[1:]
		freed := oldest.Size()
		p.cacheBytes -= freed
		l.tracker.Decrement(freed)
	}
}

// EvictOldest drops cached entries across every partition, oldest first in
// partition round-robin, until at least maxBytes have been freed or every
// cache is empty. The engine façade calls this as clean_cache when a
// pending append won't fit under the cache memory tracker's limit.
func (l *Log) EvictOldest(maxBytes uint64) uint64 {
	var freed uint64
	for freed < maxBytes {
		progressed := false
		for _, id := range l.order {
			p := l.partitions[id]
			if len(p.cache) == 0 {
				continue
			}
			oldest := p.cache[0]
			p.cache = p.cache[1:]
			size := oldest.Size()
			p.cacheBytes -= size
			l.tracker.Decrement(size)
			freed += size
			progressed = true
			if freed >= maxBytes {
				break
			}
		}
		if !progressed {
			break
		}
	}
	return freed
}

// GetMessages reads up to count messages starting per strategy, first from
// the cache and falling back to the segment store for offsets no longer
// cached.
func (l *Log) GetMessages(ctx context.Context, consumer Consumer, partitionID uint32, strategy PollingStrategy, count uint32) ([]message.PolledMessage, error) {
	if count == 0 {
		return nil, apperror.New(apperror.KindInvalidMessagesCount, "poll_messages requires count greater than zero")
	}
	p, ok := l.partitions[partitionID]
	if !ok {
		return nil, apperror.Newf(apperror.KindResourceNotFound, "partition %d", partitionID)
	}

	var fromOffset uint64
	switch strategy.Kind {
	case PollingFirst:
		fromOffset = 0
	case PollingOffset:
		fromOffset = strategy.Value
	case PollingLast:
		if p.nextOffset > 0 {
			fromOffset = p.nextOffset - 1
		}
	case PollingNext:
		if offset, ok := p.consumerOffsets[consumerKeyOf(consumer)]; ok {
			fromOffset = offset + 1
		}
	case PollingTimestamp:
		offset, err := l.findOffsetByTimestamp(ctx, p, partitionID, strategy.Value)
		if err != nil {
			return nil, err
		}
		fromOffset = offset
	default:
		return nil, apperror.Newf(apperror.KindInvalidIdentifier, "unknown polling strategy %d", strategy.Kind)
	}

	if cached, ok := p.sliceCache(fromOffset, count); ok {
		return cached, nil
	}

	stored, err := l.segments.Read(ctx, l.namespace(partitionID), fromOffset, int(count))
	if err != nil {
		return nil, err
	}
	for i, m := range stored {
		raw := m.Payload
		if l.encryptor != nil {
			raw, err = l.encryptor.Decrypt(raw)
			if err != nil {
				return nil, err
			}
		}
		payload, err := l.compression.decompress(raw)
		if err != nil {
			return nil, apperror.Newf(apperror.KindCannotDecryptData, "decompress message at offset %d: %v", m.Offset, err)
		}
		stored[i].Payload = payload
	}
	return stored, nil
}

// findOffsetByTimestamp scans the segment store from the start of the
// partition for the first message at or after timestampNanos. Partitions
// are expected to be read by timestamp rarely relative to Offset/Next, so
// this trades an index for simplicity.
func (l *Log) findOffsetByTimestamp(ctx context.Context, p *partitionState, partitionID uint32, timestampNanos uint64) (uint64, error) {
	const scanPage = 256
	offset := uint64(0)
	for {
		page, err := l.segments.Read(ctx, l.namespace(partitionID), offset, scanPage)
		if err != nil {
			return 0, err
		}
		if len(page) == 0 {
			return 0, apperror.New(apperror.KindResourceNotFound, "no message at or after the requested timestamp")
		}
		for _, m := range page {
			if m.Timestamp >= timestampNanos {
				return m.Offset, nil
			}
		}
		offset = page[len(page)-1].Offset + 1
	}
}

// StoreConsumerOffset durably records consumer's offset for partitionID.
// Monotonic: a stale offset (at or behind what's already stored) is
// silently ignored rather than rejected, since retried auto-commits are
// expected to race a live poll.
func (l *Log) StoreConsumerOffset(partitionID uint32, consumer Consumer, offset uint64) error {
	p, ok := l.partitions[partitionID]
	if !ok {
		return apperror.Newf(apperror.KindResourceNotFound, "partition %d", partitionID)
	}
	key := consumerKeyOf(consumer)
	if existing, ok := p.consumerOffsets[key]; ok && offset <= existing {
		return nil
	}
	p.consumerOffsets[key] = offset
	return nil
}

// GetConsumerOffset returns the last stored offset for consumer on
// partitionID, and whether one has ever been stored.
func (l *Log) GetConsumerOffset(partitionID uint32, consumer Consumer) (uint64, bool, error) {
	p, ok := l.partitions[partitionID]
	if !ok {
		return 0, false, apperror.Newf(apperror.KindResourceNotFound, "partition %d", partitionID)
	}
	offset, ok := p.consumerOffsets[consumerKeyOf(consumer)]
	return offset, ok, nil
}

// Purge drops every message in every partition of the topic, preserving
// partition count and consumer offsets.
func (l *Log) Purge(ctx context.Context) error {
	for id, p := range l.partitions {
		if err := l.segments.Purge(ctx, l.namespace(id)); err != nil {
			return err
		}
		l.tracker.Decrement(p.cacheBytes)
		p.cache = nil
		p.cacheBytes = 0
		p.nextOffset = 0
	}
	return nil
}
