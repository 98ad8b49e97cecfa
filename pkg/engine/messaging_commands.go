package engine

import (
	"context"

	"github.com/hadoop835/iggy/internal/telemetry"
	"github.com/hadoop835/iggy/pkg/apperror"
	"github.com/hadoop835/iggy/pkg/identifier"
	"github.com/hadoop835/iggy/pkg/message"
	"github.com/hadoop835/iggy/pkg/partition"
)

// resolveLog resolves streamID/topicID to the topic's partition log,
// requiring read_topic access (AppendMessages/PollMessages check the
// stricter, message-specific permission themselves once the topic is
// resolved).
func (e *Engine) resolveLog(callerUserID uint32, streamID, topicID identifier.Identifier) (*partition.Log, uint32, uint32, error) {
	t, err := e.dir.GetTopic(callerUserID, streamID, topicID)
	if err != nil {
		return nil, 0, 0, err
	}
	l, ok := e.logs.get(t.StreamID, t.ID)
	if !ok {
		return nil, 0, 0, apperror.Newf(apperror.KindInternalError, "no log for topic %d", t.ID)
	}
	return l, t.StreamID, t.ID, nil
}

// ensureCacheRoom evicts cached messages, first from the target topic's
// own log and then, if that isn't enough, round-robin from every other
// live log, until requestedSize bytes are free or nothing more can be
// evicted. This is clean_cache: the engine's cache-pressure check that
// runs before admitting a batch the tracker says won't currently fit.
func (e *Engine) ensureCacheRoom(target *partition.Log, requestedSize uint64) {
	if e.tracker.WillFit(requestedSize) {
		return
	}
	target.EvictOldest(requestedSize)
	if e.tracker.WillFit(requestedSize) {
		return
	}
	for _, l := range e.logs.all() {
		if l == target {
			continue
		}
		l.EvictOldest(requestedSize)
		if e.tracker.WillFit(requestedSize) {
			return
		}
	}
}

// AppendMessages writes a batch of messages to streamID/topicID, resolving
// the target partition per partitioning, and runs cache eviction first if
// the batch wouldn't otherwise fit under the cache memory tracker's limit.
func (e *Engine) AppendMessages(ctx context.Context, callerUserID uint32, streamID, topicID identifier.Identifier, partitioning partition.Partitioning, msgs []message.Message) (uint64, error) {
	l, sID, tID, err := e.resolveLog(callerUserID, streamID, topicID)
	if err != nil {
		e.logCommand(ctx, "append_messages", err)
		return 0, err
	}

	ctx, span := telemetry.StartMessagesSpan(ctx, telemetry.SpanMessagesAppend, sID, tID, telemetry.MessageCount(len(msgs)))
	defer span.End()

	if err := e.permissions.AppendMessages(callerUserID, sID, tID); err != nil {
		e.logCommand(ctx, "append_messages", err)
		return 0, err
	}

	var requestedSize uint64
	for _, m := range msgs {
		requestedSize += m.Size()
	}
	e.ensureCacheRoom(l, requestedSize)

	batchSize, err := l.AppendMessages(ctx, partitioning, msgs)
	if err == nil {
		e.metrics.IncrementMessages(uint64(len(msgs)))
	}
	e.logCommand(ctx, "append_messages", err)
	return batchSize, err
}

// PollMessages reads up to count messages from partitionID per strategy.
func (e *Engine) PollMessages(ctx context.Context, callerUserID uint32, streamID, topicID identifier.Identifier, consumer partition.Consumer, partitionID uint32, strategy partition.PollingStrategy, count uint32) ([]message.PolledMessage, error) {
	l, sID, tID, err := e.resolveLog(callerUserID, streamID, topicID)
	if err != nil {
		e.logCommand(ctx, "poll_messages", err)
		return nil, err
	}

	ctx, span := telemetry.StartMessagesSpan(ctx, telemetry.SpanMessagesPoll, sID, tID,
		telemetry.PartitionID(partitionID), telemetry.ConsumerID(consumer.ID))
	defer span.End()

	if err := e.permissions.PollMessages(callerUserID, sID, tID); err != nil {
		e.logCommand(ctx, "poll_messages", err)
		return nil, err
	}

	msgs, err := l.GetMessages(ctx, consumer, partitionID, strategy, count)
	e.logCommand(ctx, "poll_messages", err)
	return msgs, err
}

// StoreConsumerOffset durably records consumer's offset for partitionID.
func (e *Engine) StoreConsumerOffset(callerUserID uint32, streamID, topicID identifier.Identifier, consumer partition.Consumer, partitionID uint32, offset uint64) error {
	ctx := context.Background()
	l, sID, tID, err := e.resolveLog(callerUserID, streamID, topicID)
	if err != nil {
		e.logCommand(ctx, "store_consumer_offset", err)
		return err
	}
	if err := e.permissions.PollMessages(callerUserID, sID, tID); err != nil {
		e.logCommand(ctx, "store_consumer_offset", err)
		return err
	}

	err = l.StoreConsumerOffset(partitionID, consumer, offset)
	e.logCommand(ctx, "store_consumer_offset", err)
	return err
}

// GetConsumerOffset returns the last stored offset for consumer on
// partitionID, and whether one has ever been stored.
func (e *Engine) GetConsumerOffset(callerUserID uint32, streamID, topicID identifier.Identifier, consumer partition.Consumer, partitionID uint32) (uint64, bool, error) {
	ctx := context.Background()
	l, sID, tID, err := e.resolveLog(callerUserID, streamID, topicID)
	if err != nil {
		e.logCommand(ctx, "get_consumer_offset", err)
		return 0, false, err
	}
	if err := e.permissions.PollMessages(callerUserID, sID, tID); err != nil {
		e.logCommand(ctx, "get_consumer_offset", err)
		return 0, false, err
	}

	offset, ok, err := l.GetConsumerOffset(partitionID, consumer)
	e.logCommand(ctx, "get_consumer_offset", err)
	return offset, ok, err
}
