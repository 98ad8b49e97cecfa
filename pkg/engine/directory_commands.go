package engine

import (
	"context"

	"github.com/hadoop835/iggy/internal/bytesize"
	"github.com/hadoop835/iggy/pkg/apperror"
	"github.com/hadoop835/iggy/pkg/directory"
	"github.com/hadoop835/iggy/pkg/identifier"
	"github.com/hadoop835/iggy/pkg/metadatalog"
	"github.com/hadoop835/iggy/pkg/partition"
)

// CreateStream registers a new stream and persists it.
func (e *Engine) CreateStream(ctx context.Context, callerUserID uint32, id *uint32, name string) (*directory.Stream, error) {
	ctx, span := e.startCommand(ctx, "create_stream")
	defer span.End()

	s, err := e.dir.CreateStream(callerUserID, id, name)
	if err == nil {
		entry, encErr := directory.EncodeEntry(metadatalog.KindCreateStream, callerUserID, directory.NewCreateStreamPayload(s))
		if encErr != nil {
			err = encErr
		} else if applyErr := e.applyMetadata(ctx, entry); applyErr != nil {
			err = applyErr
		} else {
			e.metrics.AddStreamsCount(1)
		}
	}
	e.logCommand(ctx, "create_stream", err)
	return s, err
}

// UpdateStream renames an existing stream.
func (e *Engine) UpdateStream(ctx context.Context, callerUserID uint32, id identifier.Identifier, newName string) (*directory.Stream, error) {
	ctx, span := e.startCommand(ctx, "update_stream")
	defer span.End()

	s, err := e.dir.UpdateStream(callerUserID, id, newName)
	if err == nil {
		entry, encErr := directory.EncodeEntry(metadatalog.KindUpdateStream, callerUserID, directory.NewUpdateStreamPayload(s))
		if encErr != nil {
			err = encErr
		} else {
			err = e.applyMetadata(ctx, entry)
		}
	}
	e.logCommand(ctx, "update_stream", err)
	return s, err
}

// DeleteStream removes a stream and every topic it contains, releasing
// their partition logs, shard-router rows, and metrics.
func (e *Engine) DeleteStream(ctx context.Context, callerUserID uint32, id identifier.Identifier) (*directory.Stream, error) {
	ctx, span := e.startCommand(ctx, "delete_stream")
	defer span.End()

	s, err := e.dir.DeleteStream(callerUserID, id)
	if err == nil {
		entry, encErr := directory.EncodeEntry(metadatalog.KindDeleteStream, callerUserID, directory.NewDeleteStreamPayload(s))
		if encErr != nil {
			err = encErr
		} else if applyErr := e.applyMetadata(ctx, entry); applyErr != nil {
			err = applyErr
		} else {
			for _, t := range s.Topics {
				e.releaseTopicResources(ctx, t)
			}
			e.metrics.AddStreamsCount(-1)
		}
	}
	e.logCommand(ctx, "delete_stream", err)
	return s, err
}

// GetStream resolves a single stream.
func (e *Engine) GetStream(callerUserID uint32, id identifier.Identifier) (*directory.Stream, error) {
	return e.dir.GetStream(callerUserID, id)
}

// GetStreams lists every stream the caller can read.
func (e *Engine) GetStreams(callerUserID uint32) ([]*directory.Stream, error) {
	return e.dir.GetStreams(callerUserID)
}

// CreateTopic adds a topic to a stream, builds its partition log, and
// registers its partitions with the shard router.
func (e *Engine) CreateTopic(ctx context.Context, callerUserID uint32, streamID identifier.Identifier, topicID *uint32, name string, partitionsCount uint32, messageExpirySeconds *uint32, compression directory.CompressionAlgorithm, maxTopicSize *bytesize.ByteSize, replicationFactor uint8) (*directory.Topic, error) {
	ctx, span := e.startCommand(ctx, "create_topic")
	defer span.End()

	t, newIDs, err := e.dir.CreateTopic(callerUserID, streamID, topicID, name, partitionsCount, messageExpirySeconds, compression, maxTopicSize, replicationFactor)
	if err != nil {
		e.logCommand(ctx, "create_topic", err)
		return nil, err
	}

	l, err := partition.New(t.StreamID, t.ID, t.PartitionIDs, t.CompressionAlgorithm, e.segments, e.tracker, e.encryptor)
	if err != nil {
		e.logCommand(ctx, "create_topic", err)
		return nil, err
	}
	e.logs.set(t.StreamID, t.ID, l)
	for _, pid := range newIDs {
		e.router.Register(identifier.NewResourceNamespace(t.StreamID, t.ID, pid))
	}

	entry, err := directory.EncodeEntry(metadatalog.KindCreateTopic, callerUserID, directory.NewCreateTopicPayload(t))
	if err == nil {
		err = e.applyMetadata(ctx, entry)
	}
	if err == nil {
		e.metrics.AddTopicsCount(1)
		e.metrics.AddPartitionsCount(len(newIDs))
	}
	e.logCommand(ctx, "create_topic", err)
	return t, err
}

// UpdateTopic mutates a topic's name, retention, compression and
// replication factor. A compression change only affects messages appended
// after this call: an already-running partition.Log keeps the compressor
// it was built with, since rebuilding it would reset offset assignment and
// the cache tail for every one of its partitions.
func (e *Engine) UpdateTopic(ctx context.Context, callerUserID uint32, streamID, topicID identifier.Identifier, name string, messageExpirySeconds *uint32, compression directory.CompressionAlgorithm, maxTopicSize *bytesize.ByteSize, replicationFactor uint8) (*directory.Topic, error) {
	ctx, span := e.startCommand(ctx, "update_topic")
	defer span.End()

	t, err := e.dir.UpdateTopic(callerUserID, streamID, topicID, name, messageExpirySeconds, compression, maxTopicSize, replicationFactor)
	if err == nil {
		entry, encErr := directory.EncodeEntry(metadatalog.KindUpdateTopic, callerUserID, directory.NewUpdateTopicPayload(t))
		if encErr != nil {
			err = encErr
		} else {
			err = e.applyMetadata(ctx, entry)
		}
	}
	e.logCommand(ctx, "update_topic", err)
	return t, err
}

// DeleteTopic removes a topic and releases its partition log, shard-router
// rows, and metrics.
func (e *Engine) DeleteTopic(ctx context.Context, callerUserID uint32, streamID, topicID identifier.Identifier) (*directory.Topic, error) {
	ctx, span := e.startCommand(ctx, "delete_topic")
	defer span.End()

	t, err := e.dir.DeleteTopic(callerUserID, streamID, topicID)
	if err == nil {
		entry, encErr := directory.EncodeEntry(metadatalog.KindDeleteTopic, callerUserID, directory.NewDeleteTopicPayload(t))
		if encErr != nil {
			err = encErr
		} else if applyErr := e.applyMetadata(ctx, entry); applyErr != nil {
			err = applyErr
		} else {
			e.releaseTopicResources(ctx, t)
		}
	}
	e.logCommand(ctx, "delete_topic", err)
	return t, err
}

// GetTopic resolves a single topic.
func (e *Engine) GetTopic(callerUserID uint32, streamID, topicID identifier.Identifier) (*directory.Topic, error) {
	return e.dir.GetTopic(callerUserID, streamID, topicID)
}

// GetTopics lists every topic in a stream the caller can read.
func (e *Engine) GetTopics(callerUserID uint32, streamID identifier.Identifier) ([]*directory.Topic, error) {
	return e.dir.GetTopics(callerUserID, streamID)
}

// CreatePartitions appends partitions to an existing topic's log and
// registers them with the shard router.
func (e *Engine) CreatePartitions(ctx context.Context, callerUserID uint32, streamID, topicID identifier.Identifier, count uint32) (*directory.Topic, error) {
	ctx, span := e.startCommand(ctx, "create_partitions")
	defer span.End()

	t, newIDs, err := e.dir.CreatePartitions(callerUserID, streamID, topicID, count)
	if err != nil {
		e.logCommand(ctx, "create_partitions", err)
		return nil, err
	}

	if l, ok := e.logs.get(t.StreamID, t.ID); ok {
		l.AddPartitions(newIDs)
	}
	for _, pid := range newIDs {
		e.router.Register(identifier.NewResourceNamespace(t.StreamID, t.ID, pid))
	}

	entry, err := directory.EncodeEntry(metadatalog.KindCreatePartitions, callerUserID, directory.NewCreatePartitionsPayload(t.StreamID, t.ID, newIDs))
	if err == nil {
		err = e.applyMetadata(ctx, entry)
	}
	if err == nil {
		e.metrics.AddPartitionsCount(len(newIDs))
	}
	e.logCommand(ctx, "create_partitions", err)
	return t, err
}

// DeletePartitions removes the highest-numbered partitions from a topic's
// log and unregisters them from the shard router.
func (e *Engine) DeletePartitions(ctx context.Context, callerUserID uint32, streamID, topicID identifier.Identifier, count uint32) (*directory.Topic, error) {
	ctx, span := e.startCommand(ctx, "delete_partitions")
	defer span.End()

	t, removedIDs, err := e.dir.DeletePartitions(callerUserID, streamID, topicID, count)
	if err != nil {
		e.logCommand(ctx, "delete_partitions", err)
		return nil, err
	}

	if l, ok := e.logs.get(t.StreamID, t.ID); ok {
		l.RemovePartitions(removedIDs)
	}
	for _, pid := range removedIDs {
		e.router.Unregister(identifier.NewResourceNamespace(t.StreamID, t.ID, pid))
	}

	entry, err := directory.EncodeEntry(metadatalog.KindDeletePartitions, callerUserID, directory.NewDeletePartitionsPayload(t.StreamID, t.ID, removedIDs))
	if err == nil {
		err = e.applyMetadata(ctx, entry)
	}
	if err == nil {
		e.metrics.AddPartitionsCount(-len(removedIDs))
	}
	e.logCommand(ctx, "delete_partitions", err)
	return t, err
}

// PurgeTopic drops every stored message of a topic without touching its
// structure. Purging is not a metadata-log event: partition count,
// consumer offsets, and stream/topic identity are unaffected.
func (e *Engine) PurgeTopic(ctx context.Context, callerUserID uint32, streamID, topicID identifier.Identifier) error {
	ctx, span := e.startCommand(ctx, "purge_topic")
	defer span.End()

	t, err := e.dir.GetTopic(callerUserID, streamID, topicID)
	if err != nil {
		e.logCommand(ctx, "purge_topic", err)
		return err
	}
	if err := e.permissions.PurgeTopic(callerUserID, t.StreamID, t.ID); err != nil {
		e.logCommand(ctx, "purge_topic", err)
		return err
	}

	l, ok := e.logs.get(t.StreamID, t.ID)
	if !ok {
		err := apperror.Newf(apperror.KindInternalError, "purge_topic: no log for topic %d", t.ID)
		e.logCommand(ctx, "purge_topic", err)
		return err
	}
	err = l.Purge(ctx)
	e.logCommand(ctx, "purge_topic", err)
	return err
}

// PurgeStream purges every topic of a stream.
func (e *Engine) PurgeStream(ctx context.Context, callerUserID uint32, streamID identifier.Identifier) error {
	ctx, span := e.startCommand(ctx, "purge_stream")
	defer span.End()

	s, err := e.dir.GetStream(callerUserID, streamID)
	if err != nil {
		e.logCommand(ctx, "purge_stream", err)
		return err
	}
	for _, t := range s.Topics {
		if err := e.permissions.PurgeTopic(callerUserID, t.StreamID, t.ID); err != nil {
			e.logCommand(ctx, "purge_stream", err)
			return err
		}
		l, ok := e.logs.get(t.StreamID, t.ID)
		if !ok {
			continue
		}
		if err := l.Purge(ctx); err != nil {
			e.logCommand(ctx, "purge_stream", err)
			return err
		}
	}
	e.logCommand(ctx, "purge_stream", nil)
	return nil
}

// releaseTopicResources drops t's partition log and shard-router rows,
// adjusts the topic/partition gauges, and scrubs any consumer group
// memberships clients hold against t - the shared cleanup a deleted topic
// needs whether it was removed directly or as part of its stream.
func (e *Engine) releaseTopicResources(ctx context.Context, t *directory.Topic) {
	e.logs.delete(t.StreamID, t.ID)
	for _, pid := range t.PartitionIDs {
		e.router.Unregister(identifier.NewResourceNamespace(t.StreamID, t.ID, pid))
	}
	e.metrics.AddTopicsCount(-1)
	e.metrics.AddPartitionsCount(-len(t.PartitionIDs))
	_ = e.clients.DeleteConsumerGroupsForTopic(ctx, t.StreamID, t.ID)
}
