package directory

import (
	"encoding/json"

	"github.com/hadoop835/iggy/internal/bytesize"
	"github.com/hadoop835/iggy/pkg/metadatalog"
)

// Metadata log payloads are JSON-encoded, the same self-describing choice
// pkg/user makes for its own entries.

type createStreamPayload struct {
	ID   uint32 `json:"id"`
	Name string `json:"name"`
}

type updateStreamPayload struct {
	ID   uint32 `json:"id"`
	Name string `json:"name"`
}

type deleteStreamPayload struct {
	ID uint32 `json:"id"`
}

type createTopicPayload struct {
	StreamID             uint32              `json:"stream_id"`
	ID                   uint32              `json:"id"`
	Name                 string              `json:"name"`
	PartitionIDs         []uint32            `json:"partition_ids"`
	MessageExpirySeconds *uint32             `json:"message_expiry_seconds,omitempty"`
	CompressionAlgorithm CompressionAlgorithm `json:"compression_algorithm"`
	MaxTopicSize         *bytesize.ByteSize  `json:"max_topic_size,omitempty"`
	ReplicationFactor    uint8               `json:"replication_factor"`
}

type updateTopicPayload struct {
	StreamID             uint32              `json:"stream_id"`
	ID                   uint32              `json:"id"`
	Name                 string              `json:"name"`
	MessageExpirySeconds *uint32             `json:"message_expiry_seconds,omitempty"`
	CompressionAlgorithm CompressionAlgorithm `json:"compression_algorithm"`
	MaxTopicSize         *bytesize.ByteSize  `json:"max_topic_size,omitempty"`
	ReplicationFactor    uint8               `json:"replication_factor"`
}

type deleteTopicPayload struct {
	StreamID uint32 `json:"stream_id"`
	ID       uint32 `json:"id"`
}

type createPartitionsPayload struct {
	StreamID        uint32   `json:"stream_id"`
	TopicID         uint32   `json:"topic_id"`
	NewPartitionIDs []uint32 `json:"new_partition_ids"`
}

type deletePartitionsPayload struct {
	StreamID            uint32   `json:"stream_id"`
	TopicID             uint32   `json:"topic_id"`
	RemovedPartitionIDs []uint32 `json:"removed_partition_ids"`
}

// EncodeEntry marshals payload and wraps it in a metadatalog.Entry. It is
// exported so the engine façade, which owns every write to the metadata
// log, can build a directory entry after a Directory mutation succeeds
// without reaching into this package's unexported payload types.
func EncodeEntry(kind metadatalog.MetadataEntryKind, userID uint32, payload any) (metadatalog.Entry, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return metadatalog.Entry{}, err
	}
	return metadatalog.Entry{Kind: kind, UserID: userID, Payload: b}, nil
}

// NewCreateStreamPayload builds the payload a successful CreateStream call
// persists.
func NewCreateStreamPayload(s *Stream) any { return createStreamPayload{ID: s.ID, Name: s.Name} }

// NewUpdateStreamPayload builds the payload a successful UpdateStream call
// persists.
func NewUpdateStreamPayload(s *Stream) any { return updateStreamPayload{ID: s.ID, Name: s.Name} }

// NewDeleteStreamPayload builds the payload a successful DeleteStream call
// persists.
func NewDeleteStreamPayload(s *Stream) any { return deleteStreamPayload{ID: s.ID} }

// NewCreateTopicPayload builds the payload a successful CreateTopic call
// persists, capturing the final partition id list.
func NewCreateTopicPayload(t *Topic) any {
	return createTopicPayload{
		StreamID:             t.StreamID,
		ID:                   t.ID,
		Name:                 t.Name,
		PartitionIDs:         append([]uint32(nil), t.PartitionIDs...),
		MessageExpirySeconds: t.MessageExpirySeconds,
		CompressionAlgorithm: t.CompressionAlgorithm,
		MaxTopicSize:         t.MaxTopicSize,
		ReplicationFactor:    t.ReplicationFactor,
	}
}

// NewUpdateTopicPayload builds the payload a successful UpdateTopic call
// persists, using the re-normalized values the Directory returns.
func NewUpdateTopicPayload(t *Topic) any {
	return updateTopicPayload{
		StreamID:             t.StreamID,
		ID:                   t.ID,
		Name:                 t.Name,
		MessageExpirySeconds: t.MessageExpirySeconds,
		CompressionAlgorithm: t.CompressionAlgorithm,
		MaxTopicSize:         t.MaxTopicSize,
		ReplicationFactor:    t.ReplicationFactor,
	}
}

// NewDeleteTopicPayload builds the payload a successful DeleteTopic call
// persists.
func NewDeleteTopicPayload(t *Topic) any {
	return deleteTopicPayload{StreamID: t.StreamID, ID: t.ID}
}

// NewCreatePartitionsPayload builds the payload a successful CreatePartitions
// call persists.
func NewCreatePartitionsPayload(streamID, topicID uint32, newIDs []uint32) any {
	return createPartitionsPayload{StreamID: streamID, TopicID: topicID, NewPartitionIDs: newIDs}
}

// NewDeletePartitionsPayload builds the payload a successful DeletePartitions
// call persists.
func NewDeletePartitionsPayload(streamID, topicID uint32, removedIDs []uint32) any {
	return deletePartitionsPayload{StreamID: streamID, TopicID: topicID, RemovedPartitionIDs: removedIDs}
}
