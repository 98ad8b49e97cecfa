// Package directory implements the Stream/Topic directory: the hierarchical
// namespace of streams and their topics, with uniqueness enforced on both
// the numeric id and the lowercased name. It does not own message storage
// or shard placement; those are the partition facade's and the shard
// router's concerns, wired together by the engine façade.
package directory

import (
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/hadoop835/iggy/internal/bytesize"
	"github.com/hadoop835/iggy/pkg/apperror"
	"github.com/hadoop835/iggy/pkg/identifier"
	"github.com/hadoop835/iggy/pkg/metadatalog"
	"github.com/hadoop835/iggy/pkg/permission"
)

// CompressionAlgorithm selects how a topic's message payloads are stored.
type CompressionAlgorithm int

const (
	// CompressionNone stores payloads as handed to append_messages.
	CompressionNone CompressionAlgorithm = iota
	// CompressionZstd compresses payloads with zstd before they reach the
	// segment store, transparently to the in-memory cache.
	CompressionZstd
)

// Topic is one topic within a Stream.
type Topic struct {
	ID                   uint32
	Name                 string
	StreamID             uint32
	PartitionIDs         []uint32
	MessageExpirySeconds *uint32
	CompressionAlgorithm CompressionAlgorithm
	MaxTopicSize         *bytesize.ByteSize
	ReplicationFactor    uint8
}

// Stream is a named collection of topics.
type Stream struct {
	ID     uint32
	Name   string
	Topics map[uint32]*Topic
}

// Directory is the in-memory stream/topic namespace. It performs its own
// authentication and permission checks, the same shape pkg/user.Registry
// uses; unlike Registry it does not build metadatalog.Entry values itself,
// since the engine façade needs the shard-router side effects of
// create_topic/create_partitions settled before it knows the full payload
// to persist.
type Directory struct {
	mu      sync.RWMutex
	streams map[uint32]*Stream
	byName  map[string]uint32

	nextStreamID atomic.Uint32
	nextTopicID  map[uint32]*atomic.Uint32

	permissions *permission.Permissioner
}

// New builds an empty Directory.
func New(permissions *permission.Permissioner) *Directory {
	return &Directory{
		streams:     make(map[uint32]*Stream),
		byName:      make(map[string]uint32),
		nextTopicID: make(map[uint32]*atomic.Uint32),
		permissions: permissions,
	}
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func ensureAuthenticated(userID uint32) error {
	if userID == 0 {
		return apperror.New(apperror.KindNotAuthenticated, "no authenticated user bound to this session")
	}
	return nil
}

// lookupStream resolves id without locking; callers hold d.mu.
func (d *Directory) lookupStream(id identifier.Identifier) (*Stream, error) {
	if id.Kind() == identifier.KindNumeric {
		n, err := id.AsU32()
		if err != nil {
			return nil, err
		}
		s, ok := d.streams[n]
		if !ok {
			return nil, apperror.Newf(apperror.KindResourceNotFound, "stream %d", n)
		}
		return s, nil
	}
	name, err := id.AsString()
	if err != nil {
		return nil, err
	}
	n, ok := d.byName[normalizeName(name)]
	if !ok {
		return nil, apperror.Newf(apperror.KindResourceNotFound, "stream %s", name)
	}
	return d.streams[n], nil
}

// CreateStream registers a new stream, auto-assigning an id if id is nil.
func (d *Directory) CreateStream(callerUserID uint32, id *uint32, name string) (*Stream, error) {
	if err := ensureAuthenticated(callerUserID); err != nil {
		return nil, err
	}
	if err := d.permissions.CreateStream(callerUserID); err != nil {
		return nil, err
	}

	normalized := normalizeName(name)
	if normalized == "" {
		return nil, apperror.New(apperror.KindInvalidIdentifier, "stream name must not be empty")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.byName[normalized]; exists {
		return nil, apperror.Newf(apperror.KindStreamAlreadyExists, "stream %s already exists", normalized)
	}

	var streamID uint32
	if id != nil {
		streamID = *id
		if _, exists := d.streams[streamID]; exists {
			return nil, apperror.Newf(apperror.KindStreamAlreadyExists, "stream %d already exists", streamID)
		}
		if streamID >= d.nextStreamID.Load() {
			d.nextStreamID.Store(streamID + 1)
		}
	} else {
		streamID = d.nextStreamID.Add(1) - 1
	}

	s := &Stream{ID: streamID, Name: normalized, Topics: make(map[uint32]*Topic)}
	d.streams[streamID] = s
	d.byName[normalized] = streamID
	d.nextTopicID[streamID] = &atomic.Uint32{}
	return s, nil
}

// UpdateStream renames an existing stream.
func (d *Directory) UpdateStream(callerUserID uint32, id identifier.Identifier, newName string) (*Stream, error) {
	if err := ensureAuthenticated(callerUserID); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	s, err := d.lookupStream(id)
	if err != nil {
		return nil, err
	}
	if err := d.permissions.UpdateStream(callerUserID, s.ID); err != nil {
		return nil, err
	}

	normalized := normalizeName(newName)
	if normalized == "" {
		return nil, apperror.New(apperror.KindInvalidIdentifier, "stream name must not be empty")
	}
	if existingID, exists := d.byName[normalized]; exists && existingID != s.ID {
		return nil, apperror.Newf(apperror.KindStreamAlreadyExists, "stream %s already exists", normalized)
	}

	delete(d.byName, s.Name)
	s.Name = normalized
	d.byName[normalized] = s.ID
	return s, nil
}

// DeleteStream removes a stream and every topic it contains, returning the
// removed stream so the caller can cascade cleanup (shard router rows,
// cached messages, metrics).
func (d *Directory) DeleteStream(callerUserID uint32, id identifier.Identifier) (*Stream, error) {
	if err := ensureAuthenticated(callerUserID); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	s, err := d.lookupStream(id)
	if err != nil {
		return nil, err
	}
	if err := d.permissions.DeleteStream(callerUserID, s.ID); err != nil {
		return nil, err
	}

	delete(d.streams, s.ID)
	delete(d.byName, s.Name)
	delete(d.nextTopicID, s.ID)
	return s, nil
}

// GetStream resolves id, requiring read_stream access.
func (d *Directory) GetStream(callerUserID uint32, id identifier.Identifier) (*Stream, error) {
	if err := ensureAuthenticated(callerUserID); err != nil {
		return nil, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	s, err := d.lookupStream(id)
	if err != nil {
		return nil, err
	}
	if err := d.permissions.GetStream(callerUserID, s.ID); err != nil {
		return nil, err
	}
	return s, nil
}

// GetStreams lists every stream the caller can read.
func (d *Directory) GetStreams(callerUserID uint32) ([]*Stream, error) {
	if err := ensureAuthenticated(callerUserID); err != nil {
		return nil, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []*Stream
	for _, s := range d.streams {
		if d.permissions.GetStream(callerUserID, s.ID) == nil {
			out = append(out, s)
		}
	}
	return out, nil
}

// CreateTopic adds a topic to an existing stream, allocating partitionsCount
// contiguous partition ids starting at 1. It returns the created Topic and
// the list of newly allocated partition ids (equal to the full partition
// list for a brand-new topic), which the engine façade registers with the
// shard router.
func (d *Directory) CreateTopic(callerUserID uint32, streamID identifier.Identifier, topicID *uint32, name string, partitionsCount uint32, messageExpirySeconds *uint32, compression CompressionAlgorithm, maxTopicSize *bytesize.ByteSize, replicationFactor uint8) (*Topic, []uint32, error) {
	if err := ensureAuthenticated(callerUserID); err != nil {
		return nil, nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	s, err := d.lookupStream(streamID)
	if err != nil {
		return nil, nil, err
	}
	if err := d.permissions.CreateTopic(callerUserID, s.ID); err != nil {
		return nil, nil, err
	}

	normalized := normalizeName(name)
	if normalized == "" {
		return nil, nil, apperror.New(apperror.KindInvalidIdentifier, "topic name must not be empty")
	}
	for _, t := range s.Topics {
		if t.Name == normalized {
			return nil, nil, apperror.Newf(apperror.KindTopicAlreadyExists, "topic %s already exists", normalized)
		}
	}

	counter := d.nextTopicID[s.ID]
	var id uint32
	if topicID != nil {
		id = *topicID
		if _, exists := s.Topics[id]; exists {
			return nil, nil, apperror.Newf(apperror.KindTopicAlreadyExists, "topic %d already exists", id)
		}
		if id >= counter.Load() {
			counter.Store(id + 1)
		}
	} else {
		id = counter.Add(1) - 1
	}

	if replicationFactor == 0 {
		replicationFactor = 1
	}

	partitionIDs := make([]uint32, partitionsCount)
	for i := range partitionIDs {
		partitionIDs[i] = uint32(i) + 1
	}

	t := &Topic{
		ID:                   id,
		Name:                 normalized,
		StreamID:             s.ID,
		PartitionIDs:         partitionIDs,
		MessageExpirySeconds: messageExpirySeconds,
		CompressionAlgorithm: compression,
		MaxTopicSize:         maxTopicSize,
		ReplicationFactor:    replicationFactor,
	}
	s.Topics[id] = t
	return t, partitionIDs, nil
}

// UpdateTopic mutates a topic's mutable attributes and returns the
// normalized topic so the caller can re-emit message_expiry/max_topic_size
// to the metadata log.
func (d *Directory) UpdateTopic(callerUserID uint32, streamID, topicID identifier.Identifier, name string, messageExpirySeconds *uint32, compression CompressionAlgorithm, maxTopicSize *bytesize.ByteSize, replicationFactor uint8) (*Topic, error) {
	if err := ensureAuthenticated(callerUserID); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	s, err := d.lookupStream(streamID)
	if err != nil {
		return nil, err
	}
	t, err := lookupTopic(s, topicID)
	if err != nil {
		return nil, err
	}
	if err := d.permissions.UpdateTopic(callerUserID, s.ID, t.ID); err != nil {
		return nil, err
	}

	normalized := normalizeName(name)
	if normalized == "" {
		return nil, apperror.New(apperror.KindInvalidIdentifier, "topic name must not be empty")
	}
	for _, other := range s.Topics {
		if other.ID != t.ID && other.Name == normalized {
			return nil, apperror.Newf(apperror.KindTopicAlreadyExists, "topic %s already exists", normalized)
		}
	}

	if replicationFactor == 0 {
		replicationFactor = 1
	}

	t.Name = normalized
	t.MessageExpirySeconds = messageExpirySeconds
	t.CompressionAlgorithm = compression
	t.MaxTopicSize = maxTopicSize
	t.ReplicationFactor = replicationFactor
	return t, nil
}

// DeleteTopic removes a topic, returning it so the caller can cascade
// shard-router and cache cleanup for its partitions.
func (d *Directory) DeleteTopic(callerUserID uint32, streamID, topicID identifier.Identifier) (*Topic, error) {
	if err := ensureAuthenticated(callerUserID); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	s, err := d.lookupStream(streamID)
	if err != nil {
		return nil, err
	}
	t, err := lookupTopic(s, topicID)
	if err != nil {
		return nil, err
	}
	if err := d.permissions.DeleteTopic(callerUserID, s.ID, t.ID); err != nil {
		return nil, err
	}

	delete(s.Topics, t.ID)
	return t, nil
}

// GetTopic resolves a topic within a stream.
func (d *Directory) GetTopic(callerUserID uint32, streamID, topicID identifier.Identifier) (*Topic, error) {
	if err := ensureAuthenticated(callerUserID); err != nil {
		return nil, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	s, err := d.lookupStream(streamID)
	if err != nil {
		return nil, err
	}
	t, err := lookupTopic(s, topicID)
	if err != nil {
		return nil, err
	}
	if err := d.permissions.GetTopic(callerUserID, s.ID, t.ID); err != nil {
		return nil, err
	}
	return t, nil
}

// GetTopics lists every topic in a stream the caller can read.
func (d *Directory) GetTopics(callerUserID uint32, streamID identifier.Identifier) ([]*Topic, error) {
	if err := ensureAuthenticated(callerUserID); err != nil {
		return nil, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	s, err := d.lookupStream(streamID)
	if err != nil {
		return nil, err
	}

	var out []*Topic
	for _, t := range s.Topics {
		if d.permissions.GetTopic(callerUserID, s.ID, t.ID) == nil {
			out = append(out, t)
		}
	}
	return out, nil
}

// CreatePartitions appends count new partitions to an existing topic's
// tail, continuing from its highest existing partition id, and returns the
// newly allocated ids for the caller to register with the shard router.
func (d *Directory) CreatePartitions(callerUserID uint32, streamID, topicID identifier.Identifier, count uint32) (*Topic, []uint32, error) {
	if err := ensureAuthenticated(callerUserID); err != nil {
		return nil, nil, err
	}
	if count == 0 {
		return nil, nil, apperror.New(apperror.KindNoPartitions, "partitions count must be greater than zero")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	s, err := d.lookupStream(streamID)
	if err != nil {
		return nil, nil, err
	}
	t, err := lookupTopic(s, topicID)
	if err != nil {
		return nil, nil, err
	}
	if err := d.permissions.UpdateTopic(callerUserID, s.ID, t.ID); err != nil {
		return nil, nil, err
	}

	next := maxPartitionID(t.PartitionIDs) + 1
	newIDs := make([]uint32, count)
	for i := range newIDs {
		newIDs[i] = next + uint32(i)
	}
	t.PartitionIDs = append(t.PartitionIDs, newIDs...)
	return t, newIDs, nil
}

// DeletePartitions removes the highest-numbered count partitions from a
// topic, rejecting an attempt that would remove every partition or remove
// more than currently exist. It returns the removed ids for the caller to
// evict from cache and the shard router.
func (d *Directory) DeletePartitions(callerUserID uint32, streamID, topicID identifier.Identifier, count uint32) (*Topic, []uint32, error) {
	if err := ensureAuthenticated(callerUserID); err != nil {
		return nil, nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	s, err := d.lookupStream(streamID)
	if err != nil {
		return nil, nil, err
	}
	t, err := lookupTopic(s, topicID)
	if err != nil {
		return nil, nil, err
	}
	if err := d.permissions.UpdateTopic(callerUserID, s.ID, t.ID); err != nil {
		return nil, nil, err
	}

	total := uint32(len(t.PartitionIDs))
	if count == 0 || count > total {
		return nil, nil, apperror.Newf(apperror.KindNoPartitions, "cannot delete %d of %d partitions", count, total)
	}
	if count == total {
		return nil, nil, apperror.New(apperror.KindNoPartitions, "cannot delete every partition of a topic")
	}

	removed := append([]uint32(nil), t.PartitionIDs[total-count:]...)
	t.PartitionIDs = t.PartitionIDs[:total-count]
	return t, removed, nil
}

func lookupTopic(s *Stream, id identifier.Identifier) (*Topic, error) {
	if id.Kind() == identifier.KindNumeric {
		n, err := id.AsU32()
		if err != nil {
			return nil, err
		}
		t, ok := s.Topics[n]
		if !ok {
			return nil, apperror.Newf(apperror.KindResourceNotFound, "topic %d", n)
		}
		return t, nil
	}
	name, err := id.AsString()
	if err != nil {
		return nil, err
	}
	normalized := normalizeName(name)
	for _, t := range s.Topics {
		if t.Name == normalized {
			return t, nil
		}
	}
	return nil, apperror.Newf(apperror.KindResourceNotFound, "topic %s", name)
}

// ApplyLoggedEntry mutates in-memory state from an already-committed
// metadata log entry, the same replay contract pkg/user.Registry uses: no
// permission checks, no duplicate validation, since a legitimately
// persisted history must never fail replay. The engine calls it only while
// replaying the metadata log; every shard's Engine shares this one
// Directory, so live mutations need no mirroring.
func (d *Directory) ApplyLoggedEntry(entry metadatalog.Entry) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch entry.Kind {
	case metadatalog.KindCreateStream:
		var p createStreamPayload
		if err := json.Unmarshal(entry.Payload, &p); err != nil {
			return apperror.Newf(apperror.KindInternalError, "replay CreateStream: %v", err)
		}
		s := &Stream{ID: p.ID, Name: p.Name, Topics: make(map[uint32]*Topic)}
		d.streams[s.ID] = s
		d.byName[s.Name] = s.ID
		if _, ok := d.nextTopicID[s.ID]; !ok {
			d.nextTopicID[s.ID] = &atomic.Uint32{}
		}
		if s.ID >= d.nextStreamID.Load() {
			d.nextStreamID.Store(s.ID + 1)
		}

	case metadatalog.KindUpdateStream:
		var p updateStreamPayload
		if err := json.Unmarshal(entry.Payload, &p); err != nil {
			return apperror.Newf(apperror.KindInternalError, "replay UpdateStream: %v", err)
		}
		if s, ok := d.streams[p.ID]; ok {
			delete(d.byName, s.Name)
			s.Name = p.Name
			d.byName[p.Name] = s.ID
		}

	case metadatalog.KindDeleteStream:
		var p deleteStreamPayload
		if err := json.Unmarshal(entry.Payload, &p); err != nil {
			return apperror.Newf(apperror.KindInternalError, "replay DeleteStream: %v", err)
		}
		if s, ok := d.streams[p.ID]; ok {
			delete(d.byName, s.Name)
			delete(d.streams, p.ID)
			delete(d.nextTopicID, p.ID)
		}

	case metadatalog.KindCreateTopic:
		var p createTopicPayload
		if err := json.Unmarshal(entry.Payload, &p); err != nil {
			return apperror.Newf(apperror.KindInternalError, "replay CreateTopic: %v", err)
		}
		s, ok := d.streams[p.StreamID]
		if !ok {
			return apperror.Newf(apperror.KindInternalError, "replay CreateTopic: stream %d not found", p.StreamID)
		}
		s.Topics[p.ID] = &Topic{
			ID:                   p.ID,
			Name:                 p.Name,
			StreamID:             p.StreamID,
			PartitionIDs:         p.PartitionIDs,
			MessageExpirySeconds: p.MessageExpirySeconds,
			CompressionAlgorithm: p.CompressionAlgorithm,
			MaxTopicSize:         p.MaxTopicSize,
			ReplicationFactor:    p.ReplicationFactor,
		}
		if counter, ok := d.nextTopicID[p.StreamID]; ok && p.ID >= counter.Load() {
			counter.Store(p.ID + 1)
		}

	case metadatalog.KindUpdateTopic:
		var p updateTopicPayload
		if err := json.Unmarshal(entry.Payload, &p); err != nil {
			return apperror.Newf(apperror.KindInternalError, "replay UpdateTopic: %v", err)
		}
		if s, ok := d.streams[p.StreamID]; ok {
			if t, ok := s.Topics[p.ID]; ok {
				t.Name = p.Name
				t.MessageExpirySeconds = p.MessageExpirySeconds
				t.CompressionAlgorithm = p.CompressionAlgorithm
				t.MaxTopicSize = p.MaxTopicSize
				t.ReplicationFactor = p.ReplicationFactor
			}
		}

	case metadatalog.KindDeleteTopic:
		var p deleteTopicPayload
		if err := json.Unmarshal(entry.Payload, &p); err != nil {
			return apperror.Newf(apperror.KindInternalError, "replay DeleteTopic: %v", err)
		}
		if s, ok := d.streams[p.StreamID]; ok {
			delete(s.Topics, p.ID)
		}

	case metadatalog.KindCreatePartitions:
		var p createPartitionsPayload
		if err := json.Unmarshal(entry.Payload, &p); err != nil {
			return apperror.Newf(apperror.KindInternalError, "replay CreatePartitions: %v", err)
		}
		if s, ok := d.streams[p.StreamID]; ok {
			if t, ok := s.Topics[p.TopicID]; ok {
				t.PartitionIDs = append(t.PartitionIDs, p.NewPartitionIDs...)
			}
		}

	case metadatalog.KindDeletePartitions:
		var p deletePartitionsPayload
		if err := json.Unmarshal(entry.Payload, &p); err != nil {
			return apperror.Newf(apperror.KindInternalError, "replay DeletePartitions: %v", err)
		}
		if s, ok := d.streams[p.StreamID]; ok {
			if t, ok := s.Topics[p.TopicID]; ok {
				remove := make(map[uint32]bool, len(p.RemovedPartitionIDs))
				for _, id := range p.RemovedPartitionIDs {
					remove[id] = true
				}
				kept := t.PartitionIDs[:0]
				for _, id := range t.PartitionIDs {
					if !remove[id] {
						kept = append(kept, id)
					}
				}
				t.PartitionIDs = kept
			}
		}

	default:
		// User/permission entry kinds belong to pkg/user, not the
		// directory; replay dispatch at the engine level never reaches
		// here for those.
	}
	return nil
}

func maxPartitionID(ids []uint32) uint32 {
	var max uint32
	for _, id := range ids {
		if id > max {
			max = id
		}
	}
	return max
}
