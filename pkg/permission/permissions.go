// Package permission implements the capability model and the Permissioner
// authorization oracle: the only component allowed to turn a (user, op,
// target) triple into an allow/deny decision.
package permission

// Global holds the capability bits that apply across every stream and topic.
// A true global bit always wins over the absence of a narrower one: a user
// with Global.PollMessages can poll any partition regardless of what its
// per-stream overlay says.
type Global struct {
	ManageUsers    bool
	ReadUsers      bool
	ManageStreams  bool
	ReadStreams    bool
	PollMessages   bool
	AppendMessages bool
}

// Topic holds the capability bits scoped to a single topic, layered on top
// of its parent Stream overlay.
type Topic struct {
	ManageTopic    bool
	ReadTopic      bool
	PollMessages   bool
	AppendMessages bool
}

// Stream holds the capability bits scoped to a single stream, layered on
// top of Global, with an optional further overlay per topic.
type Stream struct {
	ManageStream   bool
	ReadStream     bool
	ManageTopics   bool
	ReadTopics     bool
	PollMessages   bool
	AppendMessages bool
	Topics         map[uint32]Topic
}

// Permissions is the full capability set assigned to one user: a Global
// overlay plus zero or more per-stream overlays.
type Permissions struct {
	Global  Global
	Streams map[uint32]Stream
}

// streamOf returns the Stream overlay for streamID, or the zero value if
// none was granted.
func (p *Permissions) streamOf(streamID uint32) Stream {
	if p == nil || p.Streams == nil {
		return Stream{}
	}
	return p.Streams[streamID]
}

// topicOf returns the Topic overlay for (streamID, topicID), or the zero
// value if none was granted.
func (p *Permissions) topicOf(streamID, topicID uint32) Topic {
	s := p.streamOf(streamID)
	if s.Topics == nil {
		return Topic{}
	}
	return s.Topics[topicID]
}

// canPollMessages reports whether p grants poll access to the given
// partition's topic, checking Global, then the stream overlay, then the
// topic overlay, in that order.
func (p *Permissions) canPollMessages(streamID, topicID uint32) bool {
	if p == nil {
		return false
	}
	if p.Global.PollMessages {
		return true
	}
	s := p.streamOf(streamID)
	if s.PollMessages {
		return true
	}
	return p.topicOf(streamID, topicID).PollMessages
}

// canAppendMessages reports whether p grants append access, checking
// Global, then the stream overlay, then the topic overlay.
func (p *Permissions) canAppendMessages(streamID, topicID uint32) bool {
	if p == nil {
		return false
	}
	if p.Global.AppendMessages {
		return true
	}
	s := p.streamOf(streamID)
	if s.AppendMessages {
		return true
	}
	return p.topicOf(streamID, topicID).AppendMessages
}

// canReadTopic reports whether p grants visibility into the given topic
// (get_topic(s), purge_topic is covered by ManageTopic instead).
func (p *Permissions) canReadTopic(streamID, topicID uint32) bool {
	if p == nil {
		return false
	}
	if p.Global.ReadStreams {
		return true
	}
	s := p.streamOf(streamID)
	if s.ReadStream || s.ReadTopics {
		return true
	}
	return p.topicOf(streamID, topicID).ReadTopic
}

// canManageTopic reports whether p grants create/update/delete/purge
// rights over the given topic.
func (p *Permissions) canManageTopic(streamID, topicID uint32) bool {
	if p == nil {
		return false
	}
	if p.Global.ManageStreams {
		return true
	}
	s := p.streamOf(streamID)
	if s.ManageStream || s.ManageTopics {
		return true
	}
	return p.topicOf(streamID, topicID).ManageTopic
}

// canManageStream reports whether p grants create/update/delete rights over
// the given stream itself.
func (p *Permissions) canManageStream(streamID uint32) bool {
	if p == nil {
		return false
	}
	if p.Global.ManageStreams {
		return true
	}
	return p.streamOf(streamID).ManageStream
}

// canReadStream reports whether p grants read/list rights over the given
// stream.
func (p *Permissions) canReadStream(streamID uint32) bool {
	if p == nil {
		return false
	}
	if p.Global.ReadStreams {
		return true
	}
	s := p.streamOf(streamID)
	return s.ReadStream || s.ManageStream
}
