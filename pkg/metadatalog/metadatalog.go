// Package metadatalog defines the durable state-log writer collaborator and
// a Postgres/GORM-backed default implementation. The engine never assumes
// this is the only implementation: it depends on the MetadataLog interface
// alone, the same way it depends on SegmentStore rather than a concrete
// Badger type.
package metadatalog

import "context"

// MetadataEntryKind identifies the mutating operation an entry records.
// Values are stable: a replayed log is read by code that may be newer than
// the writer, so existing constants are never renumbered.
type MetadataEntryKind int

const (
	KindCreateUser MetadataEntryKind = iota + 1
	KindUpdateUser
	KindDeleteUser
	KindUpdatePermissions
	KindChangePassword
	KindCreateStream
	KindUpdateStream
	KindDeleteStream
	KindCreateTopic
	KindUpdateTopic
	KindDeleteTopic
	KindCreatePartitions
	KindDeletePartitions
)

var kindNames = map[MetadataEntryKind]string{
	KindCreateUser:        "CreateUser",
	KindUpdateUser:        "UpdateUser",
	KindDeleteUser:        "DeleteUser",
	KindUpdatePermissions: "UpdatePermissions",
	KindChangePassword:    "ChangePassword",
	KindCreateStream:      "CreateStream",
	KindUpdateStream:      "UpdateStream",
	KindDeleteStream:      "DeleteStream",
	KindCreateTopic:       "CreateTopic",
	KindUpdateTopic:       "UpdateTopic",
	KindDeleteTopic:       "DeleteTopic",
	KindCreatePartitions:  "CreatePartitions",
	KindDeletePartitions:  "DeletePartitions",
}

// String renders the kind for logging.
func (k MetadataEntryKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// Entry is one row in the metadata log: the originating user and a
// byte-serialized payload describing the mutation. SequenceNum is assigned
// by the log itself at append time and is monotonically increasing per
// shard, giving replay its commit order.
type Entry struct {
	Kind        MetadataEntryKind
	UserID      uint32
	Payload     []byte
	SequenceNum uint64
}

// MetadataLog is the durable state-log writer collaborator. Apply persists
// entry and assigns it the next SequenceNum for shardID; Replay streams back
// every previously applied entry for shardID in commit order so the caller
// can reconstruct its in-memory view at boot.
type MetadataLog interface {
	Apply(ctx context.Context, shardID uint16, entry Entry) (Entry, error)
	Replay(ctx context.Context, shardID uint16, fn func(Entry) error) error
	Close() error
}
