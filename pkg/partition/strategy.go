// Package partition implements the topic/partition log facade: the
// component that sits between the engine and the segment store, resolving
// which partition a batch of messages lands on, assigning offsets, holding
// a bounded per-partition cache, and tracking consumer offsets.
package partition

// PartitioningKind selects how append_messages picks a target partition.
type PartitioningKind int

const (
	// PartitioningBalanced round-robins over the topic's live partitions.
	PartitioningBalanced PartitioningKind = iota + 1
	// PartitioningPartitionID sends every message in the batch to a single
	// caller-chosen partition.
	PartitioningPartitionID
	// PartitioningMessagesKey hashes Partitioning.MessagesKey modulo the
	// live partition count.
	PartitioningMessagesKey
)

// Partitioning carries the partitioning strategy and whichever of its
// fields the chosen Kind needs.
type Partitioning struct {
	Kind        PartitioningKind
	PartitionID uint32
	MessagesKey []byte
}

// PollingStrategyKind selects where poll_messages starts reading from.
type PollingStrategyKind int

const (
	// PollingOffset starts at an explicit offset.
	PollingOffset PollingStrategyKind = iota + 1
	// PollingTimestamp starts at the first message at or after a Unix-nano
	// timestamp.
	PollingTimestamp
	// PollingFirst starts at offset 0.
	PollingFirst
	// PollingLast starts at the partition's most recent message.
	PollingLast
	// PollingNext starts right after the consumer's last stored offset.
	PollingNext
)

// PollingStrategy carries the polling strategy and, for Offset/Timestamp,
// the value it resolves against.
type PollingStrategy struct {
	Kind  PollingStrategyKind
	Value uint64
}

// ConsumerKind distinguishes a single consumer from a consumer group.
type ConsumerKind int

const (
	// ConsumerSingle is one client consuming independently.
	ConsumerSingle ConsumerKind = iota + 1
	// ConsumerGroup is a named group sharing one stored offset.
	ConsumerGroup
)

// Consumer identifies whose stored offset store_consumer_offset/
// get_messages(Next) reads and writes.
type Consumer struct {
	Kind ConsumerKind
	ID   uint32
}

type consumerKey struct {
	kind ConsumerKind
	id   uint32
}

func consumerKeyOf(c Consumer) consumerKey {
	return consumerKey{kind: c.Kind, id: c.ID}
}
