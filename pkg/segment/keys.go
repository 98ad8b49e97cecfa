package segment

import (
	"encoding/binary"

	"github.com/hadoop835/iggy/pkg/identifier"
)

// Key namespace design
//
// Data Type      Prefix   Key Format                                  Value
// =====================================================================================
// Messages       "m:"     m:<stream_id><topic_id><partition_id><offset>   StoredMessage (JSON)
//
// Every field is a fixed-width big-endian integer so lexicographic byte
// order matches numeric order: BadgerDB's key-ordered iteration therefore
// yields offset order within a partition for free, without a secondary
// index.

const prefixMessage = "m:"

// messageKey builds the key for one stored message within ns at offset.
func messageKey(ns identifier.ResourceNamespace, offset uint64) []byte {
	key := make([]byte, 0, len(prefixMessage)+12+8)
	key = append(key, prefixMessage...)
	key = appendNamespace(key, ns)
	key = binary.BigEndian.AppendUint64(key, offset)
	return key
}

// partitionPrefix builds the shared prefix for every message key in ns, used
// to range-scan or purge a single partition without touching its siblings.
func partitionPrefix(ns identifier.ResourceNamespace) []byte {
	key := make([]byte, 0, len(prefixMessage)+12)
	key = append(key, prefixMessage...)
	return appendNamespace(key, ns)
}

func appendNamespace(key []byte, ns identifier.ResourceNamespace) []byte {
	key = binary.BigEndian.AppendUint32(key, ns.StreamID)
	key = binary.BigEndian.AppendUint32(key, ns.TopicID)
	key = binary.BigEndian.AppendUint32(key, ns.PartitionID)
	return key
}
