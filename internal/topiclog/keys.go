package topiclog

import (
	"encoding/binary"
)

// Keyspace helpers for Pebble keys.
//
// Layout (byte-wise, lexicographically sortable):
// - tp/{topic}/m
// - tp/{topic}/e/{seq_be8}
// - tpmeta/{topic}

var (
	topicPrefix = []byte("tp/")
	metaSuffix  = []byte("/m")
	entrySeg    = []byte("/e/")
	infoPrefix  = []byte("tpmeta/")
)

func appendBE8(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

// KeyMeta builds the topic metadata key holding lastSeq.
func KeyMeta(topic string) []byte {
	k := make([]byte, 0, len(topic)+8)
	k = append(k, topicPrefix...)
	k = append(k, topic...)
	k = append(k, metaSuffix...)
	return k
}

// KeyEntry builds the record key with a big-endian sequence for proper ordering.
func KeyEntry(topic string, seq uint64) []byte {
	k := make([]byte, 0, len(topic)+16)
	k = append(k, topicPrefix...)
	k = append(k, topic...)
	k = append(k, entrySeg...)
	k = appendBE8(k, seq)
	return k
}

// KeyInfo builds the key for topic descriptor records (memo, creation time).
func KeyInfo(topic string) []byte {
	k := make([]byte, 0, len(infoPrefix)+len(topic))
	k = append(k, infoPrefix...)
	k = append(k, topic...)
	return k
}
