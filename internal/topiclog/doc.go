// Package topiclog implements the append-only per-topic log backing the
// embedded transport.
//
// # Overview
//
// Each topic is an ordered sequence of records persisted in Pebble. Keys are
// lexicographically ordered for efficient range scans:
//   - tp/{topic}/m           (topic metadata: lastSeq)
//   - tp/{topic}/e/{seq_be8} (records)
//
// Records are stored as: varint headerLen | header | payload | crc32c(header|payload).
// The header's first 8 bytes are the record's consensus timestamp in unix
// nanoseconds (big-endian); the remainder is the payer identity. Timestamps
// are strictly increasing per topic, which FindSince exploits with a binary
// search over sequence numbers.
//
// API surface (internal)
//
//	l, _ := Open(db, "topic-1")
//	seq, _ := l.Append(ctx, Record{TimestampNanos: ts, Payer: "op", Payload: p})
//	items := l.Read(ReadOptions{StartSeq: seq, Limit: 100})
//	first, ok := l.FindSince(cursorNanos) // smallest seq with ts >= cursor
package topiclog
