package topiclog

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"

	pebblestore "github.com/rzbill/hashlink/internal/storage/pebble"
)

// Record is a single appendable record.
type Record struct {
	TimestampNanos uint64
	Payer          string
	Payload        []byte
}

// Log provides append-only operations for one topic.
type Log struct {
	db    *pebblestore.DB
	topic string

	mu      sync.Mutex
	lastSeq uint64
	lastTs  uint64
}

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("topiclog: record not found")

// Open initializes a Log and loads the last sequence from metadata (if any).
func Open(db *pebblestore.DB, topic string) (*Log, error) {
	l := &Log{db: db, topic: topic}
	meta, err := db.Get(KeyMeta(topic))
	if err == nil && len(meta) >= 16 {
		l.lastSeq = binary.BigEndian.Uint64(meta[:8])
		l.lastTs = binary.BigEndian.Uint64(meta[8:16])
	}
	return l, nil
}

// Topic returns the topic identifier this log belongs to.
func (l *Log) Topic() string { return l.topic }

// LastSeq returns the highest assigned sequence number, 0 when empty.
func (l *Log) LastSeq() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastSeq
}

// Append writes one record atomically and returns its assigned sequence
// number and effective timestamp. Timestamps are forced strictly increasing
// per topic: a record carrying a timestamp at or below the previous one is
// bumped by one nanosecond.
func (l *Log) Append(ctx context.Context, rec Record) (uint64, uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ts := rec.TimestampNanos
	if ts <= l.lastTs {
		ts = l.lastTs + 1
	}

	b := l.db.NewBatch()
	defer b.Close()

	seq := l.lastSeq + 1
	val := encodeRecord(encodeHeader(ts, rec.Payer), rec.Payload)
	if err := b.Set(KeyEntry(l.topic, seq), val, nil); err != nil {
		return 0, 0, err
	}

	var meta [16]byte
	binary.BigEndian.PutUint64(meta[:8], seq)
	binary.BigEndian.PutUint64(meta[8:16], ts)
	if err := b.Set(KeyMeta(l.topic), meta[:], nil); err != nil {
		return 0, 0, err
	}

	if err := l.db.CommitBatch(ctx, b); err != nil {
		return 0, 0, err
	}
	l.lastSeq = seq
	l.lastTs = ts
	return seq, ts, nil
}

// Get returns the record at seq, or ErrNotFound.
func (l *Log) Get(seq uint64) (Item, error) {
	val, err := l.db.Get(KeyEntry(l.topic, seq))
	if err != nil {
		return Item{}, ErrNotFound
	}
	dec, ok := decodeRecord(val)
	if !ok {
		return Item{}, ErrNotFound
	}
	ts, payer, ok := decodeHeader(dec.Header)
	if !ok {
		return Item{}, ErrNotFound
	}
	return Item{Seq: seq, TimestampNanos: ts, Payer: payer, Payload: dec.Payload}, nil
}
