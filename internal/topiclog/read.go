package topiclog

import (
	"encoding/binary"

	"github.com/cockroachdb/pebble"
)

// ReadOptions controls a Read scan.
type ReadOptions struct {
	StartSeq uint64 // inclusive; 0 means first (or last when Reverse)
	Limit    int    // 0 means unbounded
	Reverse  bool
}

// Item is one decoded record.
type Item struct {
	Seq            uint64
	TimestampNanos uint64
	Payer          string
	Payload        []byte
}

// Read returns up to Limit items starting at StartSeq (inclusive). Reverse
// scans descending from StartSeq, or from the last record when StartSeq is 0.
// Records that fail checksum validation are skipped.
func (l *Log) Read(opts ReadOptions) []Item {
	low := KeyEntry(l.topic, 0)
	hi := KeyEntry(l.topic, ^uint64(0))
	startKey := KeyEntry(l.topic, opts.StartSeq)

	iter, err := l.db.NewIter(&pebble.IterOptions{LowerBound: low, UpperBound: append(hi, 0x00)})
	items := make([]Item, 0, maxInt(1, opts.Limit))
	if err != nil {
		return items
	}
	defer iter.Close()

	advance := iter.Next
	if opts.Reverse {
		advance = iter.Prev
		if opts.StartSeq == 0 {
			if !iter.Last() {
				return items
			}
		} else if !iter.SeekLT(append(startKey, 0x00)) {
			return items
		}
	} else {
		if opts.StartSeq == 0 {
			if !iter.First() {
				return items
			}
		} else if !iter.SeekGE(startKey) {
			return items
		}
	}

	for iter.Valid() && (opts.Limit == 0 || len(items) < opts.Limit) {
		key := iter.Key()
		seq := binary.BigEndian.Uint64(key[len(key)-8:])
		if dec, ok := decodeRecord(iter.Value()); ok {
			if ts, payer, ok := decodeHeader(dec.Header); ok {
				items = append(items, Item{Seq: seq, TimestampNanos: ts, Payer: payer, Payload: dec.Payload})
			}
		}
		if !advance() {
			break
		}
	}
	return items
}

// FindSince returns the smallest sequence whose timestamp is >= tsNanos.
// Returns false when no such record exists. Relies on per-topic timestamp
// monotonicity, so a binary search over the sequence range suffices.
func (l *Log) FindSince(tsNanos uint64) (uint64, bool) {
	l.mu.Lock()
	last := l.lastSeq
	l.mu.Unlock()
	if last == 0 {
		return 0, false
	}

	lo, hi := uint64(1), last
	found := uint64(0)
	for lo <= hi {
		mid := lo + (hi-lo)/2
		item, err := l.Get(mid)
		if err != nil {
			// hole or corrupt record; fall back to linear probe upward
			lo = mid + 1
			continue
		}
		if item.TimestampNanos >= tsNanos {
			found = mid
			hi = mid - 1
		} else {
			lo = mid + 1
		}
	}
	if found == 0 {
		return 0, false
	}
	return found, true
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
