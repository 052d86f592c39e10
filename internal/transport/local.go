package transport

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"

	pebblestore "github.com/rzbill/hashlink/internal/storage/pebble"
	"github.com/rzbill/hashlink/internal/topiclog"
)

// Local is the embedded transport: topics are pebble-backed append-only logs
// with locally assigned consensus timestamps.
type Local struct {
	db    *pebblestore.DB
	payer string
	clock func() time.Time

	mu   sync.Mutex
	logs map[string]*topiclog.Log
}

var nextTopicKey = []byte("tpnext")

// LocalOptions configures the embedded transport.
type LocalOptions struct {
	// Payer is the identity recorded as submitter on appended messages.
	Payer string
	// Clock overrides the consensus time source; defaults to time.Now.
	Clock func() time.Time
}

// NewLocal returns an embedded transport over db.
func NewLocal(db *pebblestore.DB, opts LocalOptions) *Local {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	payer := opts.Payer
	if payer == "" {
		payer = "local"
	}
	return &Local{db: db, payer: payer, clock: clock, logs: map[string]*topiclog.Log{}}
}

// CreateTopic allocates a new topic id and persists its descriptor.
func (l *Local) CreateTopic(ctx context.Context, memo string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	var n uint64
	if b, err := l.db.Get(nextTopicKey); err == nil && len(b) >= 8 {
		n = binary.BigEndian.Uint64(b[:8])
	}
	n++
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], n)
	if err := l.db.Set(nextTopicKey, buf[:]); err != nil {
		return "", &Error{Op: "create", Err: err}
	}

	topicID := fmt.Sprintf("t.%d", n)
	info := TopicInfo{TopicID: topicID, Memo: memo, CreatedAtMs: l.clock().UnixMilli()}
	b, err := json.Marshal(info)
	if err != nil {
		return "", &Error{Op: "create", TopicID: topicID, Err: err}
	}
	if err := l.db.Set(topiclog.KeyInfo(topicID), b); err != nil {
		return "", &Error{Op: "create", TopicID: topicID, Err: err}
	}
	return topicID, nil
}

// ListTopics returns descriptors for every created topic.
func (l *Local) ListTopics(ctx context.Context) ([]TopicInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	low := topiclog.KeyInfo("")
	hi := append(topiclog.KeyInfo(""), 0xff)
	iter, err := l.db.NewIter(&pebble.IterOptions{LowerBound: low, UpperBound: hi})
	if err != nil {
		return nil, &Error{Op: "list", Err: err}
	}
	defer iter.Close()

	var out []TopicInfo
	for iter.First(); iter.Valid(); iter.Next() {
		var info TopicInfo
		if json.Unmarshal(iter.Value(), &info) == nil {
			out = append(out, info)
		}
	}
	return out, nil
}

func (l *Local) openLog(topicID string) (*topiclog.Log, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if lg, ok := l.logs[topicID]; ok {
		return lg, nil
	}
	if _, err := l.db.Get(topiclog.KeyInfo(topicID)); err != nil {
		return nil, ErrTopicNotFound
	}
	lg, err := topiclog.Open(l.db, topicID)
	if err != nil {
		return nil, err
	}
	l.logs[topicID] = lg
	return lg, nil
}

// Append writes payload as the next message on the topic.
func (l *Local) Append(ctx context.Context, topicID string, payload []byte) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}
	lg, err := l.openLog(topicID)
	if err != nil {
		return Receipt{}, &Error{Op: "append", TopicID: topicID, Err: err}
	}
	seq, ts, err := lg.Append(ctx, topiclog.Record{
		TimestampNanos: uint64(l.clock().UnixNano()),
		Payer:          l.payer,
		Payload:        payload,
	})
	if err != nil {
		return Receipt{}, &Error{Op: "append", TopicID: topicID, Err: err}
	}
	return Receipt{SequenceNumber: seq, ConsensusTimestamp: time.Unix(0, int64(ts)).UTC()}, nil
}

// ReadSince returns up to limit messages with timestamp >= since, ascending.
func (l *Local) ReadSince(ctx context.Context, topicID string, since time.Time, limit int) ([]Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	lg, err := l.openLog(topicID)
	if err != nil {
		return nil, &Error{Op: "read", TopicID: topicID, Err: err}
	}

	var startSeq uint64
	if !since.IsZero() {
		first, ok := lg.FindSince(uint64(since.UnixNano()))
		if !ok {
			return nil, nil
		}
		startSeq = first
	}
	items := lg.Read(topiclog.ReadOptions{StartSeq: startSeq, Limit: limit})
	return l.toMessages(topicID, items), nil
}

// ReadLatest returns up to limit messages from the tail, newest first.
func (l *Local) ReadLatest(ctx context.Context, topicID string, limit int) ([]Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	lg, err := l.openLog(topicID)
	if err != nil {
		return nil, &Error{Op: "read", TopicID: topicID, Err: err}
	}
	if limit <= 0 {
		limit = 1
	}
	items := lg.Read(topiclog.ReadOptions{Reverse: true, Limit: limit})
	return l.toMessages(topicID, items), nil
}

func (l *Local) toMessages(topicID string, items []topiclog.Item) []Message {
	msgs := make([]Message, 0, len(items))
	for _, it := range items {
		msgs = append(msgs, Message{
			TopicID:            topicID,
			SequenceNumber:     it.Seq,
			ConsensusTimestamp: time.Unix(0, int64(it.TimestampNanos)).UTC(),
			PayerIdentity:      it.Payer,
			Contents:           it.Payload,
		})
	}
	return msgs
}
