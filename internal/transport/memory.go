package transport

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Memory is an in-process transport for tests and detached use. It provides
// the same ordering guarantees as Local without persistence.
type Memory struct {
	payer string
	clock func() time.Time

	mu     sync.Mutex
	next   uint64
	topics map[string][]Message
	infos  map[string]TopicInfo
	lastTs map[string]int64
}

// NewMemory returns an in-memory transport.
func NewMemory() *Memory {
	return &Memory{
		payer:  "local",
		clock:  time.Now,
		topics: map[string][]Message{},
		infos:  map[string]TopicInfo{},
		lastTs: map[string]int64{},
	}
}

// WithPayer sets the submitter identity recorded on appends.
func (m *Memory) WithPayer(payer string) *Memory {
	m.payer = payer
	return m
}

// WithClock overrides the consensus time source.
func (m *Memory) WithClock(clock func() time.Time) *Memory {
	m.clock = clock
	return m
}

// CreateTopic allocates a new topic id.
func (m *Memory) CreateTopic(ctx context.Context, memo string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	topicID := fmt.Sprintf("t.%d", m.next)
	m.topics[topicID] = nil
	m.infos[topicID] = TopicInfo{TopicID: topicID, Memo: memo, CreatedAtMs: m.clock().UnixMilli()}
	return topicID, nil
}

// Append writes payload as the next message on the topic.
func (m *Memory) Append(ctx context.Context, topicID string, payload []byte) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs, ok := m.topics[topicID]
	if !ok {
		return Receipt{}, &Error{Op: "append", TopicID: topicID, Err: ErrTopicNotFound}
	}

	ts := m.clock().UnixNano()
	if last := m.lastTs[topicID]; ts <= last {
		ts = last + 1
	}
	m.lastTs[topicID] = ts

	msg := Message{
		TopicID:            topicID,
		SequenceNumber:     uint64(len(msgs) + 1),
		ConsensusTimestamp: time.Unix(0, ts).UTC(),
		PayerIdentity:      m.payer,
		Contents:           append([]byte(nil), payload...),
	}
	m.topics[topicID] = append(msgs, msg)
	return Receipt{SequenceNumber: msg.SequenceNumber, ConsensusTimestamp: msg.ConsensusTimestamp}, nil
}

// ReadSince returns up to limit messages with timestamp >= since, ascending.
func (m *Memory) ReadSince(ctx context.Context, topicID string, since time.Time, limit int) ([]Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs, ok := m.topics[topicID]
	if !ok {
		return nil, &Error{Op: "read", TopicID: topicID, Err: ErrTopicNotFound}
	}
	var out []Message
	for _, msg := range msgs {
		if !since.IsZero() && msg.ConsensusTimestamp.Before(since) {
			continue
		}
		out = append(out, msg)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// ReadLatest returns up to limit messages from the tail, newest first.
func (m *Memory) ReadLatest(ctx context.Context, topicID string, limit int) ([]Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs, ok := m.topics[topicID]
	if !ok {
		return nil, &Error{Op: "read", TopicID: topicID, Err: ErrTopicNotFound}
	}
	if limit <= 0 {
		limit = 1
	}
	var out []Message
	for i := len(msgs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, msgs[i])
	}
	return out, nil
}

// ListTopics returns descriptors for every created topic.
func (m *Memory) ListTopics(ctx context.Context) ([]TopicInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]TopicInfo, 0, len(m.infos))
	for _, info := range m.infos {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TopicID < out[j].TopicID })
	return out, nil
}
