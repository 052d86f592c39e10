package transport

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Message is one ordered, decoded-at-the-frame-level log message. Contents is
// the opaque encoded body; protocol decoding happens above this layer.
type Message struct {
	TopicID            string
	SequenceNumber     uint64
	ConsensusTimestamp time.Time
	PayerIdentity      string
	Contents           []byte
}

// Receipt reports the position assigned to an appended message.
type Receipt struct {
	SequenceNumber     uint64
	ConsensusTimestamp time.Time
}

// TopicInfo describes a created topic.
type TopicInfo struct {
	TopicID     string `json:"topicId"`
	Memo        string `json:"memo,omitempty"`
	CreatedAtMs int64  `json:"createdAtMs"`
}

// Transport is the append-only ordered log collaborator. Every topic carries
// a single total order; messages within one topic have strictly increasing
// consensus timestamps and sequence numbers.
type Transport interface {
	// CreateTopic allocates a new topic and returns its id.
	CreateTopic(ctx context.Context, memo string) (string, error)

	// Append writes payload as the next message on the topic.
	Append(ctx context.Context, topicID string, payload []byte) (Receipt, error)

	// ReadSince returns up to limit messages whose consensus timestamp is at
	// or after since, in ascending order. The inclusive lower bound means a
	// reader resuming from its last consumed timestamp may see that message
	// again and must deduplicate by sequence number.
	ReadSince(ctx context.Context, topicID string, since time.Time, limit int) ([]Message, error)

	// ReadLatest returns up to limit messages from the tail of the topic,
	// newest first.
	ReadLatest(ctx context.Context, topicID string, limit int) ([]Message, error)
}

// ErrTopicNotFound reports an operation against a topic that was never created.
var ErrTopicNotFound = errors.New("transport: topic not found")

// Error wraps a failed transport operation with its context.
type Error struct {
	Op      string
	TopicID string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transport: %s %s: %v", e.Op, e.TopicID, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
