package controllers

import (
	"time"

	"github.com/rzbill/hashlink/internal/protocol"
)

// Common request/response types for HTTP controllers

// topicCreateReq represents a request to create a new topic.
type topicCreateReq struct {
	Memo string `json:"memo"`
}

// topicAppendReq represents a request to append a raw message to a topic.
type topicAppendReq struct {
	TopicID string `json:"topic_id"`
	// Payload is the raw message body, base64 encoded by encoding/json.
	Payload []byte `json:"payload"`
}

// messageRespItem represents a topic message in a list response.
type messageRespItem struct {
	Seq       uint64    `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
	Payer     string    `json:"payer"`
	Payload   []byte    `json:"payload"`
}

// actionRegisterReq represents a request to register a WASM action module.
type actionRegisterReq struct {
	Wasm []byte               `json:"wasm"`
	Info *protocol.ModuleInfo `json:"info"`
}

// actionRespItem represents one materialized action registration.
type actionRespItem struct {
	ID           string                       `json:"id"`
	Registration *protocol.ActionRegistration `json:"registration"`
	Timestamp    time.Time                    `json:"timestamp"`
	Submitter    string                       `json:"submitter"`
}

// blockPublishReq represents a request to publish a block definition and
// template to a topic.
type blockPublishReq struct {
	TopicID    string                    `json:"topic_id"`
	Definition *protocol.BlockDefinition `json:"definition"`
	Template   string                    `json:"template"`
}

// assemblyOpReq wraps one assembly operation targeted at a topic.
type assemblyOpReq struct {
	TopicID  string                      `json:"topic_id"`
	Register *protocol.AssemblyRegister  `json:"register,omitempty"`
	Action   *protocol.AssemblyAddAction `json:"add_action,omitempty"`
	Block    *protocol.AssemblyAddBlock  `json:"add_block,omitempty"`
	Update   *protocol.AssemblyUpdate    `json:"update,omitempty"`
}

// resolveRespError represents one failed reference in a resolution response.
type resolveRespError struct {
	Kind      string `json:"kind"`
	Reference string `json:"reference"`
	Message   string `json:"message"`
}
