package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rzbill/hashlink/internal/runtime"
	"github.com/rzbill/hashlink/internal/transport"
)

// TopicsController handles raw topic management endpoints.
type TopicsController struct {
	rt *runtime.Runtime
}

// NewTopicsController creates a new topics controller.
func NewTopicsController(rt *runtime.Runtime) *TopicsController {
	return &TopicsController{rt: rt}
}

// RegisterRoutes registers topic routes with the given mux.
func (c *TopicsController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/topics/create", c.handleCreate)
	mux.HandleFunc("/v1/topics/append", c.handleAppend)
	mux.HandleFunc("/v1/topics/list", c.handleList)
	mux.HandleFunc("/v1/topics/messages", c.handleMessages)
}

func (c *TopicsController) handleCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	var req topicCreateReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	topicID, err := c.rt.Transport().CreateTopic(r.Context(), req.Memo)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create topic")
		return
	}
	writeCreated(w, map[string]string{"topic_id": topicID})
}

func (c *TopicsController) handleAppend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	var req topicAppendReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.TopicID == "" || len(req.Payload) == 0 {
		writeError(w, http.StatusBadRequest, "topic_id and payload are required")
		return
	}
	receipt, err := c.rt.Transport().Append(r.Context(), req.TopicID, req.Payload)
	if err != nil {
		if errors.Is(err, transport.ErrTopicNotFound) {
			writeError(w, http.StatusNotFound, "Topic not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to append")
		return
	}
	writeJSON(w, map[string]any{"seq": receipt.SequenceNumber, "timestamp": receipt.ConsensusTimestamp})
}

func (c *TopicsController) handleList(w http.ResponseWriter, r *http.Request) {
	topics, err := c.rt.Transport().ListTopics(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list topics")
		return
	}
	writeJSON(w, map[string]any{"topics": topics})
}

func (c *TopicsController) handleMessages(w http.ResponseWriter, r *http.Request) {
	topicID := r.URL.Query().Get("topic")
	if topicID == "" {
		writeError(w, http.StatusBadRequest, "topic is required")
		return
	}
	limit := parseLimit(r.URL.Query().Get("limit"))
	if limit == 0 {
		limit = 100
	}
	since := parseTimestamp(r.URL.Query().Get("since"))

	var msgs []transport.Message
	var err error
	if since.IsZero() && r.URL.Query().Get("since") == "" {
		msgs, err = c.rt.Transport().ReadLatest(r.Context(), topicID, limit)
	} else {
		msgs, err = c.rt.Transport().ReadSince(r.Context(), topicID, since, limit)
	}
	if err != nil {
		if errors.Is(err, transport.ErrTopicNotFound) {
			writeError(w, http.StatusNotFound, "Topic not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to read messages")
		return
	}
	items := make([]messageRespItem, 0, len(msgs))
	for _, m := range msgs {
		items = append(items, messageRespItem{
			Seq:       m.SequenceNumber,
			Timestamp: m.ConsensusTimestamp,
			Payer:     m.PayerIdentity,
			Payload:   m.Contents,
		})
	}
	writeJSON(w, map[string]any{"topic_id": topicID, "messages": items})
}
