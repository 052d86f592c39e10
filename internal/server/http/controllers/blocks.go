package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rzbill/hashlink/internal/runtime"
	"github.com/rzbill/hashlink/internal/transport"
)

// BlocksController handles block publishing and loading.
type BlocksController struct {
	rt *runtime.Runtime
}

// NewBlocksController creates a new blocks controller.
func NewBlocksController(rt *runtime.Runtime) *BlocksController {
	return &BlocksController{rt: rt}
}

// RegisterRoutes registers block routes with the given mux.
func (c *BlocksController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/blocks/publish", c.handlePublish)
	mux.HandleFunc("/v1/blocks/get", c.handleGet)
}

func (c *BlocksController) handlePublish(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	var req blockPublishReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.TopicID == "" || req.Definition == nil {
		writeError(w, http.StatusBadRequest, "topic_id and definition are required")
		return
	}
	reg, err := c.rt.Blocks().Publish(r.Context(), req.TopicID, req.Definition, []byte(req.Template))
	if err != nil {
		if errors.Is(err, transport.ErrTopicNotFound) {
			writeError(w, http.StatusNotFound, "Topic not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to publish block")
		return
	}
	writeCreated(w, map[string]any{"topic_id": req.TopicID, "registration": reg})
}

func (c *BlocksController) handleGet(w http.ResponseWriter, r *http.Request) {
	topicID := r.URL.Query().Get("topic")
	if topicID == "" {
		writeError(w, http.StatusBadRequest, "topic is required")
		return
	}
	b, err := c.rt.Blocks().Load(r.Context(), topicID)
	if err != nil {
		if errors.Is(err, transport.ErrTopicNotFound) {
			writeError(w, http.StatusNotFound, "Topic not found")
			return
		}
		writeError(w, http.StatusNotFound, "Block not found")
		return
	}
	writeJSON(w, b)
}
