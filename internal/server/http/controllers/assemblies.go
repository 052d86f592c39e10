package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rzbill/hashlink/internal/protocol"
	asmreg "github.com/rzbill/hashlink/internal/registry/assembly"
	"github.com/rzbill/hashlink/internal/resolver"
	"github.com/rzbill/hashlink/internal/runtime"
	"github.com/rzbill/hashlink/internal/transport"
)

// AssembliesController handles assembly state, operations, resolution, and
// composition validation.
type AssembliesController struct {
	rt *runtime.Runtime
}

// NewAssembliesController creates a new assemblies controller.
func NewAssembliesController(rt *runtime.Runtime) *AssembliesController {
	return &AssembliesController{rt: rt}
}

// RegisterRoutes registers assembly routes with the given mux.
func (c *AssembliesController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/assemblies/state", c.handleState)
	mux.HandleFunc("/v1/assemblies/op", c.handleOp)
	mux.HandleFunc("/v1/assemblies/resolve", c.handleResolve)
	mux.HandleFunc("/v1/assemblies/validate", c.handleValidate)
}

// registryFor returns the assembly registry for the requested topic: the
// owned one when the topic matches (or is empty), an ephemeral one otherwise.
func (c *AssembliesController) registryFor(topicID string) (*asmreg.Registry, error) {
	owned := c.rt.Assembly()
	if owned != nil && (topicID == "" || topicID == owned.TopicID()) {
		return owned, nil
	}
	if topicID == "" {
		return nil, errors.New("no assembly topic configured and none given")
	}
	return asmreg.New(asmreg.Options{
		Transport: c.rt.Transport(),
		TopicID:   topicID,
		Submitter: c.rt.Config().Operator,
		PageSize:  c.rt.Config().SyncPageSize,
		Logger:    c.rt.Logger().WithComponent("assembly"),
	})
}

func (c *AssembliesController) handleState(w http.ResponseWriter, r *http.Request) {
	reg, err := c.registryFor(r.URL.Query().Get("topic"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	st, err := reg.State(r.Context())
	if err != nil {
		if errors.Is(err, transport.ErrTopicNotFound) {
			writeError(w, http.StatusNotFound, "Topic not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to sync assembly")
		return
	}
	writeJSON(w, map[string]any{"topic_id": reg.TopicID(), "state": st})
}

func (c *AssembliesController) handleOp(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	var req assemblyOpReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	var op protocol.Operation
	switch {
	case req.Register != nil:
		op = req.Register
	case req.Action != nil:
		op = req.Action
	case req.Block != nil:
		op = req.Block
	case req.Update != nil:
		op = req.Update
	default:
		writeError(w, http.StatusBadRequest, "No operation given")
		return
	}
	reg, err := c.registryFor(req.TopicID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	id, err := reg.Base().Register(r.Context(), op)
	if err != nil {
		var ve *protocol.ValidationError
		if errors.As(err, &ve) {
			writeError(w, http.StatusBadRequest, ve.Error())
			return
		}
		if errors.Is(err, transport.ErrTopicNotFound) {
			writeError(w, http.StatusNotFound, "Topic not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to register operation")
		return
	}
	writeCreated(w, map[string]string{"id": id, "topic_id": reg.TopicID()})
}

func (c *AssembliesController) handleResolve(w http.ResponseWriter, r *http.Request) {
	topicID := r.URL.Query().Get("topic")
	if topicID == "" {
		if owned := c.rt.Assembly(); owned != nil {
			topicID = owned.TopicID()
		}
	}
	if topicID == "" {
		writeError(w, http.StatusBadRequest, "topic is required")
		return
	}
	res, err := c.rt.Resolver().LoadAndResolveAssembly(r.Context(), topicID)
	if err != nil {
		var nf *resolver.NotFoundError
		if errors.As(err, &nf) || errors.Is(err, transport.ErrTopicNotFound) {
			writeError(w, http.StatusNotFound, "Assembly not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to resolve assembly")
		return
	}
	errs := make([]resolveRespError, 0, len(res.Errors))
	for _, e := range res.Errors {
		errs = append(errs, resolveRespError{Kind: e.Kind, Reference: e.Reference, Message: e.Message})
	}
	writeJSON(w, map[string]any{
		"topic_id": topicID,
		"state":    res.Assembly.State,
		"actions":  res.Actions,
		"blocks":   res.Blocks,
		"errors":   errs,
		"complete": res.Complete(),
	})
}

func (c *AssembliesController) handleValidate(w http.ResponseWriter, r *http.Request) {
	reg, err := c.registryFor(r.URL.Query().Get("topic"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	st, err := reg.State(r.Context())
	if err != nil {
		if errors.Is(err, transport.ErrTopicNotFound) {
			writeError(w, http.StatusNotFound, "Topic not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to sync assembly")
		return
	}
	problems := resolver.ValidateComposition(st)
	if problems == nil {
		problems = []string{}
	}
	writeJSON(w, map[string]any{"topic_id": reg.TopicID(), "valid": len(problems) == 0, "problems": problems})
}
