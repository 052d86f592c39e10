package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rzbill/hashlink/internal/protocol"
	"github.com/rzbill/hashlink/internal/registry"
	actionreg "github.com/rzbill/hashlink/internal/registry/actions"
	"github.com/rzbill/hashlink/internal/runtime"
)

// ActionsController handles the action registry endpoints.
type ActionsController struct {
	rt *runtime.Runtime
}

// NewActionsController creates a new actions controller.
func NewActionsController(rt *runtime.Runtime) *ActionsController {
	return &ActionsController{rt: rt}
}

// RegisterRoutes registers action routes with the given mux.
func (c *ActionsController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/actions/register", c.handleRegister)
	mux.HandleFunc("/v1/actions/get", c.handleGet)
	mux.HandleFunc("/v1/actions/list", c.handleList)
	mux.HandleFunc("/v1/actions/wasm", c.handleWasm)
	mux.HandleFunc("/v1/actions/info", c.handleInfo)
}

func (c *ActionsController) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	var req actionRegisterReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	a, err := c.rt.Actions().RegisterModule(r.Context(), req.Wasm, req.Info)
	if err != nil {
		var ve *protocol.ValidationError
		if errors.As(err, &ve) {
			writeError(w, http.StatusBadRequest, ve.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to register module")
		return
	}
	writeCreated(w, toActionItem(a))
}

func (c *ActionsController) handleGet(w http.ResponseWriter, r *http.Request) {
	hash := r.URL.Query().Get("hash")
	if hash == "" {
		writeError(w, http.StatusBadRequest, "hash is required")
		return
	}
	a, err := c.rt.Actions().GetAction(r.Context(), hash)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to sync action registry")
		return
	}
	if a == nil {
		writeError(w, http.StatusNotFound, "Action not found")
		return
	}
	writeJSON(w, toActionItem(a))
}

func (c *ActionsController) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := registry.Filter{
		Submitter: q.Get("submitter"),
		Since:     parseTimestamp(q.Get("since")),
		Until:     parseTimestamp(q.Get("until")),
		Expr:      q.Get("expr"),
	}
	list, err := c.rt.Actions().List(r.Context(), f)
	if err != nil {
		var ve *protocol.ValidationError
		if errors.As(err, &ve) {
			writeError(w, http.StatusBadRequest, ve.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to list actions")
		return
	}
	items := make([]actionRespItem, 0, len(list))
	for _, a := range list {
		items = append(items, toActionItem(a))
	}
	writeJSON(w, map[string]any{"actions": items})
}

func (c *ActionsController) handleWasm(w http.ResponseWriter, r *http.Request) {
	hash := r.URL.Query().Get("hash")
	if hash == "" {
		writeError(w, http.StatusBadRequest, "hash is required")
		return
	}
	data, err := c.rt.Actions().FetchWasm(r.Context(), hash)
	if err != nil {
		writeError(w, http.StatusNotFound, "Module binary not found")
		return
	}
	w.Header().Set("Content-Type", "application/wasm")
	_, _ = w.Write(data)
}

func (c *ActionsController) handleInfo(w http.ResponseWriter, r *http.Request) {
	hash := r.URL.Query().Get("hash")
	if hash == "" {
		writeError(w, http.StatusBadRequest, "hash is required")
		return
	}
	info, err := c.rt.Actions().FetchInfo(r.Context(), hash)
	if err != nil {
		writeError(w, http.StatusNotFound, "Module info not found")
		return
	}
	writeJSON(w, info)
}

func toActionItem(a *actionreg.Action) actionRespItem {
	return actionRespItem{ID: a.ID, Registration: a.Registration, Timestamp: a.Timestamp, Submitter: a.Submitter}
}
