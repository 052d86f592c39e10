package controllers

import (
	"net/http"

	"github.com/rzbill/hashlink/internal/runtime"
)

// ControllerRegistry manages all HTTP controllers.
//
// It provides a centralized way to register all controller routes
// and manages the lifecycle of individual controllers.
type ControllerRegistry struct {
	general    *GeneralController
	topics     *TopicsController
	actions    *ActionsController
	assemblies *AssembliesController
	blocks     *BlocksController
}

// NewControllerRegistry creates a new controller registry wired to rt.
func NewControllerRegistry(rt *runtime.Runtime) *ControllerRegistry {
	return &ControllerRegistry{
		general:    NewGeneralController(rt),
		topics:     NewTopicsController(rt),
		actions:    NewActionsController(rt),
		assemblies: NewAssembliesController(rt),
		blocks:     NewBlocksController(rt),
	}
}

// RegisterAllRoutes registers all controller routes with the given mux.
//
// This method sets up all HTTP endpoints for the hashlink service:
// general endpoints (health), topic management, the action and assembly
// registries, and block publishing.
func (r *ControllerRegistry) RegisterAllRoutes(mux *http.ServeMux) {
	r.general.RegisterRoutes(mux)
	r.topics.RegisterRoutes(mux)
	r.actions.RegisterRoutes(mux)
	r.assemblies.RegisterRoutes(mux)
	r.blocks.RegisterRoutes(mux)
}
