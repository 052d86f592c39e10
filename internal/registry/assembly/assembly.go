// Package assembly materializes assembly topics: ordered operation logs that
// fold into a composition of action and block references.
package assembly

import (
	"context"

	"github.com/rzbill/hashlink/internal/protocol"
	"github.com/rzbill/hashlink/internal/registry"
	"github.com/rzbill/hashlink/internal/transport"
	logpkg "github.com/rzbill/hashlink/pkg/log"
)

// Options configures a Registry.
type Options struct {
	// Transport is the log to replay from; nil runs detached.
	Transport transport.Transport
	// TopicID is the assembly's own topic.
	TopicID string
	// Submitter is recorded on locally registered entries.
	Submitter string
	PageSize  int
	Logger    logpkg.Logger
}

// Registry is the typed view over one assembly topic.
type Registry struct {
	base *registry.Registry
	proj *stateProjection
}

// New builds an assembly registry.
func New(opts Options) (*Registry, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewLogger().WithComponent("assembly")
	}
	proj := newStateProjection(logger)
	base, err := registry.New(registry.Options{
		Transport:  opts.Transport,
		TopicID:    opts.TopicID,
		Protocol:   protocol.ProtocolAssembly,
		Projection: proj,
		Submitter:  opts.Submitter,
		PageSize:   opts.PageSize,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}
	return &Registry{base: base, proj: proj}, nil
}

// Base exposes the underlying replay registry.
func (r *Registry) Base() *registry.Registry { return r.base }

// TopicID returns the assembly's topic.
func (r *Registry) TopicID() string { return r.base.TopicID() }

// Sync replays new operations from the assembly topic.
func (r *Registry) Sync(ctx context.Context) error { return r.base.Sync(ctx) }

// ClearCache drops entries and folded state; the next sync replays from the
// start of the log.
func (r *Registry) ClearCache() { r.base.ClearCache() }

// State syncs (when attached) and returns a snapshot of the folded state.
func (r *Registry) State(ctx context.Context) (*State, error) {
	if r.base.Attached() {
		if err := r.base.Sync(ctx); err != nil {
			return nil, err
		}
	}
	return r.proj.snapshot(), nil
}

// CachedState returns the folded state without syncing.
func (r *Registry) CachedState() *State { return r.proj.snapshot() }

// Register appends a register operation, resetting any prior state on replay.
func (r *Registry) Register(ctx context.Context, op *protocol.AssemblyRegister) (string, error) {
	return r.base.Register(ctx, op)
}

// AddAction appends an add-action operation.
func (r *Registry) AddAction(ctx context.Context, op *protocol.AssemblyAddAction) (string, error) {
	return r.base.Register(ctx, op)
}

// AddBlock appends an add-block operation.
func (r *Registry) AddBlock(ctx context.Context, op *protocol.AssemblyAddBlock) (string, error) {
	return r.base.Register(ctx, op)
}

// Update appends a metadata update operation.
func (r *Registry) Update(ctx context.Context, op *protocol.AssemblyUpdate) (string, error) {
	return r.base.Register(ctx, op)
}

// ReplayState folds an arbitrary assembly topic into a State without keeping
// a registry around. Used for topics this process does not own.
func ReplayState(ctx context.Context, tr transport.Transport, topicID string, logger logpkg.Logger) (*State, error) {
	r, err := New(Options{Transport: tr, TopicID: topicID, Logger: logger})
	if err != nil {
		return nil, err
	}
	return r.State(ctx)
}
