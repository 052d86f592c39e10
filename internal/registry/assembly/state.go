package assembly

import (
	"sync"
	"time"

	"github.com/rzbill/hashlink/internal/protocol"
	"github.com/rzbill/hashlink/internal/registry"
	logpkg "github.com/rzbill/hashlink/pkg/log"
)

// ActionRef is one action added to an assembly.
type ActionRef struct {
	// Reference is the topic the action registration lives on.
	Reference string         `json:"t_id"`
	Alias     string         `json:"alias"`
	Config    map[string]any `json:"config,omitempty"`
	AddedAt   time.Time      `json:"added_at"`
}

// BlockRef is one block added to an assembly.
type BlockRef struct {
	Reference          string            `json:"t_id"`
	ActionBindings     map[string]string `json:"actions,omitempty"`
	AttributeOverrides map[string]any    `json:"attributes,omitempty"`
	ChildAliases       []string          `json:"children,omitempty"`
	AddedAt            time.Time         `json:"added_at"`
}

// State is the materialized assembly: the fold of every operation on its
// topic, in log order.
type State struct {
	Registered  bool        `json:"registered"`
	Name        string      `json:"name,omitempty"`
	Version     string      `json:"version,omitempty"`
	Description string      `json:"description,omitempty"`
	Tags        []string    `json:"tags,omitempty"`
	Actions     []ActionRef `json:"actions,omitempty"`
	Blocks      []BlockRef  `json:"blocks,omitempty"`
	CreatedAt   time.Time   `json:"created_at,omitempty"`
	UpdatedAt   time.Time   `json:"updated_at,omitempty"`
}

// clone deep-copies the slices and the maps inside each reference so callers
// can hold and mutate the snapshot across syncs.
func (s *State) clone() *State {
	out := *s
	out.Tags = append([]string(nil), s.Tags...)
	out.Actions = make([]ActionRef, len(s.Actions))
	for i, a := range s.Actions {
		a.Config = copyAnyMap(a.Config)
		out.Actions[i] = a
	}
	out.Blocks = make([]BlockRef, len(s.Blocks))
	for i, b := range s.Blocks {
		b.ActionBindings = copyStringMap(b.ActionBindings)
		b.AttributeOverrides = copyAnyMap(b.AttributeOverrides)
		b.ChildAliases = append([]string(nil), b.ChildAliases...)
		out.Blocks[i] = b
	}
	return &out
}

func copyAnyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// stateProjection folds assembly operations into a State. Operations arriving
// before a register, and unknown operation kinds, are logged and dropped;
// a second register resets the state and starts over.
type stateProjection struct {
	logger logpkg.Logger

	mu    sync.Mutex
	state State
}

func newStateProjection(logger logpkg.Logger) *stateProjection {
	return &stateProjection{logger: logger}
}

func (p *stateProjection) Reset() {
	p.mu.Lock()
	p.state = State{}
	p.mu.Unlock()
}

func (p *stateProjection) Fold(e registry.Entry) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if op, ok := e.Data.(*protocol.AssemblyRegister); ok {
		if p.state.Registered {
			p.logger.Warn("assembly re-registered, resetting state",
				logpkg.Str("name", op.Name), logpkg.Uint64("seq", e.SequenceNumber))
		}
		p.state = State{
			Registered:  true,
			Name:        op.Name,
			Version:     op.Version,
			Description: op.Description,
			Tags:        append([]string(nil), op.Tags...),
			CreatedAt:   e.Timestamp,
			UpdatedAt:   e.Timestamp,
		}
		return
	}

	if !p.state.Registered {
		p.logger.Warn("assembly operation before register, dropped",
			logpkg.Str("op", e.Data.Op()), logpkg.Uint64("seq", e.SequenceNumber))
		return
	}

	switch op := e.Data.(type) {
	case *protocol.AssemblyAddAction:
		// duplicate aliases are kept; composition validation reports them
		p.state.Actions = append(p.state.Actions, ActionRef{
			Reference: op.Reference,
			Alias:     op.Alias,
			Config:    op.Config,
			AddedAt:   e.Timestamp,
		})
		p.state.UpdatedAt = e.Timestamp
	case *protocol.AssemblyAddBlock:
		p.state.Blocks = append(p.state.Blocks, BlockRef{
			Reference:          op.Reference,
			ActionBindings:     op.ActionBindings,
			AttributeOverrides: op.AttributeOverrides,
			ChildAliases:       op.ChildAliases,
			AddedAt:            e.Timestamp,
		})
		p.state.UpdatedAt = e.Timestamp
	case *protocol.AssemblyUpdate:
		if op.Description != nil {
			p.state.Description = *op.Description
		}
		if op.Tags != nil {
			p.state.Tags = append([]string(nil), op.Tags...)
		}
		p.state.UpdatedAt = e.Timestamp
	default:
		p.logger.Warn("unknown assembly operation, dropped",
			logpkg.Str("op", e.Data.Op()), logpkg.Uint64("seq", e.SequenceNumber))
	}
}

func (p *stateProjection) snapshot() *State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.clone()
}
