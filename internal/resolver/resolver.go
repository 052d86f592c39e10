// Package resolver turns assembly topics into fully resolved compositions:
// the folded assembly state plus the registrations and blocks its references
// point at. Resolution tolerates broken references; each failure is reported
// alongside the parts that did resolve.
package resolver

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rzbill/hashlink/internal/content"
	"github.com/rzbill/hashlink/internal/protocol"
	"github.com/rzbill/hashlink/internal/registry/actions"
	"github.com/rzbill/hashlink/internal/registry/assembly"
	"github.com/rzbill/hashlink/internal/transport"
	logpkg "github.com/rzbill/hashlink/pkg/log"
)

// NotFoundError reports an assembly topic that does not exist or holds no
// register operation.
type NotFoundError struct {
	TopicID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("resolver: no assembly registered at topic %s", e.TopicID)
}

// Assembly is a loaded assembly: the folded state of one topic.
type Assembly struct {
	TopicID  string
	State    *assembly.State
	LoadedAt time.Time
}

// ResolvedAction pairs an action reference with the registration found at it.
// A failed reference keeps its slot: Registration is nil and Error is set.
type ResolvedAction struct {
	Ref          assembly.ActionRef           `json:"ref"`
	Registration *protocol.ActionRegistration `json:"registration"`
	Error        string                       `json:"error,omitempty"`
}

// ResolvedBlock pairs a block reference with the loaded block. A failed
// reference keeps its slot: Block is nil and Error is set.
type ResolvedBlock struct {
	Ref   assembly.BlockRef `json:"ref"`
	Block *content.Block    `json:"block"`
	Error string            `json:"error,omitempty"`
}

// ResolveError is one reference that failed to resolve.
type ResolveError struct {
	// Kind is "action" or "block".
	Kind      string
	Reference string
	Message   string
}

func (e ResolveError) Error() string { return e.Message }

// Resolution is the outcome of resolving every reference of an assembly.
// Actions and Blocks hold one slot per reference in declaration order; slots
// of failed references carry an Error instead of a definition, and the same
// failures are aggregated in Errors. A non-empty Errors does not make the
// resolution itself an error.
type Resolution struct {
	Assembly *Assembly
	Actions  []ResolvedAction
	Blocks   []ResolvedBlock
	Errors   []ResolveError
}

// Complete reports whether every reference resolved.
func (r *Resolution) Complete() bool { return len(r.Errors) == 0 }

// Options configures an Engine.
type Options struct {
	Transport transport.Transport
	// Actions resolves action references to registrations.
	Actions *actions.Registry
	// Blocks loads block references.
	Blocks *content.BlockLoader
	// Parallelism bounds concurrent reference resolution. Defaults to 4.
	Parallelism int
	Logger      logpkg.Logger
	// Clock overrides time.Now, for tests.
	Clock func() time.Time
}

// Engine loads and resolves assemblies with a per-topic cache.
type Engine struct {
	tr          transport.Transport
	actions     *actions.Registry
	blocks      *content.BlockLoader
	parallelism int
	logger      logpkg.Logger
	clock       func() time.Time

	mu          sync.Mutex
	cache       map[string]*Assembly
	resolutions map[string]*Resolution
}

// New builds an Engine.
func New(opts Options) (*Engine, error) {
	if opts.Transport == nil {
		return nil, fmt.Errorf("resolver: Options.Transport is required")
	}
	if opts.Actions == nil || opts.Blocks == nil {
		return nil, fmt.Errorf("resolver: Options.Actions and Options.Blocks are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewLogger().WithComponent("resolver")
	}
	parallelism := opts.Parallelism
	if parallelism <= 0 {
		parallelism = 4
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Engine{
		tr:          opts.Transport,
		actions:     opts.Actions,
		blocks:      opts.Blocks,
		parallelism: parallelism,
		logger:      logger,
		clock:       clock,
		cache:       map[string]*Assembly{},
		resolutions: map[string]*Resolution{},
	}, nil
}

// LoadAssembly replays the topic into an Assembly. Repeat calls for the same
// topic return the cached value without re-reading the log.
func (e *Engine) LoadAssembly(ctx context.Context, topicID string) (*Assembly, error) {
	e.mu.Lock()
	if a, ok := e.cache[topicID]; ok {
		e.mu.Unlock()
		return a, nil
	}
	e.mu.Unlock()

	st, err := assembly.ReplayState(ctx, e.tr, topicID, e.logger)
	if err != nil {
		return nil, err
	}
	if !st.Registered {
		return nil, &NotFoundError{TopicID: topicID}
	}
	a := &Assembly{TopicID: topicID, State: st, LoadedAt: e.clock()}
	e.mu.Lock()
	e.cache[topicID] = a
	e.mu.Unlock()
	e.logger.Debug("assembly loaded",
		logpkg.Str("topic", topicID),
		logpkg.Str("name", st.Name),
		logpkg.Int("actions", len(st.Actions)),
		logpkg.Int("blocks", len(st.Blocks)))
	return a, nil
}

// ResolveReferences resolves every action and block reference of a, fanning
// out with bounded parallelism. Context cancellation aborts with the
// context's error; individual reference failures do not.
func (e *Engine) ResolveReferences(ctx context.Context, a *Assembly) (*Resolution, error) {
	st := a.State
	res := &Resolution{
		Assembly: a,
		Actions:  make([]ResolvedAction, len(st.Actions)),
		Blocks:   make([]ResolvedBlock, len(st.Blocks)),
	}
	actionErr := make([]*ResolveError, len(st.Actions))
	blockErr := make([]*ResolveError, len(st.Blocks))

	sem := make(chan struct{}, e.parallelism)
	var wg sync.WaitGroup
	run := func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-sem }()
			fn()
		}()
	}

	for i := range st.Actions {
		i := i
		run(func() {
			ref := st.Actions[i]
			reg, err := e.actions.LatestRegistration(ctx, ref.Reference)
			if err != nil {
				actionErr[i] = &ResolveError{
					Kind:      "action",
					Reference: ref.Reference,
					Message:   fmt.Sprintf("Action not found at topic: %s", ref.Reference),
				}
				res.Actions[i] = ResolvedAction{Ref: ref, Error: actionErr[i].Message}
				e.logger.Warn("action reference failed", logpkg.Str("topic", ref.Reference), logpkg.Err(err))
				return
			}
			res.Actions[i] = ResolvedAction{Ref: ref, Registration: reg}
		})
	}
	for i := range st.Blocks {
		i := i
		run(func() {
			ref := st.Blocks[i]
			b, err := e.blocks.Load(ctx, ref.Reference)
			if err != nil {
				blockErr[i] = &ResolveError{
					Kind:      "block",
					Reference: ref.Reference,
					Message:   fmt.Sprintf("Block not found at topic: %s", ref.Reference),
				}
				res.Blocks[i] = ResolvedBlock{Ref: ref, Error: blockErr[i].Message}
				e.logger.Warn("block reference failed", logpkg.Str("topic", ref.Reference), logpkg.Err(err))
				return
			}
			res.Blocks[i] = ResolvedBlock{Ref: ref, Block: b}
		})
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, re := range actionErr {
		if re != nil {
			res.Errors = append(res.Errors, *re)
		}
	}
	for _, re := range blockErr {
		if re != nil {
			res.Errors = append(res.Errors, *re)
		}
	}
	return res, nil
}

// LoadAndResolveAssembly loads the topic and resolves every reference.
// Complete resolutions are memoized by topic id until ClearCache; a
// resolution with failed references is returned but not memoized, so broken
// references are retried on the next call.
func (e *Engine) LoadAndResolveAssembly(ctx context.Context, topicID string) (*Resolution, error) {
	e.mu.Lock()
	if res, ok := e.resolutions[topicID]; ok {
		e.mu.Unlock()
		return res, nil
	}
	e.mu.Unlock()

	a, err := e.LoadAssembly(ctx, topicID)
	if err != nil {
		return nil, err
	}
	res, err := e.ResolveReferences(ctx, a)
	if err != nil {
		return nil, err
	}
	if res.Complete() {
		e.mu.Lock()
		e.resolutions[topicID] = res
		e.mu.Unlock()
	}
	return res, nil
}

// ClearCache drops loaded assemblies, memoized resolutions and memoized
// blocks.
func (e *Engine) ClearCache() {
	e.mu.Lock()
	e.cache = map[string]*Assembly{}
	e.resolutions = map[string]*Resolution{}
	e.mu.Unlock()
	e.blocks.ClearCache()
}
