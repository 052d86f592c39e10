// Package actions materializes action registrations and publishes WASM
// modules. The hash index is a projection over the underlying topic replay,
// so every materialization path keeps it consistent with the entry cache.
package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rzbill/hashlink/internal/content"
	"github.com/rzbill/hashlink/internal/protocol"
	"github.com/rzbill/hashlink/internal/registry"
	"github.com/rzbill/hashlink/internal/transport"
	logpkg "github.com/rzbill/hashlink/pkg/log"
)

// Action is one materialized action registration.
type Action struct {
	// ID is the entry id in the action topic.
	ID           string
	Registration *protocol.ActionRegistration
	Timestamp    time.Time
	Submitter    string
}

// Options configures a Registry.
type Options struct {
	// Transport is the log to replay from; nil runs detached.
	Transport transport.Transport
	// TopicID is the shared action registration topic.
	TopicID string
	// Store holds WASM binaries and module-info blobs.
	Store content.Store
	// Submitter is recorded on locally registered entries.
	Submitter string
	PageSize  int
	Logger    logpkg.Logger
}

// Registry is the typed view over the action registration topic.
type Registry struct {
	base  *registry.Registry
	tr    transport.Transport
	store content.Store
	index *hashIndex
}

// New builds an action registry.
func New(opts Options) (*Registry, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("actions: Options.Store is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewLogger().WithComponent("actions")
	}
	idx := newHashIndex()
	base, err := registry.New(registry.Options{
		Transport:  opts.Transport,
		TopicID:    opts.TopicID,
		Protocol:   protocol.ProtocolAction,
		Projection: idx,
		Submitter:  opts.Submitter,
		PageSize:   opts.PageSize,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}
	return &Registry{base: base, tr: opts.Transport, store: opts.Store, index: idx}, nil
}

// Base exposes the underlying replay registry.
func (r *Registry) Base() *registry.Registry { return r.base }

// Sync replays new messages from the action topic.
func (r *Registry) Sync(ctx context.Context) error { return r.base.Sync(ctx) }

// ClearCache drops all materialized state, including the hash index.
func (r *Registry) ClearCache() { r.base.ClearCache() }

// GetAction returns the registration whose module-info hash matches, or nil
// when no such registration exists. A miss triggers one sync pass first.
func (r *Registry) GetAction(ctx context.Context, hash string) (*Action, error) {
	if a := r.lookup(hash); a != nil {
		return a, nil
	}
	if !r.base.Attached() {
		return nil, nil
	}
	if err := r.base.Sync(ctx); err != nil {
		return nil, err
	}
	return r.lookup(hash), nil
}

func (r *Registry) lookup(hash string) *Action {
	id, ok := r.index.get(hash)
	if !ok {
		return nil
	}
	e, err := r.base.GetEntry(context.Background(), id)
	if err != nil || e == nil {
		return nil
	}
	return actionFromEntry(e)
}

func actionFromEntry(e *registry.Entry) *Action {
	reg, ok := e.Data.(*protocol.ActionRegistration)
	if !ok {
		return nil
	}
	return &Action{ID: e.ID, Registration: reg, Timestamp: e.Timestamp, Submitter: e.Submitter}
}

// List syncs and returns all materialized registrations in log order.
func (r *Registry) List(ctx context.Context, f registry.Filter) ([]*Action, error) {
	entries, err := r.base.ListEntries(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make([]*Action, 0, len(entries))
	for _, e := range entries {
		if a := actionFromEntry(e); a != nil {
			out = append(out, a)
		}
	}
	return out, nil
}

// RegisterModule stores the WASM binary and its module info, then appends a
// registration pointing at both. The registration hash is the sha256 of the
// canonical module-info JSON.
func (r *Registry) RegisterModule(ctx context.Context, wasm []byte, info *protocol.ModuleInfo) (*Action, error) {
	if len(wasm) == 0 {
		return nil, &protocol.ValidationError{Field: "wasm", Reason: "module binary is empty"}
	}
	if info == nil || info.Name == "" {
		return nil, &protocol.ValidationError{Field: "name", Reason: "module name is required"}
	}
	infoJSON, err := json.Marshal(info)
	if err != nil {
		return nil, err
	}
	artifactID, err := r.store.Store(ctx, wasm)
	if err != nil {
		return nil, fmt.Errorf("actions: store module binary: %w", err)
	}
	infoID, err := r.store.Store(ctx, infoJSON)
	if err != nil {
		return nil, fmt.Errorf("actions: store module info: %w", err)
	}

	reg := &protocol.ActionRegistration{
		Hash:        content.Digest(infoJSON),
		WasmHash:    content.Digest(wasm),
		TopicID:     artifactID,
		InfoTopicID: infoID,
	}
	id, err := r.base.Register(ctx, reg)
	if err != nil {
		return nil, err
	}
	e, err := r.base.GetEntry(ctx, id)
	if err != nil || e == nil {
		return &Action{ID: id, Registration: reg}, nil
	}
	return actionFromEntry(e), nil
}

// FetchWasm loads the stored binary for a registered module. The content
// store re-verifies the digest on every fetch.
func (r *Registry) FetchWasm(ctx context.Context, hash string) ([]byte, error) {
	a, err := r.GetAction(ctx, hash)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, &content.NotFoundError{ID: hash}
	}
	return r.store.Fetch(ctx, a.Registration.TopicID)
}

// FetchInfo loads and decodes the stored module info for a registered module.
func (r *Registry) FetchInfo(ctx context.Context, hash string) (*protocol.ModuleInfo, error) {
	a, err := r.GetAction(ctx, hash)
	if err != nil {
		return nil, err
	}
	if a == nil || a.Registration.InfoTopicID == "" {
		return nil, &content.NotFoundError{ID: hash}
	}
	raw, err := r.store.Fetch(ctx, a.Registration.InfoTopicID)
	if err != nil {
		return nil, err
	}
	var info protocol.ModuleInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, fmt.Errorf("actions: module info for %s is not valid JSON: %w", hash, err)
	}
	return &info, nil
}

// LatestRegistration reads the newest action registration on an arbitrary
// topic. Used when resolving references to actions registered elsewhere.
func (r *Registry) LatestRegistration(ctx context.Context, topicID string) (*protocol.ActionRegistration, error) {
	if r.tr == nil {
		return nil, fmt.Errorf("actions: no transport attached")
	}
	msgs, err := r.tr.ReadLatest(ctx, topicID, 1)
	if err != nil {
		return nil, fmt.Errorf("action %s: %w", topicID, err)
	}
	if len(msgs) == 0 {
		return nil, fmt.Errorf("action %s: topic has no registration", topicID)
	}
	op, err := protocol.Decode(msgs[0].Contents)
	if err != nil {
		return nil, fmt.Errorf("action %s: %w", topicID, err)
	}
	reg, ok := op.(*protocol.ActionRegistration)
	if !ok {
		return nil, fmt.Errorf("action %s: latest message is %s/%s, not an action registration", topicID, op.Protocol(), op.Op())
	}
	return reg, nil
}

// hashIndex maps module-info hash to entry id. Later registrations for the
// same hash win, matching log order.
type hashIndex struct {
	mu sync.Mutex
	m  map[string]string
}

func newHashIndex() *hashIndex { return &hashIndex{m: map[string]string{}} }

func (i *hashIndex) Reset() {
	i.mu.Lock()
	i.m = map[string]string{}
	i.mu.Unlock()
}

func (i *hashIndex) Fold(e registry.Entry) {
	reg, ok := e.Data.(*protocol.ActionRegistration)
	if !ok {
		return
	}
	i.mu.Lock()
	i.m[reg.Hash] = e.ID
	i.mu.Unlock()
}

func (i *hashIndex) get(hash string) (string, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	id, ok := i.m[hash]
	return id, ok
}
