package runtime

import (
	"context"
	"errors"

	cfgpkg "github.com/rzbill/hashlink/internal/config"
	"github.com/rzbill/hashlink/internal/content"
	"github.com/rzbill/hashlink/internal/registry/actions"
	"github.com/rzbill/hashlink/internal/registry/assembly"
	"github.com/rzbill/hashlink/internal/resolver"
	pebblestore "github.com/rzbill/hashlink/internal/storage/pebble"
	"github.com/rzbill/hashlink/internal/transport"
	logpkg "github.com/rzbill/hashlink/pkg/log"
)

// Options for building the Runtime.
type Options struct {
	Config cfgpkg.Config
	Logger logpkg.Logger
}

// Runtime wires storage, transport, registries, and the resolver for a
// single-node instance.
type Runtime struct {
	db       *pebblestore.DB
	tr       *transport.Local
	store    content.Store
	loader   *content.BlockLoader
	actions  *actions.Registry
	assembly *assembly.Registry
	engine   *resolver.Engine
	config   cfgpkg.Config
	logger   logpkg.Logger
}

// Open initializes storage and wires every component. The action topic is
// created on first start when the config names none.
func Open(opts Options) (*Runtime, error) {
	cfg := opts.Config
	logger := opts.Logger
	if logger == nil {
		built, err := logpkg.ApplyConfig(&cfg.Log)
		if err != nil {
			return nil, err
		}
		logger = built
	}

	dataDir := cfg.DataDir
	if dataDir == "" {
		dataDir = cfgpkg.DefaultDataDir()
	}
	fsync, err := cfg.FsyncMode()
	if err != nil {
		return nil, err
	}
	db, err := pebblestore.Open(pebblestore.Options{DataDir: dataDir, Fsync: fsync})
	if err != nil {
		return nil, err
	}

	tr := transport.NewLocal(db, transport.LocalOptions{Payer: cfg.Operator})
	store := content.NewPebbleStore(db)
	loader := content.NewBlockLoader(tr, store, logger.WithComponent("blocks"))

	actionTopic := cfg.ActionTopic
	if actionTopic == "" {
		actionTopic, err = tr.CreateTopic(context.Background(), "hashlink actions")
		if err != nil {
			db.Close()
			return nil, err
		}
		logger.Info("created action topic", logpkg.Str("topic", actionTopic))
	}
	ar, err := actions.New(actions.Options{
		Transport: tr,
		TopicID:   actionTopic,
		Store:     store,
		Submitter: cfg.Operator,
		PageSize:  cfg.SyncPageSize,
		Logger:    logger.WithComponent("actions"),
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	rt := &Runtime{
		db:      db,
		tr:      tr,
		store:   store,
		loader:  loader,
		actions: ar,
		config:  cfg,
		logger:  logger,
	}
	rt.config.ActionTopic = actionTopic

	if cfg.AssemblyTopic != "" {
		asm, err := assembly.New(assembly.Options{
			Transport: tr,
			TopicID:   cfg.AssemblyTopic,
			Submitter: cfg.Operator,
			PageSize:  cfg.SyncPageSize,
			Logger:    logger.WithComponent("assembly"),
		})
		if err != nil {
			db.Close()
			return nil, err
		}
		rt.assembly = asm
	}

	engine, err := resolver.New(resolver.Options{
		Transport:   tr,
		Actions:     ar,
		Blocks:      loader,
		Parallelism: cfg.ResolveParallelism,
		Logger:      logger.WithComponent("resolver"),
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	rt.engine = engine
	return rt, nil
}

// Close closes underlying resources.
func (r *Runtime) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// CheckHealth performs a simple health check.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	if r.db == nil {
		return errors.New("db not open")
	}
	it, err := r.db.NewIter(nil)
	if err != nil {
		return err
	}
	it.Close()
	return nil
}

// Transport returns the local log transport.
func (r *Runtime) Transport() *transport.Local { return r.tr }

// ContentStore returns the content-addressed blob store.
func (r *Runtime) ContentStore() content.Store { return r.store }

// Blocks returns the block loader.
func (r *Runtime) Blocks() *content.BlockLoader { return r.loader }

// Actions returns the action registry.
func (r *Runtime) Actions() *actions.Registry { return r.actions }

// Assembly returns the owned assembly registry, or nil when the config names
// no assembly topic.
func (r *Runtime) Assembly() *assembly.Registry { return r.assembly }

// Resolver returns the resolution engine.
func (r *Runtime) Resolver() *resolver.Engine { return r.engine }

// DB exposes the underlying DB for advanced operations (internal use only).
func (r *Runtime) DB() *pebblestore.DB { return r.db }

// Config returns the runtime configuration, with defaults applied.
func (r *Runtime) Config() cfgpkg.Config { return r.config }

// Logger returns the process logger.
func (r *Runtime) Logger() logpkg.Logger { return r.logger }
