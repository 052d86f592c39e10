package content

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rzbill/hashlink/internal/protocol"
	"github.com/rzbill/hashlink/internal/transport"
	logpkg "github.com/rzbill/hashlink/pkg/log"
)

// Block is a fully loaded block: the registration found on its topic plus the
// fetched definition and template blobs.
type Block struct {
	Reference    string
	Registration *protocol.BlockRegistration
	Definition   *protocol.BlockDefinition
	Template     string
}

// BlockLoader resolves block topic references into loaded blocks with a
// memoized per-reference cache. Only successful loads are cached; failures
// are retried on the next call.
type BlockLoader struct {
	tr     transport.Transport
	store  Store
	logger logpkg.Logger

	mu    sync.Mutex
	cache map[string]*Block
}

// NewBlockLoader returns a loader reading registrations from tr and blobs
// from store.
func NewBlockLoader(tr transport.Transport, store Store, logger logpkg.Logger) *BlockLoader {
	if logger == nil {
		logger = logpkg.NewLogger().WithComponent("blocks")
	}
	return &BlockLoader{tr: tr, store: store, logger: logger, cache: map[string]*Block{}}
}

// Load fetches the block registered at the given topic reference.
func (l *BlockLoader) Load(ctx context.Context, reference string) (*Block, error) {
	l.mu.Lock()
	if b, ok := l.cache[reference]; ok {
		l.mu.Unlock()
		return b, nil
	}
	l.mu.Unlock()

	reg, err := l.latestRegistration(ctx, reference)
	if err != nil {
		return nil, err
	}

	defBytes, err := l.store.Fetch(ctx, reg.DefinitionID)
	if err != nil {
		return nil, fmt.Errorf("block %s: definition: %w", reference, err)
	}
	var def protocol.BlockDefinition
	if err := json.Unmarshal(defBytes, &def); err != nil {
		return nil, fmt.Errorf("block %s: definition is not valid JSON: %w", reference, err)
	}

	tmplBytes, err := l.store.Fetch(ctx, reg.TemplateID)
	if err != nil {
		return nil, fmt.Errorf("block %s: template: %w", reference, err)
	}

	b := &Block{Reference: reference, Registration: reg, Definition: &def, Template: string(tmplBytes)}
	l.mu.Lock()
	l.cache[reference] = b
	l.mu.Unlock()
	l.logger.Debug("block loaded", logpkg.Str("reference", reference), logpkg.Str("name", def.Name))
	return b, nil
}

// latestRegistration reads the newest block registration on the topic.
func (l *BlockLoader) latestRegistration(ctx context.Context, reference string) (*protocol.BlockRegistration, error) {
	msgs, err := l.tr.ReadLatest(ctx, reference, 1)
	if err != nil {
		return nil, fmt.Errorf("block %s: %w", reference, err)
	}
	if len(msgs) == 0 {
		return nil, fmt.Errorf("block %s: topic has no registration", reference)
	}
	op, err := protocol.Decode(msgs[0].Contents)
	if err != nil {
		return nil, fmt.Errorf("block %s: %w", reference, err)
	}
	reg, ok := op.(*protocol.BlockRegistration)
	if !ok {
		return nil, fmt.Errorf("block %s: latest message is %s/%s, not a block registration", reference, op.Protocol(), op.Op())
	}
	return reg, nil
}

// Publish stores a block's definition and template blobs and appends the
// registration to its topic. Returns the registration as written.
func (l *BlockLoader) Publish(ctx context.Context, topicID string, def *protocol.BlockDefinition, template []byte) (*protocol.BlockRegistration, error) {
	defBytes, err := json.Marshal(def)
	if err != nil {
		return nil, err
	}
	defID, err := l.store.Store(ctx, defBytes)
	if err != nil {
		return nil, err
	}
	tmplID, err := l.store.Store(ctx, template)
	if err != nil {
		return nil, err
	}

	reg := &protocol.BlockRegistration{Name: def.Name, DefinitionID: defID, TemplateID: tmplID}
	raw, err := protocol.Encode(reg)
	if err != nil {
		return nil, err
	}
	if _, err := l.tr.Append(ctx, topicID, raw); err != nil {
		return nil, err
	}
	return reg, nil
}

// ClearCache drops all memoized blocks.
func (l *BlockLoader) ClearCache() {
	l.mu.Lock()
	l.cache = map[string]*Block{}
	l.mu.Unlock()
}
