package registry

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rzbill/hashlink/internal/protocol"
	"github.com/rzbill/hashlink/internal/transport"
	logpkg "github.com/rzbill/hashlink/pkg/log"
)

// Entry is one materialized record from a topic log. Entries are immutable
// once materialized; a re-sync only ever adds new ones.
type Entry struct {
	// ID is the log-assigned sequence identifier (or a synthetic id in
	// detached mode), usable as an external reference.
	ID             string
	SequenceNumber uint64
	Timestamp      time.Time
	Submitter      string
	Data           protocol.Operation
}

// Projection folds entries into derived state. Both the incremental sync path
// and the full replay after ClearCache feed entries through the same Fold, in
// insertion order, so the two paths cannot diverge.
type Projection interface {
	// Reset drops all derived state.
	Reset()
	// Fold applies one entry. Called with entries in log order.
	Fold(e Entry)
}

// SyncError reports a transport failure during sync.
type SyncError struct {
	TopicID string
	Err     error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("registry: sync %s: %v", e.TopicID, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

// Options configures a Registry.
type Options struct {
	// Transport is the log to replay from. Nil means detached mode: entries
	// exist only locally and ids are synthesized.
	Transport transport.Transport
	// TopicID is the topic this registry replays.
	TopicID string
	// Protocol is the tag this registry owns; messages carrying any other tag
	// are skipped during sync.
	Protocol string
	// IDs assigns entry ids. Defaults to TransportAssignedIDs when a
	// transport is attached, LocalMonotonicIDs otherwise.
	IDs IDSource
	// Projection optionally receives every inserted entry.
	Projection Projection
	// Submitter is recorded on locally registered entries.
	Submitter string
	// PageSize bounds one sync read. Defaults to 100.
	PageSize int
	// Logger defaults to a component-tagged logger.
	Logger logpkg.Logger
	// Clock overrides time.Now, for tests.
	Clock func() time.Time
}

// Registry replays one topic's ordered message log into versioned local
// state: a cache of materialized entries plus a monotonic sync cursor.
type Registry struct {
	tr         transport.Transport
	topicID    string
	protocol   string
	ids        IDSource
	projection Projection
	submitter  string
	pageSize   int
	logger     logpkg.Logger
	clock      func() time.Time

	mu       sync.Mutex
	entries  map[string]*Entry
	order    []string
	cursor   time.Time
	localSeq uint64
	syncs    uint64
}

// New builds a Registry from opts.
func New(opts Options) (*Registry, error) {
	if opts.Protocol == "" {
		return nil, errors.New("registry: Options.Protocol is required")
	}
	if opts.Transport != nil && opts.TopicID == "" {
		return nil, errors.New("registry: Options.TopicID is required when a transport is attached")
	}
	ids := opts.IDs
	if ids == nil {
		if opts.Transport != nil {
			ids = TransportAssignedIDs{}
		} else {
			ids = NewLocalMonotonicIDs()
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewLogger().WithComponent("registry")
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	pageSize := opts.PageSize
	// the inclusive read bound re-delivers one boundary message per page, so
	// a page must hold at least one more
	if pageSize <= 1 {
		pageSize = 100
	}
	submitter := opts.Submitter
	if submitter == "" {
		submitter = "local"
	}
	return &Registry{
		tr:         opts.Transport,
		topicID:    opts.TopicID,
		protocol:   opts.Protocol,
		ids:        ids,
		projection: opts.Projection,
		submitter:  submitter,
		pageSize:   pageSize,
		logger:     logger.With(logpkg.Str("topic", opts.TopicID)),
		clock:      clock,
		entries:    map[string]*Entry{},
	}, nil
}

// TopicID returns the topic this registry replays.
func (r *Registry) TopicID() string { return r.topicID }

// Attached reports whether a transport is attached.
func (r *Registry) Attached() bool { return r.tr != nil }

// Register validates op, appends it to the attached topic (when there is
// one), and materializes the resulting entry locally. On transport failure no
// local entry is inserted.
func (r *Registry) Register(ctx context.Context, op protocol.Operation) (string, error) {
	if op.Protocol() != r.protocol {
		return "", &protocol.ValidationError{Field: "p", Reason: fmt.Sprintf("operation belongs to %s, registry owns %s", op.Protocol(), r.protocol)}
	}
	if err := op.Validate(); err != nil {
		return "", err
	}

	if r.tr == nil {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.localSeq++
		e := &Entry{
			ID:             r.ids.AssignID(nil),
			SequenceNumber: r.localSeq,
			Timestamp:      r.clock(),
			Submitter:      r.submitter,
			Data:           op,
		}
		r.insertLocked(e)
		return e.ID, nil
	}

	raw, err := protocol.Encode(op)
	if err != nil {
		return "", err
	}
	receipt, err := r.tr.Append(ctx, r.topicID, raw)
	if err != nil {
		return "", err
	}
	e := &Entry{
		ID:             r.ids.AssignID(&receipt),
		SequenceNumber: receipt.SequenceNumber,
		Timestamp:      receipt.ConsensusTimestamp,
		Submitter:      r.submitter,
		Data:           op,
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.insertLocked(e)
	return e.ID, nil
}

// insertLocked adds a new entry and feeds the projection. Existing ids are
// never overwritten.
func (r *Registry) insertLocked(e *Entry) {
	if _, ok := r.entries[e.ID]; ok {
		return
	}
	r.entries[e.ID] = e
	r.order = append(r.order, e.ID)
	if r.projection != nil {
		r.projection.Fold(*e)
	}
}

// GetEntry returns the entry with the given id, or nil when absent. A miss
// triggers one sync pass before giving up; "not found" is not an error.
func (r *Registry) GetEntry(ctx context.Context, id string) (*Entry, error) {
	r.mu.Lock()
	e := r.entries[id]
	r.mu.Unlock()
	if e != nil || r.tr == nil {
		return e, nil
	}
	if err := r.Sync(ctx); err != nil {
		return nil, err
	}
	r.mu.Lock()
	e = r.entries[id]
	r.mu.Unlock()
	return e, nil
}

// Filter narrows a ListEntries result. Zero values match everything.
type Filter struct {
	// Submitter matches entries appended by this identity.
	Submitter string
	// Since and Until bound the timestamp range, both inclusive.
	Since time.Time
	Until time.Time
	// Expr is an optional CEL expression evaluated per entry.
	Expr string
}

// ListEntries syncs (when attached) and returns cached entries in insertion
// order, optionally filtered.
func (r *Registry) ListEntries(ctx context.Context, f Filter) ([]*Entry, error) {
	if r.tr != nil {
		if err := r.Sync(ctx); err != nil {
			return nil, err
		}
	}

	var expr *celFilter
	if f.Expr != "" {
		compiled, err := newCELFilter(f.Expr)
		if err != nil {
			return nil, &protocol.ValidationError{Field: "expr", Reason: err.Error()}
		}
		expr = compiled
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Entry, 0, len(r.order))
	for _, id := range r.order {
		e := r.entries[id]
		if f.Submitter != "" && e.Submitter != f.Submitter {
			continue
		}
		if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
			continue
		}
		if !f.Until.IsZero() && e.Timestamp.After(f.Until) {
			continue
		}
		if expr != nil && !expr.Eval(e) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// Sync reads messages since the cursor, materializes the ones carrying this
// registry's protocol tag, and advances the cursor. Individual undecodable
// messages are logged and skipped; transport failures abort with a SyncError.
func (r *Registry) Sync(ctx context.Context) error {
	if r.tr == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	consumed := 0
	inserted := 0
	for {
		msgs, err := r.tr.ReadSince(ctx, r.topicID, r.cursor, r.pageSize)
		if err != nil {
			return &SyncError{TopicID: r.topicID, Err: err}
		}
		if len(msgs) == 0 {
			break
		}
		for _, msg := range msgs {
			consumed++
			// the inclusive cursor bound re-delivers the boundary message;
			// dedupe by id, not timestamp
			id := transportEntryID(msg.SequenceNumber)
			if _, ok := r.entries[id]; ok {
				continue
			}
			op, err := protocol.Decode(msg.Contents)
			if err != nil {
				if errors.Is(err, protocol.ErrUnknownProtocol) {
					r.logger.Debug("skipping foreign protocol message", logpkg.Uint64("seq", msg.SequenceNumber))
				} else {
					r.logger.Warn("skipping undecodable message", logpkg.Uint64("seq", msg.SequenceNumber), logpkg.Err(err))
				}
				continue
			}
			if op.Protocol() != r.protocol {
				r.logger.Debug("skipping message for other registry", logpkg.Uint64("seq", msg.SequenceNumber), logpkg.Str("p", op.Protocol()))
				continue
			}
			r.insertLocked(&Entry{
				ID:             id,
				SequenceNumber: msg.SequenceNumber,
				Timestamp:      msg.ConsensusTimestamp,
				Submitter:      msg.PayerIdentity,
				Data:           op,
			})
			inserted++
		}
		advanced := msgs[len(msgs)-1].ConsensusTimestamp.After(r.cursor)
		r.cursor = msgs[len(msgs)-1].ConsensusTimestamp
		if len(msgs) < r.pageSize || !advanced {
			break
		}
	}
	if consumed == 0 {
		// nothing new; move the cursor up to bound repeat work
		r.cursor = r.clock()
	}
	r.syncs++
	if inserted > 0 {
		r.logger.Debug("sync complete", logpkg.Int("entries", inserted))
	}
	return nil
}

// ClearCache drops every entry, resets the projection, and rewinds the cursor
// to the beginning of the log. The next sync re-materializes from scratch.
func (r *Registry) ClearCache() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = map[string]*Entry{}
	r.order = nil
	r.cursor = time.Time{}
	r.localSeq = 0
	if r.projection != nil {
		r.projection.Reset()
	}
}

// Len returns the number of cached entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}

// Cursor returns the last consumed timestamp.
func (r *Registry) Cursor() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cursor
}

// SyncCount returns how many sync passes have completed. Test hook.
func (r *Registry) SyncCount() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.syncs
}

func transportEntryID(seq uint64) string { return strconv.FormatUint(seq, 10) }
