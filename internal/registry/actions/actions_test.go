package actions

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rzbill/hashlink/internal/content"
	"github.com/rzbill/hashlink/internal/protocol"
	"github.com/rzbill/hashlink/internal/registry"
	"github.com/rzbill/hashlink/internal/transport"
	logpkg "github.com/rzbill/hashlink/pkg/log"
)

func testLogger() logpkg.Logger {
	return logpkg.NewLogger(logpkg.WithOutput(logpkg.NullOutput{}))
}

func newTestRegistry(t *testing.T, tr transport.Transport) (*Registry, string, *content.MemoryStore) {
	t.Helper()
	topic, err := tr.CreateTopic(context.Background(), "actions")
	if err != nil {
		t.Fatalf("CreateTopic: %v", err)
	}
	store := content.NewMemoryStore()
	r, err := New(Options{Transport: tr, TopicID: topic, Store: store, Logger: testLogger()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r, topic, store
}

func TestRegisterModuleRoundTrip(t *testing.T) {
	ctx := context.Background()
	tr := transport.NewMemory()
	r, _, _ := newTestRegistry(t, tr)

	wasm := []byte("\x00asm\x01\x00\x00\x00fake module body")
	info := &protocol.ModuleInfo{
		Name:    "counter",
		Version: "1.0.0",
		Actions: []protocol.ActionSpec{{Name: "increment"}},
	}
	a, err := r.RegisterModule(ctx, wasm, info)
	if err != nil {
		t.Fatalf("RegisterModule: %v", err)
	}
	if a.Registration.Hash == "" || a.Registration.WasmHash == "" {
		t.Fatalf("registration missing hashes: %+v", a.Registration)
	}
	if a.Registration.WasmHash != content.Digest(wasm) {
		t.Fatalf("wasm hash = %s", a.Registration.WasmHash)
	}

	got, err := r.GetAction(ctx, a.Registration.Hash)
	if err != nil {
		t.Fatalf("GetAction: %v", err)
	}
	if got == nil || got.ID != a.ID {
		t.Fatalf("GetAction = %+v, want id %s", got, a.ID)
	}

	fetched, err := r.FetchWasm(ctx, a.Registration.Hash)
	if err != nil {
		t.Fatalf("FetchWasm: %v", err)
	}
	if !bytes.Equal(fetched, wasm) {
		t.Fatal("fetched wasm differs from stored")
	}

	gotInfo, err := r.FetchInfo(ctx, a.Registration.Hash)
	if err != nil {
		t.Fatalf("FetchInfo: %v", err)
	}
	if gotInfo.Name != "counter" || len(gotInfo.Actions) != 1 {
		t.Fatalf("FetchInfo = %+v", gotInfo)
	}
}

func TestGetActionMissSyncsOnce(t *testing.T) {
	ctx := context.Background()
	tr := transport.NewMemory()
	r, topic, store := newTestRegistry(t, tr)
	if err := r.Sync(ctx); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	// a second process registers a module on the shared topic
	other, err := New(Options{Transport: tr, TopicID: topic, Store: store, Logger: testLogger()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	a, err := other.RegisterModule(ctx, []byte("module-bytes"), &protocol.ModuleInfo{Name: "m", Version: "1"})
	if err != nil {
		t.Fatalf("RegisterModule: %v", err)
	}

	got, err := r.GetAction(ctx, a.Registration.Hash)
	if err != nil {
		t.Fatalf("GetAction: %v", err)
	}
	if got == nil {
		t.Fatal("miss did not re-sync")
	}

	missing, err := r.GetAction(ctx, "0000000000000000000000000000000000000000000000000000000000000000")
	if err != nil {
		t.Fatalf("GetAction: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for unknown hash, got %+v", missing)
	}
}

func TestRegisterModuleValidation(t *testing.T) {
	ctx := context.Background()
	tr := transport.NewMemory()
	r, _, _ := newTestRegistry(t, tr)

	var ve *protocol.ValidationError
	if _, err := r.RegisterModule(ctx, nil, &protocol.ModuleInfo{Name: "m"}); !errors.As(err, &ve) {
		t.Fatalf("empty wasm: err = %v", err)
	}
	if _, err := r.RegisterModule(ctx, []byte("x"), &protocol.ModuleInfo{}); !errors.As(err, &ve) {
		t.Fatalf("unnamed module: err = %v", err)
	}
}

func TestHashIndexSurvivesReplay(t *testing.T) {
	ctx := context.Background()
	tr := transport.NewMemory()
	r, _, _ := newTestRegistry(t, tr)

	a, err := r.RegisterModule(ctx, []byte("module-bytes"), &protocol.ModuleInfo{Name: "m", Version: "1"})
	if err != nil {
		t.Fatalf("RegisterModule: %v", err)
	}

	r.ClearCache()
	got, err := r.GetAction(ctx, a.Registration.Hash)
	if err != nil {
		t.Fatalf("GetAction after replay: %v", err)
	}
	if got == nil || got.ID != a.ID {
		t.Fatalf("index lost across replay: %+v", got)
	}
}

func TestLatestRegistrationOnForeignTopic(t *testing.T) {
	ctx := context.Background()
	tr := transport.NewMemory()
	r, _, _ := newTestRegistry(t, tr)

	foreign, err := tr.CreateTopic(ctx, "one-action")
	if err != nil {
		t.Fatalf("CreateTopic: %v", err)
	}
	reg := &protocol.ActionRegistration{
		Hash:     content.Digest([]byte("info")),
		WasmHash: content.Digest([]byte("wasm")),
		TopicID:  "t.99",
	}
	raw, err := protocol.Encode(reg)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := tr.Append(ctx, foreign, raw); err != nil {
		t.Fatalf("Append: %v", err)
	}

	got, err := r.LatestRegistration(ctx, foreign)
	if err != nil {
		t.Fatalf("LatestRegistration: %v", err)
	}
	if got.Hash != reg.Hash {
		t.Fatalf("hash = %s, want %s", got.Hash, reg.Hash)
	}

	empty, err := tr.CreateTopic(ctx, "empty")
	if err != nil {
		t.Fatalf("CreateTopic: %v", err)
	}
	if _, err := r.LatestRegistration(ctx, empty); err == nil {
		t.Fatal("expected error for empty topic")
	}
}

func TestListFilters(t *testing.T) {
	ctx := context.Background()
	tr := transport.NewMemory()
	r, _, _ := newTestRegistry(t, tr)

	for _, name := range []string{"a", "b"} {
		if _, err := r.RegisterModule(ctx, []byte("wasm-"+name), &protocol.ModuleInfo{Name: name, Version: "1"}); err != nil {
			t.Fatalf("RegisterModule %s: %v", name, err)
		}
	}
	all, err := r.List(ctx, registry.Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("List = %d, want 2", len(all))
	}
}
