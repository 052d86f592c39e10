package assembly

import (
	"context"
	"testing"

	"github.com/rzbill/hashlink/internal/protocol"
	"github.com/rzbill/hashlink/internal/transport"
	logpkg "github.com/rzbill/hashlink/pkg/log"
)

func testLogger() logpkg.Logger {
	return logpkg.NewLogger(logpkg.WithOutput(logpkg.NullOutput{}))
}

func newTestAssembly(t *testing.T, tr transport.Transport) (*Registry, string) {
	t.Helper()
	topic, err := tr.CreateTopic(context.Background(), "assembly")
	if err != nil {
		t.Fatalf("CreateTopic: %v", err)
	}
	r, err := New(Options{Transport: tr, TopicID: topic, Logger: testLogger()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r, topic
}

func TestFoldBuildsComposition(t *testing.T) {
	ctx := context.Background()
	tr := transport.NewMemory()
	r, _ := newTestAssembly(t, tr)

	if _, err := r.Register(ctx, &protocol.AssemblyRegister{Name: "counter-app", Version: "1.0.0", Tags: []string{"demo"}}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := r.AddAction(ctx, &protocol.AssemblyAddAction{Reference: "t.5", Alias: "counter"}); err != nil {
		t.Fatalf("AddAction: %v", err)
	}
	if _, err := r.AddBlock(ctx, &protocol.AssemblyAddBlock{
		Reference:      "t.6",
		ActionBindings: map[string]string{"increment": "counter"},
	}); err != nil {
		t.Fatalf("AddBlock: %v", err)
	}

	st, err := r.State(ctx)
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if !st.Registered || st.Name != "counter-app" || st.Version != "1.0.0" {
		t.Fatalf("state = %+v", st)
	}
	if len(st.Actions) != 1 || st.Actions[0].Alias != "counter" {
		t.Fatalf("actions = %+v", st.Actions)
	}
	if len(st.Blocks) != 1 || st.Blocks[0].ActionBindings["increment"] != "counter" {
		t.Fatalf("blocks = %+v", st.Blocks)
	}
	if st.UpdatedAt.Before(st.CreatedAt) {
		t.Fatalf("updated %v before created %v", st.UpdatedAt, st.CreatedAt)
	}
}

func TestOpsBeforeRegisterAreDropped(t *testing.T) {
	// order matters: an add-action before the register belongs to no
	// assembly and must not leak into the state folded afterwards
	ctx := context.Background()
	tr := transport.NewMemory()
	r, topic := newTestAssembly(t, tr)

	for _, op := range []protocol.Operation{
		&protocol.AssemblyAddAction{Reference: "t.5", Alias: "early"},
		&protocol.AssemblyRegister{Name: "app", Version: "1"},
		&protocol.AssemblyAddAction{Reference: "t.6", Alias: "late"},
	} {
		raw, err := protocol.Encode(op)
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		if _, err := tr.Append(ctx, topic, raw); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	st, err := r.State(ctx)
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if len(st.Actions) != 1 || st.Actions[0].Alias != "late" {
		t.Fatalf("actions = %+v, want only the post-register one", st.Actions)
	}
}

func TestReRegisterResetsState(t *testing.T) {
	ctx := context.Background()
	tr := transport.NewMemory()
	r, _ := newTestAssembly(t, tr)

	if _, err := r.Register(ctx, &protocol.AssemblyRegister{Name: "v1", Version: "1"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := r.AddAction(ctx, &protocol.AssemblyAddAction{Reference: "t.5", Alias: "old"}); err != nil {
		t.Fatalf("AddAction: %v", err)
	}
	if _, err := r.Register(ctx, &protocol.AssemblyRegister{Name: "v2", Version: "2"}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	st, err := r.State(ctx)
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if st.Name != "v2" || st.Version != "2" {
		t.Fatalf("state = %+v, want reset to v2", st)
	}
	if len(st.Actions) != 0 {
		t.Fatalf("actions survived re-register: %+v", st.Actions)
	}
}

func TestUpdateMergesMetadata(t *testing.T) {
	ctx := context.Background()
	tr := transport.NewMemory()
	r, _ := newTestAssembly(t, tr)

	if _, err := r.Register(ctx, &protocol.AssemblyRegister{Name: "app", Version: "1", Description: "old", Tags: []string{"a"}}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	desc := "new description"
	if _, err := r.Update(ctx, &protocol.AssemblyUpdate{Description: &desc}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	st, err := r.State(ctx)
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if st.Description != desc {
		t.Fatalf("description = %q", st.Description)
	}
	if len(st.Tags) != 1 || st.Tags[0] != "a" {
		t.Fatalf("tags should be untouched, got %v", st.Tags)
	}

	if _, err := r.Update(ctx, &protocol.AssemblyUpdate{Tags: []string{"b", "c"}}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	st, err = r.State(ctx)
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if st.Description != desc || len(st.Tags) != 2 {
		t.Fatalf("state = %+v", st)
	}
}

func TestAddActionKeepsDuplicateAliases(t *testing.T) {
	ctx := context.Background()
	tr := transport.NewMemory()
	r, _ := newTestAssembly(t, tr)

	if _, err := r.Register(ctx, &protocol.AssemblyRegister{Name: "app", Version: "1"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := r.AddAction(ctx, &protocol.AssemblyAddAction{Reference: "t.5", Alias: "counter"}); err != nil {
		t.Fatalf("AddAction: %v", err)
	}
	if _, err := r.AddAction(ctx, &protocol.AssemblyAddAction{Reference: "t.9", Alias: "counter"}); err != nil {
		t.Fatalf("AddAction: %v", err)
	}

	st, err := r.State(ctx)
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	// the fold keeps both entries in log order; duplicate aliases are a
	// composition-validation concern
	if len(st.Actions) != 2 {
		t.Fatalf("actions = %+v, want both entries kept", st.Actions)
	}
	if st.Actions[0].Reference != "t.5" || st.Actions[1].Reference != "t.9" {
		t.Fatalf("actions out of log order: %+v", st.Actions)
	}
}

func TestReplayConvergence(t *testing.T) {
	ctx := context.Background()
	tr := transport.NewMemory()
	r, _ := newTestAssembly(t, tr)

	if _, err := r.Register(ctx, &protocol.AssemblyRegister{Name: "app", Version: "1"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := r.AddAction(ctx, &protocol.AssemblyAddAction{Reference: "t.5", Alias: "x"}); err != nil {
		t.Fatalf("AddAction: %v", err)
	}
	if _, err := r.AddBlock(ctx, &protocol.AssemblyAddBlock{Reference: "t.6", ChildAliases: []string{"t.7"}}); err != nil {
		t.Fatalf("AddBlock: %v", err)
	}

	before, err := r.State(ctx)
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	r.ClearCache()
	after, err := r.State(ctx)
	if err != nil {
		t.Fatalf("State after replay: %v", err)
	}

	if after.Name != before.Name || len(after.Actions) != len(before.Actions) || len(after.Blocks) != len(before.Blocks) {
		t.Fatalf("replay diverged: %+v vs %+v", after, before)
	}
	if !after.CreatedAt.Equal(before.CreatedAt) || !after.UpdatedAt.Equal(before.UpdatedAt) {
		t.Fatalf("timestamps diverged: %+v vs %+v", after, before)
	}
}

func TestReplayStateForeignTopic(t *testing.T) {
	ctx := context.Background()
	tr := transport.NewMemory()
	owner, topic := newTestAssembly(t, tr)

	if _, err := owner.Register(ctx, &protocol.AssemblyRegister{Name: "theirs", Version: "1"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := owner.AddAction(ctx, &protocol.AssemblyAddAction{Reference: "t.5", Alias: "x"}); err != nil {
		t.Fatalf("AddAction: %v", err)
	}

	st, err := ReplayState(ctx, tr, topic, testLogger())
	if err != nil {
		t.Fatalf("ReplayState: %v", err)
	}
	if st.Name != "theirs" || len(st.Actions) != 1 {
		t.Fatalf("state = %+v", st)
	}
}

func TestSnapshotIsDetached(t *testing.T) {
	ctx := context.Background()
	tr := transport.NewMemory()
	r, _ := newTestAssembly(t, tr)

	if _, err := r.Register(ctx, &protocol.AssemblyRegister{Name: "app", Version: "1", Tags: []string{"a"}}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := r.AddAction(ctx, &protocol.AssemblyAddAction{Reference: "t.5", Alias: "x", Config: map[string]any{"limit": float64(3)}}); err != nil {
		t.Fatalf("AddAction: %v", err)
	}
	if _, err := r.AddBlock(ctx, &protocol.AssemblyAddBlock{
		Reference:          "t.6",
		ActionBindings:     map[string]string{"increment": "x"},
		AttributeOverrides: map[string]any{"label": "Count"},
		ChildAliases:       []string{"t.7"},
	}); err != nil {
		t.Fatalf("AddBlock: %v", err)
	}

	st := r.CachedState()
	st.Tags[0] = "mutated"
	st.Name = "mutated"
	st.Actions[0].Config["limit"] = float64(99)
	st.Blocks[0].ActionBindings["increment"] = "mutated"
	st.Blocks[0].AttributeOverrides["label"] = "mutated"
	st.Blocks[0].ChildAliases[0] = "mutated"

	again := r.CachedState()
	if again.Tags[0] != "a" || again.Name != "app" {
		t.Fatalf("snapshot mutation leaked into state: %+v", again)
	}
	if again.Actions[0].Config["limit"] != float64(3) {
		t.Fatalf("action config mutation leaked: %+v", again.Actions[0].Config)
	}
	if again.Blocks[0].ActionBindings["increment"] != "x" {
		t.Fatalf("binding mutation leaked: %+v", again.Blocks[0].ActionBindings)
	}
	if again.Blocks[0].AttributeOverrides["label"] != "Count" {
		t.Fatalf("attribute mutation leaked: %+v", again.Blocks[0].AttributeOverrides)
	}
	if again.Blocks[0].ChildAliases[0] != "t.7" {
		t.Fatalf("child alias mutation leaked: %+v", again.Blocks[0].ChildAliases)
	}
}
