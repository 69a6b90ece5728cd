package observability

import (
	"context"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tabctl/tabctl/dbopen"
	"github.com/tabctl/tabctl/idgen"
)

func TestCommandLog_RecordAndRecent(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema(Schema))
	log := NewCommandLog(db, WithIDGenerator(idgen.Prefixed("evt_", idgen.NanoID(8))))

	ctx := context.Background()
	log.Record(ctx, Invocation{Tool: "browser_navigate", TabID: "tab_a", Success: true, Duration: 120 * time.Millisecond})
	log.Record(ctx, Invocation{Tool: "browser_click", TabID: "tab_a", Ref: "s1e4", Generation: 1, Success: false, Error: "stale snapshot"})

	got, err := log.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("rows: got %d, want 2", len(got))
	}

	byTool := make(map[string]Invocation, len(got))
	for _, inv := range got {
		byTool[inv.Tool] = inv
	}
	click, ok := byTool["browser_click"]
	if !ok {
		t.Fatal("browser_click row missing")
	}
	if click.Ref != "s1e4" || click.Generation != 1 || click.Success {
		t.Errorf("click row: got %+v", click)
	}
	nav := byTool["browser_navigate"]
	if nav.Duration != 120*time.Millisecond {
		t.Errorf("duration: got %v, want 120ms", nav.Duration)
	}
}

func TestCommandLog_BrokenStoreDoesNotPropagate(t *testing.T) {
	db := dbopen.OpenMemory(t) // no schema: every insert fails
	log := NewCommandLog(db)

	// Must not panic or error out.
	log.Record(context.Background(), Invocation{Tool: "browser_snapshot", Success: true})
}
