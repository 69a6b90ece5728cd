package axtree

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

// fakeDriver serves canned frame trees. Capture returns deep copies so each
// capture owns its nodes, like a real driver building trees from CDP.
type fakeDriver struct {
	frames  []Frame
	trees   map[FrameID]*Node
	hidden  map[FrameID]bool
	failCap map[FrameID]error

	// gone lists backend ids that no longer resolve to a live node.
	gone map[int64]bool

	resolved []int64
}

func (d *fakeDriver) ListFrames(_ context.Context) ([]Frame, error) {
	return append([]Frame(nil), d.frames...), nil
}

func (d *fakeDriver) FrameVisible(_ context.Context, f Frame) (bool, error) {
	return !d.hidden[f.ID], nil
}

func (d *fakeDriver) CaptureAccessibility(_ context.Context, id FrameID) (*Node, error) {
	if err := d.failCap[id]; err != nil {
		return nil, err
	}
	t, ok := d.trees[id]
	if !ok {
		return nil, fmt.Errorf("%w: frame %s", ErrDriverUnavailable, id)
	}
	return cloneNode(t), nil
}

func (d *fakeDriver) ResolveNode(_ context.Context, _ FrameID, backend int64) (LiveNode, error) {
	if d.gone[backend] {
		return nil, fmt.Errorf("node %d detached", backend)
	}
	d.resolved = append(d.resolved, backend)
	return fakeLive{backend: backend}, nil
}

type fakeLive struct{ backend int64 }

func (fakeLive) Click(context.Context) error                  { return nil }
func (fakeLive) Input(context.Context, string) error          { return nil }
func (fakeLive) SelectOptions(context.Context, []string) error { return nil }
func (fakeLive) Hover(context.Context) error                  { return nil }
func (fakeLive) Press(context.Context, string) error          { return nil }

func cloneNode(n *Node) *Node {
	c := *n
	c.Children = make([]*Node, len(n.Children))
	for i, ch := range n.Children {
		c.Children[i] = cloneNode(ch)
	}
	return &c
}

func node(role, name string, backend int64, children ...*Node) *Node {
	return &Node{Role: role, Name: name, Backend: backend, Children: children}
}

func text(content string) *Node {
	return &Node{Role: "text", Name: content}
}

// singlePage is a one-frame page with a heading and a button.
func singlePage() *fakeDriver {
	return &fakeDriver{
		frames: []Frame{{ID: "top"}},
		trees: map[FrameID]*Node{
			"top": node("document", "Demo", 1,
				node("heading", "Hello", 2),
				node("button", "Go", 3),
				text("plain run"),
			),
		},
	}
}

// framedPage is the layered scenario:
//
//	<h1>Hello</h1>
//	<iframe> <button>World</button> <main><iframe><p>Nested</p></iframe></main> </iframe>
//	<iframe style="display:none">...</iframe>
func framedPage() *fakeDriver {
	return &fakeDriver{
		frames: []Frame{
			{ID: "top"},
			{ID: "frameA", ParentID: "top", OwnerBackend: 20},
			{ID: "frameB", ParentID: "frameA", OwnerBackend: 120},
			{ID: "frameHidden", ParentID: "top", OwnerBackend: 30},
		},
		hidden: map[FrameID]bool{"frameHidden": true},
		trees: map[FrameID]*Node{
			"top": node("document", "Outer", 10,
				node("heading", "Hello", 11),
				node("iframe", "", 20),
				node("iframe", "", 30),
			),
			"frameA": node("document", "", 100,
				node("button", "World", 101),
				node("main", "", 110,
					node("iframe", "", 120),
				),
			),
			"frameB": node("document", "", 200,
				node("paragraph", "", 201, text("Nested")),
			),
			"frameHidden": node("document", "", 300,
				node("button", "Should never appear", 301),
			),
		},
	}
}

func capture(t *testing.T, d *fakeDriver, store *Store) *Snapshot {
	t.Helper()
	pc, err := NewCapturer(d, nil).Capture(context.Background())
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	return store.Commit(pc)
}

func TestCapture_SingleFrameTokensHaveNoFramePrefix(t *testing.T) {
	snap := capture(t, singlePage(), NewStore())

	if snap.Generation != 1 {
		t.Fatalf("generation: got %d, want 1", snap.Generation)
	}
	var walk func(n *Node)
	walk = func(n *Node) {
		if strings.HasPrefix(n.Ref, "f") {
			t.Errorf("token %q has a frame prefix on a frameless page", n.Ref)
		}
		r, err := parseRef(n.Ref)
		if err != nil {
			t.Fatalf("parse %q: %v", n.Ref, err)
		}
		if r.frame != 0 || r.gen != 1 {
			t.Errorf("token %q: got frame=%d gen=%d, want frame=0 gen=1", n.Ref, r.frame, r.gen)
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(snap.Root)
}

func TestAllocate_ElementOrdinalsAreDensePreOrder(t *testing.T) {
	snap := capture(t, singlePage(), NewStore())

	want := []string{"s1e1", "s1e2", "s1e3", "s1e4"}
	var got []string
	var walk func(n *Node)
	walk = func(n *Node) {
		got = append(got, n.Ref)
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(snap.Root)

	if len(got) != len(want) {
		t.Fatalf("node count: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ordinal %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestAllocate_StitchedFrames(t *testing.T) {
	snap := capture(t, framedPage(), NewStore())

	txt := snap.Text()

	if !strings.Contains(txt, `- heading "Hello" [ref=s1e2]`) {
		t.Errorf("heading missing or misnumbered:\n%s", txt)
	}
	// First iframe's content is numbered under frame ordinal 1.
	if !strings.Contains(txt, `- button "World" [ref=f1s1e1]`) {
		t.Errorf("nested button missing or misnumbered:\n%s", txt)
	}
	// Doubly nested frame draws the next ordinal from the shared counter and
	// its token encodes only its own frame's ordinal.
	if !strings.Contains(txt, "[ref=f2s1e1]") {
		t.Errorf("doubly nested frame did not get ordinal 2:\n%s", txt)
	}
	if !strings.Contains(txt, "- text: Nested") {
		t.Errorf("doubly nested text run missing:\n%s", txt)
	}
	// The hidden iframe contributes nothing and consumes no ordinal.
	if strings.Contains(txt, "Should never appear") {
		t.Errorf("hidden frame content leaked into snapshot:\n%s", txt)
	}
	if strings.Contains(txt, "f3s") {
		t.Errorf("hidden frame consumed a frame ordinal:\n%s", txt)
	}
}

func TestAllocate_HiddenFrameDescendantsExcluded(t *testing.T) {
	d := framedPage()
	// Hide the outer iframe: its nested frame must vanish with it even
	// though the nested frame itself is visible.
	d.hidden["frameA"] = true

	snap := capture(t, d, NewStore())
	txt := snap.Text()

	if strings.Contains(txt, "World") || strings.Contains(txt, "Nested") {
		t.Fatalf("descendants of hidden frame leaked:\n%s", txt)
	}
	if strings.Contains(txt, "f1s") {
		t.Fatalf("hidden subtree consumed frame ordinals:\n%s", txt)
	}
}

func TestCommit_GenerationIncrementsByOne(t *testing.T) {
	d := singlePage()
	store := NewStore()

	s1 := capture(t, d, store)
	s2 := capture(t, d, store)

	if s2.Generation != s1.Generation+1 {
		t.Fatalf("generation: got %d after %d, want +1", s2.Generation, s1.Generation)
	}
	if store.Generation() != 2 {
		t.Fatalf("store generation: got %d, want 2", store.Generation())
	}
}

func TestResolve_FreshTokenSucceedsAndMatchesNode(t *testing.T) {
	d := singlePage()
	store := NewStore()
	snap := capture(t, d, store)

	// Find the button's token.
	var ref string
	var walk func(n *Node)
	walk = func(n *Node) {
		if n.Role == "button" {
			ref = n.Ref
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(snap.Root)
	if ref == "" {
		t.Fatal("button not found in snapshot")
	}

	n, ok := snap.Lookup(ref)
	if !ok || n.Role != "button" || n.Name != "Go" {
		t.Fatalf("lookup %q: got %+v, want button Go", ref, n)
	}

	live, err := NewResolver(store, d).Resolve(context.Background(), ref)
	if err != nil {
		t.Fatalf("resolve fresh token: %v", err)
	}
	if live == nil {
		t.Fatal("resolve returned nil handle")
	}
	if len(d.resolved) != 1 || d.resolved[0] != 3 {
		t.Fatalf("resolved backends: got %v, want [3]", d.resolved)
	}
}

func TestResolve_StaleGeneration(t *testing.T) {
	d := singlePage()
	store := NewStore()
	capture(t, d, store)

	// Two more generations make any gen-1 token two snapshots old.
	capture(t, d, store)
	capture(t, d, store)

	_, err := NewResolver(store, d).Resolve(context.Background(), "s1e2")
	if !errors.Is(err, ErrStaleGeneration) {
		t.Fatalf("resolve stale token: got %v, want ErrStaleGeneration", err)
	}
	if len(d.resolved) != 0 {
		t.Fatalf("stale token must not reach the driver, resolved %v", d.resolved)
	}
}

func TestResolve_UnknownFrame(t *testing.T) {
	d := singlePage()
	store := NewStore()
	capture(t, d, store)

	_, err := NewResolver(store, d).Resolve(context.Background(), "f7s1e1")
	if !errors.Is(err, ErrUnknownFrame) {
		t.Fatalf("got %v, want ErrUnknownFrame", err)
	}
}

func TestResolve_DanglingElement(t *testing.T) {
	d := singlePage()
	store := NewStore()
	capture(t, d, store)
	r := NewResolver(store, d)

	// Ordinal that was never allocated this generation.
	_, err := r.Resolve(context.Background(), "s1e99")
	if !errors.Is(err, ErrDanglingElement) {
		t.Fatalf("unallocated ordinal: got %v, want ErrDanglingElement", err)
	}

	// Allocated ordinal whose node has left the live DOM.
	d.gone = map[int64]bool{3: true}
	_, err = r.Resolve(context.Background(), "s1e3")
	if !errors.Is(err, ErrDanglingElement) {
		t.Fatalf("detached node: got %v, want ErrDanglingElement", err)
	}
}

func TestResolve_EmptyStore(t *testing.T) {
	d := singlePage()
	_, err := NewResolver(NewStore(), d).Resolve(context.Background(), "s1e1")
	if !errors.Is(err, ErrEmptyStore) {
		t.Fatalf("got %v, want ErrEmptyStore", err)
	}
}

func TestCapture_FrameFailureIsAtomic(t *testing.T) {
	d := framedPage()
	d.failCap = map[FrameID]error{
		"frameB": fmt.Errorf("%w: navigated away", ErrDriverUnavailable),
	}
	store := NewStore()

	_, err := NewCapturer(d, nil).Capture(context.Background())
	if !errors.Is(err, ErrDriverUnavailable) {
		t.Fatalf("capture: got %v, want ErrDriverUnavailable", err)
	}
	if _, ok := store.Current(); ok {
		t.Fatal("failed capture must not leave a committed snapshot")
	}
}

func TestStore_DropInvalidatesWithoutResettingGeneration(t *testing.T) {
	d := singlePage()
	store := NewStore()
	capture(t, d, store)

	store.Drop()
	if _, ok := store.Current(); ok {
		t.Fatal("current after drop: want empty")
	}

	snap := capture(t, d, store)
	if snap.Generation != 2 {
		t.Fatalf("generation after drop+recapture: got %d, want 2", snap.Generation)
	}
}

func TestRender_SelectionFlags(t *testing.T) {
	d := &fakeDriver{
		frames: []Frame{{ID: "top"}},
		trees: map[FrameID]*Node{
			"top": node("document", "", 1,
				&Node{Role: "listbox", Name: "Pick", Backend: 2, Children: []*Node{
					{Role: "option", Name: "a", Backend: 3},
					{Role: "option", Name: "b", Backend: 4, Selected: true},
					{Role: "option", Name: "c", Backend: 5},
				}},
			),
		},
	}
	snap := capture(t, d, NewStore())
	txt := snap.Text()

	if !strings.Contains(txt, `- option "b" [selected] [ref=s1e4]`) {
		t.Errorf("selected option not flagged:\n%s", txt)
	}
	if strings.Count(txt, "[selected]") != 1 {
		t.Errorf("exactly one option should be selected:\n%s", txt)
	}

	// Re-capture after a second selection: exactly the two chosen options
	// carry the flag.
	d.trees["top"].Children[0].Children[0].Selected = true
	snap = capture(t, d, NewStore())
	if strings.Count(snap.Text(), "[selected]") != 2 {
		t.Errorf("multi-select: got %d flags, want 2:\n%s", strings.Count(snap.Text(), "[selected]"), snap.Text())
	}
}
