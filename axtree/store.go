package axtree

import "sync"

// Snapshot is one committed generation of a page's stitched tree. Immutable
// after commit; a new capture replaces the whole value, never mutates it.
type Snapshot struct {
	Generation uint64
	Root       *Node

	text   string
	refs   map[string]refTarget
	frames map[int]FrameID
}

// Text returns the cached rendered outline.
func (s *Snapshot) Text() string { return s.text }

// Lookup returns the captured node behind a token of this snapshot, for
// callers that want role/name without touching the live page.
func (s *Snapshot) Lookup(token string) (*Node, bool) {
	t, ok := s.refs[token]
	if !ok {
		return nil, false
	}
	return t.node, true
}

// Store holds the most recent snapshot for one page and its generation
// counter. One Store per tab; tabs never share allocator state.
//
// Commit is the serialization point required by the capture contract: readers
// always observe a complete (generation, tree, text) triple or none at all.
type Store struct {
	mu   sync.Mutex
	gen  uint64
	snap *Snapshot
}

// NewStore creates an empty Store. Generation starts at zero; the first
// commit produces generation 1.
func NewStore() *Store { return &Store{} }

// Commit allocates references for a completed capture under the next
// generation, renders the outline, and atomically replaces the stored
// snapshot.
func (s *Store) Commit(pc *PageCapture) *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gen++
	snap := allocate(pc, s.gen)
	snap.text = Render(snap.Root)
	s.snap = snap
	return snap
}

// Current returns the committed snapshot, or false if nothing has been
// captured yet (or the store was dropped). Not an error: it just means no
// resolvable references exist.
func (s *Store) Current() (*Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap, s.snap != nil
}

// Generation returns the current generation counter (0 before any commit).
func (s *Store) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// Drop discards the stored snapshot, e.g. when the tab closes. The
// generation counter keeps increasing across a later re-capture so old
// tokens stay invalid.
func (s *Store) Drop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = nil
}
