package axtree

// refTarget records where a reference token points: the owning frame and the
// backend DOM node id captured for the node.
type refTarget struct {
	frame   FrameID
	backend int64
	node    *Node
}

// allocate performs one depth-first pre-order traversal over the captured
// frame trees and produces the stitched, fully-referenced tree.
//
// Numbering discipline, per generation:
//   - the top-level frame is implicit frame 0 and carries no frame prefix;
//   - every nested frame gets the next unused frame ordinal (dense, starting
//     at 1) the first time the walk reaches its hosting element, so sibling
//     and deeply nested frames draw from one shared counter in discovery
//     order;
//   - element ordinals restart at 1 per frame and increment in traversal
//     order; every visited node gets one, the serializer decides which refs
//     to show.
//
// Traversal follows Children slices and the document-ordered frame list only,
// never map iteration order, so identical input yields identical ordinals.
func allocate(pc *PageCapture, gen uint64) *Snapshot {
	snap := &Snapshot{
		Generation: gen,
		refs:       make(map[string]refTarget),
		frames:     make(map[int]FrameID, len(pc.Frames)),
	}

	// Hosting element -> nested frame, for frames that were captured.
	hosted := make(map[int64]FrameID, len(pc.Frames))
	for _, f := range pc.Frames[1:] {
		if f.OwnerBackend != 0 && pc.Trees[f.ID] != nil {
			hosted[f.OwnerBackend] = f.ID
		}
	}

	top := pc.Frames[0]
	snap.frames[0] = top.ID

	nextFrameOrd := 1
	elemOrds := make(map[int]int)

	var walk func(n *Node, frameOrd int, frameID FrameID)
	walk = func(n *Node, frameOrd int, frameID FrameID) {
		elemOrds[frameOrd]++
		r := ref{frame: frameOrd, gen: gen, elem: elemOrds[frameOrd]}
		n.Ref = r.String()
		snap.refs[n.Ref] = refTarget{frame: frameID, backend: n.Backend, node: n}

		if child, ok := hosted[n.Backend]; ok && n.Backend != 0 {
			// Splice the nested frame's root-level nodes in as this
			// element's children, numbered under a fresh frame ordinal.
			ord := nextFrameOrd
			nextFrameOrd++
			snap.frames[ord] = child
			n.Children = pc.Trees[child].Children
			for _, c := range n.Children {
				walk(c, ord, child)
			}
			return
		}

		for _, c := range n.Children {
			walk(c, frameOrd, frameID)
		}
	}

	snap.Root = pc.Trees[top.ID]
	walk(snap.Root, 0, top.ID)
	return snap
}
