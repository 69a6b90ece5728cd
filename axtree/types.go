package axtree

import "context"

// FrameID identifies one frame within the live browser. Assigned by the
// browser driver; opaque to this package.
type FrameID string

// Frame describes one frame discovered on a page. The top-level frame has an
// empty ParentID and no owner element.
type Frame struct {
	ID       FrameID
	ParentID FrameID

	// OwnerBackend is the backend DOM node id of the element hosting this
	// frame in its parent (the <iframe> element). Zero for the top frame.
	OwnerBackend int64
}

// Node is one element or text run as seen by the accessibility layer.
// Produced fresh by every capture and owned by that capture; the allocator
// fills Ref and splices child-frame subtrees into Children.
type Node struct {
	// Role is the normalized accessibility role: "document", "heading",
	// "button", "iframe", ... Text runs use the pseudo-role "text" with the
	// content in Name.
	Role string

	// Name is the accessible name (label, text content, alt text).
	Name string

	// Value is the current value for inputs, sliders and the like.
	Value string

	Checked  bool
	Selected bool
	Expanded bool
	Disabled bool
	Focused  bool

	// Backend is the backend DOM node id used to resolve this node back to a
	// live element. Zero for nodes with no DOM backing.
	Backend int64

	// Ref is the reference token assigned by the allocator. Empty until the
	// node is part of a committed snapshot.
	Ref string

	Children []*Node
}

// PageCapture is the raw result of walking one page: every visible frame in
// document discovery order plus each frame's local accessibility tree. It is
// the allocator's input and carries no reference tokens yet.
type PageCapture struct {
	// Frames lists the captured frames, top-level first, parents before
	// children, siblings in document order. Hidden frames are absent.
	Frames []Frame

	// Trees maps each captured frame to the root of its local tree.
	Trees map[FrameID]*Node
}

// LiveNode is a driver-owned handle to a resolved element. It is valid for a
// single subsequent action; callers must re-resolve for every action.
type LiveNode interface {
	Click(ctx context.Context) error
	Input(ctx context.Context, text string) error
	SelectOptions(ctx context.Context, values []string) error
	Hover(ctx context.Context) error
	Press(ctx context.Context, key string) error
}

// Driver is the browser-side contract this package consumes. Implementations
// wrap one live page; all methods may fail with ErrDriverUnavailable when the
// underlying frame detaches or navigates mid-call.
type Driver interface {
	// ListFrames returns the page's frame tree flattened in document order:
	// top-level frame first, every parent before its children.
	ListFrames(ctx context.Context) ([]Frame, error)

	// FrameVisible reports whether the frame's owner element has a rendered
	// box. Frames without one (display:none and the like) contribute nothing
	// to a snapshot. Never called for the top-level frame.
	FrameVisible(ctx context.Context, f Frame) (bool, error)

	// CaptureAccessibility walks one frame's accessibility tree.
	CaptureAccessibility(ctx context.Context, id FrameID) (*Node, error)

	// ResolveNode turns a captured backend node id into a live element
	// handle, or fails if the node has left the DOM.
	ResolveNode(ctx context.Context, frame FrameID, backend int64) (LiveNode, error)
}
