// Package driver adapts a Rod page to the accessibility capture contract:
// frame discovery, per-frame AX tree walks, and backend node resolution.
package driver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"

	"github.com/tabctl/tabctl/axtree"
)

// Driver wraps one live Rod page. All CDP failures surface as
// axtree.ErrDriverUnavailable so callers can retry after a re-capture.
type Driver struct {
	page *rod.Page
	log  *slog.Logger
}

// New wraps a page. The logger may be nil.
func New(page *rod.Page, log *slog.Logger) *Driver {
	if log == nil {
		log = slog.Default()
	}
	return &Driver{page: page, log: log}
}

// Page exposes the underlying Rod page for operations outside the capture
// contract (navigation, content extraction).
func (d *Driver) Page() *rod.Page {
	return d.page
}

func unavailable(op string, err error) error {
	return fmt.Errorf("driver: %s: %s: %w", op, err, axtree.ErrDriverUnavailable)
}

// ListFrames flattens the page's frame tree in document order, resolving the
// owner <iframe> element for every child frame.
func (d *Driver) ListFrames(ctx context.Context) ([]axtree.Frame, error) {
	page := d.page.Context(ctx)

	res, err := proto.PageGetFrameTree{}.Call(page)
	if err != nil {
		return nil, unavailable("frame tree", err)
	}

	var frames []axtree.Frame
	var walk func(t *proto.PageFrameTree, parent axtree.FrameID) error
	walk = func(t *proto.PageFrameTree, parent axtree.FrameID) error {
		f := axtree.Frame{
			ID:       axtree.FrameID(t.Frame.ID),
			ParentID: parent,
		}
		if parent != "" {
			owner, err := proto.DOMGetFrameOwner{FrameID: t.Frame.ID}.Call(page)
			if err != nil {
				// Frame detached between the tree call and now. Skip it and
				// its children; the next capture will see the new layout.
				d.log.Debug("driver: frame owner lookup failed",
					"frame", t.Frame.ID, "error", err)
				return nil
			}
			f.OwnerBackend = int64(owner.BackendNodeID)
		}
		frames = append(frames, f)
		for _, child := range t.ChildFrames {
			if err := walk(child, f.ID); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(res.FrameTree, ""); err != nil {
		return nil, err
	}

	return frames, nil
}

// FrameVisible checks whether the frame's owner element has a rendered box.
// Elements hidden with display:none have no box model; CDP answers with an
// error, which counts as not visible rather than a failure.
func (d *Driver) FrameVisible(ctx context.Context, f axtree.Frame) (bool, error) {
	if f.ParentID == "" {
		return true, nil
	}

	page := d.page.Context(ctx)
	box, err := proto.DOMGetBoxModel{
		BackendNodeID: proto.DOMBackendNodeID(f.OwnerBackend),
	}.Call(page)
	if err != nil {
		return false, nil
	}
	if box.Model == nil || box.Model.Width <= 0 || box.Model.Height <= 0 {
		return false, nil
	}
	return true, nil
}

// CaptureAccessibility fetches one frame's full AX tree and rebuilds it from
// the flat CDP node list.
func (d *Driver) CaptureAccessibility(ctx context.Context, id axtree.FrameID) (*axtree.Node, error) {
	page := d.page.Context(ctx)

	res, err := proto.AccessibilityGetFullAXTree{
		FrameID: proto.PageFrameID(id),
	}.Call(page)
	if err != nil {
		return nil, unavailable("ax tree", err)
	}
	if len(res.Nodes) == 0 {
		return nil, unavailable("ax tree", fmt.Errorf("empty tree for frame %s", id))
	}

	root := buildTree(res.Nodes)
	if root == nil {
		return nil, unavailable("ax tree", fmt.Errorf("no root for frame %s", id))
	}
	return root, nil
}

// PressKey sends a key press to whatever currently has focus on the page.
func (d *Driver) PressKey(ctx context.Context, key string) error {
	page := d.page.Context(ctx)
	if k, ok := keyMap[key]; ok {
		if err := page.Keyboard.Press(k); err != nil {
			return fmt.Errorf("driver: press %s: %w", key, err)
		}
		return nil
	}
	if len(key) == 1 {
		if err := page.Keyboard.Type(input.Key(rune(key[0]))); err != nil {
			return fmt.Errorf("driver: type %s: %w", key, err)
		}
		return nil
	}
	return fmt.Errorf("driver: unknown key %q (use Enter, Tab, Escape, ArrowDown, ...)", key)
}

// VisibleText returns the page's rendered text, for wait-for polling.
func (d *Driver) VisibleText(ctx context.Context) (string, error) {
	res, err := d.page.Context(ctx).Eval(`() => document.body ? document.body.innerText : ""`)
	if err != nil {
		return "", unavailable("visible text", err)
	}
	return res.Value.Str(), nil
}

// ResolveNode maps a backend DOM node id back to a live element.
func (d *Driver) ResolveNode(ctx context.Context, frame axtree.FrameID, backend int64) (axtree.LiveNode, error) {
	page := d.page.Context(ctx)

	obj, err := proto.DOMResolveNode{
		BackendNodeID: proto.DOMBackendNodeID(backend),
	}.Call(page)
	if err != nil {
		return nil, fmt.Errorf("driver: resolve node %d: %w", backend, err)
	}
	if obj.Object == nil || obj.Object.ObjectID == "" {
		return nil, fmt.Errorf("driver: resolve node %d: no remote object", backend)
	}

	el, err := page.ElementFromObject(obj.Object)
	if err != nil {
		return nil, fmt.Errorf("driver: element from object: %w", err)
	}

	return &element{el: el}, nil
}
