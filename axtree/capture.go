package axtree

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Capturer walks a page's frame set and produces a PageCapture. Per-frame
// accessibility walks fan out concurrently (they are independent, read-only
// driver calls) and all join before the result is returned, so ordinal
// assignment downstream sees the complete frame set.
type Capturer struct {
	drv Driver
	log *slog.Logger
}

// NewCapturer creates a Capturer over one page's driver.
func NewCapturer(drv Driver, log *slog.Logger) *Capturer {
	if log == nil {
		log = slog.Default()
	}
	return &Capturer{drv: drv, log: log}
}

// Capture discovers all frames, drops hidden ones (and everything inside
// them), and walks the remaining frames' accessibility trees. It fails
// atomically: if any frame walk fails the whole capture fails, so a partial
// tree is never committed.
func (c *Capturer) Capture(ctx context.Context) (*PageCapture, error) {
	frames, err := c.drv.ListFrames(ctx)
	if err != nil {
		return nil, fmt.Errorf("list frames: %w", err)
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("list frames: %w: no frames on page", ErrDriverUnavailable)
	}

	kept, err := c.visibleFrames(ctx, frames)
	if err != nil {
		return nil, err
	}

	pc := &PageCapture{
		Frames: kept,
		Trees:  make(map[FrameID]*Node, len(kept)),
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, f := range kept {
		g.Go(func() error {
			tree, err := c.drv.CaptureAccessibility(gctx, f.ID)
			if err != nil {
				return fmt.Errorf("capture frame %s: %w", f.ID, err)
			}
			mu.Lock()
			pc.Trees[f.ID] = tree
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	c.log.Debug("axtree: captured page", "frames", len(kept), "discovered", len(frames))
	return pc, nil
}

// visibleFrames filters the frame list down to the top-level frame plus every
// nested frame that is visible and whose ancestors are all visible. Input
// order (document order) is preserved.
func (c *Capturer) visibleFrames(ctx context.Context, frames []Frame) ([]Frame, error) {
	excluded := make(map[FrameID]bool)
	kept := frames[:0:0]

	for i, f := range frames {
		if i == 0 {
			kept = append(kept, f)
			continue
		}
		if excluded[f.ParentID] {
			excluded[f.ID] = true
			continue
		}
		visible, err := c.drv.FrameVisible(ctx, f)
		if err != nil {
			return nil, fmt.Errorf("frame visibility %s: %w", f.ID, err)
		}
		if !visible {
			excluded[f.ID] = true
			continue
		}
		kept = append(kept, f)
	}
	return kept, nil
}
