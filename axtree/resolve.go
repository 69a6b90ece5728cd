package axtree

import (
	"context"
	"fmt"
)

// Resolver turns a reference token from a previous snapshot into a live
// element handle, or a typed failure when the token is malformed, stale, or
// dangling. Every resolution is a fresh lookup against the committed
// snapshot; live handles are never cached across calls.
type Resolver struct {
	store *Store
	drv   Driver
}

// NewResolver binds a page's Store and Driver.
func NewResolver(store *Store, drv Driver) *Resolver {
	return &Resolver{store: store, drv: drv}
}

// Resolve parses token, validates it against the current generation, and
// returns a handle usable for exactly one action.
//
// Failure modes, in check order:
//   - ErrMalformedToken: token does not parse;
//   - ErrEmptyStore: no snapshot has ever been committed;
//   - ErrStaleGeneration: token minted before the current snapshot;
//   - ErrUnknownFrame: frame ordinal absent from this generation;
//   - ErrDanglingElement: element left the DOM since capture.
func (r *Resolver) Resolve(ctx context.Context, token string) (LiveNode, error) {
	parsed, err := parseRef(token)
	if err != nil {
		return nil, err
	}

	snap, ok := r.store.Current()
	if !ok {
		return nil, fmt.Errorf("%w (ref %q)", ErrEmptyStore, token)
	}
	if parsed.gen != snap.Generation {
		return nil, fmt.Errorf("%w: ref %q is from generation %d, current is %d",
			ErrStaleGeneration, token, parsed.gen, snap.Generation)
	}

	frameID, ok := snap.frames[parsed.frame]
	if !ok {
		return nil, fmt.Errorf("%w: ref %q names frame %d", ErrUnknownFrame, token, parsed.frame)
	}

	target, ok := snap.refs[token]
	if !ok || target.backend == 0 {
		return nil, fmt.Errorf("%w: ref %q", ErrDanglingElement, token)
	}

	live, err := r.drv.ResolveNode(ctx, frameID, target.backend)
	if err != nil {
		return nil, fmt.Errorf("%w: ref %q: %v", ErrDanglingElement, token, err)
	}
	return live, nil
}
