// Package axtree captures referenced accessibility snapshots of a browser
// page and resolves references back to live elements.
//
// A snapshot stitches the accessibility trees of the top-level frame and all
// visible nested frames into one tree, assigns every node a short reference
// token (e.g. "s3e12", "f1s3e4"), and renders the result as an indented text
// outline. Tokens embed the snapshot generation: any token minted before the
// most recent capture resolves to ErrStaleGeneration, never to a different
// element.
//
// The package talks to the browser only through the Driver interface, so the
// whole capture/allocate/resolve cycle is testable without Chrome.
package axtree

import "errors"

// Failure taxonomy for capture and resolution. Callers match with errors.Is
// and turn these into instructive user-facing text; none of them should
// terminate a session.
var (
	// ErrDriverUnavailable means a frame detached or navigated away while an
	// operation was in flight. Retryable once at the capture boundary.
	ErrDriverUnavailable = errors.New("axtree: driver unavailable")

	// ErrStaleGeneration means the reference predates the current snapshot.
	// The caller should re-snapshot and use fresh references.
	ErrStaleGeneration = errors.New("axtree: reference from a stale snapshot")

	// ErrUnknownFrame means the reference names a frame ordinal that does not
	// exist in the current generation (frame hidden, removed, or never there).
	ErrUnknownFrame = errors.New("axtree: unknown frame ordinal")

	// ErrDanglingElement means the frame resolved but the element is gone
	// from the live DOM.
	ErrDanglingElement = errors.New("axtree: element no longer attached")

	// ErrMalformedToken means the reference does not parse. Caller bug.
	ErrMalformedToken = errors.New("axtree: malformed reference token")

	// ErrEmptyStore means no snapshot has been committed for the tab yet.
	ErrEmptyStore = errors.New("axtree: no snapshot captured yet")
)
