// Package kit holds the transport-agnostic plumbing shared by tabctl tools:
// the Endpoint abstraction, middleware chaining, context accessors, and MCP
// registration glue.
package kit

import "context"

// Endpoint is one tool operation: typed request in, typed response out.
type Endpoint func(ctx context.Context, req any) (any, error)

// Middleware wraps an Endpoint with cross-cutting behaviour (auditing,
// logging, sequencing).
type Middleware func(Endpoint) Endpoint

// Chain composes middlewares so the first argument is outermost.
func Chain(mws ...Middleware) Middleware {
	return func(next Endpoint) Endpoint {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}
