// Package middleware provides composable middleware for handler
// invocation. Middleware wraps a single matched-handler call and can
// modify execution (recover from panics, log, trace, record metrics).
package middleware

import (
	"context"

	"github.com/kestrel-ev/evbus/event"
	"github.com/kestrel-ev/evbus/handler"
)

// Handler is the terminal function that invokes the matched handler.
type Handler func() error

// Middleware wraps a Handler with cross-cutting logic. It receives the
// current context, the descriptor being invoked, the event being
// dispatched, and the next handler to call. Middleware MUST call next
// to continue the chain unless deliberately short-circuiting on error.
type Middleware func(ctx context.Context, d *handler.Descriptor, e event.Event, next Handler) error

// Chain composes multiple middleware into a single Middleware. They
// are applied right-to-left: the first middleware in the list is the
// outermost wrapper.
//
// Example: Chain(logging, recover) executes as:
//
//	logging → recover → handler
func Chain(mws ...Middleware) Middleware {
	return func(ctx context.Context, d *handler.Descriptor, e event.Event, next Handler) error {
		h := next
		for i := len(mws) - 1; i >= 0; i-- {
			mw := mws[i]
			prev := h
			h = func() error {
				return mw(ctx, d, e, prev)
			}
		}

		return h()
	}
}
