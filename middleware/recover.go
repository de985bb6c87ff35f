package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/kestrel-ev/evbus/event"
	"github.com/kestrel-ev/evbus/handler"
)

// Recover returns middleware that recovers from panics raised by a
// handler or its filter. Panics are converted to errors and logged
// with a stack trace; the chain's caller sees a normal error return
// rather than a crashed goroutine.
func Recover(logger *slog.Logger) Middleware {
	return func(_ context.Context, d *handler.Descriptor, e event.Event, next Handler) (retErr error) {
		defer func() {
			if r := recover(); r != nil {
				stack := string(debug.Stack())
				logger.Error("handler panicked",
					slog.String("handler_id", d.ID().String()),
					slog.String("event_type", d.EventTypeName()),
					slog.Any("panic", r),
					slog.String("stack", stack),
				)
				retErr = fmt.Errorf("evbus: panic in handler %s: %v", d.ID(), r)
			}
		}()

		return next()
	}
}
