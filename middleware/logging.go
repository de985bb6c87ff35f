package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/kestrel-ev/evbus/event"
	"github.com/kestrel-ev/evbus/handler"
)

// Logging returns middleware that logs handler invocation start and
// completion at debug level. Dispatch is a hot path: a line per
// handler invocation at info level would be far too noisy for a
// synchronous bus that might dispatch thousands of events per second,
// so this is dialed down to debug and left out of the default
// middleware chain.
func Logging(logger *slog.Logger) Middleware {
	return func(_ context.Context, d *handler.Descriptor, e event.Event, next Handler) error {
		logger.Debug("handler invoking",
			slog.String("handler_id", d.ID().String()),
			slog.String("event_type", d.EventTypeName()),
		)

		start := time.Now()
		err := next()
		elapsed := time.Since(start)

		if err != nil {
			logger.Debug("handler failed",
				slog.String("handler_id", d.ID().String()),
				slog.String("event_type", d.EventTypeName()),
				slog.Duration("elapsed", elapsed),
				slog.String("error", err.Error()),
			)
		} else {
			logger.Debug("handler invoked",
				slog.String("handler_id", d.ID().String()),
				slog.String("event_type", d.EventTypeName()),
				slog.Duration("elapsed", elapsed),
			)
		}

		return err
	}
}
