package middleware

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/kestrel-ev/evbus/event"
	"github.com/kestrel-ev/evbus/handler"
)

// meterName is the instrumentation scope name for evbus metrics.
const meterName = "github.com/kestrel-ev/evbus"

// Metrics returns middleware that records per-handler invocation
// metrics using the global OTel MeterProvider. If no MeterProvider is
// configured, noop instruments are used and this middleware becomes a
// pass-through.
//
// Instruments:
//   - evbus.handler.duration (Float64Histogram): invocation time in
//     seconds, with attributes: event_type, status ("ok" or "error")
//   - evbus.handler.invocations (Int64Counter): total invocations,
//     with the same attributes
func Metrics() Middleware {
	meter := otel.Meter(meterName)

	return MetricsWithMeter(meter)
}

// MetricsWithMeter returns metrics middleware using the provided
// meter. This variant allows injecting a specific MeterProvider for
// testing.
func MetricsWithMeter(meter metric.Meter) Middleware {
	duration, dErr := meter.Float64Histogram(
		"evbus.handler.duration",
		metric.WithDescription("Duration of handler invocation in seconds"),
		metric.WithUnit("s"),
	)
	_ = dErr // noop fallback guaranteed by the OTel API contract

	invocations, iErr := meter.Int64Counter(
		"evbus.handler.invocations",
		metric.WithDescription("Total number of handler invocations"),
		metric.WithUnit("{invocation}"),
	)
	_ = iErr // noop fallback guaranteed by the OTel API contract

	return func(ctx context.Context, d *handler.Descriptor, e event.Event, next Handler) error {
		start := time.Now()
		err := next()
		elapsed := time.Since(start).Seconds()

		status := "ok"
		if err != nil {
			status = "error"
		}

		attrs := metric.WithAttributes(
			attribute.String("event_type", d.EventTypeName()),
			attribute.String("status", status),
		)

		duration.Record(ctx, elapsed, attrs)
		invocations.Add(ctx, 1, attrs)

		return err
	}
}
