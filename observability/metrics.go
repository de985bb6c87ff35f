package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/kestrel-ev/evbus/event"
	"github.com/kestrel-ev/evbus/id"
)

// meterName is the instrumentation scope name for observability's
// shard-level metrics, distinct from middleware's event-type-level
// instruments.
const meterName = "github.com/kestrel-ev/evbus/observability"

// MetricsExtension is a hook.Extension recording shard- and
// handler-identified lifecycle metrics the middleware chain can't see
// on its own (bind sizes, filter rejections, cancellations, dispatch
// errors), plus a gauge of asyncbus worker invocations currently in
// flight.
//
// Register it with a hook.Registry to receive the hook callbacks.
// Attach it to an asyncbus.Bus via asyncbus.WithWorkerObserver(ext) to
// drive the in-flight gauge — MetricsExtension satisfies
// asyncbus.WorkerObserver structurally, so this package never imports
// asyncbus.
type MetricsExtension struct {
	binds          metric.Int64Counter
	duration       metric.Float64Histogram
	invocations    metric.Int64Counter
	filterRejects  metric.Int64Counter
	cancellations  metric.Int64Counter
	dispatchErrors metric.Int64Counter
	activeWorkers  metric.Int64UpDownCounter
}

// NewMetricsExtension builds a MetricsExtension from the global OTel
// MeterProvider.
func NewMetricsExtension() *MetricsExtension {
	return NewMetricsExtensionWithMeter(otel.Meter(meterName))
}

// NewMetricsExtensionWithMeter builds a MetricsExtension using meter,
// for injecting a specific MeterProvider (tests, a non-global SDK).
func NewMetricsExtensionWithMeter(meter metric.Meter) *MetricsExtension {
	binds, _ := meter.Int64Counter(
		"evbus.shard.binds",
		metric.WithDescription("Total number of successful shard Bind calls"),
		metric.WithUnit("{bind}"),
	)
	duration, _ := meter.Float64Histogram(
		"evbus.handler.hook_duration",
		metric.WithDescription("Handler invocation duration in seconds, as observed by the hook registry"),
		metric.WithUnit("s"),
	)
	invocations, _ := meter.Int64Counter(
		"evbus.handler.hook_invocations",
		metric.WithDescription("Total handler invocations observed by the hook registry"),
		metric.WithUnit("{invocation}"),
	)
	filterRejects, _ := meter.Int64Counter(
		"evbus.handler.filter_rejections",
		metric.WithDescription("Total number of handler invocations skipped by a filter"),
		metric.WithUnit("{rejection}"),
	)
	cancellations, _ := meter.Int64Counter(
		"evbus.event.cancellations",
		metric.WithDescription("Total number of events cancelled mid-dispatch"),
		metric.WithUnit("{cancellation}"),
	)
	dispatchErrors, _ := meter.Int64Counter(
		"evbus.handler.errors",
		metric.WithDescription("Total number of handler or filter invocations that returned an error"),
		metric.WithUnit("{error}"),
	)
	activeWorkers, _ := meter.Int64UpDownCounter(
		"evbus.handlers.active",
		metric.WithDescription("Number of asyncbus worker invocations currently in flight"),
		metric.WithUnit("{invocation}"),
	)

	return &MetricsExtension{
		binds:          binds,
		duration:       duration,
		invocations:    invocations,
		filterRejects:  filterRejects,
		cancellations:  cancellations,
		dispatchErrors: dispatchErrors,
		activeWorkers:  activeWorkers,
	}
}

// Name implements hook.Extension.
func (*MetricsExtension) Name() string { return "observability.metrics" }

// OnBind implements hook.Bind.
func (m *MetricsExtension) OnBind(shard id.ShardID, handlerCount int) {
	m.binds.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("shard", shard.String()),
		attribute.Int("handler_count", handlerCount),
	))
}

// OnDispatch implements hook.Dispatch.
func (m *MetricsExtension) OnDispatch(shard id.ShardID, _ event.Event, h id.HandlerID, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("shard", shard.String()),
		attribute.String("handler", h.String()),
	)

	m.duration.Record(context.Background(), elapsed.Seconds(), attrs)
	m.invocations.Add(context.Background(), 1, attrs)
}

// OnFilterReject implements hook.FilterReject.
func (m *MetricsExtension) OnFilterReject(shard id.ShardID, _ event.Event, h id.HandlerID) {
	m.filterRejects.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("shard", shard.String()),
		attribute.String("handler", h.String()),
	))
}

// OnCancelled implements hook.Cancelled.
func (m *MetricsExtension) OnCancelled(shard id.ShardID, _ event.Event, byHandler id.HandlerID) {
	m.cancellations.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("shard", shard.String()),
		attribute.String("handler", byHandler.String()),
	))
}

// OnDispatchError implements hook.DispatchError.
func (m *MetricsExtension) OnDispatchError(shard id.ShardID, _ event.Event, h id.HandlerID, _ error) {
	m.dispatchErrors.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("shard", shard.String()),
		attribute.String("handler", h.String()),
	))
}

// DispatchStarted implements asyncbus.WorkerObserver: called by a
// worker immediately before it runs an event through its shard.
func (m *MetricsExtension) DispatchStarted() {
	m.activeWorkers.Add(context.Background(), 1)
}

// DispatchFinished implements asyncbus.WorkerObserver: called after
// the dispatch (and any feedback callback) completes.
func (m *MetricsExtension) DispatchFinished() {
	m.activeWorkers.Add(context.Background(), -1)
}
