// Package observability provides an OpenTelemetry-backed hook.Extension
// that records lifecycle metrics evbus's own middleware package can't
// see: bind sizes, filter rejections, cancellations, dispatch errors,
// and the number of asyncbus worker invocations currently in flight.
// It follows the same instrument-naming convention as
// middleware.MetricsWithMeter (evbus.handler.* instruments), extended
// with shard- and handler-identified counters the middleware chain has
// no access to.
package observability
