// Package hook defines the lifecycle observer system for evbus.
// Observers are notified of bind/dispatch/cancellation/error/shutdown
// events and can react to them — logging, metrics, tracing, and so on.
//
// Each lifecycle event is a separate interface so an observer opts in
// only to the events it cares about, the same fine-grained shape the
// reference stack's extension system uses.
package hook

import (
	"context"
	"time"

	"github.com/kestrel-ev/evbus/event"
	"github.com/kestrel-ev/evbus/id"
)

// Extension is the base interface all hook observers implement.
type Extension interface {
	// Name returns a unique human-readable name for the observer.
	Name() string
}

// Bind is called after a dispatcher shard completes a successful Bind.
type Bind interface {
	OnBind(shard id.ShardID, handlerCount int)
}

// Dispatch is called after a handler is successfully invoked.
type Dispatch interface {
	OnDispatch(shard id.ShardID, e event.Event, h id.HandlerID, elapsed time.Duration)
}

// FilterReject is called when a matched handler's filter rejects an event.
type FilterReject interface {
	OnFilterReject(shard id.ShardID, e event.Event, h id.HandlerID)
}

// Cancelled is called when a cancellable event is cancelled mid-dispatch.
type Cancelled interface {
	OnCancelled(shard id.ShardID, e event.Event, byHandler id.HandlerID)
}

// DispatchError is called when a handler or filter invocation fails.
type DispatchError interface {
	OnDispatchError(shard id.ShardID, e event.Event, h id.HandlerID, err error)
}

// Shutdown is called by Registry.EmitShutdown. No package in evbus
// calls EmitShutdown itself; asyncbus.Bus.StopWorkers does not notify
// it.
type Shutdown interface {
	OnShutdown(ctx context.Context)
}
