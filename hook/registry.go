package hook

import (
	"context"
	"time"

	"github.com/kestrel-ev/evbus/event"
	"github.com/kestrel-ev/evbus/id"
)

// Named entry types pair an observer implementation with the name
// captured at registration time, avoiding a type assertion back to
// Extension inside every Emit call.
type bindEntry struct {
	name string
	hook Bind
}

type dispatchEntry struct {
	name string
	hook Dispatch
}

type filterRejectEntry struct {
	name string
	hook FilterReject
}

type cancelledEntry struct {
	name string
	hook Cancelled
}

type dispatchErrorEntry struct {
	name string
	hook DispatchError
}

type shutdownEntry struct {
	name string
	hook Shutdown
}

// Registry holds registered observers and fans out lifecycle events to
// them. It type-caches observers at registration time so Emit calls
// iterate only over the observers that implement the relevant hook.
type Registry struct {
	extensions []Extension

	bind          []bindEntry
	dispatch      []dispatchEntry
	filterReject  []filterRejectEntry
	cancelled     []cancelledEntry
	dispatchError []dispatchErrorEntry
	shutdown      []shutdownEntry
}

// NewRegistry creates an empty hook registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds an observer and type-asserts it into every applicable
// hook cache. Observers are notified in registration order.
func (r *Registry) Register(e Extension) {
	r.extensions = append(r.extensions, e)
	name := e.Name()

	if h, ok := e.(Bind); ok {
		r.bind = append(r.bind, bindEntry{name, h})
	}
	if h, ok := e.(Dispatch); ok {
		r.dispatch = append(r.dispatch, dispatchEntry{name, h})
	}
	if h, ok := e.(FilterReject); ok {
		r.filterReject = append(r.filterReject, filterRejectEntry{name, h})
	}
	if h, ok := e.(Cancelled); ok {
		r.cancelled = append(r.cancelled, cancelledEntry{name, h})
	}
	if h, ok := e.(DispatchError); ok {
		r.dispatchError = append(r.dispatchError, dispatchErrorEntry{name, h})
	}
	if h, ok := e.(Shutdown); ok {
		r.shutdown = append(r.shutdown, shutdownEntry{name, h})
	}
}

// Extensions returns all registered observers.
func (r *Registry) Extensions() []Extension { return r.extensions }

// EmitBind notifies all observers that implement Bind. Observer panics
// are not recovered here; a hook is expected to not panic, same as the
// reference implementation's hook contract.
func (r *Registry) EmitBind(shard id.ShardID, handlerCount int) {
	for _, e := range r.bind {
		e.hook.OnBind(shard, handlerCount)
	}
}

// EmitDispatch notifies all observers that implement Dispatch.
func (r *Registry) EmitDispatch(shard id.ShardID, e event.Event, h id.HandlerID, elapsed time.Duration) {
	for _, entry := range r.dispatch {
		entry.hook.OnDispatch(shard, e, h, elapsed)
	}
}

// EmitFilterReject notifies all observers that implement FilterReject.
func (r *Registry) EmitFilterReject(shard id.ShardID, e event.Event, h id.HandlerID) {
	for _, entry := range r.filterReject {
		entry.hook.OnFilterReject(shard, e, h)
	}
}

// EmitCancelled notifies all observers that implement Cancelled.
func (r *Registry) EmitCancelled(shard id.ShardID, e event.Event, byHandler id.HandlerID) {
	for _, entry := range r.cancelled {
		entry.hook.OnCancelled(shard, e, byHandler)
	}
}

// EmitDispatchError notifies all observers that implement DispatchError.
func (r *Registry) EmitDispatchError(shard id.ShardID, e event.Event, h id.HandlerID, err error) {
	for _, entry := range r.dispatchError {
		entry.hook.OnDispatchError(shard, e, h, err)
	}
}

// EmitShutdown notifies all observers that implement Shutdown.
func (r *Registry) EmitShutdown(ctx context.Context) {
	for _, entry := range r.shutdown {
		entry.hook.OnShutdown(ctx)
	}
}
