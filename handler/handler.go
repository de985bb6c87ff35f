// Package handler defines the handler registration protocol: how a
// handler object's methods become typed, prioritized, filterable
// HandlerDescriptors a dispatcher shard can bind against.
package handler

import (
	"reflect"

	"github.com/kestrel-ev/evbus/event"
	"github.com/kestrel-ev/evbus/filter"
	"github.com/kestrel-ev/evbus/id"
)

// Handler is the capability interface every subscriber implements.
type Handler interface {
	// IsEnabled gates dispatch for all of this handler's non-forced
	// subscriptions. Forced subscriptions (SubscribeOption
	// WithForced(true)) skip this check entirely.
	IsEnabled() bool
}

// Base implements Handler with an always-enabled default. Embed it in
// handler types that don't need a custom enable condition — mirrors
// the Java source's Listener.isEnabled() defaulting to true.
type Base struct{}

// IsEnabled always returns true.
func (Base) IsEnabled() bool { return true }

// Subscribing is implemented by handler objects that expose one or
// more typed subscriptions. Go has no runtime method annotations, so
// unlike the Java source's @Subscribe-scanned methods, a handler here
// opts a method in explicitly by returning a Subscription for it from
// this method.
type Subscribing interface {
	Subscriptions() []Subscription
}

// Subscription pairs a typed callback with its dispatch metadata. Use
// Subscribe to build one.
type Subscription struct {
	eventType        reflect.Type
	invoke           func(event.Event)
	priority         int
	forced           bool
	acceptSubclasses bool
	filterType       reflect.Type
}

// SubscribeOption configures a Subscription.
type SubscribeOption func(*Subscription)

// WithPriority sets dispatch priority; higher runs first. Default 0.
func WithPriority(p int) SubscribeOption {
	return func(s *Subscription) { s.priority = p }
}

// WithForced skips the handler's IsEnabled check when true. Default false.
func WithForced(forced bool) SubscribeOption {
	return func(s *Subscription) { s.forced = forced }
}

// WithAcceptSubclasses allows this subscription to match any event
// type assignable to the callback's declared parameter type, not just
// an exact match. Default false.
func WithAcceptSubclasses(accept bool) SubscribeOption {
	return func(s *Subscription) { s.acceptSubclasses = accept }
}

// WithFilter attaches a filter type to this subscription. A new
// zero-value instance of filterType is constructed at analysis time
// (via reflect.New) and, if it implements filter.Initializable, has
// Init called with the resulting descriptor. filterType must be a
// struct type, not an interface — Analyze rejects anything else.
func WithFilter(filterType reflect.Type) SubscribeOption {
	return func(s *Subscription) { s.filterType = filterType }
}

// Subscribe builds a Subscription for fn, a callback accepting exactly
// one concrete event type T. Subscribe is a free function rather than
// a method because Go forbids generic methods on non-generic receiver
// types — the same constraint that pushes the reference registry
// pattern this is grounded on to a free RegisterDefinition[T] function
// instead of a Registry method.
func Subscribe[T event.Event](fn func(T), opts ...SubscribeOption) Subscription {
	s := Subscription{
		eventType: reflect.TypeOf((*T)(nil)).Elem(),
		invoke: func(e event.Event) {
			fn(e.(T)) //nolint:forcetypeassert // guarded by Analyze's type check before this closure is ever installed
		},
	}
	for _, opt := range opts {
		opt(&s)
	}

	return s
}

// Descriptor is the immutable, introspected record of one bound
// handler method. dispatcher.Shard.Register consumes these.
type Descriptor struct {
	id               id.HandlerID
	eventType        reflect.Type
	target           Handler
	invoke           func(event.Event)
	priority         int
	forced           bool
	acceptSubclasses bool
	filterVal        filter.Filter
}

// ID returns the descriptor's unique identifier.
func (d *Descriptor) ID() id.HandlerID { return d.id }

// EventType returns the concrete (or interface, if AcceptSubclasses)
// type this descriptor's callback accepts.
func (d *Descriptor) EventType() reflect.Type { return d.eventType }

// EventTypeName implements filter.Descriptor.
func (d *Descriptor) EventTypeName() string { return d.eventType.String() }

// HandlerTypeName implements filter.Descriptor.
func (d *Descriptor) HandlerTypeName() string { return reflect.TypeOf(d.target).String() }

// Target returns the handler object this descriptor was built from.
func (d *Descriptor) Target() Handler { return d.target }

// Priority returns the dispatch priority; higher runs first.
func (d *Descriptor) Priority() int { return d.priority }

// Forced reports whether this descriptor skips the IsEnabled check.
func (d *Descriptor) Forced() bool { return d.forced }

// AcceptSubclasses reports whether this descriptor matches assignable
// event types beyond an exact match.
func (d *Descriptor) AcceptSubclasses() bool { return d.acceptSubclasses }

// Filter returns the attached filter, or nil if none was configured.
func (d *Descriptor) Filter() filter.Filter { return d.filterVal }

// SetFilter attaches a filter programmatically after construction.
// Unlike a filter attached via WithFilter at subscription time, a
// filter attached this way never receives Init.
func (d *Descriptor) SetFilter(f filter.Filter) { d.filterVal = f }

// Invoke calls the bound method with e. Invoke does not itself check
// Filter, IsEnabled, or cancellation — those are the dispatcher's
// responsibility; Descriptor only carries the bound call.
func (d *Descriptor) Invoke(e event.Event) { d.invoke(e) }

// Enabled reports whether this descriptor's handler currently permits
// dispatch: true if Forced, otherwise the target's IsEnabled().
func (d *Descriptor) Enabled() bool {
	if d.forced {
		return true
	}

	return d.target.IsEnabled()
}
