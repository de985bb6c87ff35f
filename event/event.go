// Package event defines the Event type and its context chain, the
// substrate every handler, filter, and dispatcher in evbus operates on.
package event

import "reflect"

// Event is anything that can be posted through a dispatcher. Concrete
// event types embed Base to get the context-chain behavior for free.
type Event interface {
	// SetContext prepends ctx onto this event's context chain. With the
	// Base implementation the returned Event is the embedded *Base, not
	// the concrete event that embeds it, so the result is not the value
	// to post.
	SetContext(ctx Context) Event

	// Context returns the nearest context in the chain assignable to t.
	// A nil t returns the head of the chain (the most recently set
	// context), or nil if no context has been set.
	Context(t reflect.Type) Context
}

// Context is a marker for arbitrary payload values attached to an
// event's ancestry chain. Any Go value can serve as a Context; no
// method set is required.
type Context any

// ctxLink is one node in an event's context chain.
type ctxLink struct {
	value  Context
	parent *ctxLink
}

// Base implements the context-chain half of Event. Embed it in concrete
// event structs.
type Base struct {
	head *ctxLink
}

// SetContext prepends ctx onto the chain and returns b, the *Base, not
// the concrete embedding type; callers call it as a statement and keep
// using their own concrete-typed variable.
func (b *Base) SetContext(ctx Context) Event {
	b.head = &ctxLink{value: ctx, parent: b.head}

	return b
}

// Context walks the chain from the head looking for the nearest value
// assignable to t. A nil t returns the head value directly. Returns nil
// if no context in the chain matches. The chain is not cycle-checked;
// constructing a cycle by reattaching the same Context value across
// multiple SetContext calls is the caller's responsibility to avoid.
func (b *Base) Context(t reflect.Type) Context {
	if b.head == nil {
		return nil
	}

	if t == nil {
		return b.head.value
	}

	for link := b.head; link != nil; link = link.parent {
		if link.value == nil {
			continue
		}

		vt := reflect.TypeOf(link.value)
		if vt == t || (t.Kind() == reflect.Interface && vt.Implements(t)) {
			return link.value
		}
	}

	return nil
}
