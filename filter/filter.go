// Package filter defines the per-handler gating protocol evaluated
// before a matched handler is invoked.
package filter

import "github.com/kestrel-ev/evbus/event"

// Filter gates whether a matched handler is invoked for a given event.
// Filter is checked after the exact-type/subclass match succeeds and
// before that handler's own cancellation check and enable check — a
// filter rejection never counts as a dispatch and never trips
// IsCancelled on its own.
type Filter interface {
	Filter(e event.Event) bool
}

// Initializable is an optional capability a Filter implementation can
// opt into: when present, Init is called once with the descriptor the
// filter was attached to, at analysis time. Filters attached
// programmatically via Descriptor.SetFilter do not receive Init.
type Initializable interface {
	Init(d Descriptor)
}

// Descriptor is the minimal view of a handler descriptor a filter
// needs during Init. It is satisfied by *handler.Descriptor; defined
// here (rather than importing package handler) to avoid an import
// cycle, since package handler itself references package filter.
type Descriptor interface {
	EventTypeName() string
	HandlerTypeName() string
}

// Base is an embeddable helper that records the owning descriptor for
// filters that need it after Init, mirroring the common case of a
// filter that only needs to read the descriptor, not react to it.
type Base struct {
	descriptor Descriptor
}

// Init implements Initializable.
func (b *Base) Init(d Descriptor) { b.descriptor = d }

// Descriptor returns the descriptor this filter was attached to, or
// nil if Init has not been called (e.g. the filter was attached via
// Descriptor.SetFilter rather than analysis).
func (b *Base) Descriptor() Descriptor { return b.descriptor }
