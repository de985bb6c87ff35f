// Package evbus is an in-process, synchronous-by-default event bus:
// register plain Go objects as handlers, Bind once to compile a
// specialized dispatch plan, then Post events through it.
//
// evbus is designed as a library, not a service. Build one with New
// and functional options, register handlers, and Post events from
// wherever your domain logic already lives.
//
// # Quick Start
//
//	bus, err := evbus.New(
//	    evbus.WithLogger(logger),
//	)
//	bus.Register(myHandler)
//	bus.Bind()
//	bus.Post(&OrderPlaced{ID: "ord_1"})
//
// # Architecture
//
// A Bus owns either a single dispatcher.Shard or, when constructed
// with WithExpander, an expander.Expander partitioning handlers across
// several shards past dispatcher.MaxMethods. Register analyzes a
// handler object's Subscriptions into handler.Descriptors;
// Bind snapshots the current descriptor set into a specialized plan
// (dispatcher/plan.go); Post walks that plan directly, with no
// reflection at dispatch time beyond the initial type switch.
//
// For fire-and-forget, multi-worker delivery, wrap a Bus's underlying
// shard in an asyncbus.Bus. For lifecycle metrics, attach an
// observability.MetricsExtension through a hook.Registry.
package evbus
