// Package expander partitions a handler set across multiple
// dispatcher shards, removing dispatcher.MaxMethods as a hard ceiling
// on the number of handlers a single logical bus can carry.
package expander

import (
	"reflect"
	"sort"

	"github.com/kestrel-ev/evbus/dispatcher"
	"github.com/kestrel-ev/evbus/event"
	"github.com/kestrel-ev/evbus/handler"
)

// DefaultMaxPerShard matches the original DRCExpander's recommended
// bus size.
const DefaultMaxPerShard = 50

// Expander owns a pending descriptor list and, once bound, the shards
// it partitioned that list across. Like dispatcher.Shard, Expander is
// not safe for concurrent use.
type Expander struct {
	template    *dispatcher.Shard
	maxPerShard int

	pending []*handler.Descriptor
	shards  []*dispatcher.Shard
	busMap  map[reflect.Type][]*dispatcher.Shard
	bound   bool
}

// New creates an Expander that partitions registered descriptors into
// shards cloned from template (same middleware, hooks, and plan
// strategy), each holding at most maxPerShard handlers. maxPerShard is
// clamped to [1, dispatcher.MaxMethods]; pass 0 to use
// DefaultMaxPerShard.
func New(template *dispatcher.Shard, maxPerShard int) *Expander {
	switch {
	case maxPerShard == 0:
		maxPerShard = DefaultMaxPerShard
	case maxPerShard > dispatcher.MaxMethods:
		maxPerShard = dispatcher.MaxMethods
	case maxPerShard < 1:
		maxPerShard = 1
	}

	return &Expander{template: template, maxPerShard: maxPerShard}
}

// Register queues d for the next Bind.
func (ex *Expander) Register(d *handler.Descriptor) {
	ex.pending = append(ex.pending, d)
}

// RegisterAll queues every descriptor in ds for the next Bind.
func (ex *Expander) RegisterAll(ds []*handler.Descriptor) {
	ex.pending = append(ex.pending, ds...)
}

// Unregister removes the first descriptor matching target (by
// *handler.Descriptor identity or by handler.Handler, same semantics
// as dispatcher.Shard.Unregister). Takes effect on the next Bind.
func (ex *Expander) Unregister(target any) bool {
	idx := -1

	switch v := target.(type) {
	case *handler.Descriptor:
		for i, d := range ex.pending {
			if d == v {
				idx = i

				break
			}
		}
	case handler.Handler:
		for i, d := range ex.pending {
			if reflect.TypeOf(d.Target()) == reflect.TypeOf(v) {
				idx = i

				break
			}
		}
	}

	if idx == -1 {
		return false
	}

	ex.pending = append(ex.pending[:idx], ex.pending[idx+1:]...)

	return true
}

// Clear empties the pending descriptor list and drops every shard
// from the last Bind. Takes effect immediately; a subsequent Post
// before the next Bind is routed through no shards at all.
func (ex *Expander) Clear() {
	ex.pending = nil
	ex.shards = nil
	ex.busMap = nil
	ex.bound = false
}

// bucket is the descriptor set assigned to a single shard: one or more
// whole event-type groups, or one slice of a group larger than
// maxPerShard. Such a group is split into several buckets in priority
// order, so the split is invisible to dispatch order end-to-end.
type bucket struct {
	descriptors []*handler.Descriptor
}

// partition groups pending descriptors by event type (subclass
// descriptors share one group keyed by a nil type), then packs each
// group's descriptors into buckets of at most maxPerShard, splitting a
// group across consecutive buckets only when the group itself doesn't
// fit in one — mirroring DRCExpander.getSortedMethodEntries's
// running-index packing.
func partition(descriptors []*handler.Descriptor, maxPerShard int) []bucket {
	type group struct {
		key     reflect.Type
		members []*handler.Descriptor
	}

	groups := make(map[reflect.Type]*group)

	var order []*group

	for _, d := range descriptors {
		key := d.EventType()
		if d.AcceptSubclasses() {
			key = nil
		}

		g, ok := groups[key]
		if !ok {
			g = &group{key: key}
			groups[key] = g
			order = append(order, g)
		}

		g.members = append(g.members, d)
	}

	var buckets []bucket

	current := bucket{}

	for _, g := range order {
		sortByPriorityStable(g.members)

		if len(current.descriptors) > 0 && len(current.descriptors)+len(g.members) > maxPerShard {
			buckets = append(buckets, current)
			current = bucket{}
		}

		for _, d := range g.members {
			if len(current.descriptors) >= maxPerShard {
				buckets = append(buckets, current)
				current = bucket{}
			}

			current.descriptors = append(current.descriptors, d)
		}
	}

	if len(current.descriptors) > 0 {
		buckets = append(buckets, current)
	}

	return buckets
}

// sortByPriorityStable orders descriptors highest-priority-first,
// preserving insertion order on ties — the same ordering
// dispatcher.buildPlan applies within one shard, applied here first so
// a group split across shards still dispatches in strict priority
// order end-to-end.
func sortByPriorityStable(ds []*handler.Descriptor) {
	sort.SliceStable(ds, func(i, j int) bool {
		return ds[i].Priority() > ds[j].Priority()
	})
}

// Bind partitions the pending descriptor list into shards cloned from
// the template, registers each bucket, binds every shard, and rebuilds
// the event-type-to-shards routing map used by Post. Bind always
// produces at least one bound shard, even with zero pending
// descriptors, so Post never needs a nil check.
func (ex *Expander) Bind() error {
	buckets := partition(ex.pending, ex.maxPerShard)
	if len(buckets) == 0 {
		buckets = []bucket{{}}
	}

	shards := make([]*dispatcher.Shard, 0, len(buckets))
	busMap := make(map[reflect.Type][]*dispatcher.Shard)

	for _, b := range buckets {
		s := ex.template.CloneEmpty()
		if err := s.RegisterAll(b.descriptors); err != nil {
			return err
		}
		if err := s.Bind(); err != nil {
			return err
		}

		shards = append(shards, s)

		for _, d := range b.descriptors {
			key := d.EventType()
			busMap[key] = appendIfAbsent(busMap[key], s)
		}
	}

	ex.shards = shards
	ex.busMap = busMap
	ex.bound = true

	return nil
}

func appendIfAbsent(shards []*dispatcher.Shard, s *dispatcher.Shard) []*dispatcher.Shard {
	for _, existing := range shards {
		if existing == s {
			return shards
		}
	}

	return append(shards, s)
}

// Shards returns every shard produced by the last Bind, in creation
// order.
func (ex *Expander) Shards() []*dispatcher.Shard {
	out := make([]*dispatcher.Shard, len(ex.shards))
	copy(out, ex.shards)

	return out
}

// Post routes e to every shard that might hold a matching handler:
// shards with an exact-type bucket for reflect.TypeOf(e) first (in
// creation order, so a bucket split across shards still dispatches in
// priority order end-to-end), then every shard at all if none matched
// exactly — since a subclass-accepting bucket's shard is not
// separately indexed by the concrete types it might match, mirroring
// DRCExpander.post's fallback to broadcasting across busCollection
// when a single bus-map lookup can't be trusted to cover every shard
// holding a relevant subclass handler.
func (ex *Expander) Post(e event.Event) (event.Event, error) {
	return ex.postTo(ex.targets(e), e)
}

func (ex *Expander) targets(e event.Event) []*dispatcher.Shard {
	if shards, ok := ex.busMap[reflect.TypeOf(e)]; ok {
		return shards
	}

	return ex.shards
}

func (ex *Expander) postTo(shards []*dispatcher.Shard, e event.Event) (event.Event, error) {
	cancellable, isCancellable := e.(event.Cancellable)

	var firstErr error

	for _, s := range shards {
		_, err := s.Post(e)
		if err != nil && firstErr == nil {
			firstErr = err
		}

		if isCancellable && cancellable.IsCancelled() {
			break
		}
	}

	return e, firstErr
}
