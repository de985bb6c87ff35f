package dispatcher

import (
	"context"
	"reflect"
	"sort"

	"github.com/kestrel-ev/evbus/event"
	"github.com/kestrel-ev/evbus/handler"
	"github.com/kestrel-ev/evbus/hook"
	"github.com/kestrel-ev/evbus/id"
	"github.com/kestrel-ev/evbus/middleware"
)

// compiledFunc is a folded, bind-time-composed decision chain for one
// event type, produced when Shard.useCompiled is set. Unlike the
// interpreted strategy it does not walk a []step at Post time — the
// walk is baked into the nesting of the closures themselves.
type compiledFunc func(ctx context.Context, e event.Event) (dispatched bool, err error)

// innerFunc is the per-step link in a composed chain. last threads the
// most recently invoked handler's ID through so a downstream
// cancellation can report who most likely triggered it.
type innerFunc func(ctx context.Context, e event.Event, last *id.HandlerID) (dispatched bool, err error)

// plan is the specialized dispatcher produced by one Bind call. It
// reflects exactly the registry snapshot Bind saw; descriptors
// registered after a Bind have no effect until the next Bind.
type plan struct {
	exactSteps    map[reflect.Type][]step
	subclassSteps []step // globally ordered by priority desc, ties by insertion order

	compiledExact    map[reflect.Type]compiledFunc
	subclassCompiled compiledFunc
	useCompiled      bool
}

// buildPlan groups descriptors by exact event type (priority desc,
// insertion order on ties, via sort.SliceStable), collects the
// subclass-accepting descriptors into a single globally ordered
// slice, and — if useCompiled is set — folds both into nested
// closures.
func buildPlan(descriptors []*handler.Descriptor, mw middleware.Middleware, hooks *hook.Registry, shardID id.ShardID, useCompiled bool) *plan {
	exactGroups := make(map[reflect.Type][]*handler.Descriptor)

	var subclass []*handler.Descriptor

	for _, d := range descriptors {
		if d.AcceptSubclasses() {
			subclass = append(subclass, d)

			continue
		}

		exactGroups[d.EventType()] = append(exactGroups[d.EventType()], d)
	}

	sortByPriorityStable(subclass)

	p := &plan{
		exactSteps:    make(map[reflect.Type][]step, len(exactGroups)),
		subclassSteps: toSteps(subclass),
		useCompiled:   useCompiled,
	}

	for t, group := range exactGroups {
		sortByPriorityStable(group)
		p.exactSteps[t] = toSteps(group)
	}

	if useCompiled {
		p.compiledExact = make(map[reflect.Type]compiledFunc, len(p.exactSteps))
		for t, steps := range p.exactSteps {
			p.compiledExact[t] = wrapChain(composeSteps(steps, mw, hooks, shardID))
		}

		p.subclassCompiled = wrapChain(composeSteps(p.subclassSteps, mw, hooks, shardID))
	}

	return p
}

func sortByPriorityStable(ds []*handler.Descriptor) {
	sort.SliceStable(ds, func(i, j int) bool {
		return ds[i].Priority() > ds[j].Priority()
	})
}

func toSteps(ds []*handler.Descriptor) []step {
	steps := make([]step, len(ds))
	for i, d := range ds {
		steps[i] = newStep(d)
	}

	return steps
}

// wrapChain gives each top-level Post call its own zero-valued "last
// invoked" cell, so sequential calls through the same compiled plan
// don't see a stale handler ID from a previous, unrelated dispatch.
func wrapChain(inner innerFunc) compiledFunc {
	return func(ctx context.Context, e event.Event) (bool, error) {
		var last id.HandlerID

		return inner(ctx, e, &last)
	}
}

// composeSteps folds steps into a single nested-closure decision
// chain, from the last step backward, so invoking the result walks the
// same filter → cancellation → enable → invoke sequence as the
// interpreted runSteps loop, but with no slice indexing at call time —
// the walk is the shape of the call stack itself, built once at Bind.
func composeSteps(steps []step, mw middleware.Middleware, hooks *hook.Registry, shardID id.ShardID) innerFunc {
	tail := innerFunc(func(context.Context, event.Event, *id.HandlerID) (bool, error) { return false, nil })

	for i := len(steps) - 1; i >= 0; i-- {
		st := steps[i]
		next := tail

		tail = func(ctx context.Context, e event.Event, last *id.HandlerID) (bool, error) {
			out, elapsed, err := runStep(ctx, mw, st, e)
			if err != nil {
				if hooks != nil {
					hooks.EmitDispatchError(shardID, e, st.d.ID(), err)
				}

				restDispatched, _ := next(ctx, e, last)

				return restDispatched, err
			}

			switch out {
			case outcomeFiltered:
				if hooks != nil {
					hooks.EmitFilterReject(shardID, e, st.d.ID())
				}

				return next(ctx, e, last)
			case outcomeDisabled:
				return next(ctx, e, last)
			case outcomeCancelled:
				if hooks != nil {
					hooks.EmitCancelled(shardID, e, *last)
				}

				return false, nil
			case outcomeInvoked:
				*last = st.d.ID()

				if hooks != nil {
					hooks.EmitDispatch(shardID, e, st.d.ID(), elapsed)
				}

				_, restErr := next(ctx, e, last)

				return true, restErr
			default:
				return next(ctx, e, last)
			}
		}
	}

	return tail
}
