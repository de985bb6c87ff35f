package dispatcher

import (
	"context"
	"reflect"
	"time"

	"github.com/kestrel-ev/evbus/event"
	"github.com/kestrel-ev/evbus/handler"
	"github.com/kestrel-ev/evbus/hook"
	"github.com/kestrel-ev/evbus/id"
	"github.com/kestrel-ev/evbus/middleware"
)

// step is one descriptor's position in a plan; its filter, if any, is
// read from the descriptor when the step runs.
type step struct {
	d *handler.Descriptor
}

func newStep(d *handler.Descriptor) step { return step{d: d} }

// outcome records what happened when a step was offered an event, so
// the caller (an interpreted loop or a composed closure) can decide
// whether to continue to the next step.
type outcome int

const (
	outcomeInvoked outcome = iota
	outcomeFiltered
	outcomeDisabled
	outcomeCancelled
	outcomeTypeMismatch
)

// matchesType reports whether e's concrete type satisfies st's
// declared event type — always true for an exact-bucket step (the
// bucket key already guarantees it), and an assignability check for a
// subclass-accepting step evaluated against an arbitrary posted event.
func matchesType(st step, e event.Event) bool {
	et := st.d.EventType()
	if et.Kind() != reflect.Interface {
		return reflect.TypeOf(e) == et
	}

	return reflect.TypeOf(e).Implements(et)
}

// matchingSubclassSteps filters a globally-ordered subclass step list
// down to the ones whose declared type is t itself or an interface t
// implements (the same test matchesType applies), preserving priority
// order.
func matchingSubclassSteps(steps []step, t reflect.Type) []step {
	out := make([]step, 0, len(steps))

	for _, st := range steps {
		et := st.d.EventType()
		if et == t || (et.Kind() == reflect.Interface && t.Implements(et)) {
			out = append(out, st)
		}
	}

	return out
}

// runStep evaluates and, if appropriate, invokes a single descriptor
// for e. Order: filter check, then the cancellation check (evaluated
// immediately before invocation, not after the previous handler ran),
// then the enable gate, then Invoke — all three gates and the
// invocation itself run inside the shard's middleware chain so a
// panicking filter or handler is recovered the same way a failing
// handler is.
func runStep(ctx context.Context, mw middleware.Middleware, st step, e event.Event) (outcome, time.Duration, error) {
	cancellable, isCancellable := e.(event.Cancellable)

	var out outcome

	terminal := func() error {
		if !matchesType(st, e) {
			out = outcomeTypeMismatch

			return nil
		}

		if f := st.d.Filter(); f != nil && !f.Filter(e) {
			out = outcomeFiltered

			return nil
		}

		if isCancellable && cancellable.IsCancelled() {
			out = outcomeCancelled

			return nil
		}

		if !st.d.Enabled() {
			out = outcomeDisabled

			return nil
		}

		out = outcomeInvoked
		st.d.Invoke(e)

		return nil
	}

	start := time.Now()
	err := mw(ctx, st.d, e, terminal)
	elapsed := time.Since(start)

	return out, elapsed, err
}

// runSteps walks steps in order, short-circuiting on cancellation, and
// reports whether any handler was actually invoked plus the first
// DispatchError encountered (dispatch continues past a single failing
// handler).
func runSteps(ctx context.Context, mw middleware.Middleware, hooks *hook.Registry, shardID id.ShardID, steps []step, e event.Event) (dispatched bool, firstErr error) {
	var lastInvoked id.HandlerID

	for _, st := range steps {
		out, elapsed, err := runStep(ctx, mw, st, e)
		if err != nil {
			if hooks != nil {
				hooks.EmitDispatchError(shardID, e, st.d.ID(), err)
			}

			if firstErr == nil {
				firstErr = err
			}

			continue
		}

		switch out {
		case outcomeFiltered:
			if hooks != nil {
				hooks.EmitFilterReject(shardID, e, st.d.ID())
			}
		case outcomeDisabled, outcomeTypeMismatch:
			// no hook: neither is a noteworthy event on its own.
		case outcomeCancelled:
			if hooks != nil {
				hooks.EmitCancelled(shardID, e, lastInvoked)
			}

			return dispatched, firstErr
		case outcomeInvoked:
			dispatched = true
			lastInvoked = st.d.ID()

			if hooks != nil {
				hooks.EmitDispatch(shardID, e, st.d.ID(), elapsed)
			}
		}
	}

	return dispatched, firstErr
}
