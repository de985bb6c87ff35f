package dispatcher

import (
	"context"
	"log/slog"
	"reflect"
	"sync/atomic"

	"github.com/kestrel-ev/evbus/event"
	"github.com/kestrel-ev/evbus/handler"
	"github.com/kestrel-ev/evbus/hook"
	"github.com/kestrel-ev/evbus/id"
	"github.com/kestrel-ev/evbus/middleware"
)

// MaxMethods is the hard capacity limit for a single shard, matching
// the original EventBus's MAX_METHODS constant. Register/RegisterAll
// fail with ErrCapacityExceeded beyond this; expander.Expander is the
// sanctioned way to scale past it.
const MaxMethods = 256

// state models a shard's bind lifecycle.
type state int

const (
	stateEmpty state = iota
	stateDirty
	stateBound
)

// Shard owns a fixed-capacity handler registry and the specialized
// plan generated from it. Shard is not safe for concurrent use:
// Register, Unregister, Clear, Bind, and Post are expected to be
// externally serialized by the caller, same as the registry contract
// this is grounded on. asyncbus.Bus works around this by giving each
// worker its own private Shard rather than sharing one.
type Shard struct {
	id          id.ShardID
	descriptors []*handler.Descriptor
	st          state
	plan        atomic.Pointer[plan]

	middleware  middleware.Middleware
	hooks       *hook.Registry
	useCompiled bool
	logger      *slog.Logger
}

// Option configures a Shard at construction time.
type Option func(*Shard)

// WithMiddleware sets the middleware chain every matched handler is
// invoked through. Defaults to middleware.Chain(middleware.Recover(logger)).
func WithMiddleware(mw middleware.Middleware) Option {
	return func(s *Shard) { s.middleware = mw }
}

// WithHooks attaches a hook.Registry observers are notified through.
func WithHooks(h *hook.Registry) Option {
	return func(s *Shard) { s.hooks = h }
}

// WithCompiledPlan selects the composed-closures generation strategy
// instead of the default interpreted plan. Both are behaviorally
// identical; this trades a larger allocation at Bind time for no
// slice indexing at Post time.
func WithCompiledPlan() Option {
	return func(s *Shard) { s.useCompiled = true }
}

// WithLogger sets the logger used by the default middleware chain
// when no explicit WithMiddleware is given.
func WithLogger(l *slog.Logger) Option {
	return func(s *Shard) { s.logger = l }
}

// New creates an empty, unbound Shard.
func New(opts ...Option) *Shard {
	s := &Shard{
		id:     id.NewShardID(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.middleware == nil {
		s.middleware = middleware.Chain(middleware.Recover(s.logger))
	}

	return s
}

// ID returns the shard's unique identifier.
func (s *Shard) ID() id.ShardID { return s.id }

// Register appends d to the registry. Fails with ErrCapacityExceeded
// if the new total would exceed MaxMethods. Takes effect on the next
// Bind.
func (s *Shard) Register(d *handler.Descriptor) error {
	if len(s.descriptors)+1 > MaxMethods {
		return ErrCapacityExceeded
	}

	s.descriptors = append(s.descriptors, d)
	s.st = stateDirty

	return nil
}

// RegisterAll registers every descriptor in ds, atomically with
// respect to capacity: if ds would overflow MaxMethods, none of them
// are registered.
func (s *Shard) RegisterAll(ds []*handler.Descriptor) error {
	if len(s.descriptors)+len(ds) > MaxMethods {
		return ErrCapacityExceeded
	}

	s.descriptors = append(s.descriptors, ds...)
	if len(ds) > 0 {
		s.st = stateDirty
	}

	return nil
}

// Unregister removes the first matching descriptor. Passing a
// *handler.Descriptor removes by identity; passing a handler.Handler
// removes the first descriptor whose Target has the same concrete type
// as the given handler (the subscribed method itself is not compared).
// Reports whether a descriptor was removed. Takes effect on the next
// Bind.
func (s *Shard) Unregister(target any) bool {
	idx := -1

	switch v := target.(type) {
	case *handler.Descriptor:
		for i, d := range s.descriptors {
			if d == v {
				idx = i

				break
			}
		}
	case handler.Handler:
		for i, d := range s.descriptors {
			if sameHandlerMethod(d.Target(), v) {
				idx = i

				break
			}
		}
	}

	if idx == -1 {
		return false
	}

	s.descriptors = append(s.descriptors[:idx], s.descriptors[idx+1:]...)
	s.st = stateDirty

	return true
}

func sameHandlerMethod(a, b handler.Handler) bool {
	return reflect.TypeOf(a) == reflect.TypeOf(b)
}

// Clear empties the registry. Takes effect on the next Bind; the
// currently active plan (if any) keeps running until then.
func (s *Shard) Clear() {
	s.descriptors = nil
	s.st = stateDirty
}

// Bind snapshots the current registry, builds a new specialized plan,
// and installs it as active. The active plan is always the result of
// the last successful Bind.
func (s *Shard) Bind() error {
	snapshot := make([]*handler.Descriptor, len(s.descriptors))
	copy(snapshot, s.descriptors)

	p := buildPlan(snapshot, s.middleware, s.hooks, s.id, s.useCompiled)
	s.plan.Store(p)
	s.st = stateBound

	if s.hooks != nil {
		s.hooks.EmitBind(s.id, len(snapshot))
	}

	return nil
}

// Snapshot returns a read-only copy of the currently registered
// descriptors (not necessarily the bound plan's view, if Bind hasn't
// been called since the last mutation).
func (s *Shard) Snapshot() []*handler.Descriptor {
	out := make([]*handler.Descriptor, len(s.descriptors))
	copy(out, s.descriptors)

	return out
}

// CloneEmpty returns a new, empty Shard configured the same way as s
// (same middleware chain, hooks, and plan-generation strategy), used
// by expander.Expander to produce per-bucket shards and by asyncbus.Bus
// to produce per-worker shards from a shared template.
func (s *Shard) CloneEmpty() *Shard {
	return &Shard{
		id:          id.NewShardID(),
		middleware:  s.middleware,
		hooks:       s.hooks,
		useCompiled: s.useCompiled,
		logger:      s.logger,
	}
}

// Post routes e through the active plan. Fails with ErrNotBound if
// Bind has never succeeded. The returned error is the first
// DispatchError encountered, if any; dispatch continues past a single
// failing handler, so a non-nil error does not mean no handler ran.
func (s *Shard) Post(e event.Event) (event.Event, error) {
	return s.PostContext(context.Background(), e)
}

// PostContext is Post with an explicit context, threaded through to
// middleware (tracing spans, deadlines a custom middleware might add).
func (s *Shard) PostContext(ctx context.Context, e event.Event) (event.Event, error) {
	p := s.plan.Load()
	if p == nil {
		return e, ErrNotBound
	}

	t := reflect.TypeOf(e)

	exactSteps, hasExact := p.exactSteps[t]

	var err error

	switch {
	case hasExact && p.useCompiled:
		_, err = p.compiledExact[t](ctx, e)
	case hasExact:
		_, err = runSteps(ctx, s.middleware, s.hooks, s.id, exactSteps, e)
	case p.useCompiled:
		_, err = p.subclassCompiled(ctx, e)
	default:
		_, err = runSteps(ctx, s.middleware, s.hooks, s.id, matchingSubclassSteps(p.subclassSteps, t), e)
	}

	s.handleDispatchError(e, err)

	return e, err
}

// handleDispatchError implements the re-post-once policy: a
// DispatchError is wrapped in an ExceptionEvent and posted back to
// this same shard exactly once per level, guarded by the
// ExceptionEvent's own reposted flag so a handler that itself panics
// on ExceptionEvent cannot recurse forever.
func (s *Shard) handleDispatchError(source event.Event, err error) {
	if err == nil {
		return
	}

	if ee, ok := source.(*event.ExceptionEvent); ok && ee.Reposted() {
		return
	}

	repost := event.NewExceptionEvent(err, source)
	repost.MarkReposted()

	_, _ = s.Post(repost)
}
