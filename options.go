package evbus

import (
	"log/slog"

	"github.com/kestrel-ev/evbus/dispatcher"
	"github.com/kestrel-ev/evbus/event"
	"github.com/kestrel-ev/evbus/expander"
	"github.com/kestrel-ev/evbus/handler"
	"github.com/kestrel-ev/evbus/hook"
	"github.com/kestrel-ev/evbus/middleware"
)

// Option configures a Bus at construction time.
type Option func(*Bus) error

// engine is the shared surface a Bus drives, satisfied by both a bare
// dispatcher.Shard and an expander.Expander so Bus itself doesn't need
// to branch on which mode it was built in after construction.
type engine interface {
	registerDescriptor(d *handler.Descriptor) error
	unregister(target any) bool
	clear()
	bind() error
	post(e event.Event) (event.Event, error)
}

// shardEngine adapts a single dispatcher.Shard to engine.
type shardEngine struct{ s *dispatcher.Shard }

func (e shardEngine) registerDescriptor(d *handler.Descriptor) error { return e.s.Register(d) }
func (e shardEngine) unregister(target any) bool                    { return e.s.Unregister(target) }
func (e shardEngine) clear()                                        { e.s.Clear() }
func (e shardEngine) bind() error                                   { return e.s.Bind() }
func (e shardEngine) post(ev event.Event) (event.Event, error)       { return e.s.Post(ev) }

// expanderEngine adapts an *expander.Expander to engine. Expander's
// Register has no fixed capacity, so registerDescriptor never fails;
// its Unregister edits the pending list, which Bind never empties, so
// a removal takes effect on the next Bind, as with a single Shard.
type expanderEngine struct{ ex *expander.Expander }

func (e expanderEngine) registerDescriptor(d *handler.Descriptor) error {
	e.ex.Register(d)
	return nil
}
func (e expanderEngine) unregister(target any) bool              { return e.ex.Unregister(target) }
func (e expanderEngine) clear()                                  { e.ex.Clear() }
func (e expanderEngine) bind() error                             { return e.ex.Bind() }
func (e expanderEngine) post(ev event.Event) (event.Event, error) { return e.ex.Post(ev) }

// Bus is the façade over a dispatcher.Shard (or, with WithExpander, an
// expander.Expander): register handlers, Bind, Post.
type Bus struct {
	config Config
	logger *slog.Logger
	hooks  *hook.Registry
	mw     middleware.Middleware

	shard  *dispatcher.Shard // nil when built WithExpander
	engine engine
}

// New builds a Bus from opts. A single dispatcher.Shard backs the Bus
// unless WithExpander was given.
func New(opts ...Option) (*Bus, error) {
	b := &Bus{
		config: DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, err
		}
	}

	shardOpts := []dispatcher.Option{dispatcher.WithLogger(b.logger)}
	if b.mw != nil {
		shardOpts = append(shardOpts, dispatcher.WithMiddleware(b.mw))
	}
	if b.hooks != nil {
		shardOpts = append(shardOpts, dispatcher.WithHooks(b.hooks))
	}
	if b.config.UseCompiledPlan {
		shardOpts = append(shardOpts, dispatcher.WithCompiledPlan())
	}

	template := dispatcher.New(shardOpts...)

	if b.config.UseExpander {
		b.engine = expanderEngine{ex: expander.New(template, b.config.ExpanderMaxPerShard)}
	} else {
		b.shard = template
		b.engine = shardEngine{s: template}
	}

	return b, nil
}

// Logger returns the Bus's logger.
func (b *Bus) Logger() *slog.Logger { return b.logger }

// Config returns a copy of the Bus's configuration.
func (b *Bus) Config() Config { return b.config }

// Shard returns the Bus's single underlying dispatcher.Shard and true,
// or (nil, false) if the Bus was built WithExpander and so has no
// single shard to return. Hand the shard to asyncbus.New to drive
// asynchronous, multi-worker delivery over the same handler set.
func (b *Bus) Shard() (*dispatcher.Shard, bool) {
	if b.shard == nil {
		return nil, false
	}
	return b.shard, true
}

// Register analyzes h's Subscriptions and registers every resulting
// descriptor. Takes effect on the next Bind.
func (b *Bus) Register(h handler.Handler) error {
	if h == nil {
		return ErrNilHandler
	}

	ds, err := handler.Analyze(h)
	if err != nil {
		return err
	}

	for _, d := range ds {
		if err := b.engine.registerDescriptor(d); err != nil {
			return err
		}
	}

	return nil
}

// RegisterDescriptor registers a single, already-built descriptor
// directly, bypassing handler.Analyze. Takes effect on the next Bind.
func (b *Bus) RegisterDescriptor(d *handler.Descriptor) error {
	return b.engine.registerDescriptor(d)
}

// Unregister removes the first descriptor matching target (a
// *handler.Descriptor by identity, or a handler.Handler by the
// concrete type of its target). Reports whether a descriptor was
// removed. Takes effect on the next Bind.
func (b *Bus) Unregister(target any) bool { return b.engine.unregister(target) }

// Clear empties the registry. With a single shard it takes effect on
// the next Bind; a Bus built WithExpander drops its bound shards at
// once, so Post reaches no handler until the next Bind.
func (b *Bus) Clear() { b.engine.clear() }

// Bind snapshots the current registry and compiles a fresh dispatch
// plan from it.
func (b *Bus) Bind() error { return b.engine.bind() }

// Post dispatches e through the bound plan. If dispatch produced an
// error, it is returned wrapped as *DispatchError so callers can
// errors.As/errors.Is against either the wrapper or the original
// cause.
func (b *Bus) Post(e event.Event) (event.Event, error) {
	result, err := b.engine.post(e)
	if err != nil {
		return result, &DispatchError{Event: e, Err: err}
	}

	return result, nil
}

// WithLogger sets the structured logger used for the Bus's default
// middleware chain (and anything else built from it, like asyncbus
// workers sharing its shard).
func WithLogger(l *slog.Logger) Option {
	return func(b *Bus) error {
		b.logger = l
		return nil
	}
}

// WithHooks attaches a hook.Registry observers (e.g.
// observability.MetricsExtension) are notified through.
func WithHooks(h *hook.Registry) Option {
	return func(b *Bus) error {
		b.hooks = h
		return nil
	}
}

// WithMiddleware overrides the default middleware.Chain(middleware.Recover(...))
// chain every matched handler is invoked through.
func WithMiddleware(mw middleware.Middleware) Option {
	return func(b *Bus) error {
		b.mw = mw
		return nil
	}
}

// WithCompiledPlan selects the composed-closures plan strategy.
func WithCompiledPlan() Option {
	return func(b *Bus) error {
		b.config.UseCompiledPlan = true
		return nil
	}
}

// WithExpander backs the Bus with an expander.Expander instead of a
// single shard, partitioning handlers across shards of at most
// maxPerShard each (0 uses expander.DefaultMaxPerShard). Use this when
// a single handler set might exceed dispatcher.MaxMethods.
func WithExpander(maxPerShard int) Option {
	return func(b *Bus) error {
		b.config.UseExpander = true
		b.config.ExpanderMaxPerShard = maxPerShard
		return nil
	}
}
