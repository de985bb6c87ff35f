package asyncbus

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/kestrel-ev/evbus/dispatcher"
	"github.com/kestrel-ev/evbus/event"
	"github.com/kestrel-ev/evbus/id"
)

// WorkerObserver is notified around every event a worker dispatches,
// letting a caller track how many worker invocations are in flight at
// once (e.g. an OpenTelemetry UpDownCounter) without the bus importing
// any observability package directly.
type WorkerObserver interface {
	DispatchStarted()
	DispatchFinished()
}

// ErrAlreadyRunning is returned by StartWorkers when workers are
// already running.
var ErrAlreadyRunning = errors.New("asyncbus: workers already running")

// ErrNotRunning is returned by StopWorkers when no workers are running.
var ErrNotRunning = errors.New("asyncbus: workers not running")

// Bus queues events on a single FIFO channel and dispatches them on N
// worker goroutines, each holding a private dispatcher.Shard cloned
// from parent. parent itself is never posted to directly; it exists
// only as the descriptor-set source new worker shards are built from.
//
// Bus is safe for concurrent Post/TryPost/SetFeedback from multiple
// goroutines. StartWorkers/StopWorkers/Rebind are expected to be
// called from a single control goroutine, same as the lifecycle
// contract on the original AsyncEventBus.
type Bus struct {
	parent *dispatcher.Shard

	workers    int
	queueSize  int
	sleepDelay time.Duration
	manual     bool
	limiter    *rate.Limiter
	logger     *slog.Logger
	observer   WorkerObserver

	events chan event.Event

	mu      sync.Mutex
	running bool
	runCtx  context.Context
	stopCh  chan struct{}
	wg      sync.WaitGroup
	shards  []*atomic.Pointer[dispatcher.Shard]

	feedbackMu sync.Mutex
	feedback   func(event.Event)
}

// New creates a Bus wrapping parent. Workers are not started; call
// StartWorkers to begin dispatching.
func New(parent *dispatcher.Shard, opts ...Option) *Bus {
	b := &Bus{
		parent:     parent,
		workers:    DefaultWorkers,
		queueSize:  DefaultQueueSize,
		sleepDelay: DefaultSleepDelay,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(b)
	}

	b.events = make(chan event.Event, b.queueSize)

	return b
}

// SetFeedback installs cb as the post-dispatch feedback callback,
// invoked under Bus.feedbackMu after every dispatched event so calls
// from different workers never interleave. Returns b for chaining.
func (b *Bus) SetFeedback(cb func(event.Event)) *Bus {
	b.feedbackMu.Lock()
	b.feedback = cb
	b.feedbackMu.Unlock()

	return b
}

// Post enqueues e and returns it immediately, unprocessed. Blocks only
// if the queue is full (DefaultQueueSize is unbuffered, so the
// default behavior is to block until a worker receives).
func (b *Bus) Post(e event.Event) event.Event {
	b.events <- e

	return e
}

// TryPost enqueues e without blocking. If an admission limiter is
// configured and denies the attempt, or the queue is full, it reports
// false and does not enqueue e.
func (b *Bus) TryPost(e event.Event) (event.Event, bool) {
	if b.limiter != nil && !b.limiter.Allow() {
		return e, false
	}

	select {
	case b.events <- e:
		return e, true
	default:
		return e, false
	}
}

// DrainPending removes and returns every event currently buffered in
// the queue without dispatching them. Intended for use after
// StopWorkers, to recover work that was never picked up.
func (b *Bus) DrainPending() []event.Event {
	var drained []event.Event

	for {
		select {
		case e := <-b.events:
			drained = append(drained, e)
		default:
			return drained
		}
	}
}

// buildWorkerShard clones parent's current descriptor set into a fresh
// bound Shard, giving a worker its own independent plan.
func (b *Bus) buildWorkerShard() (*dispatcher.Shard, error) {
	s := b.parent.CloneEmpty()
	if err := s.RegisterAll(b.parent.Snapshot()); err != nil {
		return nil, err
	}

	if err := s.Bind(); err != nil {
		return nil, err
	}

	return s, nil
}

// StartWorkers builds one private shard per worker and spins up the
// worker goroutines. ctx is threaded through to every dispatched
// event's PostContext for the lifetime of this worker generation, the
// same context.Context-through-dequeueLoop pattern the reference
// stack's worker.Pool.Start uses. Returns ErrAlreadyRunning if workers
// are already active.
func (b *Bus) StartWorkers(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.running {
		return ErrAlreadyRunning
	}

	shards := make([]*atomic.Pointer[dispatcher.Shard], b.workers)

	for i := range shards {
		s, err := b.buildWorkerShard()
		if err != nil {
			return err
		}

		ptr := &atomic.Pointer[dispatcher.Shard]{}
		ptr.Store(s)
		shards[i] = ptr
	}

	b.shards = shards
	b.stopCh = make(chan struct{})
	b.runCtx = ctx

	for _, ptr := range shards {
		b.wg.Add(1)

		go b.runWorker(id.NewWorkerID(), ptr)
	}

	b.running = true

	return nil
}

// Workers returns the configured worker count.
func (b *Bus) Workers() int { return b.workers }

// StopWorkers closes the stop channel and waits for every worker
// goroutine to exit, bounded by ctx's deadline. If ctx expires first,
// StopWorkers returns ctx.Err() while the workers keep draining their
// current event in the background — mirroring the reference stack's
// worker.Pool.Stop graceful/forced split, minus job-level cancellation
// since a single dispatch has no cancellable unit of work here.
func (b *Bus) StopWorkers(ctx context.Context) error {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()

		return ErrNotRunning
	}

	close(b.stopCh)
	b.running = false
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Rebind rebuilds every running worker's private shard from parent's
// current descriptor set and swaps it in atomically. A no-op if
// workers are not running. Call after mutating and re-binding parent
// to propagate the new plan to workers already in flight.
func (b *Bus) Rebind() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.running {
		return nil
	}

	for _, ptr := range b.shards {
		s, err := b.buildWorkerShard()
		if err != nil {
			return err
		}

		ptr.Store(s)
	}

	return nil
}

// CopyBus returns a new, unstarted Bus configured identically to b
// (same parent, worker count, queue size, sleep delay, management
// mode, admission limiter, and feedback handler).
func (b *Bus) CopyBus() *Bus {
	b.feedbackMu.Lock()
	fb := b.feedback
	b.feedbackMu.Unlock()

	cp := &Bus{
		parent:     b.parent,
		workers:    b.workers,
		queueSize:  b.queueSize,
		sleepDelay: b.sleepDelay,
		manual:     b.manual,
		limiter:    b.limiter,
		logger:     b.logger,
		observer:   b.observer,
		feedback:   fb,
	}
	cp.events = make(chan event.Event, cp.queueSize)

	return cp
}

// runWorker is the per-worker dispatch loop. With manual management
// disabled (the default) it also wakes on an idle timer, matching the
// reference stack's Dispatcher.THREAD_SLEEP_DELAY tick; the tick does
// nothing but let the loop re-check the stop channel, since a blocked
// channel receive already wakes immediately on the next Post.
func (b *Bus) runWorker(wid id.WorkerID, shardPtr *atomic.Pointer[dispatcher.Shard]) {
	defer b.wg.Done()
	defer b.logger.Debug("asyncbus: worker stopped", "worker", wid)

	b.logger.Debug("asyncbus: worker started", "worker", wid)

	for {
		if b.manual {
			select {
			case e, ok := <-b.events:
				if !ok {
					return
				}

				b.dispatch(shardPtr, e)
			case <-b.stopCh:
				return
			}

			continue
		}

		select {
		case e, ok := <-b.events:
			if !ok {
				return
			}

			b.dispatch(shardPtr, e)
		case <-b.stopCh:
			return
		case <-time.After(b.sleepDelay):
		}
	}
}

func (b *Bus) dispatch(shardPtr *atomic.Pointer[dispatcher.Shard], e event.Event) {
	if b.observer != nil {
		b.observer.DispatchStarted()
		defer b.observer.DispatchFinished()
	}

	shard := shardPtr.Load()
	result, _ := shard.PostContext(b.runCtx, e)

	b.feedbackMu.Lock()
	if b.feedback != nil {
		b.feedback(result)
	}
	b.feedbackMu.Unlock()
}
