package evbus_test

import (
	"errors"
	"testing"

	"github.com/kestrel-ev/evbus"
	"github.com/kestrel-ev/evbus/dispatcher"
	"github.com/kestrel-ev/evbus/event"
	"github.com/kestrel-ev/evbus/handler"
)

type pingEvent struct {
	event.Base
	N int
}

type recorder struct {
	handler.Base
	log *[]int
}

func (r *recorder) onPing(e *pingEvent) { *r.log = append(*r.log, e.N) }

func (r *recorder) Subscriptions() []handler.Subscription {
	return []handler.Subscription{handler.Subscribe(r.onPing)}
}

type failingHandler struct {
	handler.Base
}

func (failingHandler) onPing(*pingEvent) { panic("boom") }

func (h failingHandler) Subscriptions() []handler.Subscription {
	return []handler.Subscription{handler.Subscribe(h.onPing)}
}

func TestBusRegisterBindPostRoundTrip(t *testing.T) {
	bus, err := evbus.New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var log []int
	if err := bus.Register(&recorder{log: &log}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := bus.Bind(); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	if _, err := bus.Post(&pingEvent{N: 7}); err != nil {
		t.Fatalf("Post: %v", err)
	}

	if len(log) != 1 || log[0] != 7 {
		t.Fatalf("expected [7], got %v", log)
	}
}

func TestBusPostBeforeBindReturnsErrNotBound(t *testing.T) {
	bus, err := evbus.New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = bus.Post(&pingEvent{})
	if !errors.Is(err, evbus.ErrNotBound) {
		t.Fatalf("expected ErrNotBound, got %v", err)
	}
}

func TestBusPostWrapsHandlerErrorAsDispatchError(t *testing.T) {
	bus, err := evbus.New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := bus.Register(failingHandler{}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := bus.Bind(); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	_, err = bus.Post(&pingEvent{})
	if err == nil {
		t.Fatal("expected a dispatch error from the panicking handler")
	}

	var dispatchErr *evbus.DispatchError
	if !errors.As(err, &dispatchErr) {
		t.Fatalf("expected *evbus.DispatchError, got %T: %v", err, err)
	}
	if dispatchErr.Event == nil {
		t.Fatal("expected DispatchError.Event to be set")
	}
}

func TestBusUnregisterAndClear(t *testing.T) {
	bus, err := evbus.New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var log []int
	r := &recorder{log: &log}
	if err := bus.Register(r); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if !bus.Unregister(r) {
		t.Fatal("expected Unregister to report true")
	}

	if err := bus.Bind(); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if _, err := bus.Post(&pingEvent{N: 1}); err != nil {
		t.Fatalf("Post: %v", err)
	}
	if len(log) != 0 {
		t.Fatalf("expected no handler invocations after Unregister, got %v", log)
	}

	if err := bus.Register(r); err != nil {
		t.Fatalf("Register: %v", err)
	}
	bus.Clear()
	if err := bus.Bind(); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if _, err := bus.Post(&pingEvent{N: 2}); err != nil {
		t.Fatalf("Post: %v", err)
	}
	if len(log) != 0 {
		t.Fatalf("expected no handler invocations after Clear, got %v", log)
	}
}

func TestBusShardReturnsUnderlyingShardUnlessExpander(t *testing.T) {
	bus, err := evbus.New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	s, ok := bus.Shard()
	if !ok || s == nil {
		t.Fatal("expected a single-shard Bus to expose its shard")
	}

	expBus, err := evbus.New(evbus.WithExpander(1))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, ok := expBus.Shard(); ok {
		t.Fatal("expected an expander-backed Bus to have no single shard")
	}
}

func TestBusWithExpanderPartitionsPastCapacity(t *testing.T) {
	bus, err := evbus.New(evbus.WithExpander(1))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var log []int
	for i := 0; i < 3; i++ {
		if err := bus.Register(&recorder{log: &log}); err != nil {
			t.Fatalf("Register: %v", err)
		}
	}

	if err := bus.Bind(); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	if _, err := bus.Post(&pingEvent{N: 9}); err != nil {
		t.Fatalf("Post: %v", err)
	}

	if len(log) != 3 {
		t.Fatalf("expected all 3 handlers across 3 shards to fire, got %v", log)
	}
}

func TestBusRegisterNilHandlerFails(t *testing.T) {
	bus, err := evbus.New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := bus.Register(nil); !errors.Is(err, evbus.ErrNilHandler) {
		t.Fatalf("expected ErrNilHandler, got %v", err)
	}
}

func TestBusCapacityExceededSurfacesDispatcherSentinel(t *testing.T) {
	bus, err := evbus.New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for i := 0; i <= dispatcher.MaxMethods; i++ {
		var log []int
		if err := bus.Register(&recorder{log: &log}); err != nil {
			if !errors.Is(err, evbus.ErrCapacityExceeded) {
				t.Fatalf("expected ErrCapacityExceeded, got %v", err)
			}
			return
		}
	}

	t.Fatal("expected Register to eventually fail with ErrCapacityExceeded")
}
