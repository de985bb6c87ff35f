package expander_test

import (
	"testing"

	"github.com/kestrel-ev/evbus/dispatcher"
	"github.com/kestrel-ev/evbus/event"
	"github.com/kestrel-ev/evbus/expander"
	"github.com/kestrel-ev/evbus/handler"
)

type pingEvent struct {
	event.Base
}

type probe struct {
	handler.Base

	label    string
	log      *[]string
	priority int
}

func newProbe(label string, log *[]string) *probe { return &probe{label: label, log: log} }

func (p *probe) onPing(*pingEvent) { *p.log = append(*p.log, p.label) }

func (p *probe) Subscriptions() []handler.Subscription {
	return []handler.Subscription{
		handler.Subscribe(p.onPing, handler.WithPriority(p.priority)),
	}
}

func descriptorsFor(t *testing.T, h handler.Handler) []*handler.Descriptor {
	t.Helper()

	ds, err := handler.Analyze(h)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	return ds
}

func TestBindWithZeroPendingProducesOneEmptyShard(t *testing.T) {
	ex := expander.New(dispatcher.New(), 10)

	if err := ex.Bind(); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	if len(ex.Shards()) != 1 {
		t.Fatalf("expected exactly one shard for an empty expander, got %d", len(ex.Shards()))
	}

	if _, err := ex.Post(&pingEvent{}); err != nil {
		t.Fatalf("Post: %v", err)
	}
}

func TestPartitioning101HandlersAtMaxPerShard1(t *testing.T) {
	ex := expander.New(dispatcher.New(), 1)

	var log []string

	for i := 0; i < 101; i++ {
		ex.RegisterAll(descriptorsFor(t, newProbe("h", &log)))
	}

	if err := ex.Bind(); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	if len(ex.Shards()) != 101 {
		t.Fatalf("expected 101 shards at maxPerShard=1, got %d", len(ex.Shards()))
	}

	if _, err := ex.Post(&pingEvent{}); err != nil {
		t.Fatalf("Post: %v", err)
	}

	if len(log) != 101 {
		t.Fatalf("expected all 101 handlers to run, got %d", len(log))
	}
}

func TestMaxPerShardIsClampedToValidRange(t *testing.T) {
	if got := expander.New(dispatcher.New(), 0); got == nil {
		t.Fatal("expected New to default maxPerShard rather than panic")
	}
	if got := expander.New(dispatcher.New(), -5); got == nil {
		t.Fatal("expected New to clamp a negative maxPerShard rather than panic")
	}
	if got := expander.New(dispatcher.New(), dispatcher.MaxMethods+1000); got == nil {
		t.Fatal("expected New to clamp an oversized maxPerShard rather than panic")
	}
}

func TestSplitBucketPreservesPriorityOrderAcrossShards(t *testing.T) {
	var log []string

	ex := expander.New(dispatcher.New(), 2)

	// Five handlers for the same event type, maxPerShard=2: the bucket
	// must split across three shards, but Post must still observe them
	// in strict descending-priority order.
	low := newProbe("low", &log)
	low.priority = 1
	mid := newProbe("mid", &log)
	mid.priority = 5
	high := newProbe("high", &log)
	high.priority = 10
	tie1 := newProbe("tie1", &log)
	tie1.priority = 5
	tie2 := newProbe("tie2", &log)
	tie2.priority = 5

	// Registered out of priority order, as a caller naturally would.
	for _, p := range []*probe{low, high, mid, tie1, tie2} {
		ex.RegisterAll(descriptorsFor(t, p))
	}

	if err := ex.Bind(); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	if _, err := ex.Post(&pingEvent{}); err != nil {
		t.Fatalf("Post: %v", err)
	}

	want := []string{"high", "mid", "tie1", "tie2", "low"}
	if len(log) != len(want) {
		t.Fatalf("expected %v, got %v", want, log)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, log)
		}
	}
}

func TestClearDropsPendingAndBoundShards(t *testing.T) {
	var log []string

	ex := expander.New(dispatcher.New(), 10)
	ex.RegisterAll(descriptorsFor(t, newProbe("p", &log)))

	if err := ex.Bind(); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if len(ex.Shards()) == 0 {
		t.Fatal("expected at least one shard after Bind")
	}

	ex.Clear()

	if len(ex.Shards()) != 0 {
		t.Fatalf("expected no shards after Clear, got %d", len(ex.Shards()))
	}

	if _, err := ex.Post(&pingEvent{}); err != nil {
		t.Fatalf("Post after Clear: %v", err)
	}
	if len(log) != 0 {
		t.Fatalf("expected no handlers to run after Clear, got %v", log)
	}
}

func TestUnregisterRemovesPendingDescriptor(t *testing.T) {
	var log []string

	ex := expander.New(dispatcher.New(), 10)
	p := newProbe("p", &log)
	ds := descriptorsFor(t, p)
	ex.RegisterAll(ds)

	if !ex.Unregister(ds[0]) {
		t.Fatal("expected Unregister to report true for a pending descriptor")
	}
	if ex.Unregister(ds[0]) {
		t.Fatal("expected a second Unregister of the same descriptor to report false")
	}

	if err := ex.Bind(); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if _, err := ex.Post(&pingEvent{}); err != nil {
		t.Fatalf("Post: %v", err)
	}
	if len(log) != 0 {
		t.Fatalf("expected no handlers to run, got %v", log)
	}
}

func TestPostCancellationStopsAcrossShards(t *testing.T) {
	var log []string

	ex := expander.New(dispatcher.New(), 1)

	first := &cancelProbe{label: "first", log: &log, priority: 10, cancel: true}
	second := &cancelProbe{label: "second", log: &log, priority: 5}

	ex.RegisterAll(descriptorsFor(t, first))
	ex.RegisterAll(descriptorsFor(t, second))

	if err := ex.Bind(); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	if _, err := ex.Post(&cancelEvent{}); err != nil {
		t.Fatalf("Post: %v", err)
	}

	if len(log) != 1 || log[0] != "first" {
		t.Fatalf("expected only the cancelling handler's shard to run, got %v", log)
	}
}

type cancelEvent struct {
	event.CancellableBase
}

type cancelProbe struct {
	handler.Base

	label    string
	log      *[]string
	priority int
	cancel   bool
}

func (p *cancelProbe) onCancel(e *cancelEvent) {
	*p.log = append(*p.log, p.label)
	if p.cancel {
		e.Cancel()
	}
}

func (p *cancelProbe) Subscriptions() []handler.Subscription {
	return []handler.Subscription{
		handler.Subscribe(p.onCancel, handler.WithPriority(p.priority)),
	}
}
