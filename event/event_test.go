package event_test

import (
	"reflect"
	"testing"

	"github.com/kestrel-ev/evbus/event"
)

type orderPlaced struct {
	event.Base

	OrderID string
}

type requestContext struct {
	TraceID string
}

type tenantContext struct {
	TenantID string
}

func TestContextChainNearestMatch(t *testing.T) {
	e := &orderPlaced{OrderID: "order-1"}

	e.SetContext(requestContext{TraceID: "trace-1"})
	e.SetContext(tenantContext{TenantID: "tenant-1"})

	got := e.Context(reflect.TypeOf(requestContext{}))
	rc, ok := got.(requestContext)
	if !ok {
		t.Fatalf("expected requestContext, got %T", got)
	}
	if rc.TraceID != "trace-1" {
		t.Fatalf("expected trace-1, got %s", rc.TraceID)
	}
}

func TestContextHeadWithNilType(t *testing.T) {
	e := &orderPlaced{OrderID: "order-1"}
	e.SetContext(requestContext{TraceID: "trace-1"})
	e.SetContext(tenantContext{TenantID: "tenant-1"})

	got := e.Context(nil)
	tc, ok := got.(tenantContext)
	if !ok {
		t.Fatalf("expected tenantContext head, got %T", got)
	}
	if tc.TenantID != "tenant-1" {
		t.Fatalf("expected tenant-1, got %s", tc.TenantID)
	}
}

func TestContextNoMatchReturnsNil(t *testing.T) {
	e := &orderPlaced{OrderID: "order-1"}
	e.SetContext(requestContext{TraceID: "trace-1"})

	got := e.Context(reflect.TypeOf(tenantContext{}))
	if got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestContextEmptyChain(t *testing.T) {
	e := &orderPlaced{OrderID: "order-1"}

	if got := e.Context(nil); got != nil {
		t.Fatalf("expected nil on empty chain, got %v", got)
	}
}

type orderCancelled struct {
	event.CancellableBase

	OrderID string
}

func TestCancellableDefaultFalse(t *testing.T) {
	e := &orderCancelled{OrderID: "order-1"}
	if e.IsCancelled() {
		t.Fatal("expected new event to not be cancelled")
	}
}

func TestCancellableCancel(t *testing.T) {
	e := &orderCancelled{OrderID: "order-1"}
	e.Cancel()
	if !e.IsCancelled() {
		t.Fatal("expected event to be cancelled after Cancel()")
	}
}

func TestCancellableSetCancelled(t *testing.T) {
	e := &orderCancelled{OrderID: "order-1"}
	e.SetCancelled(true)
	if !e.IsCancelled() {
		t.Fatal("expected cancelled flag to be set")
	}
	e.SetCancelled(false)
	if e.IsCancelled() {
		t.Fatal("expected cancelled flag to be cleared")
	}
}

func TestExceptionEventWrapsCauseAndSource(t *testing.T) {
	src := &orderPlaced{OrderID: "order-1"}
	cause := errTest{"boom"}

	ee := event.NewExceptionEvent(cause, src)
	if ee.Error() != "boom" {
		t.Fatalf("expected 'boom', got %q", ee.Error())
	}
	if ee.Source != event.Event(src) {
		t.Fatal("expected source to be preserved")
	}
	if ee.Reposted() {
		t.Fatal("expected fresh ExceptionEvent to not be marked reposted")
	}

	ee.MarkReposted()
	if !ee.Reposted() {
		t.Fatal("expected ExceptionEvent to be marked reposted")
	}
}

type errTest struct{ msg string }

func (e errTest) Error() string { return e.msg }
