package middleware_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/kestrel-ev/evbus/event"
	"github.com/kestrel-ev/evbus/handler"
	"github.com/kestrel-ev/evbus/middleware"
)

type pingEvent struct {
	event.Base
}

type pingHandler struct {
	handler.Base
}

func (h *pingHandler) onPing(e *pingEvent) {}

func (h *pingHandler) Subscriptions() []handler.Subscription {
	return []handler.Subscription{handler.Subscribe(h.onPing)}
}

func testDescriptor(t *testing.T) *handler.Descriptor {
	t.Helper()

	descriptors, err := handler.Analyze(&pingHandler{})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	return descriptors[0]
}

func TestChainOrdersOuterToInner(t *testing.T) {
	var order []string

	record := func(name string) middleware.Middleware {
		return func(ctx context.Context, d *handler.Descriptor, e event.Event, next middleware.Handler) error {
			order = append(order, "in:"+name)
			err := next()
			order = append(order, "out:"+name)

			return err
		}
	}

	chain := middleware.Chain(record("A"), record("B"), record("C"))

	err := chain(context.Background(), testDescriptor(t), &pingEvent{}, func() error { return nil })
	if err != nil {
		t.Fatalf("chain returned error: %v", err)
	}

	want := []string{"in:A", "in:B", "in:C", "out:C", "out:B", "out:A"}
	if len(order) != len(want) {
		t.Fatalf("expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, order)
		}
	}
}

func TestRecoverConvertsPanicToError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mw := middleware.Recover(logger)

	err := mw(context.Background(), testDescriptor(t), &pingEvent{}, func() error {
		panic("boom")
	})
	if err == nil {
		t.Fatal("expected panic to be converted to an error")
	}
}

func TestRecoverPassesThroughNormalError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mw := middleware.Recover(logger)
	wantErr := errors.New("handler failed")

	err := mw(context.Background(), testDescriptor(t), &pingEvent{}, func() error {
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected %v, got %v", wantErr, err)
	}
}

func TestLoggingPassesThroughResult(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mw := middleware.Logging(logger)

	called := false
	err := mw(context.Background(), testDescriptor(t), &pingEvent{}, func() error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Fatal("expected next to be called")
	}
}

func TestTracingWithNoopProviderIsPassthrough(t *testing.T) {
	mw := middleware.TracingWithTracer(tracenoop.NewTracerProvider().Tracer("test"))

	called := false
	err := mw(context.Background(), testDescriptor(t), &pingEvent{}, func() error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Fatal("expected next to be called")
	}
}

func TestMetricsWithNoopProviderIsPassthrough(t *testing.T) {
	mw := middleware.MetricsWithMeter(noop.NewMeterProvider().Meter("test"))

	called := false
	err := mw(context.Background(), testDescriptor(t), &pingEvent{}, func() error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Fatal("expected next to be called")
	}
}
