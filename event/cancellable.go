package event

// Cancellable is implemented by events that can be short-circuited
// mid-dispatch. A dispatcher checks IsCancelled before invoking each
// successive handler, not after, so the handler that calls Cancel is
// always the last one to run.
type Cancellable interface {
	Event

	// Cancel marks the event as cancelled.
	Cancel()

	// SetCancelled explicitly sets the cancelled flag.
	SetCancelled(cancelled bool)

	// IsCancelled reports whether the event has been cancelled.
	IsCancelled() bool
}

// CancellableBase implements Cancellable. It embeds Base, so concrete
// cancellable event structs embed CancellableBase alone, not both.
//
// CancellableBase is not safe for concurrent access from multiple
// goroutines dispatching the same event instance — dispatch of a
// single event is expected to happen on one goroutine at a time (see
// the concurrency model notes on asyncbus.Bus).
type CancellableBase struct {
	Base

	cancelled bool
}

// Cancel marks the event cancelled.
func (c *CancellableBase) Cancel() { c.cancelled = true }

// SetCancelled sets the cancelled flag explicitly.
func (c *CancellableBase) SetCancelled(cancelled bool) { c.cancelled = cancelled }

// IsCancelled reports the current cancelled state.
func (c *CancellableBase) IsCancelled() bool { return c.cancelled }
