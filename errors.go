package evbus

import (
	"errors"
	"fmt"

	"github.com/kestrel-ev/evbus/dispatcher"
	"github.com/kestrel-ev/evbus/event"
)

// ErrCapacityExceeded is returned by Register/RegisterDescriptor when
// the underlying shard is full. It is the same sentinel
// dispatcher.Shard returns, re-exported so callers never need to
// import dispatcher just to errors.Is against it. Does not apply to a
// Bus built WithExpander, which has no fixed capacity.
var ErrCapacityExceeded = dispatcher.ErrCapacityExceeded

// ErrNotBound is returned by Post when called before the first
// successful Bind.
var ErrNotBound = dispatcher.ErrNotBound

// ErrNilHandler is returned by Register when passed a nil handler.
var ErrNilHandler = errors.New("evbus: nil handler")

// DispatchError wraps the error a failing handler or filter produced
// while dispatching Event, as surfaced by Bus.Post. Unwrap it to reach
// the underlying cause with errors.Is/errors.As.
type DispatchError struct {
	Event event.Event
	Err   error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("evbus: dispatch error for %T: %v", e.Event, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }
