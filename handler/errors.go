package handler

import (
	"errors"
	"fmt"
)

// Sentinel reasons wrapped by SubscriptionError.
var (
	ErrNilCallback          = errors.New("handler: subscription callback is nil")
	ErrNotConcreteType      = errors.New("handler: subscription parameter must be a concrete struct or pointer-to-struct type implementing event.Event, not an interface")
	ErrFilterNotConstructible = errors.New("handler: filter type must be a struct type reflect.New can instantiate")
	ErrFilterWrongType      = errors.New("handler: filter type does not implement filter.Filter")
)

// SubscriptionError reports why a Subscription failed analysis. It
// names the offending method so a caller registering many handlers at
// once can identify which subscription is malformed.
type SubscriptionError struct {
	// Method is a human-readable label for the offending subscription,
	// typically "<HandlerType>.Subscriptions()[<index>]".
	Method string

	// Reason is one of the Err* sentinels above, or a wrapped error
	// from filter construction.
	Reason error
}

func (e *SubscriptionError) Error() string {
	return fmt.Sprintf("handler: subscription error in %s: %v", e.Method, e.Reason)
}

// Unwrap supports errors.Is/errors.As against Reason.
func (e *SubscriptionError) Unwrap() error { return e.Reason }
