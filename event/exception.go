package event

// ExceptionEvent wraps a handler or filter failure so it can be
// re-posted through the same dispatcher that produced it, giving
// registered handlers a chance to observe and react to dispatch
// failures without the caller having to poll for errors out of band.
type ExceptionEvent struct {
	Base

	// Err is the original failure (a panic value wrapped in an error,
	// or an error a handler returned through the middleware chain).
	Err error

	// Source is the event whose dispatch produced Err.
	Source Event

	// reposted guards against infinite recursion: if a handler of
	// ExceptionEvent itself panics, the resulting failure is not
	// wrapped a second time.
	reposted bool
}

// NewExceptionEvent builds an ExceptionEvent for a given cause and the
// event whose dispatch triggered it.
func NewExceptionEvent(err error, source Event) *ExceptionEvent {
	return &ExceptionEvent{Err: err, Source: source}
}

// Reposted reports whether this ExceptionEvent has already been
// through one re-post cycle.
func (e *ExceptionEvent) Reposted() bool { return e.reposted }

// MarkReposted flags the event as having been re-posted once, so a
// dispatcher can refuse to wrap it again.
func (e *ExceptionEvent) MarkReposted() { e.reposted = true }

// Error implements the error interface so an ExceptionEvent can itself
// be returned or logged as an error value.
func (e *ExceptionEvent) Error() string {
	if e.Err == nil {
		return "evbus: dispatch error"
	}

	return e.Err.Error()
}

// Unwrap supports errors.Is/errors.As against the wrapped cause.
func (e *ExceptionEvent) Unwrap() error { return e.Err }
