package dispatcher

import "errors"

var (
	// ErrCapacityExceeded is returned by Register/RegisterAll when the
	// new total descriptor count would exceed MaxMethods.
	ErrCapacityExceeded = errors.New("dispatcher: capacity exceeded")

	// ErrNotBound is returned by Post when called before the first
	// successful Bind.
	ErrNotBound = errors.New("dispatcher: shard not bound")
)
