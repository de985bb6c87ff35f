package asyncbus

import (
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// DefaultWorkers is the worker count used when WithWorkers is omitted.
const DefaultWorkers = 4

// DefaultQueueSize is the event channel's default buffer size. Zero
// means unbuffered: Post blocks until a worker is ready to receive.
const DefaultQueueSize = 0

// DefaultSleepDelay matches the original Dispatcher.THREAD_SLEEP_DELAY:
// how long a worker idles on an empty queue before its select loop
// re-evaluates the stop channel.
const DefaultSleepDelay = 1 * time.Second

// Option configures a Bus at construction time.
type Option func(*Bus)

// WithWorkers sets the number of worker goroutines StartWorkers spins
// up. Values below 1 are ignored.
func WithWorkers(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.workers = n
		}
	}
}

// WithQueueSize sets the event channel's buffer size. Negative values
// are ignored.
func WithQueueSize(n int) Option {
	return func(b *Bus) {
		if n >= 0 {
			b.queueSize = n
		}
	}
}

// WithSleepDelay overrides the idle-tick interval used when manual
// management is not enabled.
func WithSleepDelay(d time.Duration) Option {
	return func(b *Bus) {
		if d > 0 {
			b.sleepDelay = d
		}
	}
}

// WithManualManagement disables the idle timer path: workers select
// only on the event and stop channels, matching the original's
// "manual dispatcher management" mode.
func WithManualManagement() Option {
	return func(b *Bus) { b.manual = true }
}

// WithAdmissionLimiter attaches a token-bucket limiter consulted by
// TryPost (never by Post) to reject admission fast instead of blocking
// on a full queue.
func WithAdmissionLimiter(l *rate.Limiter) Option {
	return func(b *Bus) { b.limiter = l }
}

// WithLogger sets the logger workers use for start/stop debug entries.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bus) { b.logger = l }
}

// WithWorkerObserver attaches o, notified around every dispatched
// event so a caller can track in-flight worker invocations.
func WithWorkerObserver(o WorkerObserver) Option {
	return func(b *Bus) { b.observer = o }
}
