// Package asyncbus wraps a dispatcher.Shard with a FIFO event queue and
// a pool of worker goroutines, each holding its own private shard
// snapshot, so posting never blocks on dispatch work itself. It is the
// Go re-expression of the original's AsyncEventBus/Dispatcher pair:
// the Java wait/notify sleeping-thread list becomes idle channel
// receives, and the two historically separate cancellable/
// non-cancellable queues are unified into one event.Event channel.
package asyncbus
