package rtdb

import (
	"context"
	"sync"
)

// Store is the shared real-time database the sensor nodes and dashboards
// meet in. Paths are slash separated; "" is the root.
type Store interface {
	// Get reads the current value of a path once.
	Get(ctx context.Context, path string) (Snapshot, error)

	// Set overwrites a path. A nil value removes it. Last writer wins.
	Set(ctx context.Context, path string, value any) error

	// Subscribe starts a live listener. The first snapshot is the current
	// value; every later one is the full value after a change.
	Subscribe(ctx context.Context, path string) (*Subscription, error)

	// Connected reports whether the store is reachable right now.
	Connected(ctx context.Context) (bool, error)

	// Close ends every subscription and releases the client.
	Close() error
}

// Logger is the logging surface used by store clients.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// Subscription is a live, non-restartable stream of snapshots for one path.
//
// Delivery conflates: a consumer that falls behind sees only the newest
// snapshot, never a backlog. The channel is closed when the subscription
// ends; Err then reports why (nil after Close or context cancellation).
type Subscription struct {
	path string
	ch   chan Snapshot

	mu     sync.Mutex
	closed bool
	err    error

	release func()
	once    sync.Once
}

func newSubscription(path string, release func()) *Subscription {
	return &Subscription{
		path:    path,
		ch:      make(chan Snapshot, 1),
		release: release,
	}
}

// Path returns the watched path.
func (s *Subscription) Path() string { return s.path }

// Snapshots returns the delivery channel.
func (s *Subscription) Snapshots() <-chan Snapshot { return s.ch }

// Err reports why the subscription ended.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close stops the listener and releases its resources. Idempotent.
func (s *Subscription) Close() {
	s.end(nil)
	s.once.Do(func() {
		if s.release != nil {
			s.release()
		}
	})
}

// deliver hands snap to the consumer, replacing any snapshot it has not
// taken yet. Each subscription has a single producer.
func (s *Subscription) deliver(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- snap:
		return
	default:
	}
	select {
	case <-s.ch:
	default:
	}
	s.ch <- snap
}

// end closes the channel with err as the reason. First call wins.
func (s *Subscription) end(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.err = err
	close(s.ch)
}

// Watch subscribes to path and calls fn for every snapshot until ctx is
// cancelled or the subscription ends. The subscription is always released
// before Watch returns.
//
// Parameters:
//   - ctx: Scope of the listener; cancelling it ends Watch with nil
//   - store: Store to subscribe on
//   - path: Watched path
//   - fn: Called serially from the Watch goroutine
//
// Returns:
//   - error: Subscribe failure or the reason the stream ended
func Watch(ctx context.Context, store Store, path string, fn func(Snapshot)) error {
	sub, err := store.Subscribe(ctx, path)
	if err != nil {
		return err
	}
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case snap, ok := <-sub.Snapshots():
			if !ok {
				return sub.Err()
			}
			fn(snap)
		}
	}
}
