package rtdb

import (
	"context"
	"fmt"
	"reflect"
	"sync"
)

// WriteHook observes a Set before it is applied. Returning an error
// rejects the write.
type WriteHook func(path string, value any) error

// MemoryStore is an in-process Store with the same semantics as the
// hosted database: full-path snapshots, initial delivery on subscribe,
// pruning of empty objects and a writable .info/connected flag.
//
// It backs the memory driver, the simulator's local mode and the package
// tests across the module.
type MemoryStore struct {
	mu        sync.Mutex
	root      any
	connected bool
	watchers  map[*memWatcher]struct{}
	hook      WriteHook
	closed    bool
}

type memWatcher struct {
	path string
	segs []string
	sub  *Subscription
	last any
}

// NewMemoryStore returns an empty, connected store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		connected: true,
		watchers:  make(map[*memWatcher]struct{}),
	}
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, path string) (Snapshot, error) {
	if err := validatePath(path); err != nil {
		return Snapshot{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return Snapshot{}, ErrStoreClosed
	}
	clean := CleanPath(path)
	return Snapshot{path: clean, value: m.valueAt(clean)}, nil
}

// Set implements Store.
func (m *MemoryStore) Set(_ context.Context, path string, value any) error {
	if err := validatePath(path); err != nil {
		return err
	}
	if isInfoPath(path) {
		return fmt.Errorf("%w: %s", ErrReadOnlyPath, path)
	}
	v, err := normalize(value)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStoreClosed
	}
	if m.hook != nil {
		if err := m.hook(CleanPath(path), v); err != nil {
			return err
		}
	}
	m.root = setAt(m.root, splitPath(path), v)
	m.notifyLocked()
	return nil
}

// Subscribe implements Store. The subscription also ends when ctx is done.
func (m *MemoryStore) Subscribe(ctx context.Context, path string) (*Subscription, error) {
	if err := validatePath(path); err != nil {
		return nil, err
	}
	clean := CleanPath(path)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrStoreClosed
	}

	w := &memWatcher{path: clean, segs: splitPath(clean)}
	w.sub = newSubscription(clean, func() { m.removeWatcher(w) })
	w.last = m.valueAt(clean)
	m.watchers[w] = struct{}{}
	w.sub.deliver(Snapshot{path: clean, value: w.last})

	context.AfterFunc(ctx, w.sub.Close)
	return w.sub, nil
}

// Connected implements Store.
func (m *MemoryStore) Connected(context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false, ErrStoreClosed
	}
	return m.connected, nil
}

// SetConnected flips the .info/connected flag and notifies its listeners.
func (m *MemoryStore) SetConnected(connected bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = connected
	m.notifyLocked()
}

// SetWriteHook installs h for every later Set. Nil removes it.
func (m *MemoryStore) SetWriteHook(h WriteHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hook = h
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	watchers := m.watchers
	m.watchers = map[*memWatcher]struct{}{}
	m.mu.Unlock()

	for w := range watchers {
		w.sub.end(ErrStoreClosed)
	}
	return nil
}

func (m *MemoryStore) removeWatcher(w *memWatcher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.watchers, w)
}

func (m *MemoryStore) valueAt(clean string) any {
	if clean == InfoConnectedPath {
		return m.connected
	}
	if isInfoPath(clean) {
		return nil
	}
	return getAt(m.root, splitPath(clean))
}

// notifyLocked pushes a snapshot to every watcher whose value changed.
func (m *MemoryStore) notifyLocked() {
	for w := range m.watchers {
		v := m.valueAt(w.path)
		if reflect.DeepEqual(v, w.last) {
			continue
		}
		w.last = v
		w.sub.deliver(Snapshot{path: w.path, value: v})
	}
}
