package device

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/nerrad567/farmwatch-core/internal/infrastructure/rtdb"
	"github.com/nerrad567/farmwatch-core/internal/reading"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry mirrors the device keys of the store root.
//
// The cache is rebuilt from every root push. All public methods are
// thread-safe.
type Registry struct {
	store  rtdb.Store
	prefix string
	logger Logger

	mu        sync.RWMutex
	devices   map[string]*Device
	order     []string
	listeners []func([]Device)
}

// NewRegistry creates a registry over store. An empty prefix means
// DefaultPrefix.
func NewRegistry(store rtdb.Store, prefix string) *Registry {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Registry{
		store:   store,
		prefix:  prefix,
		logger:  noopLogger{},
		devices: make(map[string]*Device),
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// Prefix returns the device key prefix.
func (r *Registry) Prefix() string { return r.prefix }

// OnUpdate registers fn to receive the device list after every root
// push. Register before Run.
func (r *Registry) OnUpdate(fn func([]Device)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

// Run listens to the store root until ctx is cancelled. A failed or ended
// subscription is logged and returned.
func (r *Registry) Run(ctx context.Context) error {
	err := rtdb.Watch(ctx, r.store, "", r.Apply)
	if err != nil {
		r.logger.Error("device listener ended", "error", err)
	}
	return err
}

// Refresh reads the root once and applies it.
func (r *Registry) Refresh(ctx context.Context) error {
	snap, err := r.store.Get(ctx, "")
	if err != nil {
		return fmt.Errorf("loading devices: %w", err)
	}
	r.Apply(snap)
	return nil
}

// Apply rebuilds the cache from a root snapshot and notifies listeners.
func (r *Registry) Apply(root rtdb.Snapshot) {
	devices := make(map[string]*Device)
	var order []string
	for _, key := range root.Keys() {
		if !IsDeviceKey(key, r.prefix) {
			continue
		}
		devices[key] = decodeDevice(key, root.Child(key))
		order = append(order, key)
	}
	sort.Strings(order)

	r.mu.Lock()
	r.devices = devices
	r.order = order
	listeners := append([]func([]Device){}, r.listeners...)
	r.mu.Unlock()

	r.logger.Debug("devices refreshed", "count", len(order))

	list := r.Devices()
	for _, fn := range listeners {
		fn(list)
	}
}

func decodeDevice(id string, node rtdb.Snapshot) *Device {
	d := &Device{ID: id}
	d.Place, _ = node.Child(SegmentInfo).Child(SegmentPlace).Text()

	readings := reading.FromSnapshot(node.Child(SegmentData))
	d.ReadingCount = len(readings)
	if latest, ok := reading.Latest(readings); ok {
		d.Latest = &latest
	}
	return d
}

// Devices returns every device in key order.
// The returned devices are deep copies; callers can safely modify them.
func (r *Registry) Devices() []Device {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Device, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.devices[id].DeepCopy())
	}
	return out
}

// IDs returns the device keys in order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Device returns one device.
// Returns ErrDeviceNotFound if the device is not known.
func (r *Registry) Device(id string) (*Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.devices[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
	}
	return d.DeepCopy(), nil
}

// Count returns the number of known devices.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// PlacePath returns the store path of a device's place.
func PlacePath(id string) string {
	return rtdb.JoinPath(id, SegmentInfo, SegmentPlace)
}

// DataPath returns the store path of a device's readings.
func DataPath(id string) string {
	return rtdb.JoinPath(id, SegmentData)
}

// SetPlace writes a device's place name as a single-field write.
//
// Parameters:
//   - ctx: Context for the write
//   - id: Device key
//   - place: New place, trimmed
//
// Returns:
//   - error: ErrDeviceNotFound, ErrInvalidPlace, or ErrWriteFailed
func (r *Registry) SetPlace(ctx context.Context, id, place string) error {
	place, err := ValidatePlace(place)
	if err != nil {
		return err
	}
	if _, err := r.Device(id); err != nil {
		return err
	}
	if err := r.store.Set(ctx, PlacePath(id), place); err != nil {
		r.logger.Warn("place write failed", "device", id, "error", err)
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	r.logger.Info("device place updated", "device", id, "place", place)
	return nil
}
