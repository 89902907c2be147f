package pump

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/nerrad567/farmwatch-core/internal/infrastructure/rtdb"
)

// Logger defines the logging interface used by the Controller.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Command is a successful single-field change.
type Command struct {
	Pump  string `json:"pump"`
	Field string `json:"field"`
	Value string `json:"value"`
	// Previous is the value before the command.
	Previous string `json:"previous"`
}

// CommandPublisher relays commands to device-side agents. Failures are
// logged and don't affect the command.
type CommandPublisher interface {
	PublishPumpCommand(cmd Command) error
}

// Controller mirrors the pump records and issues commands.
//
// All public methods are thread-safe.
type Controller struct {
	store     rtdb.Store
	path      string
	logger    Logger
	publisher CommandPublisher

	mu        sync.RWMutex
	pumps     map[string]Pump
	listeners []func([]Pump)
}

// NewController creates a controller for the records under path. An
// empty path means DefaultPath.
func NewController(store rtdb.Store, path string) *Controller {
	if path == "" {
		path = DefaultPath
	}
	return &Controller{
		store:  store,
		path:   path,
		logger: noopLogger{},
		pumps:  make(map[string]Pump),
	}
}

// SetLogger sets the logger for the controller.
func (c *Controller) SetLogger(logger Logger) {
	c.logger = logger
}

// SetPublisher sets where successful commands are relayed. Nil disables it.
func (c *Controller) SetPublisher(p CommandPublisher) {
	c.publisher = p
}

// Path returns the pump records path.
func (c *Controller) Path() string { return c.path }

// OnChange registers fn to receive the pump list after every change,
// including optimistic updates and rollbacks. Register before Run.
func (c *Controller) OnChange(fn func([]Pump)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Run listens to the pump path until ctx is cancelled.
func (c *Controller) Run(ctx context.Context) error {
	err := rtdb.Watch(ctx, c.store, c.path, c.Apply)
	if err != nil {
		c.logger.Error("pump listener ended", "path", c.path, "error", err)
	}
	return err
}

// Refresh reads the pump records once.
func (c *Controller) Refresh(ctx context.Context) error {
	snap, err := c.store.Get(ctx, c.path)
	if err != nil {
		return fmt.Errorf("loading pumps: %w", err)
	}
	c.Apply(snap)
	return nil
}

// Apply replaces local state with a pushed snapshot of the pump path.
func (c *Controller) Apply(snap rtdb.Snapshot) {
	pumps := make(map[string]Pump)
	for _, id := range snap.Keys() {
		pumps[id] = decode(id, snap.Child(id))
	}

	c.mu.Lock()
	c.pumps = pumps
	c.mu.Unlock()

	c.logger.Debug("pumps refreshed", "count", len(pumps))
	c.notify()
}

// List returns every pump sorted by ID.
func (c *Controller) List() []Pump {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Pump, 0, len(c.pumps))
	for _, p := range c.pumps {
		out = append(out, p.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Get returns one pump.
func (c *Controller) Get(id string) (Pump, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.pumps[id]
	if !ok {
		return Pump{}, fmt.Errorf("%w: %s", ErrPumpNotFound, id)
	}
	return p.clone(), nil
}

// ToggleMode switches a pump between manual and auto.
func (c *Controller) ToggleMode(ctx context.Context, id string) (Pump, error) {
	return c.command(ctx, id, FieldMode, func(p *Pump) (string, string, error) {
		prev := p.Mode
		p.Mode = prev.Toggle()
		return string(prev), string(p.Mode), nil
	}, func(p *Pump, prev string) { p.Mode = Mode(prev) })
}

// ToggleStatus switches a manual pump on or off.
// Returns ErrNotManual for a pump in auto mode.
func (c *Controller) ToggleStatus(ctx context.Context, id string) (Pump, error) {
	return c.command(ctx, id, FieldStatus, func(p *Pump) (string, string, error) {
		if p.Mode != ModeManual {
			return "", "", fmt.Errorf("%w: %s", ErrNotManual, p.ID)
		}
		prev := p.Status
		p.Status = prev.Toggle()
		return string(prev), string(p.Status), nil
	}, func(p *Pump, prev string) { p.Status = Status(prev) })
}

// SetDevice links an auto pump to a sensor node.
// Returns ErrNotAuto for a pump in manual mode.
func (c *Controller) SetDevice(ctx context.Context, id, device string) (Pump, error) {
	if device == "" {
		return Pump{}, ErrInvalidDevice
	}
	return c.command(ctx, id, FieldDevice, func(p *Pump) (string, string, error) {
		if p.Mode != ModeAuto {
			return "", "", fmt.Errorf("%w: %s", ErrNotAuto, p.ID)
		}
		prev := p.Device
		p.Device = device
		return prev, device, nil
	}, func(p *Pump, prev string) { p.Device = prev })
}

// command applies mutate optimistically, writes the one changed field and
// undoes the change with restore if the write fails.
//
// Parameters:
//   - ctx: Context for the write
//   - id: Pump ID
//   - field: Record field being written
//   - mutate: Changes the pump, returning the previous and new values
//   - restore: Puts the previous value back
//
// Returns:
//   - Pump: State after the command (or after rollback)
//   - error: ErrPumpNotFound, mutate's error, or ErrWriteFailed
func (c *Controller) command(
	ctx context.Context,
	id, field string,
	mutate func(*Pump) (prev, next string, err error),
	restore func(p *Pump, prev string),
) (Pump, error) {
	c.mu.Lock()
	p, ok := c.pumps[id]
	if !ok {
		c.mu.Unlock()
		return Pump{}, fmt.Errorf("%w: %s", ErrPumpNotFound, id)
	}
	p = p.clone()
	prev, next, err := mutate(&p)
	if err != nil {
		c.mu.Unlock()
		return Pump{}, err
	}
	c.pumps[id] = p
	c.mu.Unlock()
	c.notify()

	path := rtdb.JoinPath(c.path, id, field)
	if err := c.store.Set(ctx, path, next); err != nil {
		c.rollback(id, field, next, prev, restore)
		c.logger.Warn("pump command failed", "pump", id, "field", field, "value", next, "error", err)
		rolled, _ := c.Get(id) //nolint:errcheck // id existed above; a concurrent push may drop it
		return rolled, fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}

	c.logger.Info("pump command", "pump", id, "field", field, "value", next, "previous", prev)
	if c.publisher != nil {
		cmd := Command{Pump: id, Field: field, Value: next, Previous: prev}
		if err := c.publisher.PublishPumpCommand(cmd); err != nil {
			c.logger.Warn("pump command relay failed", "pump", id, "error", err)
		}
	}
	return c.Get(id)
}

// rollback restores prev unless a push has already replaced the
// optimistic value.
func (c *Controller) rollback(id, field, optimistic, prev string, restore func(*Pump, string)) {
	c.mu.Lock()
	p, ok := c.pumps[id]
	if !ok || fieldValue(p, field) != optimistic {
		c.mu.Unlock()
		return
	}
	p = p.clone()
	restore(&p, prev)
	c.pumps[id] = p
	c.mu.Unlock()
	c.notify()
}

func fieldValue(p Pump, field string) string {
	switch field {
	case FieldMode:
		return string(p.Mode)
	case FieldStatus:
		return string(p.Status)
	case FieldDevice:
		return p.Device
	}
	return ""
}

func (c *Controller) notify() {
	c.mu.RLock()
	listeners := append([]func([]Pump){}, c.listeners...)
	c.mu.RUnlock()
	if len(listeners) == 0 {
		return
	}
	list := c.List()
	for _, fn := range listeners {
		fn(list)
	}
}

// EnsureDefaults creates each of ids that is missing with DefaultRecord.
// Existing records are never overwritten. It returns the IDs created.
func EnsureDefaults(ctx context.Context, store rtdb.Store, path string, ids []string) ([]string, error) {
	if path == "" {
		path = DefaultPath
	}
	var created []string
	for _, id := range ids {
		p := rtdb.JoinPath(path, id)
		snap, err := store.Get(ctx, p)
		if err != nil {
			return created, fmt.Errorf("reading %s: %w", p, err)
		}
		if snap.Exists() {
			continue
		}
		if err := store.Set(ctx, p, DefaultRecord()); err != nil {
			return created, fmt.Errorf("creating %s: %w", p, err)
		}
		created = append(created, id)
	}
	return created, nil
}
