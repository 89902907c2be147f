package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/farmwatch-core/internal/device"
	"github.com/nerrad567/farmwatch-core/internal/infrastructure/rtdb"
	"github.com/nerrad567/farmwatch-core/internal/presence"
	"github.com/nerrad567/farmwatch-core/internal/pump"
	"github.com/nerrad567/farmwatch-core/internal/reading"
	"github.com/nerrad567/farmwatch-core/internal/settings"
)

// ConnectionErrorMessage is shown by every view after a failed
// connectivity check.
const ConnectionErrorMessage = "Unable to connect to the database. Check the network connection and store settings, then restart the service."

const defaultConnectTimeout = 10 * time.Second

// Logger defines the logging interface used by the Monitor.
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

// Phase of the monitor lifecycle.
type Phase string

// Phases.
const (
	PhaseStarting Phase = "starting"
	PhaseReady    Phase = "ready"
	PhaseError    Phase = "error"
)

// Status is the monitor's health.
type Status struct {
	Phase     Phase            `json:"phase"`
	Message   string           `json:"message,omitempty"`
	Error     string           `json:"error,omitempty"`
	Bootstrap *BootstrapReport `json:"bootstrap,omitempty"`
	ReadyAt   time.Time        `json:"ready_at,omitzero"`
}

// Options tunes the monitor.
type Options struct {
	// HistoryWindow is the chart length; 0 keeps every reading.
	HistoryWindow int
	// PresencePollInterval re-evaluates presence without new readings.
	PresencePollInterval time.Duration
	// ConnectTimeout bounds the startup connectivity check.
	ConnectTimeout time.Duration
	// Bootstrap creates default settings and pumps where absent.
	Bootstrap bool
}

// Components are the state stores the monitor drives.
type Components struct {
	Store     rtdb.Store
	Registry  *device.Registry
	Selection *device.Selection
	Settings  *settings.Store
	Pumps     *pump.Controller
	Presence  *presence.Tracker
}

// Monitor owns the listeners and the derived state of the selected device.
//
// All public methods are thread-safe.
type Monitor struct {
	Components
	opts   Options
	logger Logger
	sinks  sinks

	mu       sync.RWMutex
	status   Status
	gen      uint64
	device   string
	place    string
	readings []reading.Reading
	derived  Derived
	archived map[string]int64
}

// New creates a monitor and registers its callbacks on the components.
// Call before any component's Run.
func New(c Components, opts Options) *Monitor {
	if opts.PresencePollInterval <= 0 {
		opts.PresencePollInterval = 2 * time.Second
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = defaultConnectTimeout
	}
	m := &Monitor{
		Components: c,
		opts:       opts,
		logger:     noopLogger{},
		status:     Status{Phase: PhaseStarting},
		archived:   make(map[string]int64),
	}
	m.derived = Derive("", "", nil, c.Settings.Current(), opts.HistoryWindow)

	c.Registry.OnUpdate(c.Selection.Refresh)
	c.Registry.OnUpdate(m.onDevices)
	c.Settings.OnChange(m.onSettings)
	c.Pumps.OnChange(m.onPumps)
	return m
}

// SetLogger sets the logger for the monitor.
func (m *Monitor) SetLogger(logger Logger) {
	m.logger = logger
}

// AddSink registers a sink. Call before Run.
func (m *Monitor) AddSink(s Sink) {
	m.sinks = append(m.sinks, s)
}

// HistoryWindow returns the configured chart length.
func (m *Monitor) HistoryWindow() int { return m.opts.HistoryWindow }

// Status returns the current lifecycle status.
func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Ready returns nil once listeners are attached, ErrNotReady while
// starting and an ErrNotConnected error after a failed check.
func (m *Monitor) Ready() error {
	st := m.Status()
	switch st.Phase {
	case PhaseReady:
		return nil
	case PhaseError:
		return fmt.Errorf("%w: %s", ErrNotConnected, st.Message)
	default:
		return ErrNotReady
	}
}

// Current returns the derived state of the selected device.
func (m *Monitor) Current() Derived {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.derived
}

// Run performs the startup sequence and then runs every listener until
// ctx is cancelled. A failed connectivity check puts the monitor in the
// error phase and returns immediately; there is no retry.
func (m *Monitor) Run(ctx context.Context) error {
	if err := m.checkConnected(ctx); err != nil {
		m.setStatus(Status{Phase: PhaseError, Message: ConnectionErrorMessage, Error: err.Error()})
		m.logger.Error("store connectivity check failed", "error", err)
		return err
	}

	var report *BootstrapReport
	if m.opts.Bootstrap {
		r, err := EnsureStructure(ctx, m.Store, m.Settings.Path(), m.Pumps.Path())
		if err != nil {
			// Not fatal: listeners still show whatever exists.
			m.logger.Warn("store bootstrap failed", "error", err)
		} else if !r.Empty() {
			m.logger.Info("store structure created", "settings", r.SettingsCreated, "pumps", r.PumpsCreated)
		}
		report = &r
	}

	var wg sync.WaitGroup
	run := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil && ctx.Err() == nil {
				m.logger.Warn("listener stopped", "listener", name, "error", err)
			}
		}()
	}
	run("registry", m.Registry.Run)
	run("settings", m.Settings.Run)
	run("pumps", m.Pumps.Run)
	run("pipeline", func(ctx context.Context) error {
		m.followSelection(ctx)
		return nil
	})
	run("presence", func(ctx context.Context) error {
		m.Presence.Run(ctx, m.opts.PresencePollInterval, m.sinks.PresenceChanged)
		return nil
	})

	m.setStatus(Status{Phase: PhaseReady, Bootstrap: report, ReadyAt: time.Now()})
	m.logger.Info("monitor ready", "history_window", m.opts.HistoryWindow)

	<-ctx.Done()
	wg.Wait()
	return nil
}

func (m *Monitor) checkConnected(ctx context.Context) error {
	cctx, cancel := context.WithTimeout(ctx, m.opts.ConnectTimeout)
	defer cancel()

	ok, err := m.Store.Connected(cctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNotConnected, err)
	}
	if !ok {
		return ErrNotConnected
	}
	return nil
}

func (m *Monitor) setStatus(st Status) {
	m.mu.Lock()
	m.status = st
	m.mu.Unlock()
}

// onDevices handles a registry refresh: presence for every device's
// latest reading and archiving of readings not seen before.
func (m *Monitor) onDevices(devices []device.Device) {
	m.sinks.DevicesUpdated(devices)

	var changes []presence.Status
	present := make(map[string]bool, len(devices))
	for _, d := range devices {
		present[d.ID] = true
		if d.Latest == nil {
			continue
		}
		if st, changed := m.Presence.Observe(d.ID, *d.Latest); changed {
			changes = append(changes, st)
		}
		if m.markArchived(d.ID, d.Latest.Timestamp) {
			m.sinks.ReadingObserved(d.ID, d.Place, *d.Latest)
		}
	}
	for _, st := range m.Presence.All() {
		if !present[st.Device] {
			m.Presence.Forget(st.Device)
		}
	}
	m.sinks.PresenceChanged(changes)
}

// markArchived records ts as the newest reading of id and reports whether
// it advanced.
func (m *Monitor) markArchived(id string, ts int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if last, ok := m.archived[id]; ok && ts <= last {
		return false
	}
	m.archived[id] = ts
	return true
}

func (m *Monitor) onSettings(s settings.Settings) {
	m.sinks.SettingsUpdated(s)

	// Thresholds changed: reclassify what is on screen.
	m.mu.Lock()
	m.derived = Derive(m.device, m.place, m.readings, s, m.opts.HistoryWindow)
	d := m.derived
	m.mu.Unlock()
	m.sinks.ReadingsUpdated(d)
}

func (m *Monitor) onPumps(pumps []pump.Pump) {
	m.sinks.PumpsUpdated(pumps)
}
