package simulator

import (
	"context"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"

	"github.com/nerrad567/farmwatch-core/internal/device"
	"github.com/nerrad567/farmwatch-core/internal/infrastructure/rtdb"
)

// Logger defines the logging interface used by the simulator.
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

// Options configures a Simulator.
type Options struct {
	Devices  int
	Interval time.Duration
	// Seed makes ids and places reproducible; 0 is random.
	Seed int64
	// Location is the zone of the nodes' formatted clock.
	Location *time.Location
	// Prefix of device keys; empty means device.DefaultPrefix.
	Prefix string
	// Now defaults to time.Now.
	Now func() time.Time
}

// Simulator writes readings for a set of nodes.
type Simulator struct {
	store  rtdb.Store
	opts   Options
	nodes  []*Node
	logger Logger
}

// New creates a simulator with opts.Devices nodes.
func New(store rtdb.Store, opts Options) *Simulator {
	if opts.Devices < 1 {
		opts.Devices = 1
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Prefix == "" {
		opts.Prefix = device.DefaultPrefix
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	f := gofakeit.New(uint64(opts.Seed))
	nodes := make([]*Node, 0, opts.Devices)
	seen := make(map[string]bool)
	for len(nodes) < opts.Devices {
		n := NewNode(f, opts.Prefix)
		if seen[n.ID] {
			continue
		}
		seen[n.ID] = true
		nodes = append(nodes, n)
	}
	return &Simulator{store: store, opts: opts, nodes: nodes, logger: noopLogger{}}
}

// SetLogger sets the logger for the simulator.
func (s *Simulator) SetLogger(logger Logger) {
	s.logger = logger
}

// Nodes returns the simulated nodes.
func (s *Simulator) Nodes() []*Node {
	return append([]*Node(nil), s.nodes...)
}

// Node returns the node with id, or nil.
func (s *Simulator) Node(id string) *Node {
	for _, n := range s.nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// Register writes each node's place unless one is already set.
func (s *Simulator) Register(ctx context.Context) error {
	for _, n := range s.nodes {
		path := device.PlacePath(n.ID)
		snap, err := s.store.Get(ctx, path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		if place, ok := snap.Text(); ok && place != "" {
			n.Place = place
			continue
		}
		if err := s.store.Set(ctx, path, n.Place); err != nil {
			return fmt.Errorf("registering %s: %w", n.ID, err)
		}
		s.logger.Info("simulated device registered", "device", n.ID, "place", n.Place)
	}
	return nil
}

// Tick writes one reading per node.
func (s *Simulator) Tick(ctx context.Context) error {
	now := s.opts.Now()
	for _, n := range s.nodes {
		r := n.Next(now, s.opts.Location)
		path := rtdb.JoinPath(device.DataPath(n.ID), uuid.NewString())
		if err := s.store.Set(ctx, path, r.Record()); err != nil {
			return fmt.Errorf("writing reading for %s: %w", n.ID, err)
		}
		s.logger.Debug("reading written", "device", n.ID, "humidity", r.Humidity,
			"temperature", r.Temperature, "moisture", r.Moisture)
	}
	return nil
}

// Run registers the nodes and then writes readings every interval until
// ctx is cancelled. Failed writes are logged and retried on the next tick.
func (s *Simulator) Run(ctx context.Context) error {
	if err := s.Register(ctx); err != nil {
		return err
	}
	s.logger.Info("simulator started", "devices", len(s.nodes), "interval", s.opts.Interval)

	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()
	for {
		if err := s.Tick(ctx); err != nil && ctx.Err() == nil {
			s.logger.Warn("simulated reading failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
