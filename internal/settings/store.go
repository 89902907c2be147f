package settings

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/nerrad567/farmwatch-core/internal/infrastructure/rtdb"
)

// Messages shown after a save.
const (
	MsgSaved      = "Settings saved successfully"
	MsgSaveFailed = "Failed to save settings"
)

// ErrSaveFailed wraps store errors from Save.
var ErrSaveFailed = errors.New("settings: save failed")

// Logger defines the logging interface used by the Store.
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

// Store mirrors the settings record and writes it back.
//
// All public methods are thread-safe.
type Store struct {
	store  rtdb.Store
	path   string
	logger Logger

	mu        sync.RWMutex
	current   Settings
	loaded    bool
	listeners []func(Settings)
}

// NewStore creates a settings store for path, starting from Defaults.
func NewStore(store rtdb.Store, path string) *Store {
	return &Store{
		store:   store,
		path:    path,
		logger:  noopLogger{},
		current: Defaults(),
	}
}

// SetLogger sets the logger for the store.
func (s *Store) SetLogger(logger Logger) {
	s.logger = logger
}

// Path returns the settings path.
func (s *Store) Path() string { return s.path }

// OnChange registers fn to be called with the new settings after every
// pushed or saved change. Register before Run.
func (s *Store) OnChange(fn func(Settings)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Run listens to the settings path until ctx is cancelled.
func (s *Store) Run(ctx context.Context) error {
	err := rtdb.Watch(ctx, s.store, s.path, s.apply)
	if err != nil {
		s.logger.Error("settings subscription ended", "path", s.path, "error", err)
	}
	return err
}

// Load reads the record once. Used by the CLI, which doesn't listen.
func (s *Store) Load(ctx context.Context) error {
	snap, err := s.store.Get(ctx, s.path)
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}
	s.apply(snap)
	return nil
}

// Current returns the latest known settings.
func (s *Store) Current() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Loaded reports whether a record has been received from the store.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Save validates next and overwrites the whole record with it.
//
// Parameters:
//   - ctx: Context for the write
//   - next: The complete settings to store
//
// Returns:
//   - error: ErrInvalidThreshold, or ErrSaveFailed wrapping the store error
func (s *Store) Save(ctx context.Context, next Settings) error {
	if err := next.Validate(); err != nil {
		return err
	}
	if err := s.store.Set(ctx, s.path, next.Record()); err != nil {
		s.logger.Warn("settings save failed", "path", s.path, "error", err)
		return fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	s.logger.Info("settings saved", "path", s.path)
	s.update(next, true)
	return nil
}

func (s *Store) apply(snap rtdb.Snapshot) {
	s.mu.RLock()
	base := s.current
	s.mu.RUnlock()

	merged := Merge(base, snap)
	s.logger.Debug("settings received", "exists", snap.Exists())
	s.update(merged, snap.Exists())
}

func (s *Store) update(next Settings, fromStore bool) {
	s.mu.Lock()
	changed := next != s.current
	s.current = next
	if fromStore {
		s.loaded = true
	}
	listeners := append([]func(Settings){}, s.listeners...)
	s.mu.Unlock()

	if !changed {
		return
	}
	for _, fn := range listeners {
		fn(next)
	}
}
