package main

import (
	"context"
	"fmt"

	"github.com/nerrad567/farmwatch-core/internal/audit"
	"github.com/nerrad567/farmwatch-core/internal/device"
	"github.com/nerrad567/farmwatch-core/internal/infrastructure/config"
	"github.com/nerrad567/farmwatch-core/internal/infrastructure/database"
	"github.com/nerrad567/farmwatch-core/internal/infrastructure/logging"
	"github.com/nerrad567/farmwatch-core/internal/infrastructure/rtdb"
	"github.com/nerrad567/farmwatch-core/internal/monitor"
	"github.com/nerrad567/farmwatch-core/internal/presence"
	"github.com/nerrad567/farmwatch-core/internal/pump"
	"github.com/nerrad567/farmwatch-core/internal/settings"
	"github.com/nerrad567/farmwatch-core/migrations"
)

// openStore connects the configured realtime database. Tests replace it.
var openStore = func(ctx context.Context, cfg config.StoreConfig, log *logging.Logger) (rtdb.Store, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		log.Warn("using in-memory store; data is lost on exit and not shared with other processes")
		return rtdb.NewMemoryStore(), nil
	case config.DriverFirebase:
		store, err := rtdb.NewFirebaseStore(rtdb.FirebaseConfig{
			DatabaseURL:    cfg.DatabaseURL,
			APIKey:         cfg.APIKey,
			AnonymousAuth:  cfg.AnonymousAuth,
			RequestTimeout: cfg.RequestTimeout,
			IdentityURL:    cfg.IdentityURL,
			TokenURL:       cfg.TokenURL,
			Logger:         log.Component("rtdb"),
		})
		if err != nil {
			return nil, err
		}
		if err := store.SignIn(ctx); err != nil {
			store.Close() //nolint:errcheck // Best effort cleanup on error path
			return nil, err
		}
		log.Info("realtime database configured", "url", cfg.DatabaseURL, "anonymous_auth", cfg.AnonymousAuth)
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// newComponents builds the store-backed components from cfg.
func newComponents(cfg *config.Config, store rtdb.Store, log *logging.Logger) monitor.Components {
	c := monitor.Components{
		Store:     store,
		Registry:  device.NewRegistry(store, cfg.Store.Paths.DevicePrefix),
		Selection: device.NewSelection(),
		Settings:  settings.NewStore(store, cfg.Store.Paths.Settings),
		Pumps:     pump.NewController(store, cfg.Store.Paths.Pumps),
		Presence: presence.NewTracker(presence.Options{
			Tolerance: cfg.Monitor.OnlineTolerance,
			Location:  cfg.ProducerLocation(),
		}),
	}
	c.Registry.SetLogger(log.Component("device"))
	c.Settings.SetLogger(log.Component("settings"))
	c.Pumps.SetLogger(log.Component("pump"))
	return c
}

// auditTrail is an open audit database with its running recorder.
type auditTrail struct {
	db       *database.DB
	repo     *audit.SQLiteRepository
	recorder *audit.Recorder
	cancel   context.CancelFunc
}

// openAudit opens the SQLite database, applies migrations and starts a
// recorder tagging entries with source.
func openAudit(ctx context.Context, cfg config.DatabaseConfig, source string, log *logging.Logger) (*auditTrail, error) {
	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Path,
		WALMode:     cfg.WALMode,
		BusyTimeout: cfg.BusyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Migrate(ctx, migrations.FS); err != nil {
		db.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	repo := audit.NewSQLiteRepository(db.DB)
	rec := audit.NewRecorder(repo, source, log.Component("audit").Logger)
	rctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	go rec.Run(rctx)

	return &auditTrail{db: db, repo: repo, recorder: rec, cancel: cancel}, nil
}

// Close drains pending entries and closes the database. Safe on nil.
func (t *auditTrail) Close() error {
	if t == nil {
		return nil
	}
	t.cancel()
	<-t.recorder.Done()
	return t.db.Close()
}

// Recorder returns the recorder, nil when auditing is unavailable.
func (t *auditTrail) Recorder() *audit.Recorder {
	if t == nil {
		return nil
	}
	return t.recorder
}
