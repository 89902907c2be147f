package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/farmwatch-core/internal/infrastructure/config"
	"github.com/nerrad567/farmwatch-core/internal/infrastructure/logging"
	"github.com/nerrad567/farmwatch-core/internal/infrastructure/rtdb"
	"github.com/nerrad567/farmwatch-core/internal/monitor"
	"github.com/nerrad567/farmwatch-core/internal/pump"
	"github.com/nerrad567/farmwatch-core/internal/settings"
)

// sharedStore survives Close so consecutive commands see the same data.
type sharedStore struct {
	*rtdb.MemoryStore
}

func (sharedStore) Close() error { return nil }

// useStore routes every command to store for the duration of the test.
func useStore(t *testing.T, store *rtdb.MemoryStore) {
	t.Helper()
	orig := openStore
	openStore = func(context.Context, config.StoreConfig, *logging.Logger) (rtdb.Store, error) {
		return sharedStore{store}, nil
	}
	t.Cleanup(func() { openStore = orig })
}

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
site:
  id: test-site

store:
  driver: memory

database:
  path: "` + filepath.Join(dir, "audit.db") + `"
  wal_mode: true
  busy_timeout: 5

api:
  host: "127.0.0.1"
  port: 0

logging:
  level: error
  format: text
  output: stderr
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func execute(t *testing.T, ctx context.Context, cfgPath string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", cfgPath, "--env-file", ""}, args...))
	err := root.ExecuteContext(ctx)
	return out.String(), err
}

func seedFarm(t *testing.T) *rtdb.MemoryStore {
	t.Helper()
	store := rtdb.NewMemoryStore()
	ctx := context.Background()
	for path, v := range map[string]any{
		"device_001/data/r1":    map[string]any{"timestamp": 100, "humidity": 55, "temperature": 35, "moisture": 50},
		"device_001/info/place": "North Field",
		"device_002/data/r1":    map[string]any{"timestamp": 10, "humidity": 90},
		"settings":              settings.Defaults().Record(),
	} {
		if err := store.Set(ctx, path, v); err != nil {
			t.Fatalf("Set(%s) error = %v", path, err)
		}
	}
	if _, err := pump.EnsureDefaults(ctx, store, "", pump.DefaultIDs); err != nil {
		t.Fatalf("EnsureDefaults() error = %v", err)
	}
	return store
}

// ─── Config resolution ─────────────────────────────────────────────

func TestLoadConfig_DefaultWhenMissing(t *testing.T) {
	t.Setenv(configEnv, "")
	t.Chdir(t.TempDir())

	cfg, path, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if path != "" {
		t.Errorf("path = %q, want built-in defaults", path)
	}
	if cfg.Store.Driver != config.DriverMemory {
		t.Errorf("driver = %q, want %q", cfg.Store.Driver, config.DriverMemory)
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv(configEnv, "/nonexistent/path/config.yaml")

	if _, _, err := loadConfig(""); err == nil {
		t.Fatal("loadConfig() should fail for a missing explicit path")
	}
}

func TestLoadConfig_FlagWins(t *testing.T) {
	t.Setenv(configEnv, "/nonexistent/path/config.yaml")
	cfgPath := writeConfig(t)

	cfg, path, err := loadConfig(cfgPath)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if path != cfgPath || cfg.Site.ID != "test-site" {
		t.Errorf("loaded %q site %q, want %q test-site", path, cfg.Site.ID, cfgPath)
	}
}

// ─── Record commands ───────────────────────────────────────────────

func TestDevicesCmd(t *testing.T) {
	useStore(t, seedFarm(t))
	cfgPath := writeConfig(t)

	out, err := execute(t, context.Background(), cfgPath, "devices")
	if err != nil {
		t.Fatalf("devices error = %v", err)
	}
	for _, want := range []string{"device_001", "North Field", "device_002", "55"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	if _, err := execute(t, context.Background(), cfgPath, "devices", "place", "device_002", "Orchard"); err != nil {
		t.Fatalf("devices place error = %v", err)
	}
	out, _ = execute(t, context.Background(), cfgPath, "devices", "--json")
	if !strings.Contains(out, `"Orchard"`) {
		t.Errorf("place not stored:\n%s", out)
	}
}

func TestDevicesCmd_NotConnected(t *testing.T) {
	store := seedFarm(t)
	store.SetConnected(false)
	useStore(t, store)

	_, err := execute(t, context.Background(), writeConfig(t), "devices")
	if err == nil || !strings.Contains(err.Error(), monitor.ConnectionErrorMessage) {
		t.Errorf("error = %v, want connection message", err)
	}
}

func TestSettingsCmd(t *testing.T) {
	store := seedFarm(t)
	useStore(t, store)
	cfgPath := writeConfig(t)

	out, err := execute(t, context.Background(), cfgPath, "settings", "set", "--humidity-min", "10", "--soil-moisture-max", "65")
	if err != nil {
		t.Fatalf("settings set error = %v", err)
	}
	if !strings.Contains(out, settings.MsgSaved) {
		t.Errorf("output = %q, want %q", out, settings.MsgSaved)
	}

	s := settings.NewStore(store, "settings")
	if err := s.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	want := settings.Defaults()
	want.Humidity.Min = 10
	want.SoilMoisture.Max = 65
	if got := s.Current(); got != want {
		t.Errorf("stored = %+v, want %+v", got, want)
	}

	_, err = execute(t, context.Background(), cfgPath, "settings", "set", "--temperature-min", "40", "--temperature-max", "10")
	if !errors.Is(err, settings.ErrInvalidThreshold) {
		t.Errorf("invalid save error = %v, want ErrInvalidThreshold", err)
	}
}

func TestPumpCmd(t *testing.T) {
	useStore(t, seedFarm(t))
	cfgPath := writeConfig(t)
	ctx := context.Background()

	out, err := execute(t, ctx, cfgPath, "pump", "toggle", "Pump1")
	if err != nil {
		t.Fatalf("pump toggle error = %v", err)
	}
	if !strings.Contains(out, "on") {
		t.Errorf("toggle output = %q, want status on", out)
	}

	if _, err := execute(t, ctx, cfgPath, "pump", "link", "Pump1", "device_001"); !errors.Is(err, pump.ErrNotAuto) {
		t.Errorf("link in manual error = %v, want ErrNotAuto", err)
	}
	if _, err := execute(t, ctx, cfgPath, "pump", "toggle-mode", "Pump1"); err != nil {
		t.Fatalf("toggle-mode error = %v", err)
	}
	if _, err := execute(t, ctx, cfgPath, "pump", "link", "Pump1", "device_001"); err != nil {
		t.Fatalf("link error = %v", err)
	}

	out, err = execute(t, ctx, cfgPath, "pump", "list")
	if err != nil {
		t.Fatalf("pump list error = %v", err)
	}
	if !strings.Contains(out, "auto") || !strings.Contains(out, "device_001") || !strings.Contains(out, "Pump2") {
		t.Errorf("list output:\n%s", out)
	}

	if _, err := execute(t, ctx, cfgPath, "pump", "toggle", "Pump9"); !errors.Is(err, pump.ErrPumpNotFound) {
		t.Errorf("unknown pump error = %v, want ErrPumpNotFound", err)
	}
}

// ─── Lifecycle ─────────────────────────────────────────────────────

func TestServe_ShutsDownOnCancel(t *testing.T) {
	useStore(t, seedFarm(t))
	cfgPath := writeConfig(t)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	if _, err := execute(t, ctx, cfgPath, "serve", "--simulate"); err != nil {
		t.Fatalf("serve error = %v", err)
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	if _, err := execute(t, context.Background(), "/nonexistent/path/config.yaml", "devices"); err == nil {
		t.Fatal("command should fail with invalid config path")
	}
}
