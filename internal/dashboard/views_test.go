package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/farmwatch-core/internal/device"
	"github.com/nerrad567/farmwatch-core/internal/infrastructure/rtdb"
	"github.com/nerrad567/farmwatch-core/internal/monitor"
	"github.com/nerrad567/farmwatch-core/internal/presence"
	"github.com/nerrad567/farmwatch-core/internal/pump"
	"github.com/nerrad567/farmwatch-core/internal/reading"
	"github.com/nerrad567/farmwatch-core/internal/settings"
)

func seed(t *testing.T, store rtdb.Store, path string, value any) {
	t.Helper()
	if err := store.Set(context.Background(), path, value); err != nil {
		t.Fatalf("Set(%s) error = %v", path, err)
	}
}

func newMonitor(store rtdb.Store) *monitor.Monitor {
	return monitor.New(monitor.Components{
		Store:     store,
		Registry:  device.NewRegistry(store, ""),
		Selection: device.NewSelection(),
		Settings:  settings.NewStore(store, "settings"),
		Pumps:     pump.NewController(store, pump.DefaultPath),
		Presence:  presence.NewTracker(presence.Options{Tolerance: 3 * time.Second}),
	}, monitor.Options{HistoryWindow: 20, Bootstrap: true})
}

func startMonitor(t *testing.T, m *monitor.Monitor, cond func() bool) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = m.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if m.Ready() == nil && cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("monitor did not settle")
}

func TestViews_NotReady(t *testing.T) {
	store := rtdb.NewMemoryStore()
	store.SetConnected(false)
	m := newMonitor(store)
	_ = m.Run(context.Background())

	v := New(m)
	if _, err := v.Overview(); !errors.Is(err, monitor.ErrNotConnected) {
		t.Errorf("Overview() = %v, want ErrNotConnected", err)
	}
	if _, err := v.Metric(context.Background(), reading.Humidity, ""); !errors.Is(err, monitor.ErrNotConnected) {
		t.Errorf("Metric() = %v, want ErrNotConnected", err)
	}
}

func TestViews_Pages(t *testing.T) {
	store := rtdb.NewMemoryStore()
	seed(t, store, "device_001/data/r1", map[string]any{"timestamp": 100, "humidity": 55, "temperature": 35, "moisture": 50})
	seed(t, store, "device_001/data/r2", map[string]any{"timestamp": 50, "humidity": 40, "temperature": 20, "moisture": 45})
	seed(t, store, "device_002/data/r1", map[string]any{"timestamp": 10, "humidity": 90})
	seed(t, store, "device_002/info/place", "Greenhouse")

	m := newMonitor(store)
	startMonitor(t, m, func() bool {
		return m.Current().ReadingCount == 2 && len(m.Pumps.List()) == 2
	})
	v := New(m)

	t.Run("overview", func(t *testing.T) {
		o, err := v.Overview()
		if err != nil {
			t.Fatalf("Overview() error = %v", err)
		}
		if o.SelectedLabel != "Selected Device: device_001" || o.AvailableLabel != "Available Devices: 2" {
			t.Errorf("footer = %q / %q", o.SelectedLabel, o.AvailableLabel)
		}
		if len(o.Devices) != 2 || !o.Devices[0].Selected || o.Devices[1].Name != "Greenhouse" {
			t.Errorf("devices = %+v", o.Devices)
		}
		if len(o.Metrics) != 3 {
			t.Errorf("metrics = %+v", o.Metrics)
		}
	})

	t.Run("selected metric", func(t *testing.T) {
		mv, err := v.Metric(context.Background(), reading.Temperature, "")
		if err != nil {
			t.Fatalf("Metric() error = %v", err)
		}
		if mv.Current != 35 || mv.Presentation.Status != settings.StatusHigh {
			t.Errorf("temperature = %v %s, want 35 high", mv.Current, mv.Presentation.Status)
		}
		if mv.Title != "Temperature Monitoring" || mv.CurrentTitle != "Current Temperature" {
			t.Errorf("titles = %q, %q", mv.Title, mv.CurrentTitle)
		}
	})

	t.Run("other device", func(t *testing.T) {
		mv, err := v.Metric(context.Background(), reading.Humidity, "device_002")
		if err != nil {
			t.Fatalf("Metric() error = %v", err)
		}
		if mv.Device != "device_002" || mv.Place != "Greenhouse" || mv.Current != 90 {
			t.Errorf("view = %+v", mv)
		}
		if m.Selection.Selected() != "device_001" {
			t.Error("override changed the selection")
		}
	})

	t.Run("unknown device", func(t *testing.T) {
		mv, err := v.Metric(context.Background(), reading.Humidity, "device_404")
		if !errors.Is(err, device.ErrDeviceNotFound) {
			t.Errorf("Metric() = %v, want ErrDeviceNotFound", err)
		}
		if mv.Error != "Failed to fetch humidity data" {
			t.Errorf("Error = %q", mv.Error)
		}
	})

	t.Run("settings", func(t *testing.T) {
		sv, err := v.Settings()
		if err != nil {
			t.Fatalf("Settings() error = %v", err)
		}
		if len(sv.Fields) != 3 || sv.Fields[2].Label != "Soil Moisture Thresholds (raw value)" {
			t.Errorf("fields = %+v", sv.Fields)
		}
	})

	t.Run("pumps", func(t *testing.T) {
		pv, err := v.Pumps()
		if err != nil {
			t.Fatalf("Pumps() error = %v", err)
		}
		if len(pv.Pumps) != 2 || pv.Pumps[0].Title != "Pump1 Control" {
			t.Fatalf("pumps = %+v", pv.Pumps)
		}
		p := pv.Pumps[0]
		if !p.CanToggleStatus || p.CanSetDevice {
			t.Errorf("manual pump controls = %+v", p)
		}
		if len(pv.Devices) != 2 {
			t.Errorf("devices = %v", pv.Devices)
		}
	})
}
