package rtdb

import (
	"context"
	"errors"
	"testing"
	"time"
)

func next(t *testing.T, sub *Subscription) Snapshot {
	t.Helper()
	select {
	case snap, ok := <-sub.Snapshots():
		if !ok {
			t.Fatalf("subscription ended: %v", sub.Err())
		}
		return snap
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	return Snapshot{}
}

func expectQuiet(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case snap := <-sub.Snapshots():
		t.Fatalf("unexpected snapshot %v", snap.Value())
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemoryStore_GetSet(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	if err := m.Set(ctx, "settings/humidityThreshold", map[string]float64{"min": 40, "max": 80}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	snap, err := m.Get(ctx, "/settings/humidityThreshold/max")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if v, _ := snap.Float(); v != 80 {
		t.Errorf("max = %v, want 80", v)
	}

	if err := m.Set(ctx, "settings/humidityThreshold", nil); err != nil {
		t.Fatalf("Set(nil) error = %v", err)
	}
	root, _ := m.Get(ctx, "") //nolint:errcheck // open store
	if root.Exists() {
		t.Errorf("root after delete = %v, want absent", root.Value())
	}
}

func TestMemoryStore_Subscribe(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	sub, err := m.Subscribe(ctx, "device_001/data")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer sub.Close()

	if first := next(t, sub); first.Exists() {
		t.Errorf("initial snapshot = %v, want absent", first.Value())
	}

	if err := m.Set(ctx, "device_001/data/r1", map[string]any{"timestamp": 1, "humidity": 55}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	snap := next(t, sub)
	if v, _ := snap.Child("r1/humidity").Float(); v != 55 {
		t.Errorf("humidity = %v, want 55", v)
	}

	// Unrelated writes don't notify.
	if err := m.Set(ctx, "device_002/data/r1", map[string]any{"timestamp": 1}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	// Identical rewrite doesn't notify either.
	if err := m.Set(ctx, "device_001/data/r1", map[string]any{"timestamp": 1, "humidity": 55}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	expectQuiet(t, sub)

	// Parent writes do.
	if err := m.Set(ctx, "device_001", nil); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if snap := next(t, sub); snap.Exists() {
		t.Errorf("after delete = %v, want absent", snap.Value())
	}
}

func TestMemoryStore_Conflates(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	sub, err := m.Subscribe(ctx, "counter")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer sub.Close()

	for i := 1; i <= 10; i++ {
		if err := m.Set(ctx, "counter", i); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
	}

	snap := next(t, sub)
	if v, _ := snap.Float(); v != 10 {
		t.Errorf("conflated value = %v, want 10", v)
	}
	expectQuiet(t, sub)
}

func TestMemoryStore_InfoConnected(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	if ok, err := m.Connected(ctx); err != nil || !ok {
		t.Fatalf("Connected() = %v, %v", ok, err)
	}

	sub, err := m.Subscribe(ctx, InfoConnectedPath)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer sub.Close()
	if v, _ := next(t, sub).Bool(); !v {
		t.Error("initial .info/connected = false")
	}

	m.SetConnected(false)
	if v, _ := next(t, sub).Bool(); v {
		t.Error(".info/connected after SetConnected(false) = true")
	}

	if err := m.Set(ctx, InfoConnectedPath, true); !errors.Is(err, ErrReadOnlyPath) {
		t.Errorf("Set(.info) error = %v, want ErrReadOnlyPath", err)
	}
}

func TestMemoryStore_WriteHook(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	boom := errors.New("boom")

	var paths []string
	m.SetWriteHook(func(path string, _ any) error {
		paths = append(paths, path)
		if path == "Pump/Pump1/status" {
			return boom
		}
		return nil
	})

	if err := m.Set(ctx, "/Pump/Pump1/mode/", "auto"); err != nil {
		t.Fatalf("Set(mode) error = %v", err)
	}
	if err := m.Set(ctx, "Pump/Pump1/status", "on"); !errors.Is(err, boom) {
		t.Fatalf("Set(status) error = %v, want boom", err)
	}
	if snap, _ := m.Get(ctx, "Pump/Pump1/status"); snap.Exists() { //nolint:errcheck // open store
		t.Error("rejected write was applied")
	}
	if len(paths) != 2 || paths[0] != "Pump/Pump1/mode" {
		t.Errorf("hook saw %v", paths)
	}
}

func TestMemoryStore_CloseEndsSubscriptions(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	sub, err := m.Subscribe(ctx, "settings")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	next(t, sub)

	if err := m.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	select {
	case _, ok := <-sub.Snapshots():
		if ok {
			t.Fatal("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("subscription not ended by Close")
	}
	if !errors.Is(sub.Err(), ErrStoreClosed) {
		t.Errorf("Err() = %v, want ErrStoreClosed", sub.Err())
	}
	if _, err := m.Get(ctx, "settings"); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("Get after Close = %v", err)
	}
}

func TestWatch(t *testing.T) {
	m := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())

	got := make(chan float64, 10)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, m, "value", func(s Snapshot) {
			v, _ := s.Float()
			got <- v
		})
	}()

	if v := <-got; v != 0 {
		t.Errorf("initial = %v, want 0 (absent)", v)
	}
	if err := m.Set(context.Background(), "value", 7); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if v := <-got; v != 7 {
		t.Errorf("update = %v, want 7", v)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch() = %v, want nil after cancel", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Watch did not return after cancel")
	}

	// The subscription was released.
	m.mu.Lock()
	n := len(m.watchers)
	m.mu.Unlock()
	if n != 0 {
		t.Errorf("watchers after Watch returned = %d, want 0", n)
	}
}

func TestWatch_SubscribeError(t *testing.T) {
	m := NewMemoryStore()
	if err := Watch(context.Background(), m, "bad.path", func(Snapshot) {}); !errors.Is(err, ErrInvalidPath) {
		t.Errorf("Watch() = %v, want ErrInvalidPath", err)
	}
}
