package simulator

import (
	"context"
	"testing"

	"github.com/nerrad567/farmwatch-core/internal/device"
	"github.com/nerrad567/farmwatch-core/internal/infrastructure/rtdb"
	"github.com/nerrad567/farmwatch-core/internal/pump"
	"github.com/nerrad567/farmwatch-core/internal/reading"
	"github.com/nerrad567/farmwatch-core/internal/settings"
)

func TestDecide(t *testing.T) {
	s := settings.Defaults()
	dry := &reading.Reading{Moisture: 10, Humidity: 60, Temperature: 20}
	hot := &reading.Reading{Moisture: 50, Humidity: 60, Temperature: 35}
	fine := &reading.Reading{Moisture: 50, Humidity: 60, Temperature: 20}

	tests := []struct {
		name   string
		pump   pump.Pump
		latest *reading.Reading
		want   bool
	}{
		{"manual on", pump.Pump{Mode: pump.ModeManual, Status: pump.StatusOn}, nil, true},
		{"manual off", pump.Pump{Mode: pump.ModeManual, Status: pump.StatusOff}, dry, false},
		{"auto dry soil by default", pump.Pump{Mode: pump.ModeAuto}, dry, true},
		{"auto fine", pump.Pump{Mode: pump.ModeAuto, AutoBasedOn: []string{"soilMoisture"}}, fine, false},
		{"auto temperature", pump.Pump{Mode: pump.ModeAuto, AutoBasedOn: []string{"temperature"}}, hot, true},
		{"auto temperature ignores soil", pump.Pump{Mode: pump.ModeAuto, AutoBasedOn: []string{"temperature"}}, dry, false},
		{"auto without reading", pump.Pump{Mode: pump.ModeAuto, Status: pump.StatusOn}, nil, false},
		{"unknown mode", pump.Pump{Mode: "eco", Status: pump.StatusOn}, dry, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Decide(tt.pump, tt.latest, s); got != tt.want {
				t.Errorf("Decide() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPumpAgent_Evaluate(t *testing.T) {
	store := rtdb.NewMemoryStore()
	ctx := context.Background()
	sim := New(store, Options{Devices: 1, Seed: 3})
	node := sim.Nodes()[0]

	dry := reading.Reading{Timestamp: 10, Moisture: 5, Humidity: 60, Temperature: 20}
	if err := store.Set(ctx, rtdb.JoinPath(device.DataPath(node.ID), "r1"), dry.Record()); err != nil {
		t.Fatal(err)
	}
	for path, v := range map[string]any{
		"Pump/Pump1": map[string]any{"mode": "auto", "status": "off", "device": node.ID, "autoBasedOn": []any{"soilMoisture"}},
		"Pump/Pump2": map[string]any{"mode": "manual", "status": "on", "device": ""},
		"Pump/Pump3": map[string]any{"mode": "auto", "status": "on", "device": "device_elsewhere"},
	} {
		if err := store.Set(ctx, path, v); err != nil {
			t.Fatal(err)
		}
	}

	agent := NewPumpAgent(store, sim, pump.DefaultPath, "settings")
	if err := agent.Evaluate(ctx); err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	want := map[string]bool{"Pump1": true, "Pump2": true, "Pump3": false}
	got := agent.Outputs()
	for id, on := range want {
		if got[id] != on {
			t.Errorf("output[%s] = %v, want %v", id, got[id], on)
		}
	}

	// The agent never writes pump records.
	snap, _ := store.Get(ctx, "Pump/Pump1/status")
	if s, _ := snap.Text(); s != "off" {
		t.Errorf("Pump1 status = %q, want off", s)
	}
}

func TestPumpAgent_HandleCommand(t *testing.T) {
	agent := NewPumpAgent(rtdb.NewMemoryStore(), New(rtdb.NewMemoryStore(), Options{}), pump.DefaultPath, "settings")
	if err := agent.HandleCommand("farmwatch/pump/Pump1/command", []byte(`{"pump":"Pump1","field":"status","value":"on"}`)); err != nil {
		t.Errorf("HandleCommand() error = %v", err)
	}
	if err := agent.HandleCommand("farmwatch/pump/Pump1/command", []byte(`{`)); err == nil {
		t.Error("HandleCommand() accepted malformed JSON")
	}
}
