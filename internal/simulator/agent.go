package simulator

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/farmwatch-core/internal/device"
	"github.com/nerrad567/farmwatch-core/internal/infrastructure/rtdb"
	"github.com/nerrad567/farmwatch-core/internal/pump"
	"github.com/nerrad567/farmwatch-core/internal/reading"
	"github.com/nerrad567/farmwatch-core/internal/settings"
)

// Sensor names used in a pump's autoBasedOn list.
const (
	SensorSoilMoisture = "soilMoisture"
	SensorHumidity     = "humidity"
	SensorTemperature  = "temperature"
)

// Decide returns a pump's output. Manual pumps follow their status. Auto
// pumps run while any listed sensor of the latest reading is out of range:
// soil moisture or humidity below min, temperature above max. An empty list
// means soil moisture; no reading means off.
func Decide(p pump.Pump, latest *reading.Reading, s settings.Settings) bool {
	if p.Mode == pump.ModeManual {
		return p.Status == pump.StatusOn
	}
	if p.Mode != pump.ModeAuto || latest == nil {
		return false
	}

	sensors := p.AutoBasedOn
	if len(sensors) == 0 {
		sensors = []string{SensorSoilMoisture}
	}
	for _, sensor := range sensors {
		switch sensor {
		case SensorSoilMoisture:
			if latest.Moisture < s.SoilMoisture.Min {
				return true
			}
		case SensorHumidity:
			if latest.Humidity < s.Humidity.Min {
				return true
			}
		case SensorTemperature:
			if latest.Temperature > s.Temperature.Max {
				return true
			}
		}
	}
	return false
}

// PumpAgent evaluates pump records on behalf of the simulated nodes.
type PumpAgent struct {
	store    rtdb.Store
	sim      *Simulator
	pumps    *pump.Controller
	settings *settings.Store
	logger   Logger

	mu      sync.Mutex
	outputs map[string]bool
}

// NewPumpAgent creates an agent reading pumps and settings at the given
// paths. Auto mode only drives pumps linked to one of sim's nodes.
func NewPumpAgent(store rtdb.Store, sim *Simulator, pumpsPath, settingsPath string) *PumpAgent {
	return &PumpAgent{
		store:    store,
		sim:      sim,
		pumps:    pump.NewController(store, pumpsPath),
		settings: settings.NewStore(store, settingsPath),
		logger:   noopLogger{},
		outputs:  make(map[string]bool),
	}
}

// SetLogger sets the logger for the agent.
func (a *PumpAgent) SetLogger(logger Logger) {
	a.logger = logger
}

// Outputs returns the last decided output of every pump.
func (a *PumpAgent) Outputs() map[string]bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string]bool, len(a.outputs))
	for k, v := range a.outputs {
		out[k] = v
	}
	return out
}

// Evaluate reads the pumps, the thresholds and the linked devices' data
// once and updates every output.
func (a *PumpAgent) Evaluate(ctx context.Context) error {
	if err := a.pumps.Refresh(ctx); err != nil {
		return err
	}
	if err := a.settings.Load(ctx); err != nil {
		return err
	}
	s := a.settings.Current()

	watering := make(map[string]bool)
	for _, p := range a.pumps.List() {
		var latest *reading.Reading
		if p.Mode == pump.ModeAuto {
			if a.sim.Node(p.Device) == nil {
				a.set(p.ID, false)
				continue
			}
			snap, err := a.store.Get(ctx, device.DataPath(p.Device))
			if err != nil {
				return fmt.Errorf("reading %s: %w", p.Device, err)
			}
			if r, ok := reading.Latest(reading.FromSnapshot(snap)); ok {
				latest = &r
			}
		}

		on := Decide(p, latest, s)
		a.set(p.ID, on)
		if on && p.Mode == pump.ModeAuto {
			watering[p.Device] = true
		}
	}

	for _, n := range a.sim.Nodes() {
		n.SetWatering(watering[n.ID])
	}
	return nil
}

func (a *PumpAgent) set(id string, on bool) {
	a.mu.Lock()
	prev, known := a.outputs[id]
	a.outputs[id] = on
	a.mu.Unlock()
	if !known || prev != on {
		a.logger.Info("pump output changed", "pump", id, "on", on)
	}
}

// Run evaluates every interval until ctx is cancelled.
func (a *PumpAgent) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := a.Evaluate(ctx); err != nil && ctx.Err() == nil {
			a.logger.Warn("pump evaluation failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// HandleCommand logs a pump command relayed over MQTT. The change itself
// is picked up from the store on the next evaluation.
func (a *PumpAgent) HandleCommand(topic string, payload []byte) error {
	var cmd pump.Command
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return fmt.Errorf("decoding pump command on %s: %w", topic, err)
	}
	a.logger.Info("pump command received", "pump", cmd.Pump, "field", cmd.Field, "value", cmd.Value)
	return nil
}
