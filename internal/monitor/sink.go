package monitor

import (
	"github.com/nerrad567/farmwatch-core/internal/device"
	"github.com/nerrad567/farmwatch-core/internal/presence"
	"github.com/nerrad567/farmwatch-core/internal/pump"
	"github.com/nerrad567/farmwatch-core/internal/reading"
	"github.com/nerrad567/farmwatch-core/internal/settings"
)

// Sink receives monitor events. Implementations must not block.
type Sink interface {
	DevicesUpdated(devices []device.Device)
	SelectionChanged(state device.SelectionState)
	ReadingsUpdated(d Derived)
	ReadingObserved(deviceID, place string, r reading.Reading)
	SettingsUpdated(s settings.Settings)
	PumpsUpdated(pumps []pump.Pump)
	PresenceChanged(changes []presence.Status)
}

// NopSink implements Sink with no-ops. Embed it to handle a subset.
type NopSink struct{}

func (NopSink) DevicesUpdated([]device.Device)                  {}
func (NopSink) SelectionChanged(device.SelectionState)          {}
func (NopSink) ReadingsUpdated(Derived)                         {}
func (NopSink) ReadingObserved(string, string, reading.Reading) {}
func (NopSink) SettingsUpdated(settings.Settings)               {}
func (NopSink) PumpsUpdated([]pump.Pump)                        {}
func (NopSink) PresenceChanged([]presence.Status)               {}

type sinks []Sink

func (s sinks) DevicesUpdated(v []device.Device) {
	for _, k := range s {
		k.DevicesUpdated(v)
	}
}

func (s sinks) SelectionChanged(v device.SelectionState) {
	for _, k := range s {
		k.SelectionChanged(v)
	}
}

func (s sinks) ReadingsUpdated(v Derived) {
	for _, k := range s {
		k.ReadingsUpdated(v)
	}
}

func (s sinks) ReadingObserved(id, place string, r reading.Reading) {
	for _, k := range s {
		k.ReadingObserved(id, place, r)
	}
}

func (s sinks) SettingsUpdated(v settings.Settings) {
	for _, k := range s {
		k.SettingsUpdated(v)
	}
}

func (s sinks) PumpsUpdated(v []pump.Pump) {
	for _, k := range s {
		k.PumpsUpdated(v)
	}
}

func (s sinks) PresenceChanged(v []presence.Status) {
	if len(v) == 0 {
		return
	}
	for _, k := range s {
		k.PresenceChanged(v)
	}
}
