package settings

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nerrad567/farmwatch-core/internal/infrastructure/rtdb"
	"github.com/nerrad567/farmwatch-core/internal/reading"
)

// ErrInvalidThreshold is returned when a threshold has min > max.
var ErrInvalidThreshold = errors.New("settings: min must not exceed max")

// Settings is the complete threshold record.
type Settings struct {
	Humidity     Threshold `json:"humidityThreshold"`
	Temperature  Threshold `json:"temperatureThreshold"`
	SoilMoisture Threshold `json:"soilMoistureThreshold"`
}

// Defaults applies until the store holds a record.
func Defaults() Settings {
	return Settings{
		Humidity:     Threshold{Min: 40, Max: 80},
		Temperature:  Threshold{Min: 15, Max: 30},
		SoilMoisture: Threshold{Min: 30, Max: 70},
	}
}

// For returns the threshold of m.
func (s Settings) For(m reading.Metric) Threshold {
	switch m {
	case reading.Humidity:
		return s.Humidity
	case reading.Temperature:
		return s.Temperature
	case reading.SoilMoisture:
		return s.SoilMoisture
	}
	return Threshold{}
}

// With returns a copy with m's threshold replaced.
func (s Settings) With(m reading.Metric, t Threshold) Settings {
	switch m {
	case reading.Humidity:
		s.Humidity = t
	case reading.Temperature:
		s.Temperature = t
	case reading.SoilMoisture:
		s.SoilMoisture = t
	}
	return s
}

// Validate checks every threshold.
func (s Settings) Validate() error {
	var bad []string
	for _, m := range reading.Metrics() {
		if t := s.For(m); t.Min > t.Max {
			bad = append(bad, fmt.Sprintf("%s (%g > %g)", m.ThresholdKey(), t.Min, t.Max))
		}
	}
	if len(bad) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidThreshold, strings.Join(bad, ", "))
	}
	return nil
}

// Record is the value written to the settings path: every threshold,
// nothing else.
func (s Settings) Record() map[string]any {
	out := make(map[string]any, 3)
	for _, m := range reading.Metrics() {
		t := s.For(m)
		out[m.ThresholdKey()] = map[string]any{"min": t.Min, "max": t.Max}
	}
	return out
}

// Merge folds a pushed settings snapshot into base. Only the known
// threshold fields are read; the obsolete autoMode flag and anything else
// is dropped. Bounds missing from the snapshot keep base's value.
func Merge(base Settings, snap rtdb.Snapshot) Settings {
	if !snap.Exists() {
		return base
	}
	for _, m := range reading.Metrics() {
		node := snap.Child(m.ThresholdKey())
		if !node.Exists() {
			continue
		}
		t := base.For(m)
		if v, ok := node.Child("min").Float(); ok {
			t.Min = v
		}
		if v, ok := node.Child("max").Float(); ok {
			t.Max = v
		}
		base = base.With(m, t)
	}
	return base
}
