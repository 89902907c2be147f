package reading

import (
	"errors"
	"testing"
)

func TestParseMetric(t *testing.T) {
	tests := []struct {
		in   string
		want Metric
	}{
		{"humidity", Humidity},
		{"Temperature", Temperature},
		{"soil-moisture", SoilMoisture},
		{"soilMoisture", SoilMoisture},
		{"soil_moisture", SoilMoisture},
	}
	for _, tt := range tests {
		got, err := ParseMetric(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseMetric(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
	if _, err := ParseMetric("pressure"); !errors.Is(err, ErrUnknownMetric) {
		t.Errorf("ParseMetric(pressure) error = %v", err)
	}
}

func TestMetricAttributes(t *testing.T) {
	tests := []struct {
		m                        Metric
		label, unit, slug, field string
	}{
		{Humidity, "Humidity", "%", "humidity", "humidityThreshold"},
		{Temperature, "Temperature", "°C", "temperature", "temperatureThreshold"},
		{SoilMoisture, "Soil Moisture", "", "soil-moisture", "soilMoistureThreshold"},
	}
	for _, tt := range tests {
		if tt.m.Label() != tt.label || tt.m.Unit() != tt.unit || tt.m.Slug() != tt.slug || tt.m.ThresholdKey() != tt.field {
			t.Errorf("%s: label=%q unit=%q slug=%q key=%q", tt.m, tt.m.Label(), tt.m.Unit(), tt.m.Slug(), tt.m.ThresholdKey())
		}
	}
}
