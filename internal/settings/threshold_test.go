package settings

import (
	"testing"

	"github.com/nerrad567/farmwatch-core/internal/reading"
)

func TestThreshold_Classify(t *testing.T) {
	th := Threshold{Min: 40, Max: 80}
	tests := []struct {
		value float64
		want  Status
	}{
		{39.9, StatusLow},
		{40, StatusNormal},
		{55, StatusNormal},
		{80, StatusNormal},
		{80.1, StatusHigh},
		{-5, StatusLow},
	}
	for _, tt := range tests {
		if got := th.Classify(tt.value); got != tt.want {
			t.Errorf("Classify(%v) = %q, want %q", tt.value, got, tt.want)
		}
	}
}

func TestPresent(t *testing.T) {
	tests := []struct {
		metric reading.Metric
		status Status
		color  string
		label  string
	}{
		{reading.Humidity, StatusHigh, ColorError, "Humidity too high"},
		{reading.Temperature, StatusLow, ColorWarning, "Temperature too low"},
		{reading.SoilMoisture, StatusNormal, ColorSuccess, "Soil Moisture normal"},
		{reading.Humidity, Status(""), ColorSuccess, "Humidity normal"},
	}
	for _, tt := range tests {
		p := Present(tt.metric, tt.status)
		if p.Color != tt.color || p.Label != tt.label {
			t.Errorf("Present(%s, %q) = %+v, want color %q label %q", tt.metric, tt.status, p, tt.color, tt.label)
		}
	}
}
