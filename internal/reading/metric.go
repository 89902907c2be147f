package reading

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownMetric is returned by ParseMetric.
var ErrUnknownMetric = errors.New("reading: unknown metric")

// Metric names one measured quantity.
type Metric string

// Metrics measured by every sensor node.
const (
	Humidity     Metric = "humidity"
	Temperature  Metric = "temperature"
	SoilMoisture Metric = "soil_moisture"
)

var metrics = []Metric{Humidity, Temperature, SoilMoisture}

// Metrics returns every metric in display order.
func Metrics() []Metric {
	return append([]Metric(nil), metrics...)
}

// ParseMetric accepts the canonical name, the route slug and the
// camel-case spelling used in the settings record.
func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "humidity":
		return Humidity, nil
	case "temperature":
		return Temperature, nil
	case "soil_moisture", "soil-moisture", "soilmoisture", "moisture":
		return SoilMoisture, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMetric, s)
}

// Label is the human-readable name.
func (m Metric) Label() string {
	switch m {
	case Humidity:
		return "Humidity"
	case Temperature:
		return "Temperature"
	case SoilMoisture:
		return "Soil Moisture"
	}
	return string(m)
}

// Unit is the display unit. Soil moisture is the sensor's raw value.
func (m Metric) Unit() string {
	switch m {
	case Humidity:
		return "%"
	case Temperature:
		return "°C"
	}
	return ""
}

// Slug is the route segment of the metric's page.
func (m Metric) Slug() string {
	return strings.ReplaceAll(string(m), "_", "-")
}

// ThresholdKey is the metric's field in the settings record.
func (m Metric) ThresholdKey() string {
	switch m {
	case Humidity:
		return "humidityThreshold"
	case Temperature:
		return "temperatureThreshold"
	case SoilMoisture:
		return "soilMoistureThreshold"
	}
	return ""
}

// Value extracts the metric from a reading.
func (m Metric) Value(r Reading) float64 {
	switch m {
	case Humidity:
		return r.Humidity
	case Temperature:
		return r.Temperature
	case SoilMoisture:
		return r.Moisture
	}
	return 0
}
