package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/farmwatch-core/internal/pump"
	"github.com/nerrad567/farmwatch-core/internal/reading"
)

// Measurement names.
const (
	MeasurementReadings = "sensor_readings"
	MeasurementPump     = "pump_commands"
	MeasurementPresence = "device_presence"
)

// millisecondThreshold separates second and millisecond epoch timestamps.
// 1e11 seconds is the year 5138; 1e11 milliseconds is March 1973.
const millisecondThreshold = 100_000_000_000

// ReadingTime converts a node timestamp to a time. Nodes send either
// seconds or milliseconds since the epoch.
func ReadingTime(ts int64) time.Time {
	if ts < millisecondThreshold {
		return time.Unix(ts, 0)
	}
	return time.UnixMilli(ts)
}

// ReadingPoint builds the point archived for r.
func ReadingPoint(deviceID, place string, r reading.Reading) *write.Point {
	tags := map[string]string{"device": deviceID}
	if place != "" {
		tags["place"] = place
	}
	return write.NewPoint(
		MeasurementReadings,
		tags,
		map[string]any{
			reading.FieldHumidity:    r.Humidity,
			reading.FieldMoisture:    r.Moisture,
			reading.FieldTemperature: r.Temperature,
		},
		ReadingTime(r.Timestamp),
	)
}

// WriteReading archives one reading. Non-blocking.
func (c *Client) WriteReading(deviceID, place string, r reading.Reading) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(ReadingPoint(deviceID, place, r))
}

// WritePumpCommand archives a successful pump command.
func (c *Client) WritePumpCommand(cmd pump.Command) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(
		MeasurementPump,
		map[string]string{"pump": cmd.Pump, "field": cmd.Field},
		map[string]any{"value": cmd.Value, "previous": cmd.Previous},
		time.Now(),
	))
}

// WritePresence archives a presence transition.
func (c *Client) WritePresence(deviceID string, online bool) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(
		MeasurementPresence,
		map[string]string{"device": deviceID},
		map[string]any{"online": online},
		time.Now(),
	))
}
