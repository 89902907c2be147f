package monitor

import (
	"github.com/nerrad567/farmwatch-core/internal/device"
	"github.com/nerrad567/farmwatch-core/internal/infrastructure/metrics"
	"github.com/nerrad567/farmwatch-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/farmwatch-core/internal/presence"
	"github.com/nerrad567/farmwatch-core/internal/pump"
	"github.com/nerrad567/farmwatch-core/internal/reading"
	"github.com/nerrad567/farmwatch-core/internal/settings"
)

// JSONPublisher publishes JSON payloads. *mqtt.Client implements it.
type JSONPublisher interface {
	PublishJSON(topic string, v any, retained bool) error
}

// MQTTSink mirrors derived state, presence and pump commands to the broker.
// It also implements pump.CommandPublisher.
type MQTTSink struct {
	NopSink
	pub    JSONPublisher
	logger Logger
	topics mqtt.Topics
}

// NewMQTTSink creates a sink publishing through pub.
func NewMQTTSink(pub JSONPublisher, logger Logger) *MQTTSink {
	if logger == nil {
		logger = noopLogger{}
	}
	return &MQTTSink{pub: pub, logger: logger}
}

// ReadingsUpdated publishes the retained state of the selected device.
func (s *MQTTSink) ReadingsUpdated(d Derived) {
	if d.Device == "" {
		return
	}
	if err := s.pub.PublishJSON(s.topics.DeviceState(d.Device), d, true); err != nil {
		s.logger.Debug("state publish failed", "device", d.Device, "error", err)
	}
}

// PresenceChanged publishes one retained message per transition.
func (s *MQTTSink) PresenceChanged(changes []presence.Status) {
	for _, st := range changes {
		if err := s.pub.PublishJSON(s.topics.DevicePresence(st.Device), st, true); err != nil {
			s.logger.Debug("presence publish failed", "device", st.Device, "error", err)
		}
	}
}

// PublishPumpCommand relays a pump command to the pump's command topic.
func (s *MQTTSink) PublishPumpCommand(cmd pump.Command) error {
	return s.pub.PublishJSON(s.topics.PumpCommand(cmd.Pump), cmd, false)
}

// Archiver stores readings and events. *influxdb.Client implements it.
type Archiver interface {
	WriteReading(deviceID, place string, r reading.Reading)
	WritePresence(deviceID string, online bool)
	WritePumpCommand(cmd pump.Command)
}

// ArchiveSink writes new readings and presence transitions to an Archiver.
// It also implements pump.CommandPublisher, so pump commands are archived
// when it is chained with PublisherChain.
type ArchiveSink struct {
	NopSink
	archive Archiver
}

// NewArchiveSink creates a sink writing to a.
func NewArchiveSink(a Archiver) *ArchiveSink {
	return &ArchiveSink{archive: a}
}

// ReadingObserved archives a reading.
func (s *ArchiveSink) ReadingObserved(deviceID, place string, r reading.Reading) {
	s.archive.WriteReading(deviceID, place, r)
}

// PresenceChanged archives presence transitions.
func (s *ArchiveSink) PresenceChanged(changes []presence.Status) {
	for _, st := range changes {
		s.archive.WritePresence(st.Device, st.Online)
	}
}

// PublishPumpCommand archives a pump command.
func (s *ArchiveSink) PublishPumpCommand(cmd pump.Command) error {
	s.archive.WritePumpCommand(cmd)
	return nil
}

// PublisherChain relays a command to every publisher and returns the
// first error.
type PublisherChain []pump.CommandPublisher

// PublishPumpCommand implements pump.CommandPublisher.
func (c PublisherChain) PublishPumpCommand(cmd pump.Command) error {
	var first error
	for _, p := range c {
		if err := p.PublishPumpCommand(cmd); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// MetricsSink keeps the Prometheus gauges current.
type MetricsSink struct {
	NopSink
	m       *metrics.Metrics
	tracker *presence.Tracker
}

// NewMetricsSink creates a sink updating m. The tracker supplies the
// online count.
func NewMetricsSink(m *metrics.Metrics, tracker *presence.Tracker) *MetricsSink {
	return &MetricsSink{m: m, tracker: tracker}
}

// DevicesUpdated sets the device count.
func (s *MetricsSink) DevicesUpdated(devices []device.Device) {
	s.m.Devices.Set(float64(len(devices)))
}

// ReadingObserved counts a new reading.
func (s *MetricsSink) ReadingObserved(deviceID, _ string, _ reading.Reading) {
	s.m.ReadingsReceived.WithLabelValues(deviceID).Inc()
}

// ReadingsUpdated exports the selected device's current values.
func (s *MetricsSink) ReadingsUpdated(d Derived) {
	if d.Device == "" {
		return
	}
	for _, ms := range d.Metrics {
		s.m.ReadingValue.WithLabelValues(d.Device, ms.Metric.Slug()).Set(ms.Current)
		s.m.MetricStatus.WithLabelValues(d.Device, ms.Metric.Slug()).Set(statusValue(ms.Presentation.Status))
	}
}

// PresenceChanged updates per-device and total online gauges.
func (s *MetricsSink) PresenceChanged(changes []presence.Status) {
	for _, st := range changes {
		metrics.SetBool(s.m.DeviceOnline.WithLabelValues(st.Device), st.Online)
	}
	online := 0
	for _, st := range s.tracker.All() {
		if st.Online {
			online++
		}
	}
	s.m.DevicesOnline.Set(float64(online))
}

func statusValue(st settings.Status) float64 {
	switch st {
	case settings.StatusLow:
		return -1
	case settings.StatusHigh:
		return 1
	default:
		return 0
	}
}
