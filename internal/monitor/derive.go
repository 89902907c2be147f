package monitor

import (
	"time"

	"github.com/nerrad567/farmwatch-core/internal/reading"
	"github.com/nerrad567/farmwatch-core/internal/settings"
)

// MetricState is one metric of one device, classified.
type MetricState struct {
	Metric       reading.Metric        `json:"metric"`
	Label        string                `json:"label"`
	Unit         string                `json:"unit"`
	Current      float64               `json:"current"`
	History      []reading.Point       `json:"history"`
	Threshold    settings.Threshold    `json:"threshold"`
	Presentation settings.Presentation `json:"presentation"`
}

// Derived is everything the metric views show for one device.
type Derived struct {
	Device       string           `json:"device"`
	Place        string           `json:"place"`
	ReadingCount int              `json:"reading_count"`
	Latest       *reading.Reading `json:"latest,omitempty"`
	Metrics      []MetricState    `json:"metrics"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// Metric returns the state of m.
func (d Derived) Metric(m reading.Metric) (MetricState, bool) {
	for _, ms := range d.Metrics {
		if ms.Metric == m {
			return ms, true
		}
	}
	return MetricState{}, false
}

// Derive classifies sorted readings against s. No readings gives zero
// current values, empty histories and a normal status.
//
// Parameters:
//   - deviceID, place: Identify the device
//   - sorted: Readings ascending by timestamp
//   - s: Thresholds to classify against
//   - window: Trailing history length; 0 keeps all
func Derive(deviceID, place string, sorted []reading.Reading, s settings.Settings, window int) Derived {
	d := Derived{
		Device:       deviceID,
		Place:        place,
		ReadingCount: len(sorted),
		UpdatedAt:    time.Now(),
	}
	if latest, ok := reading.Latest(sorted); ok {
		d.Latest = &latest
	}
	for _, m := range reading.Metrics() {
		series := reading.NewSeries(m, sorted, window)
		th := s.For(m)
		d.Metrics = append(d.Metrics, MetricState{
			Metric:       m,
			Label:        m.Label(),
			Unit:         m.Unit(),
			Current:      series.Current,
			History:      series.History,
			Threshold:    th,
			Presentation: settings.Present(m, th.Classify(series.Current)),
		})
	}
	return d
}
