package settings

import "github.com/nerrad567/farmwatch-core/internal/reading"

// Threshold is the acceptable range of a metric. Both bounds are inclusive.
type Threshold struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Status is the classification of a value against a threshold.
type Status string

// Classification results. There is no unknown state.
const (
	StatusLow    Status = "low"
	StatusNormal Status = "normal"
	StatusHigh   Status = "high"
)

// Classify returns high iff v > Max, low iff v < Min, else normal.
// A value on either bound is normal.
func (t Threshold) Classify(v float64) Status {
	switch {
	case v > t.Max:
		return StatusHigh
	case v < t.Min:
		return StatusLow
	default:
		return StatusNormal
	}
}

// Colors of the status indicator.
const (
	ColorError   = "error"
	ColorWarning = "warning"
	ColorSuccess = "success"
)

// Presentation is how a status is shown for one metric.
type Presentation struct {
	Status Status `json:"status"`
	Color  string `json:"color"`
	Label  string `json:"label"`
}

// Present maps a status to its color and label, e.g. "Humidity too high".
func Present(m reading.Metric, s Status) Presentation {
	switch s {
	case StatusHigh:
		return Presentation{Status: s, Color: ColorError, Label: m.Label() + " too high"}
	case StatusLow:
		return Presentation{Status: s, Color: ColorWarning, Label: m.Label() + " too low"}
	default:
		return Presentation{Status: StatusNormal, Color: ColorSuccess, Label: m.Label() + " normal"}
	}
}
