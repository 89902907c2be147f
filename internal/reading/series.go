package reading

// Point is one chart sample.
type Point struct {
	Value         float64 `json:"value"`
	Timestamp     int64   `json:"timestamp"`
	FormattedTime string  `json:"formatted_time"`
}

// Series is the derived state of one metric for one device.
type Series struct {
	Metric  Metric  `json:"metric"`
	Current float64 `json:"current"`
	History []Point `json:"history"`
}

// NewSeries projects sorted readings onto m. The current value is the last
// reading's; the history is the trailing window (window <= 0 keeps all).
// No readings yields current 0 and an empty history.
func NewSeries(m Metric, sorted []Reading, window int) Series {
	s := Series{Metric: m, History: []Point{}}
	if latest, ok := Latest(sorted); ok {
		s.Current = m.Value(latest)
	}
	for _, r := range Window(sorted, window) {
		s.History = append(s.History, Point{
			Value:         m.Value(r),
			Timestamp:     r.Timestamp,
			FormattedTime: r.FormattedTime,
		})
	}
	return s
}

// AllSeries derives every metric from the same readings.
func AllSeries(sorted []Reading, window int) map[Metric]Series {
	out := make(map[Metric]Series, len(metrics))
	for _, m := range metrics {
		out[m] = NewSeries(m, sorted, window)
	}
	return out
}
