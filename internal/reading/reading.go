package reading

import (
	"math"
	"sort"

	"github.com/nerrad567/farmwatch-core/internal/infrastructure/rtdb"
)

// Field names of a reading record in the store.
const (
	FieldTimestamp     = "timestamp"
	FieldFormattedTime = "formatted_time"
	FieldHumidity      = "humidity"
	FieldMoisture      = "moisture"
	FieldTemperature   = "temperature"
)

// Reading is one measurement tuple published by a sensor node.
type Reading struct {
	ID            string  `json:"id"`
	Timestamp     int64   `json:"timestamp"`
	FormattedTime string  `json:"formatted_time"`
	Humidity      float64 `json:"humidity"`
	Moisture      float64 `json:"moisture"`
	Temperature   float64 `json:"temperature"`
}

// Record is the shape written to device_<id>/data/<readingId>.
func (r Reading) Record() map[string]any {
	return map[string]any{
		FieldTimestamp:     r.Timestamp,
		FieldFormattedTime: r.FormattedTime,
		FieldHumidity:      r.Humidity,
		FieldMoisture:      r.Moisture,
		FieldTemperature:   r.Temperature,
	}
}

// FromSnapshot decodes every reading under a data path, sorted ascending by
// timestamp. Entries without a numeric timestamp are skipped; missing
// measurement fields read as zero. Equal timestamps keep key order.
func FromSnapshot(data rtdb.Snapshot) []Reading {
	children := data.Children()
	out := make([]Reading, 0, len(children))
	for _, c := range children {
		r, ok := decode(c)
		if ok {
			out = append(out, r)
		}
	}
	Sort(out)
	return out
}

func decode(c rtdb.Snapshot) (Reading, bool) {
	ts, ok := c.Child(FieldTimestamp).Float()
	if !ok || math.IsNaN(ts) || math.IsInf(ts, 0) {
		return Reading{}, false
	}
	r := Reading{ID: c.Key(), Timestamp: int64(ts)}
	r.FormattedTime, _ = c.Child(FieldFormattedTime).Text()
	r.Humidity, _ = c.Child(FieldHumidity).Float()
	r.Moisture, _ = c.Child(FieldMoisture).Float()
	r.Temperature, _ = c.Child(FieldTemperature).Float()
	return r, true
}

// Sort orders readings ascending by timestamp, stable.
func Sort(rs []Reading) {
	sort.SliceStable(rs, func(i, j int) bool {
		return rs[i].Timestamp < rs[j].Timestamp
	})
}

// Latest returns the reading with the greatest timestamp of a sorted slice.
func Latest(rs []Reading) (Reading, bool) {
	if len(rs) == 0 {
		return Reading{}, false
	}
	return rs[len(rs)-1], true
}

// Window returns the trailing n readings of a sorted slice; n <= 0 keeps all.
func Window(rs []Reading, n int) []Reading {
	if n <= 0 || len(rs) <= n {
		return rs
	}
	return rs[len(rs)-n:]
}
