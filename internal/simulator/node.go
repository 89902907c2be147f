package simulator

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/nerrad567/farmwatch-core/internal/reading"
)

// ClockFormat is the node clock format of formatted_time.
const ClockFormat = "15:04:05"

var places = []string{
	"North Field", "South Field", "East Plot", "West Plot",
	"Greenhouse", "Orchard", "Nursery", "Seedbed",
}

type nodeProfile struct {
	MAC string `fake:"{macaddress}"`
}

// Node is one synthetic sensor node.
type Node struct {
	ID    string
	Place string

	faker    *gofakeit.Faker
	baseTemp float64
	baseHum  float64

	mu       sync.Mutex
	moisture float64
	watering bool
}

// NewNode creates a node with a MAC-derived id, as the firmware names
// itself, and a random place.
func NewNode(f *gofakeit.Faker, prefix string) *Node {
	var p nodeProfile
	if err := f.Struct(&p); err != nil || p.MAC == "" {
		p.MAC = fmt.Sprintf("%012x", f.Uint64()&0xffffffffffff)
	}
	mac := strings.ToUpper(strings.ReplaceAll(p.MAC, ":", ""))

	return &Node{
		ID:       prefix + mac,
		Place:    f.RandomString(places),
		faker:    f,
		baseTemp: f.Float64Range(18, 26),
		baseHum:  f.Float64Range(50, 70),
		moisture: f.Float64Range(35, 65),
	}
}

// SetWatering marks the node's soil as irrigated or not.
func (n *Node) SetWatering(on bool) {
	n.mu.Lock()
	n.watering = on
	n.mu.Unlock()
}

// Next produces the reading for now. Temperature follows a daily cycle,
// humidity moves against it and soil moisture dries out unless watered.
func (n *Node) Next(now time.Time, loc *time.Location) reading.Reading {
	local := now.In(loc)
	hour := float64(local.Hour()) + float64(local.Minute())/60

	daily := math.Sin((hour - 9) * math.Pi / 12)
	temp := n.baseTemp + 5*daily + n.faker.Float64Range(-0.5, 0.5)
	hum := n.baseHum - 8*daily - (temp-n.baseTemp)*0.5 + n.faker.Float64Range(-1, 1)

	n.mu.Lock()
	if n.watering {
		n.moisture += 1.5
	} else {
		n.moisture -= 0.05 + n.faker.Float64Range(0, 0.1)
	}
	n.moisture = clamp(n.moisture, 0, 100)
	moisture := n.moisture
	n.mu.Unlock()

	return reading.Reading{
		Timestamp:     now.Unix(),
		FormattedTime: local.Format(ClockFormat),
		Humidity:      round(clamp(hum, 0, 100), 1),
		Temperature:   round(temp, 1),
		Moisture:      math.Round(moisture),
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
