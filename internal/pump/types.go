package pump

import (
	"strings"

	"github.com/nerrad567/farmwatch-core/internal/infrastructure/rtdb"
)

// DefaultPath is where pump records live.
const DefaultPath = "Pump"

// DefaultAutoBasedOn is shown when a pump names no sensors.
const DefaultAutoBasedOn = "Soil Moisture"

// Mode of a pump.
type Mode string

// Modes.
const (
	ModeManual Mode = "manual"
	ModeAuto   Mode = "auto"
)

// Toggle returns the other mode. Unknown modes become manual.
func (m Mode) Toggle() Mode {
	if m == ModeManual {
		return ModeAuto
	}
	return ModeManual
}

// Status is the commanded power state.
type Status string

// Power states.
const (
	StatusOn  Status = "on"
	StatusOff Status = "off"
)

// Toggle returns the other status.
func (s Status) Toggle() Status {
	if s == StatusOn {
		return StatusOff
	}
	return StatusOn
}

// Field names of a pump record.
const (
	FieldMode        = "mode"
	FieldStatus      = "status"
	FieldDevice      = "device"
	FieldAutoBasedOn = "autoBasedOn"
)

// Pump is one pump record.
type Pump struct {
	ID          string   `json:"id"`
	Mode        Mode     `json:"mode"`
	Status      Status   `json:"status"`
	Device      string   `json:"device"`
	AutoBasedOn []string `json:"autoBasedOn"`
}

// DefaultIDs are the pumps created when the store has none.
var DefaultIDs = []string{"Pump1", "Pump2"}

// DefaultRecord is the record written for a missing pump.
func DefaultRecord() map[string]any {
	return map[string]any{
		FieldMode:        string(ModeManual),
		FieldStatus:      string(StatusOff),
		FieldDevice:      "",
		FieldAutoBasedOn: []any{"soilMoisture"},
	}
}

// AutoBasedOnLabel joins the sensors auto mode follows.
func (p Pump) AutoBasedOnLabel() string {
	if len(p.AutoBasedOn) == 0 {
		return DefaultAutoBasedOn
	}
	return strings.Join(p.AutoBasedOn, ", ")
}

func (p Pump) clone() Pump {
	p.AutoBasedOn = append([]string(nil), p.AutoBasedOn...)
	return p
}

// decode reads a pump record. Older records store status as a boolean and
// autoBasedOn as a single string; both are accepted.
func decode(id string, node rtdb.Snapshot) Pump {
	p := Pump{ID: id, Mode: ModeManual, Status: StatusOff}

	if s, ok := node.Child(FieldMode).Text(); ok && Mode(s) == ModeAuto {
		p.Mode = ModeAuto
	}

	status := node.Child(FieldStatus)
	if s, ok := status.Text(); ok && Status(s) == StatusOn {
		p.Status = StatusOn
	} else if b, ok := status.Bool(); ok && b {
		p.Status = StatusOn
	}

	p.Device, _ = node.Child(FieldDevice).Text()

	based := node.Child(FieldAutoBasedOn)
	if s, ok := based.Text(); ok && s != "" {
		p.AutoBasedOn = []string{s}
	} else {
		for _, c := range based.Children() {
			if s, ok := c.Text(); ok && s != "" {
				p.AutoBasedOn = append(p.AutoBasedOn, s)
			}
		}
	}
	return p
}
