package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/farmwatch-core/internal/device"
	"github.com/nerrad567/farmwatch-core/internal/monitor"
	"github.com/nerrad567/farmwatch-core/internal/pump"
	"github.com/nerrad567/farmwatch-core/internal/reading"
	"github.com/nerrad567/farmwatch-core/internal/settings"
)

// Views builds page view models from a monitor.
type Views struct {
	mon *monitor.Monitor
}

// New creates the view builder.
func New(mon *monitor.Monitor) *Views {
	return &Views{mon: mon}
}

// MetricCard is one metric's current value and status.
type MetricCard struct {
	Metric       reading.Metric        `json:"metric"`
	Label        string                `json:"label"`
	Caption      string                `json:"caption"`
	Value        float64               `json:"value"`
	Unit         string                `json:"unit"`
	Presentation settings.Presentation `json:"presentation"`
}

// DeviceCard summarises one sensor node on the dashboard.
type DeviceCard struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Place         string    `json:"place"`
	Selected      bool      `json:"selected"`
	Online        bool      `json:"online"`
	LastSeen      time.Time `json:"last_seen,omitzero"`
	ReadingCount  int       `json:"reading_count"`
	FormattedTime string    `json:"formatted_time,omitempty"`
}

// Overview is the dashboard page.
type Overview struct {
	Title          string       `json:"title"`
	Devices        []DeviceCard `json:"devices"`
	SelectedDevice string       `json:"selected_device"`
	SelectedPlace  string       `json:"selected_place"`
	Metrics        []MetricCard `json:"metrics"`
	Pumps          []pump.Pump  `json:"pumps"`
	SelectedLabel  string       `json:"selected_label"`
	AvailableLabel string       `json:"available_label"`
}

// Overview builds the dashboard page.
func (v *Views) Overview() (Overview, error) {
	if err := v.mon.Ready(); err != nil {
		return Overview{}, err
	}

	sel := v.mon.Selection.State()
	out := Overview{
		Title:          Title,
		SelectedDevice: sel.SelectedDevice,
		SelectedPlace:  sel.SelectedPlace,
		Pumps:          v.mon.Pumps.List(),
	}

	for _, d := range v.mon.Registry.Devices() {
		st := v.mon.Presence.Status(d.ID)
		card := DeviceCard{
			ID:           d.ID,
			Name:         d.DisplayName(),
			Place:        d.Place,
			Selected:     d.ID == sel.SelectedDevice,
			Online:       st.Online,
			LastSeen:     st.LastSeen,
			ReadingCount: d.ReadingCount,
		}
		if d.Latest != nil {
			card.FormattedTime = d.Latest.FormattedTime
		}
		out.Devices = append(out.Devices, card)
	}

	for _, ms := range v.mon.Current().Metrics {
		out.Metrics = append(out.Metrics, metricCard(ms))
	}

	selected := sel.SelectedDevice
	if selected == "" {
		selected = "None"
	}
	out.SelectedLabel = "Selected Device: " + selected
	out.AvailableLabel = fmt.Sprintf("Available Devices: %d", len(out.Devices))
	return out, nil
}

func metricCard(ms monitor.MetricState) MetricCard {
	return MetricCard{
		Metric:       ms.Metric,
		Label:        ms.Label,
		Caption:      Caption(ms.Metric),
		Value:        ms.Current,
		Unit:         ms.Unit,
		Presentation: ms.Presentation,
	}
}

// MetricView is a metric page.
type MetricView struct {
	Title        string                `json:"title"`
	CurrentTitle string                `json:"current_title"`
	Metric       reading.Metric        `json:"metric"`
	Caption      string                `json:"caption"`
	Device       string                `json:"device"`
	Place        string                `json:"place"`
	Current      float64               `json:"current"`
	Unit         string                `json:"unit"`
	Threshold    settings.Threshold    `json:"threshold"`
	Presentation settings.Presentation `json:"presentation"`
	History      []reading.Point       `json:"history"`
	ReadingCount int                   `json:"reading_count"`
	Error        string                `json:"error,omitempty"`
}

// ParseMetric resolves a metric by name or page slug.
func ParseMetric(name string) (reading.Metric, error) {
	for _, m := range reading.Metrics() {
		if string(m) == name || m.Slug() == name {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownMetric, name)
}

// Metric builds the page of m. An empty deviceID, or the selected one,
// uses the live pipeline; any other device is read once from the store.
//
// Parameters:
//   - ctx: Context for the one-shot read
//   - m: Metric of the page
//   - deviceID: Optional device override
//
// Returns:
//   - MetricView: With Error set when the read failed
//   - error: Monitor readiness errors, device.ErrDeviceNotFound, or ErrFetchFailed
func (v *Views) Metric(ctx context.Context, m reading.Metric, deviceID string) (MetricView, error) {
	if err := v.mon.Ready(); err != nil {
		return MetricView{}, err
	}

	view := MetricView{
		Title:        MetricTitle(m),
		CurrentTitle: "Current " + m.Label(),
		Metric:       m,
		Caption:      Caption(m),
		Unit:         m.Unit(),
	}

	d := v.mon.Current()
	if deviceID != "" && deviceID != d.Device {
		var err error
		if d, err = v.deviceState(ctx, deviceID); err != nil {
			view.Device = deviceID
			view.Error = FetchFailedMessage(m)
			return view, err
		}
	}

	ms, _ := d.Metric(m)
	view.Device = d.Device
	view.Place = d.Place
	view.Current = ms.Current
	view.Threshold = ms.Threshold
	view.Presentation = ms.Presentation
	view.History = ms.History
	view.ReadingCount = d.ReadingCount
	return view, nil
}

// deviceState derives the state of a device that isn't selected.
func (v *Views) deviceState(ctx context.Context, id string) (monitor.Derived, error) {
	dev, err := v.mon.Registry.Device(id)
	if err != nil {
		return monitor.Derived{}, err
	}
	snap, err := v.mon.Store.Get(ctx, device.DataPath(id))
	if err != nil {
		return monitor.Derived{}, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	return monitor.Derive(id, dev.Place, reading.FromSnapshot(snap), v.mon.Settings.Current(), v.mon.HistoryWindow()), nil
}

// ThresholdField is one editable threshold pair.
type ThresholdField struct {
	Metric reading.Metric `json:"metric"`
	Key    string         `json:"key"`
	Label  string         `json:"label"`
	Min    float64        `json:"min"`
	Max    float64        `json:"max"`
}

// SettingsView is the settings page.
type SettingsView struct {
	Title    string            `json:"title"`
	Settings settings.Settings `json:"settings"`
	Fields   []ThresholdField  `json:"fields"`
	// Loaded is false until the store record has been read once.
	Loaded bool   `json:"loaded"`
	Error  string `json:"error,omitempty"`
}

// Settings builds the settings page.
func (v *Views) Settings() (SettingsView, error) {
	if err := v.mon.Ready(); err != nil {
		return SettingsView{}, err
	}

	s := v.mon.Settings.Current()
	view := SettingsView{Title: "System Settings", Settings: s, Loaded: v.mon.Settings.Loaded()}
	for _, m := range reading.Metrics() {
		th := s.For(m)
		view.Fields = append(view.Fields, ThresholdField{
			Metric: m,
			Key:    m.ThresholdKey(),
			Label:  thresholdLabel(m),
			Min:    th.Min,
			Max:    th.Max,
		})
	}
	return view, nil
}

func thresholdLabel(m reading.Metric) string {
	unit := m.Unit()
	if unit == "" {
		unit = "raw value"
	}
	return fmt.Sprintf("%s Thresholds (%s)", m.Label(), unit)
}

// PumpCard is one pump's controls.
type PumpCard struct {
	pump.Pump
	Title           string `json:"title"`
	AutoBasedOnText string `json:"auto_based_on_text"`
	// CanToggleStatus is true in manual mode.
	CanToggleStatus bool `json:"can_toggle_status"`
	// CanSetDevice is true in auto mode.
	CanSetDevice bool `json:"can_set_device"`
}

// PumpView is the pump page.
type PumpView struct {
	Title   string     `json:"title"`
	Pumps   []PumpCard `json:"pumps"`
	Devices []string   `json:"devices"`
}

// Pumps builds the pump page.
func (v *Views) Pumps() (PumpView, error) {
	if err := v.mon.Ready(); err != nil {
		return PumpView{}, err
	}

	view := PumpView{Title: "Pump Control", Devices: v.mon.Registry.IDs()}
	for _, p := range v.mon.Pumps.List() {
		view.Pumps = append(view.Pumps, PumpCard{
			Pump:            p,
			Title:           p.ID + " Control",
			AutoBasedOnText: p.AutoBasedOnLabel(),
			CanToggleStatus: p.Mode == pump.ModeManual,
			CanSetDevice:    p.Mode == pump.ModeAuto,
		})
	}
	return view, nil
}
