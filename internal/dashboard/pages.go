package dashboard

import (
	"strings"

	"github.com/nerrad567/farmwatch-core/internal/reading"
)

// Title is the application title.
const Title = "IoT Farm Monitoring Dashboard"

// Page is one entry of the navigation table.
type Page struct {
	Path  string `json:"path"`
	Name  string `json:"name"`
	Title string `json:"title"`
	// Metric is set on metric pages.
	Metric reading.Metric `json:"metric,omitempty"`
}

// Page paths.
const (
	PathRoot          = "/"
	PathDashboard     = "/dashboard"
	PathPump          = "/pump"
	PathSettings      = "/settings"
	PathDocumentation = "/documentation"
)

// Pages returns the navigation table in menu order. The root path
// redirects to PathDashboard.
func Pages() []Page {
	pages := []Page{{Path: PathDashboard, Name: "Dashboard", Title: Title}}
	for _, m := range reading.Metrics() {
		pages = append(pages, Page{
			Path:   "/" + m.Slug(),
			Name:   m.Label(),
			Title:  MetricTitle(m),
			Metric: m,
		})
	}
	return append(pages,
		Page{Path: PathPump, Name: "Pump", Title: "Pump Control"},
		Page{Path: PathSettings, Name: "Settings", Title: "System Settings"},
		Page{Path: PathDocumentation, Name: "Documentation", Title: "System Documentation"},
	)
}

// Lookup returns the page at path, resolving the root redirect.
func Lookup(path string) (Page, bool) {
	if path == PathRoot || path == "" {
		path = PathDashboard
	}
	for _, p := range Pages() {
		if p.Path == path {
			return p, true
		}
	}
	return Page{}, false
}

// MetricTitle is the heading of a metric page.
func MetricTitle(m reading.Metric) string {
	return m.Label() + " Monitoring"
}

// Caption describes what a metric card shows.
func Caption(m reading.Metric) string {
	switch m {
	case reading.Humidity:
		return "Relative humidity"
	case reading.Temperature:
		return "Ambient temperature"
	case reading.SoilMoisture:
		return "Raw sensor value"
	}
	return ""
}

// FetchFailedMessage is shown when a metric's data can't be read.
func FetchFailedMessage(m reading.Metric) string {
	return "Failed to fetch " + strings.ToLower(m.Label()) + " data"
}

// Settings page messages.
const (
	MsgSettingsFetchFailed = "Failed to fetch settings"
)
