// Package metrics exposes FarmWatch's Prometheus collectors.
//
// Each Metrics value owns its registry, so tests and multiple servers in
// one process don't collide on registration.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name.
const Namespace = "farmwatch"

// Metrics holds every collector the service updates.
type Metrics struct {
	Registry *prometheus.Registry

	StoreConnected   prometheus.Gauge
	Devices          prometheus.Gauge
	DevicesOnline    prometheus.Gauge
	DeviceOnline     *prometheus.GaugeVec
	ReadingValue     *prometheus.GaugeVec
	MetricStatus     *prometheus.GaugeVec
	ReadingsReceived *prometheus.CounterVec
	PumpCommands     *prometheus.CounterVec
	SettingsSaves    *prometheus.CounterVec
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
}

// New creates and registers the collectors, including the Go runtime and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		StoreConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "store",
			Name:      "connected",
			Help:      "1 when the realtime store passed its connectivity check",
		}),
		Devices: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "devices",
			Help:      "Number of sensor nodes in the store",
		}),
		DevicesOnline: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "devices_online",
			Help:      "Number of sensor nodes currently online",
		}),
		DeviceOnline: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "device",
			Name:      "online",
			Help:      "1 when the node is online",
		}, []string{"device"}),
		ReadingValue: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "reading",
			Name:      "value",
			Help:      "Current value of a metric for the selected device",
		}, []string{"device", "metric"}),
		MetricStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "reading",
			Name:      "status",
			Help:      "Threshold status of the current value: -1 low, 0 normal, 1 high",
		}, []string{"device", "metric"}),
		ReadingsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "reading",
			Name:      "received_total",
			Help:      "New readings observed per device",
		}, []string{"device"}),
		PumpCommands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "pump",
			Name:      "commands_total",
			Help:      "Pump commands issued",
		}, []string{"pump", "field", "outcome"}),
		SettingsSaves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "settings",
			Name:      "saves_total",
			Help:      "Threshold saves",
		}, []string{"outcome"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests served",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.StoreConnected,
		m.Devices,
		m.DevicesOnline,
		m.DeviceOnline,
		m.ReadingValue,
		m.MetricStatus,
		m.ReadingsReceived,
		m.PumpCommands,
		m.SettingsSaves,
		m.HTTPRequests,
		m.HTTPDuration,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// SetBool sets g to 1 or 0.
func SetBool(g prometheus.Gauge, v bool) {
	if v {
		g.Set(1)
		return
	}
	g.Set(0)
}
