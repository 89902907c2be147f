package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/nerrad567/farmwatch-core/internal/infrastructure/metrics"
	"github.com/nerrad567/farmwatch-core/internal/monitor"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status   string         `json:"status"`
	Version  string         `json:"version"`
	Monitor  monitor.Status `json:"monitor"`
	MQTT     *bool          `json:"mqtt,omitempty"`
	InfluxDB *bool          `json:"influxdb,omitempty"`
}

// handleHealth reports readiness. The store connection is what the
// dashboard depends on, so anything but a ready monitor is a 503.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	st := s.monitor.Status()
	ready := st.Phase == monitor.PhaseReady
	metrics.SetBool(s.metrics.StoreConnected, ready)

	resp := HealthResponse{
		Status:  "ok",
		Version: s.version,
		Monitor: st,
	}
	if s.mqtt != nil {
		v := s.mqtt.IsConnected()
		resp.MQTT = &v
	}
	if s.influx != nil {
		v := s.influx.IsConnected()
		resp.InfluxDB = &v
	}

	status := http.StatusOK
	if !ready {
		resp.Status = string(st.Phase)
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// SystemMetrics represents the system metrics response.
type SystemMetrics struct {
	Timestamp     string         `json:"timestamp"`
	Version       string         `json:"version"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	Runtime       RuntimeMetrics `json:"runtime"`
	WebSocket     WSMetrics      `json:"websocket"`
	Devices       DeviceMetrics  `json:"devices"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// WSMetrics contains WebSocket hub statistics.
type WSMetrics struct {
	ConnectedClients int `json:"connected_clients"`
}

// DeviceMetrics counts sensor nodes.
type DeviceMetrics struct {
	Total    int    `json:"total"`
	Online   int    `json:"online"`
	Selected string `json:"selected"`
}

// handleSystem returns process and fleet statistics.
func (s *Server) handleSystem(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	resp := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		WebSocket: WSMetrics{ConnectedClients: s.hub.ClientCount()},
		Devices: DeviceMetrics{
			Total:    s.monitor.Registry.Count(),
			Selected: s.monitor.Selection.Selected(),
		},
	}
	for _, st := range s.monitor.Presence.All() {
		if st.Online {
			resp.Devices.Online++
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
