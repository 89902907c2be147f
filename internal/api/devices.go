package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/farmwatch-core/internal/audit"
	"github.com/nerrad567/farmwatch-core/internal/dashboard"
	"github.com/nerrad567/farmwatch-core/internal/device"
)

// DeviceResponse is a device with its presence.
type DeviceResponse struct {
	device.Device
	Online   bool `json:"online"`
	Selected bool `json:"selected"`
}

func (s *Server) deviceResponse(d device.Device) DeviceResponse {
	return DeviceResponse{
		Device:   d,
		Online:   s.monitor.Presence.Status(d.ID).Online,
		Selected: s.monitor.Selection.Selected() == d.ID,
	}
}

// handleListDevices returns every sensor node in key order.
func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	if err := s.monitor.Ready(); err != nil {
		s.writeDomainError(w, err, "")
		return
	}
	devices := s.monitor.Registry.Devices()
	out := make([]DeviceResponse, 0, len(devices))
	for _, d := range devices {
		out = append(out, s.deviceResponse(d))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"devices": out,
		"count":   len(out),
	})
}

// handleGetDevice returns one sensor node.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	if err := s.monitor.Ready(); err != nil {
		s.writeDomainError(w, err, "")
		return
	}
	d, err := s.monitor.Registry.Device(chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, s.deviceResponse(*d))
}

// placeRequest is the body of PUT /devices/{id}/place.
type placeRequest struct {
	Place string `json:"place"`
}

// handleSetPlace renames a device's place.
func (s *Server) handleSetPlace(w http.ResponseWriter, r *http.Request) {
	if err := s.monitor.Ready(); err != nil {
		s.writeDomainError(w, err, "")
		return
	}
	id := chi.URLParam(r, "id")

	var req placeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	err := s.monitor.Registry.SetPlace(r.Context(), id, req.Place)
	s.record(audit.Entry{
		Action:     audit.ActionDevicePlace,
		EntityType: "device",
		EntityID:   id,
		Path:       device.PlacePath(id),
		Outcome:    outcome(err),
		Details:    map[string]any{"place": req.Place},
	})
	if err != nil {
		s.writeDomainError(w, err, "Failed to update place")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"device": id, "place": req.Place})
}

// handleGetSelection returns the shared device selection.
func (s *Server) handleGetSelection(w http.ResponseWriter, _ *http.Request) {
	if err := s.monitor.Ready(); err != nil {
		s.writeDomainError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, s.monitor.Selection.State())
}

// selectRequest is the body of PUT /selection.
type selectRequest struct {
	Device string `json:"device"`
}

// handleSelectDevice changes the selected device for every view.
func (s *Server) handleSelectDevice(w http.ResponseWriter, r *http.Request) {
	if err := s.monitor.Ready(); err != nil {
		s.writeDomainError(w, err, "")
		return
	}

	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	err := s.monitor.Selection.SelectDevice(req.Device)
	s.record(audit.Entry{
		Action:     audit.ActionDeviceSelect,
		EntityType: "device",
		EntityID:   req.Device,
		Outcome:    outcome(err),
	})
	if err != nil {
		s.writeDomainError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, s.monitor.Selection.State())
}

// handleReadings returns a metric page. The optional device query
// parameter reads another device once without changing the selection.
func (s *Server) handleReadings(w http.ResponseWriter, r *http.Request) {
	m, err := dashboard.ParseMetric(chi.URLParam(r, "metric"))
	if err != nil {
		s.writeDomainError(w, err, "")
		return
	}

	view, err := s.views.Metric(r.Context(), m, r.URL.Query().Get("device"))
	if err != nil {
		s.writeDomainError(w, err, view.Error)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
