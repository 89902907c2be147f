package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/farmwatch-core/internal/audit"
	"github.com/nerrad567/farmwatch-core/internal/infrastructure/rtdb"
	"github.com/nerrad567/farmwatch-core/internal/pump"
)

// handleListPumps returns the pump page.
func (s *Server) handleListPumps(w http.ResponseWriter, _ *http.Request) {
	view, err := s.views.Pumps()
	if err != nil {
		s.writeDomainError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleGetPump returns one pump.
func (s *Server) handleGetPump(w http.ResponseWriter, r *http.Request) {
	if err := s.monitor.Ready(); err != nil {
		s.writeDomainError(w, err, "")
		return
	}
	p, err := s.monitor.Pumps.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleToggleMode flips a pump between manual and auto.
func (s *Server) handleToggleMode(w http.ResponseWriter, r *http.Request) {
	s.pumpCommand(w, r, audit.ActionPumpMode, pump.FieldMode, nil,
		func(ctx context.Context, id string) (pump.Pump, error) {
			return s.monitor.Pumps.ToggleMode(ctx, id)
		})
}

// handleToggleStatus switches a manual pump on or off.
func (s *Server) handleToggleStatus(w http.ResponseWriter, r *http.Request) {
	s.pumpCommand(w, r, audit.ActionPumpStatus, pump.FieldStatus, nil,
		func(ctx context.Context, id string) (pump.Pump, error) {
			return s.monitor.Pumps.ToggleStatus(ctx, id)
		})
}

// deviceRequest is the body of PUT /pumps/{id}/device.
type deviceRequest struct {
	Device string `json:"device"`
}

// handleSetPumpDevice links an auto pump to a sensor node.
func (s *Server) handleSetPumpDevice(w http.ResponseWriter, r *http.Request) {
	var req deviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	s.pumpCommand(w, r, audit.ActionPumpDevice, pump.FieldDevice, map[string]any{"device": req.Device},
		func(ctx context.Context, id string) (pump.Pump, error) {
			return s.monitor.Pumps.SetDevice(ctx, id, req.Device)
		})
}

// pumpCommand runs one pump write with metrics and audit.
func (s *Server) pumpCommand(
	w http.ResponseWriter,
	r *http.Request,
	action, field string,
	details map[string]any,
	run func(context.Context, string) (pump.Pump, error),
) {
	if err := s.monitor.Ready(); err != nil {
		s.writeDomainError(w, err, "")
		return
	}
	id := chi.URLParam(r, "id")

	p, err := run(r.Context(), id)
	s.metrics.PumpCommands.WithLabelValues(id, field, outcome(err)).Inc()
	s.record(audit.Entry{
		Action:     action,
		EntityType: "pump",
		EntityID:   id,
		Path:       rtdb.JoinPath(s.monitor.Pumps.Path(), id, field),
		Outcome:    outcome(err),
		Details:    details,
	})
	if err != nil {
		s.writeDomainError(w, err, "Failed to update "+id)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
