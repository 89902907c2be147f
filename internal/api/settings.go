package api

import (
	"encoding/json"
	"net/http"

	"github.com/nerrad567/farmwatch-core/internal/audit"
	"github.com/nerrad567/farmwatch-core/internal/settings"
)

// handleGetSettings returns the threshold form.
func (s *Server) handleGetSettings(w http.ResponseWriter, _ *http.Request) {
	view, err := s.views.Settings()
	if err != nil {
		s.writeDomainError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleSaveSettings stores the thresholds. The body is decoded over the
// current settings, so omitted fields keep their values and the stored
// record is always complete.
func (s *Server) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	if err := s.monitor.Ready(); err != nil {
		s.writeDomainError(w, err, "")
		return
	}

	next := s.monitor.Settings.Current()
	if err := json.NewDecoder(r.Body).Decode(&next); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	err := s.monitor.Settings.Save(r.Context(), next)
	s.metrics.SettingsSaves.WithLabelValues(outcome(err)).Inc()
	s.record(audit.Entry{
		Action:     audit.ActionSettingsSave,
		EntityType: "settings",
		Path:       s.monitor.Settings.Path(),
		Outcome:    outcome(err),
		Details:    map[string]any{"settings": next.Record()},
	})
	if err != nil {
		s.writeDomainError(w, err, settings.MsgSaveFailed)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":  settings.MsgSaved,
		"settings": next,
	})
}
