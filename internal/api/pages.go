package api

import (
	"net/http"

	"github.com/nerrad567/farmwatch-core/internal/dashboard"
)

// handlePages lists the navigation entries.
func (s *Server) handlePages(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"title": dashboard.Title,
		"pages": dashboard.Pages(),
	})
}

// handleDashboard returns the overview page.
func (s *Server) handleDashboard(w http.ResponseWriter, _ *http.Request) {
	view, err := s.views.Overview()
	if err != nil {
		s.writeDomainError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleDocumentation returns the static documentation page.
func (s *Server) handleDocumentation(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, dashboard.LoadDocumentation())
}
