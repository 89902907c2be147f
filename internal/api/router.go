package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/farmwatch-core/internal/dashboard"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware())
	r.Use(s.metricsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/system", s.handleSystem)
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

		r.Get("/pages", s.handlePages)
		r.Get("/dashboard", s.handleDashboard)
		r.Get("/documentation", s.handleDocumentation)

		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.handleListDevices)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetDevice)
				r.Put("/place", s.handleSetPlace)
			})
		})

		r.Get("/selection", s.handleGetSelection)
		r.Put("/selection", s.handleSelectDevice)

		r.Get("/readings/{metric}", s.handleReadings)

		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handleSaveSettings)

		r.Route("/pumps", func(r chi.Router) {
			r.Get("/", s.handleListPumps)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetPump)
				r.Post("/mode/toggle", s.handleToggleMode)
				r.Post("/status/toggle", s.handleToggleStatus)
				r.Put("/device", s.handleSetPumpDevice)
			})
		})

		r.Get("/audit", s.handleListAuditLogs)

		r.Get(s.wsPath(), s.handleWebSocket)
	})

	// Web UI: the root redirects to the dashboard; page routes resolve
	// client-side.
	r.Handle("/", http.RedirectHandler(dashboard.PathDashboard, http.StatusFound))
	r.Handle("/*", dashboard.Handler(s.webDir))

	return r
}

func (s *Server) wsPath() string {
	if s.wsCfg.Path == "" {
		return "/ws"
	}
	return s.wsCfg.Path
}
