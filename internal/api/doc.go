// Package api implements the HTTP REST API and WebSocket server for FarmWatch Core.
//
// This package provides:
//   - REST endpoints behind every dashboard page (overview, metric pages,
//     pump control, settings, documentation)
//   - Device selection and place editing
//   - WebSocket hub relaying monitor events to browsers
//   - Middleware stack (request ID, logging, recovery, CORS, Prometheus)
//   - The embedded web UI and TLS support
//
// # Architecture
//
// The server reads through the monitor, which mirrors the shared realtime
// database. Writes (thresholds, pump commands, place names) go to the
// database through the monitor's components; the resulting pushes flow back
// through the monitor and out over the WebSocket hub, which is registered as
// a monitor sink.
//
//	browser ──REST──▶ api ──▶ settings / pump / device ──▶ realtime DB
//	browser ◀──WS─── Hub ◀── monitor ◀────── pushes ───────────┘
//
// # Errors
//
// Until the monitor is ready every data endpoint answers 503 with the
// monitor's status message. Failed store writes answer 502 with the message
// the dashboard shows to the user.
//
// Routes:
//
//	GET  /api/v1/health                    readiness
//	GET  /api/v1/system                    runtime statistics
//	GET  /api/v1/metrics                   Prometheus exposition
//	GET  /api/v1/pages                     navigation
//	GET  /api/v1/dashboard                 overview page
//	GET  /api/v1/devices[/{id}]            sensor nodes
//	PUT  /api/v1/devices/{id}/place        rename a node's place
//	GET  /api/v1/selection                 selected device
//	PUT  /api/v1/selection                 select a device
//	GET  /api/v1/readings/{metric}         metric page (?device= override)
//	GET  /api/v1/settings                  thresholds
//	PUT  /api/v1/settings                  save thresholds
//	GET  /api/v1/pumps[/{id}]              pump page
//	POST /api/v1/pumps/{id}/mode/toggle    manual ⇄ auto
//	POST /api/v1/pumps/{id}/status/toggle  on ⇄ off (manual only)
//	PUT  /api/v1/pumps/{id}/device         link a node (auto only)
//	GET  /api/v1/audit                     write history
//	GET  /api/v1/documentation             documentation page
//	GET  /api/v1/ws                        WebSocket
package api
