package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/farmwatch-core/internal/audit"
	"github.com/nerrad567/farmwatch-core/internal/dashboard"
	"github.com/nerrad567/farmwatch-core/internal/infrastructure/config"
	"github.com/nerrad567/farmwatch-core/internal/infrastructure/logging"
	"github.com/nerrad567/farmwatch-core/internal/infrastructure/metrics"
	"github.com/nerrad567/farmwatch-core/internal/monitor"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// HealthChecker reports whether an optional integration is connected.
// The MQTT and InfluxDB clients implement it.
type HealthChecker interface {
	IsConnected() bool
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config  config.APIConfig
	WS      config.WebSocketConfig
	Logger  *logging.Logger
	Monitor *monitor.Monitor
	Metrics *metrics.Metrics
	// Hub is shared with the monitor, which broadcasts through it.
	Hub *Hub

	// Optional.
	Audit     *audit.Recorder
	AuditRepo audit.Repository
	MQTT      HealthChecker
	InfluxDB  HealthChecker
	// WebDir serves the web UI from disk instead of the embedded copy.
	WebDir  string
	Version string
}

// Server is the HTTP API server for FarmWatch Core.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg       config.APIConfig
	wsCfg     config.WebSocketConfig
	logger    *logging.Logger
	monitor   *monitor.Monitor
	views     *dashboard.Views
	metrics   *metrics.Metrics
	hub       *Hub
	audit     *audit.Recorder
	auditRepo audit.Repository
	mqtt      HealthChecker
	influx    HealthChecker
	webDir    string
	version   string
	started   time.Time
	server    *http.Server
	cancel    context.CancelFunc
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (config, logger, monitor, metrics)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Monitor == nil {
		return nil, fmt.Errorf("monitor is required")
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	if deps.Hub == nil {
		deps.Hub = NewHub(deps.WS, deps.Logger)
	}

	return &Server{
		cfg:       deps.Config,
		wsCfg:     deps.WS,
		logger:    deps.Logger,
		monitor:   deps.Monitor,
		views:     dashboard.New(deps.Monitor),
		metrics:   deps.Metrics,
		hub:       deps.Hub,
		audit:     deps.Audit,
		auditRepo: deps.AuditRepo,
		mqtt:      deps.MQTT,
		influx:    deps.InfluxDB,
		webDir:    deps.WebDir,
		version:   deps.Version,
		started:   time.Now(),
	}, nil
}

// Handler returns the fully wired router.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start begins listening for HTTP connections in a background goroutine.
// The server can be stopped with Close().
//
// Parameters:
//   - ctx: Parent of the hub's lifetime
//
// Returns:
//   - error: Always nil; listener errors are logged
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)
	go s.hub.Run(srvCtx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// record queues an audit entry. Safe without an audit recorder.
func (s *Server) record(entry audit.Entry) {
	s.audit.Record(entry)
}
