package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nerrad567/farmwatch-core/internal/api"
	"github.com/nerrad567/farmwatch-core/internal/infrastructure/config"
	"github.com/nerrad567/farmwatch-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/farmwatch-core/internal/infrastructure/logging"
	"github.com/nerrad567/farmwatch-core/internal/infrastructure/metrics"
	"github.com/nerrad567/farmwatch-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/farmwatch-core/internal/monitor"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		webDir   string
		simulate bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard, REST API and WebSocket relay",
		Long: `Run the dashboard server that:
- Mirrors devices, settings and pumps from the realtime database
- Serves the web UI and REST API
- Relays live updates over WebSocket
- Optionally mirrors state to MQTT and archives readings in InfluxDB`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context(), webDir, simulate)
		},
	}
	cmd.Flags().StringVar(&webDir, "web-dir", "", "serve the web UI from this directory instead of the embedded copy")
	cmd.Flags().BoolVar(&simulate, "simulate", false, "run the sensor simulator in-process against the same store")
	return cmd
}

// serve is the application lifecycle, separated from the command for
// testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - webDir: Optional on-disk web UI
//   - simulate: Also run the simulator against the same store
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func (a *app) serve(ctx context.Context, webDir string, simulate bool) error {
	cfg, log := a.cfg, a.log
	log.Info("starting FarmWatch Core",
		"version", version,
		"commit", commit,
		"build_date", date,
		"site", cfg.Site.ID,
	)

	store, err := openStore(ctx, cfg.Store, log)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer func() {
		log.Info("closing store")
		if closeErr := store.Close(); closeErr != nil {
			log.Error("error closing store", "error", closeErr)
		}
	}()

	components := newComponents(cfg, store, log)
	mon := monitor.New(components, monitor.Options{
		HistoryWindow:        cfg.Monitor.HistoryWindow,
		PresencePollInterval: cfg.Monitor.PresencePollInterval,
		ConnectTimeout:       cfg.Store.RequestTimeout,
		Bootstrap:            cfg.Monitor.Bootstrap,
	})
	mon.SetLogger(log.Component("monitor"))

	m := metrics.New()
	mon.AddSink(monitor.NewMetricsSink(m, components.Presence))

	// Audit trail is local and optional: a broken disk must not stop the
	// dashboard.
	trail, err := openAudit(ctx, cfg.Database, "api", log)
	if err != nil {
		log.Warn("audit trail disabled", "error", err)
	}
	defer func() {
		if closeErr := trail.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()

	var publishers monitor.PublisherChain

	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = connectMQTT(cfg.MQTT, log)
		if err != nil {
			return err
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		sink := monitor.NewMQTTSink(mqttClient, log.Component("mqtt"))
		mon.AddSink(sink)
		publishers = append(publishers, sink)
	} else {
		log.Info("MQTT disabled")
	}

	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
		sink := monitor.NewArchiveSink(influxClient)
		mon.AddSink(sink)
		publishers = append(publishers, sink)
	} else {
		log.Info("InfluxDB disabled")
	}

	if len(publishers) > 0 {
		components.Pumps.SetPublisher(publishers)
	}

	hub := api.NewHub(cfg.WebSocket, log.Component("websocket"))
	mon.AddSink(hub)

	deps := api.Deps{
		Config:  cfg.API,
		WS:      cfg.WebSocket,
		Logger:  log.Component("api"),
		Monitor: mon,
		Metrics: m,
		Hub:     hub,
		Audit:   trail.Recorder(),
		WebDir:  webDir,
		Version: version,
	}
	if trail != nil {
		deps.AuditRepo = trail.repo
	}
	if mqttClient != nil {
		deps.MQTT = mqttClient
	}
	if influxClient != nil {
		deps.InfluxDB = influxClient
	}
	srv, err := api.New(deps)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := srv.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	// The monitor outlives a failed connectivity check: the server keeps
	// answering with the error status until shutdown.
	monDone := make(chan struct{})
	go func() {
		defer close(monDone)
		if runErr := mon.Run(ctx); runErr != nil {
			log.Error("monitor stopped", "error", runErr)
		}
	}()

	if simulate {
		go func() {
			if simErr := a.runSimulator(ctx, store, nil); simErr != nil {
				log.Error("simulator stopped", "error", simErr)
			}
		}()
	}

	log.Info("initialisation complete, waiting for shutdown signal",
		"address", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
	)
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")
	<-monDone

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. InfluxDB (if enabled)
	// 3. MQTT (if enabled)
	// 4. Audit database
	// 5. Store

	log.Info("FarmWatch Core stopped")
	return nil
}

// connectMQTT connects to the broker and logs connection changes.
func connectMQTT(cfg config.MQTTConfig, log *logging.Logger) (*mqtt.Client, error) {
	client, err := mqtt.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to MQTT: %w", err)
	}
	client.SetLogger(log.Component("mqtt"))
	client.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	client.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.Broker.Host, cfg.Broker.Port),
		"client_id", cfg.Broker.ClientID,
	)
	return client, nil
}
