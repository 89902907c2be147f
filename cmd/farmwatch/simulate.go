package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nerrad567/farmwatch-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/farmwatch-core/internal/infrastructure/rtdb"
	"github.com/nerrad567/farmwatch-core/internal/simulator"
)

func newSimulateCmd(a *app) *cobra.Command {
	var (
		devices int
		seed    int64
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Write synthetic sensor readings and emulate the pump controller",
		Long: `Run the sensor simulator that:
- Registers synthetic devices with a place name
- Writes one reading per device every interval
- Drives pumps like the device-side controller (manual or auto)
- Logs pump commands relayed over MQTT when enabled`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("devices") {
				a.cfg.Simulator.Devices = devices
			}
			if cmd.Flags().Changed("seed") {
				a.cfg.Simulator.Seed = seed
			}
			ctx := cmd.Context()

			store, err := openStore(ctx, a.cfg.Store, a.log)
			if err != nil {
				return fmt.Errorf("opening store: %w", err)
			}
			defer store.Close() //nolint:errcheck // Best effort on shutdown

			var client *mqtt.Client
			if a.cfg.MQTT.Enabled {
				mcfg := a.cfg.MQTT
				mcfg.Broker.ClientID += "-simulator"
				if client, err = connectMQTT(mcfg, a.log); err != nil {
					return err
				}
				defer client.Close() //nolint:errcheck // Best effort on shutdown
			}
			return a.runSimulator(ctx, store, client)
		},
	}
	cmd.Flags().IntVar(&devices, "devices", 0, "number of simulated devices (default from config)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "seed for reproducible device ids")
	return cmd
}

// runSimulator writes readings until ctx is cancelled. A non-nil client
// receives relayed pump commands.
func (a *app) runSimulator(ctx context.Context, store rtdb.Store, client *mqtt.Client) error {
	cfg, log := a.cfg, a.log.Component("simulator")

	sim := simulator.New(store, simulator.Options{
		Devices:  cfg.Simulator.Devices,
		Interval: cfg.Simulator.Interval,
		Seed:     cfg.Simulator.Seed,
		Location: cfg.ProducerLocation(),
		Prefix:   cfg.Store.Paths.DevicePrefix,
	})
	sim.SetLogger(log)

	if cfg.Simulator.PumpAgent {
		agent := simulator.NewPumpAgent(store, sim, cfg.Store.Paths.Pumps, cfg.Store.Paths.Settings)
		agent.SetLogger(log)
		go agent.Run(ctx, cfg.Simulator.Interval)

		if client != nil {
			topic := mqtt.Topics{}.AllPumpCommands()
			if err := client.Subscribe(topic, byte(cfg.MQTT.QoS), agent.HandleCommand); err != nil {
				log.Warn("pump command subscription failed", "topic", topic, "error", err)
			}
		}
	}

	ids := make([]string, 0, len(sim.Nodes()))
	for _, n := range sim.Nodes() {
		ids = append(ids, n.ID)
	}
	log.Info("simulator running", "devices", ids, "interval", cfg.Simulator.Interval)

	return sim.Run(ctx)
}
