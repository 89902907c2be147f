// FarmWatch Core - IoT farm monitoring dashboard
//
// This is the main entry point for the FarmWatch Core application.
// FarmWatch mirrors the sensor nodes and pumps of a farm from a shared
// realtime database and serves the monitoring dashboard:
//   - Live humidity, temperature and soil moisture per device
//   - Threshold classification against shared settings
//   - Manual and automatic pump control
//   - Optional MQTT relay and InfluxDB archive
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

func main() {
	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cancel()
		os.Exit(1)
	}
}
