package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/nerrad567/farmwatch-core/internal/infrastructure/config"
	"github.com/nerrad567/farmwatch-core/internal/infrastructure/logging"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// configEnv names the environment variable holding the config path.
const configEnv = "FARMWATCH_CONFIG"

// app carries what every subcommand needs once the root has loaded config.
type app struct {
	configPath string
	envFile    string

	cfg *config.Config
	log *logging.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "farmwatch",
		Short: "IoT farm monitoring dashboard",
		Long: `FarmWatch Core mirrors a farm's sensor nodes and pumps from a shared
realtime database:
- serve: run the dashboard, REST API and WebSocket relay
- simulate: write synthetic readings and emulate the pump controller
- devices, settings, pump: inspect and change the shared records`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init()
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "",
		"config file (default $"+configEnv+" or "+defaultConfigPath+")")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before the config")

	root.AddCommand(
		newServeCmd(a),
		newSimulateCmd(a),
		newDevicesCmd(a),
		newSettingsCmd(a),
		newPumpCmd(a),
	)
	return root
}

// init loads the dotenv file, then the configuration, then the logger.
func (a *app) init() error {
	if a.envFile != "" {
		if err := godotenv.Load(a.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", a.envFile, err)
		}
	}

	cfg, path, err := loadConfig(a.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	a.cfg = cfg
	a.log = logging.New(cfg.Logging, version)
	if path == "" {
		a.log.Debug("no config file found, using defaults")
	} else {
		a.log.Debug("configuration loaded", "path", path)
	}
	return nil
}

// loadConfig resolves the config path: the flag, then FARMWATCH_CONFIG,
// then the default path. Only a missing default file falls back to the
// built-in configuration; an explicit path must exist.
//
// Returns:
//   - *config.Config: Loaded configuration
//   - string: The file used, empty for built-in defaults
//   - error: If the file cannot be read or is invalid
func loadConfig(flagPath string) (*config.Config, string, error) {
	path := flagPath
	if path == "" {
		path = os.Getenv(configEnv)
	}
	if path != "" {
		cfg, err := config.Load(path)
		return cfg, path, err
	}

	if _, err := os.Stat(defaultConfigPath); errors.Is(err, fs.ErrNotExist) {
		cfg, err := config.Default()
		return cfg, "", err
	}
	cfg, err := config.Load(defaultConfigPath)
	return cfg, defaultConfigPath, err
}
