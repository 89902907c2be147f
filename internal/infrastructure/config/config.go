package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	DriverFirebase = "firebase"
	DriverMemory   = "memory"
)

// Config is the root configuration structure for FarmWatch Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site      SiteConfig      `yaml:"site"`
	Store     StoreConfig     `yaml:"store"`
	Monitor   MonitorConfig   `yaml:"monitor"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Simulator SimulatorConfig `yaml:"simulator"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// SiteConfig contains site-specific information.
type SiteConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// StoreConfig describes the shared real-time database the sensor nodes write to.
type StoreConfig struct {
	// Driver selects the store backend: "firebase" or "memory".
	Driver string `yaml:"driver"`

	// DatabaseURL is the realtime database root, e.g.
	// https://farm-default-rtdb.asia-southeast1.firebasedatabase.app
	DatabaseURL string `yaml:"database_url"`

	// APIKey is the web API key used for anonymous sign-in.
	APIKey string `yaml:"api_key"`

	// AnonymousAuth signs in anonymously before the first request.
	AnonymousAuth bool `yaml:"anonymous_auth"`

	// RequestTimeout bounds each REST call (streams are not bounded).
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// IdentityURL and TokenURL override the Google identity endpoints.
	// Only tests and emulators need these.
	IdentityURL string `yaml:"identity_url,omitempty"`
	TokenURL    string `yaml:"token_url,omitempty"`

	Paths StorePathsConfig `yaml:"paths"`
}

// StorePathsConfig contains the well-known paths of the store schema.
type StorePathsConfig struct {
	DevicePrefix string `yaml:"device_prefix"`
	Settings     string `yaml:"settings"`
	Pumps        string `yaml:"pumps"`
}

// MonitorConfig controls how readings are derived and how presence is judged.
type MonitorConfig struct {
	// HistoryWindow is the number of trailing readings kept for charts.
	// 0 keeps the full history.
	HistoryWindow int `yaml:"history_window"`

	// OnlineTolerance is the maximum age of the latest reading for a device
	// to count as online.
	OnlineTolerance time.Duration `yaml:"online_tolerance"`

	// PresencePollInterval is how often presence is re-evaluated when no
	// new reading arrives.
	PresencePollInterval time.Duration `yaml:"presence_poll_interval"`

	// ProducerUTCOffset is the fixed offset of the sensor nodes' clocks.
	ProducerUTCOffset time.Duration `yaml:"producer_utc_offset"`

	// Bootstrap writes default settings and pump records where absent.
	Bootstrap bool `yaml:"bootstrap"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// SimulatorConfig controls the synthetic sensor nodes of the simulate command.
type SimulatorConfig struct {
	Devices  int           `yaml:"devices"`
	Interval time.Duration `yaml:"interval"`
	// Seed makes device ids and places reproducible; 0 picks a random seed.
	Seed int64 `yaml:"seed"`
	// PumpAgent evaluates pump records like the device-side controller.
	PumpAgent bool `yaml:"pump_agent"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: FARMWATCH_SECTION_KEY
// For example: FARMWATCH_STORE_URL, FARMWATCH_API_PORT
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("applying environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in configuration with environment overrides
// applied. It is used by CLI commands when no config file exists.
func Default() (*Config, error) {
	cfg := defaultConfig()
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("applying environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:   "farm-001",
			Name: "FarmWatch",
		},
		Store: StoreConfig{
			Driver:         DriverMemory,
			AnonymousAuth:  true,
			RequestTimeout: 10 * time.Second,
			Paths: StorePathsConfig{
				DevicePrefix: "device_",
				Settings:     "settings",
				Pumps:        "Pump",
			},
		},
		Monitor: MonitorConfig{
			HistoryWindow:        20,
			OnlineTolerance:      3 * time.Second,
			PresencePollInterval: 2 * time.Second,
			ProducerUTCOffset:    8 * time.Hour,
			Bootstrap:            true,
		},
		Database: DatabaseConfig{
			Path:        "./data/farmwatch.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "farmwatch-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		InfluxDB: InfluxDBConfig{
			Bucket:        "farmwatch",
			BatchSize:     100,
			FlushInterval: 10,
		},
		Simulator: SimulatorConfig{
			Devices:   2,
			Interval:  time.Second,
			PumpAgent: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: FARMWATCH_SECTION_KEY
func applyEnvOverrides(cfg *Config) error {
	// Store
	if v := os.Getenv("FARMWATCH_STORE_DRIVER"); v != "" {
		cfg.Store.Driver = v
	}
	if v := os.Getenv("FARMWATCH_STORE_URL"); v != "" {
		cfg.Store.DatabaseURL = v
	}
	if v := os.Getenv("FARMWATCH_STORE_API_KEY"); v != "" {
		cfg.Store.APIKey = v
	}

	// Database
	if v := os.Getenv("FARMWATCH_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("FARMWATCH_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("FARMWATCH_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("FARMWATCH_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("FARMWATCH_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("FARMWATCH_API_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("FARMWATCH_API_PORT: %w", err)
		}
		cfg.API.Port = port
	}

	// InfluxDB
	if v := os.Getenv("FARMWATCH_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Logging
	if v := os.Getenv("FARMWATCH_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	return nil
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}

	switch c.Store.Driver {
	case DriverMemory:
	case DriverFirebase:
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required for the firebase driver (set FARMWATCH_STORE_URL)")
		} else if u, err := url.Parse(c.Store.DatabaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, "store.database_url must be an absolute URL")
		}
		if c.Store.AnonymousAuth && c.Store.APIKey == "" {
			errs = append(errs, "store.api_key is required for anonymous sign-in (set FARMWATCH_STORE_API_KEY)")
		}
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q is not supported (firebase or memory)", c.Store.Driver))
	}

	if c.Store.Paths.DevicePrefix == "" {
		errs = append(errs, "store.paths.device_prefix is required")
	}
	if c.Store.Paths.Settings == "" || c.Store.Paths.Pumps == "" {
		errs = append(errs, "store.paths.settings and store.paths.pumps are required")
	}

	if c.Monitor.HistoryWindow < 0 {
		errs = append(errs, "monitor.history_window must not be negative")
	}
	if c.Monitor.OnlineTolerance <= 0 {
		errs = append(errs, "monitor.online_tolerance must be positive")
	}
	if c.Monitor.PresencePollInterval <= 0 {
		errs = append(errs, "monitor.presence_poll_interval must be positive")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// 0 binds an ephemeral port.
	if c.API.Port < 0 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 0 and 65535")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if c.Simulator.Devices < 1 {
		errs = append(errs, "simulator.devices must be at least 1")
	}
	if c.Simulator.Interval <= 0 {
		errs = append(errs, "simulator.interval must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// ProducerLocation returns the fixed zone the sensor nodes format their
// clock readings in.
func (c *Config) ProducerLocation() *time.Location {
	offset := int(c.Monitor.ProducerUTCOffset / time.Second)
	hours := offset / 3600
	name := fmt.Sprintf("UTC%+d", hours)
	if offset%3600 != 0 {
		name = fmt.Sprintf("UTC%+d:%02d", hours, abs(offset%3600)/60)
	}
	return time.FixedZone(name, offset)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
