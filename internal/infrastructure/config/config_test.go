package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
site:
  id: "test-farm"
store:
  driver: firebase
  database_url: "https://farm-default-rtdb.example.com"
  api_key: "test-api-key"
  request_timeout: 5s
monitor:
  history_window: 50
  online_tolerance: 4s
database:
  path: "/tmp/test.db"
mqtt:
  broker:
    host: "localhost"
    port: 1883
    client_id: "test-client"
  qos: 1
api:
  host: "0.0.0.0"
  port: 8080
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Site.ID != "test-farm" {
		t.Errorf("Site.ID = %q, want %q", cfg.Site.ID, "test-farm")
	}
	if cfg.Store.Driver != DriverFirebase {
		t.Errorf("Store.Driver = %q, want %q", cfg.Store.Driver, DriverFirebase)
	}
	if cfg.Store.RequestTimeout != 5*time.Second {
		t.Errorf("Store.RequestTimeout = %v, want 5s", cfg.Store.RequestTimeout)
	}
	if cfg.Monitor.HistoryWindow != 50 {
		t.Errorf("Monitor.HistoryWindow = %d, want 50", cfg.Monitor.HistoryWindow)
	}
	if cfg.Monitor.OnlineTolerance != 4*time.Second {
		t.Errorf("Monitor.OnlineTolerance = %v, want 4s", cfg.Monitor.OnlineTolerance)
	}
	// Untouched defaults survive a partial file.
	if cfg.Store.Paths.Pumps != "Pump" {
		t.Errorf("Store.Paths.Pumps = %q, want %q", cfg.Store.Paths.Pumps, "Pump")
	}
	if cfg.Monitor.PresencePollInterval != 2*time.Second {
		t.Errorf("Monitor.PresencePollInterval = %v, want 2s", cfg.Monitor.PresencePollInterval)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "invalid: [yaml: content"))
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	content := `
site:
  id: ""
database:
  path: "/tmp/test.db"
api:
  port: 8080
`
	_, err := Load(writeConfig(t, content))
	if err == nil {
		t.Error("Load() expected validation error for empty site.id, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{
			name: "firebase with url and key",
			mutate: func(c *Config) {
				c.Store.Driver = DriverFirebase
				c.Store.DatabaseURL = "https://farm.example.com"
				c.Store.APIKey = "key"
			},
		},
		{
			name:    "missing site ID",
			mutate:  func(c *Config) { c.Site.ID = "" },
			wantErr: "site.id",
		},
		{
			name:    "unknown driver",
			mutate:  func(c *Config) { c.Store.Driver = "redis" },
			wantErr: "store.driver",
		},
		{
			name:    "firebase without url",
			mutate:  func(c *Config) { c.Store.Driver = DriverFirebase; c.Store.APIKey = "key" },
			wantErr: "store.database_url",
		},
		{
			name: "firebase relative url",
			mutate: func(c *Config) {
				c.Store.Driver = DriverFirebase
				c.Store.DatabaseURL = "farm.example.com"
				c.Store.APIKey = "key"
			},
			wantErr: "absolute URL",
		},
		{
			name: "anonymous auth without key",
			mutate: func(c *Config) {
				c.Store.Driver = DriverFirebase
				c.Store.DatabaseURL = "https://farm.example.com"
			},
			wantErr: "store.api_key",
		},
		{
			name: "firebase without auth needs no key",
			mutate: func(c *Config) {
				c.Store.Driver = DriverFirebase
				c.Store.DatabaseURL = "https://farm.example.com"
				c.Store.AnonymousAuth = false
			},
		},
		{
			name:    "negative history window",
			mutate:  func(c *Config) { c.Monitor.HistoryWindow = -1 },
			wantErr: "history_window",
		},
		{
			name:    "zero tolerance",
			mutate:  func(c *Config) { c.Monitor.OnlineTolerance = 0 },
			wantErr: "online_tolerance",
		},
		{
			name:    "missing database path",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: "database.path",
		},
		{
			name:    "invalid QoS",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: "mqtt.qos",
		},
		{
			name:    "invalid port low",
			mutate:  func(c *Config) { c.API.Port = -1 },
			wantErr: "api.port",
		},
		{
			name:    "invalid port high",
			mutate:  func(c *Config) { c.API.Port = 70000 },
			wantErr: "api.port",
		},
		{
			name:    "influx enabled without url",
			mutate:  func(c *Config) { c.InfluxDB.Enabled = true },
			wantErr: "influxdb.url",
		},
		{
			name:    "simulator without devices",
			mutate:  func(c *Config) { c.Simulator.Devices = 0 },
			wantErr: "simulator.devices",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_GetTimeouts(t *testing.T) {
	cfg := &Config{
		API: APIConfig{
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 45,
				Idle:  60,
			},
		},
	}

	if got := cfg.GetReadTimeout().Seconds(); got != 30 {
		t.Errorf("GetReadTimeout() = %v, want 30", got)
	}
	if got := cfg.GetWriteTimeout().Seconds(); got != 45 {
		t.Errorf("GetWriteTimeout() = %v, want 45", got)
	}
	if got := cfg.GetIdleTimeout().Seconds(); got != 60 {
		t.Errorf("GetIdleTimeout() = %v, want 60", got)
	}
}

func TestConfig_ProducerLocation(t *testing.T) {
	cfg := defaultConfig()
	loc := cfg.ProducerLocation()

	at := time.Date(2024, 1, 1, 4, 0, 0, 0, time.UTC).In(loc)
	if at.Hour() != 12 {
		t.Errorf("04:00 UTC in producer zone = %02d:00, want 12:00", at.Hour())
	}
	if loc.String() != "UTC+8" {
		t.Errorf("ProducerLocation() name = %q, want %q", loc.String(), "UTC+8")
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("FARMWATCH_STORE_DRIVER", "firebase")
	t.Setenv("FARMWATCH_STORE_URL", "https://farm.example.com")
	t.Setenv("FARMWATCH_STORE_API_KEY", "api-key")
	t.Setenv("FARMWATCH_DATABASE_PATH", "/custom/path.db")
	t.Setenv("FARMWATCH_MQTT_HOST", "mqtt.example.com")
	t.Setenv("FARMWATCH_MQTT_USERNAME", "testuser")
	t.Setenv("FARMWATCH_MQTT_PASSWORD", "testpass")
	t.Setenv("FARMWATCH_API_HOST", "192.168.1.1")
	t.Setenv("FARMWATCH_API_PORT", "9090")
	t.Setenv("FARMWATCH_INFLUXDB_TOKEN", "secret-token")
	t.Setenv("FARMWATCH_LOG_LEVEL", "debug")

	if err := applyEnvOverrides(cfg); err != nil {
		t.Fatalf("applyEnvOverrides() error = %v", err)
	}

	checks := []struct {
		field, got, want string
	}{
		{"Store.Driver", cfg.Store.Driver, "firebase"},
		{"Store.DatabaseURL", cfg.Store.DatabaseURL, "https://farm.example.com"},
		{"Store.APIKey", cfg.Store.APIKey, "api-key"},
		{"Database.Path", cfg.Database.Path, "/custom/path.db"},
		{"MQTT.Broker.Host", cfg.MQTT.Broker.Host, "mqtt.example.com"},
		{"MQTT.Auth.Username", cfg.MQTT.Auth.Username, "testuser"},
		{"MQTT.Auth.Password", cfg.MQTT.Auth.Password, "testpass"},
		{"API.Host", cfg.API.Host, "192.168.1.1"},
		{"InfluxDB.Token", cfg.InfluxDB.Token, "secret-token"},
		{"Logging.Level", cfg.Logging.Level, "debug"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %q, want %q", c.field, c.got, c.want)
		}
	}
	if cfg.API.Port != 9090 {
		t.Errorf("API.Port = %d, want 9090", cfg.API.Port)
	}
}

func TestApplyEnvOverrides_BadPort(t *testing.T) {
	t.Setenv("FARMWATCH_API_PORT", "eighty")
	if err := applyEnvOverrides(defaultConfig()); err == nil {
		t.Error("applyEnvOverrides() expected error for non-numeric port")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Site.ID == "" {
		t.Error("defaultConfig should have non-empty Site.ID")
	}
	if cfg.Store.Paths.DevicePrefix != "device_" {
		t.Errorf("defaultConfig DevicePrefix = %q, want %q", cfg.Store.Paths.DevicePrefix, "device_")
	}
	if cfg.Monitor.HistoryWindow != 20 {
		t.Errorf("defaultConfig HistoryWindow = %d, want 20", cfg.Monitor.HistoryWindow)
	}
	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("defaultConfig MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}
	if cfg.API.Port != 8080 {
		t.Errorf("defaultConfig API.Port = %d, want 8080", cfg.API.Port)
	}
}
