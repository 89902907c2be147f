// Package logging provides structured logging for FarmWatch Core.
//
// This package wraps Go's standard log/slog package so every component logs
// with the same shape: JSON in production, text in development, with the
// service and version fields on every entry.
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Component("monitor").Info("device selected", "device", id)
//
// Never log the store API key, ID tokens or MQTT passwords.
package logging
