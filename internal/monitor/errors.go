package monitor

import "errors"

var (
	// ErrNotConnected is returned when the startup connectivity check fails.
	ErrNotConnected = errors.New("monitor: store not reachable")

	// ErrNotReady is returned by Ready before startup has finished.
	ErrNotReady = errors.New("monitor: starting")
)
