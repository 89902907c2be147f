package pump

import "errors"

// Domain errors for the pump package.
var (
	// ErrPumpNotFound is returned when a pump ID does not exist.
	ErrPumpNotFound = errors.New("pump: not found")

	// ErrNotManual is returned when toggling power of a pump in auto mode.
	ErrNotManual = errors.New("pump: not in manual mode")

	// ErrNotAuto is returned when linking a device to a pump in manual mode.
	ErrNotAuto = errors.New("pump: not in auto mode")

	// ErrInvalidDevice is returned for an empty linked device.
	ErrInvalidDevice = errors.New("pump: invalid device")

	// ErrWriteFailed wraps store errors. Local state has been rolled back.
	ErrWriteFailed = errors.New("pump: write failed")
)
