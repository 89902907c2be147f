package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, device.ErrDeviceNotFound) {
//	    // handle not found case
//	}
var (
	// ErrDeviceNotFound is returned when a device ID is not in the registry.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrInvalidPlace is returned when a place name is empty or too long.
	ErrInvalidPlace = errors.New("device: invalid place")

	// ErrWriteFailed wraps store errors from place writes.
	ErrWriteFailed = errors.New("device: write failed")
)
