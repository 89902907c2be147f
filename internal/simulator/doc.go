// Package simulator provides synthetic sensor nodes and a device-side pump
// agent for development without hardware.
//
// Each Node writes readings to <device>/data/<uuid> in the shape the real
// nodes use. The PumpAgent plays the role of the pump controller firmware:
// it reads the pump records and decides each pump's output, in manual mode
// from the commanded status and in auto mode from the linked device's
// latest reading against the thresholds. It never writes pump records.
package simulator
