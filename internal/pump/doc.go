// Package pump exposes the irrigation pump records under the Pump path and
// the manual commands an operator can issue against them.
//
// Every command is a single-field write at Pump/<id>/<field>. Local state
// is updated before the write and rolled back to the previous value if the
// write fails. Auto mode is only a flag here: acting on thresholds is the
// pump controller firmware's job.
//
//	mode    manual ⇄ auto     any time
//	status  on ⇄ off          manual mode only
//	device  linked node       auto mode only
package pump
