// Package reading decodes sensor readings from a device's data path and
// derives what the metric views show: the current value and the trailing
// chart history for humidity, temperature and soil moisture.
//
// Readings arrive keyed by opaque ids in no particular order. Every
// derivation sorts ascending by the producer's timestamp first, so the
// current value is always the one with the greatest timestamp.
package reading
