// Package presence decides whether a sensor node is online.
//
// Two signals are combined:
//
//	first observation          later observations
//	-----------------          ------------------
//	formatted_time  vs         monotonic arrival time of the
//	wall clock in the          newest reading (timestamp advanced)
//	producer's time zone
//
// A device is online while the last arrival is within the tolerance. The
// wall-clock comparison only seeds a device the tracker has never seen,
// since a restart would otherwise show every live device as offline until
// its next reading. The clock comparison is circular, so 23:59:59 against
// 00:00:01 is two seconds apart.
//
// The Tracker is re-evaluated on each new reading and on a polling
// interval; transitions are reported to a callback.
package presence
