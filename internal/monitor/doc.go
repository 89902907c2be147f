// Package monitor wires the store listeners together and fans derived
// state out to sinks.
//
// # Startup
//
//	Run(ctx)
//	  │
//	  ├─ connectivity check ──✗──▶ error state, views return 503
//	  │
//	  ├─ EnsureStructure (default settings, Pump1/Pump2 where absent)
//	  │
//	  └─ listeners
//	       ├─ registry   (store root)   ─▶ selection, presence, archive
//	       ├─ settings   (settings)     ─▶ reclassify current values
//	       ├─ pumps      (Pump)
//	       ├─ pipeline   ({selected}/data, re-subscribed on selection change)
//	       └─ presence poll
//
// The pipeline watches exactly one device at a time. On a selection change
// the previous watch is cancelled and waited for before the next starts,
// and every callback carries a generation number so a late snapshot from
// a released watch is dropped.
//
// Sinks receive events serially per listener but listeners run
// concurrently, so a Sink must be safe for concurrent use.
package monitor
