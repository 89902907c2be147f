// Package device tracks the sensor nodes present in the store and the
// single device currently selected for viewing.
//
// # Architecture
//
//	┌──────────────────────────────────────────────────────────────┐
//	│                       device package                         │
//	│                                                              │
//	│  ┌──────────────────┐  OnUpdate   ┌──────────────────────┐   │
//	│  │     Registry     │────────────▶│      Selection       │   │
//	│  │  (registry.go)   │ []Device    │   (selection.go)     │   │
//	│  │                  │             │                      │   │
//	│  │ • root listener  │             │ • first-device pick  │   │
//	│  │ • device_* keys  │             │ • sticky selection   │   │
//	│  │ • place writes   │             │ • change fan-out     │   │
//	│  └──────────────────┘             └──────────────────────┘   │
//	│           ▲                                  │               │
//	└───────────│──────────────────────────────────│───────────────┘
//	            │                                  ▼
//	   store root push                    monitor re-subscribes
//	                                      {device}/data
//
// A device is any top-level key that starts with the configured prefix
// (device_ by default). Devices are created by the nodes themselves and
// never deleted here. The registry publishes them in lexicographic key
// order.
//
// # Usage
//
//	registry := device.NewRegistry(store, "device_")
//	selection := device.NewSelection()
//	registry.OnUpdate(selection.Refresh)
//	go registry.Run(ctx)
//
//	states, cancel := selection.Subscribe()
//	defer cancel()
package device
