// Package dashboard builds the view models of the FarmWatch pages and serves
// the embedded web UI.
//
// Every page is a pure function of monitor state:
//
//	Page            View           Source
//	/dashboard      Overview       registry, presence, selected device
//	/humidity       MetricView     selected device or a one-shot read
//	/temperature    MetricView     "
//	/soil-moisture  MetricView     "
//	/pump           PumpView       pump controller, registry
//	/settings       SettingsView   settings store
//	/documentation  Documentation  embedded markdown
//
// While the monitor is not ready every view carries its status message
// instead of data.
package dashboard
