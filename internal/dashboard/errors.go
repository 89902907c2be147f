package dashboard

import "errors"

var (
	// ErrUnknownMetric is returned for a metric name that has no page.
	ErrUnknownMetric = errors.New("dashboard: unknown metric")

	// ErrFetchFailed is returned when a one-shot read of device data fails.
	ErrFetchFailed = errors.New("dashboard: fetch failed")
)
