// Package settings holds the global alert thresholds: one {min, max} pair
// per metric, stored as a single record at the settings path and read by
// every metric view.
//
// Saving always writes the complete record in one set. Editors never send
// a partial record, so a save can't silently drop a sibling threshold, and
// concurrent editors resolve last-writer-wins.
package settings
