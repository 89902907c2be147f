package monitor

import (
	"context"
	"fmt"

	"github.com/nerrad567/farmwatch-core/internal/infrastructure/rtdb"
	"github.com/nerrad567/farmwatch-core/internal/pump"
	"github.com/nerrad567/farmwatch-core/internal/settings"
)

// BootstrapReport lists what EnsureStructure created.
type BootstrapReport struct {
	SettingsCreated bool     `json:"settings_created"`
	PumpsCreated    []string `json:"pumps_created"`
}

// Empty reports whether nothing was written.
func (r BootstrapReport) Empty() bool {
	return !r.SettingsCreated && len(r.PumpsCreated) == 0
}

// EnsureStructure creates the default settings record and the default
// pumps where they are missing. Nothing that exists is overwritten.
func EnsureStructure(ctx context.Context, store rtdb.Store, settingsPath, pumpsPath string) (BootstrapReport, error) {
	var report BootstrapReport

	snap, err := store.Get(ctx, settingsPath)
	if err != nil {
		return report, fmt.Errorf("reading %s: %w", settingsPath, err)
	}
	if !snap.Exists() {
		if err := store.Set(ctx, settingsPath, settings.Defaults().Record()); err != nil {
			return report, fmt.Errorf("creating %s: %w", settingsPath, err)
		}
		report.SettingsCreated = true
	}

	created, err := pump.EnsureDefaults(ctx, store, pumpsPath, pump.DefaultIDs)
	report.PumpsCreated = created
	if err != nil {
		return report, err
	}
	return report, nil
}
