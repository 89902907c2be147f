// Package database provides the local SQLite store used for the audit trail.
//
// The shared farm data (devices, readings, settings, pumps) lives in the
// remote realtime database; this package only holds what FarmWatch Core
// itself records about the writes it issues.
//
// Migrations are plain SQL files named YYYYMMDD_HHMMSS_name.up.sql and
// YYYYMMDD_HHMMSS_name.down.sql, embedded by the migrations package:
//
//	db, err := database.Open(ctx, database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    return err
//	}
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
package database
