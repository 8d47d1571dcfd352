// Package database provides SQLite connectivity for the facility service.
//
// It manages:
//   - the connection (WAL mode, busy timeout, foreign keys on)
//   - additive schema migrations read from an fs.FS
//   - lifecycle and health checking
//
// SQLite allows a single writer, so the pool is capped at one connection.
// All queries use parameterised statements.
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    log.Fatal(err)
//	}
//
// Migration files are named YYYYMMDD_HHMMSS_description.up.sql with a
// matching .down.sql. New columns must be NULLABLE or carry a DEFAULT.
package database
