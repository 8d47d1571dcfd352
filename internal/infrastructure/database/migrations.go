package database

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"slices"
	"strings"
	"time"
)

// Migration is one versioned schema change read from a pair of files:
// {version}_{name}.up.sql and an optional {version}_{name}.down.sql,
// where version is "YYYYMMDD_HHMMSS".
type Migration struct {
	Version string
	Name    string
	UpSQL   string
	DownSQL string
}

// MigrationRecord is a row of schema_migrations.
type MigrationRecord struct {
	Version   string
	AppliedAt time.Time
}

const migrationsTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
	version    TEXT PRIMARY KEY,
	applied_at TEXT NOT NULL
)`

// Migrate applies, oldest first, every migration in fsys that is not yet
// recorded. Each one commits on its own, so a failure leaves earlier
// migrations in place and none of the failing one.
func (db *DB) Migrate(ctx context.Context, fsys fs.FS) error {
	_, pending, err := db.MigrationStatus(ctx, fsys)
	if err != nil {
		return err
	}

	for _, m := range pending {
		err := db.WithTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, m.UpSQL); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx,
				"INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)",
				m.Version, time.Now().UTC().Format(time.RFC3339))
			return err
		})
		if err != nil {
			return fmt.Errorf("applying migration %s_%s: %w", m.Version, m.Name, err)
		}
	}
	return nil
}

// MigrateDown reverts the newest applied migration. With nothing applied
// it does nothing.
func (db *DB) MigrateDown(ctx context.Context, fsys fs.FS) error {
	applied, _, err := db.MigrationStatus(ctx, fsys)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		return nil
	}
	latest := applied[len(applied)-1].Version

	all, err := LoadMigrations(fsys)
	if err != nil {
		return err
	}
	i := slices.IndexFunc(all, func(m Migration) bool { return m.Version == latest })
	if i < 0 {
		return fmt.Errorf("applied migration %s is missing from the source", latest)
	}
	m := all[i]
	if m.DownSQL == "" {
		return fmt.Errorf("migration %s_%s cannot be reverted: no down SQL", m.Version, m.Name)
	}

	err = db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, m.DownSQL); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, "DELETE FROM schema_migrations WHERE version = ?", m.Version)
		return err
	})
	if err != nil {
		return fmt.Errorf("reverting migration %s_%s: %w", m.Version, m.Name, err)
	}
	return nil
}

// MigrationStatus lists applied migrations (oldest first) and those in
// fsys still to apply.
func (db *DB) MigrationStatus(ctx context.Context, fsys fs.FS) (applied []MigrationRecord, pending []Migration, err error) {
	if _, err = db.ExecContext(ctx, migrationsTable); err != nil {
		return nil, nil, fmt.Errorf("creating schema_migrations: %w", err)
	}
	if applied, err = db.appliedMigrations(ctx); err != nil {
		return nil, nil, err
	}
	all, err := LoadMigrations(fsys)
	if err != nil {
		return nil, nil, err
	}

	done := make(map[string]struct{}, len(applied))
	for _, r := range applied {
		done[r.Version] = struct{}{}
	}
	for _, m := range all {
		if _, ok := done[m.Version]; !ok {
			pending = append(pending, m)
		}
	}
	return applied, pending, nil
}

func (db *DB) appliedMigrations(ctx context.Context) ([]MigrationRecord, error) {
	rows, err := db.QueryContext(ctx, "SELECT version, applied_at FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("reading schema_migrations: %w", err)
	}
	defer rows.Close()

	var out []MigrationRecord
	for rows.Next() {
		var (
			r  MigrationRecord
			at string
		)
		if err := rows.Scan(&r.Version, &at); err != nil {
			return nil, fmt.Errorf("scanning schema_migrations: %w", err)
		}
		r.AppliedAt, _ = time.Parse(time.RFC3339, at) //nolint:errcheck // Written by Migrate
		out = append(out, r)
	}
	return out, rows.Err()
}

// LoadMigrations reads migration files from the root of fsys, sorted by
// version. Files that do not follow the naming scheme are ignored. A nil
// fsys has no migrations.
func LoadMigrations(fsys fs.FS) ([]Migration, error) {
	if fsys == nil {
		return nil, nil
	}
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("listing migrations: %w", err)
	}

	found := make(map[string]*Migration)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		version, name, up, ok := parseMigrationFilename(e.Name())
		if !ok {
			continue
		}
		body, err := fs.ReadFile(fsys, e.Name())
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", e.Name(), err)
		}

		m := found[version]
		if m == nil {
			m = &Migration{Version: version, Name: name}
			found[version] = m
		}
		if up {
			m.UpSQL = string(body)
		} else {
			m.DownSQL = string(body)
		}
	}

	out := make([]Migration, 0, len(found))
	for _, m := range found {
		if m.UpSQL == "" {
			return nil, fmt.Errorf("migration %s has a down file but no up file", m.Version)
		}
		out = append(out, *m)
	}
	slices.SortFunc(out, func(a, b Migration) int { return strings.Compare(a.Version, b.Version) })
	return out, nil
}

// parseMigrationFilename splits "20260301_090000_create_facility.up.sql"
// into its version, name and direction.
func parseMigrationFilename(filename string) (version, name string, isUp, ok bool) {
	stem, found := strings.CutSuffix(filename, ".sql")
	if !found {
		return "", "", false, false
	}
	if s, up := strings.CutSuffix(stem, ".up"); up {
		stem, isUp = s, true
	} else if s, down := strings.CutSuffix(stem, ".down"); down {
		stem = s
	} else {
		return "", "", false, false
	}

	date, rest, _ := strings.Cut(stem, "_")
	clock, name, _ := strings.Cut(rest, "_")
	if date == "" || clock == "" {
		return "", "", false, false
	}
	return date + "_" + clock, name, isUp, true
}
