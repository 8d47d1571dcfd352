package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3" // registers the "sqlite3" driver
)

const (
	dirMode  = 0o750
	fileMode = 0o600

	pingTimeout = 5 * time.Second
)

// Config holds database connection settings.
type Config struct {
	// Path is the database file. Missing parent directories are created.
	Path string

	// WALMode lets the API read while the compiler writes.
	WALMode bool

	// BusyTimeout is how long a statement waits for a lock, in seconds.
	BusyTimeout int
}

// DB is the facility SQLite database. The embedded *sql.DB is handed to
// the repositories.
type DB struct {
	*sql.DB
	path string
}

// dsn builds the go-sqlite3 connection string for cfg.
func (cfg Config) dsn() string {
	q := url.Values{}
	q.Set("_busy_timeout", strconv.Itoa(cfg.BusyTimeout*1000))
	q.Set("_foreign_keys", "on")
	if cfg.WALMode {
		q.Set("_journal_mode", "WAL")
		q.Set("_synchronous", "NORMAL")
	}
	return "file:" + cfg.Path + "?" + q.Encode()
}

// Open creates the file if needed, pings it and restricts its permissions.
func Open(cfg Config) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), dirMode); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	sqlDB, err := sql.Open("sqlite3", cfg.dsn())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// SQLite allows one writer; a single connection serialises writes
	// instead of surfacing SQLITE_BUSY.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxIdleTime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close() //nolint:errcheck // Already failing
		return nil, fmt.Errorf("verifying database connection: %w", err)
	}

	os.Chmod(cfg.Path, fileMode) //nolint:errcheck // File appears on first write

	return &DB{DB: sqlDB, path: cfg.Path}, nil
}

// Path returns the database file path.
func (db *DB) Path() string { return db.path }

// Close closes the pool. A zero DB closes cleanly.
func (db *DB) Close() error {
	if db.DB == nil {
		return nil
	}
	if err := db.DB.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

// HealthCheck confirms the database answers a query.
func (db *DB) HealthCheck(ctx context.Context) error {
	var one int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("database health check: %w", err)
	}
	return nil
}

// WithTx runs fn in a transaction, committing when fn returns nil and
// rolling back otherwise.
func (db *DB) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // No-op after Commit

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
