package manifest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-facility/internal/timeutil"
)

// Repository persists compiled manifests.
type Repository interface {
	// Upsert stores the document for (siteID, date), replacing any previous
	// document for that key. The row ID is kept across recompiles and the
	// push status is reset to pending.
	Upsert(ctx context.Context, siteID string, date timeutil.Date, document []byte, compiledAt time.Time) (*Record, error)
	Get(ctx context.Context, siteID string, date timeutil.Date) (*Record, error)
	List(ctx context.Context, siteID string, limit int) ([]Record, error)
	UpdatePushStatus(ctx context.Context, id string, status PushStatus, pushErr *string, at time.Time) error
}

// DefaultListLimit caps List when limit <= 0.
const DefaultListLimit = 30

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed manifest store.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const recordColumns = `id, site_id, manifest_date, document, compiled_at,
	push_status, push_error, pushed_at, created_at, updated_at`

// Upsert inserts or updates the manifest row for (siteID, date).
func (r *SQLiteRepository) Upsert(ctx context.Context, siteID string, date timeutil.Date, document []byte, compiledAt time.Time) (*Record, error) {
	const query = `INSERT INTO daily_manifests (id, site_id, manifest_date, document, compiled_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (site_id, manifest_date) DO UPDATE SET
			document = excluded.document,
			compiled_at = excluded.compiled_at,
			push_status = 'pending',
			push_error = NULL,
			pushed_at = NULL,
			updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')`

	_, err := r.db.ExecContext(ctx, query,
		uuid.NewString(), siteID, date.String(), string(document), compiledAt.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("upserting manifest %s/%s: %w", siteID, date, err)
	}
	return r.Get(ctx, siteID, date)
}

// Get returns the manifest row for (siteID, date).
func (r *SQLiteRepository) Get(ctx context.Context, siteID string, date timeutil.Date) (*Record, error) {
	query := `SELECT ` + recordColumns + ` FROM daily_manifests WHERE site_id = ? AND manifest_date = ?`
	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, siteID, date.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrManifestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying manifest %s/%s: %w", siteID, date, err)
	}
	return rec, nil
}

// List returns a site's most recent manifests, newest date first.
func (r *SQLiteRepository) List(ctx context.Context, siteID string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	query := `SELECT ` + recordColumns + ` FROM daily_manifests
		WHERE site_id = ? ORDER BY manifest_date DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, siteID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying manifests: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning manifest: %w", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating manifests: %w", err)
	}
	return out, nil
}

// UpdatePushStatus records the push outcome. The document is not touched.
func (r *SQLiteRepository) UpdatePushStatus(ctx context.Context, id string, status PushStatus, pushErr *string, at time.Time) error {
	if !status.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidPushStatus, status)
	}

	var pushedAt sql.NullString
	if status == PushSent || status == PushFailed {
		pushedAt = sql.NullString{String: at.UTC().Format(time.RFC3339), Valid: true}
	}
	var errMsg sql.NullString
	if pushErr != nil {
		errMsg = sql.NullString{String: *pushErr, Valid: true}
	}

	const query = `UPDATE daily_manifests
		SET push_status = ?, push_error = ?, pushed_at = ?,
			updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')
		WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query, string(status), errMsg, pushedAt, id)
	if err != nil {
		return fmt.Errorf("updating push status for %s: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrManifestNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var rec Record
	var date, document, compiledAt, status, createdAt, updatedAt string
	var pushErr, pushedAt sql.NullString

	if err := row.Scan(&rec.ID, &rec.SiteID, &date, &document, &compiledAt,
		&status, &pushErr, &pushedAt, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	d, err := timeutil.ParseDate(date)
	if err != nil {
		return nil, fmt.Errorf("parsing manifest_date %q: %w", date, err)
	}
	rec.Date = d
	rec.Document = []byte(document)
	rec.CompiledAt = parseTime(compiledAt)
	rec.PushStatus = PushStatus(status)
	if pushErr.Valid {
		rec.PushError = &pushErr.String
	}
	if pushedAt.Valid {
		t := parseTime(pushedAt.String)
		rec.PushedAt = &t
	}
	rec.CreatedAt = parseTime(createdAt)
	rec.UpdatedAt = parseTime(updatedAt)
	return &rec, nil
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
