package devicestate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-facility/internal/thermostat"
)

// Repository stores thermostat readings and directives.
type Repository interface {
	RecordReading(ctx context.Context, r thermostat.Reading) error
	ListReadings(ctx context.Context, siteID string) (map[string]thermostat.Reading, error)
	WriteDirective(ctx context.Context, thermostatID string, d thermostat.Directive, at time.Time) error
	GetState(ctx context.Context, thermostatID string) (*State, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed device-state store.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// RecordReading stores the latest reading, keeping any stored directive.
// A nil ReadAt is stamped with the current time.
func (r *SQLiteRepository) RecordReading(ctx context.Context, reading thermostat.Reading) error {
	if reading.ThermostatID == "" {
		return fmt.Errorf("%w: thermostat id is required", ErrInvalidReading)
	}
	if err := r.ensureThermostat(ctx, reading.ThermostatID); err != nil {
		return err
	}

	readAt := time.Now().UTC()
	if reading.ReadAt != nil {
		readAt = reading.ReadAt.UTC()
	}

	const query = `INSERT INTO thermostat_states (thermostat_id, current_temperature, actual_setpoint, reading_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (thermostat_id) DO UPDATE SET
			current_temperature = excluded.current_temperature,
			actual_setpoint = excluded.actual_setpoint,
			reading_at = excluded.reading_at,
			updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')`
	_, err := r.db.ExecContext(ctx, query,
		reading.ThermostatID, nullFloat(reading.Temperature), nullFloat(reading.ActualSetpoint),
		readAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("recording reading for %s: %w", reading.ThermostatID, err)
	}
	return nil
}

// ListReadings returns the latest reading of every thermostat at a site
// that has reported at least once, keyed by thermostat ID.
func (r *SQLiteRepository) ListReadings(ctx context.Context, siteID string) (map[string]thermostat.Reading, error) {
	const query = `SELECT s.thermostat_id, s.current_temperature, s.actual_setpoint, s.reading_at
		FROM thermostat_states s
		JOIN thermostats t ON t.id = s.thermostat_id
		WHERE t.site_id = ?`
	rows, err := r.db.QueryContext(ctx, query, siteID)
	if err != nil {
		return nil, fmt.Errorf("querying readings: %w", err)
	}
	defer rows.Close()

	out := make(map[string]thermostat.Reading)
	for rows.Next() {
		var rd thermostat.Reading
		var temp, setpoint sql.NullFloat64
		var readAt sql.NullString
		if err := rows.Scan(&rd.ThermostatID, &temp, &setpoint, &readAt); err != nil {
			return nil, fmt.Errorf("scanning reading: %w", err)
		}
		rd.Temperature = floatPtr(temp)
		rd.ActualSetpoint = floatPtr(setpoint)
		rd.ReadAt = timePtr(readAt)
		out[rd.ThermostatID] = rd
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating readings: %w", err)
	}
	return out, nil
}

// WriteDirective stores the directive computed for a thermostat. It
// refuses no-zone directives with ErrNoZoneDirective and leaves the row
// untouched in that case.
func (r *SQLiteRepository) WriteDirective(ctx context.Context, thermostatID string, d thermostat.Directive, at time.Time) error {
	if d.Action == thermostat.ActionNoZone {
		return ErrNoZoneDirective
	}
	if err := r.ensureThermostat(ctx, thermostatID); err != nil {
		return err
	}

	const query = `INSERT INTO thermostat_states (thermostat_id, directive, directive_action, directive_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (thermostat_id) DO UPDATE SET
			directive = excluded.directive,
			directive_action = excluded.directive_action,
			directive_at = excluded.directive_at,
			updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')`
	_, err := r.db.ExecContext(ctx, query,
		thermostatID, d.Message, string(d.Action), at.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("writing directive for %s: %w", thermostatID, err)
	}
	return nil
}

// GetState returns the stored row for one thermostat.
func (r *SQLiteRepository) GetState(ctx context.Context, thermostatID string) (*State, error) {
	const query = `SELECT thermostat_id, current_temperature, actual_setpoint, reading_at,
		directive, directive_action, directive_at, updated_at
		FROM thermostat_states WHERE thermostat_id = ?`

	var s State
	var temp, setpoint sql.NullFloat64
	var readAt, directive, action, directiveAt sql.NullString
	var updatedAt string
	err := r.db.QueryRowContext(ctx, query, thermostatID).Scan(&s.ThermostatID, &temp, &setpoint, &readAt,
		&directive, &action, &directiveAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying state %s: %w", thermostatID, err)
	}

	s.Reading = thermostat.Reading{
		ThermostatID:   s.ThermostatID,
		Temperature:    floatPtr(temp),
		ActualSetpoint: floatPtr(setpoint),
		ReadAt:         timePtr(readAt),
	}
	if directive.Valid {
		s.Directive = &directive.String
	}
	if action.Valid {
		a := thermostat.Action(action.String)
		s.DirectiveAction = &a
	}
	s.DirectiveAt = timePtr(directiveAt)
	if t := timePtr(sql.NullString{String: updatedAt, Valid: true}); t != nil {
		s.UpdatedAt = *t
	}
	return &s, nil
}

func (r *SQLiteRepository) ensureThermostat(ctx context.Context, id string) error {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM thermostats WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrUnknownThermostat, id)
	}
	if err != nil {
		return fmt.Errorf("looking up thermostat %s: %w", id, err)
	}
	return nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func floatPtr(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	return &nf.Float64
}

func timePtr(ns sql.NullString) *time.Time {
	if !ns.Valid {
		return nil
	}
	t, err := time.Parse(time.RFC3339, ns.String)
	if err != nil {
		return nil
	}
	return &t
}
