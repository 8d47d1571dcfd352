package facility

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-facility/internal/equipment"
	"github.com/nerrad567/gray-logic-facility/internal/hours"
	"github.com/nerrad567/gray-logic-facility/internal/thermostat"
)

// Repository defines the entity store operations.
type Repository interface {
	GetSite(ctx context.Context, id string) (*Site, error)
	ListSites(ctx context.Context) ([]Site, error)
	CreateSite(ctx context.Context, site *Site) error

	ListWeeklyHours(ctx context.Context, siteID string) ([]hours.WeeklyHours, error)
	SetWeeklyHours(ctx context.Context, wh hours.WeeklyHours) error

	// ListExceptionRules returns a site's rules newest first (created_at
	// DESC, id ASC), which is the order the hours resolver picks from.
	ListExceptionRules(ctx context.Context, siteID string) ([]hours.ExceptionRule, error)
	CreateExceptionRule(ctx context.Context, rule *hours.ExceptionRule) error

	ListEquipment(ctx context.Context, siteID string) ([]equipment.Entry, error)
	CreateEquipment(ctx context.Context, e *equipment.Entry) error

	ListZones(ctx context.Context, siteID string) ([]thermostat.Zone, error)
	CreateZone(ctx context.Context, z *thermostat.Zone) error

	GetProfile(ctx context.Context, id string) (*thermostat.Profile, error)
	ListProfiles(ctx context.Context) ([]thermostat.Profile, error)
	CreateProfile(ctx context.Context, p *thermostat.Profile) error

	ListThermostats(ctx context.Context, siteID string) ([]thermostat.Device, error)
	CreateThermostat(ctx context.Context, d *thermostat.Device) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed entity store.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const siteColumns = `id, name, timezone, latitude, longitude, city, lux_sensitivity,
	employee_pre_open_minutes, customer_pre_open_minutes, post_close_minutes,
	created_at, updated_at`

// GetSite returns a single site by ID.
func (r *SQLiteRepository) GetSite(ctx context.Context, id string) (*Site, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+siteColumns+` FROM sites WHERE id = ?`, id)
	site, err := scanSite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSiteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying site %s: %w", id, err)
	}
	return site, nil
}

// ListSites returns all sites ordered by name.
func (r *SQLiteRepository) ListSites(ctx context.Context) ([]Site, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+siteColumns+` FROM sites ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("querying sites: %w", err)
	}
	defer rows.Close()

	var sites []Site
	for rows.Next() {
		s, err := scanSite(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning site: %w", err)
		}
		sites = append(sites, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sites: %w", err)
	}
	return sites, nil
}

// CreateSite validates and inserts a site.
func (r *SQLiteRepository) CreateSite(ctx context.Context, site *Site) error {
	if site.Timezone == "" {
		site.Timezone = "UTC"
	}
	if err := site.Validate(); err != nil {
		return err
	}
	const query = `INSERT INTO sites (id, name, timezone, latitude, longitude, city,
		lux_sensitivity, employee_pre_open_minutes, customer_pre_open_minutes, post_close_minutes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		site.ID, site.Name, site.Timezone,
		nullFloat(site.Latitude), nullFloat(site.Longitude), nullStr(site.City),
		site.LuxSensitivity, site.EmployeePreOpenMinutes, site.CustomerPreOpenMinutes, site.PostCloseMinutes)
	if err != nil {
		return fmt.Errorf("inserting site %s: %w", site.ID, err)
	}
	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSite(row rowScanner) (*Site, error) {
	var s Site
	var lat, lon sql.NullFloat64
	var city sql.NullString
	var createdAt, updatedAt string
	err := row.Scan(&s.ID, &s.Name, &s.Timezone, &lat, &lon, &city, &s.LuxSensitivity,
		&s.EmployeePreOpenMinutes, &s.CustomerPreOpenMinutes, &s.PostCloseMinutes,
		&createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	s.Latitude = floatPtr(lat)
	s.Longitude = floatPtr(lon)
	s.City = strPtr(city)
	s.CreatedAt = parseTime(createdAt)
	s.UpdatedAt = parseTime(updatedAt)
	return &s, nil
}

// ListWeeklyHours returns the site's weekly rows ordered Sunday first.
// Weekdays without a row are simply absent.
func (r *SQLiteRepository) ListWeeklyHours(ctx context.Context, siteID string) ([]hours.WeeklyHours, error) {
	const query = `SELECT site_id, weekday, open_time, close_time, is_closed
		FROM weekly_hours WHERE site_id = ? ORDER BY weekday`
	rows, err := r.db.QueryContext(ctx, query, siteID)
	if err != nil {
		return nil, fmt.Errorf("querying weekly hours: %w", err)
	}
	defer rows.Close()

	var out []hours.WeeklyHours
	for rows.Next() {
		var wh hours.WeeklyHours
		var weekday int
		var open, closeT sql.NullString
		if err := rows.Scan(&wh.SiteID, &weekday, &open, &closeT, &wh.Closed); err != nil {
			return nil, fmt.Errorf("scanning weekly hours: %w", err)
		}
		wh.Weekday = time.Weekday(weekday)
		if wh.Open, err = clockPtr(open); err != nil {
			return nil, fmt.Errorf("weekly hours %s/%s open_time: %w", siteID, wh.Weekday, err)
		}
		if wh.Close, err = clockPtr(closeT); err != nil {
			return nil, fmt.Errorf("weekly hours %s/%s close_time: %w", siteID, wh.Weekday, err)
		}
		out = append(out, wh)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating weekly hours: %w", err)
	}
	return out, nil
}

// SetWeeklyHours inserts or replaces the row for one weekday.
func (r *SQLiteRepository) SetWeeklyHours(ctx context.Context, wh hours.WeeklyHours) error {
	if wh.Closed {
		wh.Open, wh.Close = nil, nil
	}
	const query = `INSERT INTO weekly_hours (site_id, weekday, open_time, close_time, is_closed)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (site_id, weekday) DO UPDATE SET
			open_time = excluded.open_time,
			close_time = excluded.close_time,
			is_closed = excluded.is_closed`
	_, err := r.db.ExecContext(ctx, query,
		wh.SiteID, int(wh.Weekday), nullClock(wh.Open), nullClock(wh.Close), wh.Closed)
	if err != nil {
		return fmt.Errorf("setting weekly hours %s/%s: %w", wh.SiteID, wh.Weekday, err)
	}
	return nil
}

