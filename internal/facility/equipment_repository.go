package facility

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/nerrad567/gray-logic-facility/internal/equipment"
	"github.com/nerrad567/gray-logic-facility/internal/thermostat"
)

// ListEquipment returns every equipment entry for a site, ordered by ID.
// Categories the compiler skips are included; filtering is the caller's job.
func (r *SQLiteRepository) ListEquipment(ctx context.Context, siteID string) ([]equipment.Entry, error) {
	const query = `SELECT id, site_id, name, schedule_category,
		on_offset_minutes, off_offset_minutes, lux_sensitivity
		FROM equipment WHERE site_id = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, siteID)
	if err != nil {
		return nil, fmt.Errorf("querying equipment: %w", err)
	}
	defer rows.Close()

	var out []equipment.Entry
	for rows.Next() {
		var e equipment.Entry
		var category string
		var on, off, lux sql.NullInt64
		if err := rows.Scan(&e.ID, &e.SiteID, &e.Name, &category, &on, &off, &lux); err != nil {
			return nil, fmt.Errorf("scanning equipment: %w", err)
		}
		e.Category = equipment.Category(category)
		e.OnOffset = intPtr(on)
		e.OffOffset = intPtr(off)
		e.LuxSensitivity = intPtr(lux)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating equipment: %w", err)
	}
	return out, nil
}

// CreateEquipment validates and inserts an equipment entry.
func (r *SQLiteRepository) CreateEquipment(ctx context.Context, e *equipment.Entry) error {
	if err := validateEntry(*e); err != nil {
		return err
	}
	const query = `INSERT INTO equipment (id, site_id, name, schedule_category,
		on_offset_minutes, off_offset_minutes, lux_sensitivity)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		e.ID, e.SiteID, e.Name, string(e.Category),
		nullInt(e.OnOffset), nullInt(e.OffOffset), nullInt(e.LuxSensitivity))
	if err != nil {
		return fmt.Errorf("inserting equipment %s: %w", e.ID, err)
	}
	return nil
}

// ListZones returns a site's HVAC zones ordered by ID.
func (r *SQLiteRepository) ListZones(ctx context.Context, siteID string) ([]thermostat.Zone, error) {
	const query = `SELECT id, site_id, equipment_id, name, profile_id, is_override,
		occupied_heat, occupied_cool, unoccupied_heat, unoccupied_cool,
		guardrail_min, guardrail_max, override_offset_up, override_offset_down,
		override_reset_minutes
		FROM hvac_zones WHERE site_id = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, siteID)
	if err != nil {
		return nil, fmt.Errorf("querying zones: %w", err)
	}
	defer rows.Close()

	var out []thermostat.Zone
	for rows.Next() {
		var z thermostat.Zone
		var equipmentID, profileID sql.NullString
		var oh, oc, uh, uc, gmin, gmax, up, down sql.NullFloat64
		var reset sql.NullInt64
		if err := rows.Scan(&z.ID, &z.SiteID, &equipmentID, &z.Name, &profileID, &z.IsOverride,
			&oh, &oc, &uh, &uc, &gmin, &gmax, &up, &down, &reset); err != nil {
			return nil, fmt.Errorf("scanning zone: %w", err)
		}
		z.EquipmentID = strPtr(equipmentID)
		z.ProfileID = strPtr(profileID)
		z.OccupiedHeat, z.OccupiedCool = floatPtr(oh), floatPtr(oc)
		z.UnoccupiedHeat, z.UnoccupiedCool = floatPtr(uh), floatPtr(uc)
		z.GuardrailMin, z.GuardrailMax = floatPtr(gmin), floatPtr(gmax)
		z.OverrideOffsetUp, z.OverrideOffsetDown = floatPtr(up), floatPtr(down)
		z.OverrideResetMinutes = intPtr(reset)
		out = append(out, z)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating zones: %w", err)
	}
	return out, nil
}

// CreateZone inserts an HVAC zone.
func (r *SQLiteRepository) CreateZone(ctx context.Context, z *thermostat.Zone) error {
	const query = `INSERT INTO hvac_zones (id, site_id, equipment_id, name, profile_id, is_override,
		occupied_heat, occupied_cool, unoccupied_heat, unoccupied_cool,
		guardrail_min, guardrail_max, override_offset_up, override_offset_down,
		override_reset_minutes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		z.ID, z.SiteID, nullStr(z.EquipmentID), z.Name, nullStr(z.ProfileID), z.IsOverride,
		nullFloat(z.OccupiedHeat), nullFloat(z.OccupiedCool),
		nullFloat(z.UnoccupiedHeat), nullFloat(z.UnoccupiedCool),
		nullFloat(z.GuardrailMin), nullFloat(z.GuardrailMax),
		nullFloat(z.OverrideOffsetUp), nullFloat(z.OverrideOffsetDown),
		nullInt(z.OverrideResetMinutes))
	if err != nil {
		return fmt.Errorf("inserting zone %s: %w", z.ID, err)
	}
	return nil
}

const profileColumns = `id, name, occupied_heat, occupied_cool, unoccupied_heat, unoccupied_cool,
	fan_mode, hvac_mode`

// GetProfile returns a thermostat profile by ID.
func (r *SQLiteRepository) GetProfile(ctx context.Context, id string) (*thermostat.Profile, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM thermostat_profiles WHERE id = ?`, id)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying profile %s: %w", id, err)
	}
	return p, nil
}

// ListProfiles returns every thermostat profile ordered by ID.
// Profiles are shared across sites.
func (r *SQLiteRepository) ListProfiles(ctx context.Context) ([]thermostat.Profile, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+profileColumns+` FROM thermostat_profiles ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying profiles: %w", err)
	}
	defer rows.Close()

	var out []thermostat.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning profile: %w", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating profiles: %w", err)
	}
	return out, nil
}

func scanProfile(row rowScanner) (*thermostat.Profile, error) {
	var p thermostat.Profile
	var fan, mode sql.NullString
	if err := row.Scan(&p.ID, &p.Name, &p.OccupiedHeat, &p.OccupiedCool,
		&p.UnoccupiedHeat, &p.UnoccupiedCool, &fan, &mode); err != nil {
		return nil, err
	}
	p.FanMode = fan.String
	p.HVACMode = mode.String
	return &p, nil
}

// CreateProfile inserts a thermostat profile.
func (r *SQLiteRepository) CreateProfile(ctx context.Context, p *thermostat.Profile) error {
	const query = `INSERT INTO thermostat_profiles (id, name, occupied_heat, occupied_cool,
		unoccupied_heat, unoccupied_cool, fan_mode, hvac_mode)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.Name, p.OccupiedHeat, p.OccupiedCool, p.UnoccupiedHeat, p.UnoccupiedCool,
		emptyToNull(p.FanMode), emptyToNull(p.HVACMode))
	if err != nil {
		return fmt.Errorf("inserting profile %s: %w", p.ID, err)
	}
	return nil
}

// ListThermostats returns a site's thermostat devices ordered by ID.
func (r *SQLiteRepository) ListThermostats(ctx context.Context, siteID string) ([]thermostat.Device, error) {
	const query = `SELECT id, site_id, name, zone_id FROM thermostats WHERE site_id = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, siteID)
	if err != nil {
		return nil, fmt.Errorf("querying thermostats: %w", err)
	}
	defer rows.Close()

	var out []thermostat.Device
	for rows.Next() {
		var d thermostat.Device
		var zoneID sql.NullString
		if err := rows.Scan(&d.ID, &d.SiteID, &d.Name, &zoneID); err != nil {
			return nil, fmt.Errorf("scanning thermostat: %w", err)
		}
		d.ZoneID = strPtr(zoneID)
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating thermostats: %w", err)
	}
	return out, nil
}

// CreateThermostat inserts a thermostat device.
func (r *SQLiteRepository) CreateThermostat(ctx context.Context, d *thermostat.Device) error {
	const query = `INSERT INTO thermostats (id, site_id, name, zone_id) VALUES (?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, d.ID, d.SiteID, d.Name, nullStr(d.ZoneID))
	if err != nil {
		return fmt.Errorf("inserting thermostat %s: %w", d.ID, err)
	}
	return nil
}

func emptyToNull(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
