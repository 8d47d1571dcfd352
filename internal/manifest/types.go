package manifest

import (
	"encoding/json"
	"time"

	"github.com/nerrad567/gray-logic-facility/internal/astro"
	"github.com/nerrad567/gray-logic-facility/internal/equipment"
	"github.com/nerrad567/gray-logic-facility/internal/facility"
	"github.com/nerrad567/gray-logic-facility/internal/hours"
	"github.com/nerrad567/gray-logic-facility/internal/smartstart"
	"github.com/nerrad567/gray-logic-facility/internal/thermostat"
	"github.com/nerrad567/gray-logic-facility/internal/timeutil"
	"github.com/nerrad567/gray-logic-facility/internal/weather"
)

// Manifest is the compiled document for one site and date.
type Manifest struct {
	SiteID      string               `json:"site_id"`
	Date        timeutil.Date        `json:"date"`
	Site        SiteSnapshot         `json:"site"`
	Hours       hours.Resolution     `json:"hours"`
	Equipment   []equipment.Schedule `json:"equipment"`
	Thermostats []ThermostatEntry    `json:"thermostats"`
	Sun         *astro.SunTimes      `json:"sun_times,omitempty"`
	Weather     *weather.Snapshot    `json:"weather,omitempty"`
	Notes       []string             `json:"notes,omitempty"`
	Errors      []EntryError         `json:"errors,omitempty"`
}

// Occupied reports whether the site is open on the manifest's date.
func (m *Manifest) Occupied() bool { return m.Hours.Occupied() }

// SiteSnapshot is the site configuration the manifest was compiled with.
type SiteSnapshot struct {
	Name      string                 `json:"name"`
	Timezone  string                 `json:"timezone"`
	Latitude  *float64               `json:"latitude,omitempty"`
	Longitude *float64               `json:"longitude,omitempty"`
	City      *string                `json:"city,omitempty"`
	Defaults  equipment.SiteDefaults `json:"defaults"`
}

func snapshotOf(s facility.Site) SiteSnapshot {
	return SiteSnapshot{
		Name:      s.Name,
		Timezone:  s.Timezone,
		Latitude:  s.Latitude,
		Longitude: s.Longitude,
		City:      s.City,
		Defaults:  s.Defaults(),
	}
}

// ThermostatEntry is one thermostat's directive.
type ThermostatEntry struct {
	ThermostatID string                `json:"thermostat_id"`
	Name         string                `json:"name"`
	ZoneID       *string               `json:"zone_id,omitempty"`
	ZoneName     string                `json:"zone_name,omitempty"`
	EquipmentID  *string               `json:"equipment_id,omitempty"`
	Setpoints    *thermostat.Setpoints `json:"setpoints,omitempty"`
	Directive    thermostat.Directive  `json:"directive"`
	SmartStart   *smartstart.Estimate  `json:"smart_start,omitempty"`
}

// HasZone reports whether the directive was computed for a zoned thermostat.
func (e ThermostatEntry) HasZone() bool {
	return e.Directive.Action != thermostat.ActionNoZone
}

// EntryError records a per-entry failure that did not stop compilation.
type EntryError struct {
	Kind    string `json:"kind"`
	ID      string `json:"id"`
	Message string `json:"message"`
}

// Entry error kinds.
const (
	KindEquipment  = "equipment"
	KindThermostat = "thermostat"
	KindInput      = "input"
)

// PushStatus is the outcome of the MQTT push for a stored manifest.
type PushStatus string

// Push statuses.
const (
	PushPending PushStatus = "pending"
	PushSent    PushStatus = "sent"
	PushFailed  PushStatus = "failed"
	PushSkipped PushStatus = "skipped"
)

// IsValid reports whether s is a known status.
func (s PushStatus) IsValid() bool {
	switch s {
	case PushPending, PushSent, PushFailed, PushSkipped:
		return true
	}
	return false
}

// Record is a stored manifest row.
type Record struct {
	ID         string          `json:"id"`
	SiteID     string          `json:"site_id"`
	Date       timeutil.Date   `json:"date"`
	Document   json.RawMessage `json:"document"`
	CompiledAt time.Time       `json:"compiled_at"`
	PushStatus PushStatus      `json:"push_status"`
	PushError  *string         `json:"push_error,omitempty"`
	PushedAt   *time.Time      `json:"pushed_at,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Manifest decodes the stored document.
func (r *Record) Manifest() (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(r.Document, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Summary is the compact form of a compiled manifest sent to event
// consumers and WebSocket subscribers.
type Summary struct {
	ManifestID      string        `json:"manifest_id"`
	SiteID          string        `json:"site_id"`
	Date            timeutil.Date `json:"date"`
	Closed          bool          `json:"is_closed"`
	EquipmentCount  int           `json:"equipment_count"`
	ThermostatCount int           `json:"thermostat_count"`
	ErrorCount      int           `json:"error_count"`
	PushStatus      PushStatus    `json:"push_status"`
	CompiledAt      time.Time     `json:"compiled_at"`
}

// Encode returns the canonical JSON form of m.
func Encode(m *Manifest) ([]byte, error) {
	return json.Marshal(m)
}
