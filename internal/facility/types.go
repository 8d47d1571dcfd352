package facility

import (
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-facility/internal/equipment"
	"github.com/nerrad567/gray-logic-facility/internal/timeutil"
)

// Lux sensitivity bounds (1 = least sensitive).
const (
	MinLuxSensitivity = 1
	MaxLuxSensitivity = 5
)

// Site is one facility. Coordinates are optional; a site without them
// may still be geocoded from City.
type Site struct {
	ID                     string    `json:"id"`
	Name                   string    `json:"name"`
	Timezone               string    `json:"timezone"`
	Latitude               *float64  `json:"latitude,omitempty"`
	Longitude              *float64  `json:"longitude,omitempty"`
	City                   *string   `json:"city,omitempty"`
	LuxSensitivity         int       `json:"lux_sensitivity"`
	EmployeePreOpenMinutes int       `json:"employee_pre_open_minutes"`
	CustomerPreOpenMinutes int       `json:"customer_pre_open_minutes"`
	PostCloseMinutes       int       `json:"post_close_minutes"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// HasCoordinates reports whether both latitude and longitude are set.
func (s Site) HasCoordinates() bool {
	return s.Latitude != nil && s.Longitude != nil
}

// Location returns the site's time zone. ok is false when the stored name
// could not be loaded and UTC was substituted.
func (s Site) Location() (loc *time.Location, ok bool) {
	return timeutil.LoadLocation(s.Timezone)
}

// Defaults returns the offsets equipment categories fall back to.
func (s Site) Defaults() equipment.SiteDefaults {
	return equipment.SiteDefaults{
		EmployeePreOpenMinutes: s.EmployeePreOpenMinutes,
		CustomerPreOpenMinutes: s.CustomerPreOpenMinutes,
		PostCloseMinutes:       s.PostCloseMinutes,
		LuxSensitivity:         s.LuxSensitivity,
	}
}

// Validate checks required fields and ranges.
func (s Site) Validate() error {
	if s.ID == "" || s.Name == "" {
		return fmt.Errorf("%w: id and name are required", ErrInvalidSite)
	}
	if s.LuxSensitivity < MinLuxSensitivity || s.LuxSensitivity > MaxLuxSensitivity {
		return fmt.Errorf("%w: lux_sensitivity %d out of range 1-5", ErrInvalidSite, s.LuxSensitivity)
	}
	if (s.Latitude == nil) != (s.Longitude == nil) {
		return fmt.Errorf("%w: latitude and longitude must be set together", ErrInvalidSite)
	}
	if s.Latitude != nil && (*s.Latitude < -90 || *s.Latitude > 90 || *s.Longitude < -180 || *s.Longitude > 180) {
		return fmt.Errorf("%w: coordinates out of range", ErrInvalidSite)
	}
	if s.EmployeePreOpenMinutes < 0 || s.CustomerPreOpenMinutes < 0 || s.PostCloseMinutes < 0 {
		return fmt.Errorf("%w: offset minutes must not be negative", ErrInvalidSite)
	}
	return nil
}

// validateEntry checks an equipment entry before it is stored.
func validateEntry(e equipment.Entry) error {
	if e.ID == "" || e.SiteID == "" || e.Name == "" {
		return fmt.Errorf("%w: id, site_id and name are required", ErrInvalidEquipment)
	}
	if !e.Category.IsValid() {
		return fmt.Errorf("%w: unknown schedule_category %q", ErrInvalidEquipment, e.Category)
	}
	if e.LuxSensitivity != nil && (*e.LuxSensitivity < MinLuxSensitivity || *e.LuxSensitivity > MaxLuxSensitivity) {
		return fmt.Errorf("%w: lux_sensitivity %d out of range 1-5", ErrInvalidEquipment, *e.LuxSensitivity)
	}
	return nil
}
