// Package equipment turns resolved store hours into on/off times for
// lighting and other scheduled equipment.
package equipment

import (
	"github.com/nerrad567/gray-logic-facility/internal/timeutil"
)

// Category selects which clock an entry follows.
type Category string

// Schedule categories.
const (
	CategoryAlwaysOn      Category = "always_on"
	CategoryHVACZone      Category = "hvac_zone"
	CategoryStoreHours    Category = "store_hours"
	CategoryEmployeeHours Category = "employee_hours"
	CategoryCustomerHours Category = "customer_hours"
	CategoryExteriorLux   Category = "exterior_lux"
)

// ValidCategories lists every accepted category.
var ValidCategories = []Category{
	CategoryAlwaysOn,
	CategoryHVACZone,
	CategoryStoreHours,
	CategoryEmployeeHours,
	CategoryCustomerHours,
	CategoryExteriorLux,
}

// IsValid reports whether c is a known category.
func (c Category) IsValid() bool {
	for _, v := range ValidCategories {
		if c == v {
			return true
		}
	}
	return false
}

// Scheduled reports whether entries of this category appear in a manifest.
// always_on and hvac_zone equipment is driven elsewhere.
func (c Category) Scheduled() bool {
	return c != CategoryAlwaysOn && c != CategoryHVACZone
}

// Entry is one controllable piece of equipment at a site.
//
// OnOffset/OffOffset are minutes relative to open/close; nil means "use
// the category default", which is distinct from an explicit 0.
type Entry struct {
	ID             string   `json:"id"`
	SiteID         string   `json:"site_id"`
	Name           string   `json:"name"`
	Category       Category `json:"schedule_category"`
	OnOffset       *int     `json:"on_offset_minutes,omitempty"`
	OffOffset      *int     `json:"off_offset_minutes,omitempty"`
	LuxSensitivity *int     `json:"lux_sensitivity,omitempty"`
}

// SiteDefaults carries the per-site offsets the categories fall back to.
type SiteDefaults struct {
	EmployeePreOpenMinutes int `json:"employee_pre_open_minutes"`
	CustomerPreOpenMinutes int `json:"customer_pre_open_minutes"`
	PostCloseMinutes       int `json:"post_close_minutes"`
	LuxSensitivity         int `json:"lux_sensitivity"`
}

// OffsetSource records where an applied offset came from.
type OffsetSource string

// Offset sources.
const (
	OffsetFromEntry    OffsetSource = "entry"
	OffsetFromCategory OffsetSource = "category_default"
)

// ScheduleSource labels the clock(s) a schedule was derived from.
type ScheduleSource string

// Schedule sources.
const (
	SourceStoreHours       ScheduleSource = "store_hours"
	SourceSunAndStoreHours ScheduleSource = "sun_and_store_hours"
)

// ConditionLuxBelowThreshold marks a transition that only fires when the
// live lux reading is below the entry's sensitivity threshold.
const ConditionLuxBelowThreshold = "lux_below_threshold"

// DualWindow is the four-point exterior lighting plan: a morning window
// ending at dawn and an evening window starting at dusk.
type DualWindow struct {
	MorningOn          *timeutil.Clock `json:"morning_on"`
	MorningOff         *timeutil.Clock `json:"morning_off"`
	EveningOn          *timeutil.Clock `json:"evening_on"`
	EveningOff         *timeutil.Clock `json:"evening_off"`
	MorningOnCondition string          `json:"morning_on_condition,omitempty"`
}

// Schedule is the computed plan for one entry.
type Schedule struct {
	EquipmentID     string          `json:"equipment_id"`
	Name            string          `json:"name"`
	Category        Category        `json:"schedule_category"`
	On              *timeutil.Clock `json:"on_time,omitempty"`
	Off             *timeutil.Clock `json:"off_time,omitempty"`
	Window          *DualWindow     `json:"dual_window,omitempty"`
	OnOffset        int             `json:"on_offset_minutes"`
	OffOffset       int             `json:"off_offset_minutes"`
	OnOffsetSource  OffsetSource    `json:"on_offset_source"`
	OffOffsetSource OffsetSource    `json:"off_offset_source"`
	Source          ScheduleSource  `json:"schedule_source"`
	LuxSensitivity  *int            `json:"lux_sensitivity,omitempty"`
}
