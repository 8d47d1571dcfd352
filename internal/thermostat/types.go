package thermostat

import "time"

// Profile is a reusable named set of setpoints.
type Profile struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	OccupiedHeat   float64 `json:"occupied_heat"`
	OccupiedCool   float64 `json:"occupied_cool"`
	UnoccupiedHeat float64 `json:"unoccupied_heat"`
	UnoccupiedCool float64 `json:"unoccupied_cool"`
	FanMode        string  `json:"fan_mode,omitempty"`
	HVACMode       string  `json:"hvac_mode,omitempty"`
}

// Zone is an HVAC zone. It follows its profile unless IsOverride is set,
// in which case any zone-level setpoint replaces the profile's value.
//
// Guardrails and override offsets always come from the zone.
type Zone struct {
	ID                   string   `json:"id"`
	SiteID               string   `json:"site_id"`
	EquipmentID          *string  `json:"equipment_id,omitempty"`
	Name                 string   `json:"name"`
	ProfileID            *string  `json:"profile_id,omitempty"`
	IsOverride           bool     `json:"is_override"`
	OccupiedHeat         *float64 `json:"occupied_heat,omitempty"`
	OccupiedCool         *float64 `json:"occupied_cool,omitempty"`
	UnoccupiedHeat       *float64 `json:"unoccupied_heat,omitempty"`
	UnoccupiedCool       *float64 `json:"unoccupied_cool,omitempty"`
	GuardrailMin         *float64 `json:"guardrail_min,omitempty"`
	GuardrailMax         *float64 `json:"guardrail_max,omitempty"`
	OverrideOffsetUp     *float64 `json:"override_offset_up,omitempty"`
	OverrideOffsetDown   *float64 `json:"override_offset_down,omitempty"`
	OverrideResetMinutes *int     `json:"override_reset_minutes,omitempty"`
}

// Device is a physical thermostat. ZoneID is nil when it is not assigned.
type Device struct {
	ID     string  `json:"id"`
	SiteID string  `json:"site_id"`
	Name   string  `json:"name"`
	ZoneID *string `json:"zone_id,omitempty"`
}

// Reading is the latest reported device state. Either value may be unknown.
type Reading struct {
	ThermostatID   string     `json:"thermostat_id"`
	Temperature    *float64   `json:"current_temperature,omitempty"`
	ActualSetpoint *float64   `json:"actual_setpoint,omitempty"`
	ReadAt         *time.Time `json:"-"`
}

// SetpointSource records whether setpoints came from the profile or the zone.
type SetpointSource string

// Setpoint sources.
const (
	SetpointsFromProfile      SetpointSource = "profile"
	SetpointsFromZoneOverride SetpointSource = "zone_override"
)

// Setpoints are a zone's fully resolved control parameters.
type Setpoints struct {
	OccupiedHeat         float64        `json:"occupied_heat"`
	OccupiedCool         float64        `json:"occupied_cool"`
	UnoccupiedHeat       float64        `json:"unoccupied_heat"`
	UnoccupiedCool       float64        `json:"unoccupied_cool"`
	GuardrailMin         *float64       `json:"guardrail_min,omitempty"`
	GuardrailMax         *float64       `json:"guardrail_max,omitempty"`
	OverrideOffsetUp     float64        `json:"override_offset_up"`
	OverrideOffsetDown   float64        `json:"override_offset_down"`
	OverrideResetMinutes *int           `json:"override_reset_minutes,omitempty"`
	FanMode              string         `json:"fan_mode,omitempty"`
	HVACMode             string         `json:"hvac_mode,omitempty"`
	ProfileID            string         `json:"profile_id,omitempty"`
	Source               SetpointSource `json:"source"`
}

// Band returns the heat/cool pair for the occupancy phase.
func (s Setpoints) Band(occupied bool) (heat, cool float64) {
	if occupied {
		return s.OccupiedHeat, s.OccupiedCool
	}
	return s.UnoccupiedHeat, s.UnoccupiedCool
}

// Phase is the occupancy phase a directive was computed for.
type Phase string

// Occupancy phases.
const (
	PhaseOccupied   Phase = "occupied"
	PhaseUnoccupied Phase = "unoccupied"
)

// Action is the structured form of a directive, one per decision branch.
type Action string

// Directive actions, in evaluation priority order.
const (
	ActionNoZone             Action = "no_zone"
	ActionFreezeGuardrail    Action = "freeze_guardrail"
	ActionOverheatGuardrail  Action = "overheat_guardrail"
	ActionOverrideCoolActive Action = "override_cool_active"
	ActionOverrideHeatActive Action = "override_heat_active"
	ActionOverrideCoolClamp  Action = "override_cool_clamp"
	ActionOverrideHeatClamp  Action = "override_heat_clamp"
	ActionHeat               Action = "heat"
	ActionCool               Action = "cool"
	ActionInRange            Action = "in_range"
	ActionHoldBand           Action = "hold_band"
)

// Input is everything the engine needs to decide one thermostat.
type Input struct {
	HasZone   bool
	Occupied  bool
	Setpoints Setpoints
	Reading   *Reading

	// Unit is the temperature unit suffix used in messages ("F" or "C").
	Unit string
}

// Directive is the engine's decision for one thermostat.
type Directive struct {
	Action               Action   `json:"action"`
	Message              string   `json:"directive"`
	Phase                Phase    `json:"phase,omitempty"`
	HeatSetpoint         *float64 `json:"heat_setpoint,omitempty"`
	CoolSetpoint         *float64 `json:"cool_setpoint,omitempty"`
	TargetSetpoint       *float64 `json:"target_setpoint,omitempty"`
	CurrentTemperature   *float64 `json:"current_temperature,omitempty"`
	ActualSetpoint       *float64 `json:"actual_setpoint,omitempty"`
	OverrideResetMinutes *int     `json:"override_reset_minutes,omitempty"`
}
