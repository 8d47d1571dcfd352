package devicestate

import (
	"time"

	"github.com/nerrad567/gray-logic-facility/internal/thermostat"
)

// State is the stored row for one thermostat.
type State struct {
	ThermostatID    string             `json:"thermostat_id"`
	Reading         thermostat.Reading `json:"reading"`
	Directive       *string            `json:"directive,omitempty"`
	DirectiveAction *thermostat.Action `json:"directive_action,omitempty"`
	DirectiveAt     *time.Time         `json:"directive_at,omitempty"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// ReadingPayload is the JSON body of a thermostat state message.
type ReadingPayload struct {
	Temperature *float64 `json:"temperature"`
	Setpoint    *float64 `json:"setpoint"`
}
