// Package smartstart estimates how long before opening HVAC must start so
// a zone reaches its occupied band by the time the doors open.
package smartstart

import (
	"errors"
	"math"
)

// Defaults used when a Calculator is built with zero values.
const (
	DefaultDegreesPerHour = 4.0
	DefaultMaxMinutes     = 180
)

// ErrInvalidRate is returned for a non-positive degrees-per-hour rate.
var ErrInvalidRate = errors.New("smartstart: degrees per hour must be positive")

// Mode is the conditioning direction chosen for the estimate.
type Mode string

// Modes.
const (
	ModeHeat Mode = "heat"
	ModeCool Mode = "cool"
	ModeNone Mode = "none"
)

// Estimate is the preconditioning offset for one thermostat.
type Estimate struct {
	Mode    Mode    `json:"mode"`
	Target  float64 `json:"target,omitempty"`
	Minutes int     `json:"minutes"`
	Clamped bool    `json:"clamped,omitempty"`
}

// Calculator converts a temperature gap into lead minutes at a fixed rate.
type Calculator struct {
	degreesPerHour float64
	maxMinutes     int
}

// New creates a Calculator. maxMinutes <= 0 uses DefaultMaxMinutes.
func New(degreesPerHour float64, maxMinutes int) (*Calculator, error) {
	if degreesPerHour <= 0 || math.IsNaN(degreesPerHour) || math.IsInf(degreesPerHour, 0) {
		return nil, ErrInvalidRate
	}
	if maxMinutes <= 0 {
		maxMinutes = DefaultMaxMinutes
	}
	return &Calculator{degreesPerHour: degreesPerHour, maxMinutes: maxMinutes}, nil
}

// Estimate returns the lead time needed to bring current into the
// [heat, cool] band. Inside the band the result is ModeNone with zero minutes.
func (c *Calculator) Estimate(current, heat, cool float64) Estimate {
	var e Estimate
	switch {
	case current < heat:
		e = Estimate{Mode: ModeHeat, Target: heat}
	case current > cool:
		e = Estimate{Mode: ModeCool, Target: cool}
	default:
		return Estimate{Mode: ModeNone}
	}

	gap := math.Abs(e.Target - current)
	minutes := int(math.Ceil(gap / c.degreesPerHour * 60))
	if minutes > c.maxMinutes {
		minutes = c.maxMinutes
		e.Clamped = true
	}
	e.Minutes = minutes
	return e
}
