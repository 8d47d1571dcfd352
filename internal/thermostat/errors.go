package thermostat

import "errors"

var (
	// ErrNoProfile is returned when a non-override zone has no profile to follow.
	ErrNoProfile = errors.New("zone has no thermostat profile")

	// ErrIncompleteSetpoints is returned when an override zone leaves a setpoint
	// unset and there is no profile to fall back to.
	ErrIncompleteSetpoints = errors.New("zone setpoints incomplete")
)
