package devicestate

import "errors"

var (
	// ErrStateNotFound is returned when no state row exists for a thermostat.
	ErrStateNotFound = errors.New("thermostat state not found")

	// ErrNoZoneDirective is returned when asked to store a no-zone directive.
	ErrNoZoneDirective = errors.New("refusing to store directive for thermostat without a zone")

	// ErrUnknownThermostat is returned when a reading names a thermostat
	// that is not in the entity store.
	ErrUnknownThermostat = errors.New("unknown thermostat")

	// ErrInvalidReading is returned for malformed reading payloads.
	ErrInvalidReading = errors.New("invalid thermostat reading")
)
