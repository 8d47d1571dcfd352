package facility

import "errors"

var (
	// ErrSiteNotFound is returned when a site ID does not exist.
	ErrSiteNotFound = errors.New("site not found")

	// ErrProfileNotFound is returned when a thermostat profile ID does not exist.
	ErrProfileNotFound = errors.New("thermostat profile not found")

	// ErrInvalidSite is returned when a site fails validation.
	ErrInvalidSite = errors.New("invalid site")

	// ErrInvalidEquipment is returned when an equipment entry fails validation.
	ErrInvalidEquipment = errors.New("invalid equipment")
)
