package equipment

import "errors"

var (
	// ErrUnknownCategory is returned for a schedule_category outside the supported set.
	ErrUnknownCategory = errors.New("unknown schedule category")

	// ErrMissingHours is returned when an open day lacks an open or close time.
	ErrMissingHours = errors.New("open day has no open/close time")
)
