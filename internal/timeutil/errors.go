package timeutil

import "errors"

var (
	// ErrInvalidClock is returned when a wall-clock string cannot be parsed.
	ErrInvalidClock = errors.New("invalid clock time")

	// ErrInvalidDate is returned when a calendar date string cannot be parsed.
	ErrInvalidDate = errors.New("invalid date")
)
