package timeutil

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Clock is a local wall-clock time expressed as minutes since midnight.
//
// Valid values are 0 (00:00) through 1439 (23:59). Arithmetic via Add
// clamps to that range so an offset never wraps into another day.
type Clock int

const (
	// MinutesPerDay is the number of minutes in a calendar day.
	MinutesPerDay = 24 * 60

	// EndOfDay is the last representable minute of a day (23:59).
	EndOfDay Clock = MinutesPerDay - 1
)

// NewClock builds a Clock from an hour and minute.
func NewClock(hour, minute int) Clock {
	return Clock(hour*60 + minute).clamp()
}

// ParseClock parses "HH:MM" or "HH:MM:SS". Seconds are truncated.
func ParseClock(s string) (Clock, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("%w: hour in %q", ErrInvalidClock, s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("%w: minute in %q", ErrInvalidClock, s)
	}
	if len(parts) == 3 {
		sec, err := strconv.Atoi(parts[2])
		if err != nil || sec < 0 || sec > 59 {
			return 0, fmt.Errorf("%w: second in %q", ErrInvalidClock, s)
		}
	}

	return Clock(hour*60 + minute), nil
}

// MustParseClock is ParseClock for constants and tests. It panics on error.
func MustParseClock(s string) Clock {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

// ClockOf returns the wall-clock minute of t in t's location.
func ClockOf(t time.Time) Clock {
	return NewClock(t.Hour(), t.Minute())
}

// Hour returns the hour component.
func (c Clock) Hour() int { return int(c) / 60 }

// Minute returns the minute component.
func (c Clock) Minute() int { return int(c) % 60 }

// Add returns c shifted by the given number of minutes, clamped to the day.
func (c Clock) Add(minutes int) Clock {
	return (c + Clock(minutes)).clamp()
}

// String formats the clock as "HH:MM".
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

// MarshalText implements encoding.TextMarshaler.
func (c Clock) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Clock) UnmarshalText(b []byte) error {
	parsed, err := ParseClock(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Ptr returns a pointer to a copy of c.
func (c Clock) Ptr() *Clock { return &c }

func (c Clock) clamp() Clock {
	switch {
	case c < 0:
		return 0
	case c > EndOfDay:
		return EndOfDay
	default:
		return c
	}
}

// ParseClockPtr parses an optional clock column. An empty string yields nil.
func ParseClockPtr(s string) (*Clock, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil //nolint:nilnil // absent value is not an error
	}
	c, err := ParseClock(s)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
