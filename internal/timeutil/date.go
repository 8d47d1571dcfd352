package timeutil

import (
	"fmt"
	"time"
)

// dateLayout is the ISO 8601 calendar date format used on the wire and in SQLite.
const dateLayout = "2006-01-02"

// Date is a calendar date with no time-of-day or zone.
//
// Dates are compared and shifted in UTC so daylight saving transitions never
// move a date by an hour.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate builds a normalised Date (e.g. 31 April becomes 1 May).
func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses a "YYYY-MM-DD" string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return DateOf(t), nil
}

// MustParseDate is ParseDate for constants and tests. It panics on error.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Today returns the current calendar date in loc.
func Today(now time.Time, loc *time.Location) Date {
	return DateOf(now.In(loc))
}

func (d Date) utc() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool { return d == Date{} }

// Weekday returns the day of the week.
func (d Date) Weekday() time.Weekday { return d.utc().Weekday() }

// AddDays returns the date n days later (or earlier for negative n).
func (d Date) AddDays(n int) Date { return DateOf(d.utc().AddDate(0, 0, n)) }

// DaysSince returns the number of whole days from other to d.
func (d Date) DaysSince(other Date) int {
	return int(d.utc().Sub(other.utc()).Hours() / 24)
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool { return d.utc().Before(other.utc()) }

// After reports whether d is strictly later than other.
func (d Date) After(other Date) bool { return d.utc().After(other.utc()) }

// Between reports whether from <= d <= to.
func (d Date) Between(from, to Date) bool {
	return !d.Before(from) && !d.After(to)
}

// DaysInMonth returns how many days the date's month has.
func (d Date) DaysInMonth() int {
	return time.Date(d.Year, d.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// IsLeapYear reports whether the date's year is a leap year.
func (d Date) IsLeapYear() bool {
	return time.Date(d.Year, time.December, 31, 0, 0, 0, 0, time.UTC).YearDay() == 366
}

// WeekdayOrdinal returns which occurrence of its weekday d is within its month
// (1 for the first Monday, 2 for the second, ...).
func (d Date) WeekdayOrdinal() int { return (d.Day-1)/7 + 1 }

// IsLastWeekdayOfMonth reports whether no later date in the month shares d's weekday.
func (d Date) IsLastWeekdayOfMonth() bool { return d.Day+7 > d.DaysInMonth() }

// In returns local midnight of d in loc.
func (d Date) In(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// String formats the date as "YYYY-MM-DD".
func (d Date) String() string { return d.utc().Format(dateLayout) }

// MarshalText implements encoding.TextMarshaler. The zero Date encodes
// as an empty string.
func (d Date) MarshalText() ([]byte, error) {
	if d.IsZero() {
		return []byte{}, nil
	}
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. An empty string
// decodes to the zero Date.
func (d *Date) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseDatePtr parses an optional date column. An empty string yields nil.
func ParseDatePtr(s string) (*Date, error) {
	if s == "" {
		return nil, nil //nolint:nilnil // absent value is not an error
	}
	d, err := ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
