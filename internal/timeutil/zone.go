package timeutil

import (
	"strings"
	"time"
)

// LoadLocation resolves an IANA zone name.
//
// Empty or unknown names fall back to UTC; the second return value reports
// whether the requested zone was found.
func LoadLocation(name string) (*time.Location, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return time.UTC, false
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC, false
	}
	return loc, true
}

// ParseWeekday maps a weekday name ("monday", "Mon") or its number (0 = Sunday)
// to time.Weekday.
func ParseWeekday(s string) (time.Weekday, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) == 1 && s[0] >= '0' && s[0] <= '6' {
		return time.Weekday(s[0] - '0'), true
	}
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		name := strings.ToLower(wd.String())
		if s == name || (len(s) == 3 && strings.HasPrefix(name, s)) {
			return wd, true
		}
	}
	return time.Sunday, false
}
