package timeutil

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Clock
		wantErr bool
	}{
		{name: "hours and minutes", input: "08:00", want: 480},
		{name: "with seconds", input: "22:15:59", want: 22*60 + 15},
		{name: "midnight", input: "00:00", want: 0},
		{name: "end of day", input: "23:59", want: EndOfDay},
		{name: "single digit hour", input: "7:05", want: 7*60 + 5},
		{name: "hour out of range", input: "24:00", wantErr: true},
		{name: "minute out of range", input: "10:60", wantErr: true},
		{name: "garbage", input: "noon", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseClock(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidClock) {
					t.Fatalf("ParseClock(%q) error = %v, want ErrInvalidClock", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseClock(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseClock(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestClockAddClamps(t *testing.T) {
	open := MustParseClock("08:00")
	if got := open.Add(-30).String(); got != "07:30" {
		t.Errorf("08:00 - 30 = %s, want 07:30", got)
	}
	if got := MustParseClock("00:10").Add(-30); got != 0 {
		t.Errorf("00:10 - 30 = %s, want 00:00", got)
	}
	if got := MustParseClock("23:30").Add(60); got != EndOfDay {
		t.Errorf("23:30 + 60 = %s, want 23:59", got)
	}
}

func TestClockJSON(t *testing.T) {
	c := MustParseClock("06:45")
	b, err := json.Marshal(struct {
		At *Clock `json:"at"`
	}{At: &c})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(b) != `{"at":"06:45"}` {
		t.Errorf("Marshal = %s", b)
	}
}

func TestDateJSONRoundTrip(t *testing.T) {
	type doc struct {
		On Date `json:"on"`
	}
	tests := []struct {
		name string
		in   Date
		want string
	}{
		{"calendar date", MustParseDate("2026-03-10"), `{"on":"2026-03-10"}`},
		{"zero date", Date{}, `{"on":""}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := json.Marshal(doc{On: tt.in})
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			if string(b) != tt.want {
				t.Errorf("Marshal = %s, want %s", b, tt.want)
			}
			var back doc
			if err := json.Unmarshal(b, &back); err != nil {
				t.Fatalf("Unmarshal(%s): %v", b, err)
			}
			if back.On != tt.in {
				t.Errorf("round trip = %+v, want %+v", back.On, tt.in)
			}
		})
	}
}

func TestDateWeekdayAndArithmetic(t *testing.T) {
	d := MustParseDate("2026-03-10")
	if d.Weekday() != time.Tuesday {
		t.Errorf("2026-03-10 weekday = %v, want Tuesday", d.Weekday())
	}
	if got := d.AddDays(5).String(); got != "2026-03-15" {
		t.Errorf("AddDays(5) = %s", got)
	}
	if got := MustParseDate("2026-03-01").AddDays(-1).String(); got != "2026-02-28" {
		t.Errorf("AddDays(-1) = %s", got)
	}
	if got := MustParseDate("2026-03-14").DaysSince(d); got != 4 {
		t.Errorf("DaysSince = %d, want 4", got)
	}
	if !MustParseDate("2026-03-12").Between(d, MustParseDate("2026-03-14")) {
		t.Error("expected 2026-03-12 to be inside the range")
	}
	if MustParseDate("2026-03-15").Between(d, MustParseDate("2026-03-14")) {
		t.Error("expected 2026-03-15 to be outside the range")
	}
}

func TestDateOrdinals(t *testing.T) {
	// November 2026: Thursdays fall on 5, 12, 19, 26.
	thanksgiving := MustParseDate("2026-11-26")
	if thanksgiving.WeekdayOrdinal() != 4 {
		t.Errorf("WeekdayOrdinal = %d, want 4", thanksgiving.WeekdayOrdinal())
	}
	if !thanksgiving.IsLastWeekdayOfMonth() {
		t.Error("expected 26 Nov 2026 to be the last Thursday")
	}
	if MustParseDate("2026-11-19").IsLastWeekdayOfMonth() {
		t.Error("19 Nov 2026 is not the last Thursday")
	}
	if MustParseDate("2026-01-01").IsLeapYear() {
		t.Error("2026 is not a leap year")
	}
	if !MustParseDate("2028-01-01").IsLeapYear() {
		t.Error("2028 is a leap year")
	}
}

func TestTodayUsesLocation(t *testing.T) {
	loc, ok := LoadLocation("America/Los_Angeles")
	if !ok {
		t.Skip("tzdata not available")
	}
	now := time.Date(2026, time.March, 10, 5, 0, 0, 0, time.UTC)
	if got := Today(now, loc).String(); got != "2026-03-09" {
		t.Errorf("Today = %s, want 2026-03-09", got)
	}
	if got := Today(now, time.UTC).String(); got != "2026-03-10" {
		t.Errorf("Today(UTC) = %s, want 2026-03-10", got)
	}
}

func TestLoadLocationFallback(t *testing.T) {
	loc, ok := LoadLocation("Not/AZone")
	if ok || loc != time.UTC {
		t.Errorf("LoadLocation(unknown) = %v, %v; want UTC, false", loc, ok)
	}
	loc, ok = LoadLocation("")
	if ok || loc != time.UTC {
		t.Errorf("LoadLocation(empty) = %v, %v; want UTC, false", loc, ok)
	}
}

func TestParseWeekday(t *testing.T) {
	tests := []struct {
		input string
		want  time.Weekday
		ok    bool
	}{
		{"monday", time.Monday, true},
		{"Sat", time.Saturday, true},
		{"0", time.Sunday, true},
		{"6", time.Saturday, true},
		{"funday", time.Sunday, false},
	}
	for _, tt := range tests {
		got, ok := ParseWeekday(tt.input)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseWeekday(%q) = %v, %v; want %v, %v", tt.input, got, ok, tt.want, tt.ok)
		}
	}
}
