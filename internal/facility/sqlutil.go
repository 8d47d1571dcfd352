package facility

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-facility/internal/hours"
	"github.com/nerrad567/gray-logic-facility/internal/timeutil"
)

// sqliteTimeLayout matches the strftime DEFAULT used by every table.
const sqliteTimeLayout = "2006-01-02T15:04:05Z"

func nullStr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullInt(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}

func nullBool(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}

func nullClock(c *timeutil.Clock) sql.NullString {
	if c == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: c.String(), Valid: true}
}

func nullDate(d *timeutil.Date) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func strPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

func floatPtr(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	return &nf.Float64
}

func intPtr(ni sql.NullInt64) *int {
	if !ni.Valid {
		return nil
	}
	v := int(ni.Int64)
	return &v
}

func boolPtr(nb sql.NullBool) *bool {
	if !nb.Valid {
		return nil
	}
	return &nb.Bool
}

func clockPtr(ns sql.NullString) (*timeutil.Clock, error) {
	if !ns.Valid {
		return nil, nil
	}
	return timeutil.ParseClockPtr(ns.String)
}

func datePtr(ns sql.NullString) (*timeutil.Date, error) {
	if !ns.Valid {
		return nil, nil
	}
	return timeutil.ParseDatePtr(ns.String)
}

// daySchedule rebuilds a tri-state schedule from its three nullable columns.
func daySchedule(open, closeT sql.NullString, closed sql.NullBool) (hours.DaySchedule, error) {
	o, err := clockPtr(open)
	if err != nil {
		return hours.DaySchedule{}, fmt.Errorf("open_time: %w", err)
	}
	c, err := clockPtr(closeT)
	if err != nil {
		return hours.DaySchedule{}, fmt.Errorf("close_time: %w", err)
	}
	return hours.DaySchedule{Open: o, Close: c, Closed: boolPtr(closed)}, nil
}

// parseTime parses an RFC3339 timestamp, returning zero time on failure.
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t, err = time.Parse(sqliteTimeLayout, s)
		if err != nil {
			return time.Time{}
		}
	}
	return t
}

func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}
