package hours

import (
	"time"

	"github.com/nerrad567/gray-logic-facility/internal/timeutil"
)

// Hours is the effective open/close state of a site for one date.
// When Closed is true both times are nil.
type Hours struct {
	Open   *timeutil.Clock `json:"open_time"`
	Close  *timeutil.Clock `json:"close_time"`
	Closed bool            `json:"is_closed"`
}

// normalise enforces the closed-day invariant.
func (h Hours) normalise() Hours {
	if h.Closed {
		h.Open, h.Close = nil, nil
	}
	return h
}

// WeeklyHours is the recurring baseline for one weekday.
type WeeklyHours struct {
	SiteID  string
	Weekday time.Weekday
	Open    *timeutil.Clock
	Close   *timeutil.Clock
	Closed  bool
}

// Hours returns the baseline as resolved Hours.
func (w WeeklyHours) Hours() Hours {
	return Hours{Open: w.Open, Close: w.Close, Closed: w.Closed}.normalise()
}

// DaySchedule is a partial override of Hours.
//
// Each field is tri-state: nil means "no opinion, keep the baseline".
// This is what lets a rule that only moves the close time leave the
// baseline open time in place.
type DaySchedule struct {
	Open   *timeutil.Clock `json:"open_time,omitempty"`
	Close  *timeutil.Clock `json:"close_time,omitempty"`
	Closed *bool           `json:"is_closed,omitempty"`
}

// IsEmpty reports whether the schedule overrides nothing.
func (s DaySchedule) IsEmpty() bool {
	return s.Open == nil && s.Close == nil && s.Closed == nil
}

// Apply overlays the schedule onto base.
//
// Supplied times replace the baseline ones. An explicit Closed flag wins;
// supplying a time without a flag implies the day is open. An explicit
// "not closed" with no times cannot open a closed baseline, since there
// would be no hours to open with. A closed result always has nil times.
func (s DaySchedule) Apply(base Hours) Hours {
	out := base
	if s.Open != nil {
		out.Open = s.Open
	}
	if s.Close != nil {
		out.Close = s.Close
	}
	switch {
	case s.Closed != nil && !*s.Closed && s.Open == nil && s.Close == nil:
		// keep base.Closed
	case s.Closed != nil:
		out.Closed = *s.Closed
	case s.Open != nil || s.Close != nil:
		out.Closed = false
	}
	return out.normalise()
}

// SchedulePart names which sub-schedule of a rule was used.
type SchedulePart string

// Sub-schedule labels.
const (
	PartSingle SchedulePart = "single"
	PartStart  SchedulePart = "start"
	PartMiddle SchedulePart = "middle"
	PartEnd    SchedulePart = "end"
)

// Source identifies where the resolved hours came from.
type Source string

// Resolution sources.
const (
	SourceWeekly    Source = "weekly"
	SourceException Source = "exception"
)

// Resolution is the output of Resolve: the effective hours plus enough
// provenance to explain them.
type Resolution struct {
	Date          timeutil.Date `json:"date"`
	Weekday       string        `json:"weekday"`
	Hours         Hours         `json:"hours"`
	Source        Source        `json:"source"`
	ExceptionID   string        `json:"exception_id,omitempty"`
	ExceptionName string        `json:"exception_name,omitempty"`
	RuleType      RuleType      `json:"rule_type,omitempty"`
	SchedulePart  SchedulePart  `json:"schedule_part,omitempty"`
}

// Occupied reports whether the site is open on the resolved date.
func (r Resolution) Occupied() bool { return !r.Hours.Closed }
