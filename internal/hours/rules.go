package hours

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/nerrad567/gray-logic-facility/internal/timeutil"
)

// RuleType is the discriminator of an exception rule's recurrence.
type RuleType string

// Supported recurrence shapes.
const (
	RuleSingleDate     RuleType = "single_date"
	RuleFixedYearly    RuleType = "fixed_yearly"
	RuleNthWeekday     RuleType = "nth_weekday"
	RuleWeeklyDays     RuleType = "weekly_days"
	RuleDateRangeDaily RuleType = "date_range_daily"
	RuleInterval       RuleType = "interval"
)

// lastOccurrence is the NthWeekday.N value meaning "last in the month".
const lastOccurrence = -1

// Recurrence decides which dates a rule applies to. Each rule type is one
// implementation carrying only its own payload.
type Recurrence interface {
	Type() RuleType
	Occurs(d timeutil.Date) bool
	validate() error
}

// SingleDate matches exactly one date.
type SingleDate struct {
	Date timeutil.Date `json:"date"`
}

// FixedYearly matches the same month/day every year. 29 February only
// matches in leap years.
type FixedYearly struct {
	Month time.Month `json:"month"`
	Day   int        `json:"day"`
}

// NthWeekday matches the Nth weekday of a month, e.g. the 4th Thursday of
// November. Month zero matches every month; N of -1 means the last one.
type NthWeekday struct {
	Month   time.Month   `json:"month,omitempty"`
	Weekday time.Weekday `json:"weekday"`
	N       int          `json:"n"`
}

// WeeklyDays matches listed weekdays, usually bounded by effective dates.
type WeeklyDays struct {
	Days []time.Weekday `json:"days"`
}

// DateRangeDaily matches every date inside the rule's effective range.
// The range itself lives on the ExceptionRule.
type DateRangeDaily struct{}

// Interval matches every EveryDays days starting at Anchor.
type Interval struct {
	Anchor    timeutil.Date `json:"anchor_date"`
	EveryDays int           `json:"every_days"`
}

func (SingleDate) Type() RuleType     { return RuleSingleDate }
func (FixedYearly) Type() RuleType    { return RuleFixedYearly }
func (NthWeekday) Type() RuleType     { return RuleNthWeekday }
func (WeeklyDays) Type() RuleType     { return RuleWeeklyDays }
func (DateRangeDaily) Type() RuleType { return RuleDateRangeDaily }
func (Interval) Type() RuleType       { return RuleInterval }

func (r SingleDate) Occurs(d timeutil.Date) bool { return d == r.Date }

func (r FixedYearly) Occurs(d timeutil.Date) bool {
	return d.Month == r.Month && d.Day == r.Day
}

func (r NthWeekday) Occurs(d timeutil.Date) bool {
	if r.Month != 0 && d.Month != r.Month {
		return false
	}
	if d.Weekday() != r.Weekday {
		return false
	}
	if r.N == lastOccurrence {
		return d.IsLastWeekdayOfMonth()
	}
	return d.WeekdayOrdinal() == r.N
}

func (r WeeklyDays) Occurs(d timeutil.Date) bool {
	return slices.Contains(r.Days, d.Weekday())
}

// Occurs is always true; the effective range does the filtering.
func (DateRangeDaily) Occurs(timeutil.Date) bool { return true }

func (r Interval) Occurs(d timeutil.Date) bool {
	if r.EveryDays <= 0 || d.Before(r.Anchor) {
		return false
	}
	return d.DaysSince(r.Anchor)%r.EveryDays == 0
}

func (r SingleDate) validate() error {
	if r.Date.IsZero() {
		return fmt.Errorf("%w: single_date requires date", ErrInvalidRule)
	}
	return nil
}

func (r FixedYearly) validate() error {
	if r.Month < time.January || r.Month > time.December {
		return fmt.Errorf("%w: fixed_yearly month %d out of range", ErrInvalidRule, r.Month)
	}
	// 2024 is a leap year, so 29 February is accepted.
	if r.Day < 1 || r.Day > timeutil.NewDate(2024, r.Month, 1).DaysInMonth() {
		return fmt.Errorf("%w: fixed_yearly day %d out of range", ErrInvalidRule, r.Day)
	}
	return nil
}

func (r NthWeekday) validate() error {
	if r.Month < 0 || r.Month > time.December {
		return fmt.Errorf("%w: nth_weekday month %d out of range", ErrInvalidRule, r.Month)
	}
	if r.Weekday < time.Sunday || r.Weekday > time.Saturday {
		return fmt.Errorf("%w: nth_weekday weekday %d out of range", ErrInvalidRule, r.Weekday)
	}
	if r.N != lastOccurrence && (r.N < 1 || r.N > 5) {
		return fmt.Errorf("%w: nth_weekday n must be 1-5 or -1", ErrInvalidRule)
	}
	return nil
}

func (r WeeklyDays) validate() error {
	if len(r.Days) == 0 {
		return fmt.Errorf("%w: weekly_days requires at least one day", ErrInvalidRule)
	}
	for _, wd := range r.Days {
		if wd < time.Sunday || wd > time.Saturday {
			return fmt.Errorf("%w: weekly_days weekday %d out of range", ErrInvalidRule, wd)
		}
	}
	return nil
}

func (DateRangeDaily) validate() error { return nil }

func (r Interval) validate() error {
	if r.Anchor.IsZero() {
		return fmt.Errorf("%w: interval requires anchor_date", ErrInvalidRule)
	}
	if r.EveryDays < 1 {
		return fmt.Errorf("%w: interval every_days must be positive", ErrInvalidRule)
	}
	return nil
}

// DecodeRecurrence builds the recurrence for ruleType from its JSON params.
func DecodeRecurrence(ruleType RuleType, params []byte) (Recurrence, error) {
	if len(params) == 0 {
		params = []byte("{}")
	}

	var rec Recurrence
	var err error
	switch ruleType {
	case RuleSingleDate:
		var r SingleDate
		err = json.Unmarshal(params, &r)
		rec = r
	case RuleFixedYearly:
		var r FixedYearly
		err = json.Unmarshal(params, &r)
		rec = r
	case RuleNthWeekday:
		var r NthWeekday
		err = json.Unmarshal(params, &r)
		rec = r
	case RuleWeeklyDays:
		var r WeeklyDays
		err = json.Unmarshal(params, &r)
		rec = r
	case RuleDateRangeDaily:
		rec = DateRangeDaily{}
	case RuleInterval:
		var r Interval
		err = json.Unmarshal(params, &r)
		rec = r
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownRuleType, ruleType)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: decoding %s params: %w", ErrInvalidRule, ruleType, err)
	}
	if err := rec.validate(); err != nil {
		return nil, err
	}
	return rec, nil
}

// EncodeRecurrence serialises a recurrence payload for storage.
func EncodeRecurrence(rec Recurrence) ([]byte, error) {
	if rec == nil {
		return nil, fmt.Errorf("%w: missing recurrence", ErrInvalidRule)
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encoding %s params: %w", rec.Type(), err)
	}
	return b, nil
}

// ExceptionRule is a named override of the weekly hours on some date(s).
type ExceptionRule struct {
	ID         string
	SiteID     string
	Name       string
	Recurrence Recurrence

	// EffectiveFrom and EffectiveTo optionally bound every rule type.
	// date_range_daily requires both.
	EffectiveFrom *timeutil.Date
	EffectiveTo   *timeutil.Date

	// Schedule is the override for every type except date_range_daily.
	Schedule DaySchedule

	// Start, Middle and End are the date_range_daily sub-schedules. A nil
	// sub-schedule leaves the baseline untouched for that part of the range.
	Start  *DaySchedule
	Middle *DaySchedule
	End    *DaySchedule

	CreatedAt time.Time
}

// Type returns the rule's recurrence type.
func (r ExceptionRule) Type() RuleType {
	if r.Recurrence == nil {
		return ""
	}
	return r.Recurrence.Type()
}

// Validate checks the rule is internally consistent.
func (r ExceptionRule) Validate() error {
	if r.Recurrence == nil {
		return fmt.Errorf("%w: rule %s has no recurrence", ErrInvalidRule, r.ID)
	}
	if err := r.Recurrence.validate(); err != nil {
		return err
	}
	if r.EffectiveFrom != nil && r.EffectiveTo != nil && r.EffectiveTo.Before(*r.EffectiveFrom) {
		return fmt.Errorf("%w: rule %s effective_to precedes effective_from", ErrInvalidRule, r.ID)
	}
	if r.Type() == RuleDateRangeDaily && (r.EffectiveFrom == nil || r.EffectiveTo == nil) {
		return fmt.Errorf("%w: date_range_daily rule %s requires effective_from and effective_to", ErrInvalidRule, r.ID)
	}
	return nil
}

// Matches reports whether the rule is active on d.
func (r ExceptionRule) Matches(d timeutil.Date) bool {
	if r.Recurrence == nil {
		return false
	}
	if r.EffectiveFrom != nil && d.Before(*r.EffectiveFrom) {
		return false
	}
	if r.EffectiveTo != nil && d.After(*r.EffectiveTo) {
		return false
	}
	if r.Type() == RuleDateRangeDaily && (r.EffectiveFrom == nil || r.EffectiveTo == nil) {
		return false
	}
	return r.Recurrence.Occurs(d)
}

// ScheduleFor returns the override applying on d and which part it came from.
// The caller must have checked Matches.
func (r ExceptionRule) ScheduleFor(d timeutil.Date) (DaySchedule, SchedulePart) {
	if r.Type() != RuleDateRangeDaily {
		return r.Schedule, PartSingle
	}

	var sub *DaySchedule
	var part SchedulePart
	switch {
	case d == *r.EffectiveFrom:
		sub, part = r.Start, PartStart
	case d == *r.EffectiveTo:
		sub, part = r.End, PartEnd
	default:
		sub, part = r.Middle, PartMiddle
	}
	if sub == nil {
		return DaySchedule{}, part
	}
	return *sub, part
}
