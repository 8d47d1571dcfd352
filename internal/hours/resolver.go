package hours

import (
	"github.com/nerrad567/gray-logic-facility/internal/timeutil"
)

// SelectException returns the first rule in rules that is active on d.
//
// Callers control precedence through ordering; the facility store returns
// rules newest first so the most recently created rule wins.
func SelectException(rules []ExceptionRule, d timeutil.Date) (ExceptionRule, bool) {
	for _, r := range rules {
		if r.Matches(d) {
			return r, true
		}
	}
	return ExceptionRule{}, false
}

// Baseline returns the weekly hours for d's weekday. A weekday with no row
// is treated as closed.
func Baseline(weekly []WeeklyHours, d timeutil.Date) Hours {
	wd := d.Weekday()
	for _, w := range weekly {
		if w.Weekday == wd {
			return w.Hours()
		}
	}
	return Hours{Closed: true}
}

// Resolve computes the effective hours for d.
//
// It starts from the weekly baseline and overlays at most one exception:
// the first rule in rules active on d. Missing override fields keep their
// baseline values.
func Resolve(d timeutil.Date, weekly []WeeklyHours, rules []ExceptionRule) Resolution {
	res := Resolution{
		Date:    d,
		Weekday: d.Weekday().String(),
		Hours:   Baseline(weekly, d),
		Source:  SourceWeekly,
	}

	rule, ok := SelectException(rules, d)
	if !ok {
		return res
	}

	sched, part := rule.ScheduleFor(d)
	res.Hours = sched.Apply(res.Hours)
	res.Source = SourceException
	res.ExceptionID = rule.ID
	res.ExceptionName = rule.Name
	res.RuleType = rule.Type()
	res.SchedulePart = part
	return res
}
