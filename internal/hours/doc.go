// Package hours resolves a site's effective operating hours for a date.
//
// Resolution is a two-layer overlay:
//
//	WeeklyHours (baseline for the weekday)
//	      │
//	      ▼
//	ExceptionRule (first active rule, if any) ── DaySchedule.Apply
//	      │
//	      ▼
//	Resolution {open, close, closed, provenance}
//
// Exception rules are a tagged union: the Recurrence interface has one
// implementation per rule_type, each carrying only its own payload.
// date_range_daily rules additionally pick a start, middle or end
// sub-schedule depending on where the date sits in the effective range.
//
// Everything here is pure; persistence lives in package facility.
package hours
