// Package timeutil provides wall-clock and calendar primitives for schedule
// resolution.
//
// A Clock is minutes since local midnight and a Date is a zone-free calendar
// day. Keeping the two apart means schedule arithmetic never touches
// time.Time and cannot drift across daylight saving boundaries; conversion
// to and from real instants only happens at the edges (ClockOf, Today, In).
package timeutil
