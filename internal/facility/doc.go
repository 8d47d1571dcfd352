// Package facility is the entity store the manifest compiler reads from.
//
// It persists sites, their weekly hours, exception rules (with the
// date_range_daily start/middle/end sub-schedules), equipment entries,
// HVAC zones, thermostat profiles and thermostat devices, and returns them
// as the domain types of the hours, equipment and thermostat packages.
//
// # Thread Safety
//
// SQLiteRepository is safe for concurrent use from multiple goroutines.
package facility
