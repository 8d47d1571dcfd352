package manifest

import (
	"fmt"
	"sort"

	"github.com/nerrad567/gray-logic-facility/internal/astro"
	"github.com/nerrad567/gray-logic-facility/internal/equipment"
	"github.com/nerrad567/gray-logic-facility/internal/facility"
	"github.com/nerrad567/gray-logic-facility/internal/hours"
	"github.com/nerrad567/gray-logic-facility/internal/smartstart"
	"github.com/nerrad567/gray-logic-facility/internal/thermostat"
	"github.com/nerrad567/gray-logic-facility/internal/timeutil"
	"github.com/nerrad567/gray-logic-facility/internal/weather"
)

// Inputs is everything Assemble reads. Nil slices and maps are treated
// as empty.
type Inputs struct {
	Site        facility.Site
	Date        timeutil.Date
	Weekly      []hours.WeeklyHours
	Rules       []hours.ExceptionRule // newest first
	Equipment   []equipment.Entry
	Zones       []thermostat.Zone
	Profiles    map[string]thermostat.Profile
	Thermostats []thermostat.Device
	Readings    map[string]thermostat.Reading
	Sun         *astro.SunTimes
	Weather     *weather.Snapshot

	// Unit is the temperature unit used in directive messages.
	Unit string

	// SmartStart is optional. When set, open-day zoned thermostats with a
	// known temperature get a preconditioning estimate.
	SmartStart *smartstart.Calculator

	// Notes and Errors gathered while fetching inputs are carried into
	// the manifest ahead of those Assemble produces.
	Notes  []string
	Errors []EntryError
}

// Assemble builds the manifest for one site and date. It never fails:
// problems with individual entries are recorded in Manifest.Errors.
func Assemble(in Inputs) *Manifest {
	res := hours.Resolve(in.Date, in.Weekly, in.Rules)

	m := &Manifest{
		SiteID:      in.Site.ID,
		Date:        in.Date,
		Site:        snapshotOf(in.Site),
		Hours:       res,
		Equipment:   []equipment.Schedule{},
		Thermostats: []ThermostatEntry{},
		Sun:         in.Sun,
		Weather:     in.Weather,
		Notes:       append([]string(nil), in.Notes...),
		Errors:      append([]EntryError(nil), in.Errors...),
	}

	m.Equipment, m.Errors = scheduleEquipment(in, res, m.Errors)
	m.Thermostats, m.Errors = directThermostats(in, res, m.Errors)

	if res.Hours.Closed {
		m.Notes = append(m.Notes, "site closed: no equipment events, thermostats held at unoccupied setpoints")
	}
	return m
}

func scheduleEquipment(in Inputs, res hours.Resolution, errs []EntryError) ([]equipment.Schedule, []EntryError) {
	entries := append([]equipment.Entry(nil), in.Equipment...)
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })

	defaults := in.Site.Defaults()
	out := []equipment.Schedule{}
	for _, e := range entries {
		s, ok, err := equipment.Compute(e, res.Hours, in.Sun, defaults)
		if err != nil {
			errs = append(errs, EntryError{Kind: KindEquipment, ID: e.ID, Message: err.Error()})
			continue
		}
		if ok {
			out = append(out, s)
		}
	}
	return out, errs
}

func directThermostats(in Inputs, res hours.Resolution, errs []EntryError) ([]ThermostatEntry, []EntryError) {
	zones := make(map[string]thermostat.Zone, len(in.Zones))
	for _, z := range in.Zones {
		zones[z.ID] = z
	}

	devices := append([]thermostat.Device(nil), in.Thermostats...)
	sort.Slice(devices, func(i, j int) bool { return devices[i].ID < devices[j].ID })

	occupied := res.Occupied()
	out := []ThermostatEntry{}
	for _, dev := range devices {
		entry := ThermostatEntry{ThermostatID: dev.ID, Name: dev.Name, ZoneID: dev.ZoneID}

		var reading *thermostat.Reading
		if r, ok := in.Readings[dev.ID]; ok {
			reading = &r
		}

		var zone thermostat.Zone
		hasZone := false
		if dev.ZoneID != nil {
			zone, hasZone = zones[*dev.ZoneID]
			if !hasZone {
				errs = append(errs, EntryError{
					Kind:    KindThermostat,
					ID:      dev.ID,
					Message: fmt.Sprintf("zone %s not found, treated as unassigned", *dev.ZoneID),
				})
			}
		}

		var sp thermostat.Setpoints
		if hasZone {
			entry.ZoneName = zone.Name
			entry.EquipmentID = zone.EquipmentID

			resolved, err := thermostat.ResolveSetpoints(zone, profileFor(zone, in.Profiles))
			if err != nil {
				errs = append(errs, EntryError{Kind: KindThermostat, ID: dev.ID, Message: err.Error()})
				continue
			}
			sp = resolved
			entry.Setpoints = &resolved
		}

		entry.Directive = thermostat.Evaluate(thermostat.Input{
			HasZone:   hasZone,
			Occupied:  occupied,
			Setpoints: sp,
			Reading:   reading,
			Unit:      in.Unit,
		})

		if in.SmartStart != nil && hasZone && occupied && reading != nil && reading.Temperature != nil {
			est := in.SmartStart.Estimate(*reading.Temperature, sp.OccupiedHeat, sp.OccupiedCool)
			entry.SmartStart = &est
		}

		out = append(out, entry)
	}
	return out, errs
}

func profileFor(z thermostat.Zone, profiles map[string]thermostat.Profile) *thermostat.Profile {
	if z.ProfileID == nil {
		return nil
	}
	p, ok := profiles[*z.ProfileID]
	if !ok {
		return nil
	}
	return &p
}
