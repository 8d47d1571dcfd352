package equipment

import (
	"fmt"

	"github.com/nerrad567/gray-logic-facility/internal/astro"
	"github.com/nerrad567/gray-logic-facility/internal/hours"
	"github.com/nerrad567/gray-logic-facility/internal/timeutil"
)

// Compute derives the on/off plan for one entry.
//
// The boolean result is false when the entry produces no schedule: its
// category is handled elsewhere, or the site is closed for the day. A
// closed day never yields equipment events.
//
// sun may be nil when the site has no usable coordinates; exterior
// entries then carry nil dawn/dusk points.
func Compute(e Entry, h hours.Hours, sun *astro.SunTimes, d SiteDefaults) (Schedule, bool, error) {
	if !e.Category.IsValid() {
		return Schedule{}, false, fmt.Errorf("%w: %q on %s", ErrUnknownCategory, e.Category, e.ID)
	}
	if !e.Category.Scheduled() || h.Closed {
		return Schedule{}, false, nil
	}
	if h.Open == nil || h.Close == nil {
		return Schedule{}, false, fmt.Errorf("%w: %s", ErrMissingHours, e.ID)
	}

	onDefault, offDefault := categoryDefaults(e.Category, d)
	onOffset, onSrc := resolveOffset(e.OnOffset, onDefault)
	offOffset, offSrc := resolveOffset(e.OffOffset, offDefault)

	s := Schedule{
		EquipmentID:     e.ID,
		Name:            e.Name,
		Category:        e.Category,
		OnOffset:        onOffset,
		OffOffset:       offOffset,
		OnOffsetSource:  onSrc,
		OffOffsetSource: offSrc,
		Source:          SourceStoreHours,
	}

	on := h.Open.Add(onOffset)
	off := h.Close.Add(offOffset)

	if e.Category != CategoryExteriorLux {
		s.On, s.Off = &on, &off
		return s, true, nil
	}

	lux := d.LuxSensitivity
	if e.LuxSensitivity != nil {
		lux = *e.LuxSensitivity
	}
	s.LuxSensitivity = &lux
	s.Source = SourceSunAndStoreHours
	s.Window = &DualWindow{
		MorningOn:          &on,
		MorningOff:         dawn(sun),
		EveningOn:          dusk(sun),
		EveningOff:         &off,
		MorningOnCondition: ConditionLuxBelowThreshold,
	}
	return s, true, nil
}

// categoryDefaults returns the default on/off offsets for a category.
func categoryDefaults(c Category, d SiteDefaults) (on, off int) {
	switch c {
	case CategoryEmployeeHours, CategoryExteriorLux:
		return -d.EmployeePreOpenMinutes, d.PostCloseMinutes
	case CategoryCustomerHours:
		return -d.CustomerPreOpenMinutes, d.PostCloseMinutes
	default:
		return 0, d.PostCloseMinutes
	}
}

func resolveOffset(explicit *int, fallback int) (int, OffsetSource) {
	if explicit != nil {
		return *explicit, OffsetFromEntry
	}
	return fallback, OffsetFromCategory
}

// dawn is civil dawn, or sunrise when civil twilight is not available.
func dawn(sun *astro.SunTimes) *timeutil.Clock {
	if sun == nil {
		return nil
	}
	if sun.CivilDawn != nil {
		return sun.CivilDawn
	}
	return sun.Sunrise
}

// dusk is civil dusk, or sunset when civil twilight is not available.
func dusk(sun *astro.SunTimes) *timeutil.Clock {
	if sun == nil {
		return nil
	}
	if sun.CivilDusk != nil {
		return sun.CivilDusk
	}
	return sun.Sunset
}
