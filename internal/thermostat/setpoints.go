package thermostat

import "fmt"

// ResolveSetpoints merges a zone with its profile.
//
// A non-override zone takes all four setpoints from the profile. An
// override zone takes each setpoint from itself when set, else from the
// profile; a setpoint available from neither is an error.
func ResolveSetpoints(z Zone, p *Profile) (Setpoints, error) {
	sp := Setpoints{
		GuardrailMin:         z.GuardrailMin,
		GuardrailMax:         z.GuardrailMax,
		OverrideOffsetUp:     valueOr(z.OverrideOffsetUp, 0),
		OverrideOffsetDown:   valueOr(z.OverrideOffsetDown, 0),
		OverrideResetMinutes: z.OverrideResetMinutes,
		Source:               SetpointsFromProfile,
	}
	if p != nil {
		sp.ProfileID = p.ID
		sp.FanMode = p.FanMode
		sp.HVACMode = p.HVACMode
	}

	if !z.IsOverride {
		if p == nil {
			return Setpoints{}, fmt.Errorf("%w: zone %s", ErrNoProfile, z.ID)
		}
		sp.OccupiedHeat = p.OccupiedHeat
		sp.OccupiedCool = p.OccupiedCool
		sp.UnoccupiedHeat = p.UnoccupiedHeat
		sp.UnoccupiedCool = p.UnoccupiedCool
		return sp, nil
	}

	sp.Source = SetpointsFromZoneOverride
	fields := []struct {
		name    string
		zone    *float64
		profile func(*Profile) float64
		dst     *float64
	}{
		{"occupied_heat", z.OccupiedHeat, func(p *Profile) float64 { return p.OccupiedHeat }, &sp.OccupiedHeat},
		{"occupied_cool", z.OccupiedCool, func(p *Profile) float64 { return p.OccupiedCool }, &sp.OccupiedCool},
		{"unoccupied_heat", z.UnoccupiedHeat, func(p *Profile) float64 { return p.UnoccupiedHeat }, &sp.UnoccupiedHeat},
		{"unoccupied_cool", z.UnoccupiedCool, func(p *Profile) float64 { return p.UnoccupiedCool }, &sp.UnoccupiedCool},
	}
	for _, f := range fields {
		switch {
		case f.zone != nil:
			*f.dst = *f.zone
		case p != nil:
			*f.dst = f.profile(p)
		default:
			return Setpoints{}, fmt.Errorf("%w: zone %s has no %s", ErrIncompleteSetpoints, z.ID, f.name)
		}
	}
	return sp, nil
}

func valueOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}
