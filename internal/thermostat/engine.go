package thermostat

import (
	"fmt"
	"strconv"
)

// DefaultUnit is used when Input.Unit is empty.
const DefaultUnit = "F"

// NoZoneMessage is the directive text for an unassigned thermostat.
const NoZoneMessage = "No zone assigned"

// state is the per-evaluation view the rules inspect.
type state struct {
	in       Input
	phase    Phase
	heat     float64
	cool     float64
	temp     *float64
	actual   *float64
	up, down float64
}

// rule is one predicate→action step of the decision table.
type rule struct {
	action Action
	when   func(s state) bool
	emit   func(s state) Directive
}

// rules is evaluated top-down; the first matching rule decides. Guardrails
// sit above override handling, which sits above ordinary comparison.
var rules = []rule{
	{
		action: ActionNoZone,
		when:   func(s state) bool { return !s.in.HasZone },
		emit: func(state) Directive {
			return Directive{Action: ActionNoZone, Message: NoZoneMessage}
		},
	},
	{
		action: ActionFreezeGuardrail,
		when: func(s state) bool {
			return s.temp != nil && s.in.Setpoints.GuardrailMin != nil && *s.temp <= *s.in.Setpoints.GuardrailMin
		},
		emit: func(s state) Directive {
			d := s.base(ActionFreezeGuardrail)
			d.TargetSetpoint = ptr(s.heat)
			d.Message = fmt.Sprintf("Freeze guardrail: %s at or below minimum %s, force heat on to %s",
				s.deg(*s.temp), s.deg(*s.in.Setpoints.GuardrailMin), s.deg(s.heat))
			return d
		},
	},
	{
		action: ActionOverheatGuardrail,
		when: func(s state) bool {
			return s.temp != nil && s.in.Setpoints.GuardrailMax != nil && *s.temp >= *s.in.Setpoints.GuardrailMax
		},
		emit: func(s state) Directive {
			d := s.base(ActionOverheatGuardrail)
			d.TargetSetpoint = ptr(s.cool)
			d.Message = fmt.Sprintf("Overheat guardrail: %s at or above maximum %s, force cool on to %s",
				s.deg(*s.temp), s.deg(*s.in.Setpoints.GuardrailMax), s.deg(s.cool))
			return d
		},
	},
	{
		action: ActionOverrideCoolActive,
		when: func(s state) bool {
			return s.overrideCandidate() && *s.actual > s.cool && *s.actual-s.cool <= s.up
		},
		emit: func(s state) Directive {
			d := s.base(ActionOverrideCoolActive)
			d.TargetSetpoint = ptr(*s.actual)
			d.OverrideResetMinutes = s.in.Setpoints.OverrideResetMinutes
			d.Message = fmt.Sprintf("Manager override active: setpoint %s is %s above cool %s, within allowed %s, no correction",
				s.deg(*s.actual), s.delta(*s.actual-s.cool), s.deg(s.cool), s.delta(s.up))
			return d
		},
	},
	{
		action: ActionOverrideHeatActive,
		when: func(s state) bool {
			return s.overrideCandidate() && *s.actual < s.heat && s.heat-*s.actual <= s.down
		},
		emit: func(s state) Directive {
			d := s.base(ActionOverrideHeatActive)
			d.TargetSetpoint = ptr(*s.actual)
			d.OverrideResetMinutes = s.in.Setpoints.OverrideResetMinutes
			d.Message = fmt.Sprintf("Manager override active: setpoint %s is %s below heat %s, within allowed %s, no correction",
				s.deg(*s.actual), s.delta(s.heat-*s.actual), s.deg(s.heat), s.delta(s.down))
			return d
		},
	},
	{
		action: ActionOverrideCoolClamp,
		when: func(s state) bool {
			return s.overrideCandidate() && *s.actual > s.cool+s.up
		},
		emit: func(s state) Directive {
			limit := s.cool + s.up
			d := s.base(ActionOverrideCoolClamp)
			d.TargetSetpoint = ptr(limit)
			d.Message = fmt.Sprintf("Manager override exceeded: setpoint %s above allowed maximum, push setpoint down to %s",
				s.deg(*s.actual), s.deg(limit))
			return d
		},
	},
	{
		action: ActionOverrideHeatClamp,
		when: func(s state) bool {
			return s.overrideCandidate() && *s.actual < s.heat-s.down
		},
		emit: func(s state) Directive {
			limit := s.heat - s.down
			d := s.base(ActionOverrideHeatClamp)
			d.TargetSetpoint = ptr(limit)
			d.Message = fmt.Sprintf("Manager override exceeded: setpoint %s below allowed minimum, push setpoint up to %s",
				s.deg(*s.actual), s.deg(limit))
			return d
		},
	},
	{
		action: ActionHeat,
		when:   func(s state) bool { return s.temp != nil && *s.temp < s.heat },
		emit: func(s state) Directive {
			d := s.base(ActionHeat)
			d.TargetSetpoint = ptr(s.heat)
			d.Message = fmt.Sprintf("Heat to %s (currently %s)", s.deg(s.heat), s.deg(*s.temp))
			return d
		},
	},
	{
		action: ActionCool,
		when:   func(s state) bool { return s.temp != nil && *s.temp > s.cool },
		emit: func(s state) Directive {
			d := s.base(ActionCool)
			d.TargetSetpoint = ptr(s.cool)
			d.Message = fmt.Sprintf("Cool to %s (currently %s)", s.deg(s.cool), s.deg(*s.temp))
			return d
		},
	},
	{
		action: ActionInRange,
		when:   func(s state) bool { return s.temp != nil },
		emit: func(s state) Directive {
			d := s.base(ActionInRange)
			d.Message = fmt.Sprintf("In range: %s within %s-%s, no action",
				s.deg(*s.temp), s.deg(s.heat), s.deg(s.cool))
			return d
		},
	},
	{
		action: ActionHoldBand,
		when:   func(state) bool { return true },
		emit: func(s state) Directive {
			d := s.base(ActionHoldBand)
			d.Message = fmt.Sprintf("Temperature unknown: hold %s band %s-%s",
				s.phase, s.deg(s.heat), s.deg(s.cool))
			return d
		},
	},
}

// Evaluate runs the decision table and returns the first matching directive.
func Evaluate(in Input) Directive {
	s := newState(in)
	for _, r := range rules {
		if r.when(s) {
			return r.emit(s)
		}
	}
	// Unreachable: the last rule always matches.
	return s.base(ActionHoldBand)
}

func newState(in Input) state {
	phase := PhaseUnoccupied
	if in.Occupied {
		phase = PhaseOccupied
	}
	heat, cool := in.Setpoints.Band(in.Occupied)
	s := state{
		in:    in,
		phase: phase,
		heat:  heat,
		cool:  cool,
		up:    in.Setpoints.OverrideOffsetUp,
		down:  in.Setpoints.OverrideOffsetDown,
	}
	if in.Reading != nil {
		s.temp = in.Reading.Temperature
		s.actual = in.Reading.ActualSetpoint
	}
	return s
}

// overrideCandidate is the precondition shared by the manager-override rules.
func (s state) overrideCandidate() bool {
	return s.in.Occupied && s.temp != nil && s.actual != nil
}

func (s state) base(a Action) Directive {
	return Directive{
		Action:             a,
		Phase:              s.phase,
		HeatSetpoint:       ptr(s.heat),
		CoolSetpoint:       ptr(s.cool),
		CurrentTemperature: s.temp,
		ActualSetpoint:     s.actual,
	}
}

func (s state) unit() string {
	if s.in.Unit == "" {
		return DefaultUnit
	}
	return s.in.Unit
}

func (s state) deg(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "°" + s.unit()
}

func (s state) delta(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "°"
}

func ptr(v float64) *float64 { return &v }
