package thermostat

import (
	"strings"
	"testing"
)

func f(v float64) *float64 { return &v }

// retailSetpoints: occupied 68-76, unoccupied 60-85, guardrails 45/95, band +4/-3.
func retailSetpoints() Setpoints {
	return Setpoints{
		OccupiedHeat:       68,
		OccupiedCool:       76,
		UnoccupiedHeat:     60,
		UnoccupiedCool:     85,
		GuardrailMin:       f(45),
		GuardrailMax:       f(95),
		OverrideOffsetUp:   4,
		OverrideOffsetDown: 3,
		Source:             SetpointsFromProfile,
	}
}

func reading(temp, actual *float64) *Reading {
	return &Reading{ThermostatID: "tstat-1", Temperature: temp, ActualSetpoint: actual}
}

func TestEvaluate_DecisionTable(t *testing.T) {
	tests := []struct {
		name     string
		occupied bool
		reading  *Reading
		want     Action
		target   *float64
	}{
		{"freeze guardrail", true, reading(f(44), f(70)), ActionFreezeGuardrail, f(68)},
		{"freeze guardrail at bound", true, reading(f(45), nil), ActionFreezeGuardrail, f(68)},
		{"overheat guardrail", true, reading(f(96), f(70)), ActionOverheatGuardrail, f(76)},
		{"overheat guardrail at bound", false, reading(f(95), nil), ActionOverheatGuardrail, f(85)},
		{"override cool within band", true, reading(f(74), f(79)), ActionOverrideCoolActive, f(79)},
		{"override cool at band edge", true, reading(f(74), f(80)), ActionOverrideCoolActive, f(80)},
		{"override heat within band", true, reading(f(70), f(66)), ActionOverrideHeatActive, f(66)},
		{"override cool exceeded", true, reading(f(74), f(82)), ActionOverrideCoolClamp, f(80)},
		{"override heat exceeded", true, reading(f(70), f(60)), ActionOverrideHeatClamp, f(65)},
		{"actual inside band falls through to heat", true, reading(f(66), f(72)), ActionHeat, f(68)},
		{"actual inside band falls through to cool", true, reading(f(78), f(72)), ActionCool, f(76)},
		{"actual inside band falls through to in range", true, reading(f(72), f(72)), ActionInRange, nil},
		{"no actual setpoint, heat", true, reading(f(60), nil), ActionHeat, f(68)},
		{"unoccupied ignores override", false, reading(f(70), f(90)), ActionInRange, nil},
		{"unoccupied heat", false, reading(f(55), f(90)), ActionHeat, f(60)},
		{"unoccupied cool", false, reading(f(88), nil), ActionCool, f(85)},
		{"unknown temperature occupied", true, reading(nil, f(72)), ActionHoldBand, nil},
		{"no reading unoccupied", false, nil, ActionHoldBand, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Evaluate(Input{HasZone: true, Occupied: tt.occupied, Setpoints: retailSetpoints(), Reading: tt.reading})
			if d.Action != tt.want {
				t.Fatalf("Action = %s, want %s (%s)", d.Action, tt.want, d.Message)
			}
			if tt.target == nil {
				if d.TargetSetpoint != nil {
					t.Errorf("TargetSetpoint = %v, want nil", *d.TargetSetpoint)
				}
			} else if d.TargetSetpoint == nil || *d.TargetSetpoint != *tt.target {
				t.Errorf("TargetSetpoint = %v, want %v", d.TargetSetpoint, *tt.target)
			}
			if d.Message == "" {
				t.Error("empty directive message")
			}
		})
	}
}

func TestEvaluate_NoZoneIsTerminal(t *testing.T) {
	d := Evaluate(Input{HasZone: false, Occupied: true, Setpoints: retailSetpoints(), Reading: reading(f(30), f(90))})
	if d.Action != ActionNoZone || d.Message != NoZoneMessage {
		t.Fatalf("got %s %q, want no-zone", d.Action, d.Message)
	}
	if d.HeatSetpoint != nil || d.TargetSetpoint != nil {
		t.Error("no-zone directive must not carry setpoints")
	}
}

func TestEvaluate_OverrideBandExample(t *testing.T) {
	sp := retailSetpoints()
	sp.OccupiedCool = 76
	sp.OverrideOffsetUp = 4

	active := Evaluate(Input{HasZone: true, Occupied: true, Setpoints: sp, Reading: reading(f(75), f(79))})
	if active.Action != ActionOverrideCoolActive {
		t.Fatalf("79 vs 76+4: Action = %s, want override active", active.Action)
	}
	if !strings.Contains(active.Message, "override active") {
		t.Errorf("message = %q", active.Message)
	}

	exceeded := Evaluate(Input{HasZone: true, Occupied: true, Setpoints: sp, Reading: reading(f(75), f(82))})
	if exceeded.Action != ActionOverrideCoolClamp {
		t.Fatalf("82 vs 76+4: Action = %s, want clamp", exceeded.Action)
	}
	if *exceeded.TargetSetpoint != 80 || !strings.Contains(exceeded.Message, "push setpoint down to 80°F") {
		t.Errorf("clamp target = %v, message = %q", *exceeded.TargetSetpoint, exceeded.Message)
	}
}

func TestEvaluate_OverrideResetWindowReported(t *testing.T) {
	sp := retailSetpoints()
	reset := 120
	sp.OverrideResetMinutes = &reset

	d := Evaluate(Input{HasZone: true, Occupied: true, Setpoints: sp, Reading: reading(f(74), f(78))})
	if d.OverrideResetMinutes == nil || *d.OverrideResetMinutes != 120 {
		t.Errorf("OverrideResetMinutes = %v, want 120", d.OverrideResetMinutes)
	}
}

// Guardrails dominate every other rule regardless of occupancy or override state.
func TestEvaluate_GuardrailDominance(t *testing.T) {
	actuals := []*float64{nil, f(40), f(50), f(68), f(72), f(76), f(79), f(90), f(120)}
	offsets := []float64{0, 2, 4, 50}

	for _, occupied := range []bool{true, false} {
		for _, actual := range actuals {
			for _, off := range offsets {
				sp := retailSetpoints()
				sp.OverrideOffsetUp, sp.OverrideOffsetDown = off, off

				for _, temp := range []float64{45, 44.9, 30, -10} {
					d := Evaluate(Input{HasZone: true, Occupied: occupied, Setpoints: sp, Reading: reading(f(temp), actual)})
					if d.Action != ActionFreezeGuardrail {
						t.Fatalf("temp %v occupied %v actual %v offset %v: Action = %s", temp, occupied, actual, off, d.Action)
					}
					if !strings.HasPrefix(d.Message, "Freeze guardrail") {
						t.Fatalf("message = %q", d.Message)
					}
				}
				for _, temp := range []float64{95, 95.1, 110} {
					d := Evaluate(Input{HasZone: true, Occupied: occupied, Setpoints: sp, Reading: reading(f(temp), actual)})
					if d.Action != ActionOverheatGuardrail {
						t.Fatalf("temp %v occupied %v actual %v offset %v: Action = %s", temp, occupied, actual, off, d.Action)
					}
				}
			}
		}
	}
}

func TestEvaluate_UnsetGuardrailsNeverFire(t *testing.T) {
	sp := retailSetpoints()
	sp.GuardrailMin, sp.GuardrailMax = nil, nil

	cold := Evaluate(Input{HasZone: true, Occupied: true, Setpoints: sp, Reading: reading(f(-20), nil)})
	if cold.Action != ActionHeat {
		t.Errorf("cold Action = %s, want heat", cold.Action)
	}
	hot := Evaluate(Input{HasZone: true, Occupied: true, Setpoints: sp, Reading: reading(f(130), nil)})
	if hot.Action != ActionCool {
		t.Errorf("hot Action = %s, want cool", hot.Action)
	}
}

func TestEvaluate_UnitInMessages(t *testing.T) {
	sp := Setpoints{OccupiedHeat: 20, OccupiedCool: 24, UnoccupiedHeat: 16, UnoccupiedCool: 28}
	d := Evaluate(Input{HasZone: true, Occupied: true, Setpoints: sp, Reading: reading(f(18.5), nil), Unit: "C"})
	if d.Message != "Heat to 20°C (currently 18.5°C)" {
		t.Errorf("Message = %q", d.Message)
	}
}

func TestRulesOrder(t *testing.T) {
	want := []Action{
		ActionNoZone,
		ActionFreezeGuardrail,
		ActionOverheatGuardrail,
		ActionOverrideCoolActive,
		ActionOverrideHeatActive,
		ActionOverrideCoolClamp,
		ActionOverrideHeatClamp,
		ActionHeat,
		ActionCool,
		ActionInRange,
		ActionHoldBand,
	}
	if len(rules) != len(want) {
		t.Fatalf("len(rules) = %d, want %d", len(rules), len(want))
	}
	for i, r := range rules {
		if r.action != want[i] {
			t.Errorf("rules[%d] = %s, want %s", i, r.action, want[i])
		}
	}
}
