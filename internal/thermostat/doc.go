// Package thermostat decides what each thermostat should do for a day.
//
// Evaluate walks an ordered decision table and stops at the first match:
//
//  1. no zone assigned
//  2. freeze guardrail (temperature <= guardrail_min)
//  3. overheat guardrail (temperature >= guardrail_max)
//  4. manager override, occupied days only: tolerated within the
//     configured band, clamped back to the band edge beyond it
//  5. ordinary heat / cool / in-range comparison
//  6. unknown temperature: hold the phase's band
//
// Reordering the table changes behaviour near every boundary, so each
// rule has its own test.
package thermostat
