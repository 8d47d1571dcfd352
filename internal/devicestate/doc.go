// Package devicestate stores what each thermostat last reported and the
// directive the compiler last computed for it.
//
// Readings arrive over MQTT through Ingestor. Directives are written back
// by the manifest compiler, and a "no zone assigned" result is refused so
// it can never replace a live directive.
package devicestate
