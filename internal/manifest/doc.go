// Package manifest compiles and stores the daily operations manifest.
//
// A manifest is the resolved plan for one site on one date: effective
// hours, equipment on/off times, one directive per thermostat, and the
// sun and weather snapshots used to produce them.
//
// Assemble is pure. Compiler gathers inputs, calls Assemble, upserts the
// document keyed by (site, date), and then fans the result out to the
// directive store, MQTT push, the event bus, WebSocket subscribers,
// metrics and telemetry. Nothing after the upsert can fail a compilation.
//
// The stored document carries no compile timestamp and its entries are
// sorted by ID, so recompiling unchanged inputs yields identical bytes.
package manifest
