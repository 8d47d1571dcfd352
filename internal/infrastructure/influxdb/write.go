package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementManifest  = "manifest_compile"
	MeasurementDirective = "thermostat_directive"
)

// WriteManifestSummary records one compile: counts, outcome and duration.
func (c *Client) WriteManifestSummary(siteID string, closed bool, equipment, thermostats, errs int, duration time.Duration, at time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writer.WritePoint(manifestPoint(siteID, closed, equipment, thermostats, errs, duration, at))
}

// WriteThermostatDirective records the action chosen for one thermostat.
// Nil temperature or target are omitted from the point.
func (c *Client) WriteThermostatDirective(siteID, thermostatID, action string, temperature, target *float64, at time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writer.WritePoint(directivePoint(siteID, thermostatID, action, temperature, target, at))
}

func manifestPoint(siteID string, closed bool, equipment, thermostats, errs int, duration time.Duration, at time.Time) *write.Point {
	return write.NewPoint(
		MeasurementManifest,
		map[string]string{"site_id": siteID},
		map[string]interface{}{
			"closed":           closed,
			"equipment_count":  equipment,
			"thermostat_count": thermostats,
			"error_count":      errs,
			"duration_ms":      float64(duration) / float64(time.Millisecond),
		},
		at,
	)
}

func directivePoint(siteID, thermostatID, action string, temperature, target *float64, at time.Time) *write.Point {
	fields := map[string]interface{}{"count": 1}
	if temperature != nil {
		fields["temperature"] = *temperature
	}
	if target != nil {
		fields["target_setpoint"] = *target
	}
	return write.NewPoint(
		MeasurementDirective,
		map[string]string{
			"site_id":       siteID,
			"thermostat_id": thermostatID,
			"action":        action,
		},
		fields,
		at,
	)
}
