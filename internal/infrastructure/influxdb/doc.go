// Package influxdb writes compile telemetry to InfluxDB.
//
// Each manifest compile produces one manifest_compile point tagged by
// site, and one thermostat_directive point per zoned thermostat tagged by
// site, thermostat and action. Points are written through the client's
// non-blocking batched API; asynchronous failures are delivered to the
// callback set with SetOnError.
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // telemetry off
//	}
//	defer client.Close()
package influxdb
