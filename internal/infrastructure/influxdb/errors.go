package influxdb

import "errors"

var (
	// ErrDisabled is returned by Connect when influxdb.enabled is false.
	// Callers treat it as "run without telemetry".
	ErrDisabled = errors.New("influxdb: disabled in configuration")

	ErrNotConnected     = errors.New("influxdb: not connected")
	ErrConnectionFailed = errors.New("influxdb: connection failed")
)
