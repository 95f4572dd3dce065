package influxdb

import "errors"

// Telemetry errors. The daemon treats all of them as non-fatal: actuation
// keeps running without a metrics sink.
var (
	// ErrDisabled is returned by Connect when telemetry is switched off.
	ErrDisabled = errors.New("influxdb: telemetry disabled")

	// ErrConnectionFailed wraps a failed ping or an unhealthy server at
	// startup.
	ErrConnectionFailed = errors.New("influxdb: connect")

	// ErrNotConnected is returned by HealthCheck after Close.
	ErrNotConnected = errors.New("influxdb: client closed")
)
