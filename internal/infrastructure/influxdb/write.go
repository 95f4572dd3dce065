package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementActuatorOutput = "actuator_output"
	MeasurementDispatch       = "dispatch"
)

// RecordActuatorValue records a value sent to an actuator. It satisfies
// actuation.Recorder and is called from the Worker, so it never blocks;
// points are batched and sent asynchronously.
//
//	client.RecordActuatorValue("Edge (vibrate)", "vibrate", 0.42)
func (c *Client) RecordActuatorValue(actuatorID, kind string, value float64) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(actuatorPoint(actuatorID, kind, value, time.Now()))
}

// WriteDispatchEvent records the outcome of a finished command.
func (c *Client) WriteDispatchEvent(handle uint64, mode, status string, duration time.Duration) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(dispatchPoint(handle, mode, status, duration, time.Now()))
}

func actuatorPoint(actuatorID, kind string, value float64, ts time.Time) *write.Point {
	return write.NewPoint(
		MeasurementActuatorOutput,
		map[string]string{
			"actuator": actuatorID,
			"kind":     kind,
		},
		map[string]interface{}{
			"value": value,
		},
		ts,
	)
}

// dispatchPoint keeps the handle as a field; it is unique per command and
// would explode series cardinality as a tag.
func dispatchPoint(handle uint64, mode, status string, duration time.Duration, ts time.Time) *write.Point {
	return write.NewPoint(
		MeasurementDispatch,
		map[string]string{
			"mode":   mode,
			"status": status,
		},
		map[string]interface{}{
			"handle":      strconv.FormatUint(handle, 10),
			"duration_ms": duration.Milliseconds(),
		},
		ts,
	)
}
