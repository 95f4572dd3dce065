// Package influxdb provides InfluxDB connectivity for actuator telemetry.
//
// It wraps the official influxdb-client-go v2 library for connection management,
// batched telemetry writes and health monitoring.
//
// # Purpose
//
// Every value the actuation Worker sends to hardware is recorded in the
// actuator_output measurement, and every finished command in dispatch.
// Together they let an operator replay what a device was actually told to do.
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    URL:    "http://localhost:8086",
//	    Token:  "your-token",
//	    Org:    "graylogic",
//	    Bucket: "metrics",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	worker.SetRecorder(client)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are logged via a callback.
// Connection and health check errors are returned directly.
//
// # Performance
//
// Writes are batched according to config.yaml settings (batch_size, flush_interval).
// This reduces network overhead for high-frequency telemetry data.
package influxdb
