// Package influxdb provides InfluxDB connectivity for the Modbus bridge.
//
// It wraps the official influxdb-client-go v2 library for connection
// management, command metric writing, and health monitoring.
//
// # Purpose
//
// Every command a processor handles becomes one point in the
// modbus_command measurement, tagged by processor, instance and outcome.
// Dashboards use it to chart how often each inverter parameter is changed
// and how often register writes fail.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	opts.Recorder = influxdb.NewCommandRecorder(client)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are delivered via
// the SetOnError callback. Connection and health check errors are
// returned directly.
package influxdb
