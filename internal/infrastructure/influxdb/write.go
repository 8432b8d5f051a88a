package influxdb

import (
	"context"
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/gray-logic-modbus/internal/command"
)

// commandMeasurement is the measurement holding one point per command.
const commandMeasurement = "modbus_command"

// WritePoint writes a custom point with full control over tags and fields.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any) {
	c.WritePointWithTime(measurement, tags, fields, time.Now())
}

// WritePointWithTime writes a custom point with a specific timestamp.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]any, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}

// WriteCommandMetric writes one modbus_command point for a handled command.
//
// Tags are processor, instance and status. Fields are value (omitted for
// unparseable payloads), writes (register writes produced) and completed
// (register writes applied). The write is non-blocking.
//
// Example:
//
//	client.WriteCommandMetric(command.Record{ProcessorID: "grid_charge", Value: 500, ...})
func (c *Client) WriteCommandMetric(rec command.Record) {
	measurement, tags, fields, ts := commandPoint(rec)
	c.WritePointWithTime(measurement, tags, fields, ts)
}

// commandPoint maps a record to point components.
func commandPoint(rec command.Record) (string, map[string]string, map[string]any, time.Time) {
	tags := map[string]string{
		"processor": rec.ProcessorID,
		"instance":  strconv.Itoa(rec.Instance),
		"status":    string(rec.Status),
	}
	fields := map[string]any{
		"writes":    len(rec.Writes),
		"completed": rec.Completed,
	}
	if rec.Status != command.StatusInvalid {
		fields["value"] = rec.Value
	}

	ts := rec.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return commandMeasurement, tags, fields, ts
}

// pointWriter is the subset of *Client used by CommandRecorder.
type pointWriter interface {
	WritePointWithTime(measurement string, tags map[string]string, fields map[string]any, timestamp time.Time)
}

// CommandRecorder adapts a Client to command.Recorder.
type CommandRecorder struct {
	w pointWriter
}

// NewCommandRecorder returns a recorder writing command metrics to c.
func NewCommandRecorder(c *Client) *CommandRecorder {
	return &CommandRecorder{w: c}
}

// RecordCommand implements command.Recorder. Writes are batched, so
// delivery failures surface through the client's error callback rather
// than here.
func (r *CommandRecorder) RecordCommand(ctx context.Context, rec command.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	measurement, tags, fields, ts := commandPoint(rec)
	r.w.WritePointWithTime(measurement, tags, fields, ts)
	return nil
}
