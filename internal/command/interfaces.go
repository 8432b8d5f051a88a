package command

import (
	"context"
	"errors"
	"time"

	"github.com/nerrad567/gray-logic-modbus/internal/register"
)

// Subscriber registers command handlers on the message bus.
// Satisfied by *mqtt.Client.
type Subscriber interface {
	// SubscribeCommandHandler subscribes handler to the command topic of
	// topicSuffix under the given instance index.
	SubscribeCommandHandler(instance int, topicSuffix string, handler func(topic string, payload []byte) error) error
}

// RegisterWriter writes one holding register on the device.
// Satisfied by *modbus.Client. Implementations must be safe for
// concurrent callers.
type RegisterWriter interface {
	WriteRegister(ctx context.Context, address uint16, value uint16) error
}

// Logger is the structured logger used by processors.
// Satisfied by *logging.Logger and *slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Recorder receives the outcome of every command.
// Satisfied by *audit.SQLiteRepository and *influxdb.CommandRecorder.
type Recorder interface {
	RecordCommand(ctx context.Context, rec Record) error
}

// Status is the outcome of one command.
type Status string

// Command outcomes.
const (
	// StatusApplied means every register write succeeded.
	StatusApplied Status = "applied"

	// StatusFailed means a register write failed. Record.Completed tells
	// how many writes were applied before the failure.
	StatusFailed Status = "failed"

	// StatusInvalid means the payload was not a number.
	StatusInvalid Status = "invalid"

	// StatusRejected means the value could not be translated (out of range
	// or not representable).
	StatusRejected Status = "rejected"

	// StatusUnbound means the processor has no register definition.
	StatusUnbound Status = "unbound"
)

// Record describes one handled command.
type Record struct {
	ProcessorID string
	Instance    int
	Topic       string
	Payload     string

	// Value is the parsed value. Zero when Status is StatusInvalid.
	Value float64

	Status Status

	// Writes are the translated register writes, in issue order.
	Writes []register.Write

	// Completed counts the writes that succeeded.
	Completed int

	// Error is empty unless Status is not StatusApplied.
	Error string

	Timestamp time.Time
}

// MultiRecorder fans a record out to several recorders.
// Every recorder is called; failures are joined.
type MultiRecorder []Recorder

// RecordCommand implements Recorder.
func (m MultiRecorder) RecordCommand(ctx context.Context, rec Record) error {
	var errs []error
	for _, r := range m {
		if err := r.RecordCommand(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
