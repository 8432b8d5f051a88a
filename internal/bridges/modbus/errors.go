package modbus

import "errors"

// Domain errors for the Modbus transport package.
var (
	// ErrNotConnected is returned when the client has been closed.
	ErrNotConnected = errors.New("modbus: not connected")

	// ErrConnectionFailed is returned when the device connection cannot be
	// opened.
	ErrConnectionFailed = errors.New("modbus: connection failed")

	// ErrWriteFailed is returned when a register write fails.
	ErrWriteFailed = errors.New("modbus: register write failed")

	// ErrInvalidMode is returned when the configured transport mode is not
	// tcp, rtu or rtuovertcp.
	ErrInvalidMode = errors.New("modbus: invalid transport mode")

	// ErrInvalidUnitID is returned when the configured unit id is outside
	// 0-247.
	ErrInvalidUnitID = errors.New("modbus: invalid unit id")
)
