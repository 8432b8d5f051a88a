package command

import "errors"

// Domain errors for the command package.
var (
	// ErrWriteFailed is returned by HandleCommand when a register write
	// fails. Writes before the failing one have already been applied.
	ErrWriteFailed = errors.New("command: register write failed")

	// ErrDuplicateProcessor is returned when a processor ID is added to a
	// Set twice.
	ErrDuplicateProcessor = errors.New("command: duplicate processor")

	// ErrMissingDependency is returned when a processor is constructed
	// without a registry, subscriber or register writer.
	ErrMissingDependency = errors.New("command: missing dependency")

	// ErrHandlerPanic is returned when HandleCommand recovers from a panic.
	ErrHandlerPanic = errors.New("command: handler panic")
)
