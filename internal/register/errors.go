package register

import "errors"

// Domain errors for the register package.
var (
	// ErrInvalidValue is returned when a command value is NaN or infinite.
	ErrInvalidValue = errors.New("register: invalid value")

	// ErrOutOfRange is returned when a value lies outside the definition's
	// configured min/max range.
	ErrOutOfRange = errors.New("register: value out of range")

	// ErrNotRepresentable is returned when a scaled value does not fit the
	// register kind.
	ErrNotRepresentable = errors.New("register: value not representable")

	// ErrInvalidDefinition is returned when a register definition fails
	// static validation.
	ErrInvalidDefinition = errors.New("register: invalid definition")

	// ErrUnsupportedFormat is returned when a register file extension is
	// not recognised.
	ErrUnsupportedFormat = errors.New("register: unsupported file format")
)
