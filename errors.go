package vshader

import "errors"

var (
	// ErrTypeMismatch is returned when connecting pins whose data types are not compatible
	// or creating an operator or function with an unsupported operand combination.
	ErrTypeMismatch = errors.New("type mismatch")
	// ErrDirection is returned when connecting two pins of the same direction.
	ErrDirection   = errors.New("pins must be of opposite direction")
	ErrForeignNode = errors.New("node does not belong to script")
	ErrNilPin      = errors.New("nil pin")
	ErrDuplicateID = errors.New("id already exists")
	ErrInvalidType = errors.New("invalid data type")
)
