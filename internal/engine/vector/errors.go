package vector

import "errors"

// Errors for vector operations.
var (
	// ErrIndexOutOfRange is returned when an index is negative or not less
	// than the vector length.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrEmpty is returned when removing from or reading the end of an empty vector.
	ErrEmpty = errors.New("vector is empty")
)
