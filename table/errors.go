package table

import "errors"

// Error kinds shared by every package of the module. Errors returned by the
// reader, the query engine and the formatters wrap exactly one of these, so
// callers can classify failures with errors.Is.
var (
	// ErrIO is returned when a file is missing or unreadable
	ErrIO = errors.New("io error")

	// ErrParse is returned for malformed CSV input
	ErrParse = errors.New("parse error")

	// ErrSchema is returned when an expression references an unknown column
	// or a schema would contain duplicate names
	ErrSchema = errors.New("schema error")

	// ErrTypeMismatch is returned when an operation is applied to a value or
	// column of an incompatible type
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrInvalidArgument is returned for out-of-range arguments such as a
	// negative head count
	ErrInvalidArgument = errors.New("invalid argument")
)
