package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound       = errors.New("resource not found")
	ErrTableNotFound  = fmt.Errorf("%w: table", ErrNotFound)
	ErrColumnNotFound = fmt.Errorf("%w: column", ErrNotFound)

	// Input errors
	ErrInvalidInput      = errors.New("invalid input")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrUndecodable       = errors.New("could not decode input with any supported encoding")
	ErrMalformedInput    = errors.New("malformed input")

	// Table shape errors
	ErrEmptyTable     = errors.New("table has no rows")
	ErrLengthMismatch = errors.New("column length does not match table row count")
	ErrDuplicateName  = errors.New("duplicate column name")

	// Precondition errors
	ErrMissingColumn = errors.New("required column not found")
	ErrNoJoinKey     = errors.New("no common join column found")
)

// Error constructors with context
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

// NewMissingColumnError names the column category and every spelling that would have satisfied it.
func NewMissingColumnError(category string, candidates []string) error {
	return fmt.Errorf("%w: no %s column found. Expected one of: %v", ErrMissingColumn, category, candidates)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsInputError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrUnsupportedFormat) ||
		errors.Is(err, ErrUndecodable) ||
		errors.Is(err, ErrMalformedInput)
}

func IsPreconditionError(err error) bool {
	return errors.Is(err, ErrMissingColumn) || errors.Is(err, ErrNoJoinKey)
}
