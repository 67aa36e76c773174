// ABOUTME: Error kinds shared by every layer of the collection platform.
// ABOUTME: Typed errors report a kind through Is so callers can map them to responses.
package models

import (
	"errors"
	"fmt"
)

// Error kinds. Callers test with errors.Is and map them to not-found,
// conflict/validation and internal responses respectively.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
	ErrInvalid  = errors.New("invalid input")
)

// UnknownFieldError reports a record key or field selection outside the catalog.
type UnknownFieldError struct {
	Field string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("unknown field: %q", e.Field)
}

// Is reports the error as a client validation failure.
func (e *UnknownFieldError) Is(target error) bool {
	return target == ErrInvalid
}

// InvalidIdentifierError reports an identifier that cannot safely name a table.
type InvalidIdentifierError struct {
	ID     string
	Reason string
}

func (e *InvalidIdentifierError) Error() string {
	return fmt.Sprintf("invalid identifier %q: %s", e.ID, e.Reason)
}

// Is reports the error as a client validation failure.
func (e *InvalidIdentifierError) Is(target error) bool {
	return target == ErrInvalid
}
