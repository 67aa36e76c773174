// ABOUTME: Typed storage errors for provisioning, encoding, and resolution failures.
// ABOUTME: Each type reports its kind (not found, conflict, invalid) through Is.
package storage

import (
	"fmt"

	"github.com/sidewalklabs/commonspace-sub000/internal/models"
)

// Constraint kinds reported by ConstraintError.
const (
	ConstraintUnique     = "unique"
	ConstraintForeignKey = "foreign_key"
	ConstraintCheck      = "check"
	ConstraintNotNull    = "not_null"
)

// NullArrayElementError reports a null element inside an array-typed value.
type NullArrayElementError struct {
	Field string
	Index int
}

func (e *NullArrayElementError) Error() string {
	return fmt.Sprintf("field %s: null array element at index %d", e.Field, e.Index)
}

func (e *NullArrayElementError) Is(target error) bool { return target == models.ErrInvalid }

// InvalidValueError reports a value the codec cannot represent for its column.
type InvalidValueError struct {
	Field  string
	Reason string
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("field %s: %s", e.Field, e.Reason)
}

func (e *InvalidValueError) Is(target error) bool { return target == models.ErrInvalid }

// EncodingError wraps a catalog or codec failure raised while preparing a write.
type EncodingError struct {
	Err error
}

func (e *EncodingError) Error() string { return "encode record: " + e.Err.Error() }

func (e *EncodingError) Unwrap() error { return e.Err }

func (e *EncodingError) Is(target error) bool { return target == models.ErrInvalid }

// TableAlreadyExistsError reports a provisioning attempt against an existing table.
type TableAlreadyExistsError struct {
	Table string
}

func (e *TableAlreadyExistsError) Error() string {
	return fmt.Sprintf("table %s already exists", e.Table)
}

func (e *TableAlreadyExistsError) Is(target error) bool { return target == models.ErrConflict }

// TableNotFoundError reports a study table that has not been provisioned.
type TableNotFoundError struct {
	Table string
}

func (e *TableNotFoundError) Error() string {
	return fmt.Sprintf("table %s not found", e.Table)
}

func (e *TableNotFoundError) Is(target error) bool { return target == models.ErrNotFound }

// StudyNotFoundError reports a missing study metadata row.
type StudyNotFoundError struct {
	StudyID string
}

func (e *StudyNotFoundError) Error() string {
	return fmt.Sprintf("study not found: %s", e.StudyID)
}

func (e *StudyNotFoundError) Is(target error) bool { return target == models.ErrNotFound }

// SurveyNotFoundError reports a missing survey row.
type SurveyNotFoundError struct {
	SurveyID string
}

func (e *SurveyNotFoundError) Error() string {
	return fmt.Sprintf("survey not found: %s", e.SurveyID)
}

func (e *SurveyNotFoundError) Is(target error) bool { return target == models.ErrNotFound }

// RowNotFoundError reports a data point that matched no row.
type RowNotFoundError struct {
	Table       string
	DataPointID string
}

func (e *RowNotFoundError) Error() string {
	return fmt.Sprintf("data point %s not found in %s", e.DataPointID, e.Table)
}

func (e *RowNotFoundError) Is(target error) bool { return target == models.ErrNotFound }

// ConstraintError is a constraint violation raised by the backing store.
type ConstraintError struct {
	Kind string
	Err  error
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("%s constraint violation: %v", e.Kind, e.Err)
}

func (e *ConstraintError) Unwrap() error { return e.Err }

// Is maps key conflicts to ErrConflict and value checks to ErrInvalid.
func (e *ConstraintError) Is(target error) bool {
	switch e.Kind {
	case ConstraintUnique, ConstraintForeignKey:
		return target == models.ErrConflict
	default:
		return target == models.ErrInvalid
	}
}
