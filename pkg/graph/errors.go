package graph

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	ErrUnknownNode   = errors.New("node not found")
	ErrDanglingEdge  = errors.New("edge endpoint does not exist")
	ErrDuplicateNode = errors.New("duplicate node")
	ErrSourceFailed  = errors.New("data source failed")
)

// BuildError provides structured error information for graph construction.
type BuildError struct {
	Op       string // Operation that failed (e.g., "enumerate", "filter")
	Type     string // Source type name
	RecordID string // Record identifier (if applicable)
	Field    string // Field name (if applicable)
	Cause    error  // Underlying error
}

// Error implements the error interface.
func (e *BuildError) Error() string {
	switch {
	case e.RecordID != "" && e.Field != "":
		return fmt.Sprintf("%s %s %s (field %s): %v", e.Op, e.Type, e.RecordID, e.Field, e.Cause)
	case e.RecordID != "":
		return fmt.Sprintf("%s %s %s: %v", e.Op, e.Type, e.RecordID, e.Cause)
	case e.Field != "":
		return fmt.Sprintf("%s %s (field %s): %v", e.Op, e.Type, e.Field, e.Cause)
	case e.Type != "":
		return fmt.Sprintf("%s %s: %v", e.Op, e.Type, e.Cause)
	default:
		return fmt.Sprintf("%s: %v", e.Op, e.Cause)
	}
}

// Unwrap returns the underlying cause for error chain support.
func (e *BuildError) Unwrap() error {
	return e.Cause
}

// ErrorBuilder provides a fluent interface for building BuildErrors.
type ErrorBuilder struct {
	err BuildError
}

// NewError creates a new error builder with the given operation.
func NewError(op string) *ErrorBuilder {
	return &ErrorBuilder{err: BuildError{Op: op}}
}

// Type sets the source type name.
func (b *ErrorBuilder) Type(name string) *ErrorBuilder {
	b.err.Type = name
	return b
}

// Record sets the record identifier.
func (b *ErrorBuilder) Record(id string) *ErrorBuilder {
	b.err.RecordID = id
	return b
}

// Field sets the field name.
func (b *ErrorBuilder) Field(name string) *ErrorBuilder {
	b.err.Field = name
	return b
}

// Cause sets the underlying error cause.
func (b *ErrorBuilder) Cause(err error) *ErrorBuilder {
	b.err.Cause = err
	return b
}

// Err returns the error as an error interface.
func (b *ErrorBuilder) Err() error {
	return &b.err
}

// SourceError wraps a data source enumeration failure for a type.
func SourceError(typeName string, cause error) error {
	return NewError("enumerate").Type(typeName).Cause(fmt.Errorf("%w: %w", ErrSourceFailed, cause)).Err()
}

// IsSourceFailure returns true if the error came from the data source.
func IsSourceFailure(err error) bool {
	return errors.Is(err, ErrSourceFailed)
}
