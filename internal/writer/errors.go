package writer

import (
	"errors"
	"fmt"
)

// WriteError represents a fatal contract violation detected during a write.
//
// Fatal violations include:
//   - Missing argument: a root call requiring an argument invoked without one
//   - Shape mismatch: payload shape contradicts the query's declared shape
//     (array where singular expected and vice versa, element count
//     mismatches, non-object payloads at record positions)
//   - Undefined payload: undefined observed at a record position
//
// WriteError includes structured fields for diagnostics and recovery.
type WriteError struct {
	// Code identifies the error category.
	Code WriteErrorCode

	// Message is a human-readable description.
	Message string

	// Call identifies the root call being written.
	Call string

	// Field identifies the offending field for nested violations.
	Field string
}

// WriteErrorCode categorizes write errors.
type WriteErrorCode string

const (
	// ErrCodeMissingArgument indicates a root call requiring an argument
	// was invoked with none.
	ErrCodeMissingArgument WriteErrorCode = "MISSING_ARGUMENT"

	// ErrCodeShapeMismatch indicates the payload shape contradicts the
	// query's declared singular/plural expectation.
	ErrCodeShapeMismatch WriteErrorCode = "SHAPE_MISMATCH"

	// ErrCodeUndefinedPayload indicates undefined was observed at a
	// record position. Undefined is categorically different from an
	// absent field only at record-identity positions, so it always fails
	// loudly rather than silently no-oping.
	ErrCodeUndefinedPayload WriteErrorCode = "UNDEFINED_PAYLOAD"

	// ErrCodeInvalidQuery indicates the query tree itself is malformed.
	ErrCodeInvalidQuery WriteErrorCode = "INVALID_QUERY"
)

// Error implements the error interface.
func (e *WriteError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (call=%s, field=%s)", e.Code, e.Message, e.Call, e.Field)
	}
	if e.Call != "" {
		return fmt.Sprintf("%s: %s (call=%s)", e.Code, e.Message, e.Call)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsShapeMismatch returns true if the error is a shape mismatch.
// Uses errors.As to handle wrapped errors.
func IsShapeMismatch(err error) bool {
	var we *WriteError
	return errors.As(err, &we) && we.Code == ErrCodeShapeMismatch
}

// IsUndefinedPayload returns true if the error reports undefined at a
// record position.
func IsUndefinedPayload(err error) bool {
	var we *WriteError
	return errors.As(err, &we) && we.Code == ErrCodeUndefinedPayload
}

// IsMissingArgument returns true if the error reports a root call invoked
// without its required argument.
func IsMissingArgument(err error) bool {
	var we *WriteError
	return errors.As(err, &we) && we.Code == ErrCodeMissingArgument
}

// NewShapeMismatchError creates a WriteError for a payload shape that
// contradicts the query.
func NewShapeMismatchError(call, field, message string) *WriteError {
	return &WriteError{
		Code:    ErrCodeShapeMismatch,
		Message: message,
		Call:    call,
		Field:   field,
	}
}

// NewCountMismatchError creates a WriteError for a plural payload whose
// element count differs from the declared target count.
func NewCountMismatchError(call string, want, got int) *WriteError {
	return &WriteError{
		Code:    ErrCodeShapeMismatch,
		Message: fmt.Sprintf("expected %d plural results, got %d", want, got),
		Call:    call,
	}
}

// NewUndefinedPayloadError creates a WriteError for undefined at a record
// position.
func NewUndefinedPayloadError(call, field string) *WriteError {
	return &WriteError{
		Code:    ErrCodeUndefinedPayload,
		Message: "undefined payload at record position",
		Call:    call,
		Field:   field,
	}
}

// NewMissingArgumentError creates a WriteError for a root call that
// requires an argument.
func NewMissingArgumentError(call string) *WriteError {
	return &WriteError{
		Code:    ErrCodeMissingArgument,
		Message: "root call requires an argument",
		Call:    call,
	}
}
