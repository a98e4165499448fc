package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents an advdiff error code.
type ErrorCode string

const (
	ErrInvalidRequest  ErrorCode = "INVALID_REQUEST"  // 400
	ErrNotFound        ErrorCode = "NOT_FOUND"        // 404
	ErrMalformedRecord ErrorCode = "MALFORMED_RECORD" // 422
	ErrInternal        ErrorCode = "INTERNAL"         // 500
	ErrFetchFailed     ErrorCode = "FETCH_FAILED"     // 502
)

// AdvError represents a structured error with code, status, and details.
type AdvError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
	Cause   error
}

// Error implements the error interface.
func (e *AdvError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *AdvError) Unwrap() error {
	return e.Cause
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *AdvError {
	return &AdvError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a missing dataset file or cache entry.
func NewNotFound(identifier string) *AdvError {
	return &AdvError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewMalformedRecord creates a 422 error for a record missing a required field.
// position is the zero-based row index (or one-based line number for JSONL files).
// An empty field means the record itself could not be decoded.
func NewMalformedRecord(source string, position int, field string) *AdvError {
	msg := fmt.Sprintf("record %d in %s: missing or non-string field %q", position, source, field)
	if field == "" {
		msg = fmt.Sprintf("record %d in %s: not a JSON object", position, source)
	}
	return &AdvError{
		Code:    ErrMalformedRecord,
		Status:  422,
		Message: msg,
		Details: map[string]any{"source": source, "position": position, "field": field},
	}
}

// NewFetchFailed creates a 502 error when a dataset cannot be retrieved.
func NewFetchFailed(dataset string, cause error) *AdvError {
	msg := fmt.Sprintf("failed to fetch %s", dataset)
	if cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, cause)
	}
	return &AdvError{
		Code:    ErrFetchFailed,
		Status:  502,
		Message: msg,
		Details: map[string]any{"dataset": dataset},
		Cause:   cause,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
// The message stays generic; the original error is kept in Details and Cause for logging.
func NewInternal(err error) *AdvError {
	details := map[string]any{}
	if err != nil {
		details["internal_error"] = err.Error()
	}
	return &AdvError{
		Code:    ErrInternal,
		Status:  500,
		Message: "an internal error occurred",
		Details: details,
		Cause:   err,
	}
}

// Is checks if an error is (or wraps) an AdvError with the given code.
func Is(err error, code ErrorCode) bool {
	var aErr *AdvError
	if stderrors.As(err, &aErr) {
		return aErr.Code == code
	}
	return false
}

// As returns the AdvError wrapped by err, if any.
func As(err error) (*AdvError, bool) {
	var aErr *AdvError
	if stderrors.As(err, &aErr) {
		return aErr, true
	}
	return nil, false
}
