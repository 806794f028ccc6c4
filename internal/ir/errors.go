package ir

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode categorizes domain errors returned by graph operations.
type ErrorCode string

const (
	// ErrCodeDuplicateID indicates an entity with the same id already exists.
	ErrCodeDuplicateID ErrorCode = "DUPLICATE_ID"

	// ErrCodeNotFound indicates the referenced entity does not exist.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeDanglingReference indicates an edge endpoint is missing.
	ErrCodeDanglingReference ErrorCode = "DANGLING_REFERENCE"

	// ErrCodeIdentityViolation indicates an updater changed an entity id.
	ErrCodeIdentityViolation ErrorCode = "IDENTITY_VIOLATION"

	// ErrCodeValidationFailed indicates schema validation found violations.
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"

	// ErrCodeOrderViolation indicates misuse of fractional index keys.
	ErrCodeOrderViolation ErrorCode = "ORDER_VIOLATION"

	// ErrCodeInvalidContext indicates a query step ran on the wrong item kind.
	ErrCodeInvalidContext ErrorCode = "INVALID_CONTEXT"

	// ErrCodeParseFailure indicates malformed serialized text.
	ErrCodeParseFailure ErrorCode = "PARSE_FAILURE"
)

// Error is a recoverable domain failure.
//
// Details carries every violation for ErrCodeValidationFailed; other codes
// usually leave it empty.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// ID is the entity the error concerns, when there is one.
	ID string

	// Details lists individual violations.
	Details []string
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.ID != "" {
		fmt.Fprintf(&b, " (id=%s)", e.ID)
	}
	if len(e.Details) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(e.Details, "; "))
	}
	return b.String()
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsCode reports whether err wraps an *Error with the given code.
func IsCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// NewDuplicateID creates an ErrCodeDuplicateID error.
func NewDuplicateID(kind, id string) *Error {
	return &Error{Code: ErrCodeDuplicateID, Message: kind + " already exists", ID: id}
}

// NewNotFound creates an ErrCodeNotFound error.
func NewNotFound(kind, id string) *Error {
	return &Error{Code: ErrCodeNotFound, Message: kind + " not found", ID: id}
}

// NewDanglingReference creates an ErrCodeDanglingReference error.
func NewDanglingReference(edgeID string, endpoint string, nodeID NodeID) *Error {
	return &Error{
		Code:    ErrCodeDanglingReference,
		Message: fmt.Sprintf("%s node %q does not exist", endpoint, nodeID),
		ID:      edgeID,
	}
}

// NewIdentityViolation creates an ErrCodeIdentityViolation error.
func NewIdentityViolation(kind, oldID, newID string) *Error {
	return &Error{
		Code:    ErrCodeIdentityViolation,
		Message: fmt.Sprintf("%s id changed from %q to %q", kind, oldID, newID),
		ID:      oldID,
	}
}

// NewValidationFailed creates an ErrCodeValidationFailed error carrying all messages.
func NewValidationFailed(id string, messages []string) *Error {
	return &Error{
		Code:    ErrCodeValidationFailed,
		Message: fmt.Sprintf("%d validation error(s)", len(messages)),
		ID:      id,
		Details: messages,
	}
}

// NewOrderViolation creates an ErrCodeOrderViolation error.
func NewOrderViolation(format string, args ...any) *Error {
	return &Error{Code: ErrCodeOrderViolation, Message: fmt.Sprintf(format, args...)}
}

// NewInvalidContext creates an ErrCodeInvalidContext error.
func NewInvalidContext(format string, args ...any) *Error {
	return &Error{Code: ErrCodeInvalidContext, Message: fmt.Sprintf(format, args...)}
}

// NewParseFailure creates an ErrCodeParseFailure error wrapping cause.
func NewParseFailure(what string, cause error) *Error {
	msg := "malformed " + what
	if cause != nil {
		msg += ": " + cause.Error()
	}
	return &Error{Code: ErrCodeParseFailure, Message: msg}
}
