package isitclear

import (
	"errors"
	"fmt"
)

// Code identifies a class of failure.
type Code string

// Validation codes are detected before any backend call and never retried.
const (
	CodeEmptyText            Code = "EMPTY_TEXT"
	CodeTextTooLong          Code = "TEXT_TOO_LONG"
	CodeInvalidChangeKind    Code = "INVALID_CHANGE_KIND"
	CodeInvalidPositionRange Code = "INVALID_POSITION_RANGE"
	CodeInvalidChange        Code = "INVALID_CHANGE"
	CodeInvalidResult        Code = "INVALID_RESULT"
	CodeInvalidPreference    Code = "INVALID_PREFERENCE"
)

// Backend and lifecycle codes.
const (
	CodeBackendUnavailable     Code = "BACKEND_UNAVAILABLE"
	CodeInsufficientResources  Code = "INSUFFICIENT_RESOURCES"
	CodeProcessingError        Code = "PROCESSING_ERROR"
	CodeBothBackendsFailed     Code = "BOTH_BACKENDS_FAILED"
	CodeInvalidStateTransition Code = "INVALID_STATE_TRANSITION"
	CodeSessionNotFound        Code = "SESSION_NOT_FOUND"
	CodeNotAnInputField        Code = "NOT_AN_INPUT_FIELD"
	CodeUnknown                Code = "UNKNOWN"
)

// ErrInsufficientResources may be returned (or wrapped) by a Backend when the
// host cannot spare the memory or quota to create a session.
var ErrInsufficientResources = errors.New("insufficient resources")

// ErrUnavailable may be returned (or wrapped) by a Backend that is not usable.
var ErrUnavailable = errors.New("backend unavailable")

// Error is a structured error carrying a Code.
type Error struct {
	Code    Code
	Message string
	Err     error // underlying cause, may be nil
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf creates an Error with a formatted message.
func Errorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WrapError creates an Error that wraps cause.
func WrapError(code Code, cause error, msg string) *Error {
	return &Error{Code: code, Message: msg, Err: cause}
}

// NewEmptyText creates an EMPTY_TEXT error.
func NewEmptyText() *Error {
	return Errorf(CodeEmptyText, "text is empty")
}

// NewTextTooLong creates a TEXT_TOO_LONG error.
func NewTextTooLong(actual int) *Error {
	return Errorf(CodeTextTooLong, "text exceeds maximum length: %d chars (max %d)", actual, MaxTextLength)
}

// NewInvalidStateTransition creates an INVALID_STATE_TRANSITION error.
func NewInvalidStateTransition(from, to SampleState) *Error {
	return Errorf(CodeInvalidStateTransition, "cannot transition from %s to %s", from, to)
}

// NewSessionNotFound creates a SESSION_NOT_FOUND error.
func NewSessionNotFound(id string) *Error {
	return Errorf(CodeSessionNotFound, "session not found: %s", id)
}

// NewBackendUnavailable creates a BACKEND_UNAVAILABLE error.
func NewBackendUnavailable(kind BackendKind, cause error) *Error {
	return WrapError(CodeBackendUnavailable, cause, fmt.Sprintf("%s backend unavailable", kind))
}

// NewNotAnInputField creates a NOT_AN_INPUT_FIELD error.
func NewNotAnInputField(ref string, reason string) *Error {
	return Errorf(CodeNotAnInputField, "%s is not an input field: %s", ref, reason)
}

// ErrorCode returns the Code of err, CodeUnknown if err carries none, or "" for nil.
func ErrorCode(err error) Code {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// IsCode reports whether err (or anything it wraps) is an Error with the given code.
func IsCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// ErrorMessage returns the human-readable message of err without the code prefix.
func ErrorMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
