// Package apperrors defines the typed error taxonomy shared by services and
// handlers: validation (400), not found (404), unauthorized (401), forbidden
// (403) and conflict (409). Anything else is treated as internal (500).
package apperrors

import "fmt"

type Code string

const (
	CodeValidation   Code = "validation"
	CodeNotFound     Code = "not_found"
	CodeUnauthorized Code = "unauthorized"
	CodeForbidden    Code = "forbidden"
	CodeConflict     Code = "conflict"
	CodeInternal     Code = "internal"
)

// Error is a coded application error. Details carries structured context the
// client needs to drive its next action, e.g. {"requiresOTP": true}.
type Error struct {
	Code    Code
	Message string
	Details map[string]interface{}
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a coded error wrapping an optional cause.
func New(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// Validation creates a 400-class error.
func Validation(message string) *Error {
	return &Error{Code: CodeValidation, Message: message}
}

// ValidationWithDetails creates a 400-class error carrying structured detail.
func ValidationWithDetails(message string, details map[string]interface{}) *Error {
	return &Error{Code: CodeValidation, Message: message, Details: details}
}

// NotFound creates a 404-class error.
func NotFound(message string) *Error {
	return &Error{Code: CodeNotFound, Message: message}
}

// Unauthorized creates a 401-class error.
func Unauthorized(message string) *Error {
	return &Error{Code: CodeUnauthorized, Message: message}
}

// Forbidden creates a 403-class error.
func Forbidden(message string) *Error {
	return &Error{Code: CodeForbidden, Message: message}
}

// Conflict creates a 409-class error.
func Conflict(message string) *Error {
	return &Error{Code: CodeConflict, Message: message}
}

// Is reports whether err is an application error with the given code.
func Is(err error, code Code) bool {
	appErr, ok := err.(*Error)
	return ok && appErr.Code == code
}

// CodeOf returns the code of err, or CodeInternal for plain errors.
func CodeOf(err error) Code {
	if appErr, ok := err.(*Error); ok {
		return appErr.Code
	}
	return CodeInternal
}

// DetailsOf returns the structured details of err, if any.
func DetailsOf(err error) map[string]interface{} {
	if appErr, ok := err.(*Error); ok {
		return appErr.Details
	}
	return nil
}
