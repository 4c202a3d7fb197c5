// Package core provides the error taxonomy, credentials and HTTP plumbing
// shared by the OpenStreetMap API client packages.
package core

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode identifies one kind in the closed set of client errors
type ErrorCode string

// Error codes. Every failing call maps to exactly one of these.
const (
	// Local failures, raised before or instead of a network round trip
	CodeURL               ErrorCode = "URL_ERROR"
	CodeEncode            ErrorCode = "ENCODE_ERROR"
	CodeQueryEncode       ErrorCode = "QUERY_ENCODE_ERROR"
	CodeCredentialsNeeded ErrorCode = "CREDENTIALS_NEEDED"

	// Transport and response handling
	CodeTransport ErrorCode = "TRANSPORT_ERROR"
	CodeDecode    ErrorCode = "DECODE_ERROR"

	// Status-derived errors
	CodeClient           ErrorCode = "CLIENT_ERROR"
	CodeUnauthorized     ErrorCode = "UNAUTHORIZED"
	CodeMethodNotAllowed ErrorCode = "METHOD_NOT_ALLOWED"
	CodeNotFound         ErrorCode = "NOT_FOUND"

	// Raised by health checks when the server reports itself offline
	CodeUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
)

// Sentinels for errors.Is. They match any *Error carrying the same code.
var (
	ErrURL               = &Error{Code: CodeURL}
	ErrEncode            = &Error{Code: CodeEncode}
	ErrQueryEncode       = &Error{Code: CodeQueryEncode}
	ErrCredentialsNeeded = &Error{Code: CodeCredentialsNeeded}
	ErrTransport         = &Error{Code: CodeTransport}
	ErrDecode            = &Error{Code: CodeDecode}
	ErrClient            = &Error{Code: CodeClient}
	ErrUnauthorized      = &Error{Code: CodeUnauthorized}
	ErrMethodNotAllowed  = &Error{Code: CodeMethodNotAllowed}
	ErrNotFound          = &Error{Code: CodeNotFound}
	ErrUnavailable       = &Error{Code: CodeUnavailable}
)

// Error is the single error type returned by the client.
// StatusCode and Body are only set for status-derived errors.
type Error struct {
	Code       ErrorCode
	Message    string
	StatusCode int
	Body       string
	Guidance   string
	Err        error
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := string(e.Code)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Guidance != "" {
		msg += ". " + e.Guidance
	}
	return msg
}

// Unwrap returns the underlying cause, if any
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a sentinel with the same code
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Err == nil && t.Code == e.Code
}

// NewError creates a new Error with the given code and message
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Errorf creates a new Error with a formatted message
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return NewError(code, fmt.Sprintf(format, args...))
}

// Wrap creates a new Error of the given code around cause
func Wrap(code ErrorCode, cause error, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     cause,
	}
}

// WithGuidance adds guidance information to the error
func (e *Error) WithGuidance(guidance string) *Error {
	e.Guidance = guidance
	return e
}

// CodeOf returns the code of the first *Error in err's chain, or "" when
// err was not produced by this package.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsClientStatus reports whether status is a 4xx status
func IsClientStatus(status int) bool {
	return status >= 400 && status < 500
}

// StatusError classifies a 4xx response. The body is kept verbatim for
// generic client errors. It returns nil for statuses outside 4xx.
func StatusError(status int, body string) *Error {
	var e *Error

	switch status {
	case http.StatusUnauthorized:
		e = NewError(CodeUnauthorized, "authentication failed").
			WithGuidance("Check the username and password the client was built with")
	case http.StatusMethodNotAllowed:
		e = NewError(CodeMethodNotAllowed, "method not allowed on this endpoint")
	case http.StatusNotFound:
		e = NewError(CodeNotFound, "resource not found")
	default:
		if !IsClientStatus(status) {
			return nil
		}
		e = Errorf(CodeClient, "HTTP %d", status)
		e.Body = body
	}

	e.StatusCode = status
	return e
}
