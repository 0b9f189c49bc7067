package core

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes client errors.
type ErrorCode string

const (
	ErrCaptchaRequired ErrorCode = "captcha_required"
	ErrAuthRejected    ErrorCode = "auth_rejected"
	ErrAPIStatus       ErrorCode = "api_status"
	ErrTransport       ErrorCode = "transport"
	ErrMalformedInput  ErrorCode = "malformed_input"
	ErrPrecondition    ErrorCode = "precondition"
)

// Error provides rich context for client consumers.
type Error struct {
	Code    ErrorCode
	Message string
	Status  int    // HTTP status, set on api_status errors
	Body    string // raw response body, set on api_status errors
	wrapped error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.wrapped)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.wrapped }

// NewAPIError reports a response status outside the accepted set.
func NewAPIError(status int, method, url, body string) *Error {
	return &Error{
		Code:    ErrAPIStatus,
		Message: fmt.Sprintf("%d response from %s %s", status, method, url),
		Status:  status,
		Body:    body,
	}
}

// NewAuthRejected reports a login refused by the server, carrying its message.
func NewAuthRejected(message string) *Error {
	return &Error{Code: ErrAuthRejected, Message: fmt.Sprintf("login rejected: %s", message)}
}

// NewCaptchaRequired reports a login page demanding human intervention.
func NewCaptchaRequired() *Error {
	return &Error{Code: ErrCaptchaRequired, Message: "captcha required"}
}

// NewTransportError wraps a connection-level failure.
func NewTransportError(err error) *Error {
	return &Error{Code: ErrTransport, Message: "connection failed", wrapped: err}
}

// NewMalformedInput reports a violated precondition on caller-supplied data.
func NewMalformedInput(message string) *Error {
	return &Error{Code: ErrMalformedInput, Message: message}
}

// Precondition sentinels for session steps attempted out of order.
var (
	ErrNoSessionToken      = &Error{Code: ErrPrecondition, Message: "no valid session token"}
	ErrNoRegistrationToken = &Error{Code: ErrPrecondition, Message: "no registration token"}
)

func classify(code ErrorCode) func(error) bool {
	return func(err error) bool {
		var ce *Error
		if err == nil {
			return false
		}
		if errors.As(err, &ce) {
			return ce.Code == code
		}
		return false
	}
}

// Helper predicates for common error handling patterns.
var (
	IsCaptchaRequired = classify(ErrCaptchaRequired)
	IsAuthRejected    = classify(ErrAuthRejected)
	IsAPIError        = classify(ErrAPIStatus)
	IsTransport       = classify(ErrTransport)
	IsMalformedInput  = classify(ErrMalformedInput)
	IsPrecondition    = classify(ErrPrecondition)
)

// StatusOf extracts the HTTP status from an api_status error.
func StatusOf(err error) (int, bool) {
	var ce *Error
	if errors.As(err, &ce) && ce.Code == ErrAPIStatus {
		return ce.Status, true
	}
	return 0, false
}
