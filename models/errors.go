package models

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a pipeline failure. Codes are stable identifiers used
// in log output and tests; the message carries the human-readable detail.
type ErrorCode string

const (
	// Configuration errors — fatal before any network call
	ErrCodeInvalidTriggerURL ErrorCode = "InvalidTriggerUrl"
	ErrCodeMissingInput      ErrorCode = "MissingInput"

	// Event parsing errors
	ErrCodeUnsupportedEvent         ErrorCode = "UnsupportedEvent"
	ErrCodeNotAPullRequest          ErrorCode = "NotAPullRequest"
	ErrCodeMissingPullRequestNumber ErrorCode = "MissingPullRequestNumber"
	ErrCodeMalformedEvent           ErrorCode = "MalformedEvent"

	// Authentication errors
	ErrCodeMissingIdentityToken  ErrorCode = "MissingIdentityToken"
	ErrCodeTokenValidationFailed ErrorCode = "TokenValidationFailed"
	ErrCodeAppNotInstalled       ErrorCode = "AppNotInstalled"
	ErrCodeTokenExchangeFailed   ErrorCode = "TokenExchangeFailed"

	// Upstream fetch errors
	ErrCodeUpstreamFetchFailed ErrorCode = "UpstreamFetchFailed"

	// Delivery errors
	ErrCodeTriggerDeliveryFailed  ErrorCode = "TriggerDeliveryFailed"
	ErrCodeInvalidTriggerResponse ErrorCode = "InvalidTriggerResponse"

	// Internal defects
	ErrCodeInvariantViolation ErrorCode = "InvariantViolation"
)

// TriggerError is the error type produced by every pipeline stage. It carries
// a stable code for classification and wraps the underlying cause, if any.
type TriggerError struct {
	Code    ErrorCode
	Message string
	Err     error
}

// Error implements the error interface
func (e *TriggerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is / errors.As chains
func (e *TriggerError) Unwrap() error {
	return e.Err
}

// NewTriggerError creates a TriggerError with a formatted message
func NewTriggerError(code ErrorCode, format string, args ...interface{}) *TriggerError {
	return &TriggerError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WrapTriggerError creates a TriggerError wrapping an underlying error
func WrapTriggerError(code ErrorCode, err error, format string, args ...interface{}) *TriggerError {
	return &TriggerError{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// ErrorCodeOf returns the code of the first TriggerError in err's chain, or
// an empty code if there is none.
func ErrorCodeOf(err error) ErrorCode {
	var te *TriggerError
	if errors.As(err, &te) {
		return te.Code
	}
	return ""
}

// IsErrorCode reports whether err's chain contains a TriggerError with the
// given code.
func IsErrorCode(err error, code ErrorCode) bool {
	return ErrorCodeOf(err) == code
}
