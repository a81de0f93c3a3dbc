package common

import (
	"errors"
	"net/http"
)

// Error codes shared by every endpoint. Pricing failures use the calculation error codes instead.
const (
	CodeBadRequest         = "BAD_REQUEST"
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeRefdataUnavailable = "REFDATA_UNAVAILABLE"
	CodeInvalidRates       = "INVALID_RATES"
	CodeInternal           = "INTERNAL"
)

// AppError carries the code, message and status an API error is rendered with.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// WithDetails attaches a details payload and returns the same error.
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

// BadRequest is returned for payloads that cannot be decoded.
func BadRequest(message string, err error) *AppError {
	return NewAppError(CodeBadRequest, message, http.StatusBadRequest, err)
}

// ValidationFailed is returned for payloads that decode but break a field rule.
func ValidationFailed(message string, err error) *AppError {
	return NewAppError(CodeValidationFailed, message, http.StatusUnprocessableEntity, err)
}

// Unauthorized is returned when an agent token is missing or rejected.
func Unauthorized(message string, err error) *AppError {
	return NewAppError(CodeUnauthorized, message, http.StatusUnauthorized, err)
}

// RefdataUnavailable is returned when no reference data snapshot can be served.
func RefdataUnavailable(err error) *AppError {
	return NewAppError(CodeRefdataUnavailable, "reference data unavailable", http.StatusServiceUnavailable, err)
}

// IsAppError checks whether the error is an AppError.
func IsAppError(err error) bool {
	var target *AppError
	return errors.As(err, &target)
}

// StatusOf returns the HTTP status an error renders with. Unknown errors are internal.
func StatusOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.HTTPStatus != 0 {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}
