package errors

import (
	"fmt"
	"net/http"
	"runtime/debug"
)

// Error codes for the failure taxonomy of the query pipeline
const (
	CodeInputRejected         = "INPUT_REJECTED"
	CodeCapabilityUnavailable = "CAPABILITY_UNAVAILABLE"
	CodeMedicineNotFound      = "MEDICINE_NOT_FOUND"
	CodeBackendUnreachable    = "BACKEND_UNREACHABLE"
	CodeTurnInFlight          = "TURN_IN_FLIGHT"
	CodeSessionNotFound       = "SESSION_NOT_FOUND"
	CodeUnknown               = "UNKNOWN_ERROR"
)

// AppError represents an application error with HTTP status code and error code
type AppError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    any    `json:"details,omitempty"`
	Stack      string `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

// NewError creates a new application error
func NewError(statusCode int, code string, message string) *AppError {
	return &AppError{
		StatusCode: statusCode,
		Code:       code,
		Message:    message,
		Stack:      string(debug.Stack()),
	}
}

// NewInputRejectedError creates a 400 error for empty or invalid capture input
func NewInputRejectedError(message string) *AppError {
	return NewError(http.StatusBadRequest, CodeInputRejected, message)
}

// NewCapabilityUnavailableError creates a 503 error for denied or missing device capabilities
func NewCapabilityUnavailableError(message string) *AppError {
	return NewError(http.StatusServiceUnavailable, CodeCapabilityUnavailable, message)
}

// NewSessionNotFoundError creates a 404 error for unknown session IDs
func NewSessionNotFoundError(sessionID string) *AppError {
	return NewError(http.StatusNotFound, CodeSessionNotFound,
		fmt.Sprintf("session %s does not exist", sessionID))
}

// NewTurnInFlightError creates a 409 error for a submission while one is already loading
func NewTurnInFlightError() *AppError {
	return NewError(http.StatusConflict, CodeTurnInFlight,
		"a query is already in flight for this session")
}

// NewBadRequestError creates a 400 Bad Request error
func NewBadRequestError(code string, message string) *AppError {
	return NewError(http.StatusBadRequest, code, message)
}

// NewNotFoundError creates a 404 Not Found error
func NewNotFoundError(code string, message string) *AppError {
	return NewError(http.StatusNotFound, code, message)
}

// NewInternalError creates a 500 Internal Server Error
func NewInternalError(code string, message string) *AppError {
	return NewError(http.StatusInternalServerError, code, message)
}

// FromError converts any error to an AppError
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	if appErr, ok := err.(*AppError); ok {
		return appErr
	}

	return &AppError{
		StatusCode: http.StatusInternalServerError,
		Code:       CodeUnknown,
		Message:    err.Error(),
	}
}
