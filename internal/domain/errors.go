package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// APIError represents a standardized error response
type APIError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes for different failure scenarios
const (
	ErrInvalidInput       = "INVALID_INPUT"
	ErrValidation         = "VALIDATION_ERROR"
	ErrNotFoundCode       = "NOT_FOUND"
	ErrStorage            = "STORAGE_ERROR"
	ErrServiceUnavailable = "SERVICE_UNAVAILABLE"
	ErrRateLimited        = "RATE_LIMITED"
	ErrInternalServer     = "INTERNAL_SERVER_ERROR"
)

// ValidationError represents input validation errors
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// NewAPIError creates a new APIError with timestamp
func NewAPIError(code, message, details, requestID string) *APIError {
	return &APIError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// ErrorCode classifies err into an API error code. Unrecognized errors get fallback.
func ErrorCode(err error, fallback string) string {
	var (
		validationErr *ValidationError
		syntaxErr     *json.SyntaxError
		typeErr       *json.UnmarshalTypeError
	)
	switch {
	case err == nil:
		return fallback
	case errors.As(err, &validationErr),
		errors.Is(err, ErrInvalidConfidence),
		errors.Is(err, ErrInvalidSource),
		errors.Is(err, ErrInvalidSeverity):
		return ErrValidation
	case errors.Is(err, ErrNotFound):
		return ErrNotFoundCode
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr):
		return ErrInvalidInput
	default:
		return fallback
	}
}

// StatusForCode maps an API error code to its HTTP status.
func StatusForCode(code string) int {
	switch code {
	case ErrInvalidInput, ErrValidation:
		return http.StatusBadRequest
	case ErrNotFoundCode:
		return http.StatusNotFound
	case ErrServiceUnavailable:
		return http.StatusServiceUnavailable
	case ErrRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
