// internal/common/errors/errors.go
package errors

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeValidation ErrorCode = "VALIDATION_ERROR"
	ErrCodeNotFound   ErrorCode = "NOT_FOUND"
	ErrCodeForbidden  ErrorCode = "FORBIDDEN"
	ErrCodeConflict   ErrorCode = "CONFLICT"
	ErrCodeUpstream   ErrorCode = "UPSTREAM_ERROR"
	ErrCodeInternal   ErrorCode = "INTERNAL_ERROR"
)

// AppError is a structured application error carrying its HTTP mapping.
type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"`
	HTTPStatus int       `json:"-"`
	Timestamp  time.Time `json:"timestamp"`
}

func (e *AppError) Error() string {
	return fmt.Sprintf("AppError[%s]: %s", e.Code, e.Message)
}

// NewValidationError creates a 400 error for malformed or out-of-range input.
func NewValidationError(message, details string) *AppError {
	return &AppError{
		Code:       ErrCodeValidation,
		Message:    message,
		Details:    details,
		HTTPStatus: http.StatusBadRequest,
		Timestamp:  time.Now().UTC(),
	}
}

// NewNotFoundError creates a 404 error for an unknown id or token.
func NewNotFoundError(resource, details string) *AppError {
	return &AppError{
		Code:       ErrCodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		Details:    details,
		HTTPStatus: http.StatusNotFound,
		Timestamp:  time.Now().UTC(),
	}
}

// NewForbiddenError creates a 403 error for a role or ownership mismatch.
func NewForbiddenError(details string) *AppError {
	return &AppError{
		Code:       ErrCodeForbidden,
		Message:    "Access denied",
		Details:    details,
		HTTPStatus: http.StatusForbidden,
		Timestamp:  time.Now().UTC(),
	}
}

// NewConflictError creates a 400 error for re-entrant actions on a terminal
// or already-consumed state.
func NewConflictError(message, details string) *AppError {
	return &AppError{
		Code:       ErrCodeConflict,
		Message:    message,
		Details:    details,
		HTTPStatus: http.StatusBadRequest,
		Timestamp:  time.Now().UTC(),
	}
}

// NewUpstreamError creates a 500 error for storage or gateway failures.
// Details are logged server-side; production responses hide them.
func NewUpstreamError(service string, err error) *AppError {
	details := ""
	if err != nil {
		details = err.Error()
	}
	return &AppError{
		Code:       ErrCodeUpstream,
		Message:    fmt.Sprintf("External service '%s' error", service),
		Details:    details,
		HTTPStatus: http.StatusInternalServerError,
		Timestamp:  time.Now().UTC(),
	}
}

// FromError normalizes any error into an AppError. Unexpected errors become
// internal 500s.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return &AppError{
		Code:       ErrCodeInternal,
		Message:    "Unexpected error",
		Details:    err.Error(),
		HTTPStatus: http.StatusInternalServerError,
		Timestamp:  time.Now().UTC(),
	}
}

// IsCode reports whether err is an AppError with the given code.
func IsCode(err error, code ErrorCode) bool {
	appErr, ok := err.(*AppError)
	return ok && appErr.Code == code
}

// PublicMessage returns the message safe to surface to clients. Upstream and
// internal errors collapse to a generic message in production.
func (e *AppError) PublicMessage(production bool) string {
	if production && (e.Code == ErrCodeUpstream || e.Code == ErrCodeInternal) {
		return "Internal server error"
	}
	if e.Details != "" && e.Code == ErrCodeValidation {
		return fmt.Sprintf("%s: %s", e.Message, e.Details)
	}
	return e.Message
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	case strings.Contains(codeStr, "NOT_FOUND"):
		return "LOOKUP"
	case strings.Contains(codeStr, "FORBIDDEN"):
		return "AUTH"
	case strings.Contains(codeStr, "CONFLICT"):
		return "STATE"
	case strings.Contains(codeStr, "UPSTREAM"):
		return "EXTERNAL"
	default:
		return "OTHER"
	}
}
