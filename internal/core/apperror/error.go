// Package apperror provides structured error handling following RFC 7807 Problem Details.
// All query-construction errors must use AppError for consistent API responses.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error codes
const (
	// Infrastructure errors (5xx)
	CodeInternal       = "INTERNAL_ERROR"
	CodeDatabase       = "DATABASE_ERROR"
	CodeMissingContext = "MISSING_CONTEXT"

	// Request construction errors (400)
	CodeInvalidOperator = "INVALID_OPERATOR"
	CodeInvalidField    = "INVALID_FIELD"
	CodeInvalidInput    = "INVALID_INPUT"

	// Value coercion errors (422)
	CodeValidation = "VALIDATION_ERROR"

	// Not found (404)
	CodeNotFound = "NOT_FOUND"
)

// AppError is the standard error type for the platform.
// It implements error interface and provides structured details for API responses.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (field, operator, per-field errors)
	Details map[string]any `json:"details,omitempty"`

	// HTTPStatus is the suggested HTTP status code
	HTTPStatus int `json:"-"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// FieldError is a single path-qualified validation failure.
type FieldError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// Path renders Loc joined with dots.
func (f FieldError) Path() string {
	return strings.Join(f.Loc, ".")
}

// --- Factory functions ---

// NewInvalidOperator is returned when a filter field carries an unknown operator suffix.
func NewInvalidOperator(field, operator string) *AppError {
	return &AppError{
		Code:       CodeInvalidOperator,
		Message:    fmt.Sprintf("invalid filter operator %q on field %q", operator, field),
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"field": field, "operator": operator},
	}
}

// NewInvalidField is returned when a filter field resolves to no column, relation or search field.
func NewInvalidField(entity, field, message string) *AppError {
	if message == "" {
		message = fmt.Sprintf("invalid filter field %q for %s", field, entity)
	}
	return &AppError{
		Code:       CodeInvalidField,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"entity": entity, "field": field},
	}
}

// NewValidation creates a validation error carrying every failing field.
func NewValidation(errs []FieldError) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    "request validation failed",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"errors": errs},
	}
}

// NewMissingContext is returned when an entity schema needed to filter or order was not supplied.
func NewMissingContext(what string) *AppError {
	return &AppError{
		Code:       CodeMissingContext,
		Message:    fmt.Sprintf("%s is required", what),
		HTTPStatus: http.StatusInternalServerError,
	}
}

// NewInvalidInput creates a generic bad request error (400)
func NewInvalidInput(message string) *AppError {
	return &AppError{
		Code:       CodeInvalidInput,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewNotFound creates a not found error (404)
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewInternal creates an internal server error (hides details from client)
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewDatabase wraps a backend failure.
func NewDatabase(err error) *AppError {
	return &AppError{
		Code:       CodeDatabase,
		Message:    "Database error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// --- Helper functions ---

// IsAppError checks if error is AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError extracts AppError from error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetHTTPStatus returns appropriate HTTP status for any error
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// Code returns the AppError code of err, or CodeInternal.
func Code(err error) string {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return CodeInternal
}

func hasCode(err error, code string) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}

// IsInvalidOperator checks if error is CodeInvalidOperator
func IsInvalidOperator(err error) bool { return hasCode(err, CodeInvalidOperator) }

// IsInvalidField checks if error is CodeInvalidField
func IsInvalidField(err error) bool { return hasCode(err, CodeInvalidField) }

// IsValidation checks if error is CodeValidation
func IsValidation(err error) bool { return hasCode(err, CodeValidation) }

// IsMissingContext checks if error is CodeMissingContext
func IsMissingContext(err error) bool { return hasCode(err, CodeMissingContext) }

// IsNotFound checks if error is CodeNotFound
func IsNotFound(err error) bool { return hasCode(err, CodeNotFound) }

// FieldErrors returns the per-field errors of a validation error.
func FieldErrors(err error) []FieldError {
	appErr, ok := AsAppError(err)
	if !ok || appErr.Code != CodeValidation {
		return nil
	}
	errs, _ := appErr.Details["errors"].([]FieldError)
	return errs
}
