// internal/pkg/apperrors/errors.go
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes returned to API clients
const (
	CodeNotFound            = "NOT_FOUND"
	CodeInactiveProduct     = "INACTIVE_PRODUCT"
	CodeInsufficientStock   = "INSUFFICIENT_STOCK"
	CodeInsufficientPayment = "INSUFFICIENT_PAYMENT"
	CodeValidation          = "VALIDATION_ERROR"
	CodeInvalidState        = "INVALID_STATE"
	CodeForbidden           = "FORBIDDEN"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeTransient           = "TRANSIENT_PERSISTENCE_FAILURE"
	CodeInternal            = "INTERNAL_ERROR"
)

// AppError is a typed failure carrying its HTTP status
type AppError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
	HTTPStatus int            `json:"-"`
	Err        error          `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a single detail to the error
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// Wrap attaches the underlying cause
func (e *AppError) Wrap(err error) *AppError {
	e.Err = err
	return e
}

// New creates a new AppError
func New(code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// NotFound creates a not found error
func NotFound(resource string, id uint) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound).
		WithDetail("id", id)
}

// InactiveProduct is returned when a product cannot be sold
func InactiveProduct(name string, status string) *AppError {
	return New(CodeInactiveProduct, fmt.Sprintf("product '%s' is not available for sale", name), http.StatusUnprocessableEntity).
		WithDetail("product", name).
		WithDetail("status", status)
}

// InsufficientStock reports a strict-mode shortfall
func InsufficientStock(name string, available, requested int) *AppError {
	return New(CodeInsufficientStock,
		fmt.Sprintf("insufficient stock for '%s': available %d, requested %d", name, available, requested),
		http.StatusConflict).
		WithDetail("product", name).
		WithDetail("available", available).
		WithDetail("requested", requested).
		WithDetail("hint", "an owner or an attendant with override permission may resubmit with ignore_stock=true")
}

// InsufficientPayment is returned when the amount paid does not cover the total
func InsufficientPayment(total, paid string) *AppError {
	return New(CodeInsufficientPayment,
		fmt.Sprintf("amount paid %s is less than total %s", paid, total),
		http.StatusUnprocessableEntity).
		WithDetail("total_amount", total).
		WithDetail("amount_paid", paid)
}

// Validation creates a validation error
func Validation(message string) *AppError {
	return New(CodeValidation, message, http.StatusBadRequest)
}

// ValidationWithFields creates a validation error with per-field messages
func ValidationWithFields(message string, fields map[string]string) *AppError {
	e := Validation(message)
	for field, msg := range fields {
		e.WithDetail(field, msg)
	}
	return e
}

// InvalidState is returned for a forbidden state-machine transition
func InvalidState(message string) *AppError {
	return New(CodeInvalidState, message, http.StatusConflict)
}

// Forbidden creates a forbidden error
func Forbidden(message string) *AppError {
	if message == "" {
		message = "access denied"
	}
	return New(CodeForbidden, message, http.StatusForbidden)
}

// Unauthorized creates an unauthorized error
func Unauthorized(message string) *AppError {
	if message == "" {
		message = "authentication required"
	}
	return New(CodeUnauthorized, message, http.StatusUnauthorized)
}

// Transient marks a failure the client may retry as a whole
func Transient(operation string, err error) *AppError {
	return New(CodeTransient, fmt.Sprintf("%s could not be completed, please retry", operation), http.StatusServiceUnavailable).
		WithDetail("retryable", true).
		Wrap(err)
}

// Internal creates an internal error
func Internal(message string, err error) *AppError {
	if message == "" {
		message = "an internal error occurred"
	}
	return New(CodeInternal, message, http.StatusInternalServerError).Wrap(err)
}

// As extracts an AppError from an error chain
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err carries the given code
func HasCode(err error, code string) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == code
}
