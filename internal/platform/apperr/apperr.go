// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package apperr defines the centralized error handling framework for the accounts API.

It provides a rich error type that bridges the gap between low-level Domain/Storage
errors and high-level HTTP responses.

Architecture:

  - AppError: A struct containing machine-readable ErrorCode and user-friendly messages.
  - Comparison: Two AppErrors match under [errors.Is] when their codes match.
  - Mapping: Explicit mapping from AppError to standard HTTP Status Codes.

Every error that leaves the service layer should be wrapped as an [AppError] to ensure
consistent API responses.
*/
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// # Error Codes

const (
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeNotFound           = "NOT_FOUND"
	CodeUserNotFound       = "USER_NOT_FOUND"
	CodeEmailTaken         = "EMAIL_TAKEN"
	CodeAlreadyVerified    = "ALREADY_VERIFIED"
	CodeConflict           = "CONFLICT"
	CodeValidation         = "VALIDATION_ERROR"
	CodeTooManyAttempts    = "TOO_MANY_ATTEMPTS"
	CodeRateLimited        = "RATE_LIMITED"
	CodeInternal           = "INTERNAL_ERROR"
	CodeUnavailable        = "SERVICE_UNAVAILABLE"
)

// AppError is the canonical error type for the accounts API.
//
// It carries an HTTP status code, a machine-readable code, a client-safe
// message, and an optional slice of field-level validation errors.
//
// # Security
//
// The Cause field is for server-side logging only and is never sent to clients
// to avoid leaking internal implementation details (e.g., SQL queries).
type AppError struct {
	// Code is a machine-readable error identifier (e.g. "NOT_FOUND", "CONFLICT").
	Code string `json:"code"`
	// Message is a human-readable description safe to return to the client.
	Message string `json:"error"`
	// HTTPStatus is the HTTP response status code.
	HTTPStatus int `json:"-"`
	// Cause is the underlying error, used for server-side logging only.
	Cause error `json:"-"`
	// Details holds per-field validation errors for VALIDATION_ERROR responses.
	Details []FieldError `json:"details,omitempty"`
}

// FieldError represents a single field-level validation failure.
type FieldError struct {
	// Field is the JSON field name that failed validation.
	Field string `json:"field"`
	// Message is the human-readable description of the failure.
	Message string `json:"message"`
}

// Error implements the error interface. It returns the client-safe message.
func (e *AppError) Error() string { return e.Message }

// Unwrap allows [errors.Is] and [errors.As] to traverse the cause chain.
func (e *AppError) Unwrap() error { return e.Cause }

// Is reports whether target is an [*AppError] carrying the same code.
func (e *AppError) Is(target error) bool {
	var other *AppError
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

// WithCause returns a copy of e that records cause for logging.
func (e *AppError) WithCause(cause error) *AppError {
	clone := *e
	clone.Cause = cause
	return &clone
}

// # Sentinels
//
// Sentinels are meant for [errors.Is] comparisons only. Call the matching
// constructor to produce a fresh error for a response.

var (
	ErrInvalidCredentials = InvalidCredentials()
	ErrUnauthorized       = Unauthorized("Unauthorized")
	ErrUserNotFound       = UserNotFound()
	ErrEmailTaken         = EmailTaken()
	ErrAlreadyVerified    = AlreadyVerified()
	ErrTooManyAttempts    = TooManyAttempts()
	ErrConflict           = Conflict("Conflict")
	ErrInternal           = Internal(nil)
)

// # Client Errors (4xx)

// NotFound creates a 404 [AppError] for a named resource.
//
// Example:
//
//	apperr.NotFound("Session") // Returns "Session not found"
func NotFound(resource string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    resource + " not found",
		HTTPStatus: http.StatusNotFound,
	}
}

// UserNotFound creates a 404 [AppError] for an unknown account email.
func UserNotFound() *AppError {
	return &AppError{
		Code:       CodeUserNotFound,
		Message:    "User not found",
		HTTPStatus: http.StatusNotFound,
	}
}

// InvalidCredentials creates a 401 [AppError] for a failed sign-in.
//
// It shares its message with the wrong-password path so that clients cannot
// tell whether an email is registered.
func InvalidCredentials() *AppError {
	return &AppError{
		Code:       CodeInvalidCredentials,
		Message:    "Invalid login credentials",
		HTTPStatus: http.StatusUnauthorized,
	}
}

// Unauthorized creates a 401 [AppError].
func Unauthorized(msg string) *AppError {
	return &AppError{
		Code:       CodeUnauthorized,
		Message:    msg,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// Forbidden creates a 403 [AppError].
func Forbidden(msg string) *AppError {
	return &AppError{
		Code:       CodeForbidden,
		Message:    msg,
		HTTPStatus: http.StatusForbidden,
	}
}

// EmailTaken creates a 409 [AppError] for a duplicate registration.
func EmailTaken() *AppError {
	return &AppError{
		Code:       CodeEmailTaken,
		Message:    "Email is already registered",
		HTTPStatus: http.StatusConflict,
	}
}

// AlreadyVerified creates a 409 [AppError] for a verified account asking for
// another verification email.
func AlreadyVerified() *AppError {
	return &AppError{
		Code:       CodeAlreadyVerified,
		Message:    "Email is already verified",
		HTTPStatus: http.StatusConflict,
	}
}

// Conflict creates a 409 [AppError] for duplicate or unique-constraint violations.
func Conflict(msg string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    msg,
		HTTPStatus: http.StatusConflict,
	}
}

// ValidationError creates a 400 [AppError] with optional per-field details.
func ValidationError(msg string, details ...FieldError) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    msg,
		HTTPStatus: http.StatusBadRequest,
		Details:    details,
	}
}

// TooManyAttempts creates a 429 [AppError] for an exhausted per-user budget.
func TooManyAttempts() *AppError {
	return &AppError{
		Code:       CodeTooManyAttempts,
		Message:    "Too many attempts. Please try again later.",
		HTTPStatus: http.StatusTooManyRequests,
	}
}

// RateLimited creates a 429 [AppError] for per-IP request throttling.
func RateLimited(retryAfterSeconds int) *AppError {
	return &AppError{
		Code:       CodeRateLimited,
		Message:    fmt.Sprintf("Too many requests. Try again in %ds.", retryAfterSeconds),
		HTTPStatus: http.StatusTooManyRequests,
	}
}

// # Server Errors (5xx)

// Internal creates a 500 [AppError] wrapping an unexpected server-side error.
// The cause is stored for logging but is never sent to the client.
func Internal(cause error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "An unexpected error occurred",
		HTTPStatus: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// ServiceUnavailable creates a 503 [AppError] for failed readiness checks.
func ServiceUnavailable(msg string) *AppError {
	return &AppError{
		Code:       CodeUnavailable,
		Message:    msg,
		HTTPStatus: http.StatusServiceUnavailable,
	}
}

// # Helpers

// IsAppError reports whether err (or any error in its chain) is an [*AppError].
func IsAppError(err error) bool {
	var ae *AppError
	return errors.As(err, &ae)
}

// As extracts the [*AppError] from err's chain. It returns nil if not found.
func As(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}
