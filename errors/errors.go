package errors

import (
	"fmt"
	"time"
)

// Application error types organized by category for better error handling

type ErrorType string

// Domain/Business Logic Errors - errors related to business rules and validation
const (
	ValidationError    ErrorType = "VALIDATION_ERROR"
	NotFoundError      ErrorType = "NOT_FOUND_ERROR"
	AlreadyExistsError ErrorType = "ALREADY_EXISTS_ERROR"
)

// Protection Errors - errors raised by the resilience runtime
const (
	UnauthorizedError  ErrorType = "UNAUTHORIZED_ERROR"
	RateLimitError     ErrorType = "RATE_LIMIT_ERROR"
	AccountLockedError ErrorType = "ACCOUNT_LOCKED_ERROR"
	CircuitOpenError   ErrorType = "CIRCUIT_OPEN_ERROR"
)

// Infrastructure Errors - errors related to external systems and services
const (
	DatabaseError        ErrorType = "DATABASE_ERROR"
	UpstreamTimeoutError ErrorType = "UPSTREAM_TIMEOUT_ERROR"
	UpstreamFailureError ErrorType = "UPSTREAM_FAILURE_ERROR"
)

// System/Configuration Errors - errors related to system setup and configuration
const (
	ConfigurationError ErrorType = "CONFIGURATION_ERROR"
	InternalError      ErrorType = "INTERNAL_ERROR"
)

type AppError struct {
	Type    ErrorType
	Message string
	Cause   error

	// RetryAfter carries the wait hint for rate-limit and lockout errors.
	RetryAfter time.Duration
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(errorType ErrorType, message string) *AppError {
	return &AppError{
		Type:    errorType,
		Message: message,
	}
}

func Wrap(errorType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errorType,
		Message: message,
		Cause:   cause,
	}
}

// Domain/Business Logic Error Constructors
func NewValidationError(message string) *AppError {
	return New(ValidationError, message)
}

func NewNotFoundError(message string) *AppError {
	return New(NotFoundError, message)
}

func NewAlreadyExistsError(message string) *AppError {
	return New(AlreadyExistsError, message)
}

// Protection Error Constructors

// NewUnauthorizedError uses one fixed message for every credential failure
// so response shape never reveals whether the account exists.
func NewUnauthorizedError() *AppError {
	return New(UnauthorizedError, "invalid email or password")
}

func NewRateLimitError(retryAfter time.Duration) *AppError {
	return &AppError{
		Type:       RateLimitError,
		Message:    "too many requests",
		RetryAfter: retryAfter,
	}
}

// NewAccountLockedError formats the remaining lockout time for the caller.
// The message never includes attempt counts.
func NewAccountLockedError(remaining time.Duration) *AppError {
	return &AppError{
		Type:       AccountLockedError,
		Message:    fmt.Sprintf("account is temporarily locked, try again in %s", formatDuration(remaining)),
		RetryAfter: remaining,
	}
}

func NewCircuitOpenError(message string) *AppError {
	return New(CircuitOpenError, message)
}

// Infrastructure Error Constructors
func NewDatabaseError(message string, cause error) *AppError {
	return Wrap(DatabaseError, message, cause)
}

func NewUpstreamTimeoutError(message string, cause error) *AppError {
	return Wrap(UpstreamTimeoutError, message, cause)
}

func NewUpstreamFailureError(message string, cause error) *AppError {
	return Wrap(UpstreamFailureError, message, cause)
}

// System/Configuration Error Constructors
func NewConfigurationError(message string, cause error) *AppError {
	return Wrap(ConfigurationError, message, cause)
}

func NewInternalError(message string, cause error) *AppError {
	return Wrap(InternalError, message, cause)
}

// Helper functions for error type checking
func IsValidationError(err error) bool {
	return hasType(err, ValidationError)
}

func IsNotFoundError(err error) bool {
	return hasType(err, NotFoundError)
}

func IsRateLimitError(err error) bool {
	return hasType(err, RateLimitError)
}

func IsAccountLockedError(err error) bool {
	return hasType(err, AccountLockedError)
}

func IsCircuitOpenError(err error) bool {
	return hasType(err, CircuitOpenError)
}

func hasType(err error, errorType ErrorType) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Type == errorType
	}
	return false
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%d seconds", int(d.Round(time.Second).Seconds()))
	}
	minutes := int(d.Round(time.Minute).Minutes())
	if minutes == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", minutes)
}
