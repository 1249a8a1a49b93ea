package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Error classes the engine distinguishes. Validation errors are caught
// before any request is issued and never touch the cache; everything else
// that interrupts a mutation forces a rollback.
var (
	ErrValidation = errors.New("validation error")
	ErrLegality   = errors.New("illegal transition")
	ErrConflict   = errors.New("conflict")
	ErrTransient  = errors.New("transient error")
	ErrNotFound   = errors.New("resource not found")
)

// AppError represents an engine error with context
type AppError struct {
	Err        error             `json:"-"`
	Message    string            `json:"message"`
	Code       string            `json:"code"`
	HTTPStatus int               `json:"-"`
	Details    map[string]string `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Validation creates a client-side validation error with field details
func Validation(message string, details map[string]string) *AppError {
	return &AppError{
		Err:        ErrValidation,
		Message:    message,
		Code:       "VALIDATION_ERROR",
		HTTPStatus: http.StatusBadRequest,
		Details:    details,
	}
}

// Legality creates an error for a transition the state machine forbids
func Legality(message string) *AppError {
	return &AppError{
		Err:        ErrLegality,
		Message:    message,
		Code:       "ILLEGAL_TRANSITION",
		HTTPStatus: http.StatusBadRequest,
	}
}

// Conflict creates an error for a concurrent-modification rejection
func Conflict(message string) *AppError {
	return &AppError{
		Err:        ErrConflict,
		Message:    message,
		Code:       "CONFLICT",
		HTTPStatus: http.StatusConflict,
	}
}

// Transient creates an error for a request that could not complete
func Transient(err error) *AppError {
	return &AppError{
		Err:     fmt.Errorf("%w: %w", ErrTransient, err),
		Message: "request could not complete",
		Code:    "TRANSIENT",
	}
}

// NotFound creates a not found error
func NotFound(resource string, id string) *AppError {
	return &AppError{
		Err:        ErrNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		Code:       "NOT_FOUND",
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]string{"resource": resource, "id": id},
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return &AppError{
			Err:        appErr,
			Message:    fmt.Sprintf("%s: %s", message, appErr.Message),
			Code:       appErr.Code,
			HTTPStatus: appErr.HTTPStatus,
			Details:    appErr.Details,
		}
	}
	return &AppError{
		Err:     fmt.Errorf("%w: %w", ErrTransient, err),
		Message: message,
		Code:    "TRANSIENT",
	}
}

// FromStatus maps a backend rejection to the engine taxonomy. detail is the
// server's {"detail": ...} payload, surfaced verbatim to the caller.
func FromStatus(status int, detail string) *AppError {
	if detail == "" {
		detail = http.StatusText(status)
	}
	e := &AppError{Message: detail, HTTPStatus: status}
	switch {
	case status == http.StatusNotFound:
		e.Err = ErrNotFound
		e.Code = "NOT_FOUND"
	case status == http.StatusConflict:
		e.Err = ErrConflict
		e.Code = "CONFLICT"
	case status == http.StatusForbidden:
		e.Err = ErrLegality
		e.Code = "ILLEGAL_TRANSITION"
	case status >= 400 && status < 500:
		// The backend reports precondition failures (bed already occupied,
		// patient already discharged) as 400s. They are not retriable.
		e.Err = ErrConflict
		e.Code = "CONFLICT"
	default:
		e.Err = ErrTransient
		e.Code = "TRANSIENT"
	}
	return e
}

// Rollbackable reports whether an error class requires restoring the cache
// snapshot. Validation errors abort before the optimistic apply, so there is
// nothing to roll back.
func Rollbackable(err error) bool {
	return err != nil && !errors.Is(err, ErrValidation)
}

// Retriable reports whether the next scheduled poll may recover from the
// error. Only transient failures qualify; nothing is retried immediately.
func Retriable(err error) bool {
	return errors.Is(err, ErrTransient) || errors.Is(err, context.DeadlineExceeded)
}
