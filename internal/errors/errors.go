// Package errors defines the storefront's error taxonomy.
//
// Every error that crosses a component boundary is a *ServiceError carrying a
// stable Code and the HTTP status the API layer reports for it.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Code identifies a class of failure.
type Code string

const (
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeForbidden          Code = "FORBIDDEN"
	CodeInvalidToken       Code = "INVALID_TOKEN"
	CodeInvalidInput       Code = "INVALID_INPUT"
	CodeNotFound           Code = "NOT_FOUND"
	CodeConflict           Code = "CONFLICT"
	CodeRateLimitExceeded  Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal           Code = "INTERNAL_ERROR"
	CodeServiceUnavailable Code = "SERVICE_UNAVAILABLE"

	// Configurator submit taxonomy.
	CodeUnauthenticated     Code = "UNAUTHENTICATED"
	CodeIncompleteSelection Code = "INCOMPLETE_SELECTION"
	CodeSubmissionFailed    Code = "SUBMISSION_FAILED"
	CodeSubmissionInFlight  Code = "SUBMISSION_IN_FLIGHT"
	CodeAlreadySubmitted    Code = "ALREADY_SUBMITTED"
	CodeSessionClosed       Code = "SESSION_CLOSED"
	CodeNotificationFailed  Code = "NOTIFICATION_FAILED"
)

// ServiceError is a coded error with an HTTP mapping.
type ServiceError struct {
	Code       Code           `json:"code"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Err        error          `json:"-"`
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a ServiceError with the same code.
func (e *ServiceError) Is(target error) bool {
	t, ok := target.(*ServiceError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithDetails returns a copy of e with key set in its details.
func (e *ServiceError) WithDetails(key string, value any) *ServiceError {
	cp := *e
	cp.Details = make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		cp.Details[k] = v
	}
	cp.Details[key] = value
	return &cp
}

// New creates a ServiceError.
func New(code Code, message string, status int) *ServiceError {
	return &ServiceError{Code: code, Message: message, HTTPStatus: status}
}

// Wrap creates a ServiceError around err.
func Wrap(code Code, message string, status int, err error) *ServiceError {
	return &ServiceError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// GetServiceError returns the first ServiceError in err's chain, or nil.
func GetServiceError(err error) *ServiceError {
	if err == nil {
		return nil
	}
	var se *ServiceError
	if stderrors.As(err, &se) {
		return se
	}
	return nil
}

// IsCode reports whether err's chain contains a ServiceError with code.
func IsCode(err error, code Code) bool {
	se := GetServiceError(err)
	return se != nil && se.Code == code
}

// Is and As re-export the standard library helpers so callers need one import.
func Is(err, target error) bool { return stderrors.Is(err, target) }

func As(err error, target any) bool { return stderrors.As(err, target) }

// =============================================================================
// Constructors
// =============================================================================

func Unauthorized(message string) *ServiceError {
	if message == "" {
		message = "Authentication required"
	}
	return New(CodeUnauthorized, message, http.StatusUnauthorized)
}

func Forbidden(message string) *ServiceError {
	if message == "" {
		message = "Access denied"
	}
	return New(CodeForbidden, message, http.StatusForbidden)
}

func InvalidToken(err error) *ServiceError {
	return Wrap(CodeInvalidToken, "Invalid or expired token", http.StatusUnauthorized, err)
}

func InvalidInput(message string) *ServiceError {
	return New(CodeInvalidInput, message, http.StatusBadRequest)
}

func NotFound(resource, id string) *ServiceError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound).
		WithDetails("id", id)
}

func Conflict(message string) *ServiceError {
	return New(CodeConflict, message, http.StatusConflict)
}

func RateLimitExceeded(limit int, window string) *ServiceError {
	return New(CodeRateLimitExceeded, "Rate limit exceeded", http.StatusTooManyRequests).
		WithDetails("limit", limit).
		WithDetails("window", window)
}

func Internal(message string, err error) *ServiceError {
	return Wrap(CodeInternal, message, http.StatusInternalServerError, err)
}

func Unavailable(message string, err error) *ServiceError {
	return Wrap(CodeServiceUnavailable, message, http.StatusServiceUnavailable, err)
}

// Unauthenticated is returned by submit when no buyer identity is resolved.
func Unauthenticated() *ServiceError {
	return New(CodeUnauthenticated, "Sign in to place an order", http.StatusUnauthorized)
}

// IncompleteSelection names the first unset axis and lists every missing one.
func IncompleteSelection(axis string, missing []string) *ServiceError {
	return New(CodeIncompleteSelection, fmt.Sprintf("%s is not selected", axis), http.StatusUnprocessableEntity).
		WithDetails("axis", axis).
		WithDetails("missing", missing)
}

// SubmissionFailed carries the gateway's error detail verbatim.
func SubmissionFailed(err error) *ServiceError {
	se := Wrap(CodeSubmissionFailed, "Order submission failed", http.StatusBadGateway, err)
	if err != nil {
		se = se.WithDetails("gateway_error", err.Error())
	}
	if ge := GetServiceError(err); ge != nil {
		se = se.WithDetails("gateway_code", string(ge.Code))
	}
	return se
}

func SubmissionInFlight() *ServiceError {
	return New(CodeSubmissionInFlight, "An order submission is already in progress", http.StatusConflict)
}

func AlreadySubmitted() *ServiceError {
	return New(CodeAlreadySubmitted, "This configuration has already been ordered", http.StatusConflict)
}

func SessionClosed() *ServiceError {
	return New(CodeSessionClosed, "Configurator session has ended", http.StatusGone)
}

func NotificationFailed(err error) *ServiceError {
	return Wrap(CodeNotificationFailed, "Notification delivery failed", http.StatusInternalServerError, err)
}
