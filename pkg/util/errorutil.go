package util

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes shared by the session core and its HTTP surfaces.
const (
	CodeAuthenticationFailed = "AUTHENTICATION_FAILED"
	CodeDecodeFailed         = "DECODE_FAILED"
	CodeInvalidTransition    = "INVALID_TRANSITION"
	CodeSuperseded           = "SUPERSEDED"
	CodeStorageFailed        = "STORAGE_FAILED"
	CodeValidationFailed     = "VALIDATION_FAILED"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeForbidden            = "FORBIDDEN"
	CodeNotFound             = "NOT_FOUND"
	CodeUnavailable          = "DEPENDENCY_UNAVAILABLE"
	CodeInternal             = "INTERNAL_ERROR"
)

// User-displayable messages for authentication failures.
const (
	MessageInvalidCredentials = "Login ou senha inválidos."
	MessageServerUnreachable  = "Não foi possível conectar ao servidor."
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

// NewAuthenticationError reports rejected credentials. The cause is kept for logs only.
func NewAuthenticationError(cause error) error {
	return &DomainError{
		Code:       CodeAuthenticationFailed,
		Message:    MessageInvalidCredentials,
		HTTPStatus: http.StatusUnauthorized,
		Err:        cause,
	}
}

// NewUnreachableError reports a login attempt that never got a usable answer.
func NewUnreachableError(cause error) error {
	return &DomainError{
		Code:       CodeAuthenticationFailed,
		Message:    MessageServerUnreachable,
		HTTPStatus: http.StatusBadGateway,
		Details:    map[string]any{"reason": "unreachable"},
		Err:        cause,
	}
}

func NewDecodeError(reason string, cause error) error {
	return &DomainError{
		Code:       CodeDecodeFailed,
		Message:    "invalid session token",
		HTTPStatus: http.StatusUnauthorized,
		Details:    map[string]any{"reason": reason},
		Err:        cause,
	}
}

func NewInvalidTransition(from, operation string) error {
	return NewDomainError(CodeInvalidTransition,
		fmt.Sprintf("%s is not allowed while %s", operation, from),
		http.StatusConflict,
		map[string]any{"state": from, "operation": operation})
}

// NewSuperseded marks the outcome of a sign-in that a later attempt replaced.
func NewSuperseded(requestID string) error {
	return NewDomainError(CodeSuperseded, "sign-in superseded by a newer attempt",
		http.StatusConflict, map[string]any{"request_id": requestID})
}

func NewStorageError(op string, cause error) error {
	return &DomainError{
		Code:       CodeStorageFailed,
		Message:    "token storage " + op + " failed",
		HTTPStatus: http.StatusInternalServerError,
		Err:        cause,
	}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidationFailed, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

// NewUnavailableError reports a backend dependency that failed to answer.
func NewUnavailableError(dependency string, cause error) error {
	return &DomainError{
		Code:       CodeUnavailable,
		Message:    dependency + " unavailable",
		HTTPStatus: http.StatusBadGateway,
		Err:        cause,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// HasCode reports whether err carries a DomainError with the given code.
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		return false
	}
	return domainErr.Code == code
}
