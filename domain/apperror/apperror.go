package apperror

import (
	"errors"
	"fmt"
)

// Code identifies an error category across service boundaries.
type Code string

const (
	// Authentication (401)
	CodeInvalidCredentials Code = "AUTH_1001"
	CodeInvalidToken       Code = "AUTH_1002"
	CodeTokenExpired       Code = "AUTH_1003"
	CodeTokenRevoked       Code = "AUTH_1004"
	CodeTokenTypeInvalid   Code = "AUTH_1005"

	// Authorization (403)
	CodeNotAuthorized Code = "AUTHZ_2001"

	// Rate limiting (429)
	CodeRateLimitExceeded Code = "RATE_3001"

	// Resources (404 / 409)
	CodeResourceNotFound      Code = "RES_4001"
	CodeResourceAlreadyExists Code = "RES_4002"

	// Infrastructure (500)
	CodeInternalService Code = "SERVER_5001"
)

// AppError is the only error type allowed to cross component boundaries.
// Infrastructure faults are wrapped into one of the catalog codes before
// leaving the component that observed them.
type AppError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	// RetryAfterSeconds is set only on rate-limit errors.
	RetryAfterSeconds int   `json:"retry_after,omitempty"`
	Cause             error `json:"-"`
}

func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches two AppErrors by code, so errors.Is works against the
// zero-detail constructors used as sentinels in tests.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

func New(code Code, message, details string, cause error) *AppError {
	return &AppError{Code: code, Message: message, Details: details, Cause: cause}
}

// CodeOf extracts the catalog code from any error, or empty for foreign errors.
func CodeOf(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// Authentication errors

func InvalidCredentials(details string) *AppError {
	return New(CodeInvalidCredentials, "Incorrect email or password", details, nil)
}

func InvalidToken(details string) *AppError {
	return New(CodeInvalidToken, "Token is invalid or malformed", details, nil)
}

func TokenExpired() *AppError {
	return New(CodeTokenExpired, "Token has expired", "", nil)
}

func TokenRevoked() *AppError {
	return New(CodeTokenRevoked, "Token has been revoked", "", nil)
}

func TokenTypeInvalid(expected, received string) *AppError {
	return New(CodeTokenTypeInvalid, "Wrong token type",
		fmt.Sprintf("expected %q, received %q", expected, received), nil)
}

// Authorization errors

func NotAuthorized(details string) *AppError {
	return New(CodeNotAuthorized, "You are not authorized to perform this action", details, nil)
}

// Rate limiting

func RateLimitExceeded(details string, retryAfterSeconds int) *AppError {
	e := New(CodeRateLimitExceeded, "Rate limit exceeded", details, nil)
	e.RetryAfterSeconds = retryAfterSeconds
	return e
}

// Resources

func ResourceNotFound(resourceType, id string) *AppError {
	return New(CodeResourceNotFound, fmt.Sprintf("%s not found", resourceType),
		fmt.Sprintf("id: %s", id), nil)
}

func ResourceAlreadyExists(resourceType, details string) *AppError {
	return New(CodeResourceAlreadyExists, fmt.Sprintf("%s already exists", resourceType), details, nil)
}

// Infrastructure

func InternalService(message string, cause error) *AppError {
	if message == "" {
		message = "Internal service error"
	}
	return New(CodeInternalService, message, "", cause)
}
