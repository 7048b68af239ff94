package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a category of application error.
type ErrorCode string

const (
	// ErrCodeNotFound indicates a resource was not found.
	ErrCodeNotFound ErrorCode = "not_found"
	// ErrCodeConflict indicates a conflict with existing data (e.g., unique constraint violation).
	ErrCodeConflict ErrorCode = "conflict"
	// ErrCodeValidation indicates invalid input data.
	ErrCodeValidation ErrorCode = "validation"
	// ErrCodeForeignKey indicates a referential integrity violation.
	ErrCodeForeignKey ErrorCode = "foreign_key"
	// ErrCodeInternal indicates an internal server error.
	ErrCodeInternal ErrorCode = "internal"
	// ErrCodeTimeout indicates the operation exceeded its deadline.
	ErrCodeTimeout ErrorCode = "timeout"
	// ErrCodeCanceled indicates the operation was canceled.
	ErrCodeCanceled ErrorCode = "canceled"

	// ErrCodeInvalidCredentials indicates a failed local credential check.
	// The message stays generic on purpose; never reveal which part failed.
	ErrCodeInvalidCredentials ErrorCode = "invalid_credentials"
	// ErrCodeSessionNotFound indicates the presented session id is unknown.
	ErrCodeSessionNotFound ErrorCode = "session_not_found"
	// ErrCodeSessionExpired indicates the session passed its absolute or idle
	// window and has been removed.
	ErrCodeSessionExpired ErrorCode = "session_expired"
	// ErrCodeTooManyAttempts indicates the regulation threshold was hit and
	// further attempts are rejected until the ban window elapses.
	ErrCodeTooManyAttempts ErrorCode = "too_many_attempts"
	// ErrCodeFederation covers failures in the federated login exchange:
	// state mismatch or replay, token verification, provider unreachable.
	ErrCodeFederation ErrorCode = "federation"
	// ErrCodePolicyDenied indicates an authenticated identity that the
	// access rules deny for the target domain.
	ErrCodePolicyDenied ErrorCode = "policy_denied"
	// ErrCodeSecondFactorRequired indicates the target requires a second
	// factor the session has not completed yet.
	ErrCodeSecondFactorRequired ErrorCode = "second_factor_required"
	// ErrCodeOpenRedirect indicates a return URL outside the protected
	// domain allow-list.
	ErrCodeOpenRedirect ErrorCode = "open_redirect"
)

// AppError represents a structured application error with a code, message, and optional cause.
// It supports error wrapping and unwrapping for use with errors.Is and errors.As.
type AppError struct {
	// Code categorizes the error type
	Code ErrorCode
	// Message is a human-readable error message
	Message string
	// Field optionally names the input field the error refers to
	Field string
	// Cause is the underlying error that caused this error (optional)
	Cause error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates an AppError with the given code and message.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Newf creates an AppError with the given code and formatted message.
func Newf(code ErrorCode, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// NotFound creates a new NotFound error.
func NotFound(message string) *AppError {
	return New(ErrCodeNotFound, message)
}

// Conflict creates a new Conflict error.
func Conflict(message string) *AppError {
	return New(ErrCodeConflict, message)
}

// Validation creates a new Validation error.
func Validation(message string) *AppError {
	return New(ErrCodeValidation, message)
}

// ValidationField creates a Validation error tied to a specific field.
func ValidationField(field, message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message, Field: field}
}

// Internal creates a new Internal error.
func Internal(message string) *AppError {
	return New(ErrCodeInternal, message)
}

// InvalidCredentials creates the generic credential failure error.
func InvalidCredentials() *AppError {
	return New(ErrCodeInvalidCredentials, "invalid username or password")
}

// SessionNotFound creates a session-not-found error.
func SessionNotFound() *AppError {
	return New(ErrCodeSessionNotFound, "session not found")
}

// SessionExpired creates a session-expired error.
func SessionExpired() *AppError {
	return New(ErrCodeSessionExpired, "session expired")
}

// TooManyAttempts creates a regulation error.
func TooManyAttempts() *AppError {
	return New(ErrCodeTooManyAttempts, "too many authentication attempts")
}

// Federation wraps a federated login failure. The wrapped detail is for
// logs only and is never rendered to the user.
func Federation(message string, cause error) *AppError {
	return &AppError{Code: ErrCodeFederation, Message: message, Cause: cause}
}

// PolicyDenied creates a policy denial for the given target domain.
func PolicyDenied(domain string) *AppError {
	return Newf(ErrCodePolicyDenied, "access to %s denied by policy", domain)
}

// SecondFactorRequired indicates a session must complete its second factor.
func SecondFactorRequired() *AppError {
	return New(ErrCodeSecondFactorRequired, "second factor required")
}

// OpenRedirect creates an open-redirect rejection for the given target.
func OpenRedirect(target string) *AppError {
	return Newf(ErrCodeOpenRedirect, "redirect target %q is not a protected domain", target)
}

// Wrap wraps an existing error with an AppError, preserving the cause.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an existing error with an AppError and formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...any) *AppError {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// isCode checks if an error has a specific error code.
func isCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsNotFound checks if an error is a NotFound error.
func IsNotFound(err error) bool {
	return isCode(err, ErrCodeNotFound)
}

// IsConflict checks if an error is a Conflict error.
func IsConflict(err error) bool {
	return isCode(err, ErrCodeConflict)
}

// IsValidation checks if an error is a Validation error.
func IsValidation(err error) bool {
	return isCode(err, ErrCodeValidation)
}

// IsForeignKey checks if an error is a ForeignKey error.
func IsForeignKey(err error) bool {
	return isCode(err, ErrCodeForeignKey)
}

// IsInternal checks if an error is an Internal error.
func IsInternal(err error) bool {
	return isCode(err, ErrCodeInternal)
}

// IsTimeout checks if an error is a Timeout error.
func IsTimeout(err error) bool {
	return isCode(err, ErrCodeTimeout)
}

// IsInvalidCredentials checks if an error is a credential failure.
func IsInvalidCredentials(err error) bool {
	return isCode(err, ErrCodeInvalidCredentials)
}

// IsSessionNotFound checks if an error is a session-not-found error.
func IsSessionNotFound(err error) bool {
	return isCode(err, ErrCodeSessionNotFound)
}

// IsSessionExpired checks if an error is a session-expired error.
func IsSessionExpired(err error) bool {
	return isCode(err, ErrCodeSessionExpired)
}

// IsSessionInvalid reports whether err is either kind of session failure.
// Callers that only need "re-authenticate" semantics use this.
func IsSessionInvalid(err error) bool {
	return IsSessionNotFound(err) || IsSessionExpired(err)
}

// IsTooManyAttempts checks if an error is a regulation error.
func IsTooManyAttempts(err error) bool {
	return isCode(err, ErrCodeTooManyAttempts)
}

// IsFederation checks if an error is a federated login failure.
func IsFederation(err error) bool {
	return isCode(err, ErrCodeFederation)
}

// IsPolicyDenied checks if an error is a policy denial.
func IsPolicyDenied(err error) bool {
	return isCode(err, ErrCodePolicyDenied)
}

// IsSecondFactorRequired checks if an error is a second-factor requirement.
func IsSecondFactorRequired(err error) bool {
	return isCode(err, ErrCodeSecondFactorRequired)
}

// IsOpenRedirect checks if an error is an open-redirect rejection.
func IsOpenRedirect(err error) bool {
	return isCode(err, ErrCodeOpenRedirect)
}

// GetCode returns the ErrorCode from an error, or empty string if not an AppError.
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}
