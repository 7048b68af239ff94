package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorError(t *testing.T) {
	err := New(ErrCodeValidation, "bad input")
	assert.Equal(t, "bad input", err.Error())

	cause := stderrors.New("boom")
	wrapped := Wrap(cause, ErrCodeInternal, "query failed")
	assert.Equal(t, "query failed: boom", wrapped.Error())
}

func TestUnwrapPreservesCause(t *testing.T) {
	cause := stderrors.New("network down")
	err := Federation("provider exchange failed", cause)

	require.True(t, stderrors.Is(err, cause))

	var appErr *AppError
	require.True(t, stderrors.As(err, &appErr))
	assert.Equal(t, ErrCodeFederation, appErr.Code)
}

func TestCodePredicates(t *testing.T) {
	assert.True(t, IsInvalidCredentials(InvalidCredentials()))
	assert.True(t, IsSessionNotFound(SessionNotFound()))
	assert.True(t, IsSessionExpired(SessionExpired()))
	assert.True(t, IsTooManyAttempts(TooManyAttempts()))
	assert.True(t, IsPolicyDenied(PolicyDenied("intranet.example.com")))
	assert.True(t, IsSecondFactorRequired(SecondFactorRequired()))
	assert.True(t, IsOpenRedirect(OpenRedirect("https://evil.test/")))

	assert.False(t, IsInvalidCredentials(SessionExpired()))
	assert.False(t, IsSessionExpired(nil))
}

func TestIsSessionInvalid(t *testing.T) {
	assert.True(t, IsSessionInvalid(SessionNotFound()))
	assert.True(t, IsSessionInvalid(SessionExpired()))
	assert.False(t, IsSessionInvalid(InvalidCredentials()))
}

func TestPredicatesSeeThroughWrapping(t *testing.T) {
	inner := SessionExpired()
	outer := fmt.Errorf("validating cookie: %w", inner)

	assert.True(t, IsSessionExpired(outer))
	assert.Equal(t, ErrCodeSessionExpired, GetCode(outer))
}

func TestGetCodeNonAppError(t *testing.T) {
	assert.Equal(t, ErrorCode(""), GetCode(stderrors.New("plain")))
	assert.Equal(t, ErrorCode(""), GetCode(nil))
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrCodeInternal, "ignored"))
}
