package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorError(t *testing.T) {
	err := New(ErrCodeNotFound, "Integration not found")
	assert.Equal(t, "NOT_FOUND: Integration not found", err.Error())

	wrapped := Wrap(ErrCodeDatabase, "Database error", errors.New("connection refused"))
	assert.Contains(t, wrapped.Error(), "DATABASE_ERROR")
	assert.Contains(t, wrapped.Error(), "connection refused")
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(ErrCodeInternal, "something broke", cause)
	assert.ErrorIs(t, err, cause)
}

func TestAsAppError(t *testing.T) {
	appErr := CredentialsCorrupted()
	wrapped := fmt.Errorf("service: %w", appErr)

	got, ok := AsAppError(wrapped)
	assert.True(t, ok)
	assert.Equal(t, ErrCodeCredentialsCorrupted, got.Code)

	_, ok = AsAppError(errors.New("plain"))
	assert.False(t, ok)
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, ErrCodeNumberMismatch, GetCode(NumberMismatch("+1", "+2")))
	assert.Equal(t, ErrCodeInternal, GetCode(errors.New("plain")))
}

func TestWithDetails(t *testing.T) {
	err := ValidationError("bad input").WithDetails(map[string]string{"field": "e164"})
	assert.Equal(t, map[string]string{"field": "e164"}, err.Details)
}
