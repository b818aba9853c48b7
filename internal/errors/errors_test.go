package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	err := New(ErrTypeValidation, "no columns chosen")

	assert.Equal(t, ErrTypeValidation, err.Type)
	assert.Equal(t, "no columns chosen", err.Message)
	assert.NoError(t, err.Cause)
}

func TestNewf(t *testing.T) {
	err := Newf(ErrTypeStorage, "failed to open %s", "history.db")

	assert.Equal(t, ErrTypeStorage, err.Type)
	assert.Equal(t, "failed to open history.db", err.Message)
}

func TestWrap(t *testing.T) {
	originalErr := errors.New("connection refused")
	wrappedErr := Wrap(originalErr, ErrTypeNetwork, "catalog fetch failed")

	assert.Equal(t, ErrTypeNetwork, wrappedErr.Type)
	assert.Equal(t, "catalog fetch failed", wrappedErr.Message)
	assert.Equal(t, originalErr, wrappedErr.Cause)
}

func TestWrapf(t *testing.T) {
	originalErr := errors.New("status 502")
	wrappedErr := Wrapf(originalErr, ErrTypeExecution, "strategy %s failed", "ask/fc/args")

	assert.Equal(t, ErrTypeExecution, wrappedErr.Type)
	assert.Equal(t, "strategy ask/fc/args failed", wrappedErr.Message)
	assert.Equal(t, originalErr, wrappedErr.Cause)
}

func TestErrorString(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "error without cause",
			err:      &Error{Type: ErrTypeValidation, Message: "invalid limit"},
			expected: "validation: invalid limit",
		},
		{
			name: "error with cause",
			err: &Error{
				Type:    ErrTypeCatalog,
				Message: "catalog unavailable",
				Cause:   errors.New("timeout"),
			},
			expected: "catalog: catalog unavailable (caused by: timeout)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestUnwrap(t *testing.T) {
	originalErr := errors.New("original error")
	wrappedErr := Wrap(originalErr, ErrTypeNetwork, "wrapped error")

	assert.Equal(t, originalErr, wrappedErr.Unwrap())
	assert.ErrorIs(t, fmt.Errorf("outer: %w", wrappedErr), originalErr)
}

func TestWithSuggestion(t *testing.T) {
	err := New(ErrTypeResolution, "ambiguous table")
	err = err.WithSuggestion("usar uso_solo_2020")
	err = err.WithSuggestion("mostrar detalhes de uso_solo_2020")

	assert.Len(t, err.Suggestions, 2)
	assert.Contains(t, err.Suggestions, "usar uso_solo_2020")
}

func TestIsType(t *testing.T) {
	structErr := New(ErrTypeValidation, "validation error")
	regularErr := errors.New("regular error")

	assert.True(t, IsType(structErr, ErrTypeValidation))
	assert.True(t, IsType(fmt.Errorf("ctx: %w", structErr), ErrTypeValidation))
	assert.False(t, IsType(structErr, ErrTypeStorage))
	assert.False(t, IsType(regularErr, ErrTypeValidation))
}

func TestGetType(t *testing.T) {
	structErr := New(ErrTypeExecution, "remote error")
	regularErr := errors.New("regular error")

	assert.Equal(t, ErrTypeExecution, GetType(structErr))
	assert.Equal(t, ErrTypeInternal, GetType(regularErr))
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"structured", Wrap(errors.New("io"), ErrTypeValidation, "O limite está inválido."), "O limite está inválido."},
		{"wrapped structured", fmt.Errorf("outer: %w", New(ErrTypeCatalog, "sem catálogo")), "sem catálogo"},
		{"plain", errors.New("boom"), "boom"},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, UserMessage(tt.err))
		})
	}
}

func TestNewConfigError(t *testing.T) {
	err := NewConfigError("invalid value", "log_level")

	assert.Equal(t, ErrTypeConfig, err.Type)
	assert.Contains(t, err.Message, "invalid value")
	assert.Contains(t, err.Message, "log_level")
	assert.Contains(t, err.Suggestions, "Check your configuration file syntax")
}

func TestNewConfigErrorEmptyField(t *testing.T) {
	err := NewConfigError("failed to load", "")

	assert.Equal(t, ErrTypeConfig, err.Type)
	assert.Equal(t, "failed to load", err.Message)
}
