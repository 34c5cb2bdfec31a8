package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_WithCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := New(ErrCodeProviderFailed, "LLM request failed", cause)

	assert.Equal(t, ErrCodeProviderFailed, err.Code)
	assert.Equal(t, "LLM request failed", err.Message)
	assert.Equal(t, cause, errors.Unwrap(err))
	assert.Contains(t, err.Error(), "connection refused")
	assert.Contains(t, err.Error(), ErrCodeProviderFailed)
}

func TestAppError_ErrorWithoutCause(t *testing.T) {
	err := New(ErrCodeStepBudgetExceeded, "step budget of 20 exhausted", nil)

	assert.Equal(t, "STEP_BUDGET_EXCEEDED: step budget of 20 exhausted", err.Error())
	assert.Nil(t, errors.Unwrap(err))
}

func TestIs(t *testing.T) {
	inner := New(ErrCodeSpawnFailed, "sh missing", nil)
	outer := New(ErrCodeProviderFailed, "wrapped", inner)
	wrapped := fmt.Errorf("context: %w", outer)

	assert.True(t, Is(wrapped, ErrCodeProviderFailed))
	assert.True(t, Is(wrapped, ErrCodeSpawnFailed))
	assert.False(t, Is(wrapped, ErrCodeParseFailed))
	assert.False(t, Is(errors.New("plain"), ErrCodeParseFailed))
	assert.False(t, Is(nil, ErrCodeParseFailed))
}

func TestCodeOf(t *testing.T) {
	err := fmt.Errorf("load: %w", New(ErrCodeConfigInvalid, "bad", nil))

	assert.Equal(t, ErrCodeConfigInvalid, CodeOf(err))
	assert.Equal(t, "", CodeOf(errors.New("plain")))
}

func TestErrorCodes(t *testing.T) {
	codes := []string{
		ErrCodeParseFailed,
		ErrCodeProviderFailed,
		ErrCodeExecutionTimeout,
		ErrCodeSpawnFailed,
		ErrCodeStepBudgetExceeded,
		ErrCodeConfigInvalid,
		ErrCodeStoreFailed,
		ErrCodeInvalidInput,
	}

	seen := make(map[string]bool)
	for _, code := range codes {
		assert.NotEmpty(t, code)
		assert.False(t, seen[code], "duplicate error code: %s", code)
		seen[code] = true
	}
}
