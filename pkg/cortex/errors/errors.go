package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError represents an application-level error with a code and optional cause
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Is reports whether any error in err's chain is an AppError with the given code
func Is(err error, code string) bool {
	var appErr *AppError
	for err != nil {
		if !stderrors.As(err, &appErr) {
			return false
		}
		if appErr.Code == code {
			return true
		}
		err = appErr.Cause
	}
	return false
}

// CodeOf returns the code of the outermost AppError in err's chain, or "" if none
func CodeOf(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// Error codes
const (
	ErrCodeParseFailed        = "PARSE_FAILED"
	ErrCodeProviderFailed     = "PROVIDER_FAILED"
	ErrCodeExecutionTimeout   = "EXECUTION_TIMEOUT"
	ErrCodeSpawnFailed        = "SPAWN_FAILED"
	ErrCodeStepBudgetExceeded = "STEP_BUDGET_EXCEEDED"
	ErrCodeConfigInvalid      = "CONFIG_INVALID"
	ErrCodeStoreFailed        = "STORE_FAILED"
	ErrCodeInvalidInput       = "INVALID_INPUT"
)
