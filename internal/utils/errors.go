package utils

import (
	"errors"
	"fmt"
)

// AppError wraps an operation, human-facing message, and underlying error.
// Input marks failures caused by the caller's data rather than the system.
type AppError struct {
	Op    string
	Msg   string
	Err   error
	Input bool
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(op, msg string, err error) error {
	return &AppError{Op: op, Msg: msg, Err: err}
}

// NewInputError constructs an AppError blaming the supplied input.
func NewInputError(op, msg string, err error) error {
	return &AppError{Op: op, Msg: msg, Err: err, Input: true}
}

// IsInputError reports whether any AppError in err's chain blames the input.
func IsInputError(err error) bool {
	var appErr *AppError
	for errors.As(err, &appErr) {
		if appErr.Input {
			return true
		}
		err = appErr.Err
	}
	return false
}
