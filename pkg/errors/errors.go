// Package errors defines the fault taxonomy shared by the analyzer.
//
// Parse, lookup, render and command faults are recoverable: the session
// reports them and keeps going. Everything else ends the command, and the
// code decides the process exit status.
package errors

import (
	"errors"
	"fmt"
)

// Code classifies a fault.
type Code string

const (
	CodeUnknown        Code = "UNKNOWN_ERROR"
	CodeParseError     Code = "PARSE_ERROR"
	CodeNotFound       Code = "NOT_FOUND"
	CodeRenderError    Code = "RENDER_ERROR"
	CodeInvalidCommand Code = "INVALID_COMMAND"
	CodeInvalidInput   Code = "INVALID_INPUT"
	CodeConfigError    Code = "CONFIG_ERROR"
	CodeStorageError   Code = "STORAGE_ERROR"
	CodeDatabaseError  Code = "DATABASE_ERROR"
)

// Exit statuses of the CLI.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
	ExitInput   = 3
	ExitBackend = 4
)

var (
	recoverable = map[Code]bool{
		CodeParseError:     true,
		CodeNotFound:       true,
		CodeRenderError:    true,
		CodeInvalidCommand: true,
	}
	exitCodes = map[Code]int{
		CodeInvalidCommand: ExitUsage,
		CodeConfigError:    ExitUsage,
		CodeInvalidInput:   ExitInput,
		CodeParseError:     ExitInput,
		CodeNotFound:       ExitInput,
		CodeStorageError:   ExitBackend,
		CodeDatabaseError:  ExitBackend,
	}
)

// AppError carries a code and a user facing message.
type AppError struct {
	Code    Code
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches any AppError with the same code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && e.Code == t.Code
}

// New creates an AppError.
func New(code Code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap attaches code and message to err.
func Wrap(code Code, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// CodeOf returns the code of the outermost AppError in err's chain.
func CodeOf(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// HasCode reports whether err's chain carries code.
func HasCode(err error, code Code) bool {
	return errors.Is(err, &AppError{Code: code})
}

// Message returns the text shown to a user: the AppError message without
// its code or cause, or err.Error() for other errors.
func Message(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

// IsFatal reports whether err should end the command.
func IsFatal(err error) bool {
	return err != nil && !recoverable[CodeOf(err)]
}

// ExitCode maps err to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	if code, ok := exitCodes[CodeOf(err)]; ok {
		return code
	}
	return ExitFailure
}
