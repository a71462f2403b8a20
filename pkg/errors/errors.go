// Package errors defines the coded error taxonomy shared by the index builder,
// the persistence layer and the outer service surfaces.
package errors

import (
	"errors"
	"fmt"
)

// Error codes for the application.
const (
	CodeUnknown            = "UNKNOWN_ERROR"
	CodeArchiveError       = "ARCHIVE_ERROR"
	CodeClassFormat        = "CLASS_FORMAT_ERROR"
	CodeParseError         = "PARSE_ERROR"
	CodePoolOverflow       = "POOL_OVERFLOW"
	CodeInvariantViolation = "INVARIANT_VIOLATION"
	CodeIndexFormat        = "INDEX_FORMAT_ERROR"
	CodeStorageError       = "STORAGE_ERROR"
	CodeDatabaseError      = "DATABASE_ERROR"
	CodeConfigError        = "CONFIG_ERROR"
	CodeInvalidInput       = "INVALID_INPUT"
	CodeNotFound           = "NOT_FOUND"
)

// AppError represents an application error with a code and message.
type AppError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches any AppError carrying the same code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new AppError.
func New(code string, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new AppError with a formatted message.
func Newf(code string, format string, args ...interface{}) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps an existing error with an AppError.
func Wrap(code string, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Wrapf wraps an existing error with a formatted message.
func Wrapf(code string, err error, format string, args ...interface{}) *AppError {
	return Wrap(code, fmt.Sprintf(format, args...), err)
}

// Sentinels for errors.Is checks.
var (
	ErrArchive            = New(CodeArchiveError, "archive error")
	ErrClassFormat        = New(CodeClassFormat, "malformed class file")
	ErrParse              = New(CodeParseError, "parse error")
	ErrPoolOverflow       = New(CodePoolOverflow, "constant pool string too long")
	ErrInvariantViolation = New(CodeInvariantViolation, "builder invariant violated")
	ErrIndexFormat        = New(CodeIndexFormat, "malformed index file")
	ErrStorage            = New(CodeStorageError, "storage error")
	ErrDatabase           = New(CodeDatabaseError, "database error")
	ErrConfig             = New(CodeConfigError, "configuration error")
	ErrInvalidInput       = New(CodeInvalidInput, "invalid input")
	ErrNotFound           = New(CodeNotFound, "resource not found")
)

// IsFatalBuildError reports whether err aborts an index build as a whole.
// Per-item failures (class format, signature grammar) are tolerated by the
// builder and never reach the caller.
func IsFatalBuildError(err error) bool {
	return errors.Is(err, ErrArchive) ||
		errors.Is(err, ErrPoolOverflow) ||
		errors.Is(err, ErrInvariantViolation)
}

// IsNotFound checks if the error is a not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// GetErrorMessage extracts the error message from an error.
func GetErrorMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
