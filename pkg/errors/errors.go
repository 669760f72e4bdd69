// Package errors provides structured errors for tablelog.
// Errors carry a code for programmatic handling, a message, context and a cause.
package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Code identifies an error class.
type Code string

const (
	// Input errors (1xx)
	CodeFileNotFound      Code = "E101"
	CodeInvalidFormat     Code = "E103"
	CodeMissingColumn     Code = "E104"
	CodeInvalidTimestamp  Code = "E105"
	CodeSourceUnavailable Code = "E106"

	// Processing errors (2xx)
	CodeParseFailed Code = "E201"
	CodeConfig      Code = "E202"

	// Output errors (3xx)
	CodeWriteFailed Code = "E301"

	// System errors (4xx)
	CodeContextCanceled Code = "E401"

	// DuckDB errors (5xx)
	CodeDuckDBQuery Code = "E502"

	CodeUnknown Code = "E999"
)

// TablelogError is the base error type for all tablelog errors.
type TablelogError struct {
	Code    Code
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface. Context keys are sorted so messages are stable.
func (e *TablelogError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		sb.WriteString(" (")
		for i, k := range keys {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(fmt.Sprintf("%s=%v", k, e.Context[k]))
		}
		sb.WriteString(")")
	}

	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}

	return sb.String()
}

// Unwrap returns the underlying cause.
func (e *TablelogError) Unwrap() error {
	return e.Cause
}

// Is matches another TablelogError with the same code.
func (e *TablelogError) Is(target error) bool {
	if t, ok := target.(*TablelogError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithContext adds context to the error.
func (e *TablelogError) WithContext(key string, value interface{}) *TablelogError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a new TablelogError.
func New(code Code, message string) *TablelogError {
	return &TablelogError{Code: code, Message: message}
}

// Wrap wraps an existing error. Returns nil when err is nil.
func Wrap(err error, code Code, message string) *TablelogError {
	if err == nil {
		return nil
	}
	return &TablelogError{Code: code, Message: message, Cause: err}
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, code Code, format string, args ...interface{}) *TablelogError {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// --- Convenience constructors ---

// FileNotFound creates a file not found error.
func FileNotFound(path string) *TablelogError {
	return New(CodeFileNotFound, "file not found").WithContext("path", path)
}

// MissingColumn creates a missing column error.
func MissingColumn(column string, available []string) *TablelogError {
	return New(CodeMissingColumn, "required column not found").
		WithContext("column", column).
		WithContext("available", available)
}

// InvalidTimestamp creates a timestamp parsing error.
func InvalidTimestamp(value string, row int, cause error) *TablelogError {
	e := New(CodeInvalidTimestamp, "failed to parse timestamp").
		WithContext("value", value).
		WithContext("row", row)
	e.Cause = cause
	return e
}

// ParseError creates a parsing error with location.
func ParseError(format string, row int, err error) *TablelogError {
	return Wrap(err, CodeParseFailed, "parse error").
		WithContext("format", format).
		WithContext("row", row)
}

// ContextCanceled creates a cancellation error.
func ContextCanceled(operation string) *TablelogError {
	return New(CodeContextCanceled, "operation canceled").
		WithContext("operation", operation)
}

// --- Error checking utilities ---

// IsCode checks if an error has a specific code.
func IsCode(err error, code Code) bool {
	var te *TablelogError
	if errors.As(err, &te) {
		return te.Code == code
	}
	return false
}

// GetCode extracts the error code from an error.
func GetCode(err error) Code {
	var te *TablelogError
	if errors.As(err, &te) {
		return te.Code
	}
	return CodeUnknown
}

// IsFatal reports whether an error must stop the analysis.
func IsFatal(err error) bool {
	switch GetCode(err) {
	case CodeInvalidTimestamp, CodeMissingColumn, CodeFileNotFound, CodeSourceUnavailable, CodeInvalidFormat:
		return true
	default:
		return false
	}
}
