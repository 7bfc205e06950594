package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorType represents the category of a sweep failure
type ErrorType int

const (
	// ErrorTypeConfig - GxP.MD missing or its frontmatter unusable
	ErrorTypeConfig ErrorType = iota
	// ErrorTypeFileSystem - artifact, cache or coverage file I/O failures
	ErrorTypeFileSystem
	// ErrorTypeStorage - sweep history database failures
	ErrorTypeStorage
	// ErrorTypeInput - malformed external input such as a coverage summary
	ErrorTypeInput
	// ErrorTypeInternal - unexpected internal state
	ErrorTypeInternal
)

// Severity represents how a failure affects the run
type Severity int

const (
	// SeverityDegraded - the sweep continues without the failed feature
	SeverityDegraded Severity = iota
	// SeverityCritical - the sweep cannot start or finish
	SeverityCritical
)

// Error is a structured failure of the tooling around the engine.
// Traceability findings are never reported this way; they are models.Issue values.
type Error struct {
	Type     ErrorType
	Severity Severity
	Message  string
	Cause    error
	Context  map[string]interface{}
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithContext attaches a key/value pair shown by DetailedString
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// Is matches on error type so callers can test errors.Is(err, errors.ConfigError(""))
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// IsFatal returns true if this error should stop the sweep
func (e *Error) IsFatal() bool {
	return e.Severity == SeverityCritical
}

// DetailedString returns the message with its type tag and sorted context
func (e *Error) DetailedString() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s\n", typeString(e.Type), e.Error())

	keys := make([]string, 0, len(e.Context))
	for k := range e.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, "  %s: %v\n", k, e.Context[k])
	}
	return sb.String()
}

func typeString(t ErrorType) string {
	switch t {
	case ErrorTypeConfig:
		return "CONFIG"
	case ErrorTypeFileSystem:
		return "FILESYSTEM"
	case ErrorTypeStorage:
		return "STORAGE"
	case ErrorTypeInput:
		return "INPUT"
	case ErrorTypeInternal:
		return "INTERNAL"
	default:
		return "UNKNOWN"
	}
}

// New creates a new error with the given type, severity, and message
func New(errType ErrorType, severity Severity, message string) *Error {
	return &Error{
		Type:     errType,
		Severity: severity,
		Message:  message,
	}
}

// Wrap wraps an existing error; it returns nil when err is nil
func Wrap(err error, errType ErrorType, severity Severity, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Type:     errType,
		Severity: severity,
		Message:  message,
		Cause:    err,
	}
}

// ConfigError creates a fatal configuration error
func ConfigError(message string) *Error {
	return New(ErrorTypeConfig, SeverityCritical, message)
}

// ConfigErrorf creates a fatal configuration error with formatting
func ConfigErrorf(format string, args ...interface{}) *Error {
	return New(ErrorTypeConfig, SeverityCritical, fmt.Sprintf(format, args...))
}

// FileSystemError wraps a filesystem error
func FileSystemError(err error, message string) *Error {
	return Wrap(err, ErrorTypeFileSystem, SeverityCritical, message)
}

// FileSystemErrorf wraps a filesystem error with formatting
func FileSystemErrorf(err error, format string, args ...interface{}) *Error {
	return Wrap(err, ErrorTypeFileSystem, SeverityCritical, fmt.Sprintf(format, args...))
}

// StorageError wraps a history store failure; the sweep result is still valid
func StorageError(err error, message string) *Error {
	return Wrap(err, ErrorTypeStorage, SeverityDegraded, message)
}

// InputErrorf wraps a malformed input error with formatting
func InputErrorf(err error, format string, args ...interface{}) *Error {
	return Wrap(err, ErrorTypeInput, SeverityCritical, fmt.Sprintf(format, args...))
}

// InternalErrorf creates an internal error
func InternalErrorf(format string, args ...interface{}) *Error {
	return New(ErrorTypeInternal, SeverityCritical, fmt.Sprintf(format, args...))
}

// IsFatal checks if an error is fatal (should stop execution)
func IsFatal(err error) bool {
	var e *Error
	if stderrors.As(err, &e) {
		return e.IsFatal()
	}
	return false
}

// IsConfig reports whether err is, or wraps, a configuration error
func IsConfig(err error) bool {
	return GetType(err) == ErrorTypeConfig
}

// GetType returns the type of an error
func GetType(err error) ErrorType {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeInternal
}
