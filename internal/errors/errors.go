package errors

import (
	"fmt"
	"runtime"
)

// ErrorType classifies lock hierarchy violations.
type ErrorType string

const (
	// ErrorTypeLockOrder is an acquisition that breaks global -> mid -> page ordering,
	// such as escalating a shared hold to exclusive.
	ErrorTypeLockOrder ErrorType = "lock_order"
	// ErrorTypeOwnership is a release by a session that does not own the lock.
	ErrorTypeOwnership ErrorType = "ownership"
	// ErrorTypeNesting is an unbalanced guard release.
	ErrorTypeNesting ErrorType = "nesting"
	// ErrorTypeTag is a tag operation with no tracked page to act on.
	ErrorTypeTag ErrorType = "tag"
	// ErrorTypeConfiguration is an invalid manager configuration.
	ErrorTypeConfiguration ErrorType = "configuration"
)

// StructuredError provides rich error context
type StructuredError struct {
	Type      ErrorType
	Operation string
	Message   string
	Cause     error
	Context   map[string]interface{}
	Stack     []uintptr
}

// Error implements the error interface
func (e *StructuredError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s: %v", e.Type, e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Operation, e.Message)
}

// Unwrap returns the underlying cause
func (e *StructuredError) Unwrap() error {
	return e.Cause
}

// New creates a new structured error
func New(errType ErrorType, operation, message string) *StructuredError {
	return &StructuredError{
		Type:      errType,
		Operation: operation,
		Message:   message,
		Context:   make(map[string]interface{}),
		Stack:     captureStack(),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, errType ErrorType, operation, message string) *StructuredError {
	if err == nil {
		return nil
	}

	return &StructuredError{
		Type:      errType,
		Operation: operation,
		Message:   message,
		Cause:     err,
		Context:   make(map[string]interface{}),
		Stack:     captureStack(),
	}
}

// WithContext adds context information to an error
func (e *StructuredError) WithContext(key string, value interface{}) *StructuredError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// Frames resolves the captured stack into readable frames.
func (e *StructuredError) Frames() []runtime.Frame {
	if len(e.Stack) == 0 {
		return nil
	}
	frames := runtime.CallersFrames(e.Stack)
	var out []runtime.Frame
	for {
		f, more := frames.Next()
		out = append(out, f)
		if !more {
			break
		}
	}
	return out
}

// IsType reports whether v (typically a recovered panic value) is a
// StructuredError of the given type.
func IsType(v interface{}, errType ErrorType) bool {
	se, ok := v.(*StructuredError)
	return ok && se.Type == errType
}

func captureStack() []uintptr {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:]) // skip Callers, captureStack and the constructor
	return pcs[:n]
}

// NewLockOrderError creates a lock ordering violation
func NewLockOrderError(operation, message string) *StructuredError {
	return New(ErrorTypeLockOrder, operation, message)
}

// NewOwnershipError creates an ownership violation
func NewOwnershipError(operation, message string) *StructuredError {
	return New(ErrorTypeOwnership, operation, message)
}

// NewNestingError creates an unbalanced nesting violation
func NewNestingError(operation, message string) *StructuredError {
	return New(ErrorTypeNesting, operation, message)
}

// NewTagError creates a page tagging violation
func NewTagError(operation, message string) *StructuredError {
	return New(ErrorTypeTag, operation, message)
}

// WrapConfigurationError wraps an error as a configuration error
func WrapConfigurationError(err error, operation, message string) *StructuredError {
	return Wrap(err, ErrorTypeConfiguration, operation, message)
}
