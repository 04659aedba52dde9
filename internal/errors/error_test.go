package errors

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStructuredError_Error(t *testing.T) {
	err := New(ErrorTypeLockOrder, "LockAll", "session holds top shared")
	assert.Equal(t, "[lock_order] LockAll: session holds top shared", err.Error())

	cause := errors.New("bad buckets")
	err = Wrap(cause, ErrorTypeConfiguration, "New", "invalid config")
	assert.Contains(t, err.Error(), "[configuration] New: invalid config")
	assert.Contains(t, err.Error(), "bad buckets")
	assert.Equal(t, cause, err.Unwrap())
}

func TestStructuredError_WithContext(t *testing.T) {
	err := New(ErrorTypeTag, "Tag", "no page")
	err = err.WithContext("page", uint64(42)).WithContext("mid", uint32(3))

	assert.Equal(t, uint64(42), err.Context["page"])
	assert.Equal(t, uint32(3), err.Context["mid"])
}

func TestErrorConstructors(t *testing.T) {
	assert.Equal(t, ErrorTypeLockOrder, NewLockOrderError("op", "msg").Type)
	assert.Equal(t, ErrorTypeOwnership, NewOwnershipError("op", "msg").Type)
	assert.Equal(t, ErrorTypeNesting, NewNestingError("op", "msg").Type)
	assert.Equal(t, ErrorTypeTag, NewTagError("op", "msg").Type)

	wrapped := WrapConfigurationError(errors.New("x"), "op", "msg")
	assert.Equal(t, ErrorTypeConfiguration, wrapped.Type)
	assert.Nil(t, Wrap(nil, ErrorTypeConfiguration, "op", "msg"))
}

func TestIsType(t *testing.T) {
	var v interface{} = NewTagError("AssertTagged", "untagged")
	assert.True(t, IsType(v, ErrorTypeTag))
	assert.False(t, IsType(v, ErrorTypeOwnership))
	assert.False(t, IsType("not an error", ErrorTypeTag))
}

func TestStackTraceCapture(t *testing.T) {
	err := New(ErrorTypeNesting, "test", "message")
	assert.Greater(t, len(err.Stack), 0)

	frames := err.Frames()
	assert.NotEmpty(t, frames)
	assert.True(t, strings.HasSuffix(frames[0].Function, "TestStackTraceCapture"))
}
