package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	t.Run("matches direct error", func(t *testing.T) {
		err := New(CodeConflict, "stale lock token")
		assert.True(t, HasCode(err, CodeConflict))
		assert.False(t, HasCode(err, CodeNotFound))
	})

	t.Run("matches through fmt wrapping", func(t *testing.T) {
		inner := New(CodeNotFound, "process not found")
		wrapped := fmt.Errorf("complete step: %w", inner)
		assert.True(t, HasCode(wrapped, CodeNotFound))
	})

	t.Run("false for plain errors", func(t *testing.T) {
		assert.False(t, HasCode(errors.New("boom"), CodeInternal))
		assert.False(t, HasCode(nil, CodeInternal))
	})
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, CodeInternal, "failed to load process")

	require.Error(t, err)
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, CodeInternal, CodeOf(err))
	assert.Contains(t, err.Error(), "failed to load process")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeValidation, CodeOf(New(CodeValidation, "document doc-1 not yet approved")))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
}

func TestMessageOf(t *testing.T) {
	assert.Equal(t, "unresolved alert", MessageOf(New(CodeConflict, "unresolved alert")))
	assert.Equal(t, "", MessageOf(errors.New("plain")))
}
