package otp

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Is(t *testing.T) {
	err := withDetails(ErrAlreadyVoted, "", map[string]any{"code": "ABC123"})

	assert.ErrorIs(t, err, ErrAlreadyVoted)
	assert.NotErrorIs(t, err, ErrExpired)
	assert.Equal(t, ErrAlreadyVoted.Message, err.Message)
	assert.ErrorIs(t, fmt.Errorf("issue: %w", err), ErrAlreadyVoted)
}

func TestStoreError(t *testing.T) {
	cause := errors.New("database is locked")

	err := storeError("create record", cause)

	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "internal error", err.Message)
	assert.Equal(t, "internal error: create record: database is locked", err.Error())
	assert.False(t, err.Domain())
	assert.True(t, ErrCodeMismatch.Domain())
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindExpired, KindOf(ErrExpired))
	assert.Equal(t, KindExpired, KindOf(fmt.Errorf("wrapped: %w", ErrExpired)))
	assert.Equal(t, KindStoreUnavailable, KindOf(errors.New("boom")))
}

func TestRandomCodeSource(t *testing.T) {
	source := RandomCodeSource()

	seen := make(map[string]bool)
	for range 50 {
		code, err := source.Next(6)
		assert.NoError(t, err)
		assert.Regexp(t, "^[A-Z0-9]{6}$", code)
		seen[code] = true
	}
	assert.Greater(t, len(seen), 45)

	_, err := source.Next(0)
	assert.Error(t, err)
}
