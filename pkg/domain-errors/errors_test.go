package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodedErrors(t *testing.T) {
	t.Run("new carries code and message", func(t *testing.T) {
		err := New(CodeNotFound, "property does not exist")
		assert.True(t, HasCode(err, CodeNotFound))
		assert.Equal(t, CodeNotFound, CodeOf(err))
		assert.Equal(t, "property does not exist", MessageOf(err))
	})

	t.Run("wrap preserves the cause chain", func(t *testing.T) {
		cause := errors.New("row locked")
		err := Wrap(cause, CodeConflict, "lost the race")
		assert.True(t, HasCode(err, CodeConflict))
		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "row locked")
	})

	t.Run("has code walks nested coded errors", func(t *testing.T) {
		inner := New(CodeNotVerified, "verify first")
		outer := Wrap(inner, CodeInternal, "transfer failed")
		assert.True(t, HasCode(outer, CodeInternal))
		assert.True(t, HasCode(outer, CodeNotVerified))
		assert.False(t, HasCode(outer, CodeConflict))
	})

	t.Run("uncoded errors default to internal", func(t *testing.T) {
		err := fmt.Errorf("disk full")
		assert.Equal(t, CodeInternal, CodeOf(err))
		assert.Empty(t, MessageOf(err))
		assert.False(t, HasCode(err, CodeInternal))
	})

	t.Run("taxonomy codes are distinguishable", func(t *testing.T) {
		codes := []Code{
			CodeInvalidInput, CodeUnauthorized, CodeNotFound,
			CodeNotVerified, CodeInvalidTarget, CodeConflict, CodeInternal,
		}
		seen := make(map[Code]bool)
		for _, code := range codes {
			assert.False(t, seen[code])
			seen[code] = true
		}
	})
}
