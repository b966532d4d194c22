package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_ErrorAndUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewAppError(KindLLMCall, "structuring call failed", cause).WithStage("structure")

	assert.Equal(t, "llm_call[structure]: structuring call failed: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)

	noCause := NewAppError(KindValidation, "bad request", nil)
	assert.Equal(t, "validation: bad request", noCause.Error())
}

func TestKindOf(t *testing.T) {
	inner := NewAppError(KindResponseRepair, "not an object", nil)
	wrapped := fmt.Errorf("outer: %w", inner)

	assert.Equal(t, KindResponseRepair, KindOf(wrapped))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
}

func TestAsAppError(t *testing.T) {
	plain := errors.New("boom")
	ae := AsAppError(plain, KindCalculation)
	require.NotNil(t, ae)
	assert.Equal(t, KindCalculation, ae.Kind)
	assert.ErrorIs(t, ae, plain)

	orig := NewAppError(KindSizeLimit, "too big", nil)
	assert.Same(t, orig, AsAppError(fmt.Errorf("x: %w", orig), KindCalculation))
}

func TestValidator(t *testing.T) {
	allowed := func(s string) bool { return s == "a.pdf" }

	t.Run("count out of range", func(t *testing.T) {
		err := NewValidator().
			Field("files", []string{}, CountBetween(1, 10), EachAllowed(allowed, []string{".pdf"})).
			Err()
		require.Error(t, err)
		assert.Equal(t, KindValidation, KindOf(err))
	})

	t.Run("unsupported extension", func(t *testing.T) {
		err := NewValidator().
			Field("files", []string{"a.pdf", "b.txt"}, CountBetween(1, 10), EachAllowed(allowed, []string{".pdf"})).
			Err()
		require.Error(t, err)
		assert.Equal(t, KindUnsupportedFormat, KindOf(err))
		assert.Contains(t, err.Error(), `"b.txt"`)
	})

	t.Run("valid", func(t *testing.T) {
		err := NewValidator().
			Field("files", []string{"a.pdf"}, CountBetween(1, 10), EachAllowed(allowed, []string{".pdf"})).
			Err()
		assert.NoError(t, err)
	})
}
