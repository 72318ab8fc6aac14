package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	t.Run("matches direct code", func(t *testing.T) {
		err := New(CodeConflict, "civilization is full")
		assert.True(t, HasCode(err, CodeConflict))
		assert.False(t, HasCode(err, CodeNotFound))
	})

	t.Run("matches wrapped code", func(t *testing.T) {
		inner := New(CodeNotFound, "religion not found")
		outer := Wrap(inner, CodeInternal, "load religion")
		assert.True(t, HasCode(outer, CodeNotFound))
		assert.True(t, HasCode(outer, CodeInternal))
	})

	t.Run("ignores uncoded errors", func(t *testing.T) {
		assert.False(t, HasCode(errors.New("plain"), CodeInternal))
		assert.False(t, HasCode(nil, CodeInternal))
	})

	t.Run("sees through fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("outer: %w", New(CodeForbidden, "not the founder"))
		assert.True(t, HasCode(err, CodeForbidden))
	})
}

func TestWrapNil(t *testing.T) {
	require.NoError(t, Wrap(nil, CodeInternal, "nothing"))
}

func TestReason(t *testing.T) {
	assert.Equal(t, "not the founder", Reason(New(CodeForbidden, "not the founder")))
	assert.Equal(t, "internal error", Reason(errors.New("raw db failure")))
}

func TestToHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeValidation:         http.StatusBadRequest,
		CodeBadRequest:         http.StatusBadRequest,
		CodeInvalidInput:       http.StatusBadRequest,
		CodeUnauthorized:       http.StatusUnauthorized,
		CodeForbidden:          http.StatusForbidden,
		CodeNotFound:           http.StatusNotFound,
		CodeConflict:           http.StatusConflict,
		CodeInvariantViolation: http.StatusConflict,
		CodeInvalidState:       http.StatusUnprocessableEntity,
		CodeInternal:           http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, ToHTTPStatus(code), string(code))
	}
}
