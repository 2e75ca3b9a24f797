package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodes(t *testing.T) {
	t.Run("wrapped coded error keeps code and cause", func(t *testing.T) {
		cause := errors.New("connection reset")
		err := Wrap(cause, CodeUnavailable, "eLicensing unavailable")

		assert.True(t, HasCode(err, CodeUnavailable))
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, "eLicensing unavailable: connection reset", err.Error())
	})

	t.Run("code survives fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("submit report: %w", New(CodeInvalidState, "report version is already submitted"))
		assert.Equal(t, CodeInvalidState, CodeOf(err))
	})

	t.Run("plain error is internal", func(t *testing.T) {
		assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
		assert.False(t, HasCode(errors.New("boom"), CodeNotFound))
	})

	t.Run("wrap of nil is nil", func(t *testing.T) {
		require.NoError(t, Wrap(nil, CodeInternal, "unused"))
	})
}

func TestToHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeValidation:         http.StatusBadRequest,
		CodeInvariantViolation: http.StatusBadRequest,
		CodeNotFound:           http.StatusNotFound,
		CodeConflict:           http.StatusConflict,
		CodeInvalidState:       http.StatusConflict,
		CodeUnauthorized:       http.StatusUnauthorized,
		CodeForbidden:          http.StatusForbidden,
		CodeUnavailable:        http.StatusServiceUnavailable,
		CodeInternal:           http.StatusInternalServerError,
	}
	for code, status := range cases {
		assert.Equal(t, status, ToHTTPStatus(code), "code %s", code)
	}
}

func TestRecode(t *testing.T) {
	err := New(CodeInvariantViolation, "email must be a valid address")
	recoded := Recode(err, CodeInvariantViolation, CodeValidation)
	assert.True(t, HasCode(recoded, CodeValidation))
	assert.Equal(t, "email must be a valid address", recoded.Error())

	other := New(CodeNotFound, "missing")
	assert.Same(t, other, Recode(other, CodeInvariantViolation, CodeValidation))
}
