package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCode(t *testing.T) {
	err := New(CodeConflict, "duplicate pending submission")
	assert.True(t, HasCode(err, CodeConflict))
	assert.False(t, HasCode(err, CodeNotFound))
	assert.False(t, HasCode(errors.New("plain"), CodeConflict))
	assert.False(t, HasCode(nil, CodeConflict))
}

func TestHasCodeThroughWrapping(t *testing.T) {
	inner := New(CodeInvalidState, "already decided")
	outer := fmt.Errorf("deciding submission: %w", inner)
	assert.True(t, HasCode(outer, CodeInvalidState))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, CodeUnavailable, "store unavailable")

	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "store unavailable")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeValidation, CodeOf(New(CodeValidation, "bad doc type")))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(New(CodeUnavailable, "timeout")))
	assert.False(t, Retryable(New(CodeConflict, "duplicate")))
	assert.False(t, Retryable(New(CodeInvalidState, "already decided")))
	assert.False(t, Retryable(errors.New("plain")))
}

func TestToHTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeBadRequest, http.StatusBadRequest},
		{CodeValidation, http.StatusBadRequest},
		{CodeUnauthorized, http.StatusUnauthorized},
		{CodeForbidden, http.StatusForbidden},
		{CodeNotFound, http.StatusNotFound},
		{CodeConflict, http.StatusConflict},
		{CodeInvalidState, http.StatusConflict},
		{CodeUnavailable, http.StatusServiceUnavailable},
		{CodeInternal, http.StatusInternalServerError},
		{CodeInvariantViolation, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ToHTTPStatus(tt.code), "code %s", tt.code)
	}
}
