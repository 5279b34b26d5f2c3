package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCodeWalksWrappedChain(t *testing.T) {
	inner := New(CodeDuplicate, "phone already registered")
	outer := Wrap(inner, CodeInternal, "create failed")

	assert.True(t, HasCode(outer, CodeInternal))
	assert.True(t, HasCode(outer, CodeDuplicate))
	assert.False(t, HasCode(outer, CodeNotFound))
}

func TestCodeDefaultsToInternal(t *testing.T) {
	assert.Equal(t, CodeInternal, Code(errors.New("plain")))
	assert.Equal(t, CodeNotFound, Code(New(CodeNotFound, "patient not found")))
}

func TestWrapKeepsCauseReachable(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, CodeInternal, "store unavailable")

	require.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestWrappedWithFmtStillMatches(t *testing.T) {
	err := fmt.Errorf("lookup: %w", New(CodeNotFound, "gone"))
	assert.True(t, Is(err, CodeNotFound))
}

func TestToHTTPStatus(t *testing.T) {
	cases := map[ErrorCode]int{
		CodeInvalidInput:      http.StatusBadRequest,
		CodeValidation:        http.StatusBadRequest,
		CodeInvalidFormat:     http.StatusBadRequest,
		CodeInvalidLength:     http.StatusBadRequest,
		CodeUnsupportedRegion: http.StatusBadRequest,
		CodeDuplicate:         http.StatusConflict,
		CodeConflict:          http.StatusConflict,
		CodeNotFound:          http.StatusNotFound,
		CodeInternal:          http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, ToHTTPStatus(code), string(code))
	}
}
