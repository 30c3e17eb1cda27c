package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errCause = errors.New("boom")

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		err    *Error
		kind   Kind
		status int
	}{
		{"unauthorized", Unauthorized(MsgTokenMissing, nil), KindUnauthorized, http.StatusUnauthorized},
		{"forbidden", Forbidden(), KindForbidden, http.StatusForbidden},
		{"bad request", BadRequest("bad"), KindBadRequest, http.StatusBadRequest},
		{"not found", NotFound("nope"), KindNotFound, http.StatusNotFound},
		{"conflict", Conflict("dup"), KindConflict, http.StatusConflict},
		{"internal", Internal(errCause), KindInternal, http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.kind, tc.err.Kind)
			assert.Equal(t, tc.status, tc.err.Status)
		})
	}
}

func TestError_UnwrapAndAs(t *testing.T) {
	err := fmt.Errorf("stage: %w", Unauthorized(MsgTokenInvalid, errCause))

	assert.True(t, errors.Is(err, errCause))
	e, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, MsgTokenInvalid, e.Message)
	assert.True(t, IsKind(err, KindUnauthorized))
	assert.False(t, IsKind(err, KindForbidden))
}

func TestInternal_HidesCauseInMessage(t *testing.T) {
	e := Internal(errors.New("secret=hunter2"))
	assert.Equal(t, MsgInternal, e.Message)
	assert.Contains(t, e.Error(), "hunter2") // logged, not rendered
}

func TestAs_PlainError(t *testing.T) {
	_, ok := As(errCause)
	assert.False(t, ok)
}
