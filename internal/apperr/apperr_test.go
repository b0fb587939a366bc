package apperr_test

import (
	"net/http"
	"testing"

	"matchchat/backend/internal/apperr"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus_WrappedSentinels(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"self interaction", errors.Wrap(apperr.ErrInvalidOperation, "cannot rate yourself"), http.StatusBadRequest, "invalid_operation"},
		{"incomplete profile", apperr.ErrIncompleteProfile, http.StatusBadRequest, "incomplete_profile"},
		{"not mutual", errors.Wrapf(apperr.ErrForbidden, "users %s and %s", "a", "b"), http.StatusForbidden, "forbidden"},
		{"expired room", errors.Wrap(apperr.ErrRoomLocked, "room r1"), http.StatusForbidden, "room_locked"},
		{"missing request", apperr.ErrNotFound, http.StatusNotFound, "not_found"},
		{"open room", apperr.ErrConflict, http.StatusConflict, "conflict"},
		{"storage failure", errors.New("connection reset"), http.StatusInternalServerError, "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, apperr.HTTPStatus(tt.err))
			assert.Equal(t, tt.code, apperr.Code(tt.err))
		})
	}
}

func TestIsClassified(t *testing.T) {
	assert.True(t, apperr.IsClassified(apperr.ErrNotFound))
	assert.False(t, apperr.IsClassified(errors.New("boom")))
}
