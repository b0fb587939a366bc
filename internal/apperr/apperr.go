// Package apperr defines the error classes shared by the match and chat
// services and their mapping onto HTTP statuses.
package apperr

import (
	"net/http"

	"github.com/pkg/errors"
)

var (
	ErrInvalidOperation  = errors.New("invalid operation")
	ErrIncompleteProfile = errors.New("partner preferences are incomplete")
	ErrForbidden         = errors.New("forbidden")
	ErrRoomLocked        = errors.New("room locked")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
)

// HTTPStatus maps an error to the response status. Unclassified errors are 500.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidOperation), errors.Is(err, ErrIncompleteProfile):
		return http.StatusBadRequest
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrRoomLocked):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Code is the machine readable class sent to clients. Room expiry gets its own
// code so clients can show the locked state instead of a generic error.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrInvalidOperation):
		return "invalid_operation"
	case errors.Is(err, ErrIncompleteProfile):
		return "incomplete_profile"
	case errors.Is(err, ErrRoomLocked):
		return "room_locked"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	default:
		return "internal"
	}
}

// IsClassified reports whether err belongs to one of the known classes.
func IsClassified(err error) bool {
	return HTTPStatus(err) != http.StatusInternalServerError
}
