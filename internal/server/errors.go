package server

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrMissingParams covers missing or invalid connect/action parameters.
	ErrMissingParams = errors.New("missing or invalid parameters")
	// ErrConnectionNotFound means an action frame arrived for an
	// unregistered connection; the client should reconnect.
	ErrConnectionNotFound = errors.New("connection record not found")
	ErrConnectionInactive = errors.New("connection is not active")
	// ErrUnauthorized means an edit or delete was attempted by a user
	// other than the author.
	ErrUnauthorized    = errors.New("not the author")
	ErrMessageNotFound = errors.New("message not found")
	ErrEmptyMessage    = errors.New("message requires content or attachments")
	// ErrStorage wraps durable-store failures. The retry policy, if any,
	// belongs to the caller.
	ErrStorage = errors.New("storage failure")
	// ErrPeerGone is the transport's signal that the remote endpoint no
	// longer exists. It triggers registry cleanup and is never surfaced to
	// the action's caller.
	ErrPeerGone = errors.New("peer connection is gone")
	// ErrSendBufferFull is a transient delivery failure; the registry
	// entry is left intact.
	ErrSendBufferFull = errors.New("send buffer full")
)

func storageError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStorage, op, err)
}

// statusForError maps core errors to the HTTP-like codes carried in action
// results.
func statusForError(err error) int {
	switch {
	case errors.Is(err, ErrMissingParams), errors.Is(err, ErrEmptyMessage),
		errors.Is(err, ErrConnectionInactive):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrConnectionNotFound), errors.Is(err, ErrMessageNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrPeerGone):
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}
