package http

import (
	"errors"
	"net/http"

	"github.com/PixelPioneer1807/adventure/pkg/domain"
	"github.com/PixelPioneer1807/adventure/pkg/session"
)

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	var perr *domain.PersistenceError
	switch {
	case errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrStoryNotFound),
		errors.Is(err, domain.ErrSaveNotFound),
		errors.Is(err, domain.ErrNodeNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidSnapshot):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrBusy),
		errors.Is(err, domain.ErrTerminal),
		errors.Is(err, domain.ErrInvalidChoice),
		errors.Is(err, domain.ErrNotStarted),
		errors.Is(err, domain.ErrStaleResponse),
		errors.Is(err, domain.ErrSessionClosed):
		return http.StatusConflict
	case errors.Is(err, session.ErrNoSaveStore):
		return http.StatusNotImplemented
	case errors.As(err, &perr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
