package handlers

import (
	"net/http"

	apperrors "github.com/simplifygenai/chatrelay/internal/errors"
)

// ErrorResponder writes a caller-facing error for a relay handler.
type ErrorResponder func(w http.ResponseWriter, r *http.Request, err error)

var httpErrorResponder ErrorResponder = defaultHTTPErrorResponder

func defaultHTTPErrorResponder(w http.ResponseWriter, r *http.Request, err error) {
	apperrors.RespondWithError(w, r, err)
}

// SetHTTPErrorResponder lets the server package route handler failures
// through its centralized HandleError. A nil responder restores the default,
// which writes the taxonomy envelope directly.
func SetHTTPErrorResponder(responder ErrorResponder) {
	if responder == nil {
		httpErrorResponder = defaultHTTPErrorResponder
		return
	}
	httpErrorResponder = responder
}

// ResetHTTPErrorResponder restores the default responder between tests.
func ResetHTTPErrorResponder() {
	httpErrorResponder = defaultHTTPErrorResponder
}

func respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	httpErrorResponder(w, r, err)
}
