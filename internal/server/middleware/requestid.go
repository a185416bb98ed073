package middleware

import (
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/simplifygenai/chatrelay/internal/observability"
)

// RequestIDHeader carries the correlation ID to and from relay clients.
const RequestIDHeader = "X-Request-ID"

// RequestID resolves a correlation ID for every relay request: reuse chi's if
// one is set, then the caller's header, otherwise mint a UUID. The ID is
// echoed in the response header and rides the context into logs and error
// envelopes.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := chimw.GetReqID(r.Context())

		if requestID == "" {
			requestID = r.Header.Get(RequestIDHeader)
		}

		if requestID == "" {
			requestID = uuid.New().String()
		}

		w.Header().Set(RequestIDHeader, requestID)

		ctx := observability.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
