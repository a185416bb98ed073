package observability

import (
	"context"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// requestIDContextKey is a custom type to avoid context key collisions
type requestIDContextKey string

const requestIDKey requestIDContextKey = "request_id"

// WithRequestID attaches the correlation ID the RequestID middleware resolved
// for this request.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFrom retrieves the request correlation ID from context, checking
// chi's key as a fallback for requests that bypassed the relay middleware.
func RequestIDFrom(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	if requestID, ok := ctx.Value(requestIDKey).(string); ok {
		return requestID
	}

	return chimw.GetReqID(ctx)
}
