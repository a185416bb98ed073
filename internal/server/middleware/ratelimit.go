package middleware

import (
	"net"
	"net/http"
	"time"

	apperrors "github.com/simplifygenai/chatrelay/internal/errors"
	"github.com/simplifygenai/chatrelay/internal/metrics"
	"github.com/simplifygenai/chatrelay/internal/ratelimit"
)

// RateLimit admits or rejects requests per client IP before any upstream work
// happens. Run it after chi's RealIP middleware so RemoteAddr reflects the
// originating client rather than a proxy hop.
func RateLimit(limiter ratelimit.Limiter, clock func() time.Time) func(http.Handler) http.Handler {
	if clock == nil {
		clock = time.Now
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision := limiter.Admit(clientKey(r), clock())
			if !decision.Allowed {
				metrics.RecordRateLimited(getEndpointPattern(r))
				apperrors.RespondWithEnvelope(w, r,
					apperrors.NewRateLimitedError("rate limit exceeded, try again later", decision.RetryAt))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientKey extracts the client IP from RemoteAddr, falling back to the raw
// address when no port is present.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
