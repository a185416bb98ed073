package middleware

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/simplifygenai/chatrelay/internal/auth"
	apperrors "github.com/simplifygenai/chatrelay/internal/errors"
	"github.com/simplifygenai/chatrelay/internal/metrics"
	"github.com/simplifygenai/chatrelay/internal/observability"
)

// RequireIdentity resolves the caller's identity before the request reaches a
// relay handler. When the verifier is disabled every caller passes through as
// anonymous; when it is enabled a missing or rejected token stops the request
// with 401 and a verifier outage stops it with 503 rather than silently
// letting callers through.
func RequireIdentity(verifier *auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := verifier.Verify(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				handleVerifyFailure(w, r, err)
				return
			}

			if identity.Anonymous {
				metrics.RecordAuthVerify("anonymous")
			} else {
				metrics.RecordAuthVerify("verified")
			}

			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), identity)))
		})
	}
}

func handleVerifyFailure(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrMissingToken):
		metrics.RecordAuthVerify("missing")
		apperrors.RespondWithEnvelope(w, r,
			apperrors.NewUnauthorizedError("authorization token required"))
	case errors.Is(err, auth.ErrInvalidToken):
		metrics.RecordAuthVerify("rejected")
		apperrors.RespondWithEnvelope(w, r,
			apperrors.NewUnauthorizedError("invalid or expired token"))
	default:
		metrics.RecordAuthVerify("unavailable")
		if logger := observability.ServerLogger; logger != nil {
			logger.Warn("identity verification unavailable",
				zap.String("request_id", observability.RequestIDFrom(r.Context())),
				zap.Error(err))
		}
		apperrors.RespondWithEnvelope(w, r,
			apperrors.NewAuthUnavailableError("identity verification temporarily unavailable"))
	}
}
