package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	gferrors "github.com/fulmenhq/gofulmen/errors"
	apperrors "github.com/simplifygenai/chatrelay/internal/errors"
	"github.com/simplifygenai/chatrelay/internal/relay"
)

// decodeJSONBody decodes the request body into dst, translating decode
// failures into caller-facing envelopes.
func decodeJSONBody(r *http.Request, dst interface{}) *gferrors.ErrorEnvelope {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return apperrors.NewInvalidInputError("request body exceeds size limit")
		}
		return apperrors.NewInvalidInputError("request body must be valid JSON")
	}
	return nil
}

// upstreamFailureEnvelope maps provider-call failures to the error taxonomy.
// A missing API key is a deployment fault (CONFIG_MISSING), a parseable
// provider rejection keeps the provider's status and message, and anything
// else is an opaque upstream failure.
func upstreamFailureEnvelope(err error, action string) *gferrors.ErrorEnvelope {
	if errors.Is(err, relay.ErrMissingAPIKey) {
		return apperrors.NewConfigMissingError("upstream api key not configured", "CHATRELAY_UPSTREAM_API_KEY")
	}

	var providerErr *relay.ProviderError
	if errors.As(err, &providerErr) && providerErr.Parseable() {
		return apperrors.NewUpstreamError(providerErr.StatusCode, providerErr.Message)
	}

	return apperrors.NewExternalServiceError(action + " failed")
}

// respondJSON writes a JSON success response.
func respondJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}
