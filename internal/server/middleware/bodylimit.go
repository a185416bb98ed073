package middleware

import "net/http"

// DefaultMaxBodyBytes caps request bodies at 10 MiB, enough for a base64
// encoded voice recording with headroom.
const DefaultMaxBodyBytes = 10 << 20

// BodyLimit rejects request bodies larger than maxBytes. Handlers reading the
// body past the cap receive a *http.MaxBytesError.
func BodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
