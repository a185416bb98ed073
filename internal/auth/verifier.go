// Package auth resolves caller identities from bearer credentials using a
// Supabase GoTrue-compatible identity provider. When the provider is not
// configured the gate degrades open: every caller resolves to an anonymous
// identity, which is the intended development-mode behavior.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrMissingToken is returned when verification is enabled and the caller
	// supplied no bearer credential.
	ErrMissingToken = errors.New("no token provided")

	// ErrInvalidToken is returned when the identity provider rejects the
	// credential as invalid or expired.
	ErrInvalidToken = errors.New("invalid token")

	// ErrUnavailable is returned when the identity provider cannot be reached
	// or fails internally; callers must not treat it as a caller fault.
	ErrUnavailable = errors.New("identity provider unavailable")
)

// Identity is the principal resolved from a bearer credential. It lives for
// one request and is used for audit logging only.
type Identity struct {
	ID        string
	Email     string
	Anonymous bool
}

// Verifier validates bearer tokens against the identity provider's
// verify-token endpoint (GET {url}/auth/v1/user).
type Verifier struct {
	BaseURL    string
	AnonKey    string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// NewVerifier returns a verifier with defaults applied. An empty baseURL or
// anonKey yields a disabled verifier.
func NewVerifier(baseURL, anonKey string) *Verifier {
	return &Verifier{
		BaseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		AnonKey: strings.TrimSpace(anonKey),
		Timeout: 10 * time.Second,
	}
}

// Enabled reports whether the identity provider integration is configured.
func (v *Verifier) Enabled() bool {
	return v != nil && v.BaseURL != "" && v.AnonKey != ""
}

type gotrueUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Verify resolves the Authorization header value to an identity.
func (v *Verifier) Verify(ctx context.Context, authorization string) (*Identity, error) {
	if !v.Enabled() {
		return &Identity{Anonymous: true}, nil
	}

	token, found := strings.CutPrefix(strings.TrimSpace(authorization), "Bearer ")
	if !found || strings.TrimSpace(token) == "" {
		return nil, ErrMissingToken
	}

	ctx, cancel := withTimeout(ctx, v.Timeout)
	if cancel != nil {
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.BaseURL+"/auth/v1/user", nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("apikey", v.AnonKey)
	req.Header.Set("Authorization", "Bearer "+token)

	client := v.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, err)
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decode
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrInvalidToken
	default:
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, err)
	}

	var user gotrueUser
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, err)
	}
	if user.ID == "" {
		return nil, ErrInvalidToken
	}

	return &Identity{ID: user.ID, Email: user.Email}, nil
}

// Ping checks that the identity provider endpoint is reachable. A disabled
// verifier always reports healthy since no caller depends on it.
func (v *Verifier) Ping(ctx context.Context) error {
	if !v.Enabled() {
		return nil
	}

	ctx, cancel := withTimeout(ctx, v.Timeout)
	if cancel != nil {
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.BaseURL+"/auth/v1/health", nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("apikey", v.AnonKey)

	client := v.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrUnavailable, err)
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	return nil
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, nil
	}
	return context.WithTimeout(ctx, timeout)
}
