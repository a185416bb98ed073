package handlers

import (
	"context"
	"errors"

	"github.com/simplifygenai/chatrelay/internal/auth"
	"github.com/simplifygenai/chatrelay/internal/metrics"
	"github.com/simplifygenai/chatrelay/internal/ratelimit"
	"github.com/simplifygenai/chatrelay/internal/relay/openai"
)

// UpstreamConfigChecker reports unhealthy when the relay has no upstream API
// key, since every relay route would fail with CONFIG_MISSING.
type UpstreamConfigChecker struct {
	Client *openai.Client
}

func (c UpstreamConfigChecker) CheckHealth(ctx context.Context) error {
	if c.Client == nil || !c.Client.Configured() {
		return errors.New("upstream api key not configured")
	}
	return nil
}

// IdentityProviderChecker pings the identity provider's health endpoint. A
// disabled verifier is healthy: the relay intentionally runs open without one.
type IdentityProviderChecker struct {
	Verifier *auth.Verifier
}

func (c IdentityProviderChecker) CheckHealth(ctx context.Context) error {
	if c.Verifier == nil {
		return nil
	}
	return c.Verifier.Ping(ctx)
}

// RateLimiterChecker publishes the tracked-client gauge on every probe. The
// limiter itself cannot fail, so the check always passes.
type RateLimiterChecker struct {
	Limiter *ratelimit.FixedWindow
}

func (c RateLimiterChecker) CheckHealth(ctx context.Context) error {
	if c.Limiter != nil {
		metrics.SetTrackedClients(int64(c.Limiter.Len()))
	}
	return nil
}
