package auth

import "context"

// identityContextKey is a custom type to avoid context key collisions
type identityContextKey string

const identityKey identityContextKey = "identity"

// WithIdentity attaches the resolved identity to the request context.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFrom retrieves the identity attached by the auth middleware, or nil.
func IdentityFrom(ctx context.Context) *Identity {
	if identity, ok := ctx.Value(identityKey).(*Identity); ok {
		return identity
	}
	return nil
}
