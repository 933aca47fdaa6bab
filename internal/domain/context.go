package domain

import "context"

type contextKey int

const identityKey contextKey = iota

// WithIdentity returns a context carrying the resolved caller identity.
func WithIdentity(ctx context.Context, ident Identity) context.Context {
	return context.WithValue(ctx, identityKey, ident)
}

// IdentityFromContext extracts the caller identity placed by the auth
// middleware. The second return is false when no identity was resolved.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	ident, ok := ctx.Value(identityKey).(Identity)
	return ident, ok
}
