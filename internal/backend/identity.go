package backend

import "context"

// identityKey is the context key under which the caller identity travels.
// Unexported to force use of WithUser / UserFrom.
type identityKey struct{}

// WithUser returns a context carrying the authenticated user identifier.
// The HTTP transport layer attaches it once per request; backend calls and
// cache gating read it back via UserFrom.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, identityKey{}, userID)
}

// UserFrom extracts the user identifier from ctx, or "" when no identity
// is present. Reads gated on identity are inert while this is empty.
func UserFrom(ctx context.Context) string {
	if s, ok := ctx.Value(identityKey{}).(string); ok {
		return s
	}
	return ""
}
