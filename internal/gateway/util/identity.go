package util

import "context"

// AuthUser is the caller identity resolved from a verified token. Tokens
// are issued by the external identity service; this layer only verifies
// them and enforces role gates.
type AuthUser struct {
	ID   string
	Role string
	Name string
}

type contextKey string

const userContextKey contextKey = "user"

// WithUser attaches the authenticated user to a context.
func WithUser(ctx context.Context, user *AuthUser) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext returns the authenticated user, or nil when the request
// did not pass through the auth middleware.
func UserFromContext(ctx context.Context) *AuthUser {
	user, ok := ctx.Value(userContextKey).(*AuthUser)
	if !ok {
		return nil
	}
	return user
}
