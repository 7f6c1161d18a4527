// ABOUTME: Principal type and request context plumbing for authentication
// ABOUTME: Provides WithPrincipal/PrincipalFromContext for propagating identity

package auth

import (
	"context"
)

// Principal holds the resolved identity attached to an in-flight request.
// It is a closed record: exactly one subject and one authority, never
// persisted, lifetime of one request.
type Principal struct {
	Subject       string // email of the authenticated user
	Role          string // single canonical role: user, admin, federated
	Authenticated bool
}

// IsAdmin returns true if the principal carries the admin role.
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Authenticated && p.Role == "admin"
}

// principalKey is the key type for storing a Principal in context.Context.
type principalKey struct{}

// WithPrincipal returns a new context with the Principal attached.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext retrieves the Principal from the context, returning
// nil if not present.
func PrincipalFromContext(ctx context.Context) *Principal {
	val := ctx.Value(principalKey{})
	if val == nil {
		return nil
	}
	p, ok := val.(*Principal)
	if !ok {
		return nil
	}
	return p
}

// MustPrincipalFromContext retrieves the Principal from the context,
// panicking if not present. For handlers behind the authorization policy.
func MustPrincipalFromContext(ctx context.Context) *Principal {
	p := PrincipalFromContext(ctx)
	if p == nil {
		panic("auth: Principal not found in context")
	}
	return p
}
