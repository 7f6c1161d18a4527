// ABOUTME: IdentityResolver maps emails to principals for login and token validation
// ABOUTME: Enforces the uniform-failure rule so login cannot enumerate accounts

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shieldsync/shieldsync/internal/store"
)

// ErrUnauthenticated is the single failure outcome for login resolution.
// Unknown email and wrong password are indistinguishable through it.
var ErrUnauthenticated = errors.New("invalid email or password")

// IdentityResolver produces the canonical role and a loadable principal for
// an email, wrapping the user store and password hasher.
type IdentityResolver struct {
	users  store.UserStore
	hasher PasswordHasher
	logger *slog.Logger
}

// NewIdentityResolver creates an IdentityResolver.
func NewIdentityResolver(users store.UserStore, hasher PasswordHasher) *IdentityResolver {
	return &IdentityResolver{
		users:  users,
		hasher: hasher,
		logger: slog.Default().With("component", "auth"),
	}
}

// ResolveForLogin verifies an email/password pair and returns the resulting
// principal. Every failure path returns ErrUnauthenticated: no caller can
// tell "no such account" from "wrong password". Accounts provisioned by
// federated login carry an unusable credential and always fail here.
func (r *IdentityResolver) ResolveForLogin(ctx context.Context, email, password string) (*Principal, error) {
	user, err := r.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			// Burn a bcrypt comparison to keep timing constant
			dummyVerify(r.hasher, password)
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("looking up user: %w", err)
	}

	if user.PasswordUnusable {
		dummyVerify(r.hasher, password)
		return nil, ErrUnauthenticated
	}

	if !r.hasher.Verify(password, user.PasswordHash) {
		return nil, ErrUnauthenticated
	}

	role := user.Role
	if role == "" {
		role = store.RoleUser
	}

	return &Principal{
		Subject:       user.Email,
		Role:          role,
		Authenticated: true,
	}, nil
}

// ResolveForToken confirms the account behind a decoded token subject still
// exists and returns it. Used by the gateway after Decode; the role embedded
// in the token stays authoritative for the token's lifetime, this lookup is
// an existence check only.
func (r *IdentityResolver) ResolveForToken(ctx context.Context, subject string) (*store.User, error) {
	user, err := r.users.GetUserByEmail(ctx, subject)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("looking up token subject: %w", err)
	}
	return user, nil
}
