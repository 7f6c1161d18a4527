// ABOUTME: Federated login completion with just-in-time account provisioning
// ABOUTME: Converts verified OAuth2 identity claims into a local principal and token

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shieldsync/shieldsync/internal/store"
)

// ErrInvalidFederatedIdentity is returned when the identity provider's claims
// lack a usable email.
var ErrInvalidFederatedIdentity = errors.New("federated identity has no email")

// IdentityClaims is the verified claim set produced by the OAuth2 exchange.
type IdentityClaims struct {
	Email       string
	DisplayName string
}

// FederatedLoginHandler completes a federated login: it provisions a local
// account on first sight of an email and builds the authenticated principal.
type FederatedLoginHandler struct {
	users  store.UserStore
	hasher PasswordHasher
	codec  TokenCodec
	logger *slog.Logger
}

// NewFederatedLoginHandler creates a FederatedLoginHandler.
func NewFederatedLoginHandler(users store.UserStore, hasher PasswordHasher, codec TokenCodec) *FederatedLoginHandler {
	return &FederatedLoginHandler{
		users:  users,
		hasher: hasher,
		codec:  codec,
		logger: slog.Default().With("component", "auth"),
	}
}

// CompleteLogin turns verified identity claims into a principal and a minted
// bearer token, creating the local account if it doesn't exist yet.
// Provisioning is idempotent: a second call for the same email never creates
// a duplicate. Newly provisioned accounts get the plain user role and a
// randomly generated unusable credential; existing accounts keep their
// stored role.
func (h *FederatedLoginHandler) CompleteLogin(ctx context.Context, claims IdentityClaims) (*Principal, string, error) {
	if claims.Email == "" {
		return nil, "", ErrInvalidFederatedIdentity
	}

	user, err := h.users.GetUserByEmail(ctx, claims.Email)
	if errors.Is(err, store.ErrUserNotFound) {
		user, err = h.provision(ctx, claims)
	}
	if err != nil {
		return nil, "", err
	}

	role := user.Role
	if role == "" {
		role = store.RoleUser
	}

	// The locally resolved role is the one authorization keys on, whatever
	// generic authorities the upstream provider asserted.
	principal := &Principal{
		Subject:       user.Email,
		Role:          role,
		Authenticated: true,
	}

	token, err := h.codec.Encode(user.Email, role, time.Now())
	if err != nil {
		return nil, "", fmt.Errorf("minting token: %w", err)
	}

	h.logger.Info("federated login completed", "email", user.Email, "role", role)
	return principal, token, nil
}

// provision creates a local account from identity claims. If another request
// provisions the same email concurrently, the store's unique constraint wins
// and the existing record is re-read.
func (h *FederatedLoginHandler) provision(ctx context.Context, claims IdentityClaims) (*store.User, error) {
	placeholder, err := GenerateUnusablePassword()
	if err != nil {
		return nil, err
	}
	hash, err := h.hasher.Hash(placeholder)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := &store.User{
		ID:               uuid.NewString(),
		Username:         usernameFromClaims(claims),
		Email:            claims.Email,
		PasswordHash:     hash,
		PasswordUnusable: true,
		Role:             store.RoleUser,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	err = h.users.CreateUser(ctx, user)
	if errors.Is(err, store.ErrEmailExists) {
		// Lost a provisioning race; the account exists now
		return h.users.GetUserByEmail(ctx, claims.Email)
	}
	if err != nil {
		return nil, fmt.Errorf("provisioning user: %w", err)
	}

	h.logger.Info("provisioned federated account", "email", user.Email, "username", user.Username)
	return user, nil
}

// usernameFromClaims derives a username from the display name's first token,
// falling back to the email's local part.
func usernameFromClaims(claims IdentityClaims) string {
	if name := strings.TrimSpace(claims.DisplayName); name != "" {
		return strings.Fields(name)[0]
	}
	local, _, _ := strings.Cut(claims.Email, "@")
	return local
}
