// ABOUTME: Tests for federated login completion and just-in-time provisioning
// ABOUTME: Covers first-login provisioning, idempotency, and role preservation

package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shieldsync/shieldsync/internal/store"
)

func newFederatedHandler(t *testing.T, st *store.MockStore) *FederatedLoginHandler {
	t.Helper()
	codec, err := NewJWTCodec(tokenTestSecret, time.Hour)
	if err != nil {
		t.Fatalf("NewJWTCodec() error = %v", err)
	}
	return NewFederatedLoginHandler(st, testHasher(), codec)
}

func TestCompleteLogin_ProvisionsNewAccount(t *testing.T) {
	st := store.NewMockStore()
	handler := newFederatedHandler(t, st)

	p, token, err := handler.CompleteLogin(context.Background(), IdentityClaims{
		Email:       "new@example.com",
		DisplayName: "New Person",
	})
	if err != nil {
		t.Fatalf("CompleteLogin() error = %v", err)
	}

	if p.Subject != "new@example.com" {
		t.Errorf("Subject = %q, want %q", p.Subject, "new@example.com")
	}
	if p.Role != store.RoleUser {
		t.Errorf("Role = %q, want %q", p.Role, store.RoleUser)
	}
	if token == "" {
		t.Error("CompleteLogin() returned empty token")
	}

	user, err := st.GetUserByEmail(context.Background(), "new@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail() error = %v", err)
	}
	if user.Username != "New" {
		t.Errorf("Username = %q, want first display name token %q", user.Username, "New")
	}
	if !user.PasswordUnusable {
		t.Error("PasswordUnusable = false, want true for provisioned account")
	}
}

func TestCompleteLogin_Idempotent(t *testing.T) {
	st := store.NewMockStore()
	handler := newFederatedHandler(t, st)
	claims := IdentityClaims{Email: "repeat@example.com", DisplayName: "Repeat"}

	if _, _, err := handler.CompleteLogin(context.Background(), claims); err != nil {
		t.Fatalf("first CompleteLogin() error = %v", err)
	}
	if _, _, err := handler.CompleteLogin(context.Background(), claims); err != nil {
		t.Fatalf("second CompleteLogin() error = %v", err)
	}

	count, err := st.CountUsers(context.Background())
	if err != nil {
		t.Fatalf("CountUsers() error = %v", err)
	}
	if count != 1 {
		t.Errorf("CountUsers() = %d, want 1 after two logins for one email", count)
	}
}

func TestCompleteLogin_ExistingAccountKeepsRole(t *testing.T) {
	st := store.NewMockStore()
	h := testHasher()
	seedUser(t, st, h, "boss@example.com", "Password1", store.RoleAdmin)

	handler := newFederatedHandler(t, st)
	p, _, err := handler.CompleteLogin(context.Background(), IdentityClaims{Email: "boss@example.com"})
	if err != nil {
		t.Fatalf("CompleteLogin() error = %v", err)
	}
	if p.Role != store.RoleAdmin {
		t.Errorf("Role = %q, want stored role %q", p.Role, store.RoleAdmin)
	}
}

func TestCompleteLogin_MissingEmail(t *testing.T) {
	st := store.NewMockStore()
	handler := newFederatedHandler(t, st)

	_, _, err := handler.CompleteLogin(context.Background(), IdentityClaims{DisplayName: "No Email"})
	if !errors.Is(err, ErrInvalidFederatedIdentity) {
		t.Errorf("CompleteLogin() error = %v, want ErrInvalidFederatedIdentity", err)
	}
}

func TestUsernameFromClaims(t *testing.T) {
	tests := []struct {
		name   string
		claims IdentityClaims
		want   string
	}{
		{
			name:   "first token of display name",
			claims: IdentityClaims{Email: "x@example.com", DisplayName: "Ada Lovelace"},
			want:   "Ada",
		},
		{
			name:   "email local part fallback",
			claims: IdentityClaims{Email: "plain@example.com"},
			want:   "plain",
		},
		{
			name:   "whitespace display name falls back",
			claims: IdentityClaims{Email: "ws@example.com", DisplayName: "   "},
			want:   "ws",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := usernameFromClaims(tt.claims); got != tt.want {
				t.Errorf("usernameFromClaims() = %q, want %q", got, tt.want)
			}
		})
	}
}
