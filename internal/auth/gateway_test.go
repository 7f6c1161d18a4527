// ABOUTME: Tests for the request authentication gateway middleware
// ABOUTME: Covers token auth, session precedence, anonymous fallthrough, and handshake bypass

package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shieldsync/shieldsync/internal/store"
)

// stubSessions returns a fixed principal for every request.
type stubSessions struct {
	principal *Principal
}

func (s *stubSessions) ResolveSession(r *http.Request) *Principal {
	return s.principal
}

func newGatewayFixture(t *testing.T, sessions SessionResolver) (*Gateway, *store.MockStore, TokenCodec) {
	t.Helper()
	st := store.NewMockStore()
	codec, err := NewJWTCodec(tokenTestSecret, time.Hour)
	if err != nil {
		t.Fatalf("NewJWTCodec() error = %v", err)
	}
	resolver := NewIdentityResolver(st, testHasher())
	return NewGateway(sessions, codec, resolver), st, codec
}

// runGateway sends a request through the middleware and returns the
// principal the inner handler observed.
func runGateway(t *testing.T, gw *Gateway, req *http.Request) *Principal {
	t.Helper()
	var got *Principal
	handler := gw.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), req)
	return got
}

func TestGateway_ValidBearerToken(t *testing.T) {
	gw, st, codec := newGatewayFixture(t, nil)
	seedUser(t, st, testHasher(), "alice@example.com", "Password1", store.RoleUser)

	token, err := codec.Encode("alice@example.com", store.RoleUser, time.Now())
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/notes", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	p := runGateway(t, gw, req)
	if p == nil || !p.Authenticated {
		t.Fatal("expected authenticated principal from valid token")
	}
	if p.Subject != "alice@example.com" {
		t.Errorf("Subject = %q, want %q", p.Subject, "alice@example.com")
	}
	if p.Role != store.RoleUser {
		t.Errorf("Role = %q, want %q", p.Role, store.RoleUser)
	}
}

func TestGateway_TokenRoleIsSignatureBound(t *testing.T) {
	gw, st, codec := newGatewayFixture(t, nil)

	// Stored role changed after issuance; the token keeps its embedded role
	// until expiry.
	user := seedUser(t, st, testHasher(), "carol@example.com", "Password1", store.RoleAdmin)
	token, err := codec.Encode("carol@example.com", store.RoleAdmin, time.Now())
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	user.Role = store.RoleUser
	if err := st.UpdateUser(context.Background(), user); err != nil {
		t.Fatalf("UpdateUser() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/notes", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	p := runGateway(t, gw, req)
	if p == nil || p.Role != store.RoleAdmin {
		t.Errorf("principal role = %v, want token-embedded %q", p, store.RoleAdmin)
	}
}

func TestGateway_SessionWinsOverToken(t *testing.T) {
	sessionPrincipal := &Principal{Subject: "session@example.com", Role: store.RoleFederated, Authenticated: true}
	gw, st, codec := newGatewayFixture(t, &stubSessions{principal: sessionPrincipal})
	seedUser(t, st, testHasher(), "token@example.com", "Password1", store.RoleUser)

	token, err := codec.Encode("token@example.com", store.RoleUser, time.Now())
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/notes", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	p := runGateway(t, gw, req)
	if p == nil || p.Subject != "session@example.com" {
		t.Errorf("principal = %v, session identity must win over the bearer token", p)
	}
}

func TestGateway_AnonymousFallthrough(t *testing.T) {
	gw, st, codec := newGatewayFixture(t, nil)
	seedUser(t, st, testHasher(), "alice@example.com", "Password1", store.RoleUser)

	expired, err := codec.Encode("alice@example.com", store.RoleUser, time.Now().Add(-2*time.Hour))
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	tests := []struct {
		name   string
		header string
	}{
		{name: "no header", header: ""},
		{name: "not bearer", header: "Basic abc123"},
		{name: "empty bearer", header: "Bearer "},
		{name: "garbage token", header: "Bearer not-a-token"},
		{name: "expired token", header: "Bearer " + expired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/notes", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if p := runGateway(t, gw, req); p != nil {
				t.Errorf("principal = %v, want nil (anonymous)", p)
			}
		})
	}
}

func TestGateway_DeletedAccountContinuesAnonymous(t *testing.T) {
	gw, _, codec := newGatewayFixture(t, nil)

	// Token subject was never provisioned (or was deleted since issuance)
	token, err := codec.Encode("ghost@example.com", store.RoleUser, time.Now())
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/notes", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	if p := runGateway(t, gw, req); p != nil {
		t.Errorf("principal = %v, want nil for nonexistent subject", p)
	}
}

func TestGateway_HandshakePathBypassed(t *testing.T) {
	gw, _, _ := newGatewayFixture(t, &stubSessions{
		principal: &Principal{Subject: "session@example.com", Role: store.RoleUser, Authenticated: true},
	})

	req := httptest.NewRequest(http.MethodGet, "/oauth2/authorize", nil)
	if p := runGateway(t, gw, req); p != nil {
		t.Errorf("principal = %v, handshake paths must not be intercepted", p)
	}
}

func TestGateway_ExistingPrincipalPreserved(t *testing.T) {
	gw, st, codec := newGatewayFixture(t, nil)
	seedUser(t, st, testHasher(), "other@example.com", "Password1", store.RoleUser)

	token, err := codec.Encode("other@example.com", store.RoleUser, time.Now())
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	installed := &Principal{Subject: "earlier@example.com", Role: store.RoleUser, Authenticated: true}
	req := httptest.NewRequest(http.MethodGet, "/notes", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req = req.WithContext(WithPrincipal(req.Context(), installed))

	p := runGateway(t, gw, req)
	if p == nil || p.Subject != "earlier@example.com" {
		t.Errorf("principal = %v, re-entry must keep the installed identity", p)
	}
}

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		name      string
		header    string
		wantToken string
		wantErr   bool
	}{
		{name: "valid", header: "Bearer abc.def.ghi", wantToken: "abc.def.ghi"},
		{name: "missing", header: "", wantErr: true},
		{name: "wrong scheme", header: "Basic abc", wantErr: true},
		{name: "empty token", header: "Bearer ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, errMsg := extractBearerToken(tt.header)
			if tt.wantErr && errMsg == "" {
				t.Error("expected an error message")
			}
			if !tt.wantErr && token != tt.wantToken {
				t.Errorf("token = %q, want %q", token, tt.wantToken)
			}
		})
	}
}
