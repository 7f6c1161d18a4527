// ABOUTME: Per-request authentication gateway middleware for HTTP
// ABOUTME: Reconciles session and bearer-token credentials into one principal

package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/shieldsync/shieldsync/internal/store"
)

// OAuth2 handshake prefixes bypass the gateway entirely; those endpoints
// manage their own context and must not be intercepted.
var handshakePrefixes = []string{"/oauth2/", "/login/oauth2/"}

// SessionResolver resolves a live server-side session on a request into a
// principal. Returns nil when the request carries no valid session.
type SessionResolver interface {
	ResolveSession(r *http.Request) *Principal
}

// SubjectResolver confirms a token subject still maps to an account.
type SubjectResolver interface {
	ResolveForToken(ctx context.Context, subject string) (*store.User, error)
}

// Gateway is the per-request authentication filter. For every inbound
// request it installs at most one Principal into the request context:
// session-derived if a live session exists, else token-derived from a valid
// bearer token, else none.
type Gateway struct {
	sessions SessionResolver
	codec    TokenCodec
	accounts SubjectResolver
	logger   *slog.Logger
}

// NewGateway creates an authentication gateway. sessions may be nil when no
// session-based flow is configured.
func NewGateway(sessions SessionResolver, codec TokenCodec, accounts SubjectResolver) *Gateway {
	return &Gateway{
		sessions: sessions,
		codec:    codec,
		accounts: accounts,
		logger:   slog.Default().With("component", "auth"),
	}
}

// isHandshakePath reports whether the path belongs to the OAuth2 handshake.
func isHandshakePath(path string) bool {
	for _, prefix := range handshakePrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// extractBearerToken extracts a bearer token from the Authorization header.
// Returns the token and an error message (empty if successful).
func extractBearerToken(authHeader string) (string, string) {
	if authHeader == "" {
		return "", "missing authorization header"
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", "invalid authorization header format"
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" {
		return "", "empty token"
	}
	return token, ""
}

// Middleware returns the HTTP middleware form of the gateway.
//
// Ordering matters: a user who just completed a federated login carries a
// live session, while a user who authenticated earlier via password carries
// only a bearer token. Session wins over token when both are present, and a
// stale or foreign bearer token never overrides an active session. Token
// decode failures are swallowed: the request continues anonymous and the
// authorization policy decides its fate.
func (g *Gateway) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isHandshakePath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		// Re-entry during the same request observes the installed context
		// rather than re-deriving it.
		if existing := PrincipalFromContext(r.Context()); existing != nil && existing.Authenticated {
			next.ServeHTTP(w, r)
			return
		}

		if g.sessions != nil {
			if p := g.sessions.ResolveSession(r); p != nil && p.Authenticated {
				next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
				return
			}
		}

		token, errMsg := extractBearerToken(r.Header.Get("Authorization"))
		if errMsg != "" {
			next.ServeHTTP(w, r) // Continue as anonymous
			return
		}

		claims, err := g.codec.Decode(token)
		if err != nil {
			g.logger.Debug("bearer token rejected", "error", err, "path", r.URL.Path)
			next.ServeHTTP(w, r)
			return
		}

		// Confirm the account still exists. The role stays the one embedded
		// in the token: validation is O(1) and signature-bound.
		if _, err := g.accounts.ResolveForToken(r.Context(), claims.Subject); err != nil {
			g.logger.Debug("token subject no longer resolvable", "subject", claims.Subject)
			next.ServeHTTP(w, r)
			return
		}

		p := &Principal{
			Subject:       claims.Subject,
			Role:          claims.Role,
			Authenticated: true,
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}
