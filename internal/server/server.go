// ABOUTME: HTTP server wiring for shieldsync: routes, middleware chain, JSON helpers
// ABOUTME: Applies security headers, CORS, authentication gateway, and route policy

package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/shieldsync/shieldsync/internal/auth"
	"github.com/shieldsync/shieldsync/internal/config"
	"github.com/shieldsync/shieldsync/internal/store"
)

// Server holds the HTTP surface and its collaborators.
type Server struct {
	store     store.Store
	codec     auth.TokenCodec
	hasher    auth.PasswordHasher
	resolver  *auth.IdentityResolver
	federated *auth.FederatedLoginHandler
	guard     *auth.OwnershipGuard
	gateway   *auth.Gateway
	policy    *auth.Policy
	sessions  *SessionManager
	oauth2    *oauth2Flow
	logger    *slog.Logger
}

// New creates a Server wired to the given store and configuration.
func New(st store.Store, cfg *config.Config) (*Server, error) {
	codec, err := auth.NewJWTCodec([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL)
	if err != nil {
		return nil, err
	}

	hasher := auth.NewBcryptHasher(0)
	resolver := auth.NewIdentityResolver(st, hasher)
	sessions := NewSessionManager(st, st, cfg.Auth.SessionTTL)

	s := &Server{
		store:     st,
		codec:     codec,
		hasher:    hasher,
		resolver:  resolver,
		federated: auth.NewFederatedLoginHandler(st, hasher, codec),
		guard:     auth.NewOwnershipGuard(st),
		gateway:   auth.NewGateway(sessions, codec, resolver),
		policy:    auth.DefaultPolicy(),
		sessions:  sessions,
		logger:    slog.Default().With("component", "server"),
	}

	if cfg.OAuth2.Enabled {
		s.oauth2 = newOAuth2Flow(cfg.OAuth2, s.federated, sessions)
	}

	return s, nil
}

// Handler returns the full middleware-wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.registerRoutes(mux)

	var h http.Handler = mux
	h = s.policy.Middleware(h)
	h = s.gateway.Middleware(h)
	h = corsMiddleware(h)
	h = securityHeadersMiddleware(h)
	return h
}

// registerRoutes registers all routes on the given mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /hello", s.handleHello)
	mux.HandleFunc("GET /healthz", s.handleHealthz)

	// Password authentication. /auth/login and /users/login are the same
	// operation; the extension predates the /auth prefix.
	mux.HandleFunc("POST /auth/login", s.handleLogin)
	mux.HandleFunc("POST /users/login", s.handleLogin)
	mux.HandleFunc("POST /auth/logout", s.handleLogout)
	mux.HandleFunc("POST /users/register", s.handleRegister)

	// Profile and admin user management
	mux.HandleFunc("GET /users/profile", s.handleProfile)
	mux.HandleFunc("GET /users", s.handleListUsers)
	mux.HandleFunc("PUT /users/{id}", s.handleUpdateUser)
	mux.HandleFunc("DELETE /users/{id}", s.handleDeleteUser)

	// Notes
	mux.HandleFunc("POST /notes", s.handleCreateNote)
	mux.HandleFunc("GET /notes", s.handleListNotes)
	mux.HandleFunc("GET /notes/{id}", s.handleGetNote)
	mux.HandleFunc("GET /notes/{id}/html", s.handleGetNoteHTML)
	mux.HandleFunc("PUT /notes/{id}", s.handleUpdateNote)
	mux.HandleFunc("DELETE /notes/{id}", s.handleDeleteNote)

	// Extension statistics
	mux.HandleFunc("GET /api/stats", s.handleGetStats)
	mux.HandleFunc("POST /api/stats/sync", s.handleSyncStats)
	mux.HandleFunc("POST /api/stats/increment/ads", s.handleIncrementAds)
	mux.HandleFunc("POST /api/stats/increment/trackers", s.handleIncrementTrackers)

	// OAuth2 handshake (bypassed by the auth gateway)
	if s.oauth2 != nil {
		mux.HandleFunc("GET /oauth2/authorize", s.oauth2.handleAuthorize)
		mux.HandleFunc("GET /login/oauth2/code", s.oauth2.handleCallback)
	}

	s.logger.Info("routes registered", "oauth2_enabled", s.oauth2 != nil)
}

// handleRoot is the landing path the OAuth2 flow redirects back to; the
// extension reads the query parameters, the body is informational.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"service": "shieldsync",
		"status":  "ok",
	})
}

// handleHello is a public echo endpoint used by the extension's connectivity check.
func (s *Server) handleHello(w http.ResponseWriter, r *http.Request) {
	userAgent := r.Header.Get("User-Agent")
	if userAgent == "" {
		userAgent = "Unknown"
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"message":   "Hello, user!",
		"userAgent": userAgent,
		"timestamp": time.Now().UnixMilli(),
	})
}

// handleHealthz reports liveness.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// writeJSON writes a JSON response with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

// writeError writes the uniform error body. Internal detail never leaks
// through this path; callers pass a caller-safe message.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"message": message})
}

// securityHeadersMiddleware sets the standard security headers on every response.
func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Content-Security-Policy", "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("X-XSS-Protection", "1; mode=block")
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware allows the browser extension origin to call the API with
// credentials. The origin is echoed because extensions have per-install
// origins that cannot be listed statically.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, PATCH")
			h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
			h.Set("Vary", "Origin")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
