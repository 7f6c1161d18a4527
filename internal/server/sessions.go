// ABOUTME: Server-side session management for federated logins
// ABOUTME: Cookie-backed sessions resolved into principals by the auth gateway

package server

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/shieldsync/shieldsync/internal/auth"
	"github.com/shieldsync/shieldsync/internal/store"
)

const (
	// SessionCookieName is the name of the session cookie
	SessionCookieName = "shieldsync_session"

	// DefaultSessionDuration is how long sessions last when not configured
	DefaultSessionDuration = 7 * 24 * time.Hour
)

// SessionManager creates and resolves server-side sessions. It implements
// auth.SessionResolver for the authentication gateway.
type SessionManager struct {
	sessions store.SessionStore
	users    store.UserStore
	duration time.Duration
	logger   *slog.Logger
}

// NewSessionManager creates a SessionManager. A zero duration selects
// DefaultSessionDuration.
func NewSessionManager(sessions store.SessionStore, users store.UserStore, duration time.Duration) *SessionManager {
	if duration <= 0 {
		duration = DefaultSessionDuration
	}
	return &SessionManager{
		sessions: sessions,
		users:    users,
		duration: duration,
		logger:   slog.Default().With("component", "sessions"),
	}
}

// generateSecureToken returns a URL-safe random token of byteLen random bytes.
func generateSecureToken(byteLen int) (string, error) {
	buf := make([]byte, byteLen)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Create starts a session for an email and sets the cookie.
func (m *SessionManager) Create(w http.ResponseWriter, r *http.Request, email string) error {
	sessionID, err := generateSecureToken(32)
	if err != nil {
		return err
	}

	session := &store.Session{
		ID:        sessionID,
		UserEmail: email,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(m.duration),
	}

	if err := m.sessions.CreateSession(r.Context(), session); err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    sessionID,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	return nil
}

// Destroy deletes the request's session, if any, and clears the cookie.
func (m *SessionManager) Destroy(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		if err := m.sessions.DeleteSession(r.Context(), cookie.Value); err != nil {
			m.logger.Warn("failed to delete session", "error", err)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

// ResolveSession resolves the session cookie into a principal carrying the
// account's stored role. Returns nil for missing, expired, or orphaned
// sessions.
func (m *SessionManager) ResolveSession(r *http.Request) *auth.Principal {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}

	session, err := m.sessions.GetSession(r.Context(), cookie.Value)
	if err != nil {
		return nil
	}

	user, err := m.users.GetUserByEmail(r.Context(), session.UserEmail)
	if err != nil {
		if !errors.Is(err, store.ErrUserNotFound) {
			m.logger.Warn("failed to resolve session user", "error", err)
		}
		return nil
	}

	role := user.Role
	if role == "" {
		role = store.RoleUser
	}

	return &auth.Principal{
		Subject:       user.Email,
		Role:          role,
		Authenticated: true,
	}
}
