// ABOUTME: Registration and password-login HTTP handlers
// ABOUTME: Mints bearer tokens on success and keeps login failures uniform

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/shieldsync/shieldsync/internal/auth"
	"github.com/shieldsync/shieldsync/internal/store"
)

// RegisterRequest is the JSON request body for POST /users/register.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the JSON request body for POST /auth/login and /users/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// validatePassword enforces the password policy: at least 8 characters with
// one digit, one uppercase, and one lowercase letter.
func validatePassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}

	var hasDigit, hasUpper, hasLower bool
	for _, r := range password {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		}
	}
	if !hasDigit || !hasUpper || !hasLower {
		return fmt.Errorf("password must contain a digit, an uppercase letter, and a lowercase letter")
	}
	return nil
}

// handleRegister handles POST /users/register.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if req.Username == "" || req.Email == "" || !strings.Contains(req.Email, "@") {
		s.writeError(w, http.StatusBadRequest, "username and a valid email are required")
		return
	}
	if err := validatePassword(req.Password); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		s.logger.Error("failed to hash password", "error", err)
		s.writeError(w, http.StatusInternalServerError, "an unexpected error occurred")
		return
	}

	now := time.Now()
	user := &store.User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         store.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			s.writeError(w, http.StatusConflict, "email already registered")
			return
		}
		s.logger.Error("failed to create user", "error", err)
		s.writeError(w, http.StatusInternalServerError, "an unexpected error occurred")
		return
	}

	token, err := s.codec.Encode(user.Email, user.Role, time.Now())
	if err != nil {
		s.logger.Error("failed to mint token", "error", err)
		s.writeError(w, http.StatusInternalServerError, "an unexpected error occurred")
		return
	}

	s.logger.Info("user registered", "email", user.Email, "user_agent", r.Header.Get("User-Agent"))
	s.writeJSON(w, http.StatusCreated, map[string]any{
		"message":  "User created successfully",
		"token":    token,
		"userId":   user.ID,
		"username": user.Username,
		"email":    user.Email,
	})
}

// handleLogin handles POST /auth/login and POST /users/login. Failures are
// uniform: unknown email and wrong password produce the identical payload.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	principal, err := s.resolver.ResolveForLogin(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrUnauthenticated) {
			s.writeError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		s.logger.Error("login resolution failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "an unexpected error occurred")
		return
	}

	token, err := s.codec.Encode(principal.Subject, principal.Role, time.Now())
	if err != nil {
		s.logger.Error("failed to mint token", "error", err)
		s.writeError(w, http.StatusInternalServerError, "an unexpected error occurred")
		return
	}

	s.logger.Info("user logged in", "email", principal.Subject)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"message": "Login successful",
		"token":   token,
		"email":   principal.Subject,
		"role":    principal.Role,
	})
}

// handleLogout handles POST /auth/logout: it ends the server-side session if
// one exists. Bearer tokens are self-contained and simply expire.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.sessions.Destroy(w, r)
	s.writeJSON(w, http.StatusOK, map[string]any{"message": "Logged out"})
}
