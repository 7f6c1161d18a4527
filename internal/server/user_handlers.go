// ABOUTME: Profile and admin user-management HTTP handlers
// ABOUTME: Profile serves the caller's own record; list/update/delete are admin-only

package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/shieldsync/shieldsync/internal/auth"
	"github.com/shieldsync/shieldsync/internal/store"
)

// UserResponse is the JSON shape for a user record. Password material is
// never serialized.
type UserResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// UpdateUserRequest is the JSON request body for PUT /users/{id}.
type UpdateUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// callerUser loads the account behind the installed principal. The policy
// guarantees a principal exists on these routes; the account can still have
// vanished between token mint and now.
func (s *Server) callerUser(w http.ResponseWriter, r *http.Request) (*store.User, bool) {
	principal := auth.PrincipalFromContext(r.Context())
	if principal == nil || !principal.Authenticated {
		s.writeError(w, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}

	user, err := s.store.GetUserByEmail(r.Context(), principal.Subject)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			s.writeError(w, http.StatusNotFound, "user not found")
			return nil, false
		}
		s.logger.Error("failed to load caller", "error", err)
		s.writeError(w, http.StatusInternalServerError, "an unexpected error occurred")
		return nil, false
	}
	return user, true
}

// handleProfile handles GET /users/profile.
func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := s.callerUser(w, r)
	if !ok {
		return
	}

	s.writeJSON(w, http.StatusOK, UserResponse{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		Role:     user.Role,
	})
}

// handleListUsers handles GET /users with page/size query parameters.
// Admin-only by policy.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, err := strconv.Atoi(r.URL.Query().Get("size"))
	if err != nil || size <= 0 {
		size = 10
	}
	if page < 0 {
		page = 0
	}

	users, err := s.store.ListUsers(r.Context(), size, page*size)
	if err != nil {
		s.logger.Error("failed to list users", "error", err)
		s.writeError(w, http.StatusInternalServerError, "an unexpected error occurred")
		return
	}
	total, err := s.store.CountUsers(r.Context())
	if err != nil {
		s.logger.Error("failed to count users", "error", err)
		s.writeError(w, http.StatusInternalServerError, "an unexpected error occurred")
		return
	}

	resp := make([]UserResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, UserResponse{
			ID:       u.ID,
			Username: u.Username,
			Email:    u.Email,
			Role:     u.Role,
		})
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"users": resp,
		"total": total,
		"page":  page,
		"size":  size,
	})
}

// handleUpdateUser handles PUT /users/{id}. Admin-only by policy.
func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Email == "" {
		s.writeError(w, http.StatusBadRequest, "username and email are required")
		return
	}

	user, err := s.store.GetUser(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			s.writeError(w, http.StatusNotFound, "user not found")
			return
		}
		s.logger.Error("failed to load user", "error", err)
		s.writeError(w, http.StatusInternalServerError, "an unexpected error occurred")
		return
	}

	user.Username = req.Username
	user.Email = req.Email
	if req.Password != "" {
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
		user.PasswordHash = hash
		user.PasswordUnusable = false
	}

	if err := s.store.UpdateUser(r.Context(), user); err != nil {
		switch {
		case errors.Is(err, store.ErrUserNotFound):
			s.writeError(w, http.StatusNotFound, "user not found")
		case errors.Is(err, store.ErrEmailExists):
			s.writeError(w, http.StatusConflict, "email already registered")
		default:
			s.logger.Error("failed to update user", "error", err)
			s.writeError(w, http.StatusInternalServerError, "an unexpected error occurred")
		}
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"message": "User updated successfully",
		"userId":  id,
	})
}

// handleDeleteUser handles DELETE /users/{id}. Admin-only by policy.
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := s.store.DeleteUser(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			s.writeError(w, http.StatusNotFound, "user not found")
			return
		}
		s.logger.Error("failed to delete user", "error", err)
		s.writeError(w, http.StatusInternalServerError, "an unexpected error occurred")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"message": "User deleted successfully",
		"userId":  id,
	})
}
