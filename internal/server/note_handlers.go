// ABOUTME: Note CRUD HTTP handlers with ownership enforcement
// ABOUTME: Maps guard outcomes to 403/404 and renders markdown via goldmark

package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/yuin/goldmark"

	"github.com/shieldsync/shieldsync/internal/auth"
	"github.com/shieldsync/shieldsync/internal/store"
)

// NoteRequest is the JSON request body for note create/update.
type NoteRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// NoteResponse is the JSON shape for a note record.
type NoteResponse struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

func noteResponse(n *store.Note) NoteResponse {
	return NoteResponse{
		ID:        n.ID,
		UserID:    n.UserID,
		Title:     n.Title,
		Content:   n.Content,
		CreatedAt: n.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: n.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// handleCreateNote handles POST /notes.
func (s *Server) handleCreateNote(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.callerUser(w, r)
	if !ok {
		return
	}

	var req NoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title == "" {
		s.writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	now := time.Now()
	note := &store.Note{
		ID:        uuid.NewString(),
		UserID:    caller.ID,
		Title:     req.Title,
		Content:   req.Content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.CreateNote(r.Context(), note); err != nil {
		s.logger.Error("failed to create note", "error", err)
		s.writeError(w, http.StatusInternalServerError, "an unexpected error occurred")
		return
	}

	s.writeJSON(w, http.StatusCreated, map[string]any{
		"message":   "Note created successfully",
		"id":        note.ID,
		"title":     note.Title,
		"content":   note.Content,
		"userId":    note.UserID,
		"createdAt": note.CreatedAt.UTC().Format(time.RFC3339),
	})
}

// handleListNotes handles GET /notes; only the caller's own notes are listed.
func (s *Server) handleListNotes(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.callerUser(w, r)
	if !ok {
		return
	}

	notes, err := s.store.ListNotesByUser(r.Context(), caller.ID)
	if err != nil {
		s.logger.Error("failed to list notes", "error", err)
		s.writeError(w, http.StatusInternalServerError, "an unexpected error occurred")
		return
	}

	resp := make([]NoteResponse, 0, len(notes))
	for _, n := range notes {
		resp = append(resp, noteResponse(n))
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"notes": resp,
		"total": len(resp),
	})
}

// guardedNote resolves a note through the ownership guard and writes the
// 403/404 outcome when the caller may not have it.
func (s *Server) guardedNote(w http.ResponseWriter, r *http.Request, callerID string) (*store.Note, bool) {
	note, err := s.guard.CheckOwnership(r.Context(), r.PathValue("id"), callerID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNoteNotFound):
			s.writeError(w, http.StatusNotFound, "note not found")
		case errors.Is(err, auth.ErrNotOwner):
			s.writeError(w, http.StatusForbidden, "you do not have access to this note")
		default:
			s.logger.Error("ownership check failed", "error", err)
			s.writeError(w, http.StatusInternalServerError, "an unexpected error occurred")
		}
		return nil, false
	}
	return note, true
}

// handleGetNote handles GET /notes/{id}.
func (s *Server) handleGetNote(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.callerUser(w, r)
	if !ok {
		return
	}
	note, ok := s.guardedNote(w, r, caller.ID)
	if !ok {
		return
	}

	s.writeJSON(w, http.StatusOK, noteResponse(note))
}

// handleGetNoteHTML handles GET /notes/{id}/html. Note content is markdown;
// the extension popup displays the converted HTML.
func (s *Server) handleGetNoteHTML(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.callerUser(w, r)
	if !ok {
		return
	}
	note, ok := s.guardedNote(w, r, caller.ID)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(note.Content), &buf); err != nil {
		s.logger.Error("failed to convert markdown", "error", err, "note_id", note.ID)
		s.writeError(w, http.StatusInternalServerError, "an unexpected error occurred")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// handleUpdateNote handles PUT /notes/{id}.
func (s *Server) handleUpdateNote(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.callerUser(w, r)
	if !ok {
		return
	}
	note, ok := s.guardedNote(w, r, caller.ID)
	if !ok {
		return
	}

	var req NoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title == "" {
		s.writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	note.Title = req.Title
	note.Content = req.Content
	if err := s.store.UpdateNote(r.Context(), note); err != nil {
		if errors.Is(err, store.ErrNoteNotFound) {
			s.writeError(w, http.StatusNotFound, "note not found")
			return
		}
		s.logger.Error("failed to update note", "error", err)
		s.writeError(w, http.StatusInternalServerError, "an unexpected error occurred")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"message":   "Note updated successfully",
		"id":        note.ID,
		"title":     note.Title,
		"content":   note.Content,
		"updatedAt": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleDeleteNote handles DELETE /notes/{id}.
func (s *Server) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.callerUser(w, r)
	if !ok {
		return
	}
	if _, ok := s.guardedNote(w, r, caller.ID); !ok {
		return
	}

	if err := s.store.DeleteNoteForUser(r.Context(), r.PathValue("id"), caller.ID); err != nil {
		if errors.Is(err, store.ErrNoteNotFound) {
			s.writeError(w, http.StatusNotFound, "note not found")
			return
		}
		s.logger.Error("failed to delete note", "error", err)
		s.writeError(w, http.StatusInternalServerError, "an unexpected error occurred")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"message": "Note deleted successfully",
		"id":      r.PathValue("id"),
	})
}
