// ABOUTME: Tests for the note ownership guard
// ABOUTME: Distinguishes owned, foreign-owned, and absent notes

package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shieldsync/shieldsync/internal/store"
)

func TestCheckOwnership(t *testing.T) {
	st := store.NewMockStore()
	now := time.Now()
	note := &store.Note{
		ID:        "note-1",
		UserID:    "owner-1",
		Title:     "mine",
		Content:   "body",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := st.CreateNote(context.Background(), note); err != nil {
		t.Fatalf("CreateNote() error = %v", err)
	}

	guard := NewOwnershipGuard(st)

	t.Run("owned", func(t *testing.T) {
		got, err := guard.CheckOwnership(context.Background(), "note-1", "owner-1")
		if err != nil {
			t.Fatalf("CheckOwnership() error = %v", err)
		}
		if got.ID != "note-1" {
			t.Errorf("note ID = %q, want %q", got.ID, "note-1")
		}
	})

	t.Run("foreign owner", func(t *testing.T) {
		_, err := guard.CheckOwnership(context.Background(), "note-1", "intruder-9")
		if !errors.Is(err, ErrNotOwner) {
			t.Errorf("CheckOwnership() error = %v, want ErrNotOwner", err)
		}
	})

	t.Run("absent note", func(t *testing.T) {
		_, err := guard.CheckOwnership(context.Background(), "never-existed", "owner-1")
		if !errors.Is(err, store.ErrNoteNotFound) {
			t.Errorf("CheckOwnership() error = %v, want ErrNoteNotFound", err)
		}
	})
}
