// ABOUTME: Resource-ownership check distinguishing absent from foreign-owned notes
// ABOUTME: Two-step scoped-then-unscoped lookup used by note read/update/delete

package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/shieldsync/shieldsync/internal/store"
)

// ErrNotOwner is returned when a resource exists but belongs to someone else.
var ErrNotOwner = errors.New("you do not have access to this resource")

// OwnershipGuard performs resource-level authorization keyed on owner
// identity rather than role.
type OwnershipGuard struct {
	notes store.NoteStore
}

// NewOwnershipGuard creates an OwnershipGuard over the given note store.
func NewOwnershipGuard(notes store.NoteStore) *OwnershipGuard {
	return &OwnershipGuard{notes: notes}
}

// CheckOwnership resolves a note for a caller. The scoped lookup runs first;
// only when it misses does the unscoped lookup decide between
// store.ErrNoteNotFound (no such note) and ErrNotOwner (exists, foreign).
// Revealing existence to authenticated callers is deliberate here; the
// enumeration defense applies to login only.
func (g *OwnershipGuard) CheckOwnership(ctx context.Context, noteID, callerUserID string) (*store.Note, error) {
	note, err := g.notes.GetNoteForUser(ctx, noteID, callerUserID)
	if err == nil {
		return note, nil
	}
	if !errors.Is(err, store.ErrNoteNotFound) {
		return nil, fmt.Errorf("scoped note lookup: %w", err)
	}

	_, err = g.notes.GetNote(ctx, noteID)
	if errors.Is(err, store.ErrNoteNotFound) {
		return nil, store.ErrNoteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("unscoped note lookup: %w", err)
	}
	return nil, ErrNotOwner
}
