// ABOUTME: Tests for the SQLite store implementation
// ABOUTME: Covers user, note, statistics, and session persistence

package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	return store
}

func testUser(id, email string) *User {
	now := time.Now().UTC().Truncate(time.Second)
	return &User{
		ID:           id,
		Username:     "tester",
		Email:        email,
		PasswordHash: "$2a$10$hashhashhashhashhashhash",
		Role:         RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestNewSQLiteStore(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer store.Close()

	// Verify the database file was created
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "subdir", "nested", "test.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created in nested directory")
	}
}

func TestCreateAndGetUser(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	user := testUser("user-123", "alice@example.com")

	if err := store.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	got, err := store.GetUser(ctx, "user-123")
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if got.Email != user.Email {
		t.Errorf("Email = %q, want %q", got.Email, user.Email)
	}
	if got.Role != RoleUser {
		t.Errorf("Role = %q, want %q", got.Role, RoleUser)
	}
	if !got.CreatedAt.Equal(user.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, user.CreatedAt)
	}

	byEmail, err := store.GetUserByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail failed: %v", err)
	}
	if byEmail.ID != "user-123" {
		t.Errorf("ID = %q, want %q", byEmail.ID, "user-123")
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	if err := store.CreateUser(ctx, testUser("user-1", "dup@example.com")); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	err := store.CreateUser(ctx, testUser("user-2", "dup@example.com"))
	if !errors.Is(err, ErrEmailExists) {
		t.Errorf("CreateUser error = %v, want ErrEmailExists", err)
	}
}

func TestGetUser_NotFound(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	if _, err := store.GetUser(ctx, "nope"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("GetUser error = %v, want ErrUserNotFound", err)
	}
	if _, err := store.GetUserByEmail(ctx, "nope@example.com"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("GetUserByEmail error = %v, want ErrUserNotFound", err)
	}
}

func TestUpdateUser(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	user := testUser("user-123", "alice@example.com")
	if err := store.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	user.Username = "renamed"
	user.Role = RoleAdmin
	if err := store.UpdateUser(ctx, user); err != nil {
		t.Fatalf("UpdateUser failed: %v", err)
	}

	got, err := store.GetUser(ctx, "user-123")
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if got.Username != "renamed" {
		t.Errorf("Username = %q, want %q", got.Username, "renamed")
	}
	if got.Role != RoleAdmin {
		t.Errorf("Role = %q, want %q", got.Role, RoleAdmin)
	}
}

func TestUpdateUser_NotFound(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	err := store.UpdateUser(context.Background(), testUser("ghost", "ghost@example.com"))
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("UpdateUser error = %v, want ErrUserNotFound", err)
	}
}

func TestDeleteUser(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	if err := store.CreateUser(ctx, testUser("user-123", "alice@example.com")); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	if err := store.DeleteUser(ctx, "user-123"); err != nil {
		t.Fatalf("DeleteUser failed: %v", err)
	}
	if _, err := store.GetUser(ctx, "user-123"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("GetUser after delete error = %v, want ErrUserNotFound", err)
	}

	if err := store.DeleteUser(ctx, "user-123"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("second DeleteUser error = %v, want ErrUserNotFound", err)
	}
}

func TestListAndCountUsers(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		u := testUser(fmt.Sprintf("user-%d", i), fmt.Sprintf("u%d@example.com", i))
		u.CreatedAt = u.CreatedAt.Add(time.Duration(i) * time.Second)
		if err := store.CreateUser(ctx, u); err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}
	}

	count, err := store.CountUsers(ctx)
	if err != nil {
		t.Fatalf("CountUsers failed: %v", err)
	}
	if count != 5 {
		t.Errorf("CountUsers = %d, want 5", count)
	}

	users, err := store.ListUsers(ctx, 2, 0)
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("ListUsers returned %d users, want 2", len(users))
	}
	// Newest first
	if users[0].ID != "user-4" {
		t.Errorf("first user = %q, want user-4", users[0].ID)
	}

	page2, err := store.ListUsers(ctx, 2, 2)
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if len(page2) != 2 || page2[0].ID != "user-2" {
		t.Errorf("second page = %v, want to start at user-2", page2)
	}
}

func TestNoteCRUD(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	if err := store.CreateUser(ctx, testUser("owner-1", "owner@example.com")); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	note := &Note{
		ID:        "note-1",
		UserID:    "owner-1",
		Title:     "first",
		Content:   "hello",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := store.CreateNote(ctx, note); err != nil {
		t.Fatalf("CreateNote failed: %v", err)
	}

	got, err := store.GetNote(ctx, "note-1")
	if err != nil {
		t.Fatalf("GetNote failed: %v", err)
	}
	if got.Title != "first" {
		t.Errorf("Title = %q, want %q", got.Title, "first")
	}

	scoped, err := store.GetNoteForUser(ctx, "note-1", "owner-1")
	if err != nil {
		t.Fatalf("GetNoteForUser failed: %v", err)
	}
	if scoped.ID != "note-1" {
		t.Errorf("scoped note ID = %q, want note-1", scoped.ID)
	}

	// Scoped lookup with a foreign owner misses
	if _, err := store.GetNoteForUser(ctx, "note-1", "someone-else"); !errors.Is(err, ErrNoteNotFound) {
		t.Errorf("GetNoteForUser foreign error = %v, want ErrNoteNotFound", err)
	}

	note.Title = "updated"
	note.Content = "changed"
	if err := store.UpdateNote(ctx, note); err != nil {
		t.Fatalf("UpdateNote failed: %v", err)
	}
	got, err = store.GetNote(ctx, "note-1")
	if err != nil {
		t.Fatalf("GetNote failed: %v", err)
	}
	if got.Title != "updated" || got.Content != "changed" {
		t.Errorf("note after update = %+v", got)
	}

	// Update scoped to the wrong owner misses
	foreign := *note
	foreign.UserID = "someone-else"
	if err := store.UpdateNote(ctx, &foreign); !errors.Is(err, ErrNoteNotFound) {
		t.Errorf("UpdateNote foreign error = %v, want ErrNoteNotFound", err)
	}

	if err := store.DeleteNoteForUser(ctx, "note-1", "someone-else"); !errors.Is(err, ErrNoteNotFound) {
		t.Errorf("DeleteNoteForUser foreign error = %v, want ErrNoteNotFound", err)
	}
	if err := store.DeleteNoteForUser(ctx, "note-1", "owner-1"); err != nil {
		t.Fatalf("DeleteNoteForUser failed: %v", err)
	}
	if _, err := store.GetNote(ctx, "note-1"); !errors.Is(err, ErrNoteNotFound) {
		t.Errorf("GetNote after delete error = %v, want ErrNoteNotFound", err)
	}
}

func TestListNotesByUser(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	if err := store.CreateUser(ctx, testUser("owner-1", "owner@example.com")); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if err := store.CreateUser(ctx, testUser("owner-2", "other@example.com")); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	base := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 3; i++ {
		note := &Note{
			ID:        fmt.Sprintf("note-%d", i),
			UserID:    "owner-1",
			Title:     fmt.Sprintf("note %d", i),
			Content:   "x",
			CreatedAt: base,
			UpdatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := store.CreateNote(ctx, note); err != nil {
			t.Fatalf("CreateNote failed: %v", err)
		}
	}
	if err := store.CreateNote(ctx, &Note{
		ID: "foreign-note", UserID: "owner-2", Title: "other", Content: "y",
		CreatedAt: base, UpdatedAt: base,
	}); err != nil {
		t.Fatalf("CreateNote failed: %v", err)
	}

	notes, err := store.ListNotesByUser(ctx, "owner-1")
	if err != nil {
		t.Fatalf("ListNotesByUser failed: %v", err)
	}
	if len(notes) != 3 {
		t.Fatalf("ListNotesByUser returned %d notes, want 3", len(notes))
	}
	// Most recently updated first
	if notes[0].ID != "note-2" {
		t.Errorf("first note = %q, want note-2", notes[0].ID)
	}
}

func TestStatsUpsertAndGet(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()

	if _, err := store.GetStatsByEmail(ctx, "alice@example.com"); !errors.Is(err, ErrStatsNotFound) {
		t.Errorf("GetStatsByEmail error = %v, want ErrStatsNotFound", err)
	}

	stats := &Statistics{
		ID:              "stats-1",
		UserEmail:       "alice@example.com",
		AdsBlocked:      10,
		TrackersBlocked: 4,
	}
	stats.RecomputeTimeSaved()
	if err := store.SaveStats(ctx, stats); err != nil {
		t.Fatalf("SaveStats failed: %v", err)
	}

	got, err := store.GetStatsByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("GetStatsByEmail failed: %v", err)
	}
	if got.AdsBlocked != 10 || got.TrackersBlocked != 4 {
		t.Errorf("counters = %d/%d, want 10/4", got.AdsBlocked, got.TrackersBlocked)
	}

	// Second save for the same email updates in place
	got.IncrementAdsBlocked(5)
	if err := store.SaveStats(ctx, got); err != nil {
		t.Fatalf("second SaveStats failed: %v", err)
	}
	again, err := store.GetStatsByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("GetStatsByEmail failed: %v", err)
	}
	if again.AdsBlocked != 15 {
		t.Errorf("AdsBlocked = %d, want 15", again.AdsBlocked)
	}
}

func TestSessionLifecycle(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	session := &Session{
		ID:        "sess-1",
		UserEmail: "alice@example.com",
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}
	if err := store.CreateSession(ctx, session); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	got, err := store.GetSession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got.UserEmail != "alice@example.com" {
		t.Errorf("UserEmail = %q, want alice@example.com", got.UserEmail)
	}

	if err := store.DeleteSession(ctx, "sess-1"); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
	if _, err := store.GetSession(ctx, "sess-1"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("GetSession after delete error = %v, want ErrSessionNotFound", err)
	}

	// Deleting again is not an error
	if err := store.DeleteSession(ctx, "sess-1"); err != nil {
		t.Errorf("repeat DeleteSession failed: %v", err)
	}
}

func TestExpiredSessionTreatedAsAbsent(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	now := time.Now().UTC()

	expired := &Session{
		ID:        "sess-old",
		UserEmail: "alice@example.com",
		CreatedAt: now.Add(-2 * time.Hour),
		ExpiresAt: now.Add(-time.Hour),
	}
	if err := store.CreateSession(ctx, expired); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	if _, err := store.GetSession(ctx, "sess-old"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("GetSession error = %v, want ErrSessionNotFound for expired session", err)
	}

	live := &Session{
		ID:        "sess-new",
		UserEmail: "alice@example.com",
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}
	if err := store.CreateSession(ctx, live); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	if err := store.DeleteExpiredSessions(ctx); err != nil {
		t.Fatalf("DeleteExpiredSessions failed: %v", err)
	}
	if _, err := store.GetSession(ctx, "sess-new"); err != nil {
		t.Errorf("live session should survive cleanup: %v", err)
	}
}
