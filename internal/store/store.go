// ABOUTME: Store interfaces and data types for shieldsync persistence
// ABOUTME: Defines User, Note, Statistics, Session structs and per-entity store interfaces

package store

import (
	"context"
	"errors"
	"time"
)

// ErrUserNotFound is returned when a requested user does not exist.
var ErrUserNotFound = errors.New("user not found")

// ErrEmailExists is returned when creating a user with an already-registered email.
var ErrEmailExists = errors.New("email already registered")

// ErrNoteNotFound is returned when a requested note does not exist.
var ErrNoteNotFound = errors.New("note not found")

// ErrStatsNotFound is returned when no statistics row exists for a user.
var ErrStatsNotFound = errors.New("statistics not found")

// ErrSessionNotFound is returned when a session doesn't exist or is expired.
var ErrSessionNotFound = errors.New("session not found")

// Role constants. A user's role is assigned once at creation and is the
// single authority carried by every token minted for that user.
const (
	RoleUser      = "user"
	RoleAdmin     = "admin"
	RoleFederated = "federated"
)

// User represents a registered account. Federated accounts carry an unusable
// password hash and can never authenticate via password.
type User struct {
	ID               string
	Username         string
	Email            string
	PasswordHash     string
	PasswordUnusable bool
	Role             string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Note represents a personal note owned by exactly one user.
type Note struct {
	ID        string
	UserID    string
	Title     string
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Statistics tracks blocking counters reported by the browser extension.
// TimeSavedHours is derived: ads cost 2.0s each, trackers 0.5s each.
type Statistics struct {
	ID              string
	UserEmail       string
	AdsBlocked      int
	TrackersBlocked int
	TimeSavedHours  float64
	UpdatedAt       time.Time
}

// IncrementAdsBlocked adds count blocked ads and credits the saved time.
func (s *Statistics) IncrementAdsBlocked(count int) {
	s.AdsBlocked += count
	s.TimeSavedHours += float64(count) * 2.0 / 3600.0
}

// IncrementTrackersBlocked adds count blocked trackers and credits the saved time.
func (s *Statistics) IncrementTrackersBlocked(count int) {
	s.TrackersBlocked += count
	s.TimeSavedHours += float64(count) * 0.5 / 3600.0
}

// RecomputeTimeSaved rederives TimeSavedHours from the absolute counters.
// Used when the extension syncs totals rather than increments.
func (s *Statistics) RecomputeTimeSaved() {
	s.TimeSavedHours = (float64(s.AdsBlocked)*2.0 + float64(s.TrackersBlocked)*0.5) / 3600.0
}

// Session represents a server-side session created by a federated login.
type Session struct {
	ID        string
	UserEmail string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// UserStore defines user persistence operations.
type UserStore interface {
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	ListUsers(ctx context.Context, limit, offset int) ([]*User, error)
	CountUsers(ctx context.Context) (int, error)
	UpdateUser(ctx context.Context, user *User) error
	DeleteUser(ctx context.Context, id string) error
}

// NoteStore defines note persistence operations. GetNoteForUser is scoped to
// an owner; GetNote is unscoped and exists so callers can tell "absent" apart
// from "owned by someone else".
type NoteStore interface {
	CreateNote(ctx context.Context, note *Note) error
	GetNote(ctx context.Context, id string) (*Note, error)
	GetNoteForUser(ctx context.Context, id, userID string) (*Note, error)
	ListNotesByUser(ctx context.Context, userID string) ([]*Note, error)
	UpdateNote(ctx context.Context, note *Note) error
	DeleteNoteForUser(ctx context.Context, id, userID string) error
}

// StatsStore defines statistics persistence operations.
type StatsStore interface {
	GetStatsByEmail(ctx context.Context, email string) (*Statistics, error)
	SaveStats(ctx context.Context, stats *Statistics) error
}

// SessionStore defines server-side session persistence operations.
type SessionStore interface {
	CreateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	DeleteSession(ctx context.Context, id string) error
	DeleteExpiredSessions(ctx context.Context) error
}

// Store bundles all persistence interfaces behind a single handle.
type Store interface {
	UserStore
	NoteStore
	StatsStore
	SessionStore

	// Close releases any resources held by the store
	Close() error
}
