// ABOUTME: Mock Store implementation for testing
// ABOUTME: Allows tests to run without SQLite

package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MockStore is an in-memory Store implementation for testing.
type MockStore struct {
	mu         sync.RWMutex
	users      map[string]*User       // keyed by user ID
	emailIndex map[string]string      // keyed by email -> user ID
	notes      map[string]*Note       // keyed by note ID
	stats      map[string]*Statistics // keyed by user email
	sessions   map[string]*Session    // keyed by session ID
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		users:      make(map[string]*User),
		emailIndex: make(map[string]string),
		notes:      make(map[string]*Note),
		stats:      make(map[string]*Statistics),
		sessions:   make(map[string]*Session),
	}
}

// Ensure MockStore implements Store.
var _ Store = (*MockStore)(nil)

// CreateUser stores a new user, enforcing email uniqueness.
func (m *MockStore) CreateUser(ctx context.Context, user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.emailIndex[user.Email]; exists {
		return ErrEmailExists
	}

	// Make a copy to avoid external modification
	u := *user
	m.users[u.ID] = &u
	m.emailIndex[u.Email] = u.ID
	return nil
}

// GetUser retrieves a user by ID.
func (m *MockStore) GetUser(ctx context.Context, id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	u := *user
	return &u, nil
}

// GetUserByEmail retrieves a user by email.
func (m *MockStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.emailIndex[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	u := *m.users[id]
	return &u, nil
}

// ListUsers returns users ordered by creation time, newest first.
func (m *MockStore) ListUsers(ctx context.Context, limit, offset int) ([]*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make([]*User, 0, len(m.users))
	for _, u := range m.users {
		c := *u
		all = append(all, &c)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

// CountUsers returns the number of stored users.
func (m *MockStore) CountUsers(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.users), nil
}

// UpdateUser replaces the stored user with the same ID.
func (m *MockStore) UpdateUser(ctx context.Context, user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.users[user.ID]
	if !ok {
		return ErrUserNotFound
	}

	if user.Email != existing.Email {
		if _, taken := m.emailIndex[user.Email]; taken {
			return ErrEmailExists
		}
		delete(m.emailIndex, existing.Email)
		m.emailIndex[user.Email] = user.ID
	}

	u := *user
	u.UpdatedAt = time.Now()
	m.users[u.ID] = &u
	return nil
}

// DeleteUser removes a user by ID.
func (m *MockStore) DeleteUser(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[id]
	if !ok {
		return ErrUserNotFound
	}
	delete(m.emailIndex, user.Email)
	delete(m.users, id)
	return nil
}

// CreateNote stores a new note.
func (m *MockStore) CreateNote(ctx context.Context, note *Note) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := *note
	m.notes[n.ID] = &n
	return nil
}

// GetNote retrieves a note by ID regardless of owner.
func (m *MockStore) GetNote(ctx context.Context, id string) (*Note, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	note, ok := m.notes[id]
	if !ok {
		return nil, ErrNoteNotFound
	}
	n := *note
	return &n, nil
}

// GetNoteForUser retrieves a note by ID scoped to its owner.
func (m *MockStore) GetNoteForUser(ctx context.Context, id, userID string) (*Note, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	note, ok := m.notes[id]
	if !ok || note.UserID != userID {
		return nil, ErrNoteNotFound
	}
	n := *note
	return &n, nil
}

// ListNotesByUser returns notes owned by a user, most recently updated first.
func (m *MockStore) ListNotesByUser(ctx context.Context, userID string) ([]*Note, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var notes []*Note
	for _, note := range m.notes {
		if note.UserID == userID {
			n := *note
			notes = append(notes, &n)
		}
	}
	sort.Slice(notes, func(i, j int) bool {
		return notes[i].UpdatedAt.After(notes[j].UpdatedAt)
	})
	return notes, nil
}

// UpdateNote updates a note scoped to its owner.
func (m *MockStore) UpdateNote(ctx context.Context, note *Note) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.notes[note.ID]
	if !ok || existing.UserID != note.UserID {
		return ErrNoteNotFound
	}

	existing.Title = note.Title
	existing.Content = note.Content
	existing.UpdatedAt = time.Now()
	return nil
}

// DeleteNoteForUser removes a note by ID scoped to its owner.
func (m *MockStore) DeleteNoteForUser(ctx context.Context, id, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	note, ok := m.notes[id]
	if !ok || note.UserID != userID {
		return ErrNoteNotFound
	}
	delete(m.notes, id)
	return nil
}

// GetStatsByEmail retrieves statistics for a user by email.
func (m *MockStore) GetStatsByEmail(ctx context.Context, email string) (*Statistics, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats, ok := m.stats[email]
	if !ok {
		return nil, ErrStatsNotFound
	}
	st := *stats
	return &st, nil
}

// SaveStats upserts the statistics row keyed by email.
func (m *MockStore) SaveStats(ctx context.Context, stats *Statistics) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := *stats
	st.UpdatedAt = time.Now()
	m.stats[st.UserEmail] = &st
	return nil
}

// CreateSession stores a new session.
func (m *MockStore) CreateSession(ctx context.Context, session *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := *session
	m.sessions[s.ID] = &s
	return nil
}

// GetSession retrieves a session by ID, treating expired sessions as absent.
func (m *MockStore) GetSession(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[id]
	if !ok || time.Now().After(session.ExpiresAt) {
		return nil, ErrSessionNotFound
	}
	s := *session
	return &s, nil
}

// DeleteSession removes a session by ID.
func (m *MockStore) DeleteSession(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, id)
	return nil
}

// DeleteExpiredSessions removes all sessions past their expiry.
func (m *MockStore) DeleteExpiredSessions(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for id, session := range m.sessions {
		if now.After(session.ExpiresAt) {
			delete(m.sessions, id)
		}
	}
	return nil
}

// Close is a no-op for the mock store.
func (m *MockStore) Close() error {
	return nil
}
