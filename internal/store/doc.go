// Package store provides persistent storage for shieldsync using SQLite.
//
// # Architecture
//
// The store package uses an interface-driven architecture with per-entity
// interfaces:
//
//   - UserStore: Account records keyed by ID and unique email
//   - NoteStore: Personal notes with owner-scoped and unscoped lookups
//   - StatsStore: Blocking statistics keyed by user email
//   - SessionStore: Server-side sessions created by federated logins
//
// SQLiteStore implements all interfaces in a single struct; the Store
// interface bundles them for callers that need the whole thing.
//
// # SQLite Configuration
//
// The store uses SQLite with WAL mode for concurrent reads:
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA foreign_keys=ON;
//
// # Error Handling
//
// Lookups return typed sentinel errors (ErrUserNotFound, ErrNoteNotFound,
// ErrStatsNotFound, ErrSessionNotFound); CreateUser maps the email unique
// constraint to ErrEmailExists. All methods accept context.Context for
// cancellation support.
//
// # Testing
//
// Use NewMockStore() for unit tests; it is an in-memory implementation of
// the full Store interface. Use NewSQLiteStore with a t.TempDir() path for
// integration tests against real SQLite.
package store
