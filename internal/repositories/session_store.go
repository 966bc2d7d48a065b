package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/roster/internal/shared"
)

// SnapshotEntry describes one stored snapshot without decoding it.
type SnapshotEntry struct {
	Key       string
	Size      int
	Revision  int
	UpdatedAt time.Time
}

// SessionStore implements snapshot.Store over the session_snapshots table.
//
// Every read and write is scoped to a single session id. The session row is created on the first
// write.
type SessionStore struct {
	db      *sql.DB
	session string
}

// NewSessionStore creates a [SessionStore] bound to session.
func NewSessionStore(db *sql.DB, session string) *SessionStore {
	return &SessionStore{db: db, session: session}
}

// Session returns the session id this store is scoped to.
func (s *SessionStore) Session() string {
	return s.session
}

// Get returns the stored value for key, or [shared.ErrSnapshotNotFound].
func (s *SessionStore) Get(ctx context.Context, key string) ([]byte, error) {
	query := `SELECT value FROM session_snapshots WHERE session_id = ? AND key = ?`

	var value []byte
	err := s.db.QueryRowContext(ctx, query, s.session, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, shared.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot %s: %w", key, err)
	}
	return value, nil
}

// Set upserts value under key, incrementing its revision on overwrite.
func (s *SessionStore) Set(ctx context.Context, key string, value []byte) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := ensureSession(ctx, tx, s.session); err != nil {
		return err
	}

	query := `
		INSERT INTO session_snapshots (session_id, key, value, updated_at, revision) VALUES (?, ?, ?, ?, 1)
		ON CONFLICT(session_id, key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at,
			revision = session_snapshots.revision + 1
	`
	if _, err := tx.ExecContext(ctx, query, s.session, key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to write snapshot %s: %w", key, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot %s: %w", key, err)
	}
	return nil
}

// Delete removes key from the session. Deleting a missing key is not an error.
func (s *SessionStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM session_snapshots WHERE session_id = ? AND key = ?", s.session, key)
	if err != nil {
		return fmt.Errorf("failed to delete snapshot %s: %w", key, err)
	}
	return nil
}

// Entries lists the session's snapshots ordered by key.
func (s *SessionStore) Entries(ctx context.Context) ([]SnapshotEntry, error) {
	query := `
		SELECT key, LENGTH(value), revision, updated_at
		FROM session_snapshots
		WHERE session_id = ?
		ORDER BY key ASC
	`

	rows, err := s.db.QueryContext(ctx, query, s.session)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var entries []SnapshotEntry
	for rows.Next() {
		var e SnapshotEntry
		if err := rows.Scan(&e.Key, &e.Size, &e.Revision, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}
	return entries, nil
}
