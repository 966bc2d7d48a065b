package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Session is one client session that owns a set of snapshots.
type Session struct {
	ID         string
	StartedAt  time.Time
	LastSeenAt time.Time
	Snapshots  int
}

// SessionRepository manages rows in the sessions table.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new [SessionRepository] with the given database connection
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Ensure creates the session if it does not exist, otherwise bumps last_seen_at.
func (r *SessionRepository) Ensure(ctx context.Context, id string) error {
	return ensureSession(ctx, r.db, id)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func ensureSession(ctx context.Context, db execer, id string) error {
	now := time.Now().UTC()
	query := `
		INSERT INTO sessions (id, started_at, last_seen_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET last_seen_at = excluded.last_seen_at
	`
	if _, err := db.ExecContext(ctx, query, id, now, now); err != nil {
		return fmt.Errorf("failed to ensure session %s: %w", id, err)
	}
	return nil
}

// Get retrieves a session with its snapshot count.
func (r *SessionRepository) Get(ctx context.Context, id string) (*Session, error) {
	query := `
		SELECT s.id, s.started_at, s.last_seen_at, COUNT(ss.key)
		FROM sessions s
		LEFT JOIN session_snapshots ss ON ss.session_id = s.id
		WHERE s.id = ?
		GROUP BY s.id
	`

	var s Session
	err := r.db.QueryRowContext(ctx, query, id).Scan(&s.ID, &s.StartedAt, &s.LastSeenAt, &s.Snapshots)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}
	return &s, nil
}

// List returns every session, most recently seen first.
func (r *SessionRepository) List(ctx context.Context) ([]*Session, error) {
	query := `
		SELECT s.id, s.started_at, s.last_seen_at, COUNT(ss.key)
		FROM sessions s
		LEFT JOIN session_snapshots ss ON ss.session_id = s.id
		GROUP BY s.id
		ORDER BY s.last_seen_at DESC, s.id ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		var s Session
		if err := rows.Scan(&s.ID, &s.StartedAt, &s.LastSeenAt, &s.Snapshots); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, &s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}
	return sessions, nil
}

// End deletes the session and every snapshot it owns.
//
// Ending a session that does not exist is not an error.
func (r *SessionRepository) End(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM session_snapshots WHERE session_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete snapshots: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit session delete: %w", err)
	}
	return nil
}
