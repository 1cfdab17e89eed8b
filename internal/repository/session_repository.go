package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/storyninja-api/internal/models"
)

// SessionRepository stores the single active session token per user.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs the repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Upsert overwrites the user's session token, invalidating whatever was there before.
func (r *SessionRepository) Upsert(ctx context.Context, userID, token string) error {
	const query = `INSERT INTO user_sessions (user_id, session_token, updated_at) VALUES ($1, $2, $3)
ON CONFLICT (user_id) DO UPDATE SET session_token = EXCLUDED.session_token, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.ExecContext(ctx, query, userID, token, time.Now().UTC()); err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

// InsertIfAbsent creates a row for token only when the user has none. It
// reports whether a row was written.
func (r *SessionRepository) InsertIfAbsent(ctx context.Context, userID, token string) (bool, error) {
	const query = `INSERT INTO user_sessions (user_id, session_token, updated_at) VALUES ($1, $2, $3) ON CONFLICT (user_id) DO NOTHING`
	res, err := r.db.ExecContext(ctx, query, userID, token, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("insert session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert session rows: %w", err)
	}
	return n > 0, nil
}

// Find returns the user's session or sql.ErrNoRows.
func (r *SessionRepository) Find(ctx context.Context, userID string) (*models.Session, error) {
	const query = `SELECT user_id, session_token, updated_at FROM user_sessions WHERE user_id = $1`
	var session models.Session
	if err := r.db.GetContext(ctx, &session, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	return &session, nil
}
