package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/user-auth-api/internal/model"
)

// SessionRepo persists bearer sessions in the `sessions` table.  A row keyed
// by the token's jti is what keeps a bearer token valid.
type SessionRepo struct{ DB *sql.DB }

func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{DB: db} }

// Create inserts a session row.
func (r *SessionRepo) Create(ctx context.Context, s model.Session) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO sessions (id, user_id, expires_at, created_at) VALUES (?,?,?,?)",
		s.ID, s.UserID, s.ExpiresAt.UTC(), s.CreatedAt.UTC())
	return err
}

// Get returns a live session.  Missing and expired sessions both yield
// ErrNotFound.
func (r *SessionRepo) Get(ctx context.Context, id string) (model.Session, error) {
	var s model.Session
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, user_id, expires_at, created_at FROM sessions WHERE id=? LIMIT 1",
		id).Scan(&s.ID, &s.UserID, &s.ExpiresAt, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Session{}, ErrNotFound
	}
	if err != nil {
		return model.Session{}, err
	}
	if !time.Now().UTC().Before(s.ExpiresAt) {
		return model.Session{}, ErrNotFound
	}
	return s, nil
}

// Delete revokes one session.  Deleting an absent session is not an error.
func (r *SessionRepo) Delete(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM sessions WHERE id=?", id)
	return err
}

// DeleteAllForUser revokes every session of a user.
func (r *SessionRepo) DeleteAllForUser(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM sessions WHERE user_id=?", userID)
	return err
}
