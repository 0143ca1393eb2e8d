package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/user-auth-api/internal/model"
)

// PasswordResetRepo persists the `password_resets` table.
type PasswordResetRepo struct{ DB *sql.DB }

func NewPasswordResetRepo(db *sql.DB) *PasswordResetRepo { return &PasswordResetRepo{DB: db} }

// Replace drops every reset record of rec.Email and inserts rec, in one
// transaction, so an email never has more than one live token.
func (r *PasswordResetRepo) Replace(ctx context.Context, rec model.PasswordReset) (err error) {
	email := normalizeEmail(rec.Email)
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, "DELETE FROM password_resets WHERE email=?", email); err != nil {
		return fmt.Errorf("delete previous: %w", err)
	}
	if _, err = tx.ExecContext(ctx,
		"INSERT INTO password_resets (email, token, created_at, updated_at) VALUES (?,?,?,?)",
		email, rec.TokenHash, rec.CreatedAt.UTC(), rec.UpdatedAt.UTC()); err != nil {
		return fmt.Errorf("insert: %w", err)
	}
	return tx.Commit()
}

// FindByToken looks a record up by token digest.
func (r *PasswordResetRepo) FindByToken(ctx context.Context, tokenHash string) (model.PasswordReset, error) {
	var rec model.PasswordReset
	err := r.DB.QueryRowContext(ctx,
		"SELECT email, token, created_at, updated_at FROM password_resets WHERE token=? LIMIT 1",
		tokenHash).Scan(&rec.Email, &rec.TokenHash, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.PasswordReset{}, ErrNotFound
	}
	return rec, err
}

// Redeem spends the record holding tokenHash and stores passwordHash as the
// credential of userID in one transaction: the reset row is locked, the
// user's password_hash is overwritten and every reset record of the email is
// deleted before the commit.  A failed update rolls back and leaves the
// token usable.  ErrNotFound means the token is already gone (or the user
// is), so of two concurrent redeemers only one succeeds.
func (r *PasswordResetRepo) Redeem(ctx context.Context, tokenHash string, userID uint64, passwordHash string) (err error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var email string
	err = tx.QueryRowContext(ctx,
		"SELECT email FROM password_resets WHERE token=? LIMIT 1 FOR UPDATE", tokenHash).Scan(&email)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lock token: %w", err)
	}
	res, err := tx.ExecContext(ctx,
		"UPDATE users SET password_hash=?, updated_at=? WHERE id=?",
		passwordHash, time.Now().UTC().Truncate(time.Second), userID)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM password_resets WHERE email=?", email); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	return tx.Commit()
}

// Count returns the number of stored reset records.
func (r *PasswordResetRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM password_resets").Scan(&n)
	return n, err
}
