package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/user-auth-api/internal/model"
)

var sessionCols = []string{"id", "user_id", "expires_at", "created_at"}

func TestSessionRepo_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSessionRepo(db)
	now := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sessions (id, user_id, expires_at, created_at) VALUES (?,?,?,?)")).
		WithArgs("jti-1", int64(5), now.Add(time.Hour), now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), model.Session{ID: "jti-1", UserID: 5, ExpiresAt: now.Add(time.Hour), CreatedAt: now})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepo_Get(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSessionRepo(db)
	now := time.Now().UTC()
	q := regexp.QuoteMeta("SELECT id, user_id, expires_at, created_at FROM sessions WHERE id=? LIMIT 1")

	mock.ExpectQuery(q).WithArgs("live").
		WillReturnRows(sqlmock.NewRows(sessionCols).AddRow("live", 5, now.Add(time.Hour), now))
	mock.ExpectQuery(q).WithArgs("stale").
		WillReturnRows(sqlmock.NewRows(sessionCols).AddRow("stale", 5, now.Add(-time.Minute), now.Add(-time.Hour)))
	mock.ExpectQuery(q).WithArgs("gone").
		WillReturnRows(sqlmock.NewRows(sessionCols))

	s, err := repo.Get(context.Background(), "live")
	require.NoError(t, err)
	assert.Equal(t, uint64(5), s.UserID)

	_, err = repo.Get(context.Background(), "stale")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.Get(context.Background(), "gone")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepo_Delete(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSessionRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM sessions WHERE id=?")).
		WithArgs("jti-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM sessions WHERE user_id=?")).
		WithArgs(int64(5)).WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, repo.Delete(context.Background(), "jti-1"))
	require.NoError(t, repo.DeleteAllForUser(context.Background(), 5))
	require.NoError(t, mock.ExpectationsWereMet())
}
