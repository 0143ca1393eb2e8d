package repository

import (
	"context"
	"sync"
	"time"

	"github.com/iliyamo/user-auth-api/internal/model"
)

// MemoryUserRepo is an in-process users table.  Each instance is isolated,
// which gives tests a fresh store per scenario.
type MemoryUserRepo struct {
	mu     sync.Mutex
	nextID uint64
	byID   map[uint64]model.User
	email  map[string]uint64
}

func NewMemoryUserRepo() *MemoryUserRepo {
	return &MemoryUserRepo{byID: map[uint64]model.User{}, email: map[string]uint64{}}
}

func (r *MemoryUserRepo) Create(_ context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u.Email = normalizeEmail(u.Email)
	if _, ok := r.email[u.Email]; ok {
		return ErrEmailExists
	}
	r.nextID++
	now := time.Now().UTC().Truncate(time.Second)
	u.ID = r.nextID
	u.CreatedAt, u.UpdatedAt = now, now
	r.byID[u.ID] = *u
	r.email[u.Email] = u.ID
	return nil
}

func (r *MemoryUserRepo) GetByEmail(_ context.Context, email string) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.email[normalizeEmail(email)]
	if !ok {
		return model.User{}, ErrNotFound
	}
	return r.byID[id], nil
}

func (r *MemoryUserRepo) GetByID(_ context.Context, id uint64) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return model.User{}, ErrNotFound
	}
	return u, nil
}

func (r *MemoryUserRepo) UpdatePassword(_ context.Context, id uint64, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = hash
	u.UpdatedAt = time.Now().UTC().Truncate(time.Second)
	r.byID[id] = u
	return nil
}

func (r *MemoryUserRepo) Count(context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID), nil
}

// MemoryPasswordResetRepo is an in-process password_resets table.  Redeem
// writes the new credential into users.
type MemoryPasswordResetRepo struct {
	mu      sync.Mutex
	records []model.PasswordReset
	users   *MemoryUserRepo
}

func NewMemoryPasswordResetRepo(users *MemoryUserRepo) *MemoryPasswordResetRepo {
	return &MemoryPasswordResetRepo{users: users}
}

func (r *MemoryPasswordResetRepo) Replace(_ context.Context, rec model.PasswordReset) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec.Email = normalizeEmail(rec.Email)
	r.deleteEmailLocked(rec.Email)
	r.records = append(r.records, rec)
	return nil
}

func (r *MemoryPasswordResetRepo) FindByToken(_ context.Context, tokenHash string) (model.PasswordReset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.TokenHash == tokenHash {
			return rec, nil
		}
	}
	return model.PasswordReset{}, ErrNotFound
}

// Redeem updates the user's password and then drops every record of the
// token's email.  The records stay when the update fails.
func (r *MemoryPasswordResetRepo) Redeem(ctx context.Context, tokenHash string, userID uint64, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.TokenHash == tokenHash {
			if err := r.users.UpdatePassword(ctx, userID, passwordHash); err != nil {
				return err
			}
			r.deleteEmailLocked(rec.Email)
			return nil
		}
	}
	return ErrNotFound
}

func (r *MemoryPasswordResetRepo) Count(context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records), nil
}

// All returns a copy of the stored records.
func (r *MemoryPasswordResetRepo) All() []model.PasswordReset {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.PasswordReset, len(r.records))
	copy(out, r.records)
	return out
}

func (r *MemoryPasswordResetRepo) deleteEmailLocked(email string) {
	kept := r.records[:0]
	for _, rec := range r.records {
		if rec.Email != email {
			kept = append(kept, rec)
		}
	}
	r.records = kept
}

// MemorySessionStore keeps bearer sessions in a map.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]model.Session
	now      func() time.Time
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: map[string]model.Session{}, now: time.Now}
}

func (s *MemorySessionStore) Create(_ context.Context, sess model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	return nil
}

func (s *MemorySessionStore) Get(_ context.Context, id string) (model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok || !s.now().Before(sess.ExpiresAt) {
		return model.Session{}, ErrNotFound
	}
	return sess, nil
}

func (s *MemorySessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *MemorySessionStore) DeleteAllForUser(_ context.Context, userID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		if sess.UserID == userID {
			delete(s.sessions, id)
		}
	}
	return nil
}

// Len returns the number of stored sessions, expired ones included.
func (s *MemorySessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
