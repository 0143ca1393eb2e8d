// Package service implements the authentication operations: register,
// login, logout, bearer authentication and the password reset flow.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/user-auth-api/internal/model"
	"github.com/iliyamo/user-auth-api/internal/queue"
	"github.com/iliyamo/user-auth-api/internal/repository"
	"github.com/iliyamo/user-auth-api/internal/utils"
)

// bcrypt ignores input past 72 bytes and x/crypto rejects it outright.
const (
	minPasswordLen = 6
	maxPasswordLen = 72
)

// UserStore is the users table as the service needs it.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// ResetStore holds password reset records.
type ResetStore interface {
	Replace(ctx context.Context, rec model.PasswordReset) error
	FindByToken(ctx context.Context, tokenHash string) (model.PasswordReset, error)
	// Redeem atomically stores the user's new password hash and deletes
	// every reset record of the token's email.
	Redeem(ctx context.Context, tokenHash string, userID uint64, passwordHash string) error
}

// SessionStore holds live bearer sessions.
type SessionStore interface {
	Create(ctx context.Context, s model.Session) error
	Get(ctx context.Context, id string) (model.Session, error)
	Delete(ctx context.Context, id string) error
	DeleteAllForUser(ctx context.Context, userID uint64) error
}

// Options are the tunables of AuthService.
type Options struct {
	JWTSecret    string
	AccessTTL    time.Duration
	ResetTTL     time.Duration
	ResetURLBase string
}

// AuthService bundles the stores and collaborators behind the auth endpoints.
type AuthService struct {
	users    UserStore
	resets   ResetStore
	sessions SessionStore
	hasher   *utils.PasswordHasher
	notifier Notifier
	log      *zap.Logger
	opts     Options
	now      func() time.Time
}

func NewAuthService(users UserStore, resets ResetStore, sessions SessionStore,
	hasher *utils.PasswordHasher, notifier Notifier, log *zap.Logger, opts Options) *AuthService {
	return &AuthService{
		users:    users,
		resets:   resets,
		sessions: sessions,
		hasher:   hasher,
		notifier: notifier,
		log:      log,
		opts:     opts,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the time source.
func (s *AuthService) SetClock(now func() time.Time) { s.now = now }

// RegisterInput is the registration form.  Phone and CountryID arrive as
// text so form and JSON clients bind the same way.
type RegisterInput struct {
	FirstName string
	LastName  string
	Phone     string
	Email     string
	Password  string
	CountryID string
}

// LoginResult is what a successful login hands back.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      model.User
}

// Principal is the caller resolved from a bearer token.
type Principal struct {
	User      model.User
	SessionID string
}

// Register validates the input and creates a user.  A taken email is a
// ValidationError; the unique index decides when two requests race.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (model.User, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Email = normalizeEmail(in.Email)
	in.CountryID = strings.TrimSpace(in.CountryID)

	v := validator{}
	v.required("firstname", in.FirstName)
	v.required("lastname", in.LastName)
	v.required("phone", in.Phone)
	if v.required("email", in.Email) && !validEmail(in.Email) {
		v.add("email", "The email must be a valid email address.")
	}
	checkPassword(v, in.Password)
	var countryID uint64
	if v.required("country_id", in.CountryID) {
		n, err := strconv.ParseUint(in.CountryID, 10, 64)
		if err != nil || n == 0 {
			v.add("country_id", "The country id must be a positive integer.")
		}
		countryID = n
	}
	if _, bad := v["email"]; !bad {
		_, err := s.users.GetByEmail(ctx, in.Email)
		switch {
		case err == nil:
			v.add("email", emailTakenMsg)
		case !errors.Is(err, repository.ErrNotFound):
			return model.User{}, fmt.Errorf("lookup email: %w", err)
		}
	}
	if err := v.err(); err != nil {
		return model.User{}, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return model.User{}, err
	}
	u := model.User{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Phone:        in.Phone,
		Email:        in.Email,
		PasswordHash: hash,
		CountryID:    countryID,
	}
	if err := s.users.Create(ctx, &u); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return model.User{}, &ValidationError{Fields: map[string]string{"email": emailTakenMsg}}
		}
		return model.User{}, fmt.Errorf("create user: %w", err)
	}
	s.log.Info("user registered", zap.Uint64("user_id", u.ID))
	return u, nil
}

const emailTakenMsg = "The email has already been taken."

// Login verifies credentials and opens a bearer session.  Unknown email and
// wrong password both return ErrAuthentication.
func (s *AuthService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = normalizeEmail(email)
	v := validator{}
	v.required("email", email)
	v.required("password", password)
	if err := v.err(); err != nil {
		return LoginResult{}, err
	}

	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		s.hasher.VerifyNone(password)
		return LoginResult{}, ErrAuthentication
	}
	if err != nil {
		return LoginResult{}, fmt.Errorf("lookup user: %w", err)
	}
	if !s.hasher.Verify(u.PasswordHash, password) {
		return LoginResult{}, ErrAuthentication
	}

	now := s.now()
	tok, err := utils.NewAccessToken(s.opts.JWTSecret, u.ID, s.opts.AccessTTL, now)
	if err != nil {
		return LoginResult{}, err
	}
	sess := model.Session{ID: tok.ID, UserID: u.ID, ExpiresAt: tok.Exp, CreatedAt: now}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return LoginResult{}, fmt.Errorf("store session: %w", err)
	}
	s.log.Info("user logged in", zap.Uint64("user_id", u.ID))
	return LoginResult{Token: tok.Token, ExpiresAt: tok.Exp, User: u}, nil
}

// Authenticate resolves a raw bearer token to its user and session.
func (s *AuthService) Authenticate(ctx context.Context, raw string) (Principal, error) {
	claims, err := utils.ParseAccessToken(s.opts.JWTSecret, raw)
	if err != nil {
		return Principal{}, ErrUnauthenticated
	}
	sess, err := s.sessions.Get(ctx, claims.SessionID)
	if errors.Is(err, repository.ErrNotFound) {
		return Principal{}, ErrUnauthenticated
	}
	if err != nil {
		return Principal{}, fmt.Errorf("load session: %w", err)
	}
	if sess.UserID != claims.UserID {
		return Principal{}, ErrUnauthenticated
	}
	u, err := s.users.GetByID(ctx, sess.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return Principal{}, ErrUnauthenticated
	}
	if err != nil {
		return Principal{}, fmt.Errorf("load user: %w", err)
	}
	return Principal{User: u, SessionID: sess.ID}, nil
}

// Logout revokes the session behind the current bearer token.
func (s *AuthService) Logout(ctx context.Context, p Principal) error {
	if err := s.sessions.Delete(ctx, p.SessionID); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	s.log.Info("user logged out", zap.Uint64("user_id", p.User.ID))
	return nil
}

// RequestPasswordReset issues a fresh reset token for email, replacing any
// earlier one, and dispatches it.  ErrEmailNotFound reports an unknown
// address.  A dispatch failure is logged, not returned.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	v := validator{}
	if v.required("email", email) && !validEmail(email) {
		v.add("email", "The email must be a valid email address.")
	}
	if err := v.err(); err != nil {
		return err
	}

	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrEmailNotFound
	}
	if err != nil {
		return fmt.Errorf("lookup user: %w", err)
	}

	raw, err := utils.NewResetToken()
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}
	now := s.now()
	rec := model.PasswordReset{Email: u.Email, TokenHash: utils.HashToken(raw), CreatedAt: now, UpdatedAt: now}
	if err := s.resets.Replace(ctx, rec); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	ev := queue.PasswordResetRequestedEvent{
		Email:       u.Email,
		FirstName:   u.FirstName,
		Token:       raw,
		ResetURL:    s.opts.ResetURLBase + raw,
		ExpiresAt:   now.Add(s.opts.ResetTTL).Format(time.RFC3339),
		RequestedAt: now.Format(time.RFC3339),
	}
	if err := s.notifier.NotifyPasswordReset(ctx, ev); err != nil {
		s.log.Error("password reset notification failed", zap.Uint64("user_id", u.ID), zap.Error(err))
	}
	return nil
}

// ResetPassword applies a reset token: it must exist and be younger than
// the reset TTL.  On success the new password is stored and every reset
// record of the email is deleted in one step, then the user's sessions are
// revoked.  An expired
// record is left in place.
func (s *AuthService) ResetPassword(ctx context.Context, token, password string) error {
	v := validator{}
	checkPassword(v, password)
	if err := v.err(); err != nil {
		return err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrInvalidToken
	}

	digest := utils.HashToken(token)
	rec, err := s.resets.FindByToken(ctx, digest)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrInvalidToken
	}
	if err != nil {
		return fmt.Errorf("lookup reset token: %w", err)
	}
	if s.now().Sub(rec.UpdatedAt) >= s.opts.ResetTTL {
		return ErrExpiredToken
	}

	u, err := s.users.GetByEmail(ctx, rec.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrInvalidToken
	}
	if err != nil {
		return fmt.Errorf("lookup user: %w", err)
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}

	// of two concurrent resets with one token, only one redeems it
	if err := s.resets.Redeem(ctx, digest, u.ID, hash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidToken
		}
		return fmt.Errorf("redeem reset token: %w", err)
	}
	if err := s.sessions.DeleteAllForUser(ctx, u.ID); err != nil {
		s.log.Error("revoke sessions after reset failed", zap.Uint64("user_id", u.ID), zap.Error(err))
	}
	s.log.Info("password reset", zap.Uint64("user_id", u.ID))
	return nil
}

// CurrentUser reloads the caller's record.
func (s *AuthService) CurrentUser(ctx context.Context, p Principal) (model.User, error) {
	u, err := s.users.GetByID(ctx, p.User.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.User{}, ErrUnauthenticated
	}
	return u, err
}

func checkPassword(v validator, password string) {
	if !v.required("password", password) {
		return
	}
	switch {
	case len(password) < minPasswordLen:
		v.add("password", fmt.Sprintf("The password must be at least %d characters.", minPasswordLen))
	case len(password) > maxPasswordLen:
		v.add("password", fmt.Sprintf("The password may not be greater than %d characters.", maxPasswordLen))
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email && strings.Contains(email[strings.LastIndex(email, "@")+1:], ".")
}
