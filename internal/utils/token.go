// Package utils mints bearer and reset tokens and hashes passwords.
package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidAccessToken is returned by ParseAccessToken for any token that
// fails signature, algorithm, expiry or claim checks.
var ErrInvalidAccessToken = errors.New("invalid access token")

// AccessToken represents a signed bearer JWT along with its session id and
// expiry.  The ID is the token's `jti` claim and keys the session record.
type AccessToken struct {
	Token string    // the serialized JWT string
	ID    string    // jti, also the session id
	Exp   time.Time // the UTC expiration time
}

// AccessClaims are the claims extracted from a verified bearer token.
type AccessClaims struct {
	UserID    uint64
	SessionID string
	ExpiresAt time.Time
}

// NewAccessToken builds and signs an HS256 JWT for a user.  The token carries
// sub (user id), jti (fresh UUID), iat and exp.
func NewAccessToken(secret string, userID uint64, ttl time.Duration, now time.Time) (AccessToken, error) {
	now = now.UTC()
	exp := now.Add(ttl)
	id := uuid.NewString()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(userID, 10),
		ID:        id,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, fmt.Errorf("sign access token: %w", err)
	}
	return AccessToken{Token: signed, ID: id, Exp: exp}, nil
}

// ParseAccessToken verifies an HS256 bearer token and returns its claims.
func ParseAccessToken(secret, raw string) (AccessClaims, error) {
	var claims jwt.RegisteredClaims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !tok.Valid {
		return AccessClaims{}, ErrInvalidAccessToken
	}
	uid, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || uid == 0 || claims.ID == "" {
		return AccessClaims{}, ErrInvalidAccessToken
	}
	return AccessClaims{UserID: uid, SessionID: claims.ID, ExpiresAt: claims.ExpiresAt.Time.UTC()}, nil
}

// NewResetToken returns a cryptographically secure random password reset
// token: 32 bytes encoded as 64 hex characters.
func NewResetToken() (string, error) {
	return randomHex(32)
}

// HashToken returns the SHA-256 hash of a raw token as a hex string.  Only
// this digest is persisted so a leaked table cannot be replayed.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// randomHex returns a hex-encoded string generated from n bytes of
// cryptographically secure random data.
func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
