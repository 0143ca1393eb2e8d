package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/user-auth-api/internal/model"
)

// RedisSessionStore keeps bearer sessions in Redis.  Each session is a key
// session:<id> holding "<user_id>:<expires_unix>" with a TTL matching the
// token lifetime; user_sessions:<user_id> is a set of that user's session ids.
type RedisSessionStore struct {
	rdb    *redis.Client
	prefix string
	now    func() time.Time
}

func NewRedisSessionStore(rdb *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{rdb: rdb, prefix: "auth", now: time.Now}
}

func (s *RedisSessionStore) sessionKey(id string) string {
	return s.prefix + ":session:" + id
}

func (s *RedisSessionStore) userKey(userID uint64) string {
	return s.prefix + ":user_sessions:" + strconv.FormatUint(userID, 10)
}

// Create stores a session with a TTL ending at its expiry.
func (s *RedisSessionStore) Create(ctx context.Context, sess model.Session) error {
	ttl := sess.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return fmt.Errorf("session %s already expired", sess.ID)
	}
	ttl = ttl.Round(time.Second)
	val := strconv.FormatUint(sess.UserID, 10) + ":" + strconv.FormatInt(sess.ExpiresAt.Unix(), 10)
	if err := s.rdb.Set(ctx, s.sessionKey(sess.ID), val, ttl).Err(); err != nil {
		return err
	}
	uk := s.userKey(sess.UserID)
	if err := s.rdb.SAdd(ctx, uk, sess.ID).Err(); err != nil {
		return err
	}
	return s.rdb.Expire(ctx, uk, ttl).Err()
}

// Get returns the session stored under id.
func (s *RedisSessionStore) Get(ctx context.Context, id string) (model.Session, error) {
	val, err := s.rdb.Get(ctx, s.sessionKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return model.Session{}, ErrNotFound
	}
	if err != nil {
		return model.Session{}, err
	}
	uid, exp, err := parseSessionValue(val)
	if err != nil {
		return model.Session{}, err
	}
	return model.Session{ID: id, UserID: uid, ExpiresAt: exp}, nil
}

// Delete revokes one session.
func (s *RedisSessionStore) Delete(ctx context.Context, id string) error {
	sess, err := s.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := s.rdb.Del(ctx, s.sessionKey(id)).Err(); err != nil {
		return err
	}
	return s.rdb.SRem(ctx, s.userKey(sess.UserID), id).Err()
}

// DeleteAllForUser revokes every session of a user.
func (s *RedisSessionStore) DeleteAllForUser(ctx context.Context, userID uint64) error {
	uk := s.userKey(userID)
	ids, err := s.rdb.SMembers(ctx, uk).Result()
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, s.sessionKey(id))
	}
	keys = append(keys, uk)
	return s.rdb.Del(ctx, keys...).Err()
}

func parseSessionValue(val string) (uint64, time.Time, error) {
	uidStr, expStr, ok := strings.Cut(val, ":")
	if !ok {
		return 0, time.Time{}, fmt.Errorf("malformed session value %q", val)
	}
	uid, err := strconv.ParseUint(uidStr, 10, 64)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("malformed session user: %w", err)
	}
	exp, err := strconv.ParseInt(expStr, 10, 64)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("malformed session expiry: %w", err)
	}
	return uid, time.Unix(exp, 0).UTC(), nil
}
