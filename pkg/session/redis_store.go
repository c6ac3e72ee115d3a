package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/ksuid"
)

const (
	sessionKeyPrefix = "session:"
	userKeyPrefix    = "user_sessions:"
)

// RedisStore keeps sessions in Redis with a TTL equal to their lifetime.
// Each user also owns a set of session ids used for bulk revocation.
type RedisStore struct {
	client   redis.Cmdable
	lifetime time.Duration
	now      func() time.Time
}

// NewRedisStore constructs a Redis backed session store.
func NewRedisStore(client redis.Cmdable, lifetime time.Duration) *RedisStore {
	if lifetime <= 0 {
		lifetime = 24 * time.Hour
	}
	return &RedisStore{client: client, lifetime: lifetime, now: time.Now}
}

// Create issues a new session for the user.
func (s *RedisStore) Create(ctx context.Context, userID, role string) (*Session, error) {
	now := s.now().UTC()
	sess := &Session{
		ID:        ksuid.New().String(),
		UserID:    userID,
		Role:      role,
		CreatedAt: now,
		ExpiresAt: now.Add(s.lifetime),
	}
	payload, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}

	userKey := userKeyPrefix + userID
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKeyPrefix+sess.ID, payload, s.lifetime)
		pipe.SAdd(ctx, userKey, sess.ID)
		pipe.Expire(ctx, userKey, s.lifetime)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	return sess, nil
}

// Get loads a live session.
func (s *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	raw, err := s.client.Get(ctx, sessionKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis get session: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	if sess.Expired(s.now()) {
		return nil, ErrNotFound
	}
	return &sess, nil
}

// Destroy removes a session. Unknown ids are ignored.
func (s *RedisStore) Destroy(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	sess, err := s.Get(ctx, id)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, sessionKeyPrefix+id)
		if sess != nil {
			pipe.SRem(ctx, userKeyPrefix+sess.UserID, id)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DestroyAllForUser revokes every session of the user except keepID.
func (s *RedisStore) DestroyAllForUser(ctx context.Context, userID, keepID string) error {
	userKey := userKeyPrefix + userID
	ids, err := s.client.SMembers(ctx, userKey).Result()
	if err != nil {
		return fmt.Errorf("list user sessions: %w", err)
	}
	revoke := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != keepID {
			revoke = append(revoke, id)
		}
	}
	if len(revoke) == 0 {
		return nil
	}

	keys := make([]string, len(revoke))
	members := make([]interface{}, len(revoke))
	for i, id := range revoke {
		keys[i] = sessionKeyPrefix + id
		members[i] = id
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, keys...)
		pipe.SRem(ctx, userKey, members...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("revoke user sessions: %w", err)
	}
	return nil
}
