// README: OTP sessions kept in Redis hashes with a TTL.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "identity:otp:%s"

type SessionStore interface {
	Put(ctx context.Context, id string, s Session, ttl time.Duration) error
	Get(ctx context.Context, id string) (*Session, error)
	// Fail increments the attempt counter and returns the new value.
	Fail(ctx context.Context, id string) (int, error)
	Delete(ctx context.Context, id string) error
}

type RedisSessionStore struct {
	redis *redis.Client
}

func NewRedisSessionStore(redis *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{redis: redis}
}

func sessionKey(id string) string {
	return fmt.Sprintf(sessionKeyPrefix, id)
}

func (s *RedisSessionStore) Put(ctx context.Context, id string, sess Session, ttl time.Duration) error {
	pipe := s.redis.TxPipeline()
	pipe.HSet(ctx, sessionKey(id), map[string]interface{}{
		"phone":     sess.Phone,
		"role":      sess.Role,
		"code_hash": string(sess.CodeHash),
		"attempts":  sess.Attempts,
	})
	pipe.Expire(ctx, sessionKey(id), ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisSessionStore) Get(ctx context.Context, id string) (*Session, error) {
	vals, err := s.redis.HGetAll(ctx, sessionKey(id)).Result()
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return nil, ErrInvalidSession
	}
	attempts, _ := strconv.Atoi(vals["attempts"])
	return &Session{
		Phone:    vals["phone"],
		Role:     vals["role"],
		CodeHash: []byte(vals["code_hash"]),
		Attempts: attempts,
	}, nil
}

func (s *RedisSessionStore) Fail(ctx context.Context, id string) (int, error) {
	n, err := s.redis.HIncrBy(ctx, sessionKey(id), "attempts", 1).Result()
	return int(n), err
}

func (s *RedisSessionStore) Delete(ctx context.Context, id string) error {
	err := s.redis.Del(ctx, sessionKey(id)).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}
