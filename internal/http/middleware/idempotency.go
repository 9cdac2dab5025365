// README: Idempotency-Key support; replays the first response for a repeated key.
package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"londa/internal/http/response"
)

const (
	IdempotencyHeader = "Idempotency-Key"
	idempotencyTTL    = 24 * time.Hour
	inFlightTTL       = 30 * time.Second
	maxKeyLength      = 128
)

type CachedResponse struct {
	StatusCode  int             `json:"status_code"`
	Body        json.RawMessage `json:"body"`
	ContentType string          `json:"content_type"`
}

// ResponseCache stores replayable responses. Load returns nil, nil on a miss.
type ResponseCache interface {
	Load(ctx context.Context, key string) (*CachedResponse, error)
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Store(ctx context.Context, key string, resp *CachedResponse, ttl time.Duration) error
	Release(ctx context.Context, key string) error
}

type RedisResponseCache struct {
	rdb *redis.Client
}

func NewRedisResponseCache(rdb *redis.Client) *RedisResponseCache {
	return &RedisResponseCache{rdb: rdb}
}

func (r *RedisResponseCache) Load(ctx context.Context, key string) (*CachedResponse, error) {
	data, err := r.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var cached CachedResponse
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, err
	}
	return &cached, nil
}

func (r *RedisResponseCache) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return r.rdb.SetNX(ctx, key+":lock", 1, ttl).Result()
}

func (r *RedisResponseCache) Store(ctx context.Context, key string, resp *CachedResponse, ttl time.Duration) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, data, ttl)
		pipe.Del(ctx, key+":lock")
		return nil
	})
	return err
}

func (r *RedisResponseCache) Release(ctx context.Context, key string) error {
	return r.rdb.Del(ctx, key+":lock").Err()
}

type capturingWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *capturingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// Idempotency replays the stored response when a caller repeats a mutating
// request with the same Idempotency-Key. Keys are scoped to the caller, so it
// must run after Auth. Cache failures degrade to normal processing.
func Idempotency(cache ResponseCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
		default:
			c.Next()
			return
		}
		key := c.GetHeader(IdempotencyHeader)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxKeyLength {
			response.Fail(c, http.StatusBadRequest, response.CodeValidation, "Idempotency-Key is too long", nil)
			return
		}

		ctx := c.Request.Context()
		cacheKey := "idempotency:" + string(CallerUID(c)) + ":" + c.FullPath() + ":" + key

		cached, err := cache.Load(ctx, cacheKey)
		if err != nil {
			slog.WarnContext(ctx, "idempotency lookup failed", "err", err)
			c.Next()
			return
		}
		if cached != nil {
			c.Header("Idempotent-Replayed", "true")
			c.Data(cached.StatusCode, cached.ContentType, cached.Body)
			c.Abort()
			return
		}

		reserved, err := cache.Reserve(ctx, cacheKey, inFlightTTL)
		if err != nil {
			slog.WarnContext(ctx, "idempotency reserve failed", "err", err)
			c.Next()
			return
		}
		if !reserved {
			response.Fail(c, http.StatusConflict, response.CodeConflict,
				"a request with this Idempotency-Key is still in progress", nil)
			return
		}

		w := &capturingWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = w
		c.Next()

		// 5xx responses are not replayed so the client can retry.
		store := context.WithoutCancel(ctx)
		if status := w.Status(); status < 500 {
			err = cache.Store(store, cacheKey, &CachedResponse{
				StatusCode:  status,
				Body:        w.body.Bytes(),
				ContentType: w.Header().Get("Content-Type"),
			}, idempotencyTTL)
		} else {
			err = cache.Release(store, cacheKey)
		}
		if err != nil {
			slog.WarnContext(ctx, "idempotency store failed", "err", err)
		}
	}
}
