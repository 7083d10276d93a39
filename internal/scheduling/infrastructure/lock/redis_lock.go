// Package lock prevents overlapping scheduling runs.
package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/felixgeelhaar/autoplan/internal/scheduling/domain"
)

var ErrLocked = domain.ErrRunLocked

// DefaultKey is the Redis key guarding scheduling runs.
const DefaultKey = "autoplan:lock:schedule-run"

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLock is a single-key mutex with a TTL.
type RedisLock struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisLock creates a lock on key. An empty key uses DefaultKey.
func NewRedisLock(client *redis.Client, key string, ttl time.Duration) *RedisLock {
	if key == "" {
		key = DefaultKey
	}
	return &RedisLock{client: client, key: key, ttl: ttl}
}

// Acquire takes the lock or returns ErrLocked.
func (l *RedisLock) Acquire(ctx context.Context) (domain.ReleaseFunc, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client, []string{l.key}, token).Err(); err != nil {
			return fmt.Errorf("release run lock: %w", err)
		}
		return nil
	}, nil
}

// NoopLock always succeeds. It is used when no Redis URL is configured.
type NoopLock struct{}

// Acquire returns a release function that does nothing.
func (NoopLock) Acquire(context.Context) (domain.ReleaseFunc, error) {
	return func(context.Context) error { return nil }, nil
}

// NewClient builds a Redis client from a redis:// URL and verifies it.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

var (
	_ domain.RunLock = (*RedisLock)(nil)
	_ domain.RunLock = NoopLock{}
)
