package idempotency

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "emi:payment:inflight:"

// releaseScript deletes the key only while it still holds the caller's token.
const releaseScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

// redisClient is the subset of *redis.Client the guard needs.
type redisClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// RedisGuard marks a request as in flight so an identical concurrent request
// can be turned away before it reaches the database. The entry expires after
// ttl in case the holder dies without releasing it.
type RedisGuard struct {
	client redisClient
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedisGuard(client redisClient, ttl time.Duration, logger *slog.Logger) *RedisGuard {
	return &RedisGuard{
		client: client,
		ttl:    ttl,
		logger: logger.With("component", "RedisGuard"),
	}
}

// Acquire reports whether the caller now holds key. The returned token must be
// passed to Release.
func (g *RedisGuard) Acquire(ctx context.Context, key string) (string, bool, error) {
	token := uuid.NewString()
	ok, err := g.client.SetNX(ctx, keyPrefix+key, token, g.ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("failed to acquire in-flight key: %w", err)
	}
	if !ok {
		g.logger.DebugContext(ctx, "In-flight key already held", "key", key)
		return "", false, nil
	}
	return token, true, nil
}

// Release drops key if token still owns it. A key that expired and was taken
// by another request is left alone.
func (g *RedisGuard) Release(ctx context.Context, key, token string) error {
	deleted, err := g.client.Eval(ctx, releaseScript, []string{keyPrefix + key}, token).Int64()
	if err != nil {
		return fmt.Errorf("failed to release in-flight key: %w", err)
	}
	if deleted == 0 {
		g.logger.WarnContext(ctx, "In-flight key expired before release", "key", key)
	}
	return nil
}
