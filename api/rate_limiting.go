package api

import (
	"context"
	"fmt"
	"time"

	"ioclens/config"

	"github.com/redis/go-redis/v9"
)

// incrWindow counts a request and starts the window on any key without a TTL,
// so a counter never outlives its window even if an earlier expire was lost
var incrWindow = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if redis.call("PTTL", KEYS[1]) < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// RedisRateLimiter is a fixed window limiter shared by every API instance
// pointing at the same Redis. Each key gets at most limit requests per window.
type RedisRateLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
	prefix string
}

// NewRedisRateLimiter connects a limiter to the configured Redis
func NewRedisRateLimiter(cfg config.RedisConfig) *RedisRateLimiter {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
	return newRedisRateLimiter(client, cfg.Limit, cfg.Window)
}

func newRedisRateLimiter(client *redis.Client, limit int, window time.Duration) *RedisRateLimiter {
	return &RedisRateLimiter{
		client: client,
		limit:  int64(limit),
		window: window,
		prefix: "ioclens:ratelimit:",
	}
}

// Allow counts a request for key and reports whether it is within the limit.
// The window starts with the first request of the key.
func (l *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := l.prefix + key

	count, err := incrWindow.Run(ctx, l.client, []string{redisKey}, l.window.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}
	return count <= l.limit, nil
}

// Ping tests the Redis connection
func (l *RedisRateLimiter) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (l *RedisRateLimiter) Close() error {
	return l.client.Close()
}
