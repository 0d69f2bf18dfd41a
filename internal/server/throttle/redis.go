package throttle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisThrottle implements Throttle over Redis. INCR plus EXPIRE-NX in one
// pipeline gives the atomic read-increment-with-TTL the lockout needs when
// more than one server process is running.
type RedisThrottle struct {
	client *redis.Client
}

// NewRedisThrottle creates a throttle backed by the given client.
func NewRedisThrottle(client *redis.Client) *RedisThrottle {
	return &RedisThrottle{client: client}
}

// Connect initializes a Redis client from URL or host:port input.
func Connect(addr string) (*redis.Client, error) {
	if strings.HasPrefix(addr, "redis://") {
		opt, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return redis.NewClient(opt), nil
	}
	return redis.NewClient(&redis.Options{Addr: addr}), nil
}

func (t *RedisThrottle) IncrementAndGet(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	var incr *redis.IntCmd
	_, err := t.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, key)
		p.ExpireNX(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("throttle increment: %w", err)
	}
	return incr.Val(), nil
}

func (t *RedisThrottle) Get(ctx context.Context, key string) (int64, error) {
	n, err := t.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("throttle get: %w", err)
	}
	return n, nil
}

func (t *RedisThrottle) RetryAfter(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := t.client.PTTL(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("throttle ttl: %w", err)
	}
	if ttl < 0 {
		// -1 no expiry, -2 no key
		return 0, nil
	}
	return ttl, nil
}

func (t *RedisThrottle) Reset(ctx context.Context, key string) error {
	if err := t.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("throttle reset: %w", err)
	}
	return nil
}
