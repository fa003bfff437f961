package rate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limit is the budget of one endpoint: at most Max calls per identity per Window.
type Limit struct {
	Max    int
	Window time.Duration
}

// Config holds rate limiter tuning parameters.
type Config struct {
	Prefix string
	Limits map[string]Limit
}

// Limiter enforces per-endpoint, per-identity fixed-window budgets using
// Redis counters.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a rate [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	if cfg.Prefix == "" {
		cfg.Prefix = "rl"
	}
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

// Allow records one call for identity on endpoint and returns ErrRateLimited
// once the window budget is exceeded. Endpoints without a configured limit
// are always allowed.
func (l *Limiter) Allow(ctx context.Context, endpoint, identity string) error {
	limit, ok := l.config.Limits[endpoint]
	if !ok || limit.Max <= 0 || limit.Window <= 0 {
		return nil
	}

	count, err := l.incrementWithTTL(ctx, l.key(endpoint, identity), limit.Window)
	if err != nil {
		return err
	}
	if count > int64(limit.Max) {
		return ErrRateLimited
	}
	return nil
}

// Reset clears the counter of identity on endpoint.
func (l *Limiter) Reset(ctx context.Context, endpoint, identity string) error {
	if err := l.redis.Del(ctx, l.key(endpoint, identity)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (l *Limiter) key(endpoint, identity string) string {
	return l.config.Prefix + ":" + endpoint + ":" + strings.ToLower(strings.TrimSpace(identity))
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}
