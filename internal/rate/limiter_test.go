package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T, limits map[string]Limit) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start failed: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb, Config{Limits: limits}), mr
}

func TestAllowFixedWindow(t *testing.T) {
	l, mr := newTestLimiter(t, map[string]Limit{"sign_in": {Max: 2, Window: time.Minute}})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := l.Allow(ctx, "sign_in", "User@Example.com"); err != nil {
			t.Fatalf("call %d: unexpected error %v", i, err)
		}
	}
	if err := l.Allow(ctx, "sign_in", "user@example.com "); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if ttl := mr.TTL("rl:sign_in:user@example.com"); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("unexpected window TTL %v", ttl)
	}

	mr.FastForward(time.Minute + time.Second)
	if err := l.Allow(ctx, "sign_in", "user@example.com"); err != nil {
		t.Fatalf("expected new window to allow, got %v", err)
	}
}

func TestAllowUnconfiguredEndpoint(t *testing.T) {
	l, _ := newTestLimiter(t, nil)
	for i := 0; i < 10; i++ {
		if err := l.Allow(context.Background(), "recovery", "someone"); err != nil {
			t.Fatalf("expected unlimited endpoint, got %v", err)
		}
	}
}

func TestReset(t *testing.T) {
	l, _ := newTestLimiter(t, map[string]Limit{"unlock": {Max: 1, Window: time.Hour}})
	ctx := context.Background()

	_ = l.Allow(ctx, "unlock", "a")
	if err := l.Allow(ctx, "unlock", "a"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if err := l.Reset(ctx, "unlock", "a"); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if err := l.Allow(ctx, "unlock", "a"); err != nil {
		t.Fatalf("expected allow after reset, got %v", err)
	}
}

func TestRedisUnavailable(t *testing.T) {
	l, mr := newTestLimiter(t, map[string]Limit{"sign_in": {Max: 1, Window: time.Minute}})
	mr.Close()
	if err := l.Allow(context.Background(), "sign_in", "x"); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
}
