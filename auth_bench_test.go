package authcore

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func BenchmarkFindSession(b *testing.B) {
	engine, cleanup := newBenchmarkEngine(b)
	defer cleanup()

	res, err := engine.SignIn(context.Background(), SignInInput{
		Email:    "alice@example.com",
		Password: "correct-password-123",
		Origin:   OriginAPI,
	})
	if err != nil {
		b.Fatalf("sign in failed: %v", err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := engine.FindSession(context.Background(), res.Session.Token, OriginAPI, ""); err != nil {
			b.Fatalf("find session failed: %v", err)
		}
	}
}

func BenchmarkRefresh(b *testing.B) {
	engine, cleanup := newBenchmarkEngine(b)
	defer cleanup()

	res, err := engine.SignIn(context.Background(), SignInInput{
		Email:    "alice@example.com",
		Password: "correct-password-123",
		Origin:   OriginAPI,
	})
	if err != nil {
		b.Fatalf("sign in failed: %v", err)
	}
	refresh := res.RefreshToken.Token

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, next, err := engine.Refresh(context.Background(), refresh, RefreshOptions{Origin: OriginAPI})
		if err != nil {
			b.Fatalf("refresh failed: %v", err)
		}
		refresh = next.Token
	}
}

func BenchmarkSignIn(b *testing.B) {
	engine, cleanup := newBenchmarkEngine(b)
	defer cleanup()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		res, err := engine.SignIn(context.Background(), SignInInput{
			Email:    "alice@example.com",
			Password: "correct-password-123",
		})
		if err != nil {
			b.Fatalf("sign in failed: %v", err)
		}
		_ = engine.SignOut(context.Background(), res.Session.Token, OriginBrowser)
	}
}

func BenchmarkAuthenticateUnknownEmail(b *testing.B) {
	engine, cleanup := newBenchmarkEngine(b)
	defer cleanup()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := engine.Authenticate(context.Background(), "nobody@example.com", "correct-password-123", ""); err == nil {
			b.Fatal("expected unknown email to fail")
		}
	}
}

func newBenchmarkEngine(tb testing.TB) (*Engine, func()) {
	tb.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		tb.Fatalf("miniredis.Run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := testConfig()
	cfg.Metrics.Enabled = false

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithLogger(quietLogger()).
		Build()
	if err != nil {
		tb.Fatalf("Build failed: %v", err)
	}

	if _, err := engine.Register(context.Background(), RegisterInput{
		Email:    "alice@example.com",
		Password: "correct-password-123",
	}); err != nil {
		tb.Fatalf("Register failed: %v", err)
	}

	return engine, func() {
		_ = rdb.Close()
		mr.Close()
	}
}
