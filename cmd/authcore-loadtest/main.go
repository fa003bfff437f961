package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/authcore"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type accountState struct {
	email   string
	access  string
	refresh string
	mu      sync.Mutex
}

func main() {
	var (
		accounts    = flag.Int("accounts", 200, "number of accounts to seed")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 20000, "operations per phase")
		racers      = flag.Int("racers", 4, "concurrent refreshes of the same token")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "aclt", "key prefix")
	)
	flag.Parse()

	if *accounts <= 0 || *concurrency <= 0 || *ops <= 0 || *racers <= 0 {
		fmt.Fprintln(os.Stderr, "accounts, concurrency, ops and racers must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	cfg := authcore.DefaultConfig()
	cfg.Password.Pepper = "loadtest-pepper"
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Storage.RedisPrefix = *prefix
	cfg.Metrics.EnableLatencyHistograms = true

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	engine, err := authcore.New().
		WithConfig(cfg).
		WithRedis(client).
		WithLogger(logger).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine build failed: %v\n", err)
		os.Exit(1)
	}

	states := make([]accountState, *accounts)
	fmt.Printf("seeding %d accounts...\n", *accounts)
	startSeed := time.Now()
	for i := range states {
		email := fmt.Sprintf("load-%d@example.com", i)
		if _, err := engine.Register(ctx, authcore.RegisterInput{Email: email, Password: passwordFor(i)}); err != nil {
			fmt.Fprintf(os.Stderr, "register failed: %v\n", err)
			os.Exit(1)
		}
		states[i].email = email
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	signInStats := runSignInPhase(ctx, engine, states, *ops, *concurrency)
	findStats := runFindPhase(ctx, engine, states, *ops, *concurrency)
	refreshStats, violations := runRefreshPhase(ctx, engine, states, *ops, *concurrency, *racers)

	fmt.Println("---- results ----")
	printStats("sign_in", signInStats)
	printStats("find_session", findStats)
	printStats("refresh", refreshStats)

	snap := engine.MetricsSnapshot()
	fmt.Printf("refresh: success=%d failure=%d contention=%d\n",
		snap.Counters[authcore.MetricRefreshSuccess],
		snap.Counters[authcore.MetricRefreshFailure],
		snap.Counters[authcore.MetricRefreshContention],
	)
	if violations > 0 {
		fmt.Fprintf(os.Stderr, "single-use violations: %d\n", violations)
		os.Exit(1)
	}
}

func runSignInPhase(ctx context.Context, engine *authcore.Engine, states []accountState, ops, concurrency int) phaseStats {
	return runPhase(ops, concurrency, func(r *rand.Rand) error {
		idx := r.Intn(len(states))
		state := &states[idx]

		res, err := engine.SignIn(ctx, authcore.SignInInput{
			Email:    state.email,
			Password: passwordFor(idx),
			Origin:   authcore.OriginAPI,
		})
		if err != nil {
			return err
		}

		state.mu.Lock()
		state.access = res.Session.Token
		state.refresh = res.RefreshToken.Token
		state.mu.Unlock()
		return nil
	})
}

func runFindPhase(ctx context.Context, engine *authcore.Engine, states []accountState, ops, concurrency int) phaseStats {
	return runPhase(ops, concurrency, func(r *rand.Rand) error {
		state := &states[r.Intn(len(states))]
		state.mu.Lock()
		token := state.access
		state.mu.Unlock()
		if token == "" {
			return authcore.ErrSessionNotFound
		}

		_, err := engine.FindSession(ctx, token, authcore.OriginAPI, "")
		return err
	})
}

// runRefreshPhase races racers refreshes of one token per operation. Exactly
// one of them may win; more than one is a single-use violation.
func runRefreshPhase(ctx context.Context, engine *authcore.Engine, states []accountState, ops, concurrency, racers int) (phaseStats, int64) {
	var violations int64

	stats := runPhase(ops, concurrency, func(r *rand.Rand) error {
		state := &states[r.Intn(len(states))]
		state.mu.Lock()
		defer state.mu.Unlock()
		if state.refresh == "" {
			return authcore.ErrInvalidRefreshToken
		}

		var (
			wg      sync.WaitGroup
			winners int64
			mu      sync.Mutex
			access  string
			refresh string
		)
		for i := 0; i < racers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				sess, rt, err := engine.Refresh(ctx, state.refresh, authcore.RefreshOptions{Origin: authcore.OriginAPI})
				if err != nil {
					return
				}
				atomic.AddInt64(&winners, 1)
				mu.Lock()
				access, refresh = sess.Token, rt.Token
				mu.Unlock()
			}()
		}
		wg.Wait()

		switch {
		case winners == 0:
			return authcore.ErrInvalidRefreshToken
		case winners > 1:
			atomic.AddInt64(&violations, winners-1)
		}
		state.access, state.refresh = access, refresh
		return nil
	})
	return stats, violations
}

func runPhase(ops, concurrency int, op func(r *rand.Rand) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(r)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}

func passwordFor(i int) string {
	return fmt.Sprintf("load-password-%04d", i)
}
