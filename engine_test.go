package authcore

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

var testEpoch = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: testEpoch}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingNotifier struct {
	mu    sync.Mutex
	notes []Notification
	err   error
}

func (n *recordingNotifier) Notify(_ context.Context, note Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notes = append(n.notes, note)
	return n.err
}

func (n *recordingNotifier) count(kind TokenKind) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, note := range n.notes {
		if note.Kind == kind {
			c++
		}
	}
	return c
}

func (n *recordingNotifier) last(t *testing.T, kind TokenKind) Notification {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := len(n.notes) - 1; i >= 0; i-- {
		if n.notes[i].Kind == kind {
			return n.notes[i]
		}
	}
	t.Fatalf("no %s notification recorded", kind)
	return Notification{}
}

type testEngine struct {
	*Engine
	mr       *miniredis.Miniredis
	rdb      *redis.Client
	clock    *fakeClock
	notifier *recordingNotifier
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, client
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// testConfig keeps Argon2id at its cheapest accepted cost.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Password.Pepper = "test-pepper"
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	return cfg
}

func newTestEngine(t *testing.T, cfg Config) *testEngine {
	t.Helper()

	mr, rdb := newTestRedis(t)
	te := buildTestEngine(t, cfg, rdb)
	te.mr = mr
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return te
}

func buildTestEngine(t *testing.T, cfg Config, rdb *redis.Client) *testEngine {
	t.Helper()

	clock := newFakeClock()
	notifier := &recordingNotifier{}
	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithClock(clock).
		WithNotifier(notifier).
		WithLogger(quietLogger()).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return &testEngine{Engine: engine, rdb: rdb, clock: clock, notifier: notifier}
}

func mustRegister(t *testing.T, e *testEngine, email, plain string) *Account {
	t.Helper()

	acc, err := e.Register(context.Background(), RegisterInput{Email: email, Password: plain})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	return acc
}

func mustAccount(t *testing.T, e *testEngine, id string) *Account {
	t.Helper()

	acc, err := e.GetAccount(context.Background(), id)
	if err != nil {
		t.Fatalf("GetAccount failed: %v", err)
	}
	return acc
}

// assertNotPersisted fails when value is stored anywhere in Redis.
func assertNotPersisted(t *testing.T, e *testEngine, value string) {
	t.Helper()

	for _, k := range e.mr.Keys() {
		if strings.Contains(k, value) {
			t.Fatalf("raw value used in key %s", k)
		}
		switch e.mr.Type(k) {
		case "string":
			if v, _ := e.mr.Get(k); v == value {
				t.Fatalf("raw value persisted under %s", k)
			}
		case "hash":
			fields, _ := e.mr.HKeys(k)
			for _, f := range fields {
				if e.mr.HGet(k, f) == value {
					t.Fatalf("raw value persisted in %s.%s", k, f)
				}
			}
		}
	}
}

func TestRegisterCreatesAccount(t *testing.T) {
	e := newTestEngine(t, testConfig())

	acc := mustRegister(t, e, "  User@Example.com ", "Password1!")
	if acc.Email != "user@example.com" {
		t.Fatalf("expected normalized email, got %q", acc.Email)
	}
	if acc.PasswordDigest == "" || acc.PasswordDigest == "Password1!" {
		t.Fatal("expected a password digest")
	}
	if !acc.Confirmed {
		t.Fatal("accounts start confirmed when confirmation is disabled")
	}
	if acc.MaxFailedAttempts != 10 {
		t.Fatalf("expected default max failed attempts 10, got %d", acc.MaxFailedAttempts)
	}

	stored := mustAccount(t, e, acc.ID)
	if stored.PasswordDigest != acc.PasswordDigest {
		t.Fatal("stored digest differs from returned digest")
	}
	if e.MetricsSnapshot().Counters[MetricAccountRegistered] != 1 {
		t.Fatal("expected registration metric")
	}
}

func TestRegisterRejectsDuplicateEmailCaseInsensitive(t *testing.T) {
	e := newTestEngine(t, testConfig())
	mustRegister(t, e, "user@example.com", "Password1!")

	_, err := e.Register(context.Background(), RegisterInput{Email: "USER@example.COM", Password: "Password2!"})
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "email" {
		t.Fatalf("expected email validation error, got %v", err)
	}
	if !errors.Is(err, ErrValidation) {
		t.Fatal("validation errors must match ErrValidation")
	}
}

func TestRegisterValidatesInput(t *testing.T) {
	e := newTestEngine(t, testConfig())

	tests := []struct {
		name  string
		in    RegisterInput
		field string
	}{
		{name: "blank email", in: RegisterInput{Email: " ", Password: "Password1!"}, field: "email"},
		{name: "email without at", in: RegisterInput{Email: "user.example.com", Password: "Password1!"}, field: "email"},
		{name: "email with space", in: RegisterInput{Email: "us er@example.com", Password: "Password1!"}, field: "email"},
		{name: "short password", in: RegisterInput{Email: "a@example.com", Password: "short"}, field: "password"},
		{name: "blank password", in: RegisterInput{Email: "a@example.com", Password: ""}, field: "password"},
		{name: "blank target type", in: RegisterInput{Email: "a@example.com", Password: "Password1!", Target: &Target{ID: "1"}}, field: "target_type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Register(context.Background(), tt.in)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if verr.Field != tt.field {
				t.Fatalf("expected field %q, got %q", tt.field, verr.Field)
			}
		})
	}
}

func TestRegisterDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Account.Registerable = false
	e := newTestEngine(t, cfg)

	_, err := e.Register(context.Background(), RegisterInput{Email: "a@example.com", Password: "Password1!"})
	if !errors.Is(err, ErrFeatureDisabled) {
		t.Fatalf("expected ErrFeatureDisabled, got %v", err)
	}
}

func TestRegisterConfirmableIssuesToken(t *testing.T) {
	cfg := testConfig()
	cfg.Confirmation.Enabled = true
	e := newTestEngine(t, cfg)

	acc := mustRegister(t, e, "user@example.com", "Password1!")
	if acc.Confirmed {
		t.Fatal("expected unconfirmed account")
	}

	note := e.notifier.last(t, TokenConfirmation)
	if note.Account.ID != acc.ID {
		t.Fatal("notification for wrong account")
	}
	if want := testEpoch.Add(cfg.Confirmation.TokenExpiry); !note.ExpiredAt.Equal(want) {
		t.Fatalf("expected expiry %v, got %v", want, note.ExpiredAt)
	}

	assertNotPersisted(t, e, note.Token)
}

func TestRegisterNotifierFailureKeepsAccount(t *testing.T) {
	cfg := testConfig()
	cfg.Confirmation.Enabled = true
	e := newTestEngine(t, cfg)
	e.notifier.err = errors.New("smtp down")

	acc, err := e.Register(context.Background(), RegisterInput{Email: "user@example.com", Password: "Password1!"})
	if !errors.Is(err, ErrNotify) {
		t.Fatalf("expected ErrNotify, got %v", err)
	}
	if acc == nil {
		t.Fatal("expected the committed account alongside the notify error")
	}
	mustAccount(t, e, acc.ID)
}

func TestGetAccountNotFound(t *testing.T) {
	e := newTestEngine(t, testConfig())

	_, err := e.GetAccount(context.Background(), "missing")
	if !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestStoreOutageSurfacesAsUnavailable(t *testing.T) {
	e := newTestEngine(t, testConfig())
	e.mr.Close()

	_, err := e.Authenticate(context.Background(), "user@example.com", "Password1!", "")
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}
