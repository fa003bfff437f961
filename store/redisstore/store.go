package redisstore

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/MrEthical07/authcore/store"
	"github.com/redis/go-redis/v9"
)

const (
	defaultPrefix     = "ac"
	defaultLockTTL    = 5 * time.Second
	defaultMaxRetries = 4

	retryBaseDelay = 250 * time.Microsecond
	retryMaxShift  = 5
)

// Options tunes the Redis store.
type Options struct {
	Prefix  string
	LockTTL time.Duration
	// MaxRetries bounds WATCH retries of CreateAccount. UpdateAccount keeps
	// retrying until its context ends.
	MaxRetries int
}

// Store is a Redis-backed store.Store.
type Store struct {
	redis      redis.UniversalClient
	prefix     string
	lockTTL    time.Duration
	maxRetries int
}

var _ store.Store = (*Store)(nil)

// New creates a [Store] over redisClient.
func New(redisClient redis.UniversalClient, opts Options) *Store {
	s := &Store{
		redis:      redisClient,
		prefix:     opts.Prefix,
		lockTTL:    opts.LockTTL,
		maxRetries: opts.MaxRetries,
	}
	if s.prefix == "" {
		s.prefix = defaultPrefix
	}
	if s.lockTTL <= 0 {
		s.lockTTL = defaultLockTTL
	}
	if s.maxRetries <= 0 {
		s.maxRetries = defaultMaxRetries
	}
	return s
}

func (s *Store) accountKey(id string) string { return s.prefix + ":acct:" + id }
func (s *Store) emailKey(email string) string { return s.prefix + ":email:" + email }
func (s *Store) sessionKey(id string) string { return s.prefix + ":sess:" + id }
func (s *Store) sessionDigestKey(d string) string { return s.prefix + ":sessd:" + d }
func (s *Store) accountSessionsKey(id string) string { return s.prefix + ":acctsess:" + id }
func (s *Store) refreshKey(sessionID string) string { return s.prefix + ":rt:" + sessionID }
func (s *Store) refreshDigestKey(d string) string { return s.prefix + ":rtd:" + d }
func (s *Store) lockKey(sessionID string) string { return s.prefix + ":rtlock:" + sessionID }

func (s *Store) tokenKey(kind store.TokenKind, accountID string) string {
	return s.prefix + ":tok:" + string(kind) + ":" + accountID
}

func (s *Store) tokenDigestKey(kind store.TokenKind, digest string) string {
	return s.prefix + ":tokd:" + string(kind) + ":" + digest
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
}

// classify passes store sentinels through and wraps everything else.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, store.ErrDuplicate),
		errors.Is(err, store.ErrLockNotAcquired),
		errors.Is(err, store.ErrOriginMismatch),
		errors.Is(err, store.ErrConflict),
		errors.Is(err, store.ErrUnavailable):
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return unavailable(err)
	}
}

// backoff waits a jittered delay that grows with attempt. It returns the
// context error when ctx ends first.
func backoff(ctx context.Context, attempt int) error {
	timer := time.NewTimer(rand.N(retryBaseDelay << min(attempt, retryMaxShift)))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func unixNano(t time.Time) string {
	if t.IsZero() {
		return "0"
	}
	return strconv.FormatInt(t.UnixNano(), 10)
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
