package redisstore

import (
	"context"
	"errors"

	"github.com/MrEthical07/authcore/store"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type sessionRecord struct {
	AccountID string `redis:"account_id"`
	Digest    string `redis:"digest"`
	ExpiredAt int64  `redis:"expired_at"`
	Origin    string `redis:"origin"`
	IPAddress string `redis:"ip_address"`
	UserAgent string `redis:"user_agent"`
	CreatedAt int64  `redis:"created_at"`
}

type refreshRecord struct {
	ID        string `redis:"id"`
	Digest    string `redis:"digest"`
	ExpiredAt int64  `redis:"expired_at"`
	CreatedAt int64  `redis:"created_at"`
}

func sessionFields(sess *store.Session) map[string]interface{} {
	return map[string]interface{}{
		"account_id": sess.AccountID,
		"digest":     sess.TokenDigest,
		"expired_at": unixNano(sess.ExpiredAt),
		"origin":     string(sess.Origin),
		"ip_address": sess.IPAddress,
		"user_agent": sess.UserAgent,
		"created_at": unixNano(sess.CreatedAt),
	}
}

func refreshFields(rt *store.RefreshToken) map[string]interface{} {
	return map[string]interface{}{
		"id":         rt.ID,
		"digest":     rt.TokenDigest,
		"expired_at": unixNano(rt.ExpiredAt),
		"created_at": unixNano(rt.CreatedAt),
	}
}

func (s *Store) readSession(ctx context.Context, c redis.Cmdable, id string) (*store.Session, error) {
	cmd := c.HGetAll(ctx, s.sessionKey(id))
	fields, err := cmd.Result()
	if err != nil {
		return nil, unavailable(err)
	}
	if len(fields) == 0 {
		return nil, store.ErrNotFound
	}

	var rec sessionRecord
	if err := cmd.Scan(&rec); err != nil {
		return nil, unavailable(err)
	}
	return &store.Session{
		ID:          id,
		AccountID:   rec.AccountID,
		TokenDigest: rec.Digest,
		ExpiredAt:   fromUnixNano(rec.ExpiredAt),
		Origin:      store.Origin(rec.Origin),
		IPAddress:   rec.IPAddress,
		UserAgent:   rec.UserAgent,
		CreatedAt:   fromUnixNano(rec.CreatedAt),
	}, nil
}

func (s *Store) readRefresh(ctx context.Context, c redis.Cmdable, sessionID string) (*store.RefreshToken, error) {
	cmd := c.HGetAll(ctx, s.refreshKey(sessionID))
	fields, err := cmd.Result()
	if err != nil {
		return nil, unavailable(err)
	}
	if len(fields) == 0 {
		return nil, store.ErrNotFound
	}

	var rec refreshRecord
	if err := cmd.Scan(&rec); err != nil {
		return nil, unavailable(err)
	}
	return &store.RefreshToken{
		ID:          rec.ID,
		SessionID:   sessionID,
		TokenDigest: rec.Digest,
		ExpiredAt:   fromUnixNano(rec.ExpiredAt),
		CreatedAt:   fromUnixNano(rec.CreatedAt),
	}, nil
}

func (s *Store) writeSession(ctx context.Context, pipe redis.Pipeliner, sess *store.Session, rt *store.RefreshToken) {
	pipe.HSet(ctx, s.sessionKey(sess.ID), sessionFields(sess))
	pipe.Set(ctx, s.sessionDigestKey(sess.TokenDigest), sess.ID, 0)
	pipe.SAdd(ctx, s.accountSessionsKey(sess.AccountID), sess.ID)
	if rt != nil {
		pipe.HSet(ctx, s.refreshKey(sess.ID), refreshFields(rt))
		pipe.Set(ctx, s.refreshDigestKey(rt.TokenDigest), sess.ID, 0)
	}
}

func (s *Store) removeSession(ctx context.Context, pipe redis.Pipeliner, sess *store.Session, rt *store.RefreshToken) {
	pipe.Del(ctx, s.sessionDigestKey(sess.TokenDigest))
	pipe.SRem(ctx, s.accountSessionsKey(sess.AccountID), sess.ID)
	pipe.Del(ctx, s.sessionKey(sess.ID), s.refreshKey(sess.ID))
	if rt != nil {
		pipe.Del(ctx, s.refreshDigestKey(rt.TokenDigest))
	}
}

// CreateSession stores sess and its refresh token atomically.
func (s *Store) CreateSession(ctx context.Context, sess *store.Session, rt *store.RefreshToken) error {
	if err := store.CheckRefreshOrigin(sess, rt); err != nil {
		return err
	}
	if rt != nil {
		rt.SessionID = sess.ID
	}

	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		s.writeSession(ctx, pipe, sess, rt)
		return nil
	})
	if err != nil {
		return unavailable(err)
	}
	return nil
}

// FindSessionByToken resolves a session by raw token value.
func (s *Store) FindSessionByToken(ctx context.Context, value string) (*store.Session, error) {
	digest := store.Digest(value)
	id, err := s.redis.Get(ctx, s.sessionDigestKey(digest)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, store.ErrNotFound
		}
		return nil, unavailable(err)
	}

	sess, err := s.readSession(ctx, s.redis, id)
	if err != nil {
		return nil, err
	}
	if sess.TokenDigest != digest {
		return nil, store.ErrNotFound
	}
	sess.Token = value
	return sess, nil
}

// FindRefreshToken resolves a refresh token by raw value.
func (s *Store) FindRefreshToken(ctx context.Context, value string) (*store.RefreshToken, error) {
	digest := store.Digest(value)
	sessionID, err := s.redis.Get(ctx, s.refreshDigestKey(digest)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, store.ErrNotFound
		}
		return nil, unavailable(err)
	}

	rt, err := s.readRefresh(ctx, s.redis, sessionID)
	if err != nil {
		return nil, err
	}
	if rt.TokenDigest != digest {
		return nil, store.ErrNotFound
	}
	rt.Token = value
	return rt, nil
}

// DeleteSession removes a session, its refresh token and their indexes in
// one script call.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	_, err := deleteSessionLua.Run(
		ctx,
		s.redis,
		[]string{s.sessionKey(id), s.refreshKey(id)},
		s.prefix,
		id,
	).Int()
	if err != nil {
		return unavailable(err)
	}
	return nil
}

// DeleteAccountSessions removes every session of accountID and reports how
// many existed.
func (s *Store) DeleteAccountSessions(ctx context.Context, accountID string) (int, error) {
	ids, err := s.redis.SMembers(ctx, s.accountSessionsKey(accountID)).Result()
	if err != nil {
		return 0, unavailable(err)
	}

	deleted := 0
	for _, id := range ids {
		n, err := deleteSessionLua.Run(
			ctx,
			s.redis,
			[]string{s.sessionKey(id), s.refreshKey(id)},
			s.prefix,
			id,
		).Int()
		if err != nil {
			return deleted, unavailable(err)
		}
		deleted += n
	}
	return deleted, nil
}

// RotateRefreshToken takes the per-session rotation lock with SET NX and
// never waits for it. The commit is fenced on the lock owner and the refresh
// digest, so a rotation that outlives its lock cannot commit a second
// successor.
func (s *Store) RotateRefreshToken(ctx context.Context, value string, fn store.RotateFunc) (*store.Session, *store.RefreshToken, error) {
	digest := store.Digest(value)
	sessionID, err := s.redis.Get(ctx, s.refreshDigestKey(digest)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil, store.ErrNotFound
		}
		return nil, nil, unavailable(err)
	}

	lockKey := s.lockKey(sessionID)
	owner := uuid.NewString()
	acquired, err := s.redis.SetNX(ctx, lockKey, owner, s.lockTTL).Result()
	if err != nil {
		return nil, nil, unavailable(err)
	}
	if !acquired {
		return nil, nil, store.ErrLockNotAcquired
	}
	defer releaseLockLua.Run(context.WithoutCancel(ctx), s.redis, []string{lockKey}, owner)

	// re-read under the lock; a concurrent rotation may have finished
	rt, err := s.readRefresh(ctx, s.redis, sessionID)
	if err != nil {
		return nil, nil, err
	}
	if rt.TokenDigest != digest {
		return nil, nil, store.ErrNotFound
	}
	rt.Token = value

	sess, err := s.readSession(ctx, s.redis, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		_, _ = s.redis.Del(ctx, s.refreshKey(sessionID), s.refreshDigestKey(digest)).Result()
		return nil, nil, store.ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}

	next, nextRT, err := fn(rt, sess)
	if err != nil {
		return nil, nil, err
	}
	if next != nil {
		if err := store.CheckRefreshOrigin(next, nextRT); err != nil {
			return nil, nil, err
		}
		if nextRT != nil {
			nextRT.SessionID = next.ID
		}
	}

	err = s.redis.Watch(ctx, func(rtx *redis.Tx) error {
		if err := s.checkRotation(ctx, rtx, lockKey, owner, sessionID, digest); err != nil {
			return err
		}
		_, err := rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			s.removeSession(ctx, pipe, sess, rt)
			if next != nil {
				s.writeSession(ctx, pipe, next, nextRT)
			}
			return nil
		})
		return err
	}, lockKey, s.refreshKey(sessionID))
	if errors.Is(err, redis.TxFailedErr) {
		return nil, nil, store.ErrLockNotAcquired
	}
	if err != nil {
		return nil, nil, classify(err)
	}
	return next, nextRT, nil
}

// checkRotation fences the rotation commit. The lock must still be ours or
// have lapsed unclaimed, and the refresh token must not have changed since
// it was read. Both keys are watched, so a claim after this check aborts the
// commit.
func (s *Store) checkRotation(ctx context.Context, rtx *redis.Tx, lockKey, owner, sessionID, digest string) error {
	held, err := rtx.Get(ctx, lockKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return unavailable(err)
	}
	if held != "" && held != owner {
		return store.ErrLockNotAcquired
	}

	current, err := rtx.HGet(ctx, s.refreshKey(sessionID), "digest").Result()
	if errors.Is(err, redis.Nil) {
		return store.ErrNotFound
	}
	if err != nil {
		return unavailable(err)
	}
	if current != digest {
		return store.ErrNotFound
	}
	return nil
}
