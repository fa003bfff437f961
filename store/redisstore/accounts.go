package redisstore

import (
	"context"
	"errors"

	"github.com/MrEthical07/authcore/store"
	"github.com/redis/go-redis/v9"
)

type accountRecord struct {
	Email             string `redis:"email"`
	PasswordDigest    string `redis:"password_digest"`
	Confirmed         bool   `redis:"confirmed"`
	Locked            bool   `redis:"locked"`
	FailedAttempts    int    `redis:"failed_attempts"`
	MaxFailedAttempts int    `redis:"max_failed_attempts"`
	TargetType        string `redis:"target_type"`
	TargetID          string `redis:"target_id"`
	CreatedAt         int64  `redis:"created_at"`
	UpdatedAt         int64  `redis:"updated_at"`
}

type tokenRecord struct {
	ID        string `redis:"id"`
	Digest    string `redis:"digest"`
	ExpiredAt int64  `redis:"expired_at"`
	CreatedAt int64  `redis:"created_at"`
}

func accountFields(acc *store.Account) map[string]interface{} {
	var targetType, targetID string
	if acc.Target != nil {
		targetType, targetID = acc.Target.Type, acc.Target.ID
	}
	return map[string]interface{}{
		"email":               acc.Email,
		"password_digest":     acc.PasswordDigest,
		"confirmed":           flag(acc.Confirmed),
		"locked":              flag(acc.Locked),
		"failed_attempts":     acc.FailedAttempts,
		"max_failed_attempts": acc.MaxFailedAttempts,
		"target_type":         targetType,
		"target_id":           targetID,
		"created_at":          unixNano(acc.CreatedAt),
		"updated_at":          unixNano(acc.UpdatedAt),
	}
}

func tokenFields(t *store.Token) map[string]interface{} {
	return map[string]interface{}{
		"id":         t.ID,
		"digest":     t.Digest,
		"expired_at": unixNano(t.ExpiredAt),
		"created_at": unixNano(t.CreatedAt),
	}
}

func (s *Store) readAccount(ctx context.Context, c redis.Cmdable, id string) (*store.Account, error) {
	cmd := c.HGetAll(ctx, s.accountKey(id))
	fields, err := cmd.Result()
	if err != nil {
		return nil, unavailable(err)
	}
	if len(fields) == 0 {
		return nil, store.ErrNotFound
	}

	var rec accountRecord
	if err := cmd.Scan(&rec); err != nil {
		return nil, unavailable(err)
	}

	acc := &store.Account{
		ID:                id,
		Email:             rec.Email,
		PasswordDigest:    rec.PasswordDigest,
		Confirmed:         rec.Confirmed,
		Locked:            rec.Locked,
		FailedAttempts:    rec.FailedAttempts,
		MaxFailedAttempts: rec.MaxFailedAttempts,
		CreatedAt:         fromUnixNano(rec.CreatedAt),
		UpdatedAt:         fromUnixNano(rec.UpdatedAt),
	}
	if rec.TargetType != "" {
		acc.Target = &store.Target{Type: rec.TargetType, ID: rec.TargetID}
	}
	return acc, nil
}

func (s *Store) readToken(ctx context.Context, c redis.Cmdable, kind store.TokenKind, accountID string) (*store.Token, error) {
	cmd := c.HGetAll(ctx, s.tokenKey(kind, accountID))
	fields, err := cmd.Result()
	if err != nil {
		return nil, unavailable(err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	var rec tokenRecord
	if err := cmd.Scan(&rec); err != nil {
		return nil, unavailable(err)
	}
	return &store.Token{
		ID:        rec.ID,
		Kind:      kind,
		AccountID: accountID,
		Digest:    rec.Digest,
		ExpiredAt: fromUnixNano(rec.ExpiredAt),
		CreatedAt: fromUnixNano(rec.CreatedAt),
	}, nil
}

func (s *Store) putToken(ctx context.Context, pipe redis.Pipeliner, t *store.Token, previous *store.Token) {
	if previous != nil && previous.Digest != "" {
		pipe.Del(ctx, s.tokenDigestKey(t.Kind, previous.Digest))
	}
	key := s.tokenKey(t.Kind, t.AccountID)
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, tokenFields(t))
	pipe.Set(ctx, s.tokenDigestKey(t.Kind, t.Digest), t.AccountID, 0)
}

func (s *Store) deleteToken(ctx context.Context, pipe redis.Pipeliner, kind store.TokenKind, accountID string, previous *store.Token) {
	if previous != nil && previous.Digest != "" {
		pipe.Del(ctx, s.tokenDigestKey(kind, previous.Digest))
	}
	pipe.Del(ctx, s.tokenKey(kind, accountID))
}

// CreateAccount inserts acc and its initial tokens. The email key is watched
// so concurrent registrations of the same email cannot both succeed.
func (s *Store) CreateAccount(ctx context.Context, acc *store.Account, tokens ...*store.Token) error {
	emailKey := s.emailKey(acc.Email)

	for i := 0; i < s.maxRetries; i++ {
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			n, err := tx.Exists(ctx, emailKey).Result()
			if err != nil {
				return err
			}
			if n > 0 {
				return store.ErrDuplicate
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.HSet(ctx, s.accountKey(acc.ID), accountFields(acc))
				pipe.Set(ctx, emailKey, acc.ID, 0)
				for _, t := range tokens {
					t.AccountID = acc.ID
					s.putToken(ctx, pipe, t, nil)
				}
				return nil
			})
			return err
		}, emailKey)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return classify(err)
	}

	return store.ErrConflict
}

// GetAccount loads an account by id.
func (s *Store) GetAccount(ctx context.Context, id string) (*store.Account, error) {
	return s.readAccount(ctx, s.redis, id)
}

// FindAccountByEmail resolves the email index and loads the account.
func (s *Store) FindAccountByEmail(ctx context.Context, email string) (*store.Account, error) {
	id, err := s.redis.Get(ctx, s.emailKey(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, store.ErrNotFound
		}
		return nil, unavailable(err)
	}
	return s.readAccount(ctx, s.redis, id)
}

// FindToken resolves a single-use token by raw value. A stale digest index
// (token since replaced) reads as not found.
func (s *Store) FindToken(ctx context.Context, kind store.TokenKind, value string) (*store.Token, error) {
	digest := store.Digest(value)
	accountID, err := s.redis.Get(ctx, s.tokenDigestKey(kind, digest)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, store.ErrNotFound
		}
		return nil, unavailable(err)
	}

	t, err := s.readToken(ctx, s.redis, kind, accountID)
	if err != nil {
		return nil, err
	}
	if t == nil || t.Digest != digest {
		return nil, store.ErrNotFound
	}
	t.Value = value
	return t, nil
}

// UpdateAccount runs fn inside a WATCH on the account and its token keys.
// A concurrent writer aborts the commit and fn is re-run on a fresh snapshot
// after a jittered backoff, until ctx ends. UpdatedAt is left to fn.
func (s *Store) UpdateAccount(ctx context.Context, id string, fn func(tx *store.AccountTx) error) (*store.Account, error) {
	watched := []string{s.accountKey(id)}
	for _, kind := range store.TokenKinds {
		watched = append(watched, s.tokenKey(kind, id))
	}

	for attempt := 0; ; attempt++ {
		var (
			updated *store.Account
			fnErr   error
		)

		err := s.redis.Watch(ctx, func(rtx *redis.Tx) error {
			acc, err := s.readAccount(ctx, rtx, id)
			if err != nil {
				return err
			}

			tokens := make([]*store.Token, 0, len(store.TokenKinds))
			for _, kind := range store.TokenKinds {
				t, err := s.readToken(ctx, rtx, kind, id)
				if err != nil {
					return err
				}
				tokens = append(tokens, t)
			}

			email := acc.Email
			utx := store.NewAccountTx(acc, tokens)
			if fnErr = fn(utx); fnErr != nil {
				return fnErr
			}
			// email is immutable through units of work
			utx.Account.Email = email

			puts, deletes := utx.Staged()
			_, err = rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.HSet(ctx, s.accountKey(id), accountFields(utx.Account))
				for _, c := range puts {
					s.putToken(ctx, pipe, c.Next, c.Previous)
				}
				for _, c := range deletes {
					s.deleteToken(ctx, pipe, c.Kind, id, c.Previous)
				}
				return nil
			})
			if err != nil {
				return err
			}

			updated = utx.Account
			return nil
		}, watched...)

		if errors.Is(err, redis.TxFailedErr) {
			if err := backoff(ctx, attempt); err != nil {
				return nil, err
			}
			continue
		}
		if fnErr != nil {
			return nil, fnErr
		}
		if err != nil {
			return nil, classify(err)
		}
		return updated, nil
	}
}
