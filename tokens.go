package authcore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/authcore/internal"
	"github.com/MrEthical07/authcore/store"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// tokenService is the single-use token primitive shared by confirmation,
// unlock and recovery. An account holds at most one live token per kind.
type tokenService struct {
	kind     TokenKind
	expiry   time.Duration
	endpoint string

	accounts store.AccountStore
	clock    Clock
	notifier Notifier
	limiter  RateLimiter
	metrics  *Metrics
	log      logrus.FieldLogger
}

// mint creates a token for accountID without staging it.
func (s *tokenService) mint(accountID string) (*Token, error) {
	value, err := internal.NewToken()
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	return &Token{
		ID:        uuid.NewString(),
		Kind:      s.kind,
		AccountID: accountID,
		Value:     value,
		Digest:    store.Digest(value),
		ExpiredAt: now.Add(s.expiry),
		CreatedAt: now,
	}, nil
}

// issue stages a fresh token in tx, replacing the live one.
func (s *tokenService) issue(tx *store.AccountTx) (*Token, error) {
	t, err := s.mint(tx.Account.ID)
	if err != nil {
		return nil, err
	}
	tx.PutToken(t)
	return t, nil
}

// deliver hands a committed token to the Notifier.
func (s *tokenService) deliver(ctx context.Context, acc *Account, t *Token) error {
	s.metrics.Inc(MetricTokenIssued)
	s.log.WithFields(logrus.Fields{
		"event":      "token_issued",
		"kind":       string(s.kind),
		"account_id": acc.ID,
	}).Debug("single-use token issued")

	if s.notifier == nil {
		return nil
	}
	err := s.notifier.Notify(ctx, Notification{
		Account:   acc,
		Kind:      s.kind,
		Token:     t.Value,
		ExpiredAt: t.ExpiredAt,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotify, err)
	}
	return nil
}

// request issues a token for the account registered under email when
// eligible accepts it. Unknown and ineligible emails succeed silently.
func (s *tokenService) request(ctx context.Context, email string, eligible func(*Account) bool) error {
	email = NormalizeEmail(email)
	if err := allow(ctx, s.limiter, s.endpoint, email); err != nil {
		if errors.Is(err, ErrRateLimited) {
			s.metrics.Inc(MetricTokenRequestRateLimited)
		}
		return err
	}

	acc, err := s.accounts.FindAccountByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return storeFailure(err)
	}
	if !eligible(acc) {
		return nil
	}

	var issued *Token
	updated, err := s.accounts.UpdateAccount(ctx, acc.ID, func(tx *store.AccountTx) error {
		issued = nil
		if !eligible(tx.Account) {
			return nil
		}
		t, err := s.issue(tx)
		if err != nil {
			return err
		}
		issued = t
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return storeFailure(err)
	}
	if issued == nil {
		return nil
	}
	return s.deliver(ctx, updated, issued)
}

// consume resolves value to a live token, runs apply and deletes the token
// in the same unit of work.
func (s *tokenService) consume(ctx context.Context, value string, apply func(tx *store.AccountTx) error) (*Account, error) {
	if !internal.WellFormedToken(value) {
		s.metrics.Inc(MetricTokenRejected)
		return nil, ErrTokenNotFound
	}

	t, err := s.accounts.FindToken(ctx, s.kind, value)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.metrics.Inc(MetricTokenRejected)
			return nil, ErrTokenNotFound
		}
		return nil, storeFailure(err)
	}
	if !t.Active(s.clock.Now()) {
		s.metrics.Inc(MetricTokenRejected)
		return nil, ErrTokenExpired
	}

	acc, err := s.accounts.UpdateAccount(ctx, t.AccountID, func(tx *store.AccountTx) error {
		current := tx.Token(s.kind)
		if current == nil || current.Digest != t.Digest {
			return ErrTokenAlreadyConsumed
		}
		if !current.Active(s.clock.Now()) {
			return ErrTokenExpired
		}
		tx.DeleteToken(s.kind)
		if apply == nil {
			return nil
		}
		return apply(tx)
	})
	switch {
	case err == nil:
	case errors.Is(err, store.ErrNotFound):
		s.metrics.Inc(MetricTokenRejected)
		return nil, ErrTokenNotFound
	case errors.Is(err, ErrTokenAlreadyConsumed), errors.Is(err, ErrTokenExpired):
		s.metrics.Inc(MetricTokenRejected)
		return nil, err
	case errors.Is(err, ErrValidation):
		return nil, err
	default:
		return nil, storeFailure(err)
	}

	s.log.WithFields(logrus.Fields{
		"event":      "token_consumed",
		"kind":       string(s.kind),
		"account_id": acc.ID,
	}).Info("single-use token consumed")
	return acc, nil
}
