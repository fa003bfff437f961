package authcore

import (
	"context"
	"errors"

	"github.com/MrEthical07/authcore/store"
	"github.com/sirupsen/logrus"
)

// LockoutPolicy performs the lock and unlock transitions driven by the
// failed attempt counter. It exists only when lockout is enabled.
type LockoutPolicy struct {
	accounts store.AccountStore
	tokens   *tokenService
	notify   bool
	metrics  *Metrics
	log      logrus.FieldLogger
}

// ShouldLock reports whether acc has exceeded its failed attempt budget.
func (p *LockoutPolicy) ShouldLock(acc *Account) bool {
	return acc.FailedAttempts > acc.MaxFailedAttempts
}

// Lock marks the account in tx as locked and stages a fresh unlock token in
// the same unit of work. The caller commits tx and then passes the token to
// Locked.
func (p *LockoutPolicy) Lock(tx *store.AccountTx) (*Token, error) {
	tx.Account.Locked = true
	return p.tokens.issue(tx)
}

// Locked reports a committed lock transition and, when configured, notifies
// the account holder with the unlock token.
func (p *LockoutPolicy) Locked(ctx context.Context, acc *Account, unlock *Token) error {
	p.metrics.Inc(MetricAccountLocked)
	p.log.WithFields(logrus.Fields{
		"event":           "account_locked",
		"account_id":      acc.ID,
		"failed_attempts": acc.FailedAttempts,
	}).Warn("account locked after repeated failures")

	if !p.notify || unlock == nil {
		return nil
	}
	return p.tokens.deliver(ctx, acc, unlock)
}

// Unlock clears the lock, resets the counter and destroys the live unlock
// token of accountID in one unit of work.
func (p *LockoutPolicy) Unlock(ctx context.Context, accountID string) (*Account, error) {
	acc, err := p.accounts.UpdateAccount(ctx, accountID, func(tx *store.AccountTx) error {
		p.unlock(tx)
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, storeFailure(err)
	}
	p.unlocked(acc)
	return acc, nil
}

// RequestUnlock re-sends an unlock token to a locked account. It succeeds
// silently when email matches no locked account.
func (p *LockoutPolicy) RequestUnlock(ctx context.Context, email string) error {
	return p.tokens.request(ctx, email, func(acc *Account) bool {
		return acc.Locked
	})
}

// UnlockByToken consumes an unlock token and unlocks its account.
func (p *LockoutPolicy) UnlockByToken(ctx context.Context, value string) (*Account, error) {
	acc, err := p.tokens.consume(ctx, value, func(tx *store.AccountTx) error {
		p.unlock(tx)
		return nil
	})
	if err != nil {
		return nil, err
	}
	p.unlocked(acc)
	return acc, nil
}

func (p *LockoutPolicy) unlock(tx *store.AccountTx) {
	tx.Account.Locked = false
	tx.Account.FailedAttempts = 0
	tx.DeleteToken(TokenUnlock)
}

func (p *LockoutPolicy) unlocked(acc *Account) {
	p.metrics.Inc(MetricAccountUnlocked)
	p.log.WithFields(logrus.Fields{
		"event":      "account_unlocked",
		"account_id": acc.ID,
	}).Info("account unlocked")
}
