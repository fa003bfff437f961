package authcore

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/authcore/password"
	"github.com/MrEthical07/authcore/store"
	"github.com/sirupsen/logrus"
)

// Authenticator verifies an email and password pair and keeps the failed
// attempt counter, and the lock it drives, consistent.
type Authenticator struct {
	credentials   *CredentialStore
	accounts      store.AccountStore
	hasher        *password.Hasher
	lockout       *LockoutPolicy
	preventTiming bool
	metrics       *Metrics
	log           logrus.FieldLogger
}

// Authenticate returns the account registered under email when plain
// matches its digest and the account passes every enabled gate.
//
// Every credential-related failure, including unknown, unconfirmed and
// locked accounts, returns ErrInvalidCredentials. Only storage failures and
// context errors are returned as themselves.
func (a *Authenticator) Authenticate(ctx context.Context, email, plain, targetType string) (*Account, error) {
	start := time.Now()
	defer func() {
		a.metrics.Observe(MetricAuthLatency, time.Since(start))
	}()

	acc, err := a.credentials.FindAuthenticatable(ctx, email, targetType)
	if err != nil {
		if errors.Is(err, ErrStoreUnavailable) || ctx.Err() != nil {
			return nil, err
		}
		if a.preventTiming {
			// same Argon2id cost as a real verification
			_, _ = a.credentials.BuildFromCredentials(email, plain)
		}
		a.rejected(err, "")
		return nil, ErrInvalidCredentials
	}

	if !a.hasher.Matches(plain, acc.PasswordDigest) {
		if err := a.recordFailure(ctx, acc); err != nil {
			return nil, err
		}
		return nil, ErrInvalidCredentials
	}

	acc, err = a.recordSuccess(ctx, acc, plain)
	if err != nil {
		return nil, err
	}

	a.metrics.Inc(MetricAuthSuccess)
	a.log.WithFields(logrus.Fields{
		"event":      "authenticated",
		"account_id": acc.ID,
	}).Info("authentication succeeded")
	return acc, nil
}

// recordSuccess resets the counter, clears a stale lock and upgrades an
// outdated digest in one unit of work. Nothing is written when the account
// is already clean.
func (a *Authenticator) recordSuccess(ctx context.Context, acc *Account, plain string) (*Account, error) {
	upgrade := a.hasher.NeedsUpgrade(acc.PasswordDigest)
	if acc.FailedAttempts == 0 && !(a.lockout != nil && acc.Locked) && !upgrade {
		return acc, nil
	}

	var digest string
	if upgrade {
		d, err := a.hasher.Digest(plain)
		if err != nil {
			return nil, err
		}
		digest = d
	}

	updated, err := a.accounts.UpdateAccount(ctx, acc.ID, func(tx *store.AccountTx) error {
		if err := a.credentials.Authenticatable(tx.Account); err != nil && !errors.Is(err, ErrAccountLocked) {
			return err
		}
		tx.Account.FailedAttempts = 0
		if a.lockout != nil {
			a.lockout.unlock(tx)
		}
		if digest != "" && tx.Account.PasswordDigest == acc.PasswordDigest {
			tx.Account.PasswordDigest = digest
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, ErrAccountNotConfirmed) {
			a.rejected(err, acc.ID)
			return nil, ErrInvalidCredentials
		}
		return nil, storeFailure(err)
	}
	if digest != "" && updated.PasswordDigest == digest {
		a.metrics.Inc(MetricPasswordRehashed)
	}
	return updated, nil
}

// recordFailure increments the counter and, when lockout is enabled and the
// budget is now exceeded, locks the account in the same unit of work.
func (a *Authenticator) recordFailure(ctx context.Context, acc *Account) error {
	var unlock *Token
	updated, err := a.accounts.UpdateAccount(ctx, acc.ID, func(tx *store.AccountTx) error {
		unlock = nil
		tx.Account.FailedAttempts++
		if a.lockout == nil || tx.Account.Locked || !a.lockout.ShouldLock(tx.Account) {
			return nil
		}
		t, err := a.lockout.Lock(tx)
		if err != nil {
			return err
		}
		unlock = t
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			a.rejected(err, acc.ID)
			return nil
		}
		return storeFailure(err)
	}

	a.rejected(ErrInvalidCredentials, acc.ID)
	if unlock != nil {
		if err := a.lockout.Locked(ctx, updated, unlock); err != nil {
			a.log.WithError(err).WithField("account_id", updated.ID).Error("unlock notification failed")
		}
	}
	return nil
}

func (a *Authenticator) rejected(reason error, accountID string) {
	a.metrics.Inc(MetricAuthFailure)
	entry := a.log.WithFields(logrus.Fields{
		"event":  "authentication_rejected",
		"reason": reason.Error(),
	})
	if accountID != "" {
		entry = entry.WithField("account_id", accountID)
	}
	entry.Info("authentication rejected")
}
