package authcore

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/authcore/internal"
	"github.com/MrEthical07/authcore/store"
	"github.com/sirupsen/logrus"
)

// RefreshOptions describe the client redeeming a refresh token.
type RefreshOptions struct {
	// Origin of the rotated session. Empty means OriginAPI; any other value
	// is rejected because refresh tokens only attach to API sessions.
	Origin    Origin
	IPAddress string
	UserAgent string
}

// RefreshRotator redeems refresh tokens. Every successful redemption deletes
// the old session pair and mints a new one; a token is never accepted twice.
type RefreshRotator struct {
	sessions    store.SessionStore
	accounts    store.AccountStore
	credentials *CredentialStore
	manager     *SessionManager
	clock       Clock
	metrics     *Metrics
	log         logrus.FieldLogger
}

// Refresh rotates the session pair identified by value.
//
// The per-token lock is taken without waiting. Losing it returns
// ErrInvalidRefreshToken joined with ErrLockAcquisitionFailed. An expired
// token, or one whose account is no longer authenticatable, revokes its
// session and returns ErrInvalidRefreshToken.
func (r *RefreshRotator) Refresh(ctx context.Context, value string, opts RefreshOptions) (*Session, *RefreshToken, error) {
	if opts.Origin == "" {
		opts.Origin = OriginAPI
	}
	if opts.Origin != OriginAPI {
		return nil, nil, ErrSessionOriginMismatch
	}
	if opts.IPAddress == "" {
		opts.IPAddress = clientIPFromContext(ctx)
	}
	if opts.UserAgent == "" {
		opts.UserAgent = userAgentFromContext(ctx)
	}
	if !internal.WellFormedToken(value) {
		return nil, nil, r.failed("malformed", "")
	}

	var (
		now       = r.clock.Now()
		accountID string
		reason    string
	)
	next, nextRefresh, err := r.sessions.RotateRefreshToken(ctx, value, func(current *RefreshToken, sess *Session) (*Session, *RefreshToken, error) {
		accountID = sess.AccountID
		reason = ""
		if !current.Active(now) {
			reason = "expired"
			return nil, nil, nil
		}

		acc, err := r.accounts.GetAccount(ctx, sess.AccountID)
		if errors.Is(err, store.ErrNotFound) {
			reason = "account_missing"
			return nil, nil, nil
		}
		if err != nil {
			return nil, nil, err
		}
		if err := r.credentials.Authenticatable(acc); err != nil {
			reason = "account_not_authenticatable"
			return nil, nil, nil
		}

		return r.manager.mint(acc.ID, StartOptions{
			Origin:    OriginAPI,
			IPAddress: opts.IPAddress,
			UserAgent: opts.UserAgent,
		}, now)
	})

	switch {
	case err == nil:
	case errors.Is(err, store.ErrLockNotAcquired):
		r.metrics.Inc(MetricRefreshContention)
		r.log.WithField("event", "refresh_contention").Info("refresh token is being rotated concurrently")
		r.metrics.Inc(MetricRefreshFailure)
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidRefreshToken, ErrLockAcquisitionFailed)
	case errors.Is(err, store.ErrNotFound):
		return nil, nil, r.failed("refresh_token_unknown", "")
	case errors.Is(err, store.ErrOriginMismatch):
		r.metrics.Inc(MetricRefreshFailure)
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidRefreshToken, ErrSessionOriginMismatch)
	default:
		return nil, nil, storeFailure(err)
	}

	if next == nil {
		r.metrics.Inc(MetricSessionRevoked)
		return nil, nil, r.failed(reason, accountID)
	}

	r.metrics.Inc(MetricRefreshSuccess)
	r.metrics.Inc(MetricSessionRevoked)
	r.manager.started(next, "session_rotated")
	return next, nextRefresh, nil
}

func (r *RefreshRotator) failed(reason, accountID string) error {
	r.metrics.Inc(MetricRefreshFailure)
	entry := r.log.WithFields(logrus.Fields{
		"event":  "refresh_rejected",
		"reason": reason,
	})
	if accountID != "" {
		entry = entry.WithField("account_id", accountID)
	}
	entry.Info("refresh rejected")
	return ErrInvalidRefreshToken
}
