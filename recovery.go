package authcore

import (
	"context"
	"strings"

	"github.com/MrEthical07/authcore/password"
	"github.com/MrEthical07/authcore/store"
	"github.com/sirupsen/logrus"
)

// RecoveryService resets forgotten passwords with single-use tokens.
type RecoveryService struct {
	tokens         *tokenService
	hasher         *password.Hasher
	policy         *password.Policy
	sessions       *SessionManager
	revokeSessions bool
	metrics        *Metrics
	log            logrus.FieldLogger
}

// Request issues a new recovery token and notifies the account holder.
// Unknown emails succeed silently.
func (s *RecoveryService) Request(ctx context.Context, email string) error {
	return s.tokens.request(ctx, email, func(*Account) bool {
		return true
	})
}

// Recover validates newPassword, then consumes the recovery token and stores
// the new digest in one unit of work. When configured, every session of the
// account is revoked afterwards.
func (s *RecoveryService) Recover(ctx context.Context, value, newPassword string) (*Account, error) {
	if err := validatePassword(s.policy, newPassword); err != nil {
		return nil, err
	}
	digest, err := s.hasher.Digest(newPassword)
	if err != nil {
		return nil, err
	}

	acc, err := s.tokens.consume(ctx, value, func(tx *store.AccountTx) error {
		tx.Account.PasswordDigest = digest
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.Inc(MetricPasswordRecovered)
	s.log.WithFields(logrus.Fields{
		"event":      "password_recovered",
		"account_id": acc.ID,
	}).Info("password reset by recovery token")

	if s.revokeSessions {
		if _, err := s.sessions.RevokeAll(ctx, acc.ID); err != nil {
			return acc, err
		}
	}
	return acc, nil
}

func validatePassword(policy *password.Policy, plain string) error {
	if err := policy.Validate(plain); err != nil {
		return invalid("password", passwordReason(err))
	}
	return nil
}

// passwordReason turns "password is too short: ..." into "is too short: ...".
func passwordReason(err error) string {
	return strings.TrimPrefix(err.Error(), "password ")
}
