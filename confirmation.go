package authcore

import (
	"context"

	"github.com/MrEthical07/authcore/store"
)

// ConfirmationService confirms account emails with single-use tokens.
type ConfirmationService struct {
	tokens  *tokenService
	metrics *Metrics
}

// Request issues a new confirmation token for an unconfirmed account and
// notifies its holder. Unknown or already confirmed emails succeed silently.
func (s *ConfirmationService) Request(ctx context.Context, email string) error {
	return s.tokens.request(ctx, email, func(acc *Account) bool {
		return !acc.Confirmed
	})
}

// Confirm consumes a confirmation token and marks its account confirmed.
func (s *ConfirmationService) Confirm(ctx context.Context, value string) (*Account, error) {
	acc, err := s.tokens.consume(ctx, value, func(tx *store.AccountTx) error {
		tx.Account.Confirmed = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.Inc(MetricAccountConfirmed)
	return acc, nil
}
