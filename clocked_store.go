package authcore

import (
	"context"

	"github.com/MrEthical07/authcore/store"
)

// clockedStore stamps UpdatedAt from the engine clock on every committed
// account unit of work.
type clockedStore struct {
	store.Store
	clock Clock
}

func (s clockedStore) UpdateAccount(ctx context.Context, id string, fn func(tx *store.AccountTx) error) (*Account, error) {
	return s.Store.UpdateAccount(ctx, id, func(tx *store.AccountTx) error {
		if err := fn(tx); err != nil {
			return err
		}
		tx.Account.UpdatedAt = s.clock.Now()
		return nil
	})
}
