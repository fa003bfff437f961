package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/MrEthical07/authcore/store"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*store.Account, error) {
	var (
		acc        store.Account
		targetType sql.NullString
		targetID   sql.NullString
	)
	err := row.Scan(
		&acc.ID,
		&acc.Email,
		&acc.PasswordDigest,
		&acc.Confirmed,
		&acc.Locked,
		&acc.FailedAttempts,
		&acc.MaxFailedAttempts,
		&targetType,
		&targetID,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	)
	if err != nil {
		return nil, classify(err)
	}
	if targetType.Valid {
		acc.Target = &store.Target{Type: targetType.String, ID: targetID.String}
	}
	return &acc, nil
}

func scanToken(row rowScanner, kind store.TokenKind) (*store.Token, error) {
	t := store.Token{Kind: kind}
	if err := row.Scan(&t.ID, &t.AccountID, &t.Digest, &t.ExpiredAt, &t.CreatedAt); err != nil {
		return nil, classify(err)
	}
	return &t, nil
}

func targetColumns(acc *store.Account) (sql.NullString, sql.NullString) {
	if acc.Target == nil {
		return sql.NullString{}, sql.NullString{}
	}
	return nullString(acc.Target.Type), nullString(acc.Target.ID)
}

func insertToken(ctx context.Context, tx *sql.Tx, t *store.Token) error {
	table, err := tokenTable(t.Kind)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, upsertTokenQuery(table),
		t.ID, t.AccountID, t.Digest, t.ExpiredAt.UTC(), t.CreatedAt.UTC())
	return classify(err)
}

// CreateAccount inserts the account row and its tokens in one transaction.
func (s *Store) CreateAccount(ctx context.Context, acc *store.Account, tokens ...*store.Token) error {
	targetType, targetID := targetColumns(acc)

	return s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, insertAccountQuery,
			acc.ID,
			acc.Email,
			acc.PasswordDigest,
			acc.Confirmed,
			acc.Locked,
			acc.FailedAttempts,
			acc.MaxFailedAttempts,
			targetType,
			targetID,
			acc.CreatedAt.UTC(),
			acc.UpdatedAt.UTC(),
		)
		if err != nil {
			return classify(err)
		}

		for _, t := range tokens {
			t.AccountID = acc.ID
			if err := insertToken(ctx, tx, t); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetAccount loads an account by id.
func (s *Store) GetAccount(ctx context.Context, id string) (*store.Account, error) {
	return scanAccount(s.db.QueryRowContext(ctx, selectAccountByIDQuery, id))
}

// FindAccountByEmail loads an account by email, case-insensitively.
func (s *Store) FindAccountByEmail(ctx context.Context, email string) (*store.Account, error) {
	return scanAccount(s.db.QueryRowContext(ctx, selectAccountByEmailQuery, email))
}

// FindToken loads a single-use token by raw value.
func (s *Store) FindToken(ctx context.Context, kind store.TokenKind, value string) (*store.Token, error) {
	table, err := tokenTable(kind)
	if err != nil {
		return nil, err
	}

	t, err := scanToken(s.db.QueryRowContext(ctx, selectTokenByValueQuery(table), store.Digest(value)), kind)
	if err != nil {
		return nil, err
	}
	t.Value = value
	return t, nil
}

// UpdateAccount locks the account row for the duration of fn.
func (s *Store) UpdateAccount(ctx context.Context, id string, fn func(tx *store.AccountTx) error) (*store.Account, error) {
	var updated *store.Account

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		acc, err := scanAccount(tx.QueryRowContext(ctx, selectAccountForUpdateQuery, id))
		if err != nil {
			return err
		}

		tokens := make([]*store.Token, 0, len(store.TokenKinds))
		for _, kind := range store.TokenKinds {
			table, _ := tokenTable(kind)
			t, err := scanToken(tx.QueryRowContext(ctx, selectTokenByAccountQuery(table), id), kind)
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			tokens = append(tokens, t)
		}

		utx := store.NewAccountTx(acc, tokens)
		if err := fn(utx); err != nil {
			return err
		}

		targetType, targetID := targetColumns(utx.Account)
		_, err = tx.ExecContext(ctx, updateAccountQuery,
			id,
			utx.Account.PasswordDigest,
			utx.Account.Confirmed,
			utx.Account.Locked,
			utx.Account.FailedAttempts,
			utx.Account.MaxFailedAttempts,
			targetType,
			targetID,
			utx.Account.UpdatedAt,
		)
		if err != nil {
			return classify(err)
		}

		puts, deletes := utx.Staged()
		for _, c := range puts {
			if err := insertToken(ctx, tx, c.Next); err != nil {
				return err
			}
		}
		for _, c := range deletes {
			table, _ := tokenTable(c.Kind)
			if _, err := tx.ExecContext(ctx, deleteTokenQuery(table), id); err != nil {
				return classify(err)
			}
		}

		updated = utx.Account
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
