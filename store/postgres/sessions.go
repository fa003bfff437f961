package postgres

import (
	"context"
	"database/sql"

	"github.com/MrEthical07/authcore/store"
)

func scanSession(row rowScanner) (*store.Session, error) {
	var (
		sess   store.Session
		origin string
	)
	err := row.Scan(
		&sess.ID,
		&sess.AccountID,
		&sess.TokenDigest,
		&sess.ExpiredAt,
		&origin,
		&sess.IPAddress,
		&sess.UserAgent,
		&sess.CreatedAt,
	)
	if err != nil {
		return nil, classify(err)
	}
	sess.Origin = store.Origin(origin)
	return &sess, nil
}

func scanRefreshToken(row rowScanner) (*store.RefreshToken, error) {
	var rt store.RefreshToken
	if err := row.Scan(&rt.ID, &rt.SessionID, &rt.TokenDigest, &rt.ExpiredAt, &rt.CreatedAt); err != nil {
		return nil, classify(err)
	}
	return &rt, nil
}

func insertSession(ctx context.Context, tx *sql.Tx, sess *store.Session, rt *store.RefreshToken) error {
	_, err := tx.ExecContext(ctx, insertSessionQuery,
		sess.ID,
		sess.AccountID,
		sess.TokenDigest,
		sess.ExpiredAt.UTC(),
		string(sess.Origin),
		sess.IPAddress,
		sess.UserAgent,
		sess.CreatedAt.UTC(),
	)
	if err != nil {
		return classify(err)
	}
	if rt == nil {
		return nil
	}

	rt.SessionID = sess.ID
	_, err = tx.ExecContext(ctx, insertRefreshTokenQuery,
		rt.ID,
		rt.SessionID,
		rt.TokenDigest,
		rt.ExpiredAt.UTC(),
		rt.CreatedAt.UTC(),
	)
	return classify(err)
}

// CreateSession inserts the session and its refresh token in one transaction.
func (s *Store) CreateSession(ctx context.Context, sess *store.Session, rt *store.RefreshToken) error {
	if err := store.CheckRefreshOrigin(sess, rt); err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return insertSession(ctx, tx, sess, rt)
	})
}

// FindSessionByToken loads a session by raw token value.
func (s *Store) FindSessionByToken(ctx context.Context, value string) (*store.Session, error) {
	sess, err := scanSession(s.db.QueryRowContext(ctx, selectSessionByTokenQuery, store.Digest(value)))
	if err != nil {
		return nil, err
	}
	sess.Token = value
	return sess, nil
}

// FindRefreshToken loads a refresh token by raw value.
func (s *Store) FindRefreshToken(ctx context.Context, value string) (*store.RefreshToken, error) {
	rt, err := scanRefreshToken(s.db.QueryRowContext(ctx, selectRefreshTokenQuery, store.Digest(value)))
	if err != nil {
		return nil, err
	}
	rt.Token = value
	return rt, nil
}

// DeleteSession deletes the session row; the refresh token follows by cascade.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, deleteSessionQuery, id); err != nil {
		return classify(err)
	}
	return nil
}

// DeleteAccountSessions deletes every session of accountID.
func (s *Store) DeleteAccountSessions(ctx context.Context, accountID string) (int, error) {
	res, err := s.db.ExecContext(ctx, deleteAccountSessionsQuery, accountID)
	if err != nil {
		return 0, classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, classify(err)
	}
	return int(n), nil
}

// RotateRefreshToken locks the refresh token row with FOR UPDATE NOWAIT and
// replaces the session pair inside the same transaction.
func (s *Store) RotateRefreshToken(ctx context.Context, value string, fn store.RotateFunc) (*store.Session, *store.RefreshToken, error) {
	var (
		next   *store.Session
		nextRT *store.RefreshToken
	)

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		rt, err := scanRefreshToken(tx.QueryRowContext(ctx, selectRefreshTokenNowaitQuery, store.Digest(value)))
		if err != nil {
			return err
		}
		rt.Token = value

		sess, err := scanSession(tx.QueryRowContext(ctx, selectSessionByIDQuery, rt.SessionID))
		if err != nil {
			return err
		}

		next, nextRT, err = fn(rt, sess)
		if err != nil {
			return err
		}
		if next != nil {
			if err := store.CheckRefreshOrigin(next, nextRT); err != nil {
				return err
			}
		}

		if _, err := tx.ExecContext(ctx, deleteSessionQuery, sess.ID); err != nil {
			return classify(err)
		}
		if next == nil {
			return nil
		}
		return insertSession(ctx, tx, next, nextRT)
	})
	if err != nil {
		return nil, nil, err
	}
	return next, nextRT, nil
}
