package store

import "context"

// AccountStore persists accounts and their single-use tokens.
type AccountStore interface {
	// CreateAccount inserts acc together with tokens in one unit of work.
	// A taken email yields ErrDuplicate.
	CreateAccount(ctx context.Context, acc *Account, tokens ...*Token) error
	GetAccount(ctx context.Context, id string) (*Account, error)
	// FindAccountByEmail expects an already normalized email.
	FindAccountByEmail(ctx context.Context, email string) (*Account, error)
	// FindToken looks a single-use token up by its raw value. Expired tokens
	// are returned; expiry is the caller's decision.
	FindToken(ctx context.Context, kind TokenKind, value string) (*Token, error)
	// UpdateAccount runs fn against a locked snapshot of the account and its
	// tokens and commits the staged changes atomically. Backends persist
	// UpdatedAt as fn leaves it.
	UpdateAccount(ctx context.Context, id string, fn func(tx *AccountTx) error) (*Account, error)
}

// RotateFunc computes the successor of a locked refresh token. Returning a nil
// session deletes the current pair without a replacement. Returning an error
// leaves the pair untouched.
type RotateFunc func(current *RefreshToken, session *Session) (*Session, *RefreshToken, error)

// SessionStore persists sessions and refresh tokens.
type SessionStore interface {
	// CreateSession inserts sess and, for API sessions, its refresh token in
	// one unit of work.
	CreateSession(ctx context.Context, sess *Session, refresh *RefreshToken) error
	FindSessionByToken(ctx context.Context, value string) (*Session, error)
	FindRefreshToken(ctx context.Context, value string) (*RefreshToken, error)
	// DeleteSession removes the session and its refresh token. Deleting a
	// missing session is not an error.
	DeleteSession(ctx context.Context, id string) error
	DeleteAccountSessions(ctx context.Context, accountID string) (int, error)
	// RotateRefreshToken locks the refresh token identified by value without
	// waiting, re-reads it, and replaces the pair with the result of fn.
	RotateRefreshToken(ctx context.Context, value string, fn RotateFunc) (*Session, *RefreshToken, error)
}

// Store is the full persistence surface used by the engine.
type Store interface {
	AccountStore
	SessionStore
}

// CheckRefreshOrigin validates that refresh may be attached to sess.
func CheckRefreshOrigin(sess *Session, refresh *RefreshToken) error {
	if refresh == nil {
		return nil
	}
	if sess.Origin != OriginAPI {
		return ErrOriginMismatch
	}
	return nil
}
