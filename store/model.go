package store

import (
	"crypto/sha256"
	"encoding/base64"
	"time"
)

// Origin identifies the client context a session was issued for.
type Origin string

const (
	// OriginBrowser marks cookie-carried browser sessions.
	OriginBrowser Origin = "browser"
	// OriginAPI marks bearer-token API sessions, which carry a refresh token.
	OriginAPI Origin = "api"
)

// Valid reports whether o is a known origin.
func (o Origin) Valid() bool {
	return o == OriginBrowser || o == OriginAPI
}

// TokenKind identifies the purpose of a single-use token.
type TokenKind string

const (
	TokenConfirmation TokenKind = "confirmation"
	TokenRecovery     TokenKind = "recovery"
	TokenUnlock       TokenKind = "unlock"
)

// TokenKinds lists every single-use token kind an account can own.
var TokenKinds = []TokenKind{TokenConfirmation, TokenRecovery, TokenUnlock}

// Valid reports whether k is a known token kind.
func (k TokenKind) Valid() bool {
	switch k {
	case TokenConfirmation, TokenRecovery, TokenUnlock:
		return true
	}
	return false
}

// Target links an account to a host-application record.
type Target struct {
	Type string
	ID   string
}

// Account is the identity record.
type Account struct {
	ID                string
	Email             string
	PasswordDigest    string
	Confirmed         bool
	Locked            bool
	FailedAttempts    int
	MaxFailedAttempts int
	Target            *Target
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Clone returns a deep copy of a.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	out := *a
	if a.Target != nil {
		t := *a.Target
		out.Target = &t
	}
	return &out
}

// Session is proof of an authenticated browser or API context.
//
// Token holds the raw value only on a freshly started session or one found by
// its value; TokenDigest is what backends persist.
type Session struct {
	ID          string
	AccountID   string
	Token       string
	TokenDigest string
	ExpiredAt   time.Time
	Origin      Origin
	IPAddress   string
	UserAgent   string
	CreatedAt   time.Time
}

// Active reports whether the session has not expired at now.
func (s *Session) Active(now time.Time) bool {
	return !s.ExpiredAt.Before(now)
}

// RefreshToken is the 1:1 companion of an API session.
type RefreshToken struct {
	ID          string
	SessionID   string
	Token       string
	TokenDigest string
	ExpiredAt   time.Time
	CreatedAt   time.Time
}

// Active reports whether the refresh token has not expired at now.
func (r *RefreshToken) Active(now time.Time) bool {
	return !r.ExpiredAt.Before(now)
}

// Token is a single-use confirmation, recovery or unlock token. An account
// owns at most one live token per kind.
type Token struct {
	ID        string
	Kind      TokenKind
	AccountID string
	Value     string
	Digest    string
	ExpiredAt time.Time
	CreatedAt time.Time
}

// Active reports whether the token has not expired at now.
func (t *Token) Active(now time.Time) bool {
	return !t.ExpiredAt.Before(now)
}

// Digest returns the persisted form of a token value.
func Digest(value string) string {
	sum := sha256.Sum256([]byte(value))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
