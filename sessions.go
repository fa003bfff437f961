package authcore

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/authcore/internal"
	"github.com/MrEthical07/authcore/store"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// StartOptions describe a new session.
type StartOptions struct {
	Origin    Origin
	IPAddress string
	UserAgent string
	// ExpiredAt overrides the origin default lifetime when non-zero.
	ExpiredAt time.Time
	// ReplaceToken is the browser session token the client presented before
	// authenticating. That session is revoked and its token is never reused.
	ReplaceToken string
}

// SessionManager starts, finds and revokes sessions.
type SessionManager struct {
	sessions    store.SessionStore
	accounts    store.AccountStore
	credentials *CredentialStore
	cfg         SessionConfig
	clock       Clock
	metrics     *Metrics
	log         logrus.FieldLogger
}

// Start mints a session for acc. API sessions get their refresh token in the
// same unit of work; browser sessions return a nil refresh token.
//
// IPAddress and UserAgent default to the values attached with WithClientIP
// and WithUserAgent.
func (m *SessionManager) Start(ctx context.Context, acc *Account, opts StartOptions) (*Session, *RefreshToken, error) {
	if acc == nil || acc.ID == "" {
		return nil, nil, invalid("account", "must be persisted")
	}
	if opts.Origin == "" {
		opts.Origin = OriginBrowser
	}
	if !opts.Origin.Valid() {
		return nil, nil, invalid("origin", "is not included in the list")
	}
	if opts.IPAddress == "" {
		opts.IPAddress = clientIPFromContext(ctx)
	}
	if opts.UserAgent == "" {
		opts.UserAgent = userAgentFromContext(ctx)
	}

	if opts.ReplaceToken != "" {
		if err := m.discard(ctx, opts.ReplaceToken); err != nil {
			return nil, nil, err
		}
	}

	sess, refresh, err := m.mint(acc.ID, opts, m.clock.Now())
	if err != nil {
		return nil, nil, err
	}
	if err := m.sessions.CreateSession(ctx, sess, refresh); err != nil {
		if errors.Is(err, store.ErrOriginMismatch) {
			return nil, nil, ErrSessionOriginMismatch
		}
		return nil, nil, storeFailure(err)
	}

	m.started(sess, "session_started")
	return sess, refresh, nil
}

// mint builds an unpersisted session, and for API origin its refresh token,
// with fresh random tokens.
func (m *SessionManager) mint(accountID string, opts StartOptions, now time.Time) (*Session, *RefreshToken, error) {
	value, err := internal.NewToken()
	if err != nil {
		return nil, nil, err
	}

	sess := &Session{
		ID:          uuid.NewString(),
		AccountID:   accountID,
		Token:       value,
		TokenDigest: store.Digest(value),
		ExpiredAt:   opts.ExpiredAt,
		Origin:      opts.Origin,
		IPAddress:   opts.IPAddress,
		UserAgent:   opts.UserAgent,
		CreatedAt:   now,
	}
	if sess.ExpiredAt.IsZero() {
		sess.ExpiredAt = now.Add(m.lifetime(opts.Origin))
	}
	if opts.Origin != OriginAPI {
		return sess, nil, nil
	}

	refreshValue, err := internal.NewToken()
	if err != nil {
		return nil, nil, err
	}
	refresh := &RefreshToken{
		ID:          uuid.NewString(),
		SessionID:   sess.ID,
		Token:       refreshValue,
		TokenDigest: store.Digest(refreshValue),
		ExpiredAt:   now.Add(m.cfg.RefreshExpiry),
		CreatedAt:   now,
	}
	return sess, refresh, nil
}

func (m *SessionManager) lifetime(origin Origin) time.Duration {
	if origin == OriginAPI {
		return m.cfg.APIAccessExpiry
	}
	return m.cfg.BrowserExpiry
}

// FindByToken returns the active session identified by token together with
// its account. The session must have the given origin and its account must
// match targetType (empty matches any) and pass every enabled gate.
//
// Expired sessions and sessions whose account is no longer authenticatable
// are revoked on sight. Every miss returns ErrSessionNotFound.
func (m *SessionManager) FindByToken(ctx context.Context, token string, origin Origin, targetType string) (*Session, *Account, error) {
	if !internal.WellFormedToken(token) {
		return nil, nil, ErrSessionNotFound
	}

	sess, err := m.sessions.FindSessionByToken(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, ErrSessionNotFound
		}
		return nil, nil, storeFailure(err)
	}
	if origin != "" && sess.Origin != origin {
		return nil, nil, ErrSessionNotFound
	}
	if !sess.Active(m.clock.Now()) {
		return nil, nil, m.revokeStale(ctx, sess, "expired")
	}

	acc, err := m.accounts.GetAccount(ctx, sess.AccountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, m.revokeStale(ctx, sess, "account_missing")
		}
		return nil, nil, storeFailure(err)
	}
	if err := m.credentials.Authenticatable(acc); err != nil {
		return nil, nil, m.revokeStale(ctx, sess, "account_not_authenticatable")
	}
	if !matchesTarget(acc, targetType) {
		return nil, nil, ErrSessionNotFound
	}
	return sess, acc, nil
}

// Revoke deletes sess and, for API sessions, its refresh token. Revoking a
// session that no longer exists succeeds.
func (m *SessionManager) Revoke(ctx context.Context, sess *Session) error {
	if sess == nil {
		return nil
	}
	if err := m.sessions.DeleteSession(ctx, sess.ID); err != nil {
		return storeFailure(err)
	}
	m.metrics.Inc(MetricSessionRevoked)
	m.log.WithFields(logrus.Fields{
		"event":      "session_revoked",
		"account_id": sess.AccountID,
		"origin":     string(sess.Origin),
	}).Info("session revoked")
	return nil
}

// RevokeAll deletes every session of accountID and reports how many existed.
func (m *SessionManager) RevokeAll(ctx context.Context, accountID string) (int, error) {
	n, err := m.sessions.DeleteAccountSessions(ctx, accountID)
	if err != nil {
		return n, storeFailure(err)
	}
	for i := 0; i < n; i++ {
		m.metrics.Inc(MetricSessionRevoked)
	}
	m.log.WithFields(logrus.Fields{
		"event":      "sessions_revoked",
		"account_id": accountID,
		"count":      n,
	}).Info("account sessions revoked")
	return n, nil
}

// discard revokes the pre-authentication session named by token, if any.
func (m *SessionManager) discard(ctx context.Context, token string) error {
	if !internal.WellFormedToken(token) {
		return nil
	}
	sess, err := m.sessions.FindSessionByToken(ctx, token)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return storeFailure(err)
	}
	return m.Revoke(ctx, sess)
}

func (m *SessionManager) revokeStale(ctx context.Context, sess *Session, reason string) error {
	m.log.WithFields(logrus.Fields{
		"event":      "session_stale",
		"account_id": sess.AccountID,
		"reason":     reason,
	}).Debug("revoking stale session")
	if err := m.Revoke(ctx, sess); err != nil {
		return err
	}
	return ErrSessionNotFound
}

func (m *SessionManager) started(sess *Session, event string) {
	m.metrics.Inc(MetricSessionCreated)
	m.log.WithFields(logrus.Fields{
		"event":      event,
		"account_id": sess.AccountID,
		"origin":     string(sess.Origin),
	}).Info("session started")
}
