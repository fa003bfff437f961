package authcore

import (
	"context"
	"errors"
	"testing"
	"time"
)

func signIn(t *testing.T, e *testEngine, origin Origin) *SignInResult {
	t.Helper()

	res, err := e.SignIn(context.Background(), SignInInput{
		Email:    "user@example.com",
		Password: "Password1!",
		Origin:   origin,
	})
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	return res
}

func TestStartBrowserSession(t *testing.T) {
	cfg := testConfig()
	e := newTestEngine(t, cfg)
	acc := mustRegister(t, e, "user@example.com", "Password1!")

	res := signIn(t, e, OriginBrowser)
	if res.RefreshToken != nil {
		t.Fatal("browser sessions have no refresh token")
	}
	if res.Session.AccountID != acc.ID {
		t.Fatal("session bound to wrong account")
	}
	if want := testEpoch.Add(cfg.Session.BrowserExpiry); !res.Session.ExpiredAt.Equal(want) {
		t.Fatalf("expected expiry %v, got %v", want, res.Session.ExpiredAt)
	}

	id, err := e.FindSession(context.Background(), res.Session.Token, OriginBrowser, "")
	if err != nil {
		t.Fatalf("FindSession failed: %v", err)
	}
	if id.Session.ID != res.Session.ID || id.Account.ID != acc.ID {
		t.Fatal("FindSession returned a different identity")
	}
	if _, err := e.FindSession(context.Background(), res.Session.Token, OriginAPI, ""); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected origin mismatch to miss, got %v", err)
	}
	assertNotPersisted(t, e, res.Session.Token)
}

func TestStartAPISessionPairsRefreshToken(t *testing.T) {
	cfg := testConfig()
	e := newTestEngine(t, cfg)
	mustRegister(t, e, "user@example.com", "Password1!")

	res := signIn(t, e, OriginAPI)
	if res.RefreshToken == nil {
		t.Fatal("expected a refresh token")
	}
	if res.RefreshToken.SessionID != res.Session.ID {
		t.Fatal("refresh token not paired with its session")
	}
	if want := testEpoch.Add(cfg.Session.APIAccessExpiry); !res.Session.ExpiredAt.Equal(want) {
		t.Fatalf("expected access expiry %v, got %v", want, res.Session.ExpiredAt)
	}
	if want := testEpoch.Add(cfg.Session.RefreshExpiry); !res.RefreshToken.ExpiredAt.Equal(want) {
		t.Fatalf("expected refresh expiry %v, got %v", want, res.RefreshToken.ExpiredAt)
	}
	if res.Session.Token == res.RefreshToken.Token {
		t.Fatal("session and refresh tokens must differ")
	}
	assertNotPersisted(t, e, res.RefreshToken.Token)
}

func TestStartSessionExplicitExpiryAndContextMetadata(t *testing.T) {
	e := newTestEngine(t, testConfig())
	acc := mustRegister(t, e, "user@example.com", "Password1!")

	ctx := WithUserAgent(WithClientIP(context.Background(), "203.0.113.7"), "curl/8")
	expiry := testEpoch.Add(90 * time.Minute)
	sess, _, err := e.StartSession(ctx, acc, StartOptions{Origin: OriginBrowser, ExpiredAt: expiry})
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	if !sess.ExpiredAt.Equal(expiry) {
		t.Fatalf("expected explicit expiry, got %v", sess.ExpiredAt)
	}

	id, err := e.FindSession(context.Background(), sess.Token, OriginBrowser, "")
	if err != nil {
		t.Fatalf("FindSession failed: %v", err)
	}
	if id.Session.IPAddress != "203.0.113.7" || id.Session.UserAgent != "curl/8" {
		t.Fatalf("expected context metadata, got %q %q", id.Session.IPAddress, id.Session.UserAgent)
	}
}

func TestStartSessionRejectsInvalidInput(t *testing.T) {
	e := newTestEngine(t, testConfig())
	acc := mustRegister(t, e, "user@example.com", "Password1!")

	if _, _, err := e.StartSession(context.Background(), acc, StartOptions{Origin: "desktop"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected origin validation error, got %v", err)
	}
	if _, _, err := e.StartSession(context.Background(), &Account{}, StartOptions{}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected account validation error, got %v", err)
	}
}

func TestExpiredSessionIsRevokedOnLookup(t *testing.T) {
	cfg := testConfig()
	e := newTestEngine(t, cfg)
	mustRegister(t, e, "user@example.com", "Password1!")
	res := signIn(t, e, OriginBrowser)

	e.clock.Advance(cfg.Session.BrowserExpiry)
	if _, err := e.FindSession(context.Background(), res.Session.Token, OriginBrowser, ""); err != nil {
		t.Fatalf("session must be valid up to its expiry instant: %v", err)
	}

	e.clock.Advance(time.Second)
	if _, err := e.FindSession(context.Background(), res.Session.Token, OriginBrowser, ""); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if _, err := e.store.FindSessionByToken(context.Background(), res.Session.Token); err == nil {
		t.Fatal("expected expired session to be deleted")
	}
}

func TestSessionFixationReplacesPreAuthSession(t *testing.T) {
	e := newTestEngine(t, testConfig())
	mustRegister(t, e, "user@example.com", "Password1!")
	planted := signIn(t, e, OriginBrowser)

	res, err := e.SignIn(context.Background(), SignInInput{
		Email:        "user@example.com",
		Password:     "Password1!",
		Origin:       OriginBrowser,
		ReplaceToken: planted.Session.Token,
	})
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	if res.Session.Token == planted.Session.Token || res.Session.ID == planted.Session.ID {
		t.Fatal("new session must not adopt the presented token")
	}
	if _, err := e.FindSession(context.Background(), planted.Session.Token, OriginBrowser, ""); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected presented session to be revoked, got %v", err)
	}
	if _, err := e.FindSession(context.Background(), res.Session.Token, OriginBrowser, ""); err != nil {
		t.Fatalf("new session not findable: %v", err)
	}
}

func TestSignOutIsIdempotentAndCascades(t *testing.T) {
	e := newTestEngine(t, testConfig())
	mustRegister(t, e, "user@example.com", "Password1!")
	res := signIn(t, e, OriginAPI)

	if err := e.SignOut(context.Background(), res.Session.Token, OriginBrowser); err != nil {
		t.Fatalf("SignOut failed: %v", err)
	}
	if _, err := e.FindSession(context.Background(), res.Session.Token, OriginAPI, ""); err != nil {
		t.Fatalf("sign out with another origin must not revoke: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := e.SignOut(context.Background(), res.Session.Token, OriginAPI); err != nil {
			t.Fatalf("SignOut #%d failed: %v", i+1, err)
		}
	}
	if _, err := e.FindSession(context.Background(), res.Session.Token, OriginAPI, ""); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if _, err := e.store.FindRefreshToken(context.Background(), res.RefreshToken.Token); err == nil {
		t.Fatal("expected refresh token to be revoked with its session")
	}
	if err := e.Sessions().Revoke(context.Background(), res.Session); err != nil {
		t.Fatalf("revoking a deleted session must succeed: %v", err)
	}
}

func TestRevokeAllSessions(t *testing.T) {
	e := newTestEngine(t, testConfig())
	acc := mustRegister(t, e, "user@example.com", "Password1!")
	browser := signIn(t, e, OriginBrowser)
	api := signIn(t, e, OriginAPI)

	n, err := e.RevokeAll(context.Background(), acc.ID)
	if err != nil {
		t.Fatalf("RevokeAll failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 revoked sessions, got %d", n)
	}
	for _, tok := range []string{browser.Session.Token, api.Session.Token} {
		if _, err := e.FindSession(context.Background(), tok, "", ""); !errors.Is(err, ErrSessionNotFound) {
			t.Fatalf("expected ErrSessionNotFound, got %v", err)
		}
	}
	if _, _, err := e.Refresh(context.Background(), api.RefreshToken.Token, RefreshOptions{}); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected refresh to fail after RevokeAll, got %v", err)
	}
}

func TestSessionOfLockedAccountIsRevoked(t *testing.T) {
	cfg := testConfig()
	cfg.Lockout.Enabled = true
	cfg.Lockout.MaxFailedAttempts = 1
	e := newTestEngine(t, cfg)
	mustRegister(t, e, "user@example.com", "Password1!")
	res := signIn(t, e, OriginBrowser)

	for i := 0; i < 2; i++ {
		_, _ = e.Authenticate(context.Background(), "user@example.com", "wrong", "")
	}

	if _, err := e.FindSession(context.Background(), res.Session.Token, OriginBrowser, ""); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if _, err := e.store.FindSessionByToken(context.Background(), res.Session.Token); err == nil {
		t.Fatal("expected session of locked account to be deleted")
	}
}

func TestFindSessionTargetTypeFilter(t *testing.T) {
	e := newTestEngine(t, testConfig())
	acc := mustRegister(t, e, "user@example.com", "Password1!")
	if _, err := e.AttachTarget(context.Background(), acc.ID, Target{Type: "User", ID: "7"}); err != nil {
		t.Fatalf("AttachTarget failed: %v", err)
	}
	res := signIn(t, e, OriginBrowser)

	if _, err := e.FindSession(context.Background(), res.Session.Token, OriginBrowser, "Admin"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected filter miss, got %v", err)
	}
	if _, err := e.FindSession(context.Background(), res.Session.Token, OriginBrowser, "User"); err != nil {
		t.Fatalf("a filter miss must not revoke the session: %v", err)
	}
}

func TestFindSessionRejectsMalformedToken(t *testing.T) {
	e := newTestEngine(t, testConfig())

	for _, tok := range []string{"", "short", "not a token at all, far too many characters to be one"} {
		if _, err := e.FindSession(context.Background(), tok, OriginBrowser, ""); !errors.Is(err, ErrSessionNotFound) {
			t.Fatalf("token %q: expected ErrSessionNotFound, got %v", tok, err)
		}
	}
}
