package authcore

import (
	"context"
	"errors"
	"testing"
)

func TestSecurityInvariantRefreshReplayRejected(t *testing.T) {
	e := newTestEngine(t, testConfig())
	mustRegister(t, e, "user@example.com", "Password1!")
	res := signIn(t, e, OriginAPI)

	sess, _, err := e.Refresh(context.Background(), res.RefreshToken.Token, RefreshOptions{Origin: OriginAPI})
	if err != nil {
		t.Fatalf("first refresh failed: %v", err)
	}
	if _, _, err := e.Refresh(context.Background(), res.RefreshToken.Token, RefreshOptions{Origin: OriginAPI}); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken on replay, got %v", err)
	}
	if _, err := e.FindSession(context.Background(), sess.Token, OriginAPI, ""); err != nil {
		t.Fatalf("rotated session must stay valid after a replay attempt: %v", err)
	}
}

func TestSecurityInvariantSignOutKillsRefreshToken(t *testing.T) {
	e := newTestEngine(t, testConfig())
	mustRegister(t, e, "user@example.com", "Password1!")
	res := signIn(t, e, OriginAPI)

	if err := e.SignOut(context.Background(), res.Session.Token, OriginAPI); err != nil {
		t.Fatalf("SignOut failed: %v", err)
	}
	if _, _, err := e.Refresh(context.Background(), res.RefreshToken.Token, RefreshOptions{Origin: OriginAPI}); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken after sign out, got %v", err)
	}
}

func TestSecurityInvariantSecretsNeverPersisted(t *testing.T) {
	cfg := testConfig()
	cfg.Recovery.Enabled = true
	e := newTestEngine(t, cfg)
	mustRegister(t, e, "user@example.com", "Password1!")

	browser := signIn(t, e, OriginBrowser)
	api := signIn(t, e, OriginAPI)
	if err := e.RequestRecovery(context.Background(), "user@example.com"); err != nil {
		t.Fatalf("RequestRecovery failed: %v", err)
	}
	recovery := e.notifier.last(t, TokenRecovery).Token

	for _, secret := range []string{
		"Password1!",
		browser.Session.Token,
		api.Session.Token,
		api.RefreshToken.Token,
		recovery,
	} {
		assertNotPersisted(t, e, secret)
	}
}

func TestSecurityInvariantUniformCredentialFailure(t *testing.T) {
	e := newTestEngine(t, testConfig())
	mustRegister(t, e, "user@example.com", "Password1!")

	_, unknown := e.Authenticate(context.Background(), "nobody@example.com", "Password1!", "")
	_, wrong := e.Authenticate(context.Background(), "user@example.com", "Password2!", "")

	if !errors.Is(unknown, ErrInvalidCredentials) || !errors.Is(wrong, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v and %v", unknown, wrong)
	}
	if unknown.Error() != wrong.Error() {
		t.Fatalf("failure messages differ: %q vs %q", unknown, wrong)
	}
}

func TestSecurityInvariantConfigCopiedAtBuild(t *testing.T) {
	cfg := testConfig()
	mr, rdb := newTestRedis(t)
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})

	b := New().WithConfig(cfg).WithRedis(rdb).WithLogger(quietLogger())
	cfg.Lockout.MaxFailedAttempts = 1
	e, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if e.Config().Lockout.MaxFailedAttempts == 1 {
		t.Fatal("engine observed a mutation made after WithConfig")
	}
}
