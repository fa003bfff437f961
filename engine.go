package authcore

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/authcore/password"
	"github.com/MrEthical07/authcore/store"
	"github.com/sirupsen/logrus"
)

// Engine is the facade over every authentication component. It is built
// once with a Builder and is safe for concurrent use.
type Engine struct {
	config  Config
	store   store.Store
	hasher  *password.Hasher
	policy  *password.Policy
	clock   Clock
	limiter RateLimiter
	targets *TargetRegistry
	metrics *Metrics
	log     logrus.FieldLogger

	credentials        *CredentialStore
	authenticator      *Authenticator
	lockout            *LockoutPolicy
	sessions           *SessionManager
	refresher          *RefreshRotator
	confirmation       *ConfirmationService
	recovery           *RecoveryService
	confirmationTokens *tokenService
}

// RegisterInput is the data accepted by Register.
type RegisterInput struct {
	Email    string
	Password string
	Target   *Target
}

// SignInInput is the data accepted by SignIn.
type SignInInput struct {
	Email      string
	Password   string
	TargetType string
	Origin     Origin
	IPAddress  string
	UserAgent  string
	// ReplaceToken is the browser session token presented before sign in.
	ReplaceToken string
	// ExpiredAt overrides the origin default session lifetime when non-zero.
	ExpiredAt time.Time
}

// SignInResult holds the authenticated account and its new session. The
// refresh token is set for API sessions only.
type SignInResult struct {
	Account      *Account
	Session      *Session
	RefreshToken *RefreshToken
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config { return e.config }

// Clock returns the clock used for every expiry comparison.
func (e *Engine) Clock() Clock { return e.clock }

// Hasher returns the password hasher.
func (e *Engine) Hasher() *password.Hasher { return e.hasher }

// Credentials returns the account query surface.
func (e *Engine) Credentials() *CredentialStore { return e.credentials }

// Authenticator returns the credential verifier.
func (e *Engine) Authenticator() *Authenticator { return e.authenticator }

// Sessions returns the session manager.
func (e *Engine) Sessions() *SessionManager { return e.sessions }

// Refresher returns the refresh token rotator.
func (e *Engine) Refresher() *RefreshRotator { return e.refresher }

// Lockout returns the lockout policy, or nil when lockout is disabled.
func (e *Engine) Lockout() *LockoutPolicy { return e.lockout }

// Confirmation returns the confirmation service, or nil when disabled.
func (e *Engine) Confirmation() *ConfirmationService { return e.confirmation }

// Recovery returns the recovery service, or nil when disabled.
func (e *Engine) Recovery() *RecoveryService { return e.recovery }

// Register validates input and creates an account. When confirmation is
// enabled the account starts unconfirmed and its confirmation token is
// created in the same unit of work, then delivered.
//
// A taken email is reported as a *ValidationError on "email". A notifier
// failure returns the created account together with an ErrNotify error.
func (e *Engine) Register(ctx context.Context, in RegisterInput) (*Account, error) {
	if !e.config.Account.Registerable {
		return nil, ErrFeatureDisabled
	}

	email := NormalizeEmail(in.Email)
	if err := e.credentials.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(e.policy, in.Password); err != nil {
		return nil, err
	}
	if err := e.targets.check(in.Target); err != nil {
		return nil, err
	}

	acc, err := e.credentials.BuildFromCredentials(email, in.Password)
	if err != nil {
		return nil, err
	}
	if in.Target != nil {
		t := *in.Target
		acc.Target = &t
	}
	now := e.clock.Now()
	acc.CreatedAt = now
	acc.UpdatedAt = now

	var confirmation *Token
	if e.confirmationTokens != nil {
		confirmation, err = e.confirmationTokens.mint(acc.ID)
		if err != nil {
			return nil, err
		}
	}

	var tokens []*Token
	if confirmation != nil {
		tokens = append(tokens, confirmation)
	}
	if err := e.store.CreateAccount(ctx, acc, tokens...); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			e.metrics.Inc(MetricAccountDuplicate)
			return nil, invalid("email", "has already been taken")
		}
		return nil, storeFailure(err)
	}

	e.metrics.Inc(MetricAccountRegistered)
	e.log.WithFields(logrus.Fields{
		"event":      "account_registered",
		"account_id": acc.ID,
	}).Info("account registered")

	if confirmation != nil {
		if err := e.confirmationTokens.deliver(ctx, acc, confirmation); err != nil {
			return acc, err
		}
	}
	return acc, nil
}

// Authenticate verifies credentials without starting a session.
func (e *Engine) Authenticate(ctx context.Context, email, plain, targetType string) (*Account, error) {
	return e.authenticator.Authenticate(ctx, email, plain, targetType)
}

// SignIn rate limits by email, authenticates and starts a session.
func (e *Engine) SignIn(ctx context.Context, in SignInInput) (*SignInResult, error) {
	if in.Origin == "" {
		in.Origin = OriginBrowser
	}
	if !in.Origin.Valid() {
		return nil, invalid("origin", "is not included in the list")
	}
	if err := allow(ctx, e.limiter, EndpointSignIn, NormalizeEmail(in.Email)); err != nil {
		if errors.Is(err, ErrRateLimited) {
			e.metrics.Inc(MetricAuthRateLimited)
		}
		return nil, err
	}

	acc, err := e.authenticator.Authenticate(ctx, in.Email, in.Password, in.TargetType)
	if err != nil {
		return nil, err
	}

	sess, refresh, err := e.sessions.Start(ctx, acc, StartOptions{
		Origin:       in.Origin,
		IPAddress:    in.IPAddress,
		UserAgent:    in.UserAgent,
		ExpiredAt:    in.ExpiredAt,
		ReplaceToken: in.ReplaceToken,
	})
	if err != nil {
		return nil, err
	}
	return &SignInResult{Account: acc, Session: sess, RefreshToken: refresh}, nil
}

// StartSession starts a session for an already authenticated account.
func (e *Engine) StartSession(ctx context.Context, acc *Account, opts StartOptions) (*Session, *RefreshToken, error) {
	return e.sessions.Start(ctx, acc, opts)
}

// Refresh redeems a refresh token for a new API session pair.
func (e *Engine) Refresh(ctx context.Context, value string, opts RefreshOptions) (*Session, *RefreshToken, error) {
	return e.refresher.Refresh(ctx, value, opts)
}

// FindSession resolves a session token presented with origin.
func (e *Engine) FindSession(ctx context.Context, token string, origin Origin, targetType string) (*Identity, error) {
	sess, acc, err := e.sessions.FindByToken(ctx, token, origin, targetType)
	if err != nil {
		return nil, err
	}
	return &Identity{Account: acc, Session: sess}, nil
}

// SignOut revokes the session identified by token. Unknown tokens, and
// tokens of another origin, are ignored.
func (e *Engine) SignOut(ctx context.Context, token string, origin Origin) error {
	sess, err := e.store.FindSessionByToken(ctx, token)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return storeFailure(err)
	}
	if origin != "" && sess.Origin != origin {
		return nil
	}
	return e.sessions.Revoke(ctx, sess)
}

// RevokeAll revokes every session of accountID.
func (e *Engine) RevokeAll(ctx context.Context, accountID string) (int, error) {
	return e.sessions.RevokeAll(ctx, accountID)
}

// GetAccount loads an account by id.
func (e *Engine) GetAccount(ctx context.Context, id string) (*Account, error) {
	acc, err := e.store.GetAccount(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, storeFailure(err)
	}
	return acc, nil
}

// RequestConfirmation re-sends a confirmation token.
func (e *Engine) RequestConfirmation(ctx context.Context, email string) error {
	if e.confirmation == nil {
		return ErrFeatureDisabled
	}
	return e.confirmation.Request(ctx, email)
}

// Confirm consumes a confirmation token.
func (e *Engine) Confirm(ctx context.Context, token string) (*Account, error) {
	if e.confirmation == nil {
		return nil, ErrFeatureDisabled
	}
	return e.confirmation.Confirm(ctx, token)
}

// RequestUnlock re-sends an unlock token to a locked account.
func (e *Engine) RequestUnlock(ctx context.Context, email string) error {
	if e.lockout == nil {
		return ErrFeatureDisabled
	}
	return e.lockout.RequestUnlock(ctx, email)
}

// UnlockByToken consumes an unlock token.
func (e *Engine) UnlockByToken(ctx context.Context, token string) (*Account, error) {
	if e.lockout == nil {
		return nil, ErrFeatureDisabled
	}
	return e.lockout.UnlockByToken(ctx, token)
}

// Unlock unlocks accountID without a token, for administrative use.
func (e *Engine) Unlock(ctx context.Context, accountID string) (*Account, error) {
	if e.lockout == nil {
		return nil, ErrFeatureDisabled
	}
	return e.lockout.Unlock(ctx, accountID)
}

// RequestRecovery sends a recovery token.
func (e *Engine) RequestRecovery(ctx context.Context, email string) error {
	if e.recovery == nil {
		return ErrFeatureDisabled
	}
	return e.recovery.Request(ctx, email)
}

// Recover consumes a recovery token and sets newPassword.
func (e *Engine) Recover(ctx context.Context, token, newPassword string) (*Account, error) {
	if e.recovery == nil {
		return nil, ErrFeatureDisabled
	}
	return e.recovery.Recover(ctx, token, newPassword)
}

// AttachTarget links accountID to a host record. When resolvers are
// registered, target.Type must be one of them.
func (e *Engine) AttachTarget(ctx context.Context, accountID string, target Target) (*Account, error) {
	if err := e.targets.check(&target); err != nil {
		return nil, err
	}
	acc, err := e.store.UpdateAccount(ctx, accountID, func(tx *store.AccountTx) error {
		t := target
		tx.Account.Target = &t
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, storeFailure(err)
	}
	return acc, nil
}

// ResolveTarget loads the host record acc is attached to.
func (e *Engine) ResolveTarget(ctx context.Context, acc *Account) (any, error) {
	if acc == nil || acc.Target == nil {
		return nil, ErrUnknownTargetType
	}
	return e.targets.Resolve(ctx, acc.Target)
}

// MetricsSnapshot returns a copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}
