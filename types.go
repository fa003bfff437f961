package authcore

import (
	"context"
	"time"

	"github.com/MrEthical07/authcore/store"
)

// Re-exported entity types so hosts rarely need to import store directly.
type (
	Account      = store.Account
	Session      = store.Session
	RefreshToken = store.RefreshToken
	Token        = store.Token
	TokenKind    = store.TokenKind
	Origin       = store.Origin
	Target       = store.Target
)

const (
	OriginBrowser = store.OriginBrowser
	OriginAPI     = store.OriginAPI

	TokenConfirmation = store.TokenConfirmation
	TokenRecovery     = store.TokenRecovery
	TokenUnlock       = store.TokenUnlock
)

// Identity is an authenticated session together with its account.
type Identity struct {
	Account *Account
	Session *Session
}

// Notification is what a Notifier delivers to the account holder.
type Notification struct {
	Account   *Account
	Kind      TokenKind
	Token     string
	ExpiredAt time.Time
}

// Notifier delivers confirmation, unlock and recovery tokens. Delivery
// mechanics (mail templates, transport) belong to the host.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notification) error

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

// Clock supplies the current time for every expiry comparison.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// SystemClock is the wall clock in UTC.
var SystemClock Clock = systemClock{}

// RateLimiter bounds repeated calls per endpoint and identity. Allow returns
// a non-nil error to reject the call.
type RateLimiter interface {
	Allow(ctx context.Context, endpoint, identity string) error
}

// Rate-limited endpoints.
const (
	EndpointSignIn              = "sign_in"
	EndpointRequestConfirmation = "request_confirmation"
	EndpointRequestUnlock       = "request_unlock"
	EndpointRequestRecovery     = "request_recovery"
)

// TargetResolver loads the host record an account is attached to.
type TargetResolver func(ctx context.Context, id string) (any, error)
