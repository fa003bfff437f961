package authcore

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/authcore/internal/rate"
)

var (
	// ErrInvalidCredentials is returned for every failed authentication, whatever the cause.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountNotConfirmed marks an account excluded by the confirmation gate.
	// It is folded into ErrInvalidCredentials at the authentication boundary.
	ErrAccountNotConfirmed = errors.New("account not confirmed")
	// ErrAccountLocked marks an account excluded by the lockout gate.
	// It is folded into ErrInvalidCredentials at the authentication boundary.
	ErrAccountLocked = errors.New("account locked")
	// ErrAccountNotFound is returned by lookups by id.
	ErrAccountNotFound = errors.New("account not found")
	// ErrTokenNotFound is returned when no single-use token matches the value.
	ErrTokenNotFound = errors.New("token not found")
	// ErrTokenExpired is returned when the matching single-use token is past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenAlreadyConsumed is returned when the token was used or replaced concurrently.
	ErrTokenAlreadyConsumed = errors.New("token already consumed")
	// ErrLockAcquisitionFailed is returned when another refresh of the same token is in flight.
	ErrLockAcquisitionFailed = errors.New("lock acquisition failed")
	// ErrInvalidRefreshToken is returned for every failed refresh.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	// ErrSessionNotFound is returned when no active, authenticatable session matches.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionOriginMismatch is returned when a refresh token would attach to a non-API session.
	ErrSessionOriginMismatch = errors.New("refresh token requires an api session")
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrRateLimited is returned when the configured RateLimiter rejects a call.
	ErrRateLimited = errors.New("rate limited")
	// ErrFeatureDisabled is returned when calling a flow whose feature is off.
	ErrFeatureDisabled = errors.New("feature disabled")
	// ErrUnknownTargetType is returned for targets with no registered resolver.
	ErrUnknownTargetType = errors.New("unknown authenticate target type")
	// ErrStoreUnavailable wraps storage failures. They are not recovered locally.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrNotify wraps notifier failures. State changes are already committed when it is returned.
	ErrNotify = errors.New("notification failed")
)

// ValidationError reports invalid caller input on a single field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// Is makes every ValidationError match ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// storeFailure maps a storage error that has no local meaning to
// ErrStoreUnavailable. Context errors pass through unchanged.
func storeFailure(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStoreUnavailable) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

// allow consults limiter. A nil limiter allows everything. Redis failures of
// the built-in limiter surface as ErrStoreUnavailable; every other rejection
// is ErrRateLimited.
func allow(ctx context.Context, limiter RateLimiter, endpoint, identity string) error {
	if limiter == nil {
		return nil
	}
	err := limiter.Allow(ctx, endpoint, identity)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, rate.ErrRedisUnavailable):
		return storeFailure(err)
	case errors.Is(err, ErrRateLimited), errors.Is(err, rate.ErrRateLimited):
		return ErrRateLimited
	default:
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	}
}
