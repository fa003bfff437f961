package authcore

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/MrEthical07/authcore/password"
	"github.com/MrEthical07/authcore/store"
	"github.com/google/uuid"
)

// NormalizeEmail trims and lowercases email. Every lookup and write goes
// through it.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CredentialStore is the account query surface used by authentication. It
// applies the confirmation and lockout gates that are enabled in Config.
type CredentialStore struct {
	accounts    store.AccountStore
	hasher      *password.Hasher
	emailFormat *regexp.Regexp
	emailMax    int
	maxFailed   int
	confirmable bool
	lockable    bool
}

func newCredentialStore(accounts store.AccountStore, hasher *password.Hasher, cfg Config) (*CredentialStore, error) {
	format, err := regexp.Compile(cfg.Account.EmailFormat)
	if err != nil {
		return nil, err
	}
	return &CredentialStore{
		accounts:    accounts,
		hasher:      hasher,
		emailFormat: format,
		emailMax:    cfg.Account.EmailMaxLength,
		maxFailed:   cfg.Lockout.MaxFailedAttempts,
		confirmable: cfg.Confirmation.Enabled,
		lockable:    cfg.Lockout.Enabled,
	}, nil
}

// FindAuthenticatable returns the account registered under email when it
// passes the target type filter (empty matches any) and every enabled gate.
//
// It returns ErrAccountNotFound, ErrAccountNotConfirmed or ErrAccountLocked
// for excluded accounts, and ErrStoreUnavailable for storage failures.
func (c *CredentialStore) FindAuthenticatable(ctx context.Context, email, targetType string) (*Account, error) {
	acc, err := c.accounts.FindAccountByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, storeFailure(err)
	}
	if !matchesTarget(acc, targetType) {
		return nil, ErrAccountNotFound
	}
	if err := c.Authenticatable(acc); err != nil {
		return nil, err
	}
	return acc, nil
}

// Authenticatable checks the confirmation and lockout gates against acc.
func (c *CredentialStore) Authenticatable(acc *Account) error {
	if c.confirmable && !acc.Confirmed {
		return ErrAccountNotConfirmed
	}
	if c.lockable && acc.Locked {
		return ErrAccountLocked
	}
	return nil
}

// BuildFromCredentials returns an unpersisted account whose digest is
// computed from plain. It does not validate its input.
func (c *CredentialStore) BuildFromCredentials(email, plain string) (*Account, error) {
	digest, err := c.hasher.Digest(plain)
	if err != nil {
		return nil, err
	}
	return &Account{
		ID:                uuid.NewString(),
		Email:             NormalizeEmail(email),
		PasswordDigest:    digest,
		Confirmed:         !c.confirmable,
		MaxFailedAttempts: c.maxFailed,
	}, nil
}

// ValidateEmail checks a normalized email against the configured format and
// length.
func (c *CredentialStore) ValidateEmail(email string) error {
	switch {
	case email == "":
		return invalid("email", "can't be blank")
	case utf8.RuneCountInString(email) > c.emailMax:
		return invalid("email", "is too long")
	case !c.emailFormat.MatchString(email):
		return invalid("email", "is invalid")
	}
	return nil
}

func matchesTarget(acc *Account, targetType string) bool {
	if targetType == "" {
		return true
	}
	return acc.Target != nil && acc.Target.Type == targetType
}
