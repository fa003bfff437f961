package password

import (
	"errors"
	"fmt"
	"regexp"
	"unicode/utf8"
)

var (
	// ErrBlank is returned when the password is empty.
	ErrBlank = errors.New("password is blank")
	// ErrTooShort is returned when the password has fewer runes than the policy minimum.
	ErrTooShort = errors.New("password is too short")
	// ErrTooLong is returned when the password has more runes than the policy maximum.
	ErrTooLong = errors.New("password is too long")
	// ErrFormat is returned when the password does not match the policy format.
	ErrFormat = errors.New("password format is invalid")
)

// Policy holds the strength rules applied at registration and recovery.
type Policy struct {
	MinLength int
	MaxLength int
	Format    *regexp.Regexp
}

// NewPolicy compiles format (may be empty) and returns a [Policy].
func NewPolicy(minLength, maxLength int, format string) (*Policy, error) {
	if minLength < 1 {
		return nil, errors.New("password min length must be >= 1")
	}
	if maxLength < minLength {
		return nil, errors.New("password max length must be >= min length")
	}

	p := &Policy{MinLength: minLength, MaxLength: maxLength}
	if format != "" {
		re, err := regexp.Compile(format)
		if err != nil {
			return nil, fmt.Errorf("password format: %w", err)
		}
		p.Format = re
	}
	return p, nil
}

// Validate checks password against the policy. Length is counted in runes.
func (p *Policy) Validate(password string) error {
	if password == "" {
		return ErrBlank
	}

	n := utf8.RuneCountInString(password)
	if n < p.MinLength {
		return fmt.Errorf("%w: minimum is %d characters", ErrTooShort, p.MinLength)
	}
	if p.MaxLength > 0 && n > p.MaxLength {
		return fmt.Errorf("%w: maximum is %d characters", ErrTooLong, p.MaxLength)
	}
	if p.Format != nil && !p.Format.MatchString(password) {
		return ErrFormat
	}
	return nil
}
