package authcore

import (
	"fmt"
	"strings"
	"time"
)

// LintSeverity ranks a configuration warning.
type LintSeverity int

const (
	LintInfo LintSeverity = iota
	LintWarn
	LintHigh
)

func (s LintSeverity) String() string {
	switch s {
	case LintInfo:
		return "INFO"
	case LintWarn:
		return "WARN"
	case LintHigh:
		return "HIGH"
	default:
		return "UNKNOWN"
	}
}

// LintWarning is a valid but questionable configuration choice.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

// LintResult lists warnings in rule order.
type LintResult []LintWarning

// Codes returns the warning codes.
func (r LintResult) Codes() []string {
	out := make([]string, 0, len(r))
	for _, w := range r {
		out = append(out, w.Code)
	}
	return out
}

// BySeverity returns warnings at or above min.
func (r LintResult) BySeverity(min LintSeverity) LintResult {
	var out LintResult
	for _, w := range r {
		if w.Severity >= min {
			out = append(out, w)
		}
	}
	return out
}

// AsError returns an error listing every warning at or above min, or nil.
func (r LintResult) AsError(min LintSeverity) error {
	hits := r.BySeverity(min)
	if len(hits) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(hits))
	for _, w := range hits {
		msgs = append(msgs, fmt.Sprintf("[%s] %s: %s", w.Severity, w.Code, w.Message))
	}
	return fmt.Errorf("config lint: %s", strings.Join(msgs, "; "))
}

const (
	lintArgon2MinMemory   = 64 * 1024
	lintAPIAccessMax      = time.Hour
	lintBrowserMax        = 30 * 24 * time.Hour
	lintTokenExpiryMax    = 7 * 24 * time.Hour
	lintRefreshLockTTLMax = 30 * time.Second
)

// Lint reports settings that Validate accepts but that weaken a deployment.
// It assumes c already passed Validate.
func (c Config) Lint() LintResult {
	var ws LintResult
	add := func(code string, sev LintSeverity, format string, args ...any) {
		ws = append(ws, LintWarning{Code: code, Severity: sev, Message: fmt.Sprintf(format, args...)})
	}

	if c.Password.Pepper == DefaultPepper {
		add("default_pepper", LintHigh, "Password.Pepper is the shipped default")
	}
	if c.Password.Memory < lintArgon2MinMemory {
		add("argon2_memory_low", LintInfo, "Argon2id memory %d KiB is below %d KiB", c.Password.Memory, lintArgon2MinMemory)
	}
	if !c.Security.PreventTimingAttack {
		add("timing_mitigation_disabled", LintWarn, "unknown emails answer faster than wrong passwords")
	}
	if !c.Security.RateLimit.Enabled {
		add("rate_limits_disabled", LintWarn, "sign in and token requests are not rate limited")
	}
	if !c.Lockout.Enabled {
		add("lockout_disabled", LintWarn, "failed attempts never lock an account")
	}
	if c.Session.RefreshExpiry < c.Session.APIAccessExpiry {
		add("refresh_shorter_than_access", LintHigh, "RefreshExpiry %s is shorter than APIAccessExpiry %s", c.Session.RefreshExpiry, c.Session.APIAccessExpiry)
	}
	if c.Session.APIAccessExpiry > lintAPIAccessMax {
		add("api_access_long", LintWarn, "APIAccessExpiry %s exceeds %s", c.Session.APIAccessExpiry, lintAPIAccessMax)
	}
	if c.Session.BrowserExpiry > lintBrowserMax {
		add("browser_session_long", LintWarn, "BrowserExpiry %s exceeds %s", c.Session.BrowserExpiry, lintBrowserMax)
	}
	if c.Recovery.Enabled && !c.Recovery.RevokeSessions {
		add("recovery_keeps_sessions", LintWarn, "password recovery leaves existing sessions active")
	}
	if c.Recovery.Enabled && c.Recovery.TokenExpiry > lintTokenExpiryMax {
		add("recovery_token_long", LintInfo, "Recovery.TokenExpiry %s exceeds %s", c.Recovery.TokenExpiry, lintTokenExpiryMax)
	}
	if c.Storage.LockTTL > lintRefreshLockTTLMax {
		add("refresh_lock_ttl_long", LintInfo, "a crashed refresh blocks its token for %s", c.Storage.LockTTL)
	}
	return ws
}
