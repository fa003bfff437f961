package authcore

import "time"

// SecurityReport summarizes the protections an engine runs with.
type SecurityReport struct {
	Argon2                 PasswordConfigReport
	DefaultPepper          bool
	TimingMitigation       bool
	RateLimitingActive     bool
	LockoutActive          bool
	MaxFailedAttempts      int
	ConfirmationActive     bool
	RecoveryActive         bool
	RecoveryRevokesSession bool
	BrowserExpiry          time.Duration
	APIAccessExpiry        time.Duration
	RefreshExpiry          time.Duration
	RefreshLockTTL         time.Duration
	StorageDriver          string
	LintWarnings           []string
}

// PasswordConfigReport mirrors the Argon2id cost parameters.
type PasswordConfigReport struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// SecurityReport describes e's effective configuration. It never includes
// the pepper itself.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	cfg := e.config
	return SecurityReport{
		Argon2: PasswordConfigReport{
			Memory:      cfg.Password.Memory,
			Time:        cfg.Password.Time,
			Parallelism: cfg.Password.Parallelism,
			SaltLength:  cfg.Password.SaltLength,
			KeyLength:   cfg.Password.KeyLength,
		},
		DefaultPepper:          cfg.Password.Pepper == DefaultPepper,
		TimingMitigation:       cfg.Security.PreventTimingAttack,
		RateLimitingActive:     e.limiter != nil,
		LockoutActive:          cfg.Lockout.Enabled,
		MaxFailedAttempts:      cfg.Lockout.MaxFailedAttempts,
		ConfirmationActive:     cfg.Confirmation.Enabled,
		RecoveryActive:         cfg.Recovery.Enabled,
		RecoveryRevokesSession: cfg.Recovery.Enabled && cfg.Recovery.RevokeSessions,
		BrowserExpiry:          cfg.Session.BrowserExpiry,
		APIAccessExpiry:        cfg.Session.APIAccessExpiry,
		RefreshExpiry:          cfg.Session.RefreshExpiry,
		RefreshLockTTL:         cfg.Storage.LockTTL,
		StorageDriver:          cfg.Storage.Driver,
		LintWarnings:           cfg.Lint().Codes(),
	}
}
