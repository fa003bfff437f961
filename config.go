package authcore

import (
	"errors"
	"regexp"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultPepper is the pepper shipped in DefaultConfig. Build logs a warning
// when it is still in use.
const DefaultPepper = "authcore-default-pepper"

// Config is the immutable engine configuration. Build copies it; later
// changes to the caller's value have no effect.
type Config struct {
	Password     PasswordConfig     `yaml:"password" envPrefix:"PASSWORD_"`
	Account      AccountConfig      `yaml:"account" envPrefix:"ACCOUNT_"`
	Confirmation ConfirmationConfig `yaml:"confirmation" envPrefix:"CONFIRMATION_"`
	Lockout      LockoutConfig      `yaml:"lockout" envPrefix:"LOCKOUT_"`
	Recovery     RecoveryConfig     `yaml:"recovery" envPrefix:"RECOVERY_"`
	Session      SessionConfig      `yaml:"session" envPrefix:"SESSION_"`
	Security     SecurityConfig     `yaml:"security" envPrefix:"SECURITY_"`
	Storage      StorageConfig      `yaml:"storage" envPrefix:"STORAGE_"`
	Metrics      MetricsConfig      `yaml:"metrics" envPrefix:"METRICS_"`
	Logging      LoggingConfig      `yaml:"logging" envPrefix:"LOG_"`
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds Argon2id cost parameters, the pepper, and the strength policy.
type PasswordConfig struct {
	Pepper      string `yaml:"pepper" env:"PEPPER"`
	Memory      uint32 `yaml:"memory" env:"MEMORY"`
	Time        uint32 `yaml:"time" env:"TIME"`
	Parallelism uint8  `yaml:"parallelism" env:"PARALLELISM"`
	SaltLength  uint32 `yaml:"salt_length" env:"SALT_LENGTH"`
	KeyLength   uint32 `yaml:"key_length" env:"KEY_LENGTH"`
	MinLength   int    `yaml:"min_length" env:"MIN_LENGTH"`
	MaxLength   int    `yaml:"max_length" env:"MAX_LENGTH"`
	// Format is an optional regular expression every new password must match.
	Format string `yaml:"format" env:"FORMAT"`
}

/*
====================================
ACCOUNT CONFIG
====================================
*/

// AccountConfig controls registration and email rules.
type AccountConfig struct {
	Registerable   bool   `yaml:"registerable" env:"REGISTERABLE"`
	EmailFormat    string `yaml:"email_format" env:"EMAIL_FORMAT"`
	EmailMaxLength int    `yaml:"email_max_length" env:"EMAIL_MAX_LENGTH"`
}

/*
====================================
CONFIRMATION / LOCKOUT / RECOVERY
====================================
*/

// ConfirmationConfig gates authentication on a confirmed email.
type ConfirmationConfig struct {
	Enabled     bool          `yaml:"enabled" env:"ENABLED"`
	TokenExpiry time.Duration `yaml:"token_expiry" env:"TOKEN_EXPIRY"`
}

// LockoutConfig controls brute-force lockout.
type LockoutConfig struct {
	Enabled           bool          `yaml:"enabled" env:"ENABLED"`
	MaxFailedAttempts int           `yaml:"max_failed_attempts" env:"MAX_FAILED_ATTEMPTS"`
	TokenExpiry       time.Duration `yaml:"token_expiry" env:"TOKEN_EXPIRY"`
	NotifyOnLock      bool          `yaml:"notify_on_lock" env:"NOTIFY_ON_LOCK"`
}

// RecoveryConfig controls password recovery.
type RecoveryConfig struct {
	Enabled        bool          `yaml:"enabled" env:"ENABLED"`
	TokenExpiry    time.Duration `yaml:"token_expiry" env:"TOKEN_EXPIRY"`
	RevokeSessions bool          `yaml:"revoke_sessions" env:"REVOKE_SESSIONS"`
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig holds the origin-specific lifetimes.
type SessionConfig struct {
	BrowserExpiry   time.Duration `yaml:"browser_expiry" env:"BROWSER_EXPIRY"`
	APIAccessExpiry time.Duration `yaml:"api_access_expiry" env:"API_ACCESS_EXPIRY"`
	RefreshExpiry   time.Duration `yaml:"refresh_expiry" env:"REFRESH_EXPIRY"`
	CookieName      string        `yaml:"cookie_name" env:"COOKIE_NAME"`
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig holds timing-attack mitigation and rate limit budgets.
type SecurityConfig struct {
	PreventTimingAttack bool            `yaml:"prevent_timing_attack" env:"PREVENT_TIMING_ATTACK"`
	RateLimit           RateLimitConfig `yaml:"rate_limit" envPrefix:"RATE_LIMIT_"`
}

// RateLimitConfig sets the budgets of the built-in Redis limiter.
type RateLimitConfig struct {
	Enabled       bool          `yaml:"enabled" env:"ENABLED"`
	SignInMax     int           `yaml:"sign_in_max" env:"SIGN_IN_MAX"`
	SignInWindow  time.Duration `yaml:"sign_in_window" env:"SIGN_IN_WINDOW"`
	RequestMax    int           `yaml:"request_max" env:"REQUEST_MAX"`
	RequestWindow time.Duration `yaml:"request_window" env:"REQUEST_WINDOW"`
}

/*
====================================
STORAGE / OBSERVABILITY
====================================
*/

// StorageConfig selects and tunes the persistence backend.
type StorageConfig struct {
	Driver      string        `yaml:"driver" env:"DRIVER"`
	RedisAddr   string        `yaml:"redis_addr" env:"REDIS_ADDR"`
	RedisPrefix string        `yaml:"redis_prefix" env:"REDIS_PREFIX"`
	PostgresDSN string        `yaml:"postgres_dsn" env:"POSTGRES_DSN"`
	LockTTL     time.Duration `yaml:"lock_ttl" env:"LOCK_TTL"`
}

// MetricsConfig toggles in-process counters.
type MetricsConfig struct {
	Enabled                 bool `yaml:"enabled" env:"ENABLED"`
	EnableLatencyHistograms bool `yaml:"enable_latency_histograms" env:"ENABLE_LATENCY_HISTOGRAMS"`
}

// LoggingConfig configures the default logrus logger.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

// Storage drivers.
const (
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

// DefaultConfig returns the baseline configuration.
func DefaultConfig() Config {
	return Config{
		Password: PasswordConfig{
			Pepper:      DefaultPepper,
			Memory:      16 * 1024,
			Time:        2,
			Parallelism: 1,
			SaltLength:  16,
			KeyLength:   32,
			MinLength:   8,
			MaxLength:   128,
		},
		Account: AccountConfig{
			Registerable:   true,
			EmailFormat:    `^[^\s]+@[^\s]+$`,
			EmailMaxLength: 255,
		},
		Confirmation: ConfirmationConfig{
			Enabled:     false,
			TokenExpiry: 5 * 24 * time.Hour,
		},
		Lockout: LockoutConfig{
			Enabled:           false,
			MaxFailedAttempts: 10,
			TokenExpiry:       5 * 24 * time.Hour,
			NotifyOnLock:      true,
		},
		Recovery: RecoveryConfig{
			Enabled:        false,
			TokenExpiry:    5 * 24 * time.Hour,
			RevokeSessions: true,
		},
		Session: SessionConfig{
			BrowserExpiry:   7 * 24 * time.Hour,
			APIAccessExpiry: time.Hour,
			RefreshExpiry:   30 * 24 * time.Hour,
			CookieName:      "authcore_session",
		},
		Security: SecurityConfig{
			PreventTimingAttack: true,
			RateLimit: RateLimitConfig{
				Enabled:       false,
				SignInMax:     20,
				SignInWindow:  time.Minute,
				RequestMax:    5,
				RequestWindow: 10 * time.Minute,
			},
		},
		Storage: StorageConfig{
			Driver:      DriverRedis,
			RedisAddr:   "127.0.0.1:6379",
			RedisPrefix: "ac",
			LockTTL:     5 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}
	if c.Password.MinLength < 1 {
		return errors.New("Password MinLength must be >= 1")
	}
	if c.Password.MaxLength < c.Password.MinLength {
		return errors.New("Password MaxLength must be >= MinLength")
	}
	if c.Password.Format != "" {
		if _, err := regexp.Compile(c.Password.Format); err != nil {
			return errors.New("Password Format must be a valid regular expression")
		}
	}

	// Account
	if c.Account.EmailMaxLength <= 0 {
		return errors.New("Account EmailMaxLength must be > 0")
	}
	if _, err := regexp.Compile(c.Account.EmailFormat); err != nil || c.Account.EmailFormat == "" {
		return errors.New("Account EmailFormat must be a valid regular expression")
	}

	// Token features
	if c.Confirmation.Enabled && c.Confirmation.TokenExpiry <= 0 {
		return errors.New("Confirmation TokenExpiry must be > 0")
	}
	if c.Lockout.Enabled && c.Lockout.TokenExpiry <= 0 {
		return errors.New("Lockout TokenExpiry must be > 0")
	}
	if c.Lockout.MaxFailedAttempts <= 0 {
		return errors.New("Lockout MaxFailedAttempts must be > 0")
	}
	if c.Recovery.Enabled && c.Recovery.TokenExpiry <= 0 {
		return errors.New("Recovery TokenExpiry must be > 0")
	}

	// Session
	if c.Session.BrowserExpiry <= 0 {
		return errors.New("Session BrowserExpiry must be > 0")
	}
	if c.Session.APIAccessExpiry <= 0 {
		return errors.New("Session APIAccessExpiry must be > 0")
	}
	if c.Session.RefreshExpiry <= c.Session.APIAccessExpiry {
		return errors.New("Session RefreshExpiry must be longer than APIAccessExpiry")
	}
	if c.Session.CookieName == "" {
		return errors.New("Session CookieName is required")
	}

	// Security
	if c.Security.RateLimit.Enabled {
		if c.Security.RateLimit.SignInMax <= 0 || c.Security.RateLimit.SignInWindow <= 0 {
			return errors.New("RateLimit SignIn budget must be > 0")
		}
		if c.Security.RateLimit.RequestMax <= 0 || c.Security.RateLimit.RequestWindow <= 0 {
			return errors.New("RateLimit Request budget must be > 0")
		}
	}

	// Storage
	switch c.Storage.Driver {
	case DriverRedis, DriverPostgres:
	default:
		return errors.New("Storage Driver must be 'redis' or 'postgres'")
	}
	if c.Storage.LockTTL <= 0 {
		return errors.New("Storage LockTTL must be > 0")
	}

	// Logging
	if _, err := logrus.ParseLevel(c.Logging.Level); err != nil {
		return errors.New("Logging Level is invalid")
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return errors.New("Logging Format must be 'text' or 'json'")
	}

	return nil
}
