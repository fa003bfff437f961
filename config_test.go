package authcore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.False(t, cfg.Confirmation.Enabled)
	assert.False(t, cfg.Lockout.Enabled)
	assert.False(t, cfg.Recovery.Enabled)
	assert.True(t, cfg.Security.PreventTimingAttack)
	assert.Equal(t, 10, cfg.Lockout.MaxFailedAttempts)
	assert.Equal(t, 5*24*time.Hour, cfg.Confirmation.TokenExpiry)
	assert.Equal(t, 7*24*time.Hour, cfg.Session.BrowserExpiry)
	assert.Equal(t, time.Hour, cfg.Session.APIAccessExpiry)
	assert.Equal(t, 30*24*time.Hour, cfg.Session.RefreshExpiry)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "argon2 memory below floor",
			mutate:    func(c *Config) { c.Password.Memory = 4 * 1024 },
			wantValid: false,
		},
		{
			name:      "argon2 zero time",
			mutate:    func(c *Config) { c.Password.Time = 0 },
			wantValid: false,
		},
		{
			name:      "short salt",
			mutate:    func(c *Config) { c.Password.SaltLength = 8 },
			wantValid: false,
		},
		{
			name:      "max length below min length",
			mutate:    func(c *Config) { c.Password.MaxLength = 4 },
			wantValid: false,
		},
		{
			name:      "password format compiles",
			mutate:    func(c *Config) { c.Password.Format = `[0-9]` },
			wantValid: true,
		},
		{
			name:      "password format invalid",
			mutate:    func(c *Config) { c.Password.Format = `([` },
			wantValid: false,
		},
		{
			name:      "email format invalid",
			mutate:    func(c *Config) { c.Account.EmailFormat = `([` },
			wantValid: false,
		},
		{
			name:      "zero max failed attempts",
			mutate:    func(c *Config) { c.Lockout.MaxFailedAttempts = 0 },
			wantValid: false,
		},
		{
			name: "enabled recovery needs expiry",
			mutate: func(c *Config) {
				c.Recovery.Enabled = true
				c.Recovery.TokenExpiry = 0
			},
			wantValid: false,
		},
		{
			name: "disabled confirmation ignores expiry",
			mutate: func(c *Config) {
				c.Confirmation.TokenExpiry = 0
			},
			wantValid: true,
		},
		{
			name:      "refresh shorter than access",
			mutate:    func(c *Config) { c.Session.RefreshExpiry = 30 * time.Minute },
			wantValid: false,
		},
		{
			name:      "blank cookie name",
			mutate:    func(c *Config) { c.Session.CookieName = "" },
			wantValid: false,
		},
		{
			name: "rate limit without budget",
			mutate: func(c *Config) {
				c.Security.RateLimit.Enabled = true
				c.Security.RateLimit.SignInMax = 0
			},
			wantValid: false,
		},
		{
			name:      "postgres driver",
			mutate:    func(c *Config) { c.Storage.Driver = DriverPostgres },
			wantValid: true,
		},
		{
			name:      "unknown driver",
			mutate:    func(c *Config) { c.Storage.Driver = "sqlite" },
			wantValid: false,
		},
		{
			name:      "unknown log level",
			mutate:    func(c *Config) { c.Logging.Level = "loud" },
			wantValid: false,
		},
		{
			name:      "json logs",
			mutate:    func(c *Config) { c.Logging.Format = "json" },
			wantValid: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantValid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("AUTHCORE_LOCKOUT_ENABLED", "true")
	t.Setenv("AUTHCORE_LOCKOUT_MAX_FAILED_ATTEMPTS", "3")
	t.Setenv("AUTHCORE_SESSION_API_ACCESS_EXPIRY", "15m")
	t.Setenv("AUTHCORE_PASSWORD_PEPPER", "from-env")
	t.Setenv("AUTHCORE_SECURITY_RATE_LIMIT_ENABLED", "true")
	t.Setenv("AUTHCORE_STORAGE_REDIS_PREFIX", "svc")

	cfg, err := LoadConfigFromEnv("AUTHCORE_")
	require.NoError(t, err)

	assert.True(t, cfg.Lockout.Enabled)
	assert.Equal(t, 3, cfg.Lockout.MaxFailedAttempts)
	assert.Equal(t, 15*time.Minute, cfg.Session.APIAccessExpiry)
	assert.Equal(t, "from-env", cfg.Password.Pepper)
	assert.True(t, cfg.Security.RateLimit.Enabled)
	assert.Equal(t, "svc", cfg.Storage.RedisPrefix)
	// untouched fields keep their defaults
	assert.Equal(t, 7*24*time.Hour, cfg.Session.BrowserExpiry)
}

func TestLoadConfigFromEnvValidates(t *testing.T) {
	t.Setenv("AUTHCORE_LOCKOUT_MAX_FAILED_ATTEMPTS", "0")

	_, err := LoadConfigFromEnv("AUTHCORE_")
	assert.Error(t, err)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "authcore.yaml")
	data := []byte(`
password:
  pepper: from-file
  min_length: 12
confirmation:
  enabled: true
  token_expiry: 48h
session:
  browser_expiry: 24h
logging:
  format: json
`)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.Password.Pepper)
	assert.Equal(t, 12, cfg.Password.MinLength)
	assert.True(t, cfg.Confirmation.Enabled)
	assert.Equal(t, 48*time.Hour, cfg.Confirmation.TokenExpiry)
	assert.Equal(t, 24*time.Hour, cfg.Session.BrowserExpiry)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, uint32(16*1024), cfg.Password.Memory)
}

func TestLoadConfigFileErrors(t *testing.T) {
	_, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("session:\n  browser_expiry: soon\n"), 0o600))
	_, err = LoadConfigFile(path)
	assert.Error(t, err)
}
