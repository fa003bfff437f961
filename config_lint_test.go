package authcore

import (
	"testing"
	"time"
)

func lintBaseline() Config {
	cfg := DefaultConfig()
	cfg.Password.Pepper = "deployment-pepper"
	cfg.Password.Memory = 64 * 1024
	cfg.Security.RateLimit.Enabled = true
	cfg.Lockout.Enabled = true
	cfg.Recovery.Enabled = true
	return cfg
}

func TestLint_BaselineHasNoWarnings(t *testing.T) {
	cfg := lintBaseline()
	if ws := cfg.Lint(); len(ws) != 0 {
		t.Fatalf("expected no warnings, got %v", ws.Codes())
	}
}

func TestLint_DefaultConfigFlagsPepper(t *testing.T) {
	ws := DefaultConfig().Lint()
	if !containsCode(ws.Codes(), "default_pepper") {
		t.Error("expected default_pepper warning")
	}
	if err := ws.AsError(LintHigh); err == nil {
		t.Error("expected AsError(LintHigh) to fail on the default pepper")
	}
}

func TestLint_Rules(t *testing.T) {
	tests := []struct {
		code   string
		mutate func(*Config)
	}{
		{"argon2_memory_low", func(c *Config) { c.Password.Memory = 16 * 1024 }},
		{"timing_mitigation_disabled", func(c *Config) { c.Security.PreventTimingAttack = false }},
		{"rate_limits_disabled", func(c *Config) { c.Security.RateLimit.Enabled = false }},
		{"lockout_disabled", func(c *Config) { c.Lockout.Enabled = false }},
		{"refresh_shorter_than_access", func(c *Config) { c.Session.RefreshExpiry = 30 * time.Minute }},
		{"api_access_long", func(c *Config) { c.Session.APIAccessExpiry = 2 * time.Hour }},
		{"browser_session_long", func(c *Config) { c.Session.BrowserExpiry = 90 * 24 * time.Hour }},
		{"recovery_keeps_sessions", func(c *Config) { c.Recovery.RevokeSessions = false }},
		{"recovery_token_long", func(c *Config) { c.Recovery.TokenExpiry = 10 * 24 * time.Hour }},
		{"refresh_lock_ttl_long", func(c *Config) { c.Storage.LockTTL = time.Minute }},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			cfg := lintBaseline()
			tt.mutate(&cfg)
			if !containsCode(cfg.Lint().Codes(), tt.code) {
				t.Errorf("expected %s warning", tt.code)
			}
		})
	}
}

func TestLint_NoWarningForGoodArgon2(t *testing.T) {
	cfg := lintBaseline()
	cfg.Password.Memory = 64 * 1024
	if containsCode(cfg.Lint().Codes(), "argon2_memory_low") {
		t.Error("should not warn when memory == 64 MiB")
	}
}

func TestLint_BySeverity(t *testing.T) {
	cfg := lintBaseline()
	cfg.Session.RefreshExpiry = 30 * time.Minute
	cfg.Lockout.Enabled = false
	ws := cfg.Lint()

	high := ws.BySeverity(LintHigh)
	if len(high) != 1 || high[0].Code != "refresh_shorter_than_access" {
		t.Fatalf("unexpected HIGH warnings: %v", high.Codes())
	}
	if len(ws.BySeverity(LintWarn)) != 2 {
		t.Fatalf("expected two warnings at WARN or above, got %v", ws.BySeverity(LintWarn).Codes())
	}
}

func TestLintSeverityString(t *testing.T) {
	if LintHigh.String() != "HIGH" || LintSeverity(9).String() != "UNKNOWN" {
		t.Fatal("unexpected severity names")
	}
}

func containsCode(codes []string, code string) bool {
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}
