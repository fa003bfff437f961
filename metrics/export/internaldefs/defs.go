package internaldefs

import (
	"github.com/MrEthical07/authcore"
)

// CounterDef names one exported counter.
type CounterDef struct {
	ID   authcore.MetricID
	Name string
	Help string
}

// HistogramDef names one exported histogram.
type HistogramDef struct {
	ID   authcore.MetricID
	Name string
	Help string
}

// CounterDefs lists every counter in export order.
var CounterDefs = []CounterDef{
	{ID: authcore.MetricAuthSuccess, Name: "authcore_auth_success_total", Help: "Successful authentications."},
	{ID: authcore.MetricAuthFailure, Name: "authcore_auth_failure_total", Help: "Failed authentications."},
	{ID: authcore.MetricAuthRateLimited, Name: "authcore_auth_rate_limited_total", Help: "Rate-limited sign in attempts."},
	{ID: authcore.MetricAccountRegistered, Name: "authcore_account_registered_total", Help: "Registered accounts."},
	{ID: authcore.MetricAccountDuplicate, Name: "authcore_account_duplicate_total", Help: "Registrations rejected as duplicate."},
	{ID: authcore.MetricAccountLocked, Name: "authcore_account_locked_total", Help: "Accounts locked after failed attempts."},
	{ID: authcore.MetricAccountUnlocked, Name: "authcore_account_unlocked_total", Help: "Accounts unlocked."},
	{ID: authcore.MetricAccountConfirmed, Name: "authcore_account_confirmed_total", Help: "Accounts confirmed."},
	{ID: authcore.MetricPasswordRecovered, Name: "authcore_password_recovered_total", Help: "Passwords reset through recovery."},
	{ID: authcore.MetricPasswordRehashed, Name: "authcore_password_rehashed_total", Help: "Password digests upgraded on sign in."},
	{ID: authcore.MetricSessionCreated, Name: "authcore_session_created_total", Help: "Started sessions."},
	{ID: authcore.MetricSessionRevoked, Name: "authcore_session_revoked_total", Help: "Revoked sessions."},
	{ID: authcore.MetricRefreshSuccess, Name: "authcore_refresh_success_total", Help: "Successful refresh rotations."},
	{ID: authcore.MetricRefreshFailure, Name: "authcore_refresh_failure_total", Help: "Failed refresh rotations."},
	{ID: authcore.MetricRefreshContention, Name: "authcore_refresh_contention_total", Help: "Refreshes rejected because the token was locked."},
	{ID: authcore.MetricTokenIssued, Name: "authcore_token_issued_total", Help: "Issued single-use tokens."},
	{ID: authcore.MetricTokenRejected, Name: "authcore_token_rejected_total", Help: "Rejected single-use tokens."},
	{ID: authcore.MetricTokenRequestRateLimited, Name: "authcore_token_request_rate_limited_total", Help: "Rate-limited token requests."},
}

// HistogramDefs lists every histogram in export order.
var HistogramDefs = []HistogramDef{
	{ID: authcore.MetricAuthLatency, Name: "authcore_auth_latency_seconds", Help: "Authentication latency histogram."},
}

// HistogramBounds are the bucket upper bounds as Prometheus "le" labels.
var HistogramBounds = []string{
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"1",
	"+Inf",
}

// HistogramBoundSuffix are HistogramBounds usable inside instrument names.
var HistogramBoundSuffix = []string{
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"1",
	"inf",
}

// NormalizeBuckets copies raw into a fixed-size array, zero-filling.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
