package authcore

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one in-process counter.
type MetricID uint16

const (
	// MetricAuthSuccess counts authentications that returned an account.
	MetricAuthSuccess MetricID = iota
	// MetricAuthFailure counts authentications that returned ErrInvalidCredentials.
	MetricAuthFailure
	// MetricAuthRateLimited counts sign-ins rejected by the RateLimiter.
	MetricAuthRateLimited
	// MetricAccountRegistered counts accounts created through Register.
	MetricAccountRegistered
	// MetricAccountDuplicate counts registrations rejected for a taken email.
	MetricAccountDuplicate
	// MetricAccountLocked counts lock transitions.
	MetricAccountLocked
	// MetricAccountUnlocked counts unlock transitions.
	MetricAccountUnlocked
	// MetricAccountConfirmed counts consumed confirmation tokens.
	MetricAccountConfirmed
	// MetricPasswordRecovered counts consumed recovery tokens.
	MetricPasswordRecovered
	// MetricPasswordRehashed counts digests upgraded to the current cost parameters.
	MetricPasswordRehashed
	// MetricSessionCreated counts started sessions, including rotations.
	MetricSessionCreated
	// MetricSessionRevoked counts explicit and lazy session revocations.
	MetricSessionRevoked
	// MetricRefreshSuccess counts successful rotations.
	MetricRefreshSuccess
	// MetricRefreshFailure counts refreshes that returned ErrInvalidRefreshToken.
	MetricRefreshFailure
	// MetricRefreshContention counts refreshes that lost the per-token lock.
	MetricRefreshContention
	// MetricTokenIssued counts confirmation, unlock and recovery tokens issued.
	MetricTokenIssued
	// MetricTokenRejected counts consume attempts that found no usable token.
	MetricTokenRejected
	// MetricTokenRequestRateLimited counts token requests rejected by the RateLimiter.
	MetricTokenRequestRateLimited
	// MetricAuthLatency is the authentication latency histogram.
	MetricAuthLatency
	metricIDCount
)

var metricNames = [metricIDCount]string{
	MetricAuthSuccess:             "auth_success",
	MetricAuthFailure:             "auth_failure",
	MetricAuthRateLimited:         "auth_rate_limited",
	MetricAccountRegistered:       "account_registered",
	MetricAccountDuplicate:        "account_duplicate",
	MetricAccountLocked:           "account_locked",
	MetricAccountUnlocked:         "account_unlocked",
	MetricAccountConfirmed:        "account_confirmed",
	MetricPasswordRecovered:       "password_recovered",
	MetricPasswordRehashed:        "password_rehashed",
	MetricSessionCreated:          "session_created",
	MetricSessionRevoked:          "session_revoked",
	MetricRefreshSuccess:          "refresh_success",
	MetricRefreshFailure:          "refresh_failure",
	MetricRefreshContention:       "refresh_contention",
	MetricTokenIssued:             "token_issued",
	MetricTokenRejected:           "token_rejected",
	MetricTokenRequestRateLimited: "token_request_rate_limited",
	MetricAuthLatency:             "auth_latency",
}

// String returns the exported metric name without namespace.
func (id MetricID) String() string {
	if id >= metricIDCount {
		return "unknown"
	}
	return metricNames[id]
}

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds lock-free counters shared by every engine component.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics creates a Metrics set from cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether the latency histogram is recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to the counter id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the histogram of id. Only MetricAuthLatency has one.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricAuthLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value returns the current value of counter id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter and, when enabled, the latency histogram.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if id == MetricAuthLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricAuthLatency].buckets[i])
		}
		s.Histograms[MetricAuthLatency] = buckets
	}

	return s
}

// Argon2id dominates authentication latency, so the buckets start at 10ms.
func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 10:
		return 0
	case ms <= 25:
		return 1
	case ms <= 50:
		return 2
	case ms <= 100:
		return 3
	case ms <= 250:
		return 4
	case ms <= 500:
		return 5
	case ms <= 1000:
		return 6
	default:
		return 7
	}
}

// HistogramBounds returns the upper bound, in seconds, of every finite bucket.
func HistogramBounds() []float64 {
	return []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}
}
