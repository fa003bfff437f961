package authcore

import (
	"sync/atomic"
	"testing"
	"time"
)

func BenchmarkMetricsInc(b *testing.B) {
	for _, enabled := range []bool{true, false} {
		name := "enabled"
		if !enabled {
			name = "disabled"
		}
		b.Run(name, func(b *testing.B) {
			m := NewMetrics(MetricsConfig{Enabled: enabled})
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				m.Inc(MetricRefreshSuccess)
			}
		})
	}
}

func BenchmarkMetricsIncParallel(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			m.Inc(MetricRefreshSuccess)
		}
	})
}

func BenchmarkMetricsObserveLatencyParallel(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		var n int64
		for pb.Next() {
			// spread samples across every bucket
			m.Observe(MetricAuthLatency, time.Duration(n%1500)*time.Millisecond)
			n += 7
		}
	})
}

// packedCounters is the unpadded layout the real Metrics type is compared against.
type packedCounters struct {
	values [metricIDCount]uint64
}

func (p *packedCounters) Inc(id MetricID) {
	atomic.AddUint64(&p.values[id], 1)
}

var hotPathIDs = [...]MetricID{
	MetricAuthSuccess,
	MetricAuthFailure,
	MetricSessionCreated,
	MetricSessionRevoked,
	MetricRefreshSuccess,
	MetricRefreshFailure,
	MetricRefreshContention,
	MetricTokenIssued,
}

func benchmarkMixed(b *testing.B, inc func(MetricID)) {
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		var i int
		for pb.Next() {
			inc(hotPathIDs[i%len(hotPathIDs)])
			i++
		}
	})
}

func BenchmarkMetricsIncMixed(b *testing.B) {
	b.Run("padded", func(b *testing.B) {
		benchmarkMixed(b, NewMetrics(MetricsConfig{Enabled: true}).Inc)
	})
	b.Run("packed", func(b *testing.B) {
		benchmarkMixed(b, (&packedCounters{}).Inc)
	})
}
