package internaldefs

import (
	"strings"
	"testing"

	"github.com/MrEthical07/authcore"
)

func TestCounterDefsCoverEveryCounter(t *testing.T) {
	seen := make(map[authcore.MetricID]bool)
	names := make(map[string]bool)
	for _, def := range CounterDefs {
		if seen[def.ID] {
			t.Fatalf("duplicate id %s", def.ID)
		}
		if names[def.Name] {
			t.Fatalf("duplicate name %s", def.Name)
		}
		if !strings.HasPrefix(def.Name, "authcore_") || !strings.HasSuffix(def.Name, "_total") {
			t.Fatalf("unexpected counter name %s", def.Name)
		}
		seen[def.ID] = true
		names[def.Name] = true
	}

	for id := range authcore.NewMetrics(authcore.MetricsConfig{Enabled: true}).Snapshot().Counters {
		if !seen[id] {
			t.Fatalf("counter %s has no export definition", id)
		}
	}
}

func TestBucketLayoutMatchesCore(t *testing.T) {
	bounds := authcore.HistogramBounds()
	if len(HistogramBounds) != len(bounds)+1 || len(HistogramBoundSuffix) != len(HistogramBounds) {
		t.Fatalf("bucket layout mismatch: %d core bounds, %d labels", len(bounds), len(HistogramBounds))
	}
	if HistogramBounds[len(HistogramBounds)-1] != "+Inf" {
		t.Fatal("last bucket must be +Inf")
	}
}

func TestCumulativeBuckets(t *testing.T) {
	got := CumulativeBuckets(NormalizeBuckets([]uint64{1, 0, 2, 0, 0, 0, 0, 3}))
	want := [8]uint64{1, 1, 3, 3, 3, 3, 3, 6}
	if got != want {
		t.Fatalf("got %v want %v", got, want)
	}

	short := NormalizeBuckets([]uint64{5})
	if short != [8]uint64{5} {
		t.Fatalf("short input not zero-filled: %v", short)
	}
}
