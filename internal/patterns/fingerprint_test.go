package patterns

import (
	"reflect"
	"strings"
	"testing"

	"github.com/miradorstack/cgroup-analyzer/internal/models"
)

func TestFingerprintWithoutBursts(t *testing.T) {
	f := NewFingerprinter(nil, nil)
	fp := f.Fingerprint(FingerprintInput{
		CPURate:     withLeadingNaN(repeat(5, 20)...),
		CPUCategory: models.PatternVariable,
		UsageUsec:   1000,
		BurstUsec:   900,
		MaxNrBursts: 0,
	})
	if fp.CPUBurstTendency != models.PatternNotApplicable {
		t.Fatalf("expected N/A tendency, got %q", fp.CPUBurstTendency)
	}
	if got := fp.Fields()["cpu_burst_score"]; got != "0.0" {
		t.Fatalf("expected burst score 0.0, got %q", got)
	}
	if strings.Contains(fp.WorkloadType, "burst-heavy") {
		t.Fatalf("unexpected burst-heavy suffix: %q", fp.WorkloadType)
	}
}

func TestFingerprintBurstHeavy(t *testing.T) {
	f := NewFingerprinter(nil, nil)
	fp := f.Fingerprint(FingerprintInput{
		CPURate:     withLeadingNaN(repeat(5, 20)...),
		CPUCategory: models.PatternVariable,
		UsageUsec:   100,
		BurstUsec:   40,
		MaxNrBursts: 3,
	})
	if fp.CPUBurstTendency != models.BurstHigh || fp.CPUBurstScore != 40 {
		t.Fatalf("unexpected burst accounting: %+v", fp)
	}
	if fp.WorkloadType != "Variable CPU-bound (burst-heavy)" {
		t.Fatalf("unexpected workload type %q", fp.WorkloadType)
	}

	fp = f.Fingerprint(FingerprintInput{CPUCategory: models.PatternVariable, UsageUsec: 100, BurstUsec: 20, MaxNrBursts: 1})
	if fp.CPUBurstTendency != models.BurstModerate {
		t.Fatalf("expected moderate, got %q", fp.CPUBurstTendency)
	}
	fp = f.Fingerprint(FingerprintInput{CPUCategory: models.PatternVariable, UsageUsec: 100, BurstUsec: 5, MaxNrBursts: 1})
	if fp.CPUBurstTendency != models.BurstLow {
		t.Fatalf("expected low, got %q", fp.CPUBurstTendency)
	}
}

func TestFingerprintWorkloadTypes(t *testing.T) {
	f := NewFingerprinter(nil, nil)
	cases := []struct {
		in   FingerprintInput
		want string
	}{
		{FingerprintInput{CPUCategory: models.PatternStable, SystemUsec: 900, UserUsec: 1000}, "Continuous system-intensive"},
		{FingerprintInput{CPUCategory: models.PatternStable, SystemUsec: 100, UserUsec: 1000}, "Continuous user-intensive"},
		{FingerprintInput{CPUCategory: models.PatternBursty}, "Batch processing"},
		{FingerprintInput{CPUCategory: models.PatternModerate, SystemUsec: 900, UserUsec: 1000}, "Variable I/O-bound"},
		{FingerprintInput{CPUCategory: models.PatternUnknown}, "Variable CPU-bound"},
	}
	for _, tc := range cases {
		if got := f.Fingerprint(tc.in).WorkloadType; got != tc.want {
			t.Fatalf("category %q: expected %q, got %q", tc.in.CPUCategory, tc.want, got)
		}
	}
}

func TestFingerprintPeriodicWithBursts(t *testing.T) {
	f := NewFingerprinter(nil, alwaysPeriod(6))
	rate := append(repeat(1, 18), 50, 50)
	fp := f.Fingerprint(FingerprintInput{
		CPURate:     rate,
		CPUCategory: models.PatternBursty,
		UsageUsec:   100,
		BurstUsec:   80,
		MaxNrBursts: 2,
	})
	if !fp.HasPeriodicity || fp.DominantPeriodLag != 6 {
		t.Fatalf("expected periodicity, got %+v", fp)
	}
	if fp.WorkloadType != "Periodic with bursts" {
		t.Fatalf("burst label must not gain a burst-heavy suffix, got %q", fp.WorkloadType)
	}
}

func TestFingerprintBurstinessNonNegative(t *testing.T) {
	f := NewFingerprinter(nil, nil)
	fp := f.Fingerprint(FingerprintInput{CPURate: []float64{-10, -20, -30, -5}, CPUCategory: models.PatternVariable})
	if fp.Burstiness < 0 {
		t.Fatalf("burstiness must not be negative, got %v", fp.Burstiness)
	}
	if fp := f.Fingerprint(FingerprintInput{}); fp.Burstiness != 0 {
		t.Fatalf("empty rate should give zero burstiness, got %v", fp.Burstiness)
	}
}

func TestFingerprintMemoryBehavior(t *testing.T) {
	f := NewFingerprinter(nil, nil)
	cases := []struct {
		name     string
		category string
		mem      []float64
		want     string
	}{
		{"leaking", models.PatternRapidIncrease, ramp(10, 400, 20), models.MemoryLeaking},
		{"static", models.PatternStable, []float64{100, 101, 100, 101, 100}, models.MemoryStatic},
		{"dynamic", models.PatternOscillating, []float64{100, 200, 100, 200, 100, 200, 100}, models.MemoryDynamic},
		{"expanding", models.PatternGradualIncrease, []float64{100, 150, 200, 180, 250, 300, 350, 400}, models.MemoryExpanding},
		{"growth only", models.PatternGradualIncrease, ramp(100, 400, 10), models.PatternNotApplicable},
	}
	for _, tc := range cases {
		fp := f.Fingerprint(FingerprintInput{Extended: true, MemoryCategory: tc.category, MemoryMB: tc.mem})
		if fp.MemoryBehavior != tc.want {
			t.Fatalf("%s: expected %q, got %q", tc.name, tc.want, fp.MemoryBehavior)
		}
	}

	fp := f.Fingerprint(FingerprintInput{Extended: false, MemoryCategory: models.PatternRapidIncrease})
	if fp.MemoryBehavior != models.PatternNotApplicable {
		t.Fatalf("expected N/A without extended metrics, got %q", fp.MemoryBehavior)
	}
}

func TestFingerprintIsPure(t *testing.T) {
	f := NewFingerprinter(nil, NewPeakACF())
	rate := make([]float64, 80)
	for i := range rate {
		if i%4 == 0 {
			rate[i] = 40
		} else {
			rate[i] = 2
		}
	}
	in := FingerprintInput{CPURate: rate, CPUCategory: models.PatternBursty, UsageUsec: 1000, BurstUsec: 10, MaxNrBursts: 1}
	first := f.Fingerprint(in)
	second := f.Fingerprint(in)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("fingerprint not deterministic: %+v vs %+v", first, second)
	}
	if !first.HasPeriodicity || first.DominantPeriodLag != 4 {
		t.Fatalf("expected period 4, got %+v", first)
	}
}
