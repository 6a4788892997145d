package extractors

import (
	"math"
	"testing"
)

func TestDescribe(t *testing.T) {
	s := Describe([]float64{math.NaN(), 1, 2, 3, 4, 5})
	if s == nil {
		t.Fatalf("expected statistics")
	}
	if s.Mean != 3 || s.Median != 3 || s.Min != 1 || s.Max != 5 {
		t.Fatalf("unexpected location stats: %+v", s)
	}
	if math.Abs(s.Std-math.Sqrt(2.5)) > 1e-9 {
		t.Fatalf("expected sample std, got %v", s.Std)
	}
	if math.Abs(s.P95-4.8) > 1e-9 {
		t.Fatalf("expected interpolated p95 4.8, got %v", s.P95)
	}
	if math.Abs(s.Skewness) > 1e-9 || s.Trend != 0 {
		t.Fatalf("symmetric series should have no skew or trend: %+v", s)
	}
}

func TestDescribeTrend(t *testing.T) {
	values := make([]float64, 40)
	for i := range values {
		values[i] = float64(i)
	}
	// Window means are 4.5 and 34.5.
	if s := Describe(values); math.Abs(s.Trend-30.0/40) > 1e-9 {
		t.Fatalf("unexpected trend %v", s.Trend)
	}
}

func TestDescribeTooShort(t *testing.T) {
	if s := Describe([]float64{math.NaN(), 7}); s != nil {
		t.Fatalf("expected nil for a single computable value, got %+v", s)
	}
}
