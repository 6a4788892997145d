package utils

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Finite returns the values that are neither NaN nor infinite.
func Finite(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}

// NaNToZero returns a copy with every non-finite value replaced by 0.
func NaNToZero(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out[i] = v
		}
	}
	return out
}

// Quantiles returns the p-quantiles (0..1) of the finite values using linear
// interpolation between closest ranks at position (n-1)p, with a single
// sort. ok is false when nothing is finite.
func Quantiles(values []float64, ps ...float64) ([]float64, bool) {
	sorted := Finite(values)
	if len(sorted) == 0 {
		return nil, false
	}
	sort.Float64s(sorted)
	out := make([]float64, len(ps))
	for i, p := range ps {
		out[i] = quantileSorted(sorted, p)
	}
	return out, true
}

func quantileSorted(sorted []float64, p float64) float64 {
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := float64(len(sorted)-1) * p
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// MeanStd returns the mean and sample standard deviation (n-1) of the finite
// values. std is 0 with fewer than two values; ok is false with none.
func MeanStd(values []float64) (mean, std float64, ok bool) {
	finite := Finite(values)
	switch len(finite) {
	case 0:
		return 0, 0, false
	case 1:
		return finite[0], 0, true
	}
	mean, std = stat.MeanStdDev(finite, nil)
	return mean, std, true
}

// Mean returns the mean of the finite values, ok false when there are none.
func Mean(values []float64) (float64, bool) {
	finite := Finite(values)
	if len(finite) == 0 {
		return 0, false
	}
	return stat.Mean(finite, nil), true
}

// Max returns the largest finite value, ok false when there are none.
func Max(values []float64) (float64, bool) {
	found := false
	best := 0.0
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if !found || v > best {
			best = v
			found = true
		}
	}
	return best, found
}
