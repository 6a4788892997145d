package extractors

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/miradorstack/cgroup-analyzer/internal/models"
	"github.com/miradorstack/cgroup-analyzer/internal/utils"
)

const trendWindow = 10

// Describe computes descriptive statistics over the finite values. It returns
// nil when fewer than two values are computable.
func Describe(values []float64) *models.Statistics {
	finite := utils.Finite(values)
	if len(finite) < 2 {
		return nil
	}
	mean, std, _ := utils.MeanStd(finite)
	minV, maxV := finite[0], finite[0]
	for _, v := range finite[1:] {
		minV = math.Min(minV, v)
		maxV = math.Max(maxV, v)
	}
	qs, _ := utils.Quantiles(finite, 0.5, 0.95, 0.99)

	s := &models.Statistics{
		Mean:   mean,
		Median: qs[0],
		Std:    std,
		Min:    minV,
		Max:    maxV,
		CV:     std / math.Max(mean, 0.001),
		P95:    qs[1],
		P99:    qs[2],
		Trend:  trend(finite),
	}
	if len(finite) > 2 && std > 0 {
		s.Skewness = stat.Skew(finite, nil)
	}
	if len(finite) > 3 && std > 0 {
		s.Kurtosis = stat.ExKurtosis(finite, nil)
	}
	return s
}

// trend compares the first and last full rolling-window means, normalised by
// the series length.
func trend(values []float64) float64 {
	n := len(values)
	w := trendWindow
	if n < w {
		w = n
	}
	first := stat.Mean(values[:w], nil)
	last := stat.Mean(values[n-w:], nil)
	return (last - first) / float64(n)
}
