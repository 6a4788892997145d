package patterns

import (
	"fmt"
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/miradorstack/cgroup-analyzer/internal/utils"
)

// PeriodicityDetector reports the dominant period of a series, in samples.
// Implementations may fail in any way, including panicking; callers treat
// every failure as "no periodicity".
type PeriodicityDetector interface {
	DominantPeriod(values []float64) (lag int, ok bool)
}

// NoPeriodicity never detects a period. It stands in when periodicity
// detection is disabled.
type NoPeriodicity struct{}

// DominantPeriod always reports no period.
func (NoPeriodicity) DominantPeriod([]float64) (int, bool) { return 0, false }

// ThresholdACF picks the smallest lag whose normalized autocorrelation
// exceeds Threshold, scanning up to min(MaxLags, n/2) lags.
type ThresholdACF struct {
	MaxLags   int
	Threshold float64
}

// NewThresholdACF returns the classifier's default detector.
func NewThresholdACF() ThresholdACF {
	return ThresholdACF{MaxLags: 50, Threshold: 0.5}
}

// DominantPeriod implements PeriodicityDetector. Non-finite values count as 0.
func (d ThresholdACF) DominantPeriod(values []float64) (int, bool) {
	x := utils.NaNToZero(values)
	nlags := len(x) / 2
	if d.MaxLags > 0 && d.MaxLags < nlags {
		nlags = d.MaxLags
	}
	acf, ok := autocorrelation(x, nlags)
	if !ok {
		return 0, false
	}
	for lag := 1; lag < len(acf); lag++ {
		if acf[lag] > d.Threshold {
			return lag, true
		}
	}
	return 0, false
}

// autocorrelation returns acf[0..nlags] normalized by the lag-0 covariance,
// each lag's covariance divided by n.
func autocorrelation(x []float64, nlags int) ([]float64, bool) {
	n := len(x)
	if n < 2 || nlags < 1 {
		return nil, false
	}
	if nlags > n-1 {
		nlags = n - 1
	}
	centered := demean(x)
	acov := make([]float64, nlags+1)
	for lag := 0; lag <= nlags; lag++ {
		sum := 0.0
		for t := 0; t+lag < n; t++ {
			sum += centered[t] * centered[t+lag]
		}
		acov[lag] = sum / float64(n)
	}
	if acov[0] <= 0 {
		return nil, false
	}
	acf := make([]float64, nlags+1)
	for lag := range acov {
		acf[lag] = acov[lag] / acov[0]
	}
	return acf, true
}

// PeakACF finds the highest local maximum of the autocorrelation function
// above MinPeak. It only runs on series longer than MinSamples and scans at
// most MaxLag lags. Ties go to the earliest lag.
type PeakACF struct {
	MinSamples int
	MaxLag     int
	MinPeak    float64
}

// NewPeakACF returns the fingerprinter's default detector.
func NewPeakACF() PeakACF {
	return PeakACF{MinSamples: 50, MaxLag: 500, MinPeak: 0.2}
}

// DominantPeriod implements PeriodicityDetector. Non-finite values count as 0.
func (d PeakACF) DominantPeriod(values []float64) (int, bool) {
	x := utils.NaNToZero(values)
	n := len(x)
	if n <= d.MinSamples || n < 3 {
		return 0, false
	}
	maxLag := n - 1
	if d.MaxLag > 0 && d.MaxLag < maxLag {
		maxLag = d.MaxLag
	}
	_, std, _ := utils.MeanStd(x)
	if std == 0 {
		return 0, false
	}
	centered := demean(x)
	norm := std * std * float64(n)
	corr := make([]float64, maxLag+1)
	for lag := 0; lag <= maxLag; lag++ {
		sum := 0.0
		for t := 0; t+lag < n; t++ {
			sum += centered[t] * centered[t+lag]
		}
		corr[lag] = sum / norm
	}

	type peak struct {
		lag   int
		value float64
	}
	var peaks []peak
	for i := 1; i < len(corr)-1; i++ {
		if corr[i] > corr[i-1] && corr[i] > corr[i+1] && corr[i] > d.MinPeak {
			peaks = append(peaks, peak{lag: i, value: corr[i]})
		}
	}
	if len(peaks) == 0 {
		return 0, false
	}
	sort.SliceStable(peaks, func(i, j int) bool { return peaks[i].value > peaks[j].value })
	return peaks[0].lag, true
}

func demean(x []float64) []float64 {
	mean := stat.Mean(x, nil)
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = v - mean
	}
	return out
}

// safePeriod runs detector and converts any failure into "no periodicity".
func safePeriod(logger *slog.Logger, detector PeriodicityDetector, values []float64) (lag int, ok bool) {
	if detector == nil {
		return 0, false
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Debug("periodicity detection failed", slog.String("panic", fmt.Sprint(r)))
			lag, ok = 0, false
		}
	}()
	lag, ok = detector.DominantPeriod(values)
	if !ok || lag <= 0 {
		return 0, false
	}
	return lag, true
}

