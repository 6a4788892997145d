package patterns

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/miradorstack/cgroup-analyzer/internal/models"
	"github.com/miradorstack/cgroup-analyzer/internal/utils"
)

// MinPatternSamples is the shortest series the classifier will label.
const MinPatternSamples = 11

// Classifier labels CPU and memory usage behavior.
type Classifier struct {
	logger      *slog.Logger
	periodicity PeriodicityDetector
}

// NewClassifier constructs a Classifier. A nil detector disables periodicity.
func NewClassifier(logger *slog.Logger, periodicity PeriodicityDetector) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	if periodicity == nil {
		periodicity = NoPeriodicity{}
	}
	return &Classifier{logger: logger, periodicity: periodicity}
}

// CPU classifies a CPU rate series (ms/s). The coefficient of variation picks
// the category; a detected period annotates every category except stable.
func (c *Classifier) CPU(rate []float64) models.UsagePattern {
	n := len(rate)
	if n < MinPatternSamples {
		return models.Unknown()
	}

	mean, std, _ := utils.MeanStd(rate)
	cv := 0.0
	if mean > 0 {
		cv = std / mean
	}

	category := models.PatternStable
	switch {
	case cv > 1.5:
		above := 0
		for _, v := range rate {
			if v > 2*mean {
				above++
			}
		}
		if float64(above) > 0.1*float64(n) {
			category = models.PatternBursty
		} else {
			category = models.PatternVariable
		}
	case cv > 0.5:
		category = models.PatternModerate
	}

	pattern := models.UsagePattern{Category: category, Label: category}
	if category == models.PatternStable {
		return pattern
	}
	if lag, ok := safePeriod(c.logger, c.periodicity, rate); ok {
		pattern.PeriodLag = lag
		pattern.Label = fmt.Sprintf("%s with periodicity (~%d samples)", category, lag)
	}
	return pattern
}

// Memory classifies a memory level series in MB. extended reports whether
// memory was collected at all; elapsed is the matching time axis.
func (c *Classifier) Memory(elapsed, memoryMB []float64, extended bool) models.UsagePattern {
	if !extended {
		return models.NotApplicable()
	}
	n := len(memoryMB)
	if n < MinPatternSamples {
		return models.Unknown()
	}

	first, last := memoryMB[0], memoryMB[n-1]
	category := models.PatternStable
	switch {
	case last > 1.5*first:
		span := 1.0
		if len(elapsed) == n {
			span = math.Max(1, elapsed[n-1]-elapsed[0])
		}
		if (last-first)/span > 0.5 {
			category = models.PatternRapidIncrease
		} else {
			category = models.PatternGradualIncrease
		}
	case last < 0.5*first:
		category = models.PatternDecreasing
	case hasSpikes(memoryMB):
		category = models.PatternSpikes
	case float64(signChanges(memoryMB)) > 0.4*float64(n):
		category = models.PatternOscillating
	}
	return models.UsagePattern{Category: category, Label: category}
}

func hasSpikes(values []float64) bool {
	mean, ok := utils.Mean(values)
	if !ok {
		return false
	}
	maxV, _ := utils.Max(values)
	return maxV > 2*mean
}

// signChanges counts direction reversals between successive differences.
func signChanges(values []float64) int {
	count := 0
	prev := math.NaN()
	for i := 1; i < len(values); i++ {
		d := values[i] - values[i-1]
		if prev*d < 0 {
			count++
		}
		prev = d
	}
	return count
}
