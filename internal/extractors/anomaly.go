package extractors

import (
	"math"

	"github.com/miradorstack/cgroup-analyzer/internal/models"
	"github.com/miradorstack/cgroup-analyzer/internal/utils"
)

const (
	defaultUpperFactor   = 1.5
	defaultExtremeFactor = 3.0
)

// Detection is the outcome of running the detector over one series.
type Detection struct {
	Bounds *models.Bounds
	Events []models.AnomalyEvent
}

// AnomalyDetector flags one-sided outliers using quartile fences computed
// once over the whole series.
type AnomalyDetector struct {
	upperFactor   float64
	extremeFactor float64
}

// NewAnomalyDetector creates a detector with the Tukey 1.5/3.0 fences.
func NewAnomalyDetector() *AnomalyDetector {
	return &AnomalyDetector{upperFactor: defaultUpperFactor, extremeFactor: defaultExtremeFactor}
}

// Detect flags every computable value above Q3+1.5*IQR as high and above
// Q3+3*IQR as extreme. elapsed supplies the event times; when it is shorter
// than values the sample index is used instead.
func (d *AnomalyDetector) Detect(elapsed, values []float64) Detection {
	if len(values) < 2 {
		return Detection{}
	}
	qs, ok := utils.Quantiles(values, 0.25, 0.75)
	if !ok {
		return Detection{}
	}
	q1, q3 := qs[0], qs[1]
	iqr := q3 - q1
	bounds := &models.Bounds{
		Q1:      q1,
		Q3:      q3,
		IQR:     iqr,
		Upper:   q3 + d.upperFactor*iqr,
		Extreme: q3 + d.extremeFactor*iqr,
	}

	events := make([]models.AnomalyEvent, 0)
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		var severity models.Severity
		switch {
		case v > bounds.Extreme:
			severity = models.SeverityExtreme
		case v > bounds.Upper:
			severity = models.SeverityHigh
		default:
			continue
		}
		at := float64(i)
		if i < len(elapsed) {
			at = elapsed[i]
		}
		events = append(events, models.AnomalyEvent{Time: at, Value: v, Severity: severity})
	}
	return Detection{Bounds: bounds, Events: events}
}
