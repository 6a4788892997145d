package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels successful analyses.
	OutcomeSuccess = "success"
	// OutcomeError labels failed analyses (load, pipeline or cancellation).
	OutcomeError = "error"

	// CacheHit and CacheMiss label result cache lookups.
	CacheHit  = "hit"
	CacheMiss = "miss"
)

const namespace = "cgroup_analyzer"

var (
	analysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Total number of analysis passes handled, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	analysisDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_seconds",
			Help:      "Analysis latency in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
	)

	anomaliesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "anomalies_total",
			Help:      "Anomalous samples detected, partitioned by resource and severity.",
		},
		[]string{"resource", "severity"},
	)

	clustersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "clusters_total",
			Help:      "Anomaly clusters formed, partitioned by resource.",
		},
		[]string{"resource"},
	)

	cacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Result cache lookups, partitioned by hit or miss.",
		},
		[]string{"result"},
	)
)

// Register attaches cgroup-analyzer collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		analysesTotal,
		analysisDurationSeconds,
		anomaliesTotal,
		clustersTotal,
		cacheLookupsTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveAnalysis records an analysis duration and outcome label.
func ObserveAnalysis(duration time.Duration, outcome string) {
	label := outcome
	if label != OutcomeError {
		label = OutcomeSuccess
	}
	analysesTotal.WithLabelValues(label).Inc()
	if duration < 0 {
		duration = 0
	}
	analysisDurationSeconds.Observe(duration.Seconds())
}

// ObserveAnomalies adds count detected events for resource/severity.
func ObserveAnomalies(resource, severity string, count int) {
	if count <= 0 {
		return
	}
	anomaliesTotal.WithLabelValues(resource, severity).Add(float64(count))
}

// ObserveClusters adds count clusters formed for resource.
func ObserveClusters(resource string, count int) {
	if count <= 0 {
		return
	}
	clustersTotal.WithLabelValues(resource).Add(float64(count))
}

// ObserveCacheLookup records one cache lookup.
func ObserveCacheLookup(hit bool) {
	if hit {
		cacheLookupsTotal.WithLabelValues(CacheHit).Inc()
		return
	}
	cacheLookupsTotal.WithLabelValues(CacheMiss).Inc()
}

// WriteTextfile dumps the collectors gathered by g in the node exporter
// textfile format. Batch runs use it instead of a scrape endpoint.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, g)
}
