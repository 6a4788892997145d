package models

import "time"

// Statistics are descriptive figures for one resource series.
type Statistics struct {
	Mean     float64 `json:"mean"`
	Median   float64 `json:"median"`
	Std      float64 `json:"std"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	CV       float64 `json:"coefficient_of_variation"`
	P95      float64 `json:"p95"`
	P99      float64 `json:"p99"`
	Skewness float64 `json:"skewness"`
	Kurtosis float64 `json:"kurtosis"`
	// Trend is the per-sample drift between the first and last rolling window.
	Trend float64 `json:"trend"`
}

// ResourceAnalysis bundles everything derived from one resource series.
type ResourceAnalysis struct {
	Bounds     *Bounds          `json:"bounds,omitempty"`
	Anomalies  []AnomalyEvent   `json:"anomalies"`
	Clusters   []AnomalyCluster `json:"clusters"`
	Pattern    UsagePattern     `json:"pattern"`
	Statistics *Statistics      `json:"statistics,omitempty"`
}

// Summary mirrors the per-cgroup totals exported alongside the analysis.
// Memory fields are only present when the dataset carries extended metrics.
type Summary struct {
	CPUTotalSeconds     float64  `json:"cpu_total_seconds"`
	CPUAvgRate          float64  `json:"cpu_avg_rate_ms_per_sec"`
	CPUMaxRate          float64  `json:"cpu_max_rate_ms_per_sec"`
	CPUStdRate          float64  `json:"cpu_std_rate_ms_per_sec"`
	CPUThrottlingEvents float64  `json:"cpu_throttling_events"`
	MemoryCurrentMB     *float64 `json:"memory_current_mb,omitempty"`
	MemoryPeakMB        *float64 `json:"memory_peak_mb,omitempty"`
	MemoryAvgMB         *float64 `json:"memory_avg_mb,omitempty"`
	MemoryMaxMB         *float64 `json:"memory_max_mb,omitempty"`
	MemoryStdMB         *float64 `json:"memory_std_mb,omitempty"`
	OOMEvents           *float64 `json:"oom_events,omitempty"`
}

// CgroupReport is the complete interpretation of one cgroup.
type CgroupReport struct {
	Name        string              `json:"name"`
	CPU         ResourceAnalysis    `json:"cpu"`
	Memory      ResourceAnalysis    `json:"memory"`
	Fingerprint WorkloadFingerprint `json:"fingerprint"`
	Insights    []string            `json:"insights"`
	Summary     Summary             `json:"summary"`
}

// AnalysisResult is the output of one pass over a dataset.
type AnalysisResult struct {
	Source          string         `json:"source,omitempty"`
	Digest          string         `json:"digest,omitempty"`
	Samples         int            `json:"samples"`
	DurationSeconds float64        `json:"duration_seconds"`
	SampleRateHz    float64        `json:"sample_rate_hz"`
	FirstTimestamp  time.Time      `json:"first_timestamp"`
	LastTimestamp   time.Time      `json:"last_timestamp"`
	ExtendedMetrics bool           `json:"extended_metrics"`
	Cgroups         []CgroupReport `json:"cgroups"`
	CoOccurrences   []CoOccurrence `json:"co_occurrences,omitempty"`
	Recommendations []string       `json:"recommendations"`
	GeneratedAt     time.Time      `json:"generated_at"`
}

