package models

// Resource enumerates the analysed resource dimensions.
type Resource string

const (
	ResourceCPU    Resource = "cpu"
	ResourceMemory Resource = "memory"
)

// Severity captures how far past the IQR fence a sample landed.
type Severity string

const (
	SeverityHigh    Severity = "high"
	SeverityExtreme Severity = "extreme"
)

// AnomalyEvent is one flagged sample. Time is elapsed seconds.
type AnomalyEvent struct {
	Time     float64  `json:"time"`
	Value    float64  `json:"value"`
	Severity Severity `json:"severity"`
}

// Bounds holds the quartile fences derived from a full series.
type Bounds struct {
	Q1      float64 `json:"q1"`
	Q3      float64 `json:"q3"`
	IQR     float64 `json:"iqr"`
	Upper   float64 `json:"upper"`
	Extreme float64 `json:"extreme"`
}

// AnomalyCluster groups temporally adjacent events.
type AnomalyCluster struct {
	Start    float64        `json:"start_time"`
	End      float64        `json:"end_time"`
	MaxValue float64        `json:"max_value"`
	Events   []AnomalyEvent `json:"events"`
}

