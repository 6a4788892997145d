package models

// Pattern categories shared by the CPU and memory classifiers.
const (
	PatternUnknown         = "unknown"
	PatternNotApplicable   = "N/A"
	PatternStable          = "stable"
	PatternModerate        = "moderate variability"
	PatternVariable        = "variable"
	PatternBursty          = "bursty"
	PatternRapidIncrease   = "rapidly increasing"
	PatternGradualIncrease = "gradually increasing"
	PatternDecreasing      = "decreasing"
	PatternSpikes          = "spike patterns"
	PatternOscillating     = "oscillating"
)

// UsagePattern labels one resource of one cgroup. Category is the bare
// classification; Label may carry a periodicity annotation. PeriodLag is 0
// when no period was detected.
type UsagePattern struct {
	Category  string `json:"category"`
	Label     string `json:"label"`
	PeriodLag int    `json:"period_lag,omitempty"`
}

// Unknown is the neutral pattern for series too short to classify.
func Unknown() UsagePattern {
	return UsagePattern{Category: PatternUnknown, Label: PatternUnknown}
}

// NotApplicable is reported when the resource was not collected.
func NotApplicable() UsagePattern {
	return UsagePattern{Category: PatternNotApplicable, Label: PatternNotApplicable}
}
