package models

import (
	"fmt"
	"strconv"
)

// Burst tendency labels.
const (
	BurstHigh     = "High"
	BurstModerate = "Moderate"
	BurstLow      = "Low"
)

// Memory behavior vocabulary. It is deliberately distinct from the memory
// pattern categories.
const (
	MemoryLeaking   = "Memory leaking"
	MemoryStatic    = "Static memory"
	MemoryDynamic   = "Dynamic allocation/deallocation"
	MemoryExpanding = "Gradually expanding"
)

// WorkloadFingerprint is the composite descriptor of one cgroup.
type WorkloadFingerprint struct {
	WorkloadType       string  `json:"workload_type"`
	Burstiness         float64 `json:"burstiness"`
	MemoryBehavior     string  `json:"memory_behavior"`
	HasPeriodicity     bool    `json:"has_periodicity"`
	DominantPeriodLag  int     `json:"dominant_period_lag"`
	CPUSystemUserRatio float64 `json:"cpu_system_user_ratio"`
	CPUBurstTendency   string  `json:"cpu_burst_tendency"`
	CPUBurstScore      float64 `json:"cpu_burst_score"`
}

// Fields renders the fingerprint as the flat string map consumed by report
// and dashboard tooling.
func (f WorkloadFingerprint) Fields() map[string]string {
	periodic := "False"
	if f.HasPeriodicity {
		periodic = "True"
	}
	return map[string]string{
		"workload_type":         f.WorkloadType,
		"memory_behavior":       f.MemoryBehavior,
		"burstiness":            fmt.Sprintf("%.2f", f.Burstiness),
		"cpu_burst_tendency":    f.CPUBurstTendency,
		"cpu_burst_score":       fmt.Sprintf("%.1f", f.CPUBurstScore),
		"cpu_system_user_ratio": fmt.Sprintf("%.2f", f.CPUSystemUserRatio),
		"has_periodicity":       periodic,
		"dominant_period_lag":   strconv.Itoa(f.DominantPeriodLag),
	}
}
