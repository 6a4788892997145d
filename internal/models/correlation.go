package models

// CoOccurrence links a CPU incident and a memory incident of the same cgroup
// that overlap in time.
type CoOccurrence struct {
	Cgroup      string  `json:"cgroup"`
	CPUStart    float64 `json:"cpu_start"`
	CPUEnd      float64 `json:"cpu_end"`
	MemStart    float64 `json:"memory_start"`
	MemEnd      float64 `json:"memory_end"`
	LeadSeconds float64 `json:"lead_seconds"`
	// Leader is the resource whose incident started first, empty on a tie.
	Leader Resource `json:"leader,omitempty"`
}
