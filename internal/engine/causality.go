package engine

import (
	"log/slog"
	"math"

	"github.com/miradorstack/cgroup-analyzer/internal/models"
)

// CausalityEngine pairs CPU and memory incidents of one cgroup that overlap
// in time and reports which resource moved first.
type CausalityEngine struct {
	logger *slog.Logger
	gap    float64
}

// NewCausalityEngine constructs a CausalityEngine; incidents closer than gap
// seconds count as overlapping.
func NewCausalityEngine(logger *slog.Logger, gap float64) *CausalityEngine {
	if logger == nil {
		logger = slog.Default()
	}
	if gap <= 0 {
		gap = DefaultClusterGap
	}
	return &CausalityEngine{logger: logger, gap: gap}
}

// Evaluate returns one CoOccurrence per overlapping (cpu, memory) cluster
// pair, in CPU cluster order.
func (e *CausalityEngine) Evaluate(cgroup string, cpu, memory []models.AnomalyCluster) []models.CoOccurrence {
	if len(cpu) == 0 || len(memory) == 0 {
		return nil
	}

	var result []models.CoOccurrence
	for _, c := range cpu {
		for _, m := range memory {
			if !e.overlaps(c, m) {
				continue
			}
			co := models.CoOccurrence{
				Cgroup:      cgroup,
				CPUStart:    c.Start,
				CPUEnd:      c.End,
				MemStart:    m.Start,
				MemEnd:      m.End,
				LeadSeconds: math.Abs(c.Start - m.Start),
			}
			switch {
			case c.Start < m.Start:
				co.Leader = models.ResourceCPU
			case m.Start < c.Start:
				co.Leader = models.ResourceMemory
			}
			e.logger.Debug("co-occurring incidents",
				slog.String("cgroup", cgroup),
				slog.Float64("cpu_start", c.Start),
				slog.Float64("memory_start", m.Start),
				slog.String("leader", string(co.Leader)))
			result = append(result, co)
		}
	}
	return result
}

func (e *CausalityEngine) overlaps(a, b models.AnomalyCluster) bool {
	return a.Start-b.End < e.gap && b.Start-a.End < e.gap
}
