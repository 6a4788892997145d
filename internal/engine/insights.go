package engine

import (
	"fmt"
	"math"
	"strings"

	"github.com/miradorstack/cgroup-analyzer/internal/dataset"
	"github.com/miradorstack/cgroup-analyzer/internal/models"
	"github.com/miradorstack/cgroup-analyzer/internal/utils"
)

const (
	cpuAnomalyLimit    = 10
	memoryAnomalyLimit = 5
	burstCountLimit    = 50
	burstDurationMs    = 10
	burstSharePercent  = 30
	memoryHighPercent  = 80
	pressureLimit      = 10
)

// NoIssuesInsight is reported when no other rule fires.
const NoIssuesInsight = "No significant issues detected"

// InsightGenerator turns the per-cgroup analysis into ordered diagnostics.
type InsightGenerator struct{}

// NewInsightGenerator constructs an InsightGenerator.
func NewInsightGenerator() *InsightGenerator {
	return &InsightGenerator{}
}

// Generate returns the insights for cgroup in fixed rule order.
func (g *InsightGenerator) Generate(ds *dataset.Dataset, cgroup string, cpu, memory models.ResourceAnalysis) []string {
	insights := make([]string, 0)

	if n := len(cpu.Anomalies); n > cpuAnomalyLimit {
		insights = append(insights, fmt.Sprintf("High number of CPU anomalies detected (%d), suggesting unstable workload", n))
	}
	cpuLabel := strings.ToLower(cpu.Pattern.Label)
	if strings.Contains(cpuLabel, "bursty") {
		insights = append(insights, "CPU usage shows bursty pattern. Consider tuning CPU shares or limiting concurrent operations")
	}
	if strings.Contains(cpuLabel, "periodicity") {
		insights = append(insights, "Periodic CPU usage detected. This might indicate scheduled tasks or polling operations")
	}

	insights = append(insights, burstInsights(ds, cgroup)...)

	if ds.ExtendedMetrics() {
		if n := len(memory.Anomalies); n > memoryAnomalyLimit {
			insights = append(insights, fmt.Sprintf("High number of memory anomalies detected (%d), suggesting potential memory management issues", n))
		}
		memLabel := strings.ToLower(memory.Pattern.Label)
		if strings.Contains(memLabel, "increasing") {
			insights = append(insights, memoryLimitInsight(ds, cgroup))
		}
		if strings.Contains(memLabel, "spike") {
			insights = append(insights, "Memory usage shows spike patterns. Consider investigating potential memory leaks or garbage collection issues")
		}
	}

	if avg, ok := utils.Mean(ds.Column(cgroup, dataset.CPUPressureSomeAvg10)); ok && avg > pressureLimit {
		insights = append(insights, fmt.Sprintf("High CPU pressure detected (avg: %.1f). System may be CPU constrained", avg))
	}
	if avg, ok := utils.Mean(ds.Column(cgroup, dataset.MemoryPressureSomeAvg10)); ok && avg > pressureLimit {
		insights = append(insights, fmt.Sprintf("High memory pressure detected (avg: %.1f). System may need more memory", avg))
	}

	if len(insights) == 0 {
		insights = append(insights, NoIssuesInsight)
	}
	return insights
}

func burstInsights(ds *dataset.Dataset, cgroup string) []string {
	total := ds.LastFloat(cgroup, dataset.CPUNrBursts)
	if !(total > 0) {
		return nil
	}
	burstUsec := ds.LastFloat(cgroup, dataset.CPUBurstUsec)
	usageUsec := ds.LastFloat(cgroup, dataset.CPUUsageUsec)

	var out []string
	if total > burstCountLimit {
		out = append(out, fmt.Sprintf("High number of CPU bursts detected (%d). This indicates periods of intense CPU activity", int64(total)))
	}
	if avgMs := burstUsec / math.Max(total, 1) / 1000; avgMs > burstDurationMs {
		out = append(out, fmt.Sprintf("Long average burst duration (%.1fms) may indicate inefficient CPU usage patterns", avgMs))
	}
	if usageUsec > 0 {
		if pct := burstUsec / usageUsec * 100; pct > burstSharePercent {
			out = append(out, fmt.Sprintf("Significant portion of CPU time (%.1f%%) spent in burst mode. Consider optimizing for more consistent CPU usage", pct))
		}
	}
	return out
}

func memoryLimitInsight(ds *dataset.Dataset, cgroup string) string {
	limit, ok := ds.Last(cgroup, dataset.MemoryMax).Bytes()
	if !ok {
		return "Memory usage is increasing. No memory limit set"
	}
	current := ds.LastFloat(cgroup, dataset.MemoryCurrent)
	if math.IsNaN(current) {
		current = 0
	}
	pct := current / float64(limit) * 100
	if pct > memoryHighPercent {
		return fmt.Sprintf("Memory usage is high (%.1f%% of limit) and increasing. Risk of OOM termination", pct)
	}
	return fmt.Sprintf("Memory usage is increasing. Currently at %.1f%% of limit", pct)
}
