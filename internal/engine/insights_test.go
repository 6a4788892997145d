package engine

import (
	"strings"
	"testing"

	"github.com/miradorstack/cgroup-analyzer/internal/models"
)

func TestInsightsNoIssues(t *testing.T) {
	ds := buildDataset(20, 1, map[string]column{"web_cpu_usage_usec": linear(0, 1000)})
	got := NewInsightGenerator().Generate(ds, "web", models.ResourceAnalysis{}, models.ResourceAnalysis{})
	if len(got) != 1 || got[0] != NoIssuesInsight {
		t.Fatalf("expected only the no-issue insight, got %v", got)
	}
}

func TestInsightsCPUOrder(t *testing.T) {
	ds := buildDataset(20, 1, map[string]column{
		"web_cpu_usage_usec": linear(0, 100000),
		"web_cpu_nr_bursts":  constant(60),
		"web_cpu_burst_usec": constant(12000),
	})
	cpu := models.ResourceAnalysis{
		Anomalies: make([]models.AnomalyEvent, 11),
		Pattern:   models.UsagePattern{Category: models.PatternBursty, Label: "bursty with periodicity (~4 samples)"},
	}
	got := NewInsightGenerator().Generate(ds, "web", cpu, models.ResourceAnalysis{})

	want := []string{
		"High number of CPU anomalies detected (11), suggesting unstable workload",
		"CPU usage shows bursty pattern",
		"Periodic CPU usage detected",
		"High number of CPU bursts detected (60)",
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d insights, got %v", len(want), got)
	}
	for i, prefix := range want {
		if !strings.HasPrefix(got[i], prefix) {
			t.Fatalf("insight %d: expected prefix %q, got %q", i, prefix, got[i])
		}
	}
}

func TestInsightsBurstShare(t *testing.T) {
	ds := buildDataset(20, 1, map[string]column{
		"web_cpu_usage_usec": constant(100000),
		"web_cpu_nr_bursts":  constant(2),
		"web_cpu_burst_usec": constant(50000),
	})
	got := NewInsightGenerator().Generate(ds, "web", models.ResourceAnalysis{}, models.ResourceAnalysis{})
	if len(got) != 2 {
		t.Fatalf("expected duration and share insights, got %v", got)
	}
	if got[0] != "Long average burst duration (25.0ms) may indicate inefficient CPU usage patterns" {
		t.Fatalf("unexpected duration insight %q", got[0])
	}
	if !strings.Contains(got[1], "(50.0%)") {
		t.Fatalf("unexpected share insight %q", got[1])
	}
}

func TestInsightsMemoryLimit(t *testing.T) {
	increasing := models.ResourceAnalysis{Pattern: models.UsagePattern{Category: models.PatternGradualIncrease, Label: models.PatternGradualIncrease}}

	limited := buildDataset(20, 1, map[string]column{
		"web_cpu_usage_usec": linear(0, 1000),
		"web_memory_current": constant(900),
		"web_memory_max":     constant(1000),
	})
	got := NewInsightGenerator().Generate(limited, "web", models.ResourceAnalysis{}, increasing)
	if len(got) != 1 || got[0] != "Memory usage is high (90.0% of limit) and increasing. Risk of OOM termination" {
		t.Fatalf("unexpected insights %v", got)
	}

	unlimited := buildDataset(20, 1, map[string]column{
		"web_cpu_usage_usec": linear(0, 1000),
		"web_memory_current": constant(900),
	})
	got = NewInsightGenerator().Generate(unlimited, "web", models.ResourceAnalysis{}, increasing)
	if len(got) != 1 || got[0] != "Memory usage is increasing. No memory limit set" {
		t.Fatalf("zero limit must read as unlimited, got %v", got)
	}
}

func TestInsightsPressure(t *testing.T) {
	ds := buildDataset(20, 1, map[string]column{
		"web_cpu_usage_usec":             linear(0, 1000),
		"web_cpu_pressure_some_avg10":    constant(15),
		"web_memory_pressure_some_avg10": constant(5),
	})
	got := NewInsightGenerator().Generate(ds, "web", models.ResourceAnalysis{}, models.ResourceAnalysis{})
	if len(got) != 1 || got[0] != "High CPU pressure detected (avg: 15.0). System may be CPU constrained" {
		t.Fatalf("unexpected insights %v", got)
	}
}
