package engine

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/miradorstack/cgroup-analyzer/internal/models"
)

func TestRuleEngineRecommend(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	if err := os.WriteFile(path, []byte(`rules:
  - id: batch
    match:
      cgroup: "worker"
      workload_type: "batch"
    recommendations: ["Schedule batch jobs off-peak"]
  - id: noisy
    match:
      min_anomalies: 3
    recommendations: ["Review alert thresholds"]
`), 0644); err != nil {
		t.Fatalf("write rules: %v", err)
	}

	engine, err := NewRuleEngine(path, slog.New(slog.NewTextHandler(os.Stdout, nil)))
	if err != nil {
		t.Fatalf("new rule engine: %v", err)
	}

	report := models.CgroupReport{
		Name:        "worker-1",
		Fingerprint: models.WorkloadFingerprint{WorkloadType: "Batch processing"},
		CPU:         models.ResourceAnalysis{Anomalies: make([]models.AnomalyEvent, 1)},
	}
	recs := engine.Recommend(report)
	if len(recs) != 1 || recs[0] != "Schedule batch jobs off-peak" {
		t.Fatalf("unexpected recommendations: %v", recs)
	}

	report.Memory.Anomalies = make([]models.AnomalyEvent, 2)
	if recs := engine.Recommend(report); len(recs) != 2 {
		t.Fatalf("expected anomaly rule to match, got %v", recs)
	}
}

func TestRuleEngineNoFile(t *testing.T) {
	engine, err := NewRuleEngine("non-existent", nil)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if engine != nil {
		t.Fatalf("expected nil engine when file missing")
	}
	if recs := engine.Recommend(models.CgroupReport{Name: "web"}); recs != nil {
		t.Fatalf("nil engine must recommend nothing, got %v", recs)
	}
}

func TestRuleEngineBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte("rules: [unterminated"), 0644); err != nil {
		t.Fatalf("write rules: %v", err)
	}
	if _, err := NewRuleEngine(path, nil); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestRecommenderDefaults(t *testing.T) {
	ds := buildDataset(40, 0.05, map[string]column{
		"web_cpu_usage_usec": linear(0, 1000),
	})
	recs := NewRecommender(nil).Recommend(ds, nil, nil)
	if len(recs) != 2 || recs[0] != defaultHealthyAdvice || recs[1] != defaultMonitorAdvice {
		t.Fatalf("expected default recommendations, got %v", recs)
	}
}

func TestRecommenderDatasetChecks(t *testing.T) {
	pressure := func(i int) float64 {
		if i == 5 {
			return 25
		}
		return 0
	}
	ds := buildDataset(20, 1, map[string]column{
		"web_cpu_usage_usec":             linear(0, 1000),
		"web_cpu_nr_throttled":           linear(0, 10),
		"web_memory_current":             constant(1 << 20),
		"web_memory_oom_events":          constant(1),
		"web_memory_pressure_some_avg10": pressure,
	})
	recs := NewRecommender(nil).Recommend(ds, nil, []models.CoOccurrence{{
		Cgroup: "web", CPUStart: 4, MemStart: 6, LeadSeconds: 2, Leader: models.ResourceCPU,
	}})

	for _, want := range []string{
		"Consider increasing CPU quota for web (high throttling)",
		"Increase memory limit for web (OOM events detected)",
		"Monitor memory allocation in web (pressure detected)",
		"Consider increasing monitoring frequency for better resolution",
	} {
		if !contains(recs, want) {
			t.Fatalf("missing %q in %v", want, recs)
		}
	}
	if contains(recs, defaultHealthyAdvice) {
		t.Fatalf("defaults must not be mixed with findings: %v", recs)
	}
	if len(recs) != 5 {
		t.Fatalf("expected co-occurrence note as fifth entry, got %v", recs)
	}
}

func TestRecommenderSkipsMemoryChecksWithoutExtendedMetrics(t *testing.T) {
	ds := buildDataset(40, 0.05, map[string]column{
		"web_cpu_usage_usec":    linear(0, 1000),
		"web_memory_oom_events": constant(3),
	})
	recs := NewRecommender(nil).Recommend(ds, nil, nil)
	if contains(recs, "Increase memory limit for web (OOM events detected)") {
		t.Fatalf("OOM check requires extended metrics: %v", recs)
	}
}
