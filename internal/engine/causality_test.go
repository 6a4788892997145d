package engine

import (
	"testing"

	"github.com/miradorstack/cgroup-analyzer/internal/models"
)

func TestCausalityEngineEvaluate(t *testing.T) {
	engine := NewCausalityEngine(nil, 0)
	cpu := []models.AnomalyCluster{{Start: 10, End: 20}, {Start: 100, End: 105}}
	memory := []models.AnomalyCluster{{Start: 25, End: 30}, {Start: 300, End: 300}}

	res := engine.Evaluate("web", cpu, memory)
	if len(res) != 1 {
		t.Fatalf("expected one co-occurrence, got %+v", res)
	}
	if res[0].Leader != models.ResourceCPU || res[0].LeadSeconds != 15 || res[0].Cgroup != "web" {
		t.Fatalf("unexpected co-occurrence: %+v", res[0])
	}
}

func TestCausalityEngineMemoryLeads(t *testing.T) {
	engine := NewCausalityEngine(nil, 0)
	res := engine.Evaluate("db", []models.AnomalyCluster{{Start: 50, End: 50}}, []models.AnomalyCluster{{Start: 45, End: 52}})
	if len(res) != 1 || res[0].Leader != models.ResourceMemory {
		t.Fatalf("expected memory to lead, got %+v", res)
	}
}

func TestCausalityEngineNoEvidence(t *testing.T) {
	engine := NewCausalityEngine(nil, 0)
	if res := engine.Evaluate("web", nil, nil); len(res) != 0 {
		t.Fatalf("expected nothing without clusters, got %+v", res)
	}
	far := engine.Evaluate("web", []models.AnomalyCluster{{Start: 0, End: 0}}, []models.AnomalyCluster{{Start: 10, End: 10}})
	if len(far) != 0 {
		t.Fatalf("clusters exactly one gap apart must not pair, got %+v", far)
	}
}
