package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/miradorstack/cgroup-analyzer/internal/dataset"
	"github.com/miradorstack/cgroup-analyzer/internal/models"
	"github.com/miradorstack/cgroup-analyzer/internal/utils"
)

const (
	throttlingLimit      = 50
	memoryPressureLimit  = 20
	minSampleRateHz      = 10
	maxSampleRateHz      = 1000
	defaultHealthyAdvice = "System appears to be performing well within limits"
	defaultMonitorAdvice = "Continue monitoring for trend analysis"
)

// RuleEngine applies operator supplied recommendation rules to cgroup reports.
type RuleEngine struct {
	rules  []Rule
	logger *slog.Logger
}

// Rule represents a single recommendation rule.
type Rule struct {
	ID              string    `yaml:"id"`
	Match           RuleMatch `yaml:"match"`
	Recommendations []string  `yaml:"recommendations"`
}

// RuleMatch defines optional attributes for rule matching. Empty fields match
// everything; string fields are case-insensitive substrings.
type RuleMatch struct {
	Cgroup        string `yaml:"cgroup"`
	WorkloadType  string `yaml:"workload_type"`
	CPUPattern    string `yaml:"cpu_pattern"`
	MemoryPattern string `yaml:"memory_pattern"`
	MinAnomalies  int    `yaml:"min_anomalies"`
}

// RuleConfigFile is the YAML root structure.
type RuleConfigFile struct {
	Rules []Rule `yaml:"rules"`
}

// NewRuleEngine loads rules from the provided path. If path is empty or the
// file does not exist, returns nil engine.
func NewRuleEngine(path string, logger *slog.Logger) (*RuleEngine, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var cfg RuleConfigFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse rules %s: %w", path, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("recommendation rules loaded", slog.String("path", path), slog.Int("rules", len(cfg.Rules)))
	return &RuleEngine{rules: cfg.Rules, logger: logger}, nil
}

// Recommend returns the recommendations of every rule matching report.
func (e *RuleEngine) Recommend(report models.CgroupReport) []string {
	if e == nil {
		return nil
	}

	matched := make([]string, 0)
	for _, rule := range e.rules {
		m := rule.Match
		if !containsFold(report.Name, m.Cgroup) ||
			!containsFold(report.Fingerprint.WorkloadType, m.WorkloadType) ||
			!containsFold(report.CPU.Pattern.Label, m.CPUPattern) ||
			!containsFold(report.Memory.Pattern.Label, m.MemoryPattern) {
			continue
		}
		if m.MinAnomalies > 0 && len(report.CPU.Anomalies)+len(report.Memory.Anomalies) < m.MinAnomalies {
			continue
		}
		e.logger.Debug("rule matched", slog.String("rule", rule.ID), slog.String("cgroup", report.Name))
		matched = appendUnique(matched, rule.Recommendations...)
	}
	return matched
}

// Recommender produces the dataset-level recommendation list.
type Recommender struct {
	rules *RuleEngine
}

// NewRecommender constructs a Recommender; rules may be nil.
func NewRecommender(rules *RuleEngine) *Recommender {
	return &Recommender{rules: rules}
}

// Recommend evaluates the built-in checks per cgroup, then co-occurring
// incidents, sampling rate and rule matches. The two default entries are
// returned when nothing applies.
func (r *Recommender) Recommend(ds *dataset.Dataset, reports []models.CgroupReport, coOccurrences []models.CoOccurrence) []string {
	recs := make([]string, 0)

	for _, cg := range ds.Cgroups() {
		if ds.LastFloat(cg, dataset.CPUNrThrottled) > throttlingLimit {
			recs = appendUnique(recs, fmt.Sprintf("Consider increasing CPU quota for %s (high throttling)", cg))
		}
		if !ds.ExtendedMetrics() {
			continue
		}
		if ds.LastFloat(cg, dataset.MemoryOOMEvents) > 0 {
			recs = appendUnique(recs, fmt.Sprintf("Increase memory limit for %s (OOM events detected)", cg))
		}
		if peak, ok := utils.Max(ds.Column(cg, dataset.MemoryPressureSomeAvg10)); ok && peak > memoryPressureLimit {
			recs = appendUnique(recs, fmt.Sprintf("Monitor memory allocation in %s (pressure detected)", cg))
		}
	}

	for _, co := range coOccurrences {
		recs = appendUnique(recs, coOccurrenceAdvice(co))
	}

	if rate := ds.SampleRate(); rate > 0 {
		switch {
		case rate < minSampleRateHz:
			recs = appendUnique(recs, "Consider increasing monitoring frequency for better resolution")
		case rate > maxSampleRateHz:
			recs = appendUnique(recs, "Consider reducing monitoring frequency to reduce overhead")
		}
	}

	for _, report := range reports {
		recs = appendUnique(recs, r.rules.Recommend(report)...)
	}

	if len(recs) == 0 {
		recs = append(recs, defaultHealthyAdvice, defaultMonitorAdvice)
	}
	return recs
}

func coOccurrenceAdvice(co models.CoOccurrence) string {
	switch co.Leader {
	case models.ResourceCPU:
		return fmt.Sprintf("CPU incident in %s at %.1fs precedes memory incident by %.1fs; check whether CPU load drives allocation", co.Cgroup, co.CPUStart, co.LeadSeconds)
	case models.ResourceMemory:
		return fmt.Sprintf("Memory incident in %s at %.1fs precedes CPU incident by %.1fs; check reclaim or garbage collection overhead", co.Cgroup, co.MemStart, co.LeadSeconds)
	default:
		return fmt.Sprintf("CPU and memory incidents in %s start together at %.1fs; investigate a shared trigger", co.Cgroup, co.CPUStart)
	}
}

func containsFold(value, want string) bool {
	if want == "" {
		return true
	}
	return strings.Contains(strings.ToLower(value), strings.ToLower(want))
}

func appendUnique(existing []string, additions ...string) []string {
	seen := make(map[string]struct{}, len(existing))
	for _, rec := range existing {
		seen[rec] = struct{}{}
	}
	for _, item := range additions {
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		existing = append(existing, item)
		seen[item] = struct{}{}
	}
	return existing
}
