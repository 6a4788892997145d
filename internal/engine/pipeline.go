package engine

import (
	"context"
	"log/slog"
	"math"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/miradorstack/cgroup-analyzer/internal/dataset"
	"github.com/miradorstack/cgroup-analyzer/internal/extractors"
	"github.com/miradorstack/cgroup-analyzer/internal/metrics"
	"github.com/miradorstack/cgroup-analyzer/internal/models"
	"github.com/miradorstack/cgroup-analyzer/internal/patterns"
	"github.com/miradorstack/cgroup-analyzer/internal/utils"
)

// Pipeline runs the interpretation steps for every cgroup of a dataset.
type Pipeline struct {
	logger          *slog.Logger
	detector        *extractors.AnomalyDetector
	clusterer       *Clusterer
	classifier      *patterns.Classifier
	fingerprinter   *patterns.Fingerprinter
	insights        *InsightGenerator
	causalityEngine *CausalityEngine
	recommender     *Recommender
	workers         int
}

// PipelineOptions selects the collaborators of a Pipeline. Zero values fall
// back to the defaults; Periodicity enables autocorrelation based period
// detection.
type PipelineOptions struct {
	Workers     int
	Periodicity bool
	ClusterGap  float64
	Rules       *RuleEngine
}

// NewPipeline constructs a new analysis pipeline.
func NewPipeline(logger *slog.Logger, opts PipelineOptions) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	var cpuPeriods, fingerprintPeriods patterns.PeriodicityDetector
	if opts.Periodicity {
		cpuPeriods = patterns.NewThresholdACF()
		fingerprintPeriods = patterns.NewPeakACF()
	}

	clusterer := NewClusterer(opts.ClusterGap)
	return &Pipeline{
		logger:          logger,
		detector:        extractors.NewAnomalyDetector(),
		clusterer:       clusterer,
		classifier:      patterns.NewClassifier(logger, cpuPeriods),
		fingerprinter:   patterns.NewFingerprinter(logger, fingerprintPeriods),
		insights:        NewInsightGenerator(),
		causalityEngine: NewCausalityEngine(logger, clusterer.Gap()),
		recommender:     NewRecommender(opts.Rules),
		workers:         workers,
	}
}

// Analyze interprets ds. Reports come back in sorted cgroup order whatever
// the worker count; the only error is context cancellation.
func (p *Pipeline) Analyze(ctx context.Context, ds *dataset.Dataset) (models.AnalysisResult, error) {
	cgroups := ds.Cgroups()
	reports := make([]models.CgroupReport, len(cgroups))
	coOccurrences := make([][]models.CoOccurrence, len(cgroups))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, cg := range cgroups {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			reports[i] = p.analyzeCgroup(ds, cg)
			coOccurrences[i] = p.causalityEngine.Evaluate(cg, reports[i].CPU.Clusters, reports[i].Memory.Clusters)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return models.AnalysisResult{}, err
	}

	var links []models.CoOccurrence
	for _, cos := range coOccurrences {
		links = append(links, cos...)
	}

	timestamps := ds.Timestamps()
	result := models.AnalysisResult{
		Samples:         ds.Len(),
		DurationSeconds: ds.Duration(),
		SampleRateHz:    ds.SampleRate(),
		ExtendedMetrics: ds.ExtendedMetrics(),
		Cgroups:         reports,
		CoOccurrences:   links,
		Recommendations: p.recommender.Recommend(ds, reports, links),
		GeneratedAt:     time.Now().UTC(),
	}
	if len(timestamps) > 0 {
		result.FirstTimestamp = utils.EpochTime(timestamps[0])
		result.LastTimestamp = utils.EpochTime(timestamps[len(timestamps)-1])
	}

	p.logger.Debug("analysis complete",
		slog.Int("cgroups", len(reports)),
		slog.Int("samples", result.Samples),
		slog.Int("co_occurrences", len(links)))
	return result, nil
}

func (p *Pipeline) analyzeCgroup(ds *dataset.Dataset, cgroup string) models.CgroupReport {
	elapsed := ds.Elapsed()
	cpuRate := ds.CPURate(cgroup)

	cpu := p.analyzeResource(models.ResourceCPU, elapsed, cpuRate)
	cpu.Pattern = p.classifier.CPU(cpuRate)

	memory := models.ResourceAnalysis{
		Anomalies: []models.AnomalyEvent{},
		Clusters:  []models.AnomalyCluster{},
		Pattern:   models.NotApplicable(),
	}
	if ds.ExtendedMetrics() {
		memory = p.analyzeResource(models.ResourceMemory, elapsed, ds.MemoryRate(cgroup))
		memoryMB := ds.MemoryMB(cgroup)
		memory.Pattern = p.classifier.Memory(elapsed, memoryMB, true)
		memory.Statistics = extractors.Describe(memoryMB)
	}

	fingerprint := p.fingerprinter.Fingerprint(patterns.InputFromDataset(ds, cgroup, cpu.Pattern, memory.Pattern))

	return models.CgroupReport{
		Name:        cgroup,
		CPU:         cpu,
		Memory:      memory,
		Fingerprint: fingerprint,
		Insights:    p.insights.Generate(ds, cgroup, cpu, memory),
		Summary:     summarize(ds, cgroup, cpuRate),
	}
}

func (p *Pipeline) analyzeResource(resource models.Resource, elapsed, series []float64) models.ResourceAnalysis {
	detection := p.detector.Detect(elapsed, series)
	clusters := p.clusterer.Cluster(detection.Events)

	high, extreme := 0, 0
	for _, ev := range detection.Events {
		if ev.Severity == models.SeverityExtreme {
			extreme++
		} else {
			high++
		}
	}
	metrics.ObserveAnomalies(string(resource), string(models.SeverityHigh), high)
	metrics.ObserveAnomalies(string(resource), string(models.SeverityExtreme), extreme)
	metrics.ObserveClusters(string(resource), len(clusters))

	return models.ResourceAnalysis{
		Bounds:     detection.Bounds,
		Anomalies:  detection.Events,
		Clusters:   clusters,
		Statistics: extractors.Describe(series),
	}
}

func summarize(ds *dataset.Dataset, cgroup string, cpuRate []float64) models.Summary {
	mean, std, _ := utils.MeanStd(cpuRate)
	maxRate, _ := utils.Max(cpuRate)
	summary := models.Summary{
		CPUTotalSeconds:     finite(ds.LastFloat(cgroup, dataset.CPUUsageUsec)) / 1e6,
		CPUAvgRate:          mean,
		CPUMaxRate:          maxRate,
		CPUStdRate:          std,
		CPUThrottlingEvents: finite(ds.LastFloat(cgroup, dataset.CPUNrThrottled)),
	}
	if !ds.ExtendedMetrics() {
		return summary
	}

	memoryMB := ds.MemoryMB(cgroup)
	memMean, memStd, _ := utils.MeanStd(memoryMB)
	memMax, _ := utils.Max(memoryMB)
	current := 0.0
	if n := len(memoryMB); n > 0 {
		current = finite(memoryMB[n-1])
	}
	peak := finite(ds.LastFloat(cgroup, dataset.MemoryPeak)) / (1 << 20)
	oom := finite(ds.LastFloat(cgroup, dataset.MemoryOOMEvents))

	summary.MemoryCurrentMB = &current
	summary.MemoryPeakMB = &peak
	summary.MemoryAvgMB = &memMean
	summary.MemoryMaxMB = &memMax
	summary.MemoryStdMB = &memStd
	summary.OOMEvents = &oom
	return summary
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
