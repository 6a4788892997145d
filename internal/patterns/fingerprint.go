package patterns

import (
	"log/slog"
	"math"
	"strings"

	"github.com/miradorstack/cgroup-analyzer/internal/dataset"
	"github.com/miradorstack/cgroup-analyzer/internal/models"
	"github.com/miradorstack/cgroup-analyzer/internal/utils"
)

// FingerprintInput is everything the fingerprinter reads for one cgroup.
type FingerprintInput struct {
	CPURate        []float64
	CPUCategory    string
	MemoryCategory string
	MemoryMB       []float64
	Extended       bool

	UserUsec    float64
	SystemUsec  float64
	UsageUsec   float64
	BurstUsec   float64
	MaxNrBursts float64
}

// InputFromDataset gathers the fingerprint inputs of cgroup.
func InputFromDataset(ds *dataset.Dataset, cgroup string, cpu, memory models.UsagePattern) FingerprintInput {
	maxBursts, _ := utils.Max(ds.Column(cgroup, dataset.CPUNrBursts))
	return FingerprintInput{
		CPURate:        ds.CPURate(cgroup),
		CPUCategory:    cpu.Category,
		MemoryCategory: memory.Category,
		MemoryMB:       ds.MemoryMB(cgroup),
		Extended:       ds.ExtendedMetrics(),
		UserUsec:       finiteOrZero(ds.LastFloat(cgroup, dataset.CPUUserUsec)),
		SystemUsec:     finiteOrZero(ds.LastFloat(cgroup, dataset.CPUSystemUsec)),
		UsageUsec:      finiteOrZero(ds.LastFloat(cgroup, dataset.CPUUsageUsec)),
		BurstUsec:      finiteOrZero(ds.LastFloat(cgroup, dataset.CPUBurstUsec)),
		MaxNrBursts:    maxBursts,
	}
}

// Fingerprinter synthesizes a WorkloadFingerprint. It holds no per-call state.
type Fingerprinter struct {
	logger      *slog.Logger
	periodicity PeriodicityDetector
}

// NewFingerprinter constructs a Fingerprinter. A nil detector disables periodicity.
func NewFingerprinter(logger *slog.Logger, periodicity PeriodicityDetector) *Fingerprinter {
	if logger == nil {
		logger = slog.Default()
	}
	if periodicity == nil {
		periodicity = NoPeriodicity{}
	}
	return &Fingerprinter{logger: logger, periodicity: periodicity}
}

// Fingerprint derives the composite descriptor from in.
func (f *Fingerprinter) Fingerprint(in FingerprintInput) models.WorkloadFingerprint {
	rate := utils.NaNToZero(in.CPURate)
	fp := models.WorkloadFingerprint{
		Burstiness:         burstiness(rate),
		CPUSystemUserRatio: in.SystemUsec / math.Max(in.UserUsec, 1),
		CPUBurstTendency:   models.PatternNotApplicable,
		MemoryBehavior:     models.PatternNotApplicable,
	}

	if lag, ok := safePeriod(f.logger, f.periodicity, rate); ok {
		fp.HasPeriodicity = true
		fp.DominantPeriodLag = lag
	}
	fp.WorkloadType = workloadType(fp, in.CPUCategory)

	if in.MaxNrBursts > 0 {
		pct := in.BurstUsec / math.Max(in.UsageUsec, 1) * 100
		fp.CPUBurstScore = pct
		switch {
		case pct > 30:
			fp.CPUBurstTendency = models.BurstHigh
			if !strings.Contains(strings.ToLower(fp.WorkloadType), "burst") {
				fp.WorkloadType += " (burst-heavy)"
			}
		case pct > 10:
			fp.CPUBurstTendency = models.BurstModerate
		default:
			fp.CPUBurstTendency = models.BurstLow
		}
	}

	if in.Extended {
		fp.MemoryBehavior = memoryBehavior(in.MemoryCategory, in.MemoryMB)
	}
	return fp
}

func burstiness(rate []float64) float64 {
	qs, ok := utils.Quantiles(rate, 0.95, 0.5)
	if !ok {
		return 0
	}
	b := qs[0] / math.Max(qs[1], 0.001)
	if b < 0 || math.IsNaN(b) {
		return 0
	}
	return b
}

func workloadType(fp models.WorkloadFingerprint, cpuCategory string) string {
	switch {
	case fp.HasPeriodicity && fp.DominantPeriodLag > 0:
		if fp.Burstiness > 5 {
			return "Periodic with bursts"
		}
		return "Periodic"
	case cpuCategory == models.PatternStable:
		if fp.CPUSystemUserRatio > 0.8 {
			return "Continuous system-intensive"
		}
		return "Continuous user-intensive"
	case cpuCategory == models.PatternBursty:
		return "Batch processing"
	default:
		if fp.CPUSystemUserRatio > 0.8 {
			return "Variable I/O-bound"
		}
		return "Variable CPU-bound"
	}
}

func memoryBehavior(category string, memoryMB []float64) string {
	if category == models.PatternRapidIncrease {
		return models.MemoryLeaking
	}
	mean, std, ok := utils.MeanStd(memoryMB)
	if ok && std/math.Max(mean, 0.001) < 0.1 {
		return models.MemoryStatic
	}

	pos, neg := 0, 0
	for i := 1; i < len(memoryMB); i++ {
		switch d := memoryMB[i] - memoryMB[i-1]; {
		case d > 0:
			pos++
		case d < 0:
			neg++
		}
	}
	if pos == 0 || neg == 0 {
		return models.PatternNotApplicable
	}
	if math.Abs(float64(pos-neg))/float64(max(pos, neg)) < 0.3 {
		return models.MemoryDynamic
	}
	return models.MemoryExpanding
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
