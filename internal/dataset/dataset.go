package dataset

import (
	"math"
	"sort"
	"strings"
)

// Metric column suffixes written by the collector for every cgroup.
const (
	CPUUsageUsec            = "cpu_usage_usec"
	CPUUserUsec             = "cpu_user_usec"
	CPUSystemUsec           = "cpu_system_usec"
	CPUNrPeriods            = "cpu_nr_periods"
	CPUNrThrottled          = "cpu_nr_throttled"
	CPUThrottledUsec        = "cpu_throttled_usec"
	CPUNrBursts             = "cpu_nr_bursts"
	CPUBurstUsec            = "cpu_burst_usec"
	CPUWeight               = "cpu_weight"
	CPUMaxQuota             = "cpu_max_quota"
	CPUMaxPeriod            = "cpu_max_period"
	CPUPressureSomeAvg10    = "cpu_pressure_some_avg10"
	CPUPressureFullAvg10    = "cpu_pressure_full_avg10"
	MemoryCurrent           = "memory_current"
	MemoryPeak              = "memory_peak"
	MemoryMax               = "memory_max"
	MemoryAnon              = "memory_anon"
	MemoryFile              = "memory_file"
	MemoryKernel            = "memory_kernel"
	MemorySwapCurrent       = "memory_swap_current"
	MemorySwapMax           = "memory_swap_max"
	MemoryOOMEvents         = "memory_oom_events"
	MemoryOOMKillEvents     = "memory_oom_kill_events"
	MemoryPressureSomeAvg10 = "memory_pressure_some_avg10"
	MemoryPressureFullAvg10 = "memory_pressure_full_avg10"
	PidsCurrent             = "pids_current"
	PidsPeak                = "pids_peak"
	PidsMax                 = "pids_max"
	CgroupProcsCount        = "cgroup_procs_count"
)

// Metrics lists every per-cgroup column the engine understands, in collector order.
var Metrics = []string{
	CPUUsageUsec, CPUUserUsec, CPUSystemUsec, CPUNrPeriods, CPUNrThrottled, CPUThrottledUsec,
	CPUNrBursts, CPUBurstUsec, CPUWeight, CPUMaxQuota, CPUMaxPeriod,
	CPUPressureSomeAvg10, CPUPressureFullAvg10,
	MemoryCurrent, MemoryPeak, MemoryMax, MemoryAnon, MemoryFile, MemoryKernel,
	MemorySwapCurrent, MemorySwapMax,
	MemoryOOMEvents, MemoryOOMKillEvents, MemoryPressureSomeAvg10, MemoryPressureFullAvg10,
	PidsCurrent, PidsPeak, PidsMax, CgroupProcsCount,
}

const bytesPerMB = 1024 * 1024

// Sample is one collector row.
type Sample struct {
	Timestamp int64
	Elapsed   float64
	Values    map[string]Value
}

// Dataset is an immutable, fully defaulted view over a collected table.
type Dataset struct {
	timestamps []int64
	elapsed    []float64
	cgroups    []string
	columns    map[string][]Value
	extended   bool
}

// New resolves column presence once: every discovered cgroup gets every
// metric in Metrics, absent columns become all-zero series.
func New(samples []Sample) *Dataset {
	n := len(samples)
	ds := &Dataset{
		timestamps: make([]int64, n),
		elapsed:    make([]float64, n),
		columns:    make(map[string][]Value),
	}

	names := make(map[string]struct{})
	for _, s := range samples {
		for name := range s.Values {
			names[name] = struct{}{}
		}
	}

	cgroupSet := make(map[string]struct{})
	for name := range names {
		if strings.Contains(name, "_"+MemoryCurrent) {
			ds.extended = true
		}
		if cg, ok := strings.CutSuffix(name, "_"+CPUUsageUsec); ok && cg != "" {
			cgroupSet[cg] = struct{}{}
		}
	}
	for cg := range cgroupSet {
		ds.cgroups = append(ds.cgroups, cg)
	}
	sort.Strings(ds.cgroups)

	for name := range names {
		ds.columns[name] = make([]Value, n)
	}
	for i, s := range samples {
		ds.timestamps[i] = s.Timestamp
		ds.elapsed[i] = s.Elapsed
		for name, col := range ds.columns {
			if v, ok := s.Values[name]; ok {
				col[i] = v
			} else {
				col[i] = Number(0)
			}
		}
	}

	for _, cg := range ds.cgroups {
		for _, metric := range Metrics {
			key := columnName(cg, metric)
			if _, ok := ds.columns[key]; ok {
				continue
			}
			zeros := make([]Value, n)
			for i := range zeros {
				zeros[i] = Number(0)
			}
			ds.columns[key] = zeros
		}
	}
	return ds
}

func columnName(cgroup, metric string) string {
	return cgroup + "_" + metric
}

// Len returns the number of samples.
func (d *Dataset) Len() int { return len(d.elapsed) }

// Cgroups returns the discovered cgroup names in sorted order.
func (d *Dataset) Cgroups() []string { return append([]string(nil), d.cgroups...) }

// ExtendedMetrics reports whether any memory_current column was collected.
func (d *Dataset) ExtendedMetrics() bool { return d.extended }

// Elapsed returns a copy of the elapsed-seconds axis.
func (d *Dataset) Elapsed() []float64 { return append([]float64(nil), d.elapsed...) }

// Timestamps returns a copy of the collector epoch timestamps.
func (d *Dataset) Timestamps() []int64 { return append([]int64(nil), d.timestamps...) }

// Values returns the raw cells for a cgroup metric. Unknown columns yield a
// zero series of dataset length.
func (d *Dataset) Values(cgroup, metric string) []Value {
	col, ok := d.columns[columnName(cgroup, metric)]
	if !ok {
		out := make([]Value, d.Len())
		for i := range out {
			out[i] = Number(0)
		}
		return out
	}
	return append([]Value(nil), col...)
}

// Column returns the numeric readings of a cgroup metric, NaN where a cell
// is Unlimited or Invalid.
func (d *Dataset) Column(cgroup, metric string) []float64 {
	col, ok := d.columns[columnName(cgroup, metric)]
	out := make([]float64, d.Len())
	if !ok {
		return out
	}
	for i, v := range col {
		out[i], _ = v.Float()
	}
	return out
}

// Last returns the final cell of a cgroup metric, Number(0) on an empty dataset.
func (d *Dataset) Last(cgroup, metric string) Value {
	col, ok := d.columns[columnName(cgroup, metric)]
	if !ok || len(col) == 0 {
		return Number(0)
	}
	return col[len(col)-1]
}

// LastFloat is Last as a float, NaN when not numeric.
func (d *Dataset) LastFloat(cgroup, metric string) float64 {
	f, _ := d.Last(cgroup, metric).Float()
	return f
}

// Rate differentiates a metric column against elapsed time, dividing each
// delta by scale first. Index 0, non-positive time steps and steps touching a
// NaN reading are NaN.
func (d *Dataset) Rate(cgroup, metric string, scale float64) []float64 {
	return Rate(d.elapsed, d.Column(cgroup, metric), scale)
}

// CPURate returns cpu_usage_usec as milliseconds of CPU per second.
func (d *Dataset) CPURate(cgroup string) []float64 {
	return d.Rate(cgroup, CPUUsageUsec, 1000)
}

// MemoryRate returns memory_current growth in MB per second.
func (d *Dataset) MemoryRate(cgroup string) []float64 {
	return d.Rate(cgroup, MemoryCurrent, bytesPerMB)
}

// MemoryMB returns memory_current in megabytes.
func (d *Dataset) MemoryMB(cgroup string) []float64 {
	col := d.Column(cgroup, MemoryCurrent)
	for i := range col {
		col[i] /= bytesPerMB
	}
	return col
}

// Duration is the elapsed span between the first and last sample.
func (d *Dataset) Duration() float64 {
	if len(d.elapsed) == 0 {
		return 0
	}
	return d.elapsed[len(d.elapsed)-1] - d.elapsed[0]
}

// SampleRate returns samples per second over the largest elapsed value, 0
// when the axis never advances.
func (d *Dataset) SampleRate() float64 {
	maxElapsed := 0.0
	for _, e := range d.elapsed {
		if e > maxElapsed {
			maxElapsed = e
		}
	}
	if maxElapsed <= 0 {
		return 0
	}
	return float64(len(d.elapsed)) / maxElapsed
}

// Rate is the discrete derivative of values against elapsed.
func Rate(elapsed, values []float64, scale float64) []float64 {
	n := len(values)
	if len(elapsed) < n {
		n = len(elapsed)
	}
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	if scale == 0 {
		scale = 1
	}
	out[0] = math.NaN()
	for i := 1; i < n; i++ {
		dt := elapsed[i] - elapsed[i-1]
		dv := values[i] - values[i-1]
		if !(dt > 0) || math.IsNaN(dv) {
			out[i] = math.NaN()
			continue
		}
		if r := dv / scale / dt; !math.IsInf(r, 0) {
			out[i] = r
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}
