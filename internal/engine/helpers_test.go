package engine

import (
	"github.com/miradorstack/cgroup-analyzer/internal/dataset"
)

// column produces the raw counter value of one column at sample i.
type column func(i int) float64

func constant(v float64) column { return func(int) float64 { return v } }

func linear(start, step float64) column {
	return func(i int) float64 { return start + step*float64(i) }
}

// buildDataset samples every column n times, dt seconds apart.
func buildDataset(n int, dt float64, columns map[string]column) *dataset.Dataset {
	samples := make([]dataset.Sample, n)
	for i := range samples {
		values := make(map[string]dataset.Value, len(columns))
		for name, fn := range columns {
			values[name] = dataset.Number(fn(i))
		}
		samples[i] = dataset.Sample{
			Timestamp: 1700000000 + int64(i),
			Elapsed:   float64(i) * dt,
			Values:    values,
		}
	}
	return dataset.New(samples)
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
