package utils

import (
	"slices"
	"sync"
	"time"
)

// LatencyTracker keeps a ring of recent analysis durations and reports
// percentiles over the window.
type LatencyTracker struct {
	mu     sync.RWMutex
	window []time.Duration
	next   int
	size   int
	total  int
}

// NewLatencyTracker creates a tracker whose window holds size durations.
func NewLatencyTracker(size int) *LatencyTracker {
	if size <= 0 {
		size = 512
	}
	return &LatencyTracker{window: make([]time.Duration, 0, size), size: size}
}

func (l *LatencyTracker) Observe(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.total++
	if len(l.window) < l.size {
		l.window = append(l.window, d)
		return
	}
	l.window[l.next] = d
	l.next = (l.next + 1) % l.size
}

// Percentile interpolates the p-th percentile (0-100) of the window; zero
// when nothing was observed.
func (l *LatencyTracker) Percentile(p float64) time.Duration {
	l.mu.RLock()
	values := make([]float64, len(l.window))
	for i, d := range l.window {
		values[i] = float64(d)
	}
	l.mu.RUnlock()

	if len(values) == 0 {
		return 0
	}
	slices.Sort(values)
	return time.Duration(quantileSorted(values, p/100))
}

// Count is the number of observations since construction, including those
// that have left the window.
func (l *LatencyTracker) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.total
}

// Window is the number of durations currently held.
func (l *LatencyTracker) Window() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.window)
}
