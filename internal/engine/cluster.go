package engine

import (

	"github.com/miradorstack/cgroup-analyzer/internal/models"
)

// DefaultClusterGap is the largest separation, in seconds, that still merges
// two events into the same incident (exclusive).
const DefaultClusterGap = 10.0

// Clusterer merges temporally close anomaly events into incidents.
type Clusterer struct {
	gap float64
}

// NewClusterer returns a clusterer using gap seconds, or DefaultClusterGap
// when gap is not positive.
func NewClusterer(gap float64) *Clusterer {
	if gap <= 0 {
		gap = DefaultClusterGap
	}
	return &Clusterer{gap: gap}
}

// Gap returns the merge threshold in seconds.
func (c *Clusterer) Gap() float64 { return c.gap }

// Cluster partitions events into time-ordered, non-overlapping clusters. An
// event joins the open cluster while it lands strictly less than gap seconds
// after the cluster's end. events must already be in time order, as the
// detector emits them; the order is not checked.
func (c *Clusterer) Cluster(events []models.AnomalyEvent) []models.AnomalyCluster {
	if len(events) == 0 {
		return []models.AnomalyCluster{}
	}
	clusters := make([]models.AnomalyCluster, 0)
	current := openCluster(events[0])
	for _, ev := range events[1:] {
		if ev.Time-current.End < c.gap {
			current.End = ev.Time
			if ev.Value > current.MaxValue {
				current.MaxValue = ev.Value
			}
			current.Events = append(current.Events, ev)
			continue
		}
		clusters = append(clusters, current)
		current = openCluster(ev)
	}
	return append(clusters, current)
}

func openCluster(ev models.AnomalyEvent) models.AnomalyCluster {
	return models.AnomalyCluster{
		Start:    ev.Time,
		End:      ev.Time,
		MaxValue: ev.Value,
		Events:   []models.AnomalyEvent{ev},
	}
}
