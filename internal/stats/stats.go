// Package stats implements the user-visible statistics accumulator spec §7
// calls out: counts of not-thru edges, internal edges, turn channels,
// cul-de-sacs, simple restrictions, time-restricted restrictions, and a
// histogram of directed-edge counts per node. Each tile worker accumulates
// into its own Accumulator and the driver merges them after all workers
// join, mirroring the original implementation's per-thread DataQuality.
package stats

// Accumulator is a single worker's (or, after Merge, the pipeline-wide)
// tally.
type Accumulator struct {
	NotThruCount       int64
	InternalCount      int64
	TurnChannelCount   int64
	CuldesacCount      int64
	SimpleRestrictions int64
	TimedRestrictions  int64
	UnconnectedLinks   int64
	// NodeDegreeHistogram[n] counts nodes with exactly n directed edges.
	NodeDegreeHistogram map[int]int64
}

func New() *Accumulator {
	return &Accumulator{NodeDegreeHistogram: make(map[int]int64)}
}

func (a *Accumulator) RecordNodeDegree(directedEdgeCount int) {
	a.NodeDegreeHistogram[directedEdgeCount]++
}

// Merge folds other into a, used to combine per-worker accumulators after
// all tile-builder workers join.
func (a *Accumulator) Merge(other *Accumulator) {
	if other == nil {
		return
	}
	a.NotThruCount += other.NotThruCount
	a.InternalCount += other.InternalCount
	a.TurnChannelCount += other.TurnChannelCount
	a.CuldesacCount += other.CuldesacCount
	a.SimpleRestrictions += other.SimpleRestrictions
	a.TimedRestrictions += other.TimedRestrictions
	a.UnconnectedLinks += other.UnconnectedLinks
	for degree, count := range other.NodeDegreeHistogram {
		a.NodeDegreeHistogram[degree] += count
	}
}
