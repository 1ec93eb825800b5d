package tilebuilder

import (
	"github.com/roadgraph/tilegraph/internal/primitives"
	"github.com/roadgraph/tilegraph/internal/stats"
)

// buildRestrictionMask ports the original's CreateSimpleTurnRestriction: a
// bitmask over targetWayIDs (the target node's incident edges, in bundle
// order) identifying which of them this directed edge may not (NoX) or must
// (OnlyX) turn onto. Time-dependent restrictions are counted but skipped,
// matching §7's "time-restricted turn restrictions (counted but not
// emitted)".
func buildRestrictionMask(restrictions []primitives.ResolvedRestriction, targetGraphID primitives.GraphId, targetWayIDs []uint64, acc *stats.Accumulator) uint32 {
	var mask uint32
	for _, r := range restrictions {
		if r.ViaGraphID != targetGraphID {
			continue
		}
		if r.TimeDependent {
			acc.TimedRestrictions++
			continue
		}
		switch r.Type {
		case primitives.RestrictionNo:
			for idx, wayID := range targetWayIDs {
				if wayID == uint64(r.ToWayID) {
					mask |= 1 << uint(idx)
					break
				}
			}
		case primitives.RestrictionOnly:
			for idx, wayID := range targetWayIDs {
				if wayID != uint64(r.ToWayID) {
					mask |= 1 << uint(idx)
				}
			}
		}
	}
	return mask
}
