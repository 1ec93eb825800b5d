package tilebuilder

import "github.com/roadgraph/tilegraph/internal/primitives"

// notThru implements §4.6's bounded not-thru test, ported from the
// original's IsNoThroughEdge: expand from the far endpoint, excluding the
// start edge, until the frontier is exhausted (not-thru) or the walk
// reaches back to the near endpoint or touches an edge of tertiary-or-better
// importance (thru).
func (b *tileBuilder) notThru(near, far primitives.GraphId, startEdgeIdx uint32) (bool, error) {
	visited := map[primitives.GraphId]bool{far: true}
	frontier := []primitives.GraphId{far}

	for i := 0; i < maxNoThruIterations; i++ {
		if len(frontier) == 0 {
			return true, nil
		}
		cur := frontier[0]
		frontier = frontier[1:]

		ne, ok, err := b.collectAt(cur)
		if err != nil {
			return false, err
		}
		if !ok {
			continue
		}
		for _, ei := range ne.EdgeIndices {
			if ei == startEdgeIdx {
				continue
			}
			e, err := b.edgeAt(ei)
			if err != nil {
				return false, err
			}
			next := e.SourceGraphID
			if e.SourceGraphID == cur {
				next = e.TargetGraphID
			}
			if next == near || e.Importance <= primitives.RoadClassTertiary {
				return false, nil
			}
			if !visited[next] {
				visited[next] = true
				frontier = append(frontier, next)
			}
		}
	}
	return false, nil
}
