package tilebuilder

import (
	"github.com/roadgraph/tilegraph/internal/nodesort"
	"github.com/roadgraph/tilegraph/internal/primitives"
)

// onewayPairExists ports the original's OnewayPairEdgesExist: true iff ne's
// incident edges (excluding edgeIdx, same-way-id edges, and links) contain
// at least one oneway edge entering this node and one oneway edge leaving
// it.
func (b *tileBuilder) onewayPairExists(ne nodesort.NodeEdges, nodeGraphID primitives.GraphId, edgeIdx uint32, wayID uint64) (bool, error) {
	var inbound, outbound bool
	for _, ei := range ne.EdgeIndices {
		if ei == edgeIdx {
			continue
		}
		e, err := b.edgeAt(ei)
		if err != nil {
			return false, err
		}
		way, err := b.wayAt(e.WayIndex)
		if err != nil {
			return false, err
		}
		if uint64(way.ID) == wayID || e.Link {
			continue
		}

		forward := e.SourceGraphID == nodeGraphID
		if (forward && !way.AutoForward && way.AutoBackward) || (!forward && way.AutoForward && !way.AutoBackward) {
			inbound = true
		}
		if (forward && way.AutoForward && !way.AutoBackward) || (!forward && !way.AutoForward && way.AutoBackward) {
			outbound = true
		}
	}
	return inbound && outbound, nil
}

// isIntersectionInternal ports the original's IsIntersectionInternal.
func (b *tileBuilder) isIntersectionInternal(startG, endG primitives.GraphId, edgeIdx uint32, wayID uint64, length uint32) (bool, error) {
	if length > kMaxInternalLength {
		return false, nil
	}

	startBundle, ok, err := b.collectAt(startG)
	if err != nil {
		return false, err
	}
	if !ok || len(startBundle.EdgeIndices) < 3 {
		return false, nil
	}
	endBundle, ok, err := b.collectAt(endG)
	if err != nil {
		return false, err
	}
	if !ok || len(endBundle.EdgeIndices) < 3 {
		return false, nil
	}

	startOK, err := b.onewayPairExists(startBundle, startG, edgeIdx, wayID)
	if err != nil {
		return false, err
	}
	if !startOK {
		return false, nil
	}
	endOK, err := b.onewayPairExists(endBundle, endG, edgeIdx, wayID)
	if err != nil {
		return false, err
	}
	return endOK, nil
}
