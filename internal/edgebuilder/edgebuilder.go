// Package edgebuilder implements the single-pass Edge/Node synthesis of
// spec §4.2: walking a way's way-nodes in order, closing an edge at every
// intersection (or way end), and emitting a Node record at every edge
// joint. Interior way-nodes become shape points only.
package edgebuilder

import (
	"fmt"

	"github.com/roadgraph/tilegraph/internal/graphid"
	"github.com/roadgraph/tilegraph/internal/primitives"
	"github.com/roadgraph/tilegraph/internal/recordstore"
)

// Constructor synthesizes the core Node/Edge sequences from the external
// Way/WayNode input sequences.
type Constructor struct {
	Predicate graphid.Predicate
	Nodes     *recordstore.Sequence[primitives.Node]
	Edges     *recordstore.Sequence[primitives.Edge]
}

func New(pred graphid.Predicate, nodes *recordstore.Sequence[primitives.Node], edges *recordstore.Sequence[primitives.Edge]) *Constructor {
	return &Constructor{Predicate: pred, Nodes: nodes, Edges: edges}
}

// levelForRoadClass buckets a road class into one of the hierarchy's tile
// levels. Highway-grade roads sit in the coarsest level, everything worse
// than tertiary in the finest — the node-level replication a full
// multi-level hierarchy would need for transition edges is out of scope
// (spec §1 treats tile hierarchy geometry as an external collaborator); a
// node is placed once, at the level of the best-classed way terminating it.
func levelForRoadClass(rc primitives.RoadClass) uint8 {
	switch {
	case rc <= primitives.RoadClassTrunk:
		return 0
	case rc <= primitives.RoadClassTertiary:
		return 1
	default:
		return 2
	}
}

// Build walks every way's way-nodes and appends the resulting Node/Edge
// records. ways and wayNodes must be laid out contiguously: way i's
// way-nodes occupy WayNodeCount consecutive records starting where way i-1's
// left off.
func (c *Constructor) Build(ways *recordstore.Sequence[primitives.Way], wayNodes *recordstore.Sequence[primitives.WayNode]) error {
	wayNodePos := int64(0)
	numWays := ways.Size()
	for wi := int64(0); wi < numWays; wi++ {
		way, err := ways.At(wi)
		if err != nil {
			return err
		}
		n := int64(way.WayNodeCount)
		if n < 2 {
			wayNodePos += n
			continue
		}
		if err := c.buildWay(wi, way, wayNodePos, n, wayNodes); err != nil {
			return fmt.Errorf("edgebuilder: way %d: %w", way.ID, err)
		}
		wayNodePos += n
	}
	return nil
}

func (c *Constructor) buildWay(wi int64, way primitives.Way, start, n int64, wayNodes *recordstore.Sequence[primitives.WayNode]) error {
	level := levelForRoadClass(way.RoadClass)

	firstWN, err := wayNodes.At(start)
	if err != nil {
		return err
	}
	startNodeIdx, err := c.pushNode(firstWN, way, level)
	if err != nil {
		return err
	}

	edge := newEdge(wi, start, startNodeIdx, way)

	for pos := start + 1; pos < start+n; pos++ {
		wn, err := wayNodes.At(pos)
		if err != nil {
			return err
		}
		edge.LLCount++
		if wn.TrafficSignal {
			edge.TrafficSignal = true
			if wn.ForwardSignal {
				edge.ForwardSignal = true
			}
			if wn.BackwardSignal {
				edge.BackwardSignal = true
			}
		}

		isLast := pos == start+n-1
		if !wn.Intersection && !isLast {
			continue
		}

		endNodeIdx, err := c.pushNode(wn, way, level)
		if err != nil {
			return err
		}
		edge.TargetNode = uint32(endNodeIdx)
		edgeIdx, err := c.Edges.PushBack(edge)
		if err != nil {
			return err
		}
		edgeIdx--

		if err := c.setStartOf(startNodeIdx, uint32(edgeIdx)); err != nil {
			return err
		}
		if err := c.setEndOf(endNodeIdx, uint32(edgeIdx)); err != nil {
			return err
		}

		if !isLast {
			startNodeIdx = endNodeIdx
			edge = newEdge(wi, pos, startNodeIdx, way)
		}
	}
	return nil
}

func newEdge(wayIndex, llIndex, sourceNode int64, way primitives.Way) primitives.Edge {
	return primitives.Edge{
		SourceNode:       uint32(sourceNode),
		SourceGraphID:    primitives.NoGraphId,
		TargetGraphID:    primitives.NoGraphId,
		WayIndex:         uint32(wayIndex),
		LLIndex:          uint32(llIndex),
		LLCount:          1,
		Importance:       way.RoadClass,
		DriveableForward: way.AutoForward,
		DriveableReverse: way.AutoBackward,
		Link:             way.Link,
	}
}

func (c *Constructor) pushNode(wn primitives.WayNode, way primitives.Way, level uint8) (int64, error) {
	tile := c.Predicate.TileID(wn.Lat, wn.Lng, level)
	idx := c.Nodes.Size()
	node := primitives.Node{
		OriginalID:     wn.OriginalID,
		Lat:            wn.Lat,
		Lng:            wn.Lng,
		TrafficSignal:  wn.TrafficSignal,
		ForwardSignal:  wn.ForwardSignal,
		BackwardSignal: wn.BackwardSignal,
		LinkEdge:       way.Link,
		NonLinkEdge:    !way.Link,
		StartOf:        primitives.NoIndex,
		EndOf:          primitives.NoIndex,
		GraphID:        graphid.Of(tile, primitives.NoIndex),
		OrigIndex:      uint32(idx),
	}
	n, err := c.Nodes.PushBack(node)
	if err != nil {
		return 0, err
	}
	return n - 1, nil
}

func (c *Constructor) setStartOf(nodeIdx int64, edgeIdx uint32) error {
	node, err := c.Nodes.At(nodeIdx)
	if err != nil {
		return err
	}
	node.StartOf = edgeIdx
	return c.Nodes.Set(nodeIdx, node)
}

func (c *Constructor) setEndOf(nodeIdx int64, edgeIdx uint32) error {
	node, err := c.Nodes.At(nodeIdx)
	if err != nil {
		return err
	}
	node.EndOf = edgeIdx
	return c.Nodes.Set(nodeIdx, node)
}
