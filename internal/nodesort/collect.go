package nodesort

import (
	"github.com/paulmach/osm"
	"github.com/roadgraph/tilegraph/internal/primitives"
	"github.com/roadgraph/tilegraph/internal/recordstore"
)

// NodeEdges is one canonical node's view of its incident edges, the only
// sanctioned way (§4.4) to read the sorted, duplicate-laden Node sequence as
// a graph: a single original OSM node may own several Node records (one per
// terminating way-end), each remembering only the one or two edges it
// personally starts/ends. CollectNodeEdges folds every record in a
// (tile, index) run back together.
type NodeEdges struct {
	GraphID        primitives.GraphId
	OriginalID     osm.NodeID
	Lat            float32
	Lng            float32
	TrafficSignal  bool
	LinkEdge       bool
	NonLinkEdge    bool
	RunStart       int64 // first physical Node-sequence position in this run
	RunCount       int64 // number of duplicate records folded together
	// EdgeIndices lists every edge (by index into the Edges sequence) that
	// starts or ends at this canonical node, in the order its duplicate
	// records were encountered.
	EdgeIndices []uint32
}

// collectRun reads the run of duplicate Node records starting at position
// start (which must be the first position of its run) and folds them into a
// single NodeEdges. It returns the position just past the run.
func collectRun(nodes *recordstore.Sequence[primitives.Node], start int64) (NodeEdges, int64, error) {
	n := nodes.Size()
	first, err := nodes.At(start)
	if err != nil {
		return NodeEdges{}, start, err
	}
	ne := NodeEdges{
		GraphID:       first.GraphID,
		OriginalID:    first.OriginalID,
		Lat:           first.Lat,
		Lng:           first.Lng,
		TrafficSignal: first.TrafficSignal,
		LinkEdge:      first.LinkEdge,
		NonLinkEdge:   first.NonLinkEdge,
		RunStart:      start,
	}

	i := start
	for i < n {
		node, err := nodes.At(i)
		if err != nil {
			return NodeEdges{}, i, err
		}
		if node.GraphID != ne.GraphID {
			break
		}
		if node.StartOf != primitives.NoIndex {
			ne.EdgeIndices = append(ne.EdgeIndices, node.StartOf)
		}
		if node.EndOf != primitives.NoIndex {
			ne.EdgeIndices = append(ne.EdgeIndices, node.EndOf)
		}
		i++
	}
	ne.RunCount = i - start
	return ne, i, nil
}

// CollectNodeEdges must run after Sort+CollapseDuplicates have assigned
// GraphID.Index and repaired the LinkEdge/NonLinkEdge flags. It streams
// forward once, calling visit with each canonical node's combined edge list
// as soon as its run of duplicate records ends.
func CollectNodeEdges(nodes *recordstore.Sequence[primitives.Node], visit func(NodeEdges) error) error {
	n := nodes.Size()
	pos := int64(0)
	for pos < n {
		ne, next, err := collectRun(nodes, pos)
		if err != nil {
			return err
		}
		if err := visit(ne); err != nil {
			return err
		}
		pos = next
	}
	return nil
}

// CollectAt folds the duplicate run beginning at the given physical Node
// position (as found via IndexByGraphID) into a NodeEdges, for callers that
// need random-access jumps to a specific node rather than a forward stream
// (the link reclassifier's BFS, §4.5).
func CollectAt(nodes *recordstore.Sequence[primitives.Node], start int64) (NodeEdges, error) {
	ne, _, err := collectRun(nodes, start)
	return ne, err
}

// IndexByGraphID builds the (tile-index-map-like) lookup from a node's
// canonical GraphId to the first physical position of its duplicate run,
// letting BFS-style consumers jump to an arbitrary node reached only via an
// edge's far endpoint.
func IndexByGraphID(nodes *recordstore.Sequence[primitives.Node]) (map[primitives.GraphId]int64, error) {
	n := nodes.Size()
	idx := make(map[primitives.GraphId]int64, n)
	var lastGraphID primitives.GraphId
	have := false
	for i := int64(0); i < n; i++ {
		node, err := nodes.At(i)
		if err != nil {
			return nil, err
		}
		if !have || node.GraphID != lastGraphID {
			idx[node.GraphID] = i
			lastGraphID = node.GraphID
			have = true
		}
	}
	return idx, nil
}
