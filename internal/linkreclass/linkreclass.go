// Package linkreclass implements spec §4.5: propagating the second-best
// non-link road class across contiguous runs of link edges (motorway ramps,
// turn channels) via a bounded breadth-first search, so a ramp between a
// motorway and a residential street is classed no better than the worse of
// the two, while branching ramps are never downgraded to their weakest
// branch.
package linkreclass

import (
	"fmt"
	"sort"

	"github.com/roadgraph/tilegraph/internal/nodesort"
	"github.com/roadgraph/tilegraph/internal/primitives"
	"github.com/roadgraph/tilegraph/internal/recordstore"
)

// maxBFSIterations bounds the per-start-edge expansion (§4.5).
const maxBFSIterations = 512

// IssueKind classifies why a link edge's BFS could not produce an update.
type IssueKind uint8

const (
	IssueUnconnectedLink IssueKind = iota
	IssueExpansionCapReached
	IssueThroughNonLink
)

// Issue records one link edge the reclassifier could not confidently update.
type Issue struct {
	EdgeIndex uint32
	Kind      IssueKind
}

// Reclassifier mutates Edge.Importance for link edges in place; it never
// rewrites Node or touches non-link edges.
type Reclassifier struct {
	nodes        *recordstore.Sequence[primitives.Node]
	edges        *recordstore.Sequence[primitives.Edge]
	posByGraphID map[primitives.GraphId]int64
}

func New(nodes *recordstore.Sequence[primitives.Node], edges *recordstore.Sequence[primitives.Edge]) (*Reclassifier, error) {
	idx, err := nodesort.IndexByGraphID(nodes)
	if err != nil {
		return nil, fmt.Errorf("linkreclass: %w", err)
	}
	return &Reclassifier{nodes: nodes, edges: edges, posByGraphID: idx}, nil
}

// Run walks every canonical node in sorted order and reclassifies the link
// edges starting at any node flagged with both link and non-link edges.
func (r *Reclassifier) Run() ([]Issue, error) {
	var issues []Issue
	err := nodesort.CollectNodeEdges(r.nodes, func(ne nodesort.NodeEdges) error {
		if !(ne.LinkEdge && ne.NonLinkEdge) {
			return nil
		}
		found, err := r.reclassifyAt(ne)
		if err != nil {
			return err
		}
		issues = append(issues, found...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return issues, nil
}

func (r *Reclassifier) edgeAt(idx uint32) (primitives.Edge, error) {
	return r.edges.At(int64(idx))
}

// bestNonLinkImportance returns the smallest (best) Importance among ne's
// non-link incident edges, and whether any exist at all.
func (r *Reclassifier) bestNonLinkImportance(ne nodesort.NodeEdges) (primitives.RoadClass, bool, error) {
	best := primitives.AbsurdRoadClass
	found := false
	for _, ei := range ne.EdgeIndices {
		e, err := r.edgeAt(ei)
		if err != nil {
			return 0, false, err
		}
		if e.Link {
			continue
		}
		found = true
		if e.Importance < best {
			best = e.Importance
		}
	}
	return best, found, nil
}

func (r *Reclassifier) farEndpoint(e primitives.Edge, from primitives.GraphId) primitives.GraphId {
	if e.SourceGraphID == from {
		return e.TargetGraphID
	}
	return e.SourceGraphID
}

func (r *Reclassifier) reclassifyAt(ne nodesort.NodeEdges) ([]Issue, error) {
	seedBest, ok, err := r.bestNonLinkImportance(ne)
	if err != nil {
		return nil, err
	}
	if !ok {
		// flagged non_link_edge but no non-link edge found in this bundle;
		// nothing to seed from, skip.
		return nil, nil
	}

	var issues []Issue
	for _, startIdx := range ne.EdgeIndices {
		startEdge, err := r.edgeAt(startIdx)
		if err != nil {
			return nil, err
		}
		if !startEdge.Link || startEdge.SourceGraphID != ne.GraphID {
			continue // only link edges starting at this node seed a BFS
		}

		issue, err := r.bfsFromStartEdge(ne.GraphID, startIdx, startEdge, seedBest)
		if err != nil {
			return nil, err
		}
		if issue != nil {
			issues = append(issues, *issue)
		}
	}
	return issues, nil
}

type frontierEntry struct {
	graphID primitives.GraphId
	fromIdx uint32
}

func (r *Reclassifier) bfsFromStartEdge(origin primitives.GraphId, startIdx uint32, startEdge primitives.Edge, seedBest primitives.RoadClass) (*Issue, error) {
	endrc := []primitives.RoadClass{seedBest}
	traversed := []uint32{startIdx}
	visited := map[primitives.GraphId]bool{origin: true}

	var frontier []frontierEntry
	farStart := r.farEndpoint(startEdge, origin)
	stop, err := r.expandOrSeal(farStart, &endrc)
	if err != nil {
		return nil, err
	}
	if !stop {
		frontier = append(frontier, frontierEntry{graphID: farStart})
	}

	iterations := 0
	for len(frontier) > 0 {
		if iterations >= maxBFSIterations {
			return &Issue{EdgeIndex: startIdx, Kind: IssueExpansionCapReached}, nil
		}
		iterations++

		cur := frontier[0]
		frontier = frontier[1:]
		if visited[cur.graphID] {
			continue
		}
		visited[cur.graphID] = true

		pos, ok := r.posByGraphID[cur.graphID]
		if !ok {
			continue
		}
		ne, err := nodesort.CollectAt(r.nodes, pos)
		if err != nil {
			return nil, err
		}

		for _, ei := range ne.EdgeIndices {
			if ei == startIdx {
				continue
			}
			e, err := r.edgeAt(ei)
			if err != nil {
				return nil, err
			}
			if !e.Link {
				continue
			}
			traversed = append(traversed, ei)
			far := r.farEndpoint(e, cur.graphID)
			if visited[far] {
				continue
			}
			stop, err := r.expandOrSeal(far, &endrc)
			if err != nil {
				return nil, err
			}
			if !stop {
				frontier = append(frontier, frontierEntry{graphID: far, fromIdx: ei})
			}
		}
	}

	if len(endrc) < 2 {
		return &Issue{EdgeIndex: startIdx, Kind: IssueUnconnectedLink}, nil
	}

	sorted := append([]primitives.RoadClass(nil), endrc...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	secondBest := sorted[1]

	for _, ei := range traversed {
		e, err := r.edgeAt(ei)
		if err != nil {
			return nil, err
		}
		if secondBest > e.Importance {
			e.Importance = secondBest
			if err := r.edges.Set(int64(ei), e); err != nil {
				return nil, err
			}
		}
	}
	return nil, nil
}

// expandOrSeal decides, for a far endpoint reached during BFS, whether to
// continue expanding through it (it has no incident non-link edge) or to
// seal that direction off by recording its best non-link importance into
// endrc.
func (r *Reclassifier) expandOrSeal(graphID primitives.GraphId, endrc *[]primitives.RoadClass) (stop bool, err error) {
	pos, ok := r.posByGraphID[graphID]
	if !ok {
		return true, nil
	}
	ne, err := nodesort.CollectAt(r.nodes, pos)
	if err != nil {
		return false, err
	}
	best, found, err := r.bestNonLinkImportance(ne)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}
	*endrc = append(*endrc, best)
	return true, nil
}
