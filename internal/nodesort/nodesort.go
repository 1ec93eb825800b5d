// Package nodesort implements spec §4.3: sorting the Node sequence edgebuilder
// produced into (tile, original id) order, collapsing the duplicate Node
// records a single original OSM node accumulates (one per terminating way) into
// one canonical record per tile, and rewiring Edge endpoint references to the
// canonical duplicate.
package nodesort

import (
	"fmt"

	"github.com/paulmach/osm"
	"github.com/roadgraph/tilegraph/internal/primitives"
	"github.com/roadgraph/tilegraph/internal/recordstore"
)

// Sort reorders nodes into ascending (graph_id.tile, original_id) order, the
// precondition CollapseDuplicates relies on.
func Sort(nodes *recordstore.Sequence[primitives.Node]) error {
	return nodes.Sort(func(a, b primitives.Node) bool {
		if a.GraphID.Tile != b.GraphID.Tile {
			return a.GraphID.Tile < b.GraphID.Tile
		}
		return a.OriginalID < b.OriginalID
	})
}

// OrigIndexMap is the old-position -> canonical-GraphId lookup CollapseDuplicates
// builds and RewireEdges consumes. Position i holds the canonical GraphId for
// the Node edgebuilder originally wrote at sequence position i (Node.OrigIndex).
type OrigIndexMap = recordstore.Sequence[primitives.GraphId]

// OpenMapping creates the mapping sequence, pre-sized to numNodes entries (one
// per pre-sort Node position), all initialized to NoGraphId.
func OpenMapping(path string, numNodes int64) (*OrigIndexMap, error) {
	m, err := recordstore.Open[primitives.GraphId](path, primitives.GraphIdCodec{})
	if err != nil {
		return nil, err
	}
	for i := int64(0); i < numNodes; i++ {
		if _, err := m.PushBack(primitives.NoGraphId); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// CollapseDuplicates walks the sorted Node sequence once, assigning each
// distinct (tile, original id) run a tile-local index starting at 0 and
// restarting at every new tile, OR-reducing LinkEdge/NonLinkEdge across the
// run into its first (canonical) record, and recording every pre-sort
// position's canonical GraphId into mapping.
func CollapseDuplicates(nodes *recordstore.Sequence[primitives.Node], mapping *OrigIndexMap) error {
	n := nodes.Size()
	if n == 0 {
		return nil
	}

	var curTile uint32
	var curOriginal osm.NodeID
	var tileIndex uint32
	haveRun := false
	runStart := int64(0)

	for i := int64(0); i < n; i++ {
		node, err := nodes.At(i)
		if err != nil {
			return err
		}

		switch {
		case !haveRun || node.GraphID.Tile != curTile:
			tileIndex = 0
			curTile = node.GraphID.Tile
			curOriginal = node.OriginalID
			runStart = i
			haveRun = true
		case node.OriginalID != curOriginal:
			tileIndex++
			curOriginal = node.OriginalID
			runStart = i
		}

		node.GraphID.Index = tileIndex
		if err := nodes.Set(i, node); err != nil {
			return err
		}

		if i != runStart {
			canon, err := nodes.At(runStart)
			if err != nil {
				return err
			}
			changed := false
			if node.LinkEdge && !canon.LinkEdge {
				canon.LinkEdge = true
				changed = true
			}
			if node.NonLinkEdge && !canon.NonLinkEdge {
				canon.NonLinkEdge = true
				changed = true
			}
			if changed {
				if err := nodes.Set(runStart, canon); err != nil {
					return err
				}
			}
		}

		canonicalID := primitives.GraphId{Tile: curTile, Index: tileIndex}
		if node.OrigIndex >= uint32(mapping.Size()) {
			return fmt.Errorf("nodesort: node orig_index %d out of range for mapping of size %d", node.OrigIndex, mapping.Size())
		}
		if err := mapping.Set(int64(node.OrigIndex), canonicalID); err != nil {
			return err
		}
	}
	return nil
}

// RewireEdges resolves every Edge's SourceNode/TargetNode pre-sort position
// into its canonical GraphId via mapping, writing the result into
// SourceGraphID/TargetGraphID (§4.3: "rewires edge endpoint references to
// canonical duplicates").
func RewireEdges(edges *recordstore.Sequence[primitives.Edge], mapping *OrigIndexMap) error {
	return edges.Transform(func(_ int64, e *primitives.Edge) {
		src, err := mapping.At(int64(e.SourceNode))
		if err == nil {
			e.SourceGraphID = src
		}
		dst, err := mapping.At(int64(e.TargetNode))
		if err == nil {
			e.TargetGraphID = dst
		}
	})
}

// ResolveRestrictions turns raw upstream restrictions (keyed by the via
// member's original OSM node id) into ResolvedRestriction records carrying
// the via node's canonical GraphId, once node sorting has assigned one. A
// restriction whose via node never appears in the Node sequence (e.g. it was
// filtered upstream) is dropped rather than emitted with NoGraphId, since
// §4.6 matches restrictions purely by via_graphid equality.
func ResolveRestrictions(raw *recordstore.Sequence[primitives.RawRestriction], nodes *recordstore.Sequence[primitives.Node], resolved *recordstore.Sequence[primitives.ResolvedRestriction]) error {
	byOriginal := make(map[osm.NodeID]primitives.GraphId, nodes.Size())
	n := nodes.Size()
	for i := int64(0); i < n; i++ {
		node, err := nodes.At(i)
		if err != nil {
			return err
		}
		byOriginal[node.OriginalID] = node.GraphID
	}

	m := raw.Size()
	for i := int64(0); i < m; i++ {
		r, err := raw.At(i)
		if err != nil {
			return err
		}
		gid, ok := byOriginal[r.ViaNodeID]
		if !ok {
			continue
		}
		if _, err := resolved.PushBack(primitives.ResolvedRestriction{RawRestriction: r, ViaGraphID: gid}); err != nil {
			return err
		}
	}
	return nil
}
