// Package graphid defines the tile-hierarchy predicate boundary spec §1
// calls out as an external collaborator ("the core calls a predicate") and
// supplies one concrete, testable implementation of it.
package graphid

import (
	"github.com/roadgraph/tilegraph/internal/primitives"
	"github.com/uber/h3-go/v4"
)

// Predicate computes the tile a (lat,lng) belongs to at a given hierarchy
// level. The core pipeline treats this as an opaque collaborator — it never
// inspects tile geometry itself, only tile *identity* for grouping and
// ordering (spec §1, §4.6).
type Predicate interface {
	TileID(lat, lng float32, level uint8) uint32
}

// Hierarchy is the config-loaded tile hierarchy definition (spec §6:
// "hierarchy: tile hierarchy definition (levels, sizes)").
type Hierarchy struct {
	// Levels lists one entry per hierarchy level, highway down to local
	// street, each carrying the H3 resolution used to bucket nodes into
	// tiles at that level.
	Levels []LevelDef
}

type LevelDef struct {
	Name       string
	Resolution int // H3 resolution, 0 (coarsest) .. 15 (finest)
}

// DefaultHierarchy matches the three-level scheme (highway/arterial/local)
// used throughout the retrieved tiled-graph examples, at resolutions chosen
// so tiles hold a few thousand nodes at the coarsest level and a few hundred
// at the finest.
func DefaultHierarchy() Hierarchy {
	return Hierarchy{Levels: []LevelDef{
		{Name: "highway", Resolution: 6},
		{Name: "arterial", Resolution: 8},
		{Name: "local", Resolution: 10},
	}}
}

// H3Predicate is the reference Predicate implementation: it buckets
// (lat,lng) into an H3 cell at the level's resolution and folds the 64-bit
// cell index down into the 32-bit tile id space GraphId uses.
type H3Predicate struct {
	Hierarchy Hierarchy
}

func NewH3Predicate(h Hierarchy) H3Predicate { return H3Predicate{Hierarchy: h} }

func (p H3Predicate) TileID(lat, lng float32, level uint8) uint32 {
	res := 8
	if int(level) < len(p.Hierarchy.Levels) {
		res = p.Hierarchy.Levels[level].Resolution
	}
	cell := h3.LatLngToCell(h3.NewLatLng(float64(lat), float64(lng)), res)
	c := uint64(cell)
	// Fold to 32 bits; tile identity only needs to group/order consistently,
	// not preserve full H3 precision (§1: the core only calls the predicate,
	// it never interprets tile geometry).
	folded := uint32(c) ^ uint32(c>>32)
	// Reserve the top byte for the level so distinct hierarchy levels never
	// collide on tile id.
	return (uint32(level) << 24) | (folded & 0x00FFFFFF)
}

// Of is a small convenience used throughout the pipeline to build a GraphId
// from a predicate result plus a tile-local index (assigned later by the
// node sorter, §4.3).
func Of(tile uint32, index uint32) primitives.GraphId {
	return primitives.GraphId{Tile: tile, Index: index}
}
