// Package tilebuilder implements spec §4.6: partitioning sorted tiles
// across N workers and, for each tile, synthesizing directed edges and node
// summaries from the canonical Node/Edge sequences. Grounded throughout on
// the original implementation's BuildTileSet/IsNoThroughEdge/
// IsIntersectionInternal/GetLinkUse/UpdateLinkSpeed
// (original_source/src/mjolnir/graphbuilder.cc).
package tilebuilder

import (
	"github.com/roadgraph/tilegraph/internal/geomlen"
	"github.com/roadgraph/tilegraph/internal/primitives"
)

// kMaxInternalLength and kMaxTurnChannelLength bound, respectively, the
// internal-intersection-edge test and the ramp/turn-channel link-use split
// (§4.6); both are safety-valve constants the original implementation also
// makes configurable (§9).
const (
	kMaxInternalLength    = 20  // meters
	kMaxTurnChannelLength = 125 // meters
)

// maxNoThruIterations bounds the not-thru BFS (§4.6), mirroring the
// original's kMaxNoThruTries.
const maxNoThruIterations = 256

// rampSpeedByRoadClass is the fixed table §4.6 specifies for a reclassified
// link edge promoted to kRamp.
var rampSpeedByRoadClass = map[primitives.RoadClass]float32{
	primitives.RoadClassMotorway: 95,
	primitives.RoadClassTrunk:    80,
	primitives.RoadClassPrimary:  65,
	primitives.RoadClassSecondary: 50,
	primitives.RoadClassTertiary: 40,
	primitives.RoadClassUnclassified: 35,
}

const defaultOtherRampSpeed = 25

// ExitSigns is the per-directed-edge collection of exit-sign strings
// (§4.6 Exit signs).
type ExitSigns struct {
	Number   string
	Branches []string
	Towards  []string
	Names    []string
}

func (s ExitSigns) Empty() bool {
	return s.Number == "" && len(s.Branches) == 0 && len(s.Towards) == 0 && len(s.Names) == 0
}

// DirectedEdge is one endpoint's view of a core Edge, the unit the tile
// builder hands to the external tile-file writer.
type DirectedEdge struct {
	EdgeIndex        uint32
	SourceGraphID    primitives.GraphId
	TargetGraphID    primitives.GraphId
	Forward          bool
	WayID            uint64
	Shape            []geomlen.LatLng
	// EncodedShape is Shape polyline-encoded for the edge-info record (§6
	// output: "edge-info (geometry + names)"), the same encoding the
	// navigation engine uses for rendered paths.
	EncodedShape []byte
	Length       uint32
	Speed            float32
	Use              primitives.Use
	RoadClass        primitives.RoadClass
	DriveableForward bool
	DriveableReverse bool
	NotThru          bool
	Internal         bool
	HasSignal        bool
	RestrictionMask  uint32
	ExitSigns        ExitSigns
	Name             string
	Ref              string
}

// NodeSummary is the per-node record the tile builder emits alongside its
// directed edges (§4.6: "lat/lng, offset of its first outbound directed
// edge in the tile, count of directed edges, driveable count, best road
// class seen, access mask, type, a flag for only one edge, traffic-signal
// flag").
type NodeSummary struct {
	GraphID           primitives.GraphId
	Lat, Lng          float32
	FirstEdgeOffset   uint32
	EdgeCount         uint32
	DriveableCount    uint32
	BestRoadClass     primitives.RoadClass
	// AccessMask is a 1-bit "driveable somewhere" mask; the core model
	// tracks only car-class driveability (§3), so multi-mode access masks
	// (bike/foot/etc.) have no home here.
	AccessMask  uint8
	OnlyOneEdge bool
	TrafficSignal bool
}

// Tile is everything the tile builder produced for one GraphId tile,
// handed off to the external TileWriter collaborator (§1: tile
// serialization is out of the core's scope).
type Tile struct {
	TileID uint32
	Nodes  []NodeSummary
	Edges  []DirectedEdge
}

// TileWriter is the external tile-serialization collaborator (§1, §4.6:
// "written through the external tile builder collaborator"). The core only
// assembles Tile values; it never owns tile byte layout.
type TileWriter interface {
	WriteTile(Tile) error
}
