// Package primitives holds the fixed-size records that make up the core
// data model: Way and WayNode (external, read-only input) and Node and Edge
// (built and mutated by the pipeline).
package primitives

import (
	"encoding/binary"
	"math"

	"github.com/paulmach/osm"
)

// NoIndex marks an edge or node index field as absent (start_of/end_of
// sentinel, restriction via-node unresolved, etc).
const NoIndex = ^uint32(0)

// RoadClass mirrors the OSM road-class ladder used for importance. 0 is the
// highest class, matching the "0 = highest class" convention from §3.
type RoadClass uint8

const (
	RoadClassMotorway RoadClass = iota
	RoadClassTrunk
	RoadClassPrimary
	RoadClassSecondary
	RoadClassTertiary
	RoadClassUnclassified
	RoadClassResidential
	RoadClassServiceOther
)

// AbsurdRoadClass is the "no non-link edge seen yet" sentinel used by the
// link reclassifier when seeding its best-class search, ported from the
// original implementation's kAbsurdRoadClass rather than overloading zero
// (which is itself a valid, and the highest, road class).
const AbsurdRoadClass RoadClass = 255

// Use enumerates the directed-edge "use" classification computed in §4.6.
type Use uint8

const (
	UseRoad Use = iota
	UseRamp
	UseTurnChannel
	UseCuldesac
	UseService
	UseOther
)

// Way is the external, read-only OSM way record. It carries no graph
// topology — only the attributes needed to classify and speed-rate the
// edges synthesized from it.
type Way struct {
	ID                    osm.WayID
	RoadClass             RoadClass
	AutoForward           bool
	AutoBackward          bool
	Link                  bool
	Oneway                bool
	Speed                 float32 // kph
	Use                   Use
	WayNodeCount          uint32
	DestinationRefOffset  int32 // -1 if absent, else offset into the ref string table
	BranchRefOffset       int32
	TowardRefOffset       int32
	JunctionRefOffset     int32
	NameOffset            int32
	Tags                  osm.Tags
}

// WaySize is the fixed wire size of a Way record, excluding Tags (Tags is
// not carried through the record store, so a decoded Way has nil Tags; the
// offset fields above are encoded).
const WaySize = 8 + 1 + 1 + 4 + 1 + 4 + 4*5

// Encode writes w into buf[:WaySize].
func (w Way) Encode(buf []byte) {
	binary.LittleEndian.PutUint64(buf[0:8], uint64(w.ID))
	buf[8] = byte(w.RoadClass)
	var flags byte
	if w.AutoForward {
		flags |= 1
	}
	if w.AutoBackward {
		flags |= 2
	}
	if w.Link {
		flags |= 4
	}
	if w.Oneway {
		flags |= 8
	}
	buf[9] = flags
	binary.LittleEndian.PutUint32(buf[10:14], math.Float32bits(w.Speed))
	buf[14] = byte(w.Use)
	binary.LittleEndian.PutUint32(buf[15:19], w.WayNodeCount)
	binary.LittleEndian.PutUint32(buf[19:23], uint32(w.DestinationRefOffset))
	binary.LittleEndian.PutUint32(buf[23:27], uint32(w.BranchRefOffset))
	binary.LittleEndian.PutUint32(buf[27:31], uint32(w.TowardRefOffset))
	binary.LittleEndian.PutUint32(buf[31:35], uint32(w.JunctionRefOffset))
	binary.LittleEndian.PutUint32(buf[35:39], uint32(w.NameOffset))
}

// DecodeWay reads a Way record out of buf[:WaySize].
func DecodeWay(buf []byte) Way {
	flags := buf[9]
	return Way{
		ID:                   osm.WayID(binary.LittleEndian.Uint64(buf[0:8])),
		RoadClass:            RoadClass(buf[8]),
		AutoForward:          flags&1 != 0,
		AutoBackward:         flags&2 != 0,
		Link:                 flags&4 != 0,
		Oneway:               flags&8 != 0,
		Speed:                math.Float32frombits(binary.LittleEndian.Uint32(buf[10:14])),
		Use:                  Use(buf[14]),
		WayNodeCount:         binary.LittleEndian.Uint32(buf[15:19]),
		DestinationRefOffset: int32(binary.LittleEndian.Uint32(buf[19:23])),
		BranchRefOffset:      int32(binary.LittleEndian.Uint32(buf[23:27])),
		TowardRefOffset:      int32(binary.LittleEndian.Uint32(buf[27:31])),
		JunctionRefOffset:    int32(binary.LittleEndian.Uint32(buf[31:35])),
		NameOffset:           int32(binary.LittleEndian.Uint32(buf[35:39])),
	}
}

// WayNode is the external, read-only embedded primitive for one vertex
// along a way.
type WayNode struct {
	OriginalID     osm.NodeID
	Lat, Lng       float32
	WayIndex       uint32
	Intersection   bool
	TrafficSignal  bool
	ForwardSignal  bool
	BackwardSignal bool
	HasRef         bool
	HasName        bool
	HasExitTo      bool
}

// WayNodeSize is the fixed wire size of a WayNode record.
const WayNodeSize = 8 + 4 + 4 + 4 + 1

func (n WayNode) Encode(buf []byte) {
	binary.LittleEndian.PutUint64(buf[0:8], uint64(n.OriginalID))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(n.Lat))
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(n.Lng))
	binary.LittleEndian.PutUint32(buf[16:20], n.WayIndex)
	var flags byte
	if n.Intersection {
		flags |= 1
	}
	if n.TrafficSignal {
		flags |= 2
	}
	if n.ForwardSignal {
		flags |= 4
	}
	if n.BackwardSignal {
		flags |= 8
	}
	if n.HasRef {
		flags |= 16
	}
	if n.HasName {
		flags |= 32
	}
	if n.HasExitTo {
		flags |= 64
	}
	buf[20] = flags
}

func DecodeWayNode(buf []byte) WayNode {
	flags := buf[20]
	return WayNode{
		OriginalID:     osm.NodeID(binary.LittleEndian.Uint64(buf[0:8])),
		Lat:            math.Float32frombits(binary.LittleEndian.Uint32(buf[8:12])),
		Lng:            math.Float32frombits(binary.LittleEndian.Uint32(buf[12:16])),
		WayIndex:       binary.LittleEndian.Uint32(buf[16:20]),
		Intersection:   flags&1 != 0,
		TrafficSignal:  flags&2 != 0,
		ForwardSignal:  flags&4 != 0,
		BackwardSignal: flags&8 != 0,
		HasRef:         flags&16 != 0,
		HasName:        flags&32 != 0,
		HasExitTo:      flags&64 != 0,
	}
}

// GraphId addresses a tile and a tile-local record index. Tile-level
// ordering is primary, tile-local id secondary (§9); pre-sort tile-local ids
// are undefined and must not be compared.
type GraphId struct {
	Tile  uint32
	Index uint32
}

// NoGraphId is the all-bits-set sentinel meaning "not yet assigned a tile".
var NoGraphId = GraphId{Tile: ^uint32(0), Index: NoIndex}

func (g GraphId) Less(o GraphId) bool {
	if g.Tile != o.Tile {
		return g.Tile < o.Tile
	}
	return g.Index < o.Index
}

func (g GraphId) Equal(o GraphId) bool { return g.Tile == o.Tile && g.Index == o.Index }

const GraphIdSize = 8

func (g GraphId) Encode(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], g.Tile)
	binary.LittleEndian.PutUint32(buf[4:8], g.Index)
}

func DecodeGraphId(buf []byte) GraphId {
	return GraphId{
		Tile:  binary.LittleEndian.Uint32(buf[0:4]),
		Index: binary.LittleEndian.Uint32(buf[4:8]),
	}
}

// Node is a core graph node record. A single original OSM node may appear as
// several Node records — one per (way, way-end) it terminates — until the
// node sorter (§4.3) collapses duplicates.
type Node struct {
	OriginalID     osm.NodeID
	Lat, Lng       float32
	TrafficSignal  bool
	ForwardSignal  bool
	BackwardSignal bool
	LinkEdge       bool
	NonLinkEdge    bool
	StartOf        uint32 // edge index, or NoIndex
	EndOf          uint32 // edge index, or NoIndex
	GraphID        GraphId
	// OrigIndex is this record's position in the sequence edgebuilder wrote,
	// i.e. the value Edge.SourceNode/TargetNode reference. The node sorter
	// (§4.3) reads it to rebuild an old-position -> canonical-GraphId map
	// before reordering makes positions meaningless; nothing after that
	// repair pass depends on it.
	OrigIndex uint32
}

func (n Node) IsStart() bool { return n.StartOf != NoIndex }
func (n Node) IsEnd() bool   { return n.EndOf != NoIndex }

// NodeSize is the fixed wire size of a Node record.
const NodeSize = 8 + 4 + 4 + 4 + 4 + 4 + GraphIdSize + 4

func (n Node) Encode(buf []byte) {
	binary.LittleEndian.PutUint64(buf[0:8], uint64(n.OriginalID))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(n.Lat))
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(n.Lng))
	var flags uint32
	if n.TrafficSignal {
		flags |= 1
	}
	if n.ForwardSignal {
		flags |= 2
	}
	if n.BackwardSignal {
		flags |= 4
	}
	if n.LinkEdge {
		flags |= 8
	}
	if n.NonLinkEdge {
		flags |= 16
	}
	binary.LittleEndian.PutUint32(buf[16:20], flags)
	binary.LittleEndian.PutUint32(buf[20:24], n.StartOf)
	binary.LittleEndian.PutUint32(buf[24:28], n.EndOf)
	n.GraphID.Encode(buf[28 : 28+GraphIdSize])
	binary.LittleEndian.PutUint32(buf[28+GraphIdSize:28+GraphIdSize+4], n.OrigIndex)
}

func DecodeNode(buf []byte) Node {
	flags := binary.LittleEndian.Uint32(buf[16:20])
	return Node{
		OriginalID:     osm.NodeID(binary.LittleEndian.Uint64(buf[0:8])),
		Lat:            math.Float32frombits(binary.LittleEndian.Uint32(buf[8:12])),
		Lng:            math.Float32frombits(binary.LittleEndian.Uint32(buf[12:16])),
		TrafficSignal:  flags&1 != 0,
		ForwardSignal:  flags&2 != 0,
		BackwardSignal: flags&4 != 0,
		LinkEdge:       flags&8 != 0,
		NonLinkEdge:    flags&16 != 0,
		StartOf:        binary.LittleEndian.Uint32(buf[20:24]),
		EndOf:          binary.LittleEndian.Uint32(buf[24:28]),
		GraphID:        DecodeGraphId(buf[28 : 28+GraphIdSize]),
		OrigIndex:      binary.LittleEndian.Uint32(buf[28+GraphIdSize : 28+GraphIdSize+4]),
	}
}

// Edge is a core graph edge record, spanning between consecutive
// intersections of a single way. Attributes are packed exactly as the
// original implementation's bitfield (llcount:16, importance:3,
// driveableforward:1, driveablereverse:1, traffic_signal:1, forward_signal:1,
// backward_signal:1, link:1, spare:7) so the packed-word layout this spec's
// invariants reason about is preserved bit-for-bit.
type Edge struct {
	// SourceNode/TargetNode are the Node sequence positions edgebuilder saw
	// at construction time (§4.2). They are only meaningful before the node
	// sorter reorders Nodes; after CollapseDuplicates runs, RewireEdges (in
	// nodesort) resolves them into SourceGraphID/TargetGraphID and they
	// should not be read again.
	SourceNode uint32
	TargetNode uint32

	// SourceGraphID/TargetGraphID are the canonical tile-addressable
	// endpoints, filled in by the node sorter's rewire pass (§4.3). NoGraphId
	// until then.
	SourceGraphID GraphId
	TargetGraphID GraphId

	WayIndex uint32
	LLIndex  uint32

	LLCount          uint32    // 16 bits
	Importance       RoadClass // 3 bits
	DriveableForward bool
	DriveableReverse bool
	TrafficSignal    bool
	ForwardSignal    bool
	BackwardSignal   bool
	Link             bool
}

const EdgeSize = 4 + 4 + GraphIdSize + GraphIdSize + 4 + 4 + 4

func packEdgeAttrs(e Edge) uint32 {
	var a uint32
	a |= (e.LLCount & 0xFFFF)
	a |= (uint32(e.Importance) & 0x7) << 16
	if e.DriveableForward {
		a |= 1 << 19
	}
	if e.DriveableReverse {
		a |= 1 << 20
	}
	if e.TrafficSignal {
		a |= 1 << 21
	}
	if e.ForwardSignal {
		a |= 1 << 22
	}
	if e.BackwardSignal {
		a |= 1 << 23
	}
	if e.Link {
		a |= 1 << 24
	}
	return a
}

func unpackEdgeAttrs(a uint32) (llcount uint32, importance RoadClass, driveableForward, driveableReverse, trafficSignal, forwardSignal, backwardSignal, link bool) {
	llcount = a & 0xFFFF
	importance = RoadClass((a >> 16) & 0x7)
	driveableForward = a&(1<<19) != 0
	driveableReverse = a&(1<<20) != 0
	trafficSignal = a&(1<<21) != 0
	forwardSignal = a&(1<<22) != 0
	backwardSignal = a&(1<<23) != 0
	link = a&(1<<24) != 0
	return
}

func (e Edge) Encode(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], e.SourceNode)
	binary.LittleEndian.PutUint32(buf[4:8], e.TargetNode)
	e.SourceGraphID.Encode(buf[8 : 8+GraphIdSize])
	e.TargetGraphID.Encode(buf[8+GraphIdSize : 8+2*GraphIdSize])
	off := 8 + 2*GraphIdSize
	binary.LittleEndian.PutUint32(buf[off:off+4], e.WayIndex)
	binary.LittleEndian.PutUint32(buf[off+4:off+8], e.LLIndex)
	binary.LittleEndian.PutUint32(buf[off+8:off+12], packEdgeAttrs(e))
}

func DecodeEdge(buf []byte) Edge {
	off := 8 + 2*GraphIdSize
	llcount, importance, df, dr, ts, fs, bs, link := unpackEdgeAttrs(binary.LittleEndian.Uint32(buf[off+8 : off+12]))
	return Edge{
		SourceNode:       binary.LittleEndian.Uint32(buf[0:4]),
		TargetNode:       binary.LittleEndian.Uint32(buf[4:8]),
		SourceGraphID:    DecodeGraphId(buf[8 : 8+GraphIdSize]),
		TargetGraphID:    DecodeGraphId(buf[8+GraphIdSize : 8+2*GraphIdSize]),
		WayIndex:         binary.LittleEndian.Uint32(buf[off : off+4]),
		LLIndex:          binary.LittleEndian.Uint32(buf[off+4 : off+8]),
		LLCount:          llcount,
		Importance:       importance,
		DriveableForward: df,
		DriveableReverse: dr,
		TrafficSignal:    ts,
		ForwardSignal:    fs,
		BackwardSignal:   bs,
		Link:             link,
	}
}

// RestrictionType distinguishes NoX ("NoLeftTurn", "NoUTurn", ...) from
// OnlyX ("OnlyRightTurn", ...) simple turn restrictions.
type RestrictionType uint8

const (
	RestrictionNo RestrictionType = iota
	RestrictionOnly
)

// RawRestriction is the upstream, read-only restriction record keyed by the
// "from" way id. ViaNodeID is the original OSM node id of the via member;
// it is resolved to a GraphId once node sorting has assigned canonical tile
// identities (see nodesort.ResolveRestrictions).
type RawRestriction struct {
	FromWayID     osm.WayID
	ToWayID       osm.WayID
	ViaNodeID     osm.NodeID
	Type          RestrictionType
	TimeDependent bool
}

// ResolvedRestriction adds the via node's canonical GraphId once it is known.
type ResolvedRestriction struct {
	RawRestriction
	ViaGraphID GraphId
}

// RawRestrictionSize is the fixed wire size of a RawRestriction record.
const RawRestrictionSize = 8 + 8 + 8 + 1 + 1

func (r RawRestriction) Encode(buf []byte) {
	binary.LittleEndian.PutUint64(buf[0:8], uint64(r.FromWayID))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(r.ToWayID))
	binary.LittleEndian.PutUint64(buf[16:24], uint64(r.ViaNodeID))
	buf[24] = byte(r.Type)
	var td byte
	if r.TimeDependent {
		td = 1
	}
	buf[25] = td
}

func DecodeRawRestriction(buf []byte) RawRestriction {
	return RawRestriction{
		FromWayID:     osm.WayID(binary.LittleEndian.Uint64(buf[0:8])),
		ToWayID:       osm.WayID(binary.LittleEndian.Uint64(buf[8:16])),
		ViaNodeID:     osm.NodeID(binary.LittleEndian.Uint64(buf[16:24])),
		Type:          RestrictionType(buf[24]),
		TimeDependent: buf[25] != 0,
	}
}

// ResolvedRestrictionSize is the fixed wire size of a ResolvedRestriction record.
const ResolvedRestrictionSize = RawRestrictionSize + GraphIdSize

func (r ResolvedRestriction) Encode(buf []byte) {
	r.RawRestriction.Encode(buf[:RawRestrictionSize])
	r.ViaGraphID.Encode(buf[RawRestrictionSize : RawRestrictionSize+GraphIdSize])
}

func DecodeResolvedRestriction(buf []byte) ResolvedRestriction {
	return ResolvedRestriction{
		RawRestriction: DecodeRawRestriction(buf[:RawRestrictionSize]),
		ViaGraphID:     DecodeGraphId(buf[RawRestrictionSize : RawRestrictionSize+GraphIdSize]),
	}
}
