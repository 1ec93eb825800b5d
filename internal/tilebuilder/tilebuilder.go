package tilebuilder

import (
	"fmt"
	"sync"

	"github.com/paulmach/osm"
	"github.com/twpayne/go-polyline"

	"github.com/roadgraph/tilegraph/internal/auxstore"
	"github.com/roadgraph/tilegraph/internal/geomlen"
	"github.com/roadgraph/tilegraph/internal/nodesort"
	"github.com/roadgraph/tilegraph/internal/primitives"
	"github.com/roadgraph/tilegraph/internal/recordstore"
	"github.com/roadgraph/tilegraph/internal/stats"
)

// Input bundles the read-only, worker-shared views of the pipeline's data
// (§4.6: "workers share only read-only views of the node/edge/way
// sequences").
type Input struct {
	Nodes        *recordstore.Sequence[primitives.Node]
	Edges        *recordstore.Sequence[primitives.Edge]
	Ways         *recordstore.Sequence[primitives.Way]
	WayNodes     *recordstore.Sequence[primitives.WayNode]
	Restrictions *recordstore.Sequence[primitives.ResolvedRestriction]
	Names        *auxstore.OffsetTable
	Refs         *auxstore.OffsetTable
	Strings      *auxstore.Strings
}

// tileRange is one entry of the tile index map: the node-sequence position
// range [Start, End) belonging to TileID.
type tileRange struct {
	TileID     uint32
	Start, End int64
}

// WorkerFailure is one worker's captured exception (§5, §7: "I/O and
// serialization failures inside a worker — captured as an exception,
// attached to that worker's result").
type WorkerFailure struct {
	WorkerIndex int
	TileID      uint32
	Err         error
}

func (f WorkerFailure) Error() string {
	return fmt.Sprintf("tilebuilder: worker %d failed on tile %d: %v", f.WorkerIndex, f.TileID, f.Err)
}

// tileBuilder is the read-only, concurrency-safe shared state every worker
// goroutine consults. None of its fields are mutated after New.
type tileBuilder struct {
	in           Input
	posByGraphID map[primitives.GraphId]int64
	byFromWay    map[osm.WayID][]primitives.ResolvedRestriction
	refs         *auxstore.OffsetTable
	names        *auxstore.OffsetTable
	strings      *auxstore.Strings
}

func newTileBuilder(in Input) (*tileBuilder, error) {
	posByGraphID, err := nodesort.IndexByGraphID(in.Nodes)
	if err != nil {
		return nil, fmt.Errorf("tilebuilder: index nodes: %w", err)
	}

	byFromWay := make(map[osm.WayID][]primitives.ResolvedRestriction)
	if in.Restrictions != nil {
		n := in.Restrictions.Size()
		for i := int64(0); i < n; i++ {
			r, err := in.Restrictions.At(i)
			if err != nil {
				return nil, fmt.Errorf("tilebuilder: read restriction %d: %w", i, err)
			}
			byFromWay[r.FromWayID] = append(byFromWay[r.FromWayID], r)
		}
	}

	return &tileBuilder{
		in:           in,
		posByGraphID: posByGraphID,
		byFromWay:    byFromWay,
		refs:         in.Refs,
		names:        in.Names,
		strings:      in.Strings,
	}, nil
}

func (b *tileBuilder) edgeAt(idx uint32) (primitives.Edge, error) { return b.in.Edges.At(int64(idx)) }
func (b *tileBuilder) wayAt(idx uint32) (primitives.Way, error)   { return b.in.Ways.At(int64(idx)) }

func (b *tileBuilder) collectAt(graphID primitives.GraphId) (nodesort.NodeEdges, bool, error) {
	pos, ok := b.posByGraphID[graphID]
	if !ok {
		return nodesort.NodeEdges{}, false, nil
	}
	ne, err := nodesort.CollectAt(b.in.Nodes, pos)
	if err != nil {
		return nodesort.NodeEdges{}, false, err
	}
	return ne, true, nil
}

// buildTileRanges scans the sorted Node sequence once, producing the tile
// index map as a list of [Start, End) ranges (§4.3's "tile index map",
// built here rather than in the sorter since it is only consumed by the
// tile builder).
func buildTileRanges(nodes *recordstore.Sequence[primitives.Node]) ([]tileRange, error) {
	n := nodes.Size()
	var ranges []tileRange
	for i := int64(0); i < n; {
		node, err := nodes.At(i)
		if err != nil {
			return nil, err
		}
		start := i
		tile := node.GraphID.Tile
		for i < n {
			node, err := nodes.At(i)
			if err != nil {
				return nil, err
			}
			if node.GraphID.Tile != tile {
				break
			}
			i++
		}
		ranges = append(ranges, tileRange{TileID: tile, Start: start, End: i})
	}
	return ranges, nil
}

// partition splits T tiles across N workers as evenly as possible,
// ⌈T/N⌉ tiles in the first T%N workers and ⌊T/N⌋ in the rest (§4.6).
func partition(ranges []tileRange, n int) [][]tileRange {
	if n < 1 {
		n = 1
	}
	t := len(ranges)
	out := make([][]tileRange, n)
	base := t / n
	extra := t % n
	pos := 0
	for w := 0; w < n; w++ {
		size := base
		if w < extra {
			size++
		}
		out[w] = ranges[pos : pos+size]
		pos += size
	}
	return out
}

// Build runs the tile builder driver: partitions tiles across workers,
// synthesizes each tile's nodes/directed-edges, and hands finished Tiles to
// writer. Stage 4.6 is per-worker best-effort (§5, §7): a failed worker
// abandons its remaining tiles but does not cancel the others; Build
// returns every worker's captured failure, if any, alongside the merged
// statistics.
func Build(in Input, writer TileWriter, workers int) (*stats.Accumulator, []WorkerFailure) {
	b, err := newTileBuilder(in)
	if err != nil {
		return stats.New(), []WorkerFailure{{Err: err}}
	}
	ranges, err := buildTileRanges(in.Nodes)
	if err != nil {
		return stats.New(), []WorkerFailure{{Err: err}}
	}
	assignments := partition(ranges, workers)

	merged := stats.New()
	var mu sync.Mutex
	var failures []WorkerFailure

	var wg sync.WaitGroup
	for w, tiles := range assignments {
		wg.Add(1)
		go func(workerIdx int, tiles []tileRange) {
			defer wg.Done()
			acc := stats.New()
			for _, tr := range tiles {
				tile, err := b.buildTile(tr, acc)
				if err != nil {
					mu.Lock()
					failures = append(failures, WorkerFailure{WorkerIndex: workerIdx, TileID: tr.TileID, Err: err})
					mu.Unlock()
					break
				}
				if err := writer.WriteTile(tile); err != nil {
					mu.Lock()
					failures = append(failures, WorkerFailure{WorkerIndex: workerIdx, TileID: tr.TileID, Err: err})
					mu.Unlock()
					break
				}
			}
			mu.Lock()
			merged.Merge(acc)
			mu.Unlock()
		}(w, tiles)
	}
	wg.Wait()

	return merged, failures
}

// buildTile synthesizes one tile's node summaries and directed edges.
func (b *tileBuilder) buildTile(tr tileRange, acc *stats.Accumulator) (Tile, error) {
	tile := Tile{TileID: tr.TileID}

	for pos := tr.Start; pos < tr.End; {
		ne, err := nodesort.CollectAt(b.in.Nodes, pos)
		if err != nil {
			return Tile{}, err
		}
		pos += ne.RunCount

		firstOffset := uint32(len(tile.Edges))
		var driveable uint32
		bestClass := primitives.RoadClassServiceOther

		for _, ei := range ne.EdgeIndices {
			de, err := b.buildDirectedEdge(ne, ei, acc)
			if err != nil {
				return Tile{}, err
			}
			if de.DriveableForward || de.DriveableReverse {
				driveable++
			}
			if de.RoadClass < bestClass {
				bestClass = de.RoadClass
			}
			tile.Edges = append(tile.Edges, de)
		}

		var accessMask uint8
		if driveable > 0 {
			accessMask = 1
		}
		tile.Nodes = append(tile.Nodes, NodeSummary{
			GraphID:         ne.GraphID,
			Lat:             ne.Lat,
			Lng:             ne.Lng,
			FirstEdgeOffset: firstOffset,
			EdgeCount:       uint32(len(ne.EdgeIndices)),
			DriveableCount:  driveable,
			BestRoadClass:   bestClass,
			AccessMask:      accessMask,
			OnlyOneEdge:     len(ne.EdgeIndices) == 1,
			TrafficSignal:   ne.TrafficSignal,
		})
		acc.RecordNodeDegree(len(ne.EdgeIndices))
	}

	return tile, nil
}

func (b *tileBuilder) buildDirectedEdge(ne nodesort.NodeEdges, ei uint32, acc *stats.Accumulator) (DirectedEdge, error) {
	e, err := b.edgeAt(ei)
	if err != nil {
		return DirectedEdge{}, err
	}
	way, err := b.wayAt(e.WayIndex)
	if err != nil {
		return DirectedEdge{}, err
	}

	forward := e.SourceGraphID == ne.GraphID
	far := e.TargetGraphID
	if !forward {
		far = e.SourceGraphID
	}

	shape := make([]geomlen.LatLng, 0, e.LLCount)
	for i := uint32(0); i < e.LLCount; i++ {
		wn, err := b.in.WayNodes.At(int64(e.LLIndex) + int64(i))
		if err != nil {
			return DirectedEdge{}, err
		}
		shape = append(shape, geomlen.LatLng{Lat: float64(wn.Lat), Lng: float64(wn.Lng)})
	}
	length := geomlen.Length(shape)
	coords := make([][]float64, len(shape))
	for i, p := range shape {
		coords[i] = []float64{p.Lat, p.Lng}
	}
	encodedShape := polyline.EncodeCoords(coords)

	var notThru bool
	if e.Importance > primitives.RoadClassTertiary {
		notThru, err = b.notThru(ne.GraphID, far, ei)
		if err != nil {
			return DirectedEdge{}, err
		}
		if notThru {
			acc.NotThruCount++
		}
	}

	internal, err := b.isIntersectionInternal(e.SourceGraphID, e.TargetGraphID, ei, uint64(way.ID), length)
	if err != nil {
		return DirectedEdge{}, err
	}
	if internal {
		acc.InternalCount++
	}

	use := way.Use
	speed := way.Speed
	rc := e.Importance
	if e.Link {
		use, err = b.getLinkUse(ei, rc, length, e.SourceGraphID, e.TargetGraphID)
		if err != nil {
			return DirectedEdge{}, err
		}
		if use == primitives.UseTurnChannel {
			acc.TurnChannelCount++
		}
		speed = updateLinkSpeed(use, rc, way.Speed)
	}
	if use == primitives.UseRoad && e.SourceGraphID == e.TargetGraphID && rc > primitives.RoadClassTertiary {
		use = primitives.UseCuldesac
		acc.CuldesacCount++
	}

	hasSignal := (!forward && ne.TrafficSignal) ||
		(e.TrafficSignal && ((forward && e.ForwardSignal) || (!forward && e.BackwardSignal) ||
			(way.Oneway && !e.ForwardSignal && !e.BackwardSignal)))

	targetBundle, ok, err := b.collectAt(far)
	if err != nil {
		return DirectedEdge{}, err
	}
	var targetWayIDs []uint64
	if ok {
		for _, ei2 := range targetBundle.EdgeIndices {
			e2, err := b.edgeAt(ei2)
			if err != nil {
				return DirectedEdge{}, err
			}
			way2, err := b.wayAt(e2.WayIndex)
			if err != nil {
				return DirectedEdge{}, err
			}
			targetWayIDs = append(targetWayIDs, uint64(way2.ID))
		}
	}
	mask := buildRestrictionMask(b.byFromWay[way.ID], far, targetWayIDs, acc)
	if mask != 0 {
		acc.SimpleRestrictions++
	}

	driveableForward := e.DriveableForward
	driveableReverse := e.DriveableReverse
	edgeDriveableThisDirection := driveableForward
	if !forward {
		edgeDriveableThisDirection = driveableReverse
	}

	var exitSigns ExitSigns
	if use == primitives.UseRamp && edgeDriveableThisDirection {
		exitSigns, err = b.buildExitSigns(way, ne.OriginalID)
		if err != nil {
			return DirectedEdge{}, err
		}
	}

	name, err := b.nameAt(way.NameOffset)
	if err != nil {
		return DirectedEdge{}, err
	}
	ref, err := b.wayRef(way.ID)
	if err != nil {
		return DirectedEdge{}, err
	}

	return DirectedEdge{
		EdgeIndex:        ei,
		SourceGraphID:    ne.GraphID,
		TargetGraphID:    far,
		Forward:          forward,
		WayID:            uint64(way.ID),
		Shape:            shape,
		EncodedShape:     encodedShape,
		Length:           length,
		Speed:            speed,
		Use:              use,
		RoadClass:        rc,
		DriveableForward: driveableForward,
		DriveableReverse: driveableReverse,
		NotThru:          notThru,
		Internal:         internal,
		HasSignal:        hasSignal,
		RestrictionMask:  mask,
		ExitSigns:        exitSigns,
		Name:             name,
		Ref:              ref,
	}, nil
}

// wayRef returns the edge-info ref string for wayID, or "" if the upstream
// parser recorded none (§6: "way -> ref string" auxiliary map).
func (b *tileBuilder) wayRef(wayID osm.WayID) (string, error) {
	if b.strings == nil {
		return "", nil
	}
	return b.strings.WayRef(wayID)
}

func (b *tileBuilder) nameAt(offset int32) (string, error) {
	if b.names == nil {
		return "", nil
	}
	return b.names.Get(offset)
}
