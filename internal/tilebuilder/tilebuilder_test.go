package tilebuilder

import (
	"path/filepath"
	"testing"

	"github.com/paulmach/osm"
	"github.com/roadgraph/tilegraph/internal/primitives"
	"github.com/roadgraph/tilegraph/internal/recordstore"
	"github.com/roadgraph/tilegraph/internal/stats"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	tiles []Tile
}

func (w *fakeWriter) WriteTile(t Tile) error {
	w.tiles = append(w.tiles, t)
	return nil
}

func openInput(t *testing.T, dir string) Input {
	t.Helper()
	nodes, err := recordstore.Open[primitives.Node](filepath.Join(dir, "nodes.bin"), primitives.NodeCodec{})
	require.NoError(t, err)
	edges, err := recordstore.Open[primitives.Edge](filepath.Join(dir, "edges.bin"), primitives.EdgeCodec{})
	require.NoError(t, err)
	ways, err := recordstore.Open[primitives.Way](filepath.Join(dir, "ways.bin"), primitives.WayCodec{})
	require.NoError(t, err)
	wayNodes, err := recordstore.Open[primitives.WayNode](filepath.Join(dir, "waynodes.bin"), primitives.WayNodeCodec{})
	require.NoError(t, err)
	return Input{Nodes: nodes, Edges: edges, Ways: ways, WayNodes: wayNodes}
}

func noOffsets() (int32, int32, int32, int32, int32) {
	return -1, -1, -1, -1, -1
}

// TestTwoWayPrimaryProducesSymmetricDirectedEdges covers §8 scenario 1: a
// two-node primary way produces one Edge, two directed edges (one per
// endpoint), both driveable, with equal lengths.
func TestTwoWayPrimaryProducesSymmetricDirectedEdges(t *testing.T) {
	dir := t.TempDir()
	in := openInput(t, dir)
	defer in.Nodes.Close()
	defer in.Edges.Close()
	defer in.Ways.Close()
	defer in.WayNodes.Close()

	dest, branch, toward, junction, name := noOffsets()
	_, err := in.Ways.PushBack(primitives.Way{
		ID: 1, RoadClass: primitives.RoadClassPrimary,
		AutoForward: true, AutoBackward: true, Speed: 65, Use: primitives.UseRoad,
		DestinationRefOffset: dest, BranchRefOffset: branch, TowardRefOffset: toward,
		JunctionRefOffset: junction, NameOffset: name,
	})
	require.NoError(t, err)

	a := primitives.GraphId{Tile: 0, Index: 0}
	bID := primitives.GraphId{Tile: 0, Index: 1}

	_, err = in.WayNodes.PushBack(primitives.WayNode{OriginalID: 1, Lat: 10, Lng: 10, WayIndex: 0})
	require.NoError(t, err)
	_, err = in.WayNodes.PushBack(primitives.WayNode{OriginalID: 2, Lat: 10.01, Lng: 10.01, WayIndex: 0, Intersection: true})
	require.NoError(t, err)

	_, err = in.Nodes.PushBack(primitives.Node{OriginalID: 1, Lat: 10, Lng: 10, GraphID: a, StartOf: 0, EndOf: primitives.NoIndex, NonLinkEdge: true})
	require.NoError(t, err)
	_, err = in.Nodes.PushBack(primitives.Node{OriginalID: 2, Lat: 10.01, Lng: 10.01, GraphID: bID, StartOf: primitives.NoIndex, EndOf: 0, NonLinkEdge: true})
	require.NoError(t, err)

	_, err = in.Edges.PushBack(primitives.Edge{
		SourceGraphID: a, TargetGraphID: bID, WayIndex: 0, LLIndex: 0, LLCount: 2,
		Importance: primitives.RoadClassPrimary, DriveableForward: true, DriveableReverse: true,
	})
	require.NoError(t, err)

	b, err := newTileBuilder(in)
	require.NoError(t, err)
	acc := stats.New()
	tile, err := b.buildTile(tileRange{TileID: 0, Start: 0, End: 2}, acc)
	require.NoError(t, err)

	require.Len(t, tile.Edges, 2)
	require.Equal(t, tile.Edges[0].Length, tile.Edges[1].Length)
	require.True(t, tile.Edges[0].DriveableForward && tile.Edges[0].DriveableReverse)
	require.True(t, tile.Edges[0].Forward)
	require.False(t, tile.Edges[1].Forward)
}

// TestCuldesacPromotion covers §8's culdesac invariant: a loop edge
// (source==target) worse than tertiary is promoted from kRoad to kCuldesac.
func TestCuldesacPromotion(t *testing.T) {
	dir := t.TempDir()
	in := openInput(t, dir)
	defer in.Nodes.Close()
	defer in.Edges.Close()
	defer in.Ways.Close()
	defer in.WayNodes.Close()

	dest, branch, toward, junction, name := noOffsets()
	_, err := in.Ways.PushBack(primitives.Way{
		ID: 1, RoadClass: primitives.RoadClassResidential, AutoForward: true, AutoBackward: true,
		Speed: 30, Use: primitives.UseRoad,
		DestinationRefOffset: dest, BranchRefOffset: branch, TowardRefOffset: toward,
		JunctionRefOffset: junction, NameOffset: name,
	})
	require.NoError(t, err)

	loop := primitives.GraphId{Tile: 0, Index: 0}
	_, err = in.WayNodes.PushBack(primitives.WayNode{OriginalID: 1, Lat: 10, Lng: 10, WayIndex: 0})
	require.NoError(t, err)
	_, err = in.WayNodes.PushBack(primitives.WayNode{OriginalID: 1, Lat: 10, Lng: 10, WayIndex: 0, Intersection: true})
	require.NoError(t, err)

	_, err = in.Nodes.PushBack(primitives.Node{OriginalID: 1, Lat: 10, Lng: 10, GraphID: loop, StartOf: 0, EndOf: 0, NonLinkEdge: true})
	require.NoError(t, err)

	_, err = in.Edges.PushBack(primitives.Edge{
		SourceGraphID: loop, TargetGraphID: loop, WayIndex: 0, LLIndex: 0, LLCount: 2,
		Importance: primitives.RoadClassResidential, DriveableForward: true, DriveableReverse: true,
	})
	require.NoError(t, err)

	b, err := newTileBuilder(in)
	require.NoError(t, err)
	acc := stats.New()
	tile, err := b.buildTile(tileRange{TileID: 0, Start: 0, End: 1}, acc)
	require.NoError(t, err)

	// The loop node's single Node record is both the StartOf and EndOf of
	// edge 0, so it contributes the edge index twice and the node gets two
	// directed edges for that one loop edge.
	require.Len(t, tile.Edges, 2)
	for _, e := range tile.Edges {
		require.Equal(t, primitives.UseCuldesac, e.Use)
	}
	require.Equal(t, int64(2), acc.CuldesacCount)
}

// TestRampSpeedTableAppliesFixedTable covers the §4.6 link-speed table: a
// motorway-class link is always kRamp and gets the fixed 95 kph speed.
func TestRampSpeedTableAppliesFixedTable(t *testing.T) {
	dir := t.TempDir()
	in := openInput(t, dir)
	defer in.Nodes.Close()
	defer in.Edges.Close()
	defer in.Ways.Close()
	defer in.WayNodes.Close()

	dest, branch, toward, junction, name := noOffsets()
	_, err := in.Ways.PushBack(primitives.Way{
		ID: 1, RoadClass: primitives.RoadClassMotorway, Link: true,
		AutoForward: true, AutoBackward: false, Speed: 110, Use: primitives.UseRoad,
		DestinationRefOffset: dest, BranchRefOffset: branch, TowardRefOffset: toward,
		JunctionRefOffset: junction, NameOffset: name,
	})
	require.NoError(t, err)

	j := primitives.GraphId{Tile: 0, Index: 0}
	k := primitives.GraphId{Tile: 0, Index: 1}
	_, err = in.WayNodes.PushBack(primitives.WayNode{OriginalID: 1, Lat: 10, Lng: 10, WayIndex: 0})
	require.NoError(t, err)
	_, err = in.WayNodes.PushBack(primitives.WayNode{OriginalID: 2, Lat: 10.001, Lng: 10.001, WayIndex: 0, Intersection: true})
	require.NoError(t, err)

	_, err = in.Nodes.PushBack(primitives.Node{OriginalID: 1, Lat: 10, Lng: 10, GraphID: j, StartOf: 0, EndOf: primitives.NoIndex, LinkEdge: true, NonLinkEdge: true})
	require.NoError(t, err)
	_, err = in.Nodes.PushBack(primitives.Node{OriginalID: 2, Lat: 10.001, Lng: 10.001, GraphID: k, StartOf: primitives.NoIndex, EndOf: 0, LinkEdge: true})
	require.NoError(t, err)

	_, err = in.Edges.PushBack(primitives.Edge{
		SourceGraphID: j, TargetGraphID: k, WayIndex: 0, LLIndex: 0, LLCount: 2,
		Importance: primitives.RoadClassMotorway, DriveableForward: true, Link: true,
	})
	require.NoError(t, err)

	b, err := newTileBuilder(in)
	require.NoError(t, err)
	acc := stats.New()
	tile, err := b.buildTile(tileRange{TileID: 0, Start: 0, End: 2}, acc)
	require.NoError(t, err)

	require.Len(t, tile.Edges, 2)
	require.Equal(t, primitives.UseRamp, tile.Edges[0].Use)
	require.Equal(t, float32(95), tile.Edges[0].Speed)
}

func TestPartitionSpreadsRemainderAcrossFirstWorkers(t *testing.T) {
	ranges := make([]tileRange, 7)
	for i := range ranges {
		ranges[i] = tileRange{TileID: uint32(i)}
	}
	got := partition(ranges, 3)
	require.Len(t, got, 3)
	require.Len(t, got[0], 3)
	require.Len(t, got[1], 2)
	require.Len(t, got[2], 2)
}

func TestBuildRunsWorkersAndMergesStats(t *testing.T) {
	dir := t.TempDir()
	in := openInput(t, dir)
	defer in.Nodes.Close()
	defer in.Edges.Close()
	defer in.Ways.Close()
	defer in.WayNodes.Close()

	dest, branch, toward, junction, name := noOffsets()
	_, err := in.Ways.PushBack(primitives.Way{
		ID: 1, RoadClass: primitives.RoadClassPrimary, AutoForward: true, AutoBackward: true,
		Speed: 65, Use: primitives.UseRoad,
		DestinationRefOffset: dest, BranchRefOffset: branch, TowardRefOffset: toward,
		JunctionRefOffset: junction, NameOffset: name,
	})
	require.NoError(t, err)

	a := primitives.GraphId{Tile: 0, Index: 0}
	bID := primitives.GraphId{Tile: 1, Index: 0}
	_, err = in.WayNodes.PushBack(primitives.WayNode{OriginalID: 1, Lat: 10, Lng: 10, WayIndex: 0})
	require.NoError(t, err)
	_, err = in.WayNodes.PushBack(primitives.WayNode{OriginalID: 2, Lat: 10.01, Lng: 10.01, WayIndex: 0, Intersection: true})
	require.NoError(t, err)
	_, err = in.Nodes.PushBack(primitives.Node{OriginalID: 1, Lat: 10, Lng: 10, GraphID: a, StartOf: 0, EndOf: primitives.NoIndex, NonLinkEdge: true})
	require.NoError(t, err)
	_, err = in.Nodes.PushBack(primitives.Node{OriginalID: 2, Lat: 10.01, Lng: 10.01, GraphID: bID, StartOf: primitives.NoIndex, EndOf: 0, NonLinkEdge: true})
	require.NoError(t, err)
	_, err = in.Edges.PushBack(primitives.Edge{
		SourceGraphID: a, TargetGraphID: bID, WayIndex: 0, LLIndex: 0, LLCount: 2,
		Importance: primitives.RoadClassPrimary, DriveableForward: true, DriveableReverse: true,
	})
	require.NoError(t, err)

	w := &fakeWriter{}
	acc, failures := Build(in, w, 2)
	require.Empty(t, failures)
	require.Len(t, w.tiles, 2)
	require.NotNil(t, acc)

	var wayIDSeen osm.WayID
	for _, tile := range w.tiles {
		for _, e := range tile.Edges {
			wayIDSeen = osm.WayID(e.WayID)
		}
	}
	require.Equal(t, osm.WayID(1), wayIDSeen)
}
