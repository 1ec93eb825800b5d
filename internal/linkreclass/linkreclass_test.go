package linkreclass

import (
	"path/filepath"
	"testing"

	"github.com/roadgraph/tilegraph/internal/primitives"
	"github.com/roadgraph/tilegraph/internal/recordstore"
	"github.com/stretchr/testify/require"
)

func openSeqs(t *testing.T, dir string) (*recordstore.Sequence[primitives.Node], *recordstore.Sequence[primitives.Edge]) {
	t.Helper()
	nodes, err := recordstore.Open[primitives.Node](filepath.Join(dir, "nodes.bin"), primitives.NodeCodec{})
	require.NoError(t, err)
	edges, err := recordstore.Open[primitives.Edge](filepath.Join(dir, "edges.bin"), primitives.EdgeCodec{})
	require.NoError(t, err)
	return nodes, edges
}

// TestRampBetweenTrunkAndTertiaryTakesWorseClass builds a ramp (link edge)
// connecting a node on a trunk road to a node on a tertiary road, and checks
// the ramp is reclassified to the worse (numerically larger) of the two —
// the two-branch case where "second-smallest of all endpoints" degenerates
// to the max.
func TestRampBetweenTrunkAndTertiaryTakesWorseClass(t *testing.T) {
	dir := t.TempDir()
	nodes, edges := openSeqs(t, dir)
	defer nodes.Close()
	defer edges.Close()

	j := primitives.GraphId{Tile: 0, Index: 0}
	k := primitives.GraphId{Tile: 0, Index: 1}

	// J: owns edge 0 (trunk, start) and edge 1 (ramp, start)
	_, err := nodes.PushBack(primitives.Node{GraphID: j, LinkEdge: true, NonLinkEdge: true, StartOf: 0, EndOf: primitives.NoIndex})
	require.NoError(t, err)
	_, err = nodes.PushBack(primitives.Node{GraphID: j, LinkEdge: true, NonLinkEdge: true, StartOf: 1, EndOf: primitives.NoIndex})
	require.NoError(t, err)
	// K: owns edge 1 (ramp, end) and edge 2 (tertiary, start)
	_, err = nodes.PushBack(primitives.Node{GraphID: k, LinkEdge: true, NonLinkEdge: true, StartOf: primitives.NoIndex, EndOf: 1})
	require.NoError(t, err)
	_, err = nodes.PushBack(primitives.Node{GraphID: k, LinkEdge: true, NonLinkEdge: true, StartOf: 2, EndOf: primitives.NoIndex})
	require.NoError(t, err)

	other := primitives.GraphId{Tile: 0, Index: 2}

	_, err = edges.PushBack(primitives.Edge{SourceGraphID: j, TargetGraphID: other, Importance: primitives.RoadClassTrunk, Link: false})
	require.NoError(t, err)
	_, err = edges.PushBack(primitives.Edge{SourceGraphID: j, TargetGraphID: k, Importance: primitives.RoadClassSecondary, Link: true})
	require.NoError(t, err)
	_, err = edges.PushBack(primitives.Edge{SourceGraphID: k, TargetGraphID: other, Importance: primitives.RoadClassTertiary, Link: false})
	require.NoError(t, err)

	rc, err := New(nodes, edges)
	require.NoError(t, err)
	issues, err := rc.Run()
	require.NoError(t, err)
	require.Empty(t, issues)

	ramp, err := edges.At(1)
	require.NoError(t, err)
	require.Equal(t, primitives.RoadClassTertiary, ramp.Importance, "the ramp must take the worse of its two connecting roads' classes")
}

// TestReclassifierNeverUpgrades checks the "never numerically smaller"
// guard: if a link edge's importance is already numerically at least the
// computed second-best class (as bad or worse), it is left untouched.
func TestReclassifierNeverUpgrades(t *testing.T) {
	dir := t.TempDir()
	nodes, edges := openSeqs(t, dir)
	defer nodes.Close()
	defer edges.Close()

	j := primitives.GraphId{Tile: 0, Index: 0}
	k := primitives.GraphId{Tile: 0, Index: 1}

	_, err := nodes.PushBack(primitives.Node{GraphID: j, LinkEdge: true, NonLinkEdge: true, StartOf: 0, EndOf: primitives.NoIndex})
	require.NoError(t, err)
	_, err = nodes.PushBack(primitives.Node{GraphID: j, LinkEdge: true, NonLinkEdge: true, StartOf: 1, EndOf: primitives.NoIndex})
	require.NoError(t, err)
	_, err = nodes.PushBack(primitives.Node{GraphID: k, LinkEdge: true, NonLinkEdge: true, StartOf: primitives.NoIndex, EndOf: 1})
	require.NoError(t, err)
	_, err = nodes.PushBack(primitives.Node{GraphID: k, LinkEdge: true, NonLinkEdge: true, StartOf: 2, EndOf: primitives.NoIndex})
	require.NoError(t, err)

	other := primitives.GraphId{Tile: 0, Index: 2}

	_, err = edges.PushBack(primitives.Edge{SourceGraphID: j, TargetGraphID: other, Importance: primitives.RoadClassTrunk, Link: false})
	require.NoError(t, err)
	// ramp is already classed worse than the computed second-best (trunk on
	// both ends); the update must not improve it back toward trunk.
	_, err = edges.PushBack(primitives.Edge{SourceGraphID: j, TargetGraphID: k, Importance: primitives.RoadClassResidential, Link: true})
	require.NoError(t, err)
	_, err = edges.PushBack(primitives.Edge{SourceGraphID: k, TargetGraphID: other, Importance: primitives.RoadClassTrunk, Link: false})
	require.NoError(t, err)

	rc, err := New(nodes, edges)
	require.NoError(t, err)
	_, err = rc.Run()
	require.NoError(t, err)

	ramp, err := edges.At(1)
	require.NoError(t, err)
	require.Equal(t, primitives.RoadClassResidential, ramp.Importance, "an update that would improve (numerically lower) the current class must be rejected")
}

// TestUnconnectedLinkReported checks that a link edge whose far endpoint has
// no non-link edge and dead-ends (empty frontier, fewer than two endrc
// entries) is reported as an issue rather than silently updated.
func TestUnconnectedLinkReported(t *testing.T) {
	dir := t.TempDir()
	nodes, edges := openSeqs(t, dir)
	defer nodes.Close()
	defer edges.Close()

	j := primitives.GraphId{Tile: 0, Index: 0}
	deadEnd := primitives.GraphId{Tile: 0, Index: 1}

	_, err := nodes.PushBack(primitives.Node{GraphID: j, LinkEdge: true, NonLinkEdge: true, StartOf: 0, EndOf: primitives.NoIndex})
	require.NoError(t, err)
	_, err = nodes.PushBack(primitives.Node{GraphID: j, LinkEdge: true, NonLinkEdge: true, StartOf: 1, EndOf: primitives.NoIndex})
	require.NoError(t, err)
	// dead end owns only the ramp's end, no non-link edge anywhere.
	_, err = nodes.PushBack(primitives.Node{GraphID: deadEnd, LinkEdge: true, NonLinkEdge: false, StartOf: primitives.NoIndex, EndOf: 1})
	require.NoError(t, err)

	other := primitives.GraphId{Tile: 0, Index: 2}
	_, err = edges.PushBack(primitives.Edge{SourceGraphID: j, TargetGraphID: other, Importance: primitives.RoadClassTrunk, Link: false})
	require.NoError(t, err)
	_, err = edges.PushBack(primitives.Edge{SourceGraphID: j, TargetGraphID: deadEnd, Importance: primitives.RoadClassSecondary, Link: true})
	require.NoError(t, err)

	rc, err := New(nodes, edges)
	require.NoError(t, err)
	issues, err := rc.Run()
	require.NoError(t, err)
	require.Len(t, issues, 1)
	require.Equal(t, IssueUnconnectedLink, issues[0].Kind)

	ramp, err := edges.At(1)
	require.NoError(t, err)
	require.Equal(t, primitives.RoadClassSecondary, ramp.Importance, "an unconnected link must be left unmodified")
}
