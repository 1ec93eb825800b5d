// Command tilegraph runs the graph-construction pipeline end to end: it
// reads an upstream-parsed way/way-node/restriction record set, builds the
// core node/edge graph, sorts and tile-assigns it, reclassifies link edges,
// and partitions the result into tiles across a worker pool.
package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime/pprof"

	"github.com/spf13/cobra"

	"github.com/roadgraph/tilegraph/internal/auxstore"
	"github.com/roadgraph/tilegraph/internal/config"
	"github.com/roadgraph/tilegraph/internal/edgebuilder"
	"github.com/roadgraph/tilegraph/internal/graphid"
	"github.com/roadgraph/tilegraph/internal/linkreclass"
	"github.com/roadgraph/tilegraph/internal/nodesort"
	"github.com/roadgraph/tilegraph/internal/primitives"
	"github.com/roadgraph/tilegraph/internal/recordstore"
	"github.com/roadgraph/tilegraph/internal/tilebuilder"
)

var rootCmd = &cobra.Command{
	Use:   "tilegraph",
	Short: "Build a sharded, tile-partitioned routable graph from OSM way/node records",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

func init() {
	rootCmd.AddCommand(buildCmd)

	flags := buildCmd.Flags()
	flags.String("ways", "", "path to the upstream way record sequence (required)")
	flags.String("waynodes", "", "path to the upstream way-node record sequence (required)")
	flags.String("restrictions", "", "path to the upstream raw restriction record sequence (optional)")
	flags.String("strings-db", "", "badger directory backing way-ref/node-attr lookups (optional)")
	flags.String("names-db", "", "badger directory backing the name offset table (optional)")
	flags.String("refs-db", "", "badger directory backing the ref offset table (optional)")
	flags.String("work-dir", ".", "scratch directory for intermediate node/edge/mapping files")
	flags.String("config", "", "hierarchy/concurrency YAML config path (optional, falls back to defaults)")
	flags.Int("workers", 0, "tile builder worker count (0 = from config, default runtime.NumCPU())")
	flags.String("cpuprofile", "", "write a CPU profile to this file")
	flags.String("memprofile", "", "write a heap profile to this file")
	buildCmd.MarkFlagRequired("ways")
	buildCmd.MarkFlagRequired("waynodes")
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Run the full pipeline: edge construction, sort, link reclassification, tile build",
	RunE:  runBuild,
}

// logWriter is the stand-in TileWriter collaborator: tile byte layout and
// storage are out of this core's scope (spec §1), so it only logs what it
// would have written. Production callers supply their own tilebuilder.TileWriter.
type logWriter struct {
	tiles, edges int
}

func (w *logWriter) WriteTile(t tilebuilder.Tile) error {
	w.tiles++
	w.edges += len(t.Edges)
	log.Printf("tile %d: %d nodes, %d directed edges", t.TileID, len(t.Nodes), len(t.Edges))
	return nil
}

func runBuild(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()

	if cpuprofile, _ := flags.GetString("cpuprofile"); cpuprofile != "" {
		f, err := os.Create(cpuprofile)
		if err != nil {
			return fmt.Errorf("tilegraph: create cpu profile: %w", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return err
		}
		defer pprof.StopCPUProfile()
	}

	cfgPath, _ := flags.GetString("config")
	cfg := config.Config{}
	if cfgPath != "" {
		loaded, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("tilegraph: load config: %w", err)
		}
		cfg = loaded
	}
	pred := graphid.NewH3Predicate(cfg.Hierarchy.Build())

	wayPath, _ := flags.GetString("ways")
	wayNodePath, _ := flags.GetString("waynodes")
	restrictionPath, _ := flags.GetString("restrictions")
	workDir, _ := flags.GetString("work-dir")

	ways, err := recordstore.Open[primitives.Way](wayPath, primitives.WayCodec{})
	if err != nil {
		return fmt.Errorf("tilegraph: open ways: %w", err)
	}
	defer ways.Close()

	wayNodes, err := recordstore.Open[primitives.WayNode](wayNodePath, primitives.WayNodeCodec{})
	if err != nil {
		return fmt.Errorf("tilegraph: open way nodes: %w", err)
	}
	defer wayNodes.Close()

	nodes, err := recordstore.Open[primitives.Node](filepath.Join(workDir, "nodes.bin"), primitives.NodeCodec{})
	if err != nil {
		return fmt.Errorf("tilegraph: open nodes: %w", err)
	}
	defer nodes.Close()

	edges, err := recordstore.Open[primitives.Edge](filepath.Join(workDir, "edges.bin"), primitives.EdgeCodec{})
	if err != nil {
		return fmt.Errorf("tilegraph: open edges: %w", err)
	}
	defer edges.Close()

	log.Printf("building edges from %d ways", ways.Size())
	if err := edgebuilder.New(pred, nodes, edges).Build(ways, wayNodes); err != nil {
		return fmt.Errorf("tilegraph: build edges: %w", err)
	}
	log.Printf("built %d node records, %d edges", nodes.Size(), edges.Size())

	mapping, err := nodesort.OpenMapping(filepath.Join(workDir, "mapping.bin"), nodes.Size())
	if err != nil {
		return fmt.Errorf("tilegraph: open mapping: %w", err)
	}
	defer mapping.Close()

	log.Print("sorting nodes by tile")
	if err := nodesort.Sort(nodes); err != nil {
		return fmt.Errorf("tilegraph: sort nodes: %w", err)
	}
	log.Print("collapsing duplicate node records")
	if err := nodesort.CollapseDuplicates(nodes, mapping); err != nil {
		return fmt.Errorf("tilegraph: collapse duplicates: %w", err)
	}
	log.Print("rewiring edges to canonical node ids")
	if err := nodesort.RewireEdges(edges, mapping); err != nil {
		return fmt.Errorf("tilegraph: rewire edges: %w", err)
	}

	var resolved *recordstore.Sequence[primitives.ResolvedRestriction]
	if restrictionPath != "" {
		raw, err := recordstore.Open[primitives.RawRestriction](restrictionPath, primitives.RawRestrictionCodec{})
		if err != nil {
			return fmt.Errorf("tilegraph: open restrictions: %w", err)
		}
		defer raw.Close()

		resolved, err = recordstore.Open[primitives.ResolvedRestriction](filepath.Join(workDir, "restrictions_resolved.bin"), primitives.ResolvedRestrictionCodec{})
		if err != nil {
			return fmt.Errorf("tilegraph: open resolved restrictions: %w", err)
		}
		defer resolved.Close()

		log.Printf("resolving %d restrictions to canonical via-node ids", raw.Size())
		if err := nodesort.ResolveRestrictions(raw, nodes, resolved); err != nil {
			return fmt.Errorf("tilegraph: resolve restrictions: %w", err)
		}
	}

	log.Print("reclassifying link edges")
	reclassifier, err := linkreclass.New(nodes, edges)
	if err != nil {
		return fmt.Errorf("tilegraph: build reclassifier: %w", err)
	}
	issues, err := reclassifier.Run()
	if err != nil {
		return fmt.Errorf("tilegraph: reclassify links: %w", err)
	}
	log.Printf("link reclassification: %d issues (unconnected links, BFS cap hits)", len(issues))

	in := tilebuilder.Input{
		Nodes:        nodes,
		Edges:        edges,
		Ways:         ways,
		WayNodes:     wayNodes,
		Restrictions: resolved,
	}
	if stringsDB, _ := flags.GetString("strings-db"); stringsDB != "" {
		s, err := auxstore.OpenStrings(stringsDB)
		if err != nil {
			return fmt.Errorf("tilegraph: open strings db: %w", err)
		}
		defer s.Close()
		in.Strings = s
	}
	if namesDB, _ := flags.GetString("names-db"); namesDB != "" {
		t, err := auxstore.OpenOffsetTable(namesDB)
		if err != nil {
			return fmt.Errorf("tilegraph: open names db: %w", err)
		}
		defer t.Close()
		in.Names = t
	}
	if refsDB, _ := flags.GetString("refs-db"); refsDB != "" {
		t, err := auxstore.OpenOffsetTable(refsDB)
		if err != nil {
			return fmt.Errorf("tilegraph: open refs db: %w", err)
		}
		defer t.Close()
		in.Refs = t
	}

	workers, _ := flags.GetInt("workers")
	if workers <= 0 {
		workers = cfg.Workers()
	}
	log.Printf("building tiles with %d workers", workers)

	writer := &logWriter{}
	accum, failures := tilebuilder.Build(in, writer, workers)
	for _, f := range failures {
		log.Printf("worker failure: %v", f)
	}
	log.Printf("done: %d tiles, %d directed edges, %d not-thru, %d internal, %d turn channels, %d culdesacs",
		writer.tiles, writer.edges, accum.NotThruCount, accum.InternalCount, accum.TurnChannelCount, accum.CuldesacCount)

	if memprofile, _ := flags.GetString("memprofile"); memprofile != "" {
		f, err := os.Create(memprofile)
		if err != nil {
			return fmt.Errorf("tilegraph: create mem profile: %w", err)
		}
		defer f.Close()
		if err := pprof.WriteHeapProfile(f); err != nil {
			return err
		}
	}

	if len(failures) > 0 {
		return fmt.Errorf("tilegraph: %d worker failures", len(failures))
	}
	return nil
}
