// Package config loads the pipeline's hierarchical config tree (spec §6):
// the tile hierarchy consumed by the graph-id predicate, and the worker
// concurrency used by the tile builder. Grounded on the teacher pack's only
// yaml.v3-based config reader (ttpr0-go-routing's ReadConfig).
package config

import (
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/roadgraph/tilegraph/internal/graphid"
)

// Config is the root of the config tree.
type Config struct {
	Hierarchy   HierarchyConfig `yaml:"hierarchy"`
	Concurrency int             `yaml:"concurrency"`
}

// HierarchyConfig mirrors graphid.Hierarchy in a yaml-friendly shape; Build
// converts it to the predicate's Hierarchy type.
type HierarchyConfig struct {
	Levels []LevelConfig `yaml:"levels"`
}

type LevelConfig struct {
	Name       string `yaml:"name"`
	Resolution int    `yaml:"resolution"`
}

// Build converts the loaded hierarchy config into a graphid.Hierarchy. An
// empty level list falls back to graphid.DefaultHierarchy, so a config file
// can omit "hierarchy" entirely and still produce a usable predicate.
func (h HierarchyConfig) Build() graphid.Hierarchy {
	if len(h.Levels) == 0 {
		return graphid.DefaultHierarchy()
	}
	levels := make([]graphid.LevelDef, len(h.Levels))
	for i, l := range h.Levels {
		levels[i] = graphid.LevelDef{Name: l.Name, Resolution: l.Resolution}
	}
	return graphid.Hierarchy{Levels: levels}
}

// Workers returns Concurrency, defaulting to the hardware concurrency and
// floored at 1 (spec §6: "default = hardware concurrency, floor 1").
func (c Config) Workers() int {
	if c.Concurrency <= 0 {
		n := runtime.NumCPU()
		if n < 1 {
			n = 1
		}
		return n
	}
	return c.Concurrency
}

// Load reads and parses a yaml config file. A missing "hierarchy" section
// or zero Concurrency are not errors; Build/Workers apply the documented
// defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return c, nil
}
