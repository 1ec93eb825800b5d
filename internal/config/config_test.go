package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("concurrency: 0\n"), 0o644))

	c, err := Load(path)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, c.Workers(), 1)
	assert.NotEmpty(t, c.Hierarchy.Build().Levels)
}

func TestLoadHonorsExplicitValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := "concurrency: 4\nhierarchy:\n  levels:\n    - name: highway\n      resolution: 5\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 4, c.Workers())
	h := c.Hierarchy.Build()
	require.Len(t, h.Levels, 1)
	assert.Equal(t, "highway", h.Levels[0].Name)
	assert.Equal(t, 5, h.Levels[0].Resolution)
}
