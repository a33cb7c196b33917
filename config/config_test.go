package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/ember/atom"
)

func write(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadTOML(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "ember.toml", `
[node]
name = "alpha@host"

[scheduler]
count = 3
reductions = 500

[heap]
initial-words = 1024

[allocator]
backend = "mmap"

[log]
verbosity = 2
path = "ember.log"
`)

	c, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "alpha@host", c.Node.Name)
	assert.Equal(t, 3, c.Scheduler.Count)
	assert.Equal(t, 500, c.Scheduler.Reductions)
	assert.Equal(t, 1024, c.Heap.InitialWords)
	assert.Equal(t, "mmap", c.Allocator.Backend)
	assert.Equal(t, 2, c.Log.Verbosity)
	require.NotNil(t, c.LogPath())
	assert.Equal(t, filepath.Join(filepath.Dir(c.Path), "ember.log"), *c.LogPath())
}

func TestLoadYAMLKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "ember.yaml", `
node:
  name: beta@host
scheduler:
  count: 2
`)

	c, err := Load(dir)
	require.NoError(t, err)
	def := Default()
	assert.Equal(t, "beta@host", c.Node.Name)
	assert.Equal(t, 2, c.Scheduler.Count)
	assert.Equal(t, atom.DefaultLimit, c.Node.MaxAtoms)
	assert.Equal(t, def.Scheduler.Reductions, c.Scheduler.Reductions)
	assert.Equal(t, def.Heap.InitialWords, c.Heap.InitialWords)
	assert.Equal(t, def.Allocator.Backend, c.Allocator.Backend)
	assert.Nil(t, c.LogPath())
}

func TestTOMLPreferredOverYAML(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "ember.yml", "node:\n  name: from-yaml\n")
	write(t, dir, "ember.toml", "[node]\nname = \"from-toml\"\n")

	c, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "from-toml", c.Node.Name)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"empty name", func(c *Config) { c.Node.Name = "" }, false},
		{"spaced name", func(c *Config) { c.Node.Name = "a b" }, false},
		{"no schedulers", func(c *Config) { c.Scheduler.Count = 0 }, false},
		{"no reductions", func(c *Config) { c.Scheduler.Reductions = -1 }, false},
		{"no heap", func(c *Config) { c.Heap.InitialWords = 0 }, false},
		{"tiny atom table", func(c *Config) { c.Node.MaxAtoms = 10 }, false},
		{"unknown backend", func(c *Config) { c.Allocator.Backend = "jemalloc" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			err := c.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "ember.toml", "[scheduler]\ncount = 0\n")
	_, err := Load(dir)
	assert.ErrorContains(t, err, "scheduler.count")

	bad := write(t, dir, "broken.toml", "[node\n")
	_, err = LoadFile(bad)
	assert.ErrorContains(t, err, "parse error")

	other := write(t, dir, "ember.json", "{}")
	_, err = LoadFile(other)
	assert.ErrorContains(t, err, "unsupported")

	_, err = Load(t.TempDir())
	assert.Error(t, err)
}

func TestFindAndLoadWalksUp(t *testing.T) {
	root := t.TempDir()
	write(t, root, "ember.toml", "[node]\nname = \"root@host\"\n")
	deep := filepath.Join(root, "a", "b", "c")
	require.NoError(t, os.MkdirAll(deep, 0755))

	c, err := FindAndLoad(deep)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "root@host", c.Node.Name)
}

func TestWriteTOMLRoundTrips(t *testing.T) {
	c := Default()
	c.Node.Name = "gamma@host"
	c.Log.Path = "/var/log/ember.log"

	var buf bytes.Buffer
	require.NoError(t, c.WriteTOML(&buf))
	assert.Contains(t, buf.String(), "initial-words")

	back := &Config{}
	_, err := toml.Decode(buf.String(), back)
	require.NoError(t, err)
	assert.Equal(t, c.Node, back.Node)
	assert.Equal(t, c.Scheduler, back.Scheduler)
	assert.Equal(t, c.Log, back.Log)
}
