// Package config handles ember.toml (or ember.yaml) node configuration.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/chazu/ember/alloc"
	"github.com/chazu/ember/atom"
	"github.com/chazu/ember/process"
	"github.com/chazu/ember/scheduler"
)

// FileNames are the names searched for, in order of preference.
var FileNames = []string{"ember.toml", "ember.yaml", "ember.yml"}

// Config is the configuration of one node.
type Config struct {
	Node      Node      `toml:"node" yaml:"node"`
	Scheduler Scheduler `toml:"scheduler" yaml:"scheduler"`
	Heap      Heap      `toml:"heap" yaml:"heap"`
	Allocator Allocator `toml:"allocator" yaml:"allocator"`
	Log       Log       `toml:"log" yaml:"log"`

	// Path is the file the configuration was read from (set at load time).
	Path string `toml:"-" yaml:"-"`
}

// Node identifies the node.
type Node struct {
	Name     string `toml:"name" yaml:"name"`
	MaxAtoms int    `toml:"max-atoms" yaml:"max-atoms"`
}

// Scheduler sizes the scheduler pool.
type Scheduler struct {
	Count      int `toml:"count" yaml:"count"`
	Reductions int `toml:"reductions" yaml:"reductions"`
}

// Heap sizes process heaps.
type Heap struct {
	InitialWords int `toml:"initial-words" yaml:"initial-words"`
}

// Allocator selects the memory backend.
type Allocator struct {
	Backend string `toml:"backend" yaml:"backend"`
}

// Log configures commonlog.
type Log struct {
	Verbosity int    `toml:"verbosity" yaml:"verbosity"`
	Path      string `toml:"path,omitempty" yaml:"path,omitempty"`
}

// Default returns the configuration used when no file is found. Loaded
// files are decoded over it, so absent keys keep these values.
func Default() *Config {
	return &Config{
		Node:      Node{Name: "ember@localhost", MaxAtoms: atom.DefaultLimit},
		Scheduler: Scheduler{Count: runtime.NumCPU(), Reductions: scheduler.DefaultReductions},
		Heap:      Heap{InitialWords: process.DefaultHeapWords},
		Allocator: Allocator{Backend: alloc.BackendHeap},
	}
}

// Load reads the first of FileNames present in dir.
func Load(dir string) (*Config, error) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return nil, fmt.Errorf("no %s in %s", strings.Join(FileNames, " or "), dir)
}

// LoadFile reads a TOML or YAML file, chosen by extension, and validates
// it.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	c := Default()
	switch ext := filepath.Ext(path); ext {
	case ".toml":
		if err := toml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("parse error in %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("parse error in %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", ext)
	}

	c.Path, err = filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// FindAndLoad walks up from startDir to find a config file, then loads it.
// Returns nil if none is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		for _, name := range FileNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return LoadFile(path)
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

// The runtime interns a few dozen atoms of its own before any process runs.
const minAtoms = 1024

// Validate rejects values no node can run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Node.Name == "" || strings.ContainsAny(c.Node.Name, " \t\n") {
		errs = append(errs, fmt.Errorf("node.name %q must be a non-empty word", c.Node.Name))
	}
	if c.Node.MaxAtoms < minAtoms {
		errs = append(errs, fmt.Errorf("node.max-atoms must be at least %d, got %d", minAtoms, c.Node.MaxAtoms))
	}
	if c.Scheduler.Count < 1 {
		errs = append(errs, fmt.Errorf("scheduler.count must be at least 1, got %d", c.Scheduler.Count))
	}
	if c.Scheduler.Reductions < 1 {
		errs = append(errs, fmt.Errorf("scheduler.reductions must be at least 1, got %d", c.Scheduler.Reductions))
	}
	if c.Heap.InitialWords < 1 {
		errs = append(errs, fmt.Errorf("heap.initial-words must be at least 1, got %d", c.Heap.InitialWords))
	}
	switch c.Allocator.Backend {
	case alloc.BackendHeap, alloc.BackendMmap:
	default:
		errs = append(errs, fmt.Errorf("allocator.backend must be %q or %q, got %q",
			alloc.BackendHeap, alloc.BackendMmap, c.Allocator.Backend))
	}
	return errors.Join(errs...)
}

// WriteTOML writes c in ember.toml form.
func (c *Config) WriteTOML(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}

// LogPath returns the log file, or nil for stderr.
func (c *Config) LogPath() *string {
	if c.Log.Path == "" {
		return nil
	}
	path := c.Log.Path
	if c.Path != "" && !filepath.IsAbs(path) {
		path = filepath.Join(filepath.Dir(c.Path), path)
	}
	return &path
}
