package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/chazu/ember/config"
	"github.com/chazu/ember/node"
)

func TestMain(m *testing.M) {
	// commonlog.Configure starts a writer goroutine that lives as long as
	// the process.
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("github.com/tliron/kutil/util.(*BufferedWriter).run"))
}

func TestCountdownCollectsEveryCounter(t *testing.T) {
	c := config.Default()
	c.Scheduler.Count = 3
	n, err := node.New(c)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	reason, err := countdown(ctx, n, 25, 5000)
	require.NoError(t, err)
	assert.Equal(t, "{collected,25}", n.Env().Format(reason))

	var exited uint64
	for _, s := range n.Stats() {
		exited += s.Exited
	}
	assert.EqualValues(t, 26, exited)

	var out bytes.Buffer
	printStats(&out, n)
	assert.Contains(t, out.String(), "SCHEDULER")
	assert.Contains(t, out.String(), "allocator heap")

	n.Shutdown()
	assert.Zero(t, n.Alloc().Stats().LiveBlocks)
}

func TestCountdownTimesOut(t *testing.T) {
	n, err := node.New(config.Default())
	require.NoError(t, err)
	defer n.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = countdown(ctx, n, 1, 1<<62)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestConfigCommandPrintsEffectiveConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ember.yaml")
	require.NoError(t, os.WriteFile(path, []byte("node:\n  name: cli@host\nscheduler:\n  count: 2\n"), 0o644))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"config", "--config", path, "--verbosity=-4"})
	require.NoError(t, rootCmd.Execute())

	var got config.Config
	_, err := toml.Decode(out.String(), &got)
	require.NoError(t, err)
	assert.Equal(t, "cli@host", got.Node.Name)
	assert.Equal(t, 2, got.Scheduler.Count)
	assert.Equal(t, -4, got.Log.Verbosity)
	assert.Equal(t, config.Default().Heap, got.Heap)
}
