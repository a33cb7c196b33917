package term

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chazu/ember/alloc"
)

// testHeap gives every allocation its own block so tests can check that
// nothing is left behind.
type testHeap struct {
	sys    *alloc.SysAlloc
	store  *BinaryStore
	blocks []alloc.MemoryBlock
	held   []uintptr
	words  int
}

func newTestHeap(t *testing.T) *testHeap {
	t.Helper()
	sys := alloc.New(alloc.NewHeapPlatform())
	return newTestHeapWith(t, sys, NewBinaryStore(sys))
}

func newTestHeapWith(t *testing.T, sys *alloc.SysAlloc, store *BinaryStore) *testHeap {
	t.Helper()
	h := &testHeap{sys: sys, store: store}
	t.Cleanup(h.free)
	return h
}

func (h *testHeap) AllocWords(n int) ([]uint64, error) {
	b, err := h.sys.Alloc(alloc.WordLayout(n), alloc.Uninitialized)
	if err != nil {
		return nil, err
	}
	h.blocks = append(h.blocks, b)
	h.words += n
	return b.Words()[:n], nil
}

func (h *testHeap) Binaries() *BinaryStore { return h.store }

func (h *testHeap) Hold(addr uintptr) { h.held = append(h.held, addr) }

func (h *testHeap) free() {
	for _, addr := range h.held {
		h.store.Release(addr)
	}
	h.held = nil
	for _, b := range h.blocks {
		h.sys.Free(b)
	}
	h.blocks = nil
}

func newTestEnv(t *testing.T) *Env {
	t.Helper()
	env, err := NewEnv(atomTable(), "ember@localhost")
	require.NoError(t, err)
	return env
}
