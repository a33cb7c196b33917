package process

import (
	"fmt"

	"github.com/chazu/ember/alloc"
	"github.com/chazu/ember/term"
)

// DefaultHeapWords is the size of a process's first heap segment.
const DefaultHeapWords = 256

// Heap is a segmented bump allocator. Terms never move: when the current
// segment is full the heap first asks the allocator to grow it in place and
// otherwise starts a new segment twice the size of the last one.
//
// A Heap with a single segment sized by term.Size doubles as a message or
// exit-reason fragment.
type Heap struct {
	sys   *alloc.SysAlloc
	store *term.BinaryStore

	segments []segment
	next     int
	held     []uintptr
}

type segment struct {
	block alloc.MemoryBlock
	used  int
}

func (s *segment) capacity() int { return int(s.block.Size()) / 8 }

// NewHeap creates a heap whose first segment holds initialWords words.
// No memory is taken until the first allocation.
func NewHeap(sys *alloc.SysAlloc, store *term.BinaryStore, initialWords int) *Heap {
	if initialWords <= 0 {
		initialWords = DefaultHeapWords
	}
	return &Heap{sys: sys, store: store, next: initialWords}
}

// AllocWords returns n words that stay put until the heap is freed.
func (h *Heap) AllocWords(n int) ([]uint64, error) {
	if n <= 0 {
		return nil, fmt.Errorf("heap: invalid allocation of %d words", n)
	}
	if len(h.segments) > 0 {
		cur := &h.segments[len(h.segments)-1]
		if cur.used+n > cur.capacity() {
			h.growInPlace(cur, n)
		}
		if cur.used+n <= cur.capacity() {
			words := cur.block.Words()[cur.used : cur.used+n : cur.used+n]
			cur.used += n
			return words, nil
		}
	}

	size := max(h.next, n)
	block, err := h.sys.Alloc(alloc.WordLayout(size), alloc.Uninitialized)
	if err != nil {
		return nil, fmt.Errorf("heap segment of %d words: %w", size, err)
	}
	h.next = 2 * size
	h.segments = append(h.segments, segment{block: block, used: n})
	return block.Words()[:n:n], nil
}

// growInPlace extends cur without moving it, when the platform can. Failure
// is expected on most backends and just means a new segment.
func (h *Heap) growInPlace(cur *segment, n int) {
	want := max(2*cur.capacity(), cur.used+n)
	grown, err := h.sys.Grow(cur.block, uintptr(want)*8, alloc.InPlace, alloc.Uninitialized)
	if err != nil {
		return
	}
	cur.block = grown
}

// Binaries returns the store for reference-counted binaries.
func (h *Heap) Binaries() *term.BinaryStore { return h.store }

// Hold records a reference to an off-heap binary, released by Free.
func (h *Heap) Hold(addr uintptr) { h.held = append(h.held, addr) }

// adopt takes over the segments and binaries of other, leaving it empty.
// Adopted segments are full, so they go behind the current one.
func (h *Heap) adopt(other *Heap) {
	if other == nil {
		return
	}
	if n := len(h.segments); n > 0 {
		cur := h.segments[n-1]
		h.segments = append(h.segments[:n-1], other.segments...)
		h.segments = append(h.segments, cur)
	} else {
		h.segments = append(h.segments, other.segments...)
	}
	h.held = append(h.held, other.held...)
	other.segments = nil
	other.held = nil
}

// Free releases every segment and held binary. The heap can be reused.
func (h *Heap) Free() {
	for _, addr := range h.held {
		h.store.Release(addr)
	}
	for _, s := range h.segments {
		h.sys.Free(s.block)
	}
	h.held = nil
	h.segments = nil
}

// Words returns the number of words handed out.
func (h *Heap) Words() int {
	n := 0
	for _, s := range h.segments {
		n += s.used
	}
	return n
}

// Segments returns the number of segments.
func (h *Heap) Segments() int { return len(h.segments) }

// newFragment copies t into a heap of its own, exactly large enough.
func newFragment(sys *alloc.SysAlloc, store *term.BinaryStore, t term.Term) (*Heap, term.Term, error) {
	size := term.Size(t)
	if size == 0 {
		return nil, t, nil
	}
	frag := NewHeap(sys, store, size)
	copied, err := term.CopyTo(frag, t)
	if err != nil {
		frag.Free()
		return nil, 0, err
	}
	return frag, copied, nil
}
