package alloc

import (
	"fmt"
	"math/bits"
	"sync"
	"unsafe"
)

const (
	minClassShift = 3  // 8 bytes
	maxClassShift = 11 // 2 KiB
	numClasses    = maxClassShift - minClassShift + 1
	maxSmallSize  = uintptr(1) << maxClassShift

	spanBytes uintptr = 64 << 10
)

// HeapPlatform is the default backend. Requests of up to 2 KiB come from
// power-of-two size classes carved out of 64 KiB spans; larger ones get
// pages of their own. All of it is mapped outside the Go heap, so addresses
// stored in terms remain valid pointers.
//
// Spans are aligned to their own size: the span of a block is its address
// with the low bits cleared, and a block of class size s is aligned to s.
// A span left empty is unmapped once its class has another one.
//
// There is no native resize. Relocation goes through SysAlloc's shared
// fallback and in-place requests are refused.
type HeapPlatform struct {
	page uintptr

	mu      sync.Mutex
	classes [numClasses][]*span
	spans   map[uintptr]*span
	live    int
}

type span struct {
	base  unsafe.Pointer
	class int
	free  []unsafe.Pointer
	live  int
}

// NewHeapPlatform creates an empty heap backend.
func NewHeapPlatform() *HeapPlatform {
	return &HeapPlatform{page: pageSize(), spans: make(map[uintptr]*span)}
}

func (h *HeapPlatform) Name() string           { return BackendHeap }
func (h *HeapPlatform) MinAlign() uintptr      { return wordSize }
func (h *HeapPlatform) MaxAlign() uintptr      { return 1 << 31 }
func (h *HeapPlatform) CanResize() bool        { return false }
func (h *HeapPlatform) CanResizeInPlace() bool { return false }

func (h *HeapPlatform) Malloc(size uintptr) (unsafe.Pointer, uintptr, error) {
	return h.AlignedAlloc(size, wordSize)
}

// AlignedAlloc uses the smallest class covering both size and align.
func (h *HeapPlatform) AlignedAlloc(size, align uintptr) (unsafe.Pointer, uintptr, error) {
	if c, ok := classFor(max(size, align)); ok {
		return h.allocSmall(c)
	}
	n := roundUp(size, h.page)
	ptr, err := mapPages(n, max(align, h.page))
	if err != nil {
		return nil, 0, err
	}
	h.mu.Lock()
	h.live++
	h.mu.Unlock()
	return ptr, n, nil
}

func (h *HeapPlatform) Resize(unsafe.Pointer, uintptr, uintptr, bool) (unsafe.Pointer, uintptr, error) {
	return nil, 0, errNoResize
}

// Free takes the granted size, which tells small blocks from page runs.
func (h *HeapPlatform) Free(ptr unsafe.Pointer, size uintptr) {
	if size > maxSmallSize {
		if err := unmapPages(ptr, size); err != nil {
			log.Errorf("unmap %#x (%d bytes): %s", uintptr(ptr), size, err)
		}
		h.mu.Lock()
		h.live--
		h.mu.Unlock()
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.spans[uintptr(ptr)&^(spanBytes-1)]
	if !ok {
		panic(fmt.Sprintf("alloc: free of %#x, which no span owns", uintptr(ptr)))
	}
	s.free = append(s.free, ptr)
	s.live--
	h.live--
	if s.live == 0 && len(h.classes[s.class]) > 1 {
		h.release(s)
	}
}

// Len returns the number of live blocks.
func (h *HeapPlatform) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.live
}

// Spans returns the number of mapped small-block spans.
func (h *HeapPlatform) Spans() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.spans)
}

func (h *HeapPlatform) allocSmall(c int) (unsafe.Pointer, uintptr, error) {
	size := classSize(c)

	h.mu.Lock()
	defer h.mu.Unlock()
	var s *span
	for _, cand := range h.classes[c] {
		if len(cand.free) > 0 {
			s = cand
			break
		}
	}
	if s == nil {
		base, err := mapPages(spanBytes, spanBytes)
		if err != nil {
			return nil, 0, err
		}
		s = &span{base: base, class: c, free: make([]unsafe.Pointer, 0, spanBytes/size)}
		// Pushed high to low so blocks are handed out in address order.
		for off := spanBytes; off >= size; off -= size {
			s.free = append(s.free, unsafe.Add(base, off-size))
		}
		h.classes[c] = append(h.classes[c], s)
		h.spans[uintptr(base)] = s
		log.Debugf("new %d-byte span for class %d", spanBytes, size)
	}

	ptr := s.free[len(s.free)-1]
	s.free = s.free[:len(s.free)-1]
	s.live++
	h.live++
	return ptr, size, nil
}

func (h *HeapPlatform) release(s *span) {
	spans := h.classes[s.class]
	for i, cand := range spans {
		if cand == s {
			h.classes[s.class] = append(spans[:i], spans[i+1:]...)
			break
		}
	}
	delete(h.spans, uintptr(s.base))
	if err := unmapPages(s.base, spanBytes); err != nil {
		log.Errorf("unmap span %#x: %s", uintptr(s.base), err)
	}
}

// classFor returns the size class holding n bytes, if n is small.
func classFor(n uintptr) (int, bool) {
	if n > maxSmallSize {
		return 0, false
	}
	shift := bits.Len64(uint64(n - 1))
	if shift < minClassShift {
		shift = minClassShift
	}
	return shift - minClassShift, true
}

func classSize(c int) uintptr { return uintptr(1) << (c + minClassShift) }
