package alloc

import (
	"sync/atomic"
	"unsafe"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("ember.alloc")

// SysAlloc is the system allocator. It is safe for concurrent use; every
// process heap ultimately draws its memory from one shared instance.
type SysAlloc struct {
	platform Platform

	liveBlocks atomic.Int64
	liveBytes  atomic.Int64
	allocs     atomic.Uint64
	frees      atomic.Uint64
	fallbacks  atomic.Uint64
}

// New creates an allocator over the given platform backend.
func New(p Platform) *SysAlloc {
	return &SysAlloc{platform: p}
}

// NewDefault creates an allocator over a fresh HeapPlatform.
func NewDefault() *SysAlloc {
	return New(NewHeapPlatform())
}

// Platform returns the backend in use.
func (a *SysAlloc) Platform() Platform {
	return a.platform
}

// fastPath reports whether a request of the given alignment and size can
// use the platform's plain primitives.
func (a *SysAlloc) fastPath(align, size uintptr) bool {
	return align <= a.platform.MinAlign() && align <= size
}

// Alloc returns a block of at least layout.Size bytes aligned to
// layout.Align.
func (a *SysAlloc) Alloc(layout Layout, init Init) (MemoryBlock, error) {
	if err := layout.validate(); err != nil {
		return MemoryBlock{}, err
	}
	if layout.Align > a.platform.MaxAlign() {
		return MemoryBlock{}, &AllocError{Op: "alloc", Layout: layout, Kind: KindAlignTooLarge}
	}

	var (
		ptr     unsafe.Pointer
		granted uintptr
		err     error
	)
	if a.fastPath(layout.Align, layout.Size) {
		ptr, granted, err = a.platform.Malloc(layout.Size)
	} else {
		ptr, granted, err = a.platform.AlignedAlloc(layout.Size, layout.Align)
	}
	if err != nil {
		return MemoryBlock{}, &AllocError{Op: "alloc", Layout: layout, Kind: KindOutOfMemory, Err: err}
	}

	b := MemoryBlock{ptr: ptr, size: granted, align: layout.Align}
	if init == Zeroed {
		clear(b.Bytes())
	}
	a.track(1, int64(granted))
	a.allocs.Add(1)
	return b, nil
}

// Grow extends b to at least newSize bytes. A block whose granted size
// already covers newSize is returned as is. With InPlace the block is never
// relocated: if the platform cannot guarantee that, Grow fails and b is left
// untouched. With Zeroed, bytes past the old size are zero-filled.
func (a *SysAlloc) Grow(b MemoryBlock, newSize uintptr, placement Placement, init Init) (MemoryBlock, error) {
	if b.IsZero() {
		return b, &AllocError{Op: "grow", Layout: b.Layout(), NewSize: newSize, Kind: KindInvalidResize}
	}
	if newSize <= b.size {
		return b, nil
	}

	grown, err := a.resize("grow", b, newSize, placement)
	if err != nil {
		return b, err
	}
	if init == Zeroed {
		clear(grown.Bytes()[b.size:])
	}
	return grown, nil
}

// Shrink reduces b to newSize bytes. Placement has the same meaning as in
// Grow.
func (a *SysAlloc) Shrink(b MemoryBlock, newSize uintptr, placement Placement) (MemoryBlock, error) {
	if b.IsZero() || newSize == 0 || newSize > b.size {
		return b, &AllocError{Op: "shrink", Layout: b.Layout(), NewSize: newSize, Kind: KindInvalidResize}
	}
	if newSize == b.size {
		return b, nil
	}
	return a.resize("shrink", b, newSize, placement)
}

// Realloc resizes b in either direction and may move it.
func (a *SysAlloc) Realloc(b MemoryBlock, newSize uintptr) (MemoryBlock, error) {
	if newSize >= b.size {
		return a.Grow(b, newSize, MayMove, Uninitialized)
	}
	return a.Shrink(b, newSize, MayMove)
}

// Free releases b. The handle must not be used afterwards.
func (a *SysAlloc) Free(b MemoryBlock) {
	if b.IsZero() {
		return
	}
	a.platform.Free(b.ptr, b.size)
	a.track(-1, -int64(b.size))
	a.frees.Add(1)
}

func (a *SysAlloc) resize(op string, b MemoryBlock, newSize uintptr, placement Placement) (MemoryBlock, error) {
	if a.fastPath(b.align, newSize) && a.platform.CanResize() {
		if placement == InPlace && !a.platform.CanResizeInPlace() {
			return b, &AllocError{Op: op, Layout: b.Layout(), NewSize: newSize, Kind: KindRelocationRequired, Err: errNoInPlace}
		}
		ptr, granted, err := a.platform.Resize(b.ptr, b.size, newSize, placement == InPlace)
		if err != nil {
			kind := KindOutOfMemory
			if placement == InPlace {
				kind = KindRelocationRequired
			}
			return b, &AllocError{Op: op, Layout: b.Layout(), NewSize: newSize, Kind: kind, Err: err}
		}
		a.track(0, int64(granted)-int64(b.size))
		return MemoryBlock{ptr: ptr, size: granted, align: b.align}, nil
	}

	// allocate-copy-free always moves the data.
	if placement == InPlace {
		return b, &AllocError{Op: op, Layout: b.Layout(), NewSize: newSize, Kind: KindRelocationRequired}
	}
	return a.reallocFallback(b, newSize)
}

// reallocFallback allocates a new block of newSize bytes with b's
// alignment, copies min(old, new) bytes and frees b. It is the only
// relocation path for blocks the platform cannot resize natively.
func (a *SysAlloc) reallocFallback(b MemoryBlock, newSize uintptr) (MemoryBlock, error) {
	if b.size == newSize {
		return b, nil
	}
	moved, err := a.Alloc(Layout{Size: newSize, Align: b.align}, Uninitialized)
	if err != nil {
		return b, err
	}
	copy(moved.Bytes(), b.Bytes())
	a.Free(b)
	a.fallbacks.Add(1)
	log.Debugf("realloc fallback %s -> %d bytes", b.Layout(), newSize)
	return moved, nil
}

func (a *SysAlloc) track(blocks, bytes int64) {
	if blocks != 0 {
		a.liveBlocks.Add(blocks)
	}
	a.liveBytes.Add(bytes)
}

// Stats is a snapshot of allocator accounting.
type Stats struct {
	Platform   string
	LiveBlocks int64
	LiveBytes  int64
	Allocs     uint64
	Frees      uint64
	Fallbacks  uint64
}

// Stats returns current accounting counters.
func (a *SysAlloc) Stats() Stats {
	return Stats{
		Platform:   a.platform.Name(),
		LiveBlocks: a.liveBlocks.Load(),
		LiveBytes:  a.liveBytes.Load(),
		Allocs:     a.allocs.Load(),
		Frees:      a.frees.Load(),
		Fallbacks:  a.fallbacks.Load(),
	}
}
