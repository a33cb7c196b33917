package alloc

import (
	"fmt"
	"math/bits"
	"unsafe"
)

// Layout describes a memory request.
type Layout struct {
	Size  uintptr
	Align uintptr
}

// NewLayout validates size and alignment. Align must be a power of two and
// size must be non-zero.
func NewLayout(size, align uintptr) (Layout, error) {
	l := Layout{Size: size, Align: align}
	if err := l.validate(); err != nil {
		return Layout{}, err
	}
	return l, nil
}

// WordLayout returns a layout for n 64-bit words.
func WordLayout(n int) Layout {
	return Layout{Size: uintptr(n) * wordSize, Align: wordSize}
}

func (l Layout) validate() error {
	if l.Size == 0 {
		return &AllocError{Op: "layout", Layout: l, Kind: KindInvalidLayout}
	}
	if l.Align == 0 || bits.OnesCount64(uint64(l.Align)) != 1 {
		return &AllocError{Op: "layout", Layout: l, Kind: KindInvalidLayout}
	}
	return nil
}

func (l Layout) String() string {
	return fmt.Sprintf("{size: %d, align: %d}", l.Size, l.Align)
}

const wordSize = unsafe.Sizeof(uint64(0))

// Init selects whether fresh memory must be zero-filled.
type Init int

const (
	Uninitialized Init = iota
	Zeroed
)

// Placement constrains whether a resize may relocate the block.
type Placement int

const (
	MayMove Placement = iota
	InPlace
)

func (p Placement) String() string {
	if p == InPlace {
		return "in-place"
	}
	return "may-move"
}

// MemoryBlock is the handle returned by the allocator. The zero value is
// not a valid block. Blocks are only constructed by SysAlloc.
type MemoryBlock struct {
	ptr   unsafe.Pointer
	size  uintptr
	align uintptr
}

// Addr returns the block's start address.
func (b MemoryBlock) Addr() uintptr { return uintptr(b.ptr) }

// Size returns the granted size, which is never less than the requested size.
func (b MemoryBlock) Size() uintptr { return b.size }

// Align returns the alignment the block was allocated with.
func (b MemoryBlock) Align() uintptr { return b.align }

// Layout returns the layout that must be used to free or resize the block.
func (b MemoryBlock) Layout() Layout { return Layout{Size: b.size, Align: b.align} }

// IsZero reports whether b is the zero handle.
func (b MemoryBlock) IsZero() bool { return b.ptr == nil }

// Bytes returns the block as a byte slice.
func (b MemoryBlock) Bytes() []byte {
	if b.ptr == nil {
		return nil
	}
	return unsafe.Slice((*byte)(b.ptr), b.size)
}

// Words returns the block as a slice of 64-bit words. Trailing bytes that
// do not fill a whole word are not included.
func (b MemoryBlock) Words() []uint64 {
	if b.ptr == nil || b.size < wordSize {
		return nil
	}
	return unsafe.Slice((*uint64)(b.ptr), b.size/wordSize)
}

func (b MemoryBlock) String() string {
	return fmt.Sprintf("block{addr: %#x, size: %d, align: %d}", b.Addr(), b.size, b.align)
}

func roundUp(n, align uintptr) uintptr {
	return (n + align - 1) &^ (align - 1)
}
