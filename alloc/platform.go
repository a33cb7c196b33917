package alloc

import (
	"fmt"
	"unsafe"
)

// Platform is the platform-specific allocate/resize/free seam. It is the
// only platform-dependent part of the runtime core.
//
// Sizes returned by a Platform are granted sizes and may exceed the request.
// Free and Resize receive the granted size of the block.
type Platform interface {
	Name() string

	// MinAlign is the alignment every plain Malloc result already has.
	MinAlign() uintptr
	// MaxAlign is the largest alignment AlignedAlloc supports.
	MaxAlign() uintptr

	// CanResize reports whether Resize is implemented natively.
	CanResize() bool
	// CanResizeInPlace reports whether Resize can guarantee no relocation
	// when asked to.
	CanResizeInPlace() bool

	Malloc(size uintptr) (unsafe.Pointer, uintptr, error)
	AlignedAlloc(size, align uintptr) (unsafe.Pointer, uintptr, error)
	Resize(ptr unsafe.Pointer, oldSize, newSize uintptr, inPlace bool) (unsafe.Pointer, uintptr, error)
	Free(ptr unsafe.Pointer, size uintptr)
}

// Platform backend names accepted by PlatformByName.
const (
	BackendHeap = "heap"
	BackendMmap = "mmap"
)

// PlatformByName returns a fresh backend for name.
func PlatformByName(name string) (Platform, error) {
	switch name {
	case "", BackendHeap:
		return NewHeapPlatform(), nil
	case BackendMmap:
		return newMmapPlatform()
	default:
		return nil, fmt.Errorf("alloc: unknown platform backend %q", name)
	}
}
