//go:build unix

package alloc

import (
	"unsafe"
)

// MmapPlatform gives every block a mapping of its own, rounded to whole
// pages. On linux resizes go through mremap, which can be told not to move
// the mapping.
type MmapPlatform struct {
	pageSize uintptr
}

// NewMmapPlatform creates an mmap backend for the running system's page size.
func NewMmapPlatform() *MmapPlatform {
	return &MmapPlatform{pageSize: pageSize()}
}

func newMmapPlatform() (Platform, error) {
	return NewMmapPlatform(), nil
}

func (m *MmapPlatform) Name() string           { return BackendMmap }
func (m *MmapPlatform) MinAlign() uintptr      { return m.pageSize }
func (m *MmapPlatform) MaxAlign() uintptr      { return 1 << 31 }
func (m *MmapPlatform) CanResize() bool        { return canMremap }
func (m *MmapPlatform) CanResizeInPlace() bool { return canMremap }

func (m *MmapPlatform) Malloc(size uintptr) (unsafe.Pointer, uintptr, error) {
	return m.AlignedAlloc(size, m.pageSize)
}

func (m *MmapPlatform) AlignedAlloc(size, align uintptr) (unsafe.Pointer, uintptr, error) {
	n := roundUp(size, m.pageSize)
	ptr, err := mapPages(n, max(align, m.pageSize))
	if err != nil {
		return nil, 0, err
	}
	return ptr, n, nil
}

func (m *MmapPlatform) Resize(ptr unsafe.Pointer, oldSize, newSize uintptr, inPlace bool) (unsafe.Pointer, uintptr, error) {
	if !canMremap {
		return nil, 0, errNoResize
	}
	oldLen := roundUp(oldSize, m.pageSize)
	newLen := roundUp(newSize, m.pageSize)
	if oldLen == newLen {
		return ptr, newLen, nil
	}
	newPtr, err := mremap(ptr, oldLen, newLen, inPlace)
	if err != nil {
		return nil, 0, err
	}
	return newPtr, newLen, nil
}

func (m *MmapPlatform) Free(ptr unsafe.Pointer, size uintptr) {
	if err := unmapPages(ptr, roundUp(size, m.pageSize)); err != nil {
		log.Errorf("munmap %#x (%d bytes): %s", uintptr(ptr), size, err)
	}
}
