//go:build unix

package alloc

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

func pageSize() uintptr { return uintptr(unix.Getpagesize()) }

// mapPages maps n bytes of zeroed anonymous memory aligned to align. n must
// be a whole number of pages. Alignments above the page size over-map by
// align bytes and unmap the unaligned head and the unused tail.
func mapPages(n, align uintptr) (unsafe.Pointer, error) {
	if align <= pageSize() {
		return mmap(n)
	}
	total := n + align
	base, err := mmap(total)
	if err != nil {
		return nil, err
	}
	head := roundUp(uintptr(base), align) - uintptr(base)
	tail := total - head - n
	if head > 0 {
		if err := unix.MunmapPtr(base, head); err != nil {
			log.Warningf("munmap head of aligned mapping: %s", err)
		}
	}
	if tail > 0 {
		if err := unix.MunmapPtr(unsafe.Add(base, head+n), tail); err != nil {
			log.Warningf("munmap tail of aligned mapping: %s", err)
		}
	}
	return unsafe.Add(base, head), nil
}

func unmapPages(ptr unsafe.Pointer, n uintptr) error {
	return unix.MunmapPtr(ptr, n)
}

func mmap(n uintptr) (unsafe.Pointer, error) {
	return unix.MmapPtr(-1, 0, nil, n, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
}
