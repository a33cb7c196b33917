//go:build !unix

package alloc

import (
	"os"
	"sync"
	"unsafe"
)

// Without mmap, pages are carved from Go word arrays that regions keeps
// reachable until unmapped. Terms hold these addresses as integers, which
// the race detector's pointer checks reject; race-test on unix.
var regions = struct {
	sync.Mutex
	m map[uintptr][]uint64
}{m: make(map[uintptr][]uint64)}

func pageSize() uintptr { return uintptr(os.Getpagesize()) }

func mapPages(n, align uintptr) (unsafe.Pointer, error) {
	buf := make([]uint64, roundUp(n+align, wordSize)/wordSize)
	base := unsafe.Pointer(&buf[0])
	ptr := unsafe.Add(base, roundUp(uintptr(base), align)-uintptr(base))
	regions.Lock()
	regions.m[uintptr(ptr)] = buf
	regions.Unlock()
	return ptr, nil
}

func unmapPages(ptr unsafe.Pointer, _ uintptr) error {
	regions.Lock()
	delete(regions.m, uintptr(ptr))
	regions.Unlock()
	return nil
}
