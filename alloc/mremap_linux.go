//go:build linux

package alloc

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

const canMremap = true

// mremap without MREMAP_MAYMOVE either resizes the mapping where it is or
// fails with ENOMEM.
func mremap(ptr unsafe.Pointer, oldLen, newLen uintptr, inPlace bool) (unsafe.Pointer, error) {
	flags := unix.MREMAP_MAYMOVE
	if inPlace {
		flags = 0
	}
	return unix.MremapPtr(ptr, oldLen, nil, newLen, flags)
}
