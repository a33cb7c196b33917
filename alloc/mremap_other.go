//go:build unix && !linux

package alloc

import "unsafe"

const canMremap = false

func mremap(unsafe.Pointer, uintptr, uintptr, bool) (unsafe.Pointer, error) {
	return nil, errNoResize
}
