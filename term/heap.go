package term

import "unsafe"

// Heap is where boxed data and cons cells live. Process heaps and message
// fragments implement it; it is the only way the library layer creates
// non-immediate terms.
type Heap interface {
	// AllocWords returns n fresh words. The words must not move for the
	// lifetime of the heap.
	AllocWords(n int) ([]uint64, error)
	// Binaries returns the store for reference-counted binaries.
	Binaries() *BinaryStore
	// Hold records that the heap owns one reference to the off-heap
	// binary at addr and must release it when freed.
	Hold(addr uintptr)
}

func addrOf(words []uint64) uintptr {
	return uintptr(unsafe.Pointer(&words[0]))
}

// pointer turns a term address back into a pointer. Addresses come from
// the system allocator, whose memory lies outside the Go heap, so the
// collector never moves or frees what they point at.
func pointer(addr uintptr) unsafe.Pointer {
	return *(*unsafe.Pointer)(unsafe.Pointer(&addr))
}

// layoutOf describes the body that follows a header word: its length in
// words, and which of those words hold terms (the rest are raw data).
func layoutOf(h uint64) (body, termStart, termCount int) {
	payload := int(headerPayload(h))
	switch tag := Tag(h & headerTagMask); tag {
	case TagArity, TagFunction, TagExport:
		return payload, 0, payload
	case TagMap:
		return 2 * payload, 0, 2 * payload
	case TagFloat, TagPositiveBigNumber, TagNegativeBigNumber, TagReference:
		return payload, 0, 0
	case TagExternalPid, TagExternalPort, TagExternalReference:
		return payload, 0, 1
	case TagHeapBinary:
		return int((headerPayload(h) + wordBits - 1) / wordBits), 0, 0
	case TagReferenceCountedBinary:
		return 1, 0, 0
	case TagSubbinary:
		return 3, 0, 1
	default:
		panic("term: no heap layout for " + tag.String())
	}
}
