// Package alloc implements the system allocator that backs every process
// heap.
//
// The allocator hands out MemoryBlock handles carrying the address, the
// granted size and the alignment of a block. Requests whose alignment is
// within the platform's natural minimum take the platform's plain
// allocate/resize/free primitives; larger alignments use the aligned
// primitive, and resizes of such blocks go through a single shared
// allocate-copy-free fallback.
//
// Every operation returns an *AllocError instead of aborting. Only Global
// turns a failure into a panic.
package alloc
