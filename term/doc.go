// Package term implements the tagged-word term representation.
//
// A Term is one 64-bit word. The low bits hold a tag from a closed set:
//   - 2-bit primary tag: Header (00), List (01), Boxed (10), Immediate (11)
//   - Header words (6 bits) describe heap-resident data: tuples, bignums,
//     floats, references, functions, binaries, external pids/ports/refs, maps
//   - Immediate words (4 bits) hold local pids, local ports, small integers,
//     or a further 6-bit class: atoms, catch pointers and the empty list
//
// List and Boxed words carry the address of a cons cell or of a header word
// in a process heap. The word never owns that memory.
//
// The bit layout is ABI: generated code builds and inspects terms directly,
// so it must not change without a coordinated migration.
package term
