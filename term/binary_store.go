package term

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/chazu/ember/alloc"
)

// BinaryStore owns reference-counted binaries. Large binaries live here,
// outside any process heap, and are shared between heaps by reference.
//
// Each block holds a reference count word, a bit length word and the data.
// blocks keeps the allocator handles so the last Release can free them.
type BinaryStore struct {
	sys *alloc.SysAlloc

	mu     sync.Mutex
	blocks map[uintptr]alloc.MemoryBlock
}

// NewBinaryStore creates a store drawing memory from sys.
func NewBinaryStore(sys *alloc.SysAlloc) *BinaryStore {
	return &BinaryStore{
		sys:    sys,
		blocks: make(map[uintptr]alloc.MemoryBlock),
	}
}

// New copies data into a fresh binary with a reference count of one.
func (s *BinaryStore) New(data []byte, bits uint64) (uintptr, error) {
	block, err := s.sys.Alloc(alloc.WordLayout(2+bytesToWords(len(data))), alloc.Zeroed)
	if err != nil {
		return 0, err
	}
	words := block.Words()
	words[0] = 1
	words[1] = bits
	copy(block.Bytes()[2*wordBytes:], data)

	s.mu.Lock()
	s.blocks[block.Addr()] = block
	s.mu.Unlock()
	return block.Addr(), nil
}

// Retain adds a reference.
func (s *BinaryStore) Retain(addr uintptr) {
	atomic.AddInt64(refCount(addr), 1)
}

// Release drops a reference and frees the binary when it was the last one.
func (s *BinaryStore) Release(addr uintptr) {
	if atomic.AddInt64(refCount(addr), -1) != 0 {
		return
	}
	s.mu.Lock()
	block, ok := s.blocks[addr]
	delete(s.blocks, addr)
	s.mu.Unlock()
	if ok {
		s.sys.Free(block)
	}
}

// Refs returns the current reference count of the binary at addr.
func (s *BinaryStore) Refs(addr uintptr) int64 {
	return atomic.LoadInt64(refCount(addr))
}

// Len returns the number of live binaries.
func (s *BinaryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.blocks)
}

func refCount(addr uintptr) *int64 {
	return (*int64)(pointer(addr))
}

func refcData(addr uintptr) ([]byte, uint64) {
	bits := wordAt(addr + wordBytes)
	n := int((bits + 7) / 8)
	if n == 0 {
		return nil, 0
	}
	return unsafe.Slice((*byte)(pointer(addr+2*wordBytes)), n), bits
}

func bytesToWords(n int) int {
	return (n + wordBytes - 1) / wordBytes
}
