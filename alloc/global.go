package alloc

// Global adapts a SysAlloc for callers that cannot handle allocation
// failure. It is the one place where an *AllocError becomes an abort.
type Global struct {
	sys *SysAlloc
}

// NewGlobal wraps sys.
func NewGlobal(sys *SysAlloc) *Global {
	return &Global{sys: sys}
}

func (g *Global) Alloc(layout Layout) MemoryBlock {
	return g.must(g.sys.Alloc(layout, Uninitialized))
}

func (g *Global) AllocZeroed(layout Layout) MemoryBlock {
	return g.must(g.sys.Alloc(layout, Zeroed))
}

func (g *Global) Realloc(b MemoryBlock, newSize uintptr) MemoryBlock {
	return g.must(g.sys.Realloc(b, newSize))
}

func (g *Global) Free(b MemoryBlock) {
	g.sys.Free(b)
}

func (g *Global) must(b MemoryBlock, err error) MemoryBlock {
	if err != nil {
		log.Criticalf("aborting: %s", err)
		panic(err)
	}
	return b
}
