// Package atom implements the process-wide atom table.
package atom

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"unicode/utf8"
)

// Index is the dense position of an atom in a Table.
type Index uint64

const (
	// MaxIndex is the largest index an atom term can carry: the payload
	// of a word with a 6-bit immediate tag.
	MaxIndex Index = math.MaxUint64 >> 6

	// MaxNameLength is the longest atom name, in characters.
	MaxNameLength = 255

	// DefaultLimit is the atom count of a table built with NewTable.
	DefaultLimit = 1 << 20
)

var (
	ErrTableFull   = errors.New("atom table is full")
	ErrNameTooLong = errors.New("atom name too long")
)

// Table interns atom names to dense indices. Atoms are never freed, so the
// table is bounded; a full table refuses new names instead of growing.
// A node shares one Table across all schedulers; it is safe for concurrent
// use.
type Table struct {
	limit Index

	mu     sync.RWMutex
	byName map[string]Index
	names  []string
}

// NewTable creates an empty table holding up to DefaultLimit atoms.
func NewTable() *Table {
	return NewLimitedTable(DefaultLimit)
}

// NewLimitedTable creates an empty table holding up to limit atoms. Limits
// past MaxIndex+1 are clamped.
func NewLimitedTable(limit uint64) *Table {
	if limit > uint64(MaxIndex)+1 || limit == 0 {
		limit = uint64(MaxIndex) + 1
	}
	return &Table{
		limit:  Index(limit),
		byName: make(map[string]Index),
		names:  make([]string, 0, 256),
	}
}

// Intern returns the index for name, inserting it if absent.
func (t *Table) Intern(name string) (Index, error) {
	if idx, ok := t.Lookup(name); ok {
		return idx, nil
	}
	if n := utf8.RuneCountInString(name); n > MaxNameLength {
		return 0, fmt.Errorf("intern %.16q...: %d characters: %w", name, n, ErrNameTooLong)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if idx, ok := t.byName[name]; ok {
		return idx, nil
	}
	next := Index(len(t.names))
	if next >= t.limit || next > MaxIndex {
		return 0, fmt.Errorf("intern %q: %d atoms: %w", name, len(t.names), ErrTableFull)
	}
	t.byName[name] = next
	t.names = append(t.names, name)
	return next, nil
}

// Lookup returns the index of an already interned name.
func (t *Table) Lookup(name string) (Index, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	idx, ok := t.byName[name]
	return idx, ok
}

// Name returns the name interned at idx.
func (t *Table) Name(idx Index) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if idx >= Index(len(t.names)) {
		return "", false
	}
	return t.names[idx], true
}

// Resolve is Name for indices taken from atom terms, which only Intern
// hands out. An unknown index panics.
func (t *Table) Resolve(idx Index) string {
	name, ok := t.Name(idx)
	if !ok {
		panic(fmt.Sprintf("atom: index %d out of range (table has %d atoms)", idx, t.Len()))
	}
	return name
}

// Len returns the number of interned atoms.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.names)
}

// Limit returns the most atoms t will hold.
func (t *Table) Limit() uint64 { return uint64(t.limit) }

// All returns all names in index order.
func (t *Table) All() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]string(nil), t.names...)
}
