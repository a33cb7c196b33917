package term

import "fmt"

// Size returns the number of heap words CopyTo needs for t.
func Size(t Term) int {
	switch {
	case t.IsImmediate():
		return 0
	case t.IsList():
		n := 0
		for t.IsList() {
			n += 2 + Size(t.Head())
			t = t.Tail()
		}
		return n + Size(t)
	}
	h := wordAt(t.addr())
	body, termStart, termCount := layoutOf(h)
	n := 1 + body
	for _, child := range termsAt(t.addr()+wordBytes+uintptr(termStart*wordBytes), termCount) {
		n += Size(child)
	}
	return n
}

// CopyTo deep-copies t onto dst so that it no longer refers to its source
// heap. Immediates are returned as is. Reference-counted binaries are
// shared: the copy takes a new reference and dst holds it.
func CopyTo(dst Heap, t Term) (Term, error) {
	switch {
	case t.IsImmediate():
		return t, nil
	case t.IsList():
		return copyList(dst, t)
	}

	h := wordAt(t.addr())
	tag := Tag(h & headerTagMask)
	if tag == TagBinaryAggregate {
		panic(fmt.Sprintf("term: cannot copy %s", tag))
	}
	body, termStart, termCount := layoutOf(h)
	words, err := dst.AllocWords(1 + body)
	if err != nil {
		return 0, err
	}
	copy(words, wordsAt(t.addr(), 1+body))

	if tag == TagReferenceCountedBinary {
		addr := uintptr(words[1])
		dst.Binaries().Retain(addr)
		dst.Hold(addr)
	}
	for i := termStart; i < termStart+termCount; i++ {
		child, err := CopyTo(dst, Term(words[1+i]))
		if err != nil {
			return 0, err
		}
		words[1+i] = uint64(child)
	}
	return boxed(addrOf(words)), nil
}

// copyList copies cell by cell so long lists do not recurse.
func copyList(dst Heap, t Term) (Term, error) {
	var first Term
	var prev []uint64
	for t.IsList() {
		cell, err := dst.AllocWords(2)
		if err != nil {
			return 0, err
		}
		head, err := CopyTo(dst, t.Head())
		if err != nil {
			return 0, err
		}
		cell[0] = uint64(head)
		cell[1] = uint64(EmptyList)
		link := list(addrOf(cell))
		if prev == nil {
			first = link
		} else {
			prev[1] = uint64(link)
		}
		prev = cell
		t = t.Tail()
	}
	tail, err := CopyTo(dst, t)
	if err != nil {
		return 0, err
	}
	prev[1] = uint64(tail)
	return first, nil
}
