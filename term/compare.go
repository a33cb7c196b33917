package term

import (
	"bytes"
	"cmp"
	"fmt"
	"math/big"
	"slices"
	"strings"
)

// class is a term's rank in the global order:
// number < atom < reference < function < port < pid < tuple < map < list < bitstring.
type class int

const (
	classNumber class = iota
	classAtom
	classReference
	classFunction
	classPort
	classPid
	classTuple
	classMap
	classList
	classBitstring
)

func classOf(t Term) class {
	switch kind := t.Kind(); kind {
	case TagSmallInteger, TagPositiveBigNumber, TagNegativeBigNumber, TagFloat:
		return classNumber
	case TagAtom:
		return classAtom
	case TagReference, TagExternalReference:
		return classReference
	case TagFunction, TagExport:
		return classFunction
	case TagLocalPort, TagExternalPort:
		return classPort
	case TagLocalPid, TagExternalPid:
		return classPid
	case TagArity:
		return classTuple
	case TagMap:
		return classMap
	case TagList, TagEmptyList:
		return classList
	case TagHeapBinary, TagReferenceCountedBinary, TagSubbinary:
		return classBitstring
	default:
		panic(fmt.Sprintf("term: %s is not a comparable value", kind))
	}
}

// Compare orders a and b arithmetically: 1 and 1.0 are equal. It returns
// -1, 0 or 1.
func (e *Env) Compare(a, b Term) int {
	return e.compare(a, b, false)
}

// CompareExact orders a and b so that an integer sorts below a float of the
// same value. Map keys are ordered this way.
func (e *Env) CompareExact(a, b Term) int {
	return e.compare(a, b, true)
}

// Equal is arithmetic equality (==).
func (e *Env) Equal(a, b Term) bool {
	return e.compare(a, b, false) == 0
}

// ExactEqual is exact equality (=:=).
func (e *Env) ExactEqual(a, b Term) bool {
	return e.compare(a, b, true) == 0
}

// Less reports whether a sorts before b.
func (e *Env) Less(a, b Term) bool {
	return e.compare(a, b, false) < 0
}

// Sort sorts terms in place, stably, in arithmetic order.
func (e *Env) Sort(terms []Term) {
	slices.SortStableFunc(terms, e.Compare)
}

func (e *Env) compare(a, b Term, exact bool) int {
	if a == b && !a.IsCatchPointer() {
		return 0
	}
	ca, cb := classOf(a), classOf(b)
	if ca != cb {
		return cmp.Compare(ca, cb)
	}
	switch ca {
	case classNumber:
		return compareNumbers(a, b, exact)
	case classAtom:
		return strings.Compare(e.AtomName(a), e.AtomName(b))
	case classReference, classPort, classPid:
		return e.compareIdentities(a.identityOf(), b.identityOf())
	case classFunction:
		return e.compareFunctions(a, b, exact)
	case classTuple:
		ea, eb := a.TupleElements(), b.TupleElements()
		if c := cmp.Compare(len(ea), len(eb)); c != 0 {
			return c
		}
		return e.compareSeq(ea, eb, exact)
	case classMap:
		return e.compareMaps(a, b, exact)
	case classList:
		return e.compareLists(a, b, exact)
	default:
		return compareBitstrings(a, b)
	}
}

func (e *Env) compareSeq(a, b []Term, exact bool) int {
	for i := range min(len(a), len(b)) {
		if c := e.compare(a[i], b[i], exact); c != 0 {
			return c
		}
	}
	return cmp.Compare(len(a), len(b))
}

// ---------------------------------------------------------------------------
// Numbers
// ---------------------------------------------------------------------------

// maxExactFloatInt bounds the integers that convert to float64 exactly.
const maxExactFloatInt = 1 << 53

func compareNumbers(a, b Term, exact bool) int {
	switch {
	case a.IsSmallInteger() && b.IsSmallInteger():
		return cmp.Compare(a.SmallInteger(), b.SmallInteger())
	case a.IsFloat() && b.IsFloat():
		return cmp.Compare(a.Float64(), b.Float64())
	case a.IsFloat():
		return -compareIntFloat(b, a.Float64(), exact)
	case b.IsFloat():
		return compareIntFloat(a, b.Float64(), exact)
	default:
		return a.BigInt().Cmp(b.BigInt())
	}
}

// compareIntFloat compares by exact mathematical value; no rounding is
// involved at any magnitude.
func compareIntFloat(i Term, f float64, exact bool) int {
	var c int
	if i.IsSmallInteger() && i.SmallInteger() >= -maxExactFloatInt && i.SmallInteger() <= maxExactFloatInt {
		c = cmp.Compare(float64(i.SmallInteger()), f)
	} else {
		c = new(big.Float).SetInt(i.BigInt()).Cmp(big.NewFloat(f))
	}
	if c == 0 && exact {
		return -1
	}
	return c
}

// ---------------------------------------------------------------------------
// Identifiers and functions
// ---------------------------------------------------------------------------

func (e *Env) compareIdentities(a, b Identity) int {
	na, nb := a.Node, b.Node
	if na == 0 {
		na = e.node
	}
	if nb == 0 {
		nb = e.node
	}
	if na != nb {
		if c := strings.Compare(e.AtomName(na), e.AtomName(nb)); c != 0 {
			return c
		}
	}
	for i := range min(a.Length, b.Length) {
		if c := cmp.Compare(a.Words[i], b.Words[i]); c != 0 {
			return c
		}
	}
	return cmp.Compare(a.Length, b.Length)
}

func (e *Env) compareFunctions(a, b Term, exact bool) int {
	pa, pb := a.FunctionParts(), b.FunctionParts()
	if c := strings.Compare(e.AtomName(pa[0]), e.AtomName(pb[0])); c != 0 {
		return c
	}
	ea, eb := a.BoxedTag() == TagExport, b.BoxedTag() == TagExport
	if ea != eb {
		if ea {
			return -1
		}
		return 1
	}
	if ea {
		if c := strings.Compare(e.AtomName(pa[1]), e.AtomName(pb[1])); c != 0 {
			return c
		}
		return cmp.Compare(pa[2].SmallInteger(), pb[2].SmallInteger())
	}
	if c := cmp.Compare(pa[1].SmallInteger(), pb[1].SmallInteger()); c != 0 {
		return c
	}
	if c := cmp.Compare(pa[2].SmallInteger(), pb[2].SmallInteger()); c != 0 {
		return c
	}
	return e.compareSeq(pa[3:], pb[3:], exact)
}

// ---------------------------------------------------------------------------
// Containers
// ---------------------------------------------------------------------------

func (e *Env) compareMaps(a, b Term, exact bool) int {
	ka, va := a.MapEntries()
	kb, vb := b.MapEntries()
	if c := cmp.Compare(len(ka), len(kb)); c != 0 {
		return c
	}
	if c := e.compareSeq(ka, kb, true); c != 0 {
		return c
	}
	return e.compareSeq(va, vb, exact)
}

func (e *Env) compareLists(a, b Term, exact bool) int {
	for {
		switch {
		case a.IsEmptyList() && b.IsEmptyList():
			return 0
		case a.IsEmptyList():
			return -1
		case b.IsEmptyList():
			return 1
		}
		if c := e.compare(a.Head(), b.Head(), exact); c != 0 {
			return c
		}
		a, b = a.Tail(), b.Tail()
		if !a.IsList() || !b.IsList() {
			return e.compare(a, b, exact)
		}
	}
}

func compareBitstrings(a, b Term) int {
	da, la := a.Bits()
	db, lb := b.Bits()
	n := min(la, lb)
	full := n / 8
	if c := bytes.Compare(da[:full], db[:full]); c != 0 {
		return c
	}
	if rem := n % 8; rem != 0 {
		mask := byte(0xFF << (8 - rem))
		if c := cmp.Compare(da[full]&mask, db[full]&mask); c != 0 {
			return c
		}
	}
	return cmp.Compare(la, lb)
}
