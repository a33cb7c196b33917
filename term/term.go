package term

import (
	"fmt"
	"math"
	"unsafe"

	"github.com/chazu/ember/atom"
)

// Term is a tagged machine word.
type Term uint64

// EmptyList is the [] term.
const EmptyList = Term(TagEmptyList)

// SmallInteger range: every bit above the 4-bit tag.
const (
	MinSmallInteger int64 = math.MinInt64 >> immediateTagBits
	MaxSmallInteger int64 = math.MaxInt64 >> immediateTagBits
)

// Payload limits of the other immediates.
const (
	MaxAtomIndex      atom.Index = atom.MaxIndex
	MaxLocalNumber    uint64     = math.MaxUint64 >> immediateTagBits
	MaxHeaderPayload  uint64     = math.MaxUint64 >> headerTagBits
	maxCatchPointer   uint64     = math.MaxUint64 >> immediate6TagBits
	pointerTagMask    uint64     = primaryTagMask
	wordBytes                    = 8
	wordBits                     = 64
	heapBinaryMaxSize            = 64
)

// Tag decodes the word's tag. An unrecognized bit pattern means the word
// is corrupt and Tag panics with a *TagError.
func (t Term) Tag() Tag {
	tag, err := decodeTag(uint64(t))
	if err != nil {
		panic(err)
	}
	return tag
}

func (t Term) String() string {
	tag, err := decodeTag(uint64(t))
	if err != nil {
		return fmt.Sprintf("Term(%#x, invalid)", uint64(t))
	}
	return fmt.Sprintf("Term(%#x, %s)", uint64(t), tag)
}

// ---------------------------------------------------------------------------
// Overflow errors
// ---------------------------------------------------------------------------

// SmallIntegerOverflow is returned when an integer does not fit in the
// immediate. Callers promote to a bignum instead.
type SmallIntegerOverflow struct {
	Value int64
}

func (e *SmallIntegerOverflow) Error() string {
	return fmt.Sprintf("integer (%d) does not fit in small integer range (%d..%d)",
		e.Value, MinSmallInteger, MaxSmallInteger)
}

// AtomIndexOverflow is returned when an atom table index does not fit in
// the immediate.
type AtomIndexOverflow struct {
	Index atom.Index
}

func (e *AtomIndexOverflow) Error() string {
	return fmt.Sprintf("index (%d) in atom table exceeds max index that can be tagged as an atom in a Term (%d)",
		e.Index, MaxAtomIndex)
}

// LocalNumberOverflow is returned when a local pid or port number does not
// fit in the immediate.
type LocalNumberOverflow struct {
	Kind   string
	Number uint64
}

func (e *LocalNumberOverflow) Error() string {
	return fmt.Sprintf("%s number (%d) exceeds max local %s number (%d)", e.Kind, e.Number, e.Kind, MaxLocalNumber)
}

// FloatNotFinite is returned for NaN and infinities, which have no place in
// the term order.
type FloatNotFinite struct {
	Value float64
}

func (e *FloatNotFinite) Error() string {
	return fmt.Sprintf("float %v is not finite", e.Value)
}

// ---------------------------------------------------------------------------
// Immediates
// ---------------------------------------------------------------------------

// FromSmallInteger encodes n as an immediate.
func FromSmallInteger(n int64) (Term, error) {
	if n < MinSmallInteger || n > MaxSmallInteger {
		return 0, &SmallIntegerOverflow{Value: n}
	}
	return Term(uint64(n)<<immediateTagBits | uint64(TagSmallInteger)), nil
}

// MustSmallInteger is FromSmallInteger for values known to be in range.
func MustSmallInteger(n int64) Term {
	t, err := FromSmallInteger(n)
	if err != nil {
		panic(err)
	}
	return t
}

// IsSmallInteger returns true if t is an immediate integer.
func (t Term) IsSmallInteger() bool {
	return uint64(t)&immediateTagMask == uint64(TagSmallInteger)
}

// SmallInteger returns the value of an immediate integer.
// Panics if t is not a small integer.
func (t Term) SmallInteger() int64 {
	if !t.IsSmallInteger() {
		panic("Term.SmallInteger: not a small integer")
	}
	return int64(t) >> immediateTagBits
}

// FromAtomIndex encodes an atom table index.
func FromAtomIndex(idx atom.Index) (Term, error) {
	if idx > MaxAtomIndex {
		return 0, &AtomIndexOverflow{Index: idx}
	}
	return Term(uint64(idx)<<immediate6TagBits | uint64(TagAtom)), nil
}

// IsAtom returns true if t is an atom.
func (t Term) IsAtom() bool {
	return uint64(t)&immediate6TagMask == uint64(TagAtom)
}

// AtomIndex returns the atom table index of an atom.
// Panics if t is not an atom.
func (t Term) AtomIndex() atom.Index {
	if !t.IsAtom() {
		panic("Term.AtomIndex: not an atom")
	}
	return atom.Index(uint64(t) >> immediate6TagBits)
}

// FromLocalPid encodes a local process identifier.
func FromLocalPid(n uint64) (Term, error) {
	if n > MaxLocalNumber {
		return 0, &LocalNumberOverflow{Kind: "pid", Number: n}
	}
	return Term(n<<immediateTagBits | uint64(TagLocalPid)), nil
}

// IsLocalPid returns true if t is a local pid.
func (t Term) IsLocalPid() bool {
	return uint64(t)&immediateTagMask == uint64(TagLocalPid)
}

// PidNumber returns the number of a local pid.
// Panics if t is not a local pid.
func (t Term) PidNumber() uint64 {
	if !t.IsLocalPid() {
		panic("Term.PidNumber: not a local pid")
	}
	return uint64(t) >> immediateTagBits
}

// FromLocalPort encodes a local port identifier.
func FromLocalPort(n uint64) (Term, error) {
	if n > MaxLocalNumber {
		return 0, &LocalNumberOverflow{Kind: "port", Number: n}
	}
	return Term(n<<immediateTagBits | uint64(TagLocalPort)), nil
}

// IsLocalPort returns true if t is a local port.
func (t Term) IsLocalPort() bool {
	return uint64(t)&immediateTagMask == uint64(TagLocalPort)
}

// PortNumber returns the number of a local port.
// Panics if t is not a local port.
func (t Term) PortNumber() uint64 {
	if !t.IsLocalPort() {
		panic("Term.PortNumber: not a local port")
	}
	return uint64(t) >> immediateTagBits
}

// FromCatchPointer encodes a catch handler address. Catch pointers live on
// process stacks only and are not values.
func FromCatchPointer(addr uintptr) (Term, error) {
	if uint64(addr) > maxCatchPointer {
		return 0, fmt.Errorf("catch pointer %#x exceeds %d bits", addr, wordBits-immediate6TagBits)
	}
	return Term(uint64(addr)<<immediate6TagBits | uint64(TagCatchPointer)), nil
}

// IsCatchPointer returns true if t is a catch pointer.
func (t Term) IsCatchPointer() bool {
	return uint64(t)&immediate6TagMask == uint64(TagCatchPointer)
}

// CatchAddr returns the handler address of a catch pointer.
// Panics if t is not a catch pointer.
func (t Term) CatchAddr() uintptr {
	if !t.IsCatchPointer() {
		panic("Term.CatchAddr: not a catch pointer")
	}
	return uintptr(uint64(t) >> immediate6TagBits)
}

// IsEmptyList returns true if t is [].
func (t Term) IsEmptyList() bool {
	return t == EmptyList
}

// IsImmediate returns true if t needs no heap storage.
func (t Term) IsImmediate() bool {
	return uint64(t)&primaryTagMask == 0b11
}

// ---------------------------------------------------------------------------
// Pointers
// ---------------------------------------------------------------------------

// IsList returns true if t points at a cons cell. The empty list is not a
// cons cell.
func (t Term) IsList() bool {
	return uint64(t)&primaryTagMask == uint64(TagList)
}

// IsBoxed returns true if t points at a header word.
func (t Term) IsBoxed() bool {
	return uint64(t)&primaryTagMask == uint64(TagBoxed)
}

func (t Term) addr() uintptr {
	return uintptr(uint64(t) &^ pointerTagMask)
}

func boxed(addr uintptr) Term { return Term(uint64(addr) | uint64(TagBoxed)) }
func list(addr uintptr) Term  { return Term(uint64(addr) | uint64(TagList)) }

// wordAt reads the heap word at addr.
func wordAt(addr uintptr) uint64 {
	return *(*uint64)(pointer(addr))
}

// wordsAt views n heap words starting at addr.
func wordsAt(addr uintptr, n int) []uint64 {
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*uint64)(pointer(addr)), n)
}

// termsAt views n heap words starting at addr as terms.
func termsAt(addr uintptr, n int) []Term {
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*Term)(pointer(addr)), n)
}

// header builds a header word.
func header(tag Tag, payload uint64) uint64 {
	return payload<<headerTagBits | uint64(tag)
}

func headerPayload(h uint64) uint64 {
	return h >> headerTagBits
}

// BoxedTag returns the header tag of the data t points at.
// Panics if t is not boxed.
func (t Term) BoxedTag() Tag {
	if !t.IsBoxed() {
		panic("Term.BoxedTag: not boxed")
	}
	tag := Term(wordAt(t.addr())).Tag()
	if !tag.IsHeader() {
		panic(fmt.Sprintf("Term.BoxedTag: boxed word %#x points at non-header %s", uint64(t), tag))
	}
	return tag
}

// isBoxedTag reports whether t is boxed with the given header tag.
func (t Term) isBoxedTag(tag Tag) bool {
	return t.IsBoxed() && t.BoxedTag() == tag
}

// Kind returns the effective variant of t: the header tag for boxed terms,
// the word's own tag otherwise.
func (t Term) Kind() Tag {
	if t.IsBoxed() {
		return t.BoxedTag()
	}
	return t.Tag()
}
