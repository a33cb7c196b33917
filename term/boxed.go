package term

import (
	"fmt"
	"math"
	"math/big"
	"unsafe"
)

// ---------------------------------------------------------------------------
// Numbers
// ---------------------------------------------------------------------------

// Integer returns n as a small integer, or as a bignum on h when it does
// not fit the immediate.
func Integer(h Heap, n int64) (Term, error) {
	if t, err := FromSmallInteger(n); err == nil {
		return t, nil
	}
	return BigInteger(h, big.NewInt(n))
}

// BigInteger stores x on h. Values in the small integer range are returned
// as immediates, so equal integers always have one representation.
func BigInteger(h Heap, x *big.Int) (Term, error) {
	if x.IsInt64() {
		if t, err := FromSmallInteger(x.Int64()); err == nil {
			return t, nil
		}
	}
	mag := new(big.Int).Abs(x).Bytes()
	n := bytesToWords(len(mag))
	words, err := h.AllocWords(1 + n)
	if err != nil {
		return 0, err
	}
	tag := TagPositiveBigNumber
	if x.Sign() < 0 {
		tag = TagNegativeBigNumber
	}
	words[0] = header(tag, uint64(n))
	limbs := words[1:]
	clear(limbs)
	for i := range mag {
		b := mag[len(mag)-1-i]
		limbs[i/wordBytes] |= uint64(b) << (8 * (i % wordBytes))
	}
	return boxed(addrOf(words)), nil
}

// Float stores f on h. NaN and infinities are rejected.
func Float(h Heap, f float64) (Term, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, &FloatNotFinite{Value: f}
	}
	words, err := h.AllocWords(2)
	if err != nil {
		return 0, err
	}
	words[0] = header(TagFloat, 1)
	words[1] = math.Float64bits(f)
	return boxed(addrOf(words)), nil
}

// IsFloat returns true if t is a boxed float.
func (t Term) IsFloat() bool {
	return t.isBoxedTag(TagFloat)
}

// IsBigInteger returns true if t is a boxed bignum.
func (t Term) IsBigInteger() bool {
	if !t.IsBoxed() {
		return false
	}
	tag := t.BoxedTag()
	return tag == TagPositiveBigNumber || tag == TagNegativeBigNumber
}

// IsInteger returns true for small integers and bignums.
func (t Term) IsInteger() bool {
	return t.IsSmallInteger() || t.IsBigInteger()
}

// IsNumber returns true for integers and floats.
func (t Term) IsNumber() bool {
	return t.IsInteger() || t.IsFloat()
}

// Float64 returns the value of a boxed float.
// Panics if t is not a float.
func (t Term) Float64() float64 {
	if !t.IsFloat() {
		panic("Term.Float64: not a float")
	}
	return math.Float64frombits(wordAt(t.addr() + wordBytes))
}

// BigInt returns the value of any integer term.
// Panics if t is not an integer.
func (t Term) BigInt() *big.Int {
	if t.IsSmallInteger() {
		return big.NewInt(t.SmallInteger())
	}
	if !t.IsBigInteger() {
		panic("Term.BigInt: not an integer")
	}
	h := wordAt(t.addr())
	n := int(headerPayload(h))
	limbs := wordsAt(t.addr()+wordBytes, n)
	mag := make([]byte, n*wordBytes)
	for i := 0; i < n*wordBytes; i++ {
		mag[len(mag)-1-i] = byte(limbs[i/wordBytes] >> (8 * (i % wordBytes)))
	}
	x := new(big.Int).SetBytes(mag)
	if Tag(h&headerTagMask) == TagNegativeBigNumber {
		x.Neg(x)
	}
	return x
}

// ---------------------------------------------------------------------------
// Tuples
// ---------------------------------------------------------------------------

// Tuple stores {elems...} on h.
func Tuple(h Heap, elems ...Term) (Term, error) {
	words, err := h.AllocWords(1 + len(elems))
	if err != nil {
		return 0, err
	}
	words[0] = header(TagArity, uint64(len(elems)))
	for i, e := range elems {
		words[1+i] = uint64(e)
	}
	return boxed(addrOf(words)), nil
}

// IsTuple returns true if t is a tuple.
func (t Term) IsTuple() bool {
	return t.isBoxedTag(TagArity)
}

// TupleElements returns the elements of a tuple. The slice aliases heap
// memory.
// Panics if t is not a tuple.
func (t Term) TupleElements() []Term {
	if !t.IsTuple() {
		panic("Term.TupleElements: not a tuple")
	}
	n := int(headerPayload(wordAt(t.addr())))
	return termsAt(t.addr()+wordBytes, n)
}

// ---------------------------------------------------------------------------
// Lists
// ---------------------------------------------------------------------------

// Cons stores [head | tail] on h.
func Cons(h Heap, head, tail Term) (Term, error) {
	words, err := h.AllocWords(2)
	if err != nil {
		return 0, err
	}
	words[0] = uint64(head)
	words[1] = uint64(tail)
	return list(addrOf(words)), nil
}

// List stores a proper list of elems on h.
func List(h Heap, elems ...Term) (Term, error) {
	return ImproperList(h, EmptyList, elems...)
}

// ImproperList stores [elems... | tail] on h as one contiguous run of cells.
func ImproperList(h Heap, tail Term, elems ...Term) (Term, error) {
	if len(elems) == 0 {
		return tail, nil
	}
	words, err := h.AllocWords(2 * len(elems))
	if err != nil {
		return 0, err
	}
	base := addrOf(words)
	for i, e := range elems {
		words[2*i] = uint64(e)
		if i == len(elems)-1 {
			words[2*i+1] = uint64(tail)
		} else {
			words[2*i+1] = uint64(list(base + uintptr(2*(i+1)*wordBytes)))
		}
	}
	return list(base), nil
}

// Head returns the head of a cons cell.
// Panics if t is not a cons cell.
func (t Term) Head() Term {
	if !t.IsList() {
		panic("Term.Head: not a cons cell")
	}
	return Term(wordAt(t.addr()))
}

// Tail returns the tail of a cons cell.
// Panics if t is not a cons cell.
func (t Term) Tail() Term {
	if !t.IsList() {
		panic("Term.Tail: not a cons cell")
	}
	return Term(wordAt(t.addr() + wordBytes))
}

// ListElements walks a list and returns its elements and final tail, which
// is EmptyList for proper lists.
func (t Term) ListElements() ([]Term, Term) {
	var elems []Term
	for t.IsList() {
		elems = append(elems, t.Head())
		t = t.Tail()
	}
	return elems, t
}

// ---------------------------------------------------------------------------
// Bitstrings
// ---------------------------------------------------------------------------

// Binary stores data as a binary on h. Binaries up to 64 bytes are copied
// onto the heap; larger ones go to the shared BinaryStore.
func Binary(h Heap, data []byte) (Term, error) {
	return Bitstring(h, data, uint64(len(data))*8)
}

// Bitstring stores the first bits bits of data on h.
func Bitstring(h Heap, data []byte, bits uint64) (Term, error) {
	nbytes := int((bits + 7) / 8)
	if nbytes > len(data) {
		return 0, fmt.Errorf("bitstring of %d bits needs %d bytes, have %d", bits, nbytes, len(data))
	}
	data = data[:nbytes]

	if nbytes > heapBinaryMaxSize {
		addr, err := h.Binaries().New(data, bits)
		if err != nil {
			return 0, err
		}
		words, err := h.AllocWords(2)
		if err != nil {
			h.Binaries().Release(addr)
			return 0, err
		}
		h.Hold(addr)
		words[0] = header(TagReferenceCountedBinary, bits)
		words[1] = uint64(addr)
		return boxed(addrOf(words)), nil
	}

	words, err := h.AllocWords(1 + bytesToWords(nbytes))
	if err != nil {
		return 0, err
	}
	words[0] = header(TagHeapBinary, bits)
	body := words[1:]
	clear(body)
	if nbytes > 0 {
		dst := unsafe.Slice((*byte)(unsafe.Pointer(&body[0])), nbytes)
		copy(dst, data)
		if rem := bits % 8; rem != 0 {
			dst[nbytes-1] &= byte(0xFF << (8 - rem))
		}
	}
	return boxed(addrOf(words)), nil
}

// SubBinary stores a view of bitLen bits of bin starting at bitOffset.
// Views of views refer to the underlying binary directly.
func SubBinary(h Heap, bin Term, bitOffset, bitLen uint64) (Term, error) {
	if !bin.IsBitstring() {
		return 0, fmt.Errorf("sub binary of non-bitstring %s", bin)
	}
	_, total := bin.Bits()
	if bitOffset+bitLen > total || bitOffset+bitLen < bitOffset {
		return 0, fmt.Errorf("sub binary %d+%d out of range for %d bits", bitOffset, bitLen, total)
	}
	if bin.BoxedTag() == TagSubbinary {
		body := wordsAt(bin.addr()+wordBytes, 3)
		bin = Term(body[0])
		bitOffset += body[1]
	}
	words, err := h.AllocWords(4)
	if err != nil {
		return 0, err
	}
	words[0] = header(TagSubbinary, 3)
	words[1] = uint64(bin)
	words[2] = bitOffset
	words[3] = bitLen
	return boxed(addrOf(words)), nil
}

// IsBitstring returns true for heap, reference-counted and sub binaries.
func (t Term) IsBitstring() bool {
	if !t.IsBoxed() {
		return false
	}
	switch t.BoxedTag() {
	case TagHeapBinary, TagReferenceCountedBinary, TagSubbinary:
		return true
	}
	return false
}

// IsBinary returns true for bitstrings whose length is a whole number of
// bytes.
func (t Term) IsBinary() bool {
	if !t.IsBitstring() {
		return false
	}
	_, bits := t.Bits()
	return bits%8 == 0
}

// Bits returns the contents of a bitstring and its length in bits. Bits
// past the length in the final byte are unspecified. The slice may alias
// heap memory.
// Panics if t is not a bitstring.
func (t Term) Bits() ([]byte, uint64) {
	if !t.IsBoxed() {
		panic("Term.Bits: not a bitstring")
	}
	h := wordAt(t.addr())
	switch Tag(h & headerTagMask) {
	case TagHeapBinary:
		bits := headerPayload(h)
		n := int((bits + 7) / 8)
		if n == 0 {
			return nil, 0
		}
		return unsafe.Slice((*byte)(pointer(t.addr()+wordBytes)), n), bits
	case TagReferenceCountedBinary:
		return refcData(uintptr(wordAt(t.addr() + wordBytes)))
	case TagSubbinary:
		body := wordsAt(t.addr()+wordBytes, 3)
		data, _ := Term(body[0]).Bits()
		return sliceBits(data, body[1], body[2]), body[2]
	default:
		panic("Term.Bits: not a bitstring")
	}
}

// sliceBits extracts bitLen bits starting at bitOffset.
func sliceBits(data []byte, bitOffset, bitLen uint64) []byte {
	n := (bitLen + 7) / 8
	start := bitOffset / 8
	shift := bitOffset % 8
	if shift == 0 {
		return data[start : start+n]
	}
	out := make([]byte, n)
	for i := uint64(0); i < n; i++ {
		hi := data[start+i] << shift
		var lo byte
		if start+i+1 < uint64(len(data)) {
			lo = data[start+i+1] >> (8 - shift)
		}
		out[i] = hi | lo
	}
	return out
}

// ---------------------------------------------------------------------------
// References, external identifiers
// ---------------------------------------------------------------------------

// Reference stores a local reference made of the issuing scheduler's id and
// a per-scheduler counter.
func Reference(h Heap, scheduler, number uint64) (Term, error) {
	words, err := h.AllocWords(3)
	if err != nil {
		return 0, err
	}
	words[0] = header(TagReference, 2)
	words[1] = scheduler
	words[2] = number
	return boxed(addrOf(words)), nil
}

// ExternalReference stores a reference created on another node.
func ExternalReference(h Heap, node Term, scheduler, number uint64) (Term, error) {
	if !node.IsAtom() {
		return 0, fmt.Errorf("external reference node %s is not an atom", node)
	}
	words, err := h.AllocWords(4)
	if err != nil {
		return 0, err
	}
	words[0] = header(TagExternalReference, 3)
	words[1] = uint64(node)
	words[2] = scheduler
	words[3] = number
	return boxed(addrOf(words)), nil
}

// ExternalPid stores a pid of a process on another node.
func ExternalPid(h Heap, node Term, number, serial uint64) (Term, error) {
	if !node.IsAtom() {
		return 0, fmt.Errorf("external pid node %s is not an atom", node)
	}
	words, err := h.AllocWords(4)
	if err != nil {
		return 0, err
	}
	words[0] = header(TagExternalPid, 3)
	words[1] = uint64(node)
	words[2] = number
	words[3] = serial
	return boxed(addrOf(words)), nil
}

// ExternalPort stores a port on another node.
func ExternalPort(h Heap, node Term, number uint64) (Term, error) {
	if !node.IsAtom() {
		return 0, fmt.Errorf("external port node %s is not an atom", node)
	}
	words, err := h.AllocWords(3)
	if err != nil {
		return 0, err
	}
	words[0] = header(TagExternalPort, 2)
	words[1] = uint64(node)
	words[2] = number
	return boxed(addrOf(words)), nil
}

// IsReference returns true for local and external references.
func (t Term) IsReference() bool {
	return t.isBoxedTag(TagReference) || t.isBoxedTag(TagExternalReference)
}

// IsPid returns true for local and external pids.
func (t Term) IsPid() bool {
	return t.IsLocalPid() || t.isBoxedTag(TagExternalPid)
}

// IsPort returns true for local and external ports.
func (t Term) IsPort() bool {
	return t.IsLocalPort() || t.isBoxedTag(TagExternalPort)
}

// Identity is the node-qualified identity of a pid, port or reference.
// Node is the zero Term for local identifiers.
type Identity struct {
	Node   Term
	Words  [2]uint64
	Length int
}

// identityOf decodes pids, ports and references.
func (t Term) identityOf() Identity {
	switch {
	case t.IsLocalPid():
		return Identity{Words: [2]uint64{t.PidNumber()}, Length: 2}
	case t.IsLocalPort():
		return Identity{Words: [2]uint64{t.PortNumber()}, Length: 1}
	}
	body := wordsAt(t.addr()+wordBytes, 3)
	switch t.BoxedTag() {
	case TagReference:
		return Identity{Words: [2]uint64{body[0], body[1]}, Length: 2}
	case TagExternalReference, TagExternalPid:
		return Identity{Node: Term(body[0]), Words: [2]uint64{body[1], body[2]}, Length: 2}
	case TagExternalPort:
		return Identity{Node: Term(body[0]), Words: [2]uint64{body[1]}, Length: 1}
	}
	panic("term: no identity for " + t.Kind().String())
}

// Identity returns the node and identifier words of a pid, port or
// reference. Local pids and ports report a zero Node.
// Panics for other terms.
func (t Term) Identity() Identity {
	if !t.IsPid() && !t.IsPort() && !t.IsReference() {
		panic("Term.Identity: not a pid, port or reference")
	}
	return t.identityOf()
}

// ---------------------------------------------------------------------------
// Functions
// ---------------------------------------------------------------------------

// Export stores fun module:function/arity.
func Export(h Heap, module, function Term, arity int) (Term, error) {
	if !module.IsAtom() || !function.IsAtom() {
		return 0, fmt.Errorf("export %s:%s is not atom:atom", module, function)
	}
	a, err := FromSmallInteger(int64(arity))
	if err != nil {
		return 0, err
	}
	words, err := h.AllocWords(4)
	if err != nil {
		return 0, err
	}
	words[0] = header(TagExport, 3)
	words[1] = uint64(module)
	words[2] = uint64(function)
	words[3] = uint64(a)
	return boxed(addrOf(words)), nil
}

// Closure stores a closure over env, identified by its defining module and
// its index within that module.
func Closure(h Heap, module Term, index, arity int, env ...Term) (Term, error) {
	if !module.IsAtom() {
		return 0, fmt.Errorf("closure module %s is not an atom", module)
	}
	i, err := FromSmallInteger(int64(index))
	if err != nil {
		return 0, err
	}
	a, err := FromSmallInteger(int64(arity))
	if err != nil {
		return 0, err
	}
	words, err := h.AllocWords(4 + len(env))
	if err != nil {
		return 0, err
	}
	words[0] = header(TagFunction, uint64(3+len(env)))
	words[1] = uint64(module)
	words[2] = uint64(i)
	words[3] = uint64(a)
	for j, e := range env {
		words[4+j] = uint64(e)
	}
	return boxed(addrOf(words)), nil
}

// IsFunction returns true for exports and closures.
func (t Term) IsFunction() bool {
	return t.isBoxedTag(TagExport) || t.isBoxedTag(TagFunction)
}

// FunctionParts returns the body of an export (module, function, arity) or
// a closure (module, index, arity, env...). The slice aliases heap memory.
// Panics if t is not a function.
func (t Term) FunctionParts() []Term {
	if !t.IsFunction() {
		panic("Term.FunctionParts: not a function")
	}
	n := int(headerPayload(wordAt(t.addr())))
	return termsAt(t.addr()+wordBytes, n)
}

// ---------------------------------------------------------------------------
// Maps
// ---------------------------------------------------------------------------

// IsMap returns true if t is a map.
func (t Term) IsMap() bool {
	return t.isBoxedTag(TagMap)
}

// MapEntries returns the keys, in ascending exact term order, and the
// matching values. The slices alias heap memory.
// Panics if t is not a map.
func (t Term) MapEntries() (keys, values []Term) {
	if !t.IsMap() {
		panic("Term.MapEntries: not a map")
	}
	n := int(headerPayload(wordAt(t.addr())))
	all := termsAt(t.addr()+wordBytes, 2*n)
	return all[:n:n], all[n:]
}

// MapSize returns the number of entries in a map.
// Panics if t is not a map.
func (t Term) MapSize() int {
	if !t.IsMap() {
		panic("Term.MapSize: not a map")
	}
	return int(headerPayload(wordAt(t.addr())))
}
