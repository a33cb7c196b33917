package term

import (
	"bytes"
	"errors"
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTuple(t *testing.T) {
	h := newTestHeap(t)
	tup, err := Tuple(h, MustSmallInteger(1), EmptyList, MustSmallInteger(3))
	require.NoError(t, err)
	assert.Equal(t, TagBoxed, tup.Tag())
	assert.Equal(t, TagArity, tup.Kind())
	assert.True(t, tup.IsTuple())
	assert.Equal(t, []Term{MustSmallInteger(1), EmptyList, MustSmallInteger(3)}, tup.TupleElements())

	empty, err := Tuple(h)
	require.NoError(t, err)
	assert.Empty(t, empty.TupleElements())
}

func TestIntegerPromotion(t *testing.T) {
	h := newTestHeap(t)

	small, err := Integer(h, 99)
	require.NoError(t, err)
	assert.True(t, small.IsSmallInteger())

	huge := new(big.Int).Lsh(big.NewInt(1), 200)
	tests := []struct {
		name string
		val  *big.Int
		tag  Tag
	}{
		{"just above small", big.NewInt(MaxSmallInteger + 1), TagPositiveBigNumber},
		{"just below small", big.NewInt(MinSmallInteger - 1), TagNegativeBigNumber},
		{"max int64", big.NewInt(math.MaxInt64), TagPositiveBigNumber},
		{"2^200", huge, TagPositiveBigNumber},
		{"-2^200", new(big.Int).Neg(huge), TagNegativeBigNumber},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tm, err := BigInteger(h, tt.val)
			require.NoError(t, err)
			assert.Equal(t, tt.tag, tm.Kind())
			assert.True(t, tm.IsInteger())
			assert.Equal(t, 0, tt.val.Cmp(tm.BigInt()), "got %s", tm.BigInt())
		})
	}

	canon, err := BigInteger(h, big.NewInt(-5))
	require.NoError(t, err)
	assert.Equal(t, MustSmallInteger(-5), canon)

	viaInteger, err := Integer(h, math.MinInt64)
	require.NoError(t, err)
	assert.Equal(t, TagNegativeBigNumber, viaInteger.Kind())
	assert.Equal(t, int64(math.MinInt64), viaInteger.BigInt().Int64())
}

func TestFloat(t *testing.T) {
	h := newTestHeap(t)
	f, err := Float(h, 2.5)
	require.NoError(t, err)
	assert.Equal(t, TagFloat, f.Kind())
	assert.Equal(t, 2.5, f.Float64())
	assert.True(t, f.IsNumber())

	for _, bad := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := Float(h, bad)
		var notFinite *FloatNotFinite
		assert.True(t, errors.As(err, &notFinite))
	}
}

func TestLists(t *testing.T) {
	h := newTestHeap(t)
	one, two, three := MustSmallInteger(1), MustSmallInteger(2), MustSmallInteger(3)

	l, err := List(h, one, two, three)
	require.NoError(t, err)
	assert.Equal(t, TagList, l.Tag())
	elems, tail := l.ListElements()
	assert.Equal(t, []Term{one, two, three}, elems)
	assert.Equal(t, EmptyList, tail)

	improper, err := ImproperList(h, three, one, two)
	require.NoError(t, err)
	elems, tail = improper.ListElements()
	assert.Equal(t, []Term{one, two}, elems)
	assert.Equal(t, three, tail)

	c, err := Cons(h, one, EmptyList)
	require.NoError(t, err)
	assert.Equal(t, one, c.Head())
	assert.Equal(t, EmptyList, c.Tail())

	empty, err := List(h)
	require.NoError(t, err)
	assert.Equal(t, EmptyList, empty)
}

func TestBinaries(t *testing.T) {
	sys := newTestHeap(t).sys
	store := NewBinaryStore(sys)
	h := newTestHeapWith(t, sys, store)

	small := bytes.Repeat([]byte{0xAB}, heapBinaryMaxSize)
	sb, err := Binary(h, small)
	require.NoError(t, err)
	assert.Equal(t, TagHeapBinary, sb.Kind())
	data, bits := sb.Bits()
	assert.Equal(t, small, data)
	assert.Equal(t, uint64(len(small)*8), bits)
	assert.True(t, sb.IsBinary())
	assert.Equal(t, 0, store.Len())

	large := bytes.Repeat([]byte{0x5A}, heapBinaryMaxSize+1)
	lb, err := Binary(h, large)
	require.NoError(t, err)
	assert.Equal(t, TagReferenceCountedBinary, lb.Kind())
	data, _ = lb.Bits()
	assert.Equal(t, large, data)
	assert.Equal(t, 1, store.Len())

	h.free()
	assert.Equal(t, 0, store.Len())
}

func TestBitstringMasksTrailingBits(t *testing.T) {
	h := newTestHeap(t)
	bs, err := Bitstring(h, []byte{0xFF, 0xFF}, 13)
	require.NoError(t, err)
	data, bits := bs.Bits()
	assert.Equal(t, uint64(13), bits)
	assert.Equal(t, []byte{0xFF, 0xF8}, data)
	assert.False(t, bs.IsBinary())
	assert.True(t, bs.IsBitstring())

	_, err = Bitstring(h, []byte{0xFF}, 9)
	assert.Error(t, err)
}

func TestSubBinary(t *testing.T) {
	h := newTestHeap(t)
	bin, err := Binary(h, []byte{0xAB, 0xCD, 0xEF})
	require.NoError(t, err)

	aligned, err := SubBinary(h, bin, 8, 16)
	require.NoError(t, err)
	data, bits := aligned.Bits()
	assert.Equal(t, []byte{0xCD, 0xEF}, data)
	assert.Equal(t, uint64(16), bits)

	shifted, err := SubBinary(h, bin, 4, 8)
	require.NoError(t, err)
	data, _ = shifted.Bits()
	assert.Equal(t, []byte{0xBC}, data)

	nested, err := SubBinary(h, shifted, 4, 4)
	require.NoError(t, err)
	assert.Equal(t, uint64(bin), wordAt(nested.addr()+wordBytes), "views of views point at the original")
	assert.Equal(t, uint64(8), wordAt(nested.addr()+2*wordBytes))
	data, bits = nested.Bits()
	assert.Equal(t, uint64(4), bits)
	assert.Equal(t, byte(0xC0), data[0]&0xF0)

	_, err = SubBinary(h, bin, 20, 8)
	assert.Error(t, err)
	_, err = SubBinary(h, MustSmallInteger(1), 0, 0)
	assert.Error(t, err)
}

func TestIdentifiers(t *testing.T) {
	h := newTestEnvHeap(t)
	env, heap := h.env, h.heap
	other := env.MustAtom("other@host")

	ref, err := Reference(heap, 3, 9)
	require.NoError(t, err)
	assert.True(t, ref.IsReference())
	assert.Equal(t, Identity{Words: [2]uint64{3, 9}, Length: 2}, ref.Identity())

	xref, err := ExternalReference(heap, other, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, other, xref.Identity().Node)

	xpid, err := ExternalPid(heap, other, 5, 1)
	require.NoError(t, err)
	assert.True(t, xpid.IsPid())
	assert.Equal(t, Identity{Node: other, Words: [2]uint64{5, 1}, Length: 2}, xpid.Identity())

	xport, err := ExternalPort(heap, other, 8)
	require.NoError(t, err)
	assert.True(t, xport.IsPort())

	_, err = ExternalPid(heap, MustSmallInteger(1), 5, 1)
	assert.Error(t, err)
}

func TestFunctions(t *testing.T) {
	h := newTestEnvHeap(t)
	env, heap := h.env, h.heap
	lists, mapFn := env.MustAtom("lists"), env.MustAtom("map")

	exp, err := Export(heap, lists, mapFn, 2)
	require.NoError(t, err)
	assert.True(t, exp.IsFunction())
	assert.Equal(t, []Term{lists, mapFn, MustSmallInteger(2)}, exp.FunctionParts())

	clo, err := Closure(heap, lists, 4, 1, MustSmallInteger(10), EmptyList)
	require.NoError(t, err)
	assert.Equal(t, TagFunction, clo.Kind())
	assert.Equal(t, []Term{lists, MustSmallInteger(4), MustSmallInteger(1), MustSmallInteger(10), EmptyList}, clo.FunctionParts())

	_, err = Export(heap, MustSmallInteger(1), mapFn, 2)
	assert.Error(t, err)
}

func TestMapSortsAndKeepsLastWrite(t *testing.T) {
	h := newTestEnvHeap(t)
	env, heap := h.env, h.heap
	a, b, c := env.MustAtom("a"), env.MustAtom("b"), env.MustAtom("c")

	m, err := env.Map(heap,
		Pair{c, MustSmallInteger(3)},
		Pair{a, MustSmallInteger(1)},
		Pair{b, MustSmallInteger(2)},
		Pair{a, MustSmallInteger(10)},
	)
	require.NoError(t, err)
	assert.Equal(t, 3, m.MapSize())
	keys, values := m.MapEntries()
	assert.Equal(t, []Term{a, b, c}, keys)
	assert.Equal(t, []Term{MustSmallInteger(10), MustSmallInteger(2), MustSmallInteger(3)}, values)

	v, ok := env.MapGet(m, b)
	assert.True(t, ok)
	assert.Equal(t, MustSmallInteger(2), v)
	_, ok = env.MapGet(m, env.MustAtom("z"))
	assert.False(t, ok)
}

func TestMapKeepsIntegerAndFloatKeysApart(t *testing.T) {
	h := newTestEnvHeap(t)
	env, heap := h.env, h.heap
	one := MustSmallInteger(1)
	oneF, err := Float(heap, 1.0)
	require.NoError(t, err)

	m, err := env.Map(heap, Pair{oneF, env.MustAtom("float")}, Pair{one, env.MustAtom("int")})
	require.NoError(t, err)
	keys, _ := m.MapEntries()
	require.Len(t, keys, 2)
	assert.Equal(t, one, keys[0])
	assert.Equal(t, oneF, keys[1])
}

type envHeap struct {
	env  *Env
	heap *testHeap
}

func newTestEnvHeap(t *testing.T) envHeap {
	return envHeap{env: newTestEnv(t), heap: newTestHeap(t)}
}
