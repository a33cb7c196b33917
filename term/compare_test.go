package term

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// corpus builds one or more terms of every comparable class, listed in
// ascending order.
func corpus(t *testing.T, env *Env, h Heap) []Term {
	t.Helper()
	must := func(tm Term, err error) Term {
		require.NoError(t, err)
		return tm
	}
	pid := func(n uint64) Term { return must(FromLocalPid(n)) }
	port := func(n uint64) Term { return must(FromLocalPort(n)) }
	other := env.MustAtom("zz@remote")
	mod := env.MustAtom("mod")

	return []Term{
		must(BigInteger(h, new(big.Int).Lsh(big.NewInt(-1), 100))),
		MustSmallInteger(-3),
		must(Float(h, -0.5)),
		MustSmallInteger(0),
		must(Float(h, 1.5)),
		MustSmallInteger(2),
		must(BigInteger(h, new(big.Int).Lsh(big.NewInt(1), 100))),
		env.MustAtom("a"),
		env.MustAtom("b"),
		must(Reference(h, 1, 1)),
		must(Reference(h, 1, 2)),
		must(ExternalReference(h, other, 0, 0)),
		must(Export(h, mod, env.MustAtom("f"), 1)),
		must(Closure(h, mod, 0, 0)),
		port(1),
		must(ExternalPort(h, other, 0)),
		pid(1),
		pid(2),
		must(ExternalPid(h, other, 0, 0)),
		must(Tuple(h)),
		must(Tuple(h, MustSmallInteger(1))),
		must(Tuple(h, MustSmallInteger(1), MustSmallInteger(2))),
		must(env.Map(h)),
		must(env.Map(h, Pair{env.MustAtom("k"), MustSmallInteger(1)})),
		EmptyList,
		must(List(h, MustSmallInteger(1))),
		must(ImproperList(h, MustSmallInteger(3), MustSmallInteger(1), MustSmallInteger(2))),
		must(List(h, MustSmallInteger(1), MustSmallInteger(2), MustSmallInteger(3))),
		must(List(h, MustSmallInteger(2))),
		must(Binary(h, nil)),
		must(Binary(h, []byte{1})),
		must(Binary(h, []byte{1, 2})),
		must(Binary(h, []byte{2})),
		must(Bitstring(h, []byte{0x80}, 1)),
	}
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}

func TestCorpusIsAscending(t *testing.T) {
	env, h := newTestEnv(t), newTestHeap(t)
	terms := corpus(t, env, h)
	for i := range terms {
		for j := range terms {
			want := sign(i - j)
			assert.Equal(t, want, env.Compare(terms[i], terms[j]),
				"compare(%s, %s)", env.Format(terms[i]), env.Format(terms[j]))
		}
	}
}

func TestOrderIsTotal(t *testing.T) {
	env, h := newTestEnv(t), newTestHeap(t)
	terms := corpus(t, env, h)
	f1, err := Float(h, 2.0)
	require.NoError(t, err)
	terms = append(terms, f1, MustSmallInteger(2))

	for _, exact := range []bool{false, true} {
		for _, a := range terms {
			assert.Equal(t, 0, env.compare(a, a, exact))
			for _, b := range terms {
				ab, ba := env.compare(a, b, exact), env.compare(b, a, exact)
				assert.Equal(t, -ab, ba, "antisymmetry %s %s", env.Format(a), env.Format(b))
				for _, c := range terms {
					if ab <= 0 && env.compare(b, c, exact) <= 0 {
						assert.LessOrEqual(t, env.compare(a, c, exact), 0,
							"transitivity %s %s %s", env.Format(a), env.Format(b), env.Format(c))
					}
				}
			}
		}
	}
}

func TestCrossClassOrder(t *testing.T) {
	env, h := newTestEnv(t), newTestHeap(t)
	huge, err := BigInteger(h, new(big.Int).Lsh(big.NewInt(1), 300))
	require.NoError(t, err)
	assert.True(t, env.Less(huge, env.MustAtom("")))

	bigMap, err := env.Map(h,
		Pair{MustSmallInteger(1), MustSmallInteger(1)},
		Pair{MustSmallInteger(2), MustSmallInteger(2)},
	)
	require.NoError(t, err)
	assert.True(t, env.Less(bigMap, EmptyList))
}

func TestMapOrdering(t *testing.T) {
	env, h := newTestEnv(t), newTestHeap(t)
	a, b, c := env.MustAtom("a"), env.MustAtom("b"), env.MustAtom("c")
	mk := func(pairs ...Pair) Term {
		m, err := env.Map(h, pairs...)
		require.NoError(t, err)
		return m
	}

	lesserValues := mk(Pair{b, MustSmallInteger(2)}, Pair{c, MustSmallInteger(3)})
	greaterValues := mk(Pair{b, MustSmallInteger(3)}, Pair{c, MustSmallInteger(4)})
	assert.Equal(t, -1, env.Compare(lesserValues, greaterValues))
	assert.Equal(t, 1, env.Compare(greaterValues, lesserValues))

	smaller := mk(Pair{a, MustSmallInteger(1)})
	assert.Equal(t, -1, env.Compare(smaller, lesserValues))

	lesserKeys := mk(Pair{a, MustSmallInteger(9)}, Pair{c, MustSmallInteger(9)})
	assert.Equal(t, -1, env.Compare(lesserKeys, lesserValues))
}

func TestMapKeysCompareExactly(t *testing.T) {
	env, h := newTestEnv(t), newTestHeap(t)
	oneF, err := Float(h, 1.0)
	require.NoError(t, err)
	intKey, err := env.Map(h, Pair{MustSmallInteger(1), env.MustAtom("v")})
	require.NoError(t, err)
	floatKey, err := env.Map(h, Pair{oneF, env.MustAtom("v")})
	require.NoError(t, err)

	assert.Equal(t, -1, env.Compare(intKey, floatKey))
	assert.False(t, env.Equal(intKey, floatKey))

	// Values follow the outer mode.
	intVal, err := env.Map(h, Pair{env.MustAtom("k"), MustSmallInteger(1)})
	require.NoError(t, err)
	floatVal, err := env.Map(h, Pair{env.MustAtom("k"), oneF})
	require.NoError(t, err)
	assert.True(t, env.Equal(intVal, floatVal))
	assert.False(t, env.ExactEqual(intVal, floatVal))
}

func TestNumberComparison(t *testing.T) {
	env, h := newTestEnv(t), newTestHeap(t)
	float := func(f float64) Term {
		tm, err := Float(h, f)
		require.NoError(t, err)
		return tm
	}
	integer := func(n int64) Term {
		tm, err := Integer(h, n)
		require.NoError(t, err)
		return tm
	}
	const p53 = int64(1) << 53

	tests := []struct {
		name         string
		a, b         Term
		arith, exact int
	}{
		{"int equals float", integer(1), float(1.0), 0, -1},
		{"float equals int", float(1.0), integer(1), 0, 1},
		{"int below float", integer(1), float(1.5), -1, -1},
		{"2^53 equals float", integer(p53), float(float64(p53)), 0, -1},
		{"2^53+1 above float 2^53", integer(p53 + 1), float(float64(p53)), 1, 1},
		{"-2^53-1 below float -2^53", integer(-p53 - 1), float(-float64(p53)), -1, -1},
		{"bignum vs float", integer(1 << 62), float(float64(int64(1) << 62)), 0, -1},
		{"bignum vs bigger float", integer(1 << 62), float(1e19), -1, -1},
		{"negative zero", float(0.0), float(-1 * 0.0), 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.arith, env.Compare(tt.a, tt.b))
			assert.Equal(t, tt.exact, env.CompareExact(tt.a, tt.b))
		})
	}
}

func TestListComparison(t *testing.T) {
	env, h := newTestEnv(t), newTestHeap(t)
	one, two := MustSmallInteger(1), MustSmallInteger(2)
	oneF, err := Float(h, 1.0)
	require.NoError(t, err)

	l1, err := List(h, one, two)
	require.NoError(t, err)
	l2, err := List(h, oneF, two)
	require.NoError(t, err)
	assert.True(t, env.Equal(l1, l2))
	assert.False(t, env.ExactEqual(l1, l2))

	improper, err := ImproperList(h, env.MustAtom("x"), one)
	require.NoError(t, err)
	proper, err := List(h, one)
	require.NoError(t, err)
	// [1|x] vs [1]: tails x and [] compare as terms, atom < list.
	assert.Equal(t, 1, env.Compare(proper, improper))
}

func TestBitstringComparison(t *testing.T) {
	env, h := newTestEnv(t), newTestHeap(t)
	bits := func(data []byte, n uint64) Term {
		tm, err := Bitstring(h, data, n)
		require.NoError(t, err)
		return tm
	}
	large := make([]byte, 100)
	largeBigger := make([]byte, 100)
	largeBigger[99] = 1

	assert.Equal(t, -1, env.Compare(bits([]byte{0xF0}, 4), bits([]byte{0xF0}, 8)), "prefix is less")
	assert.Equal(t, 1, env.Compare(bits([]byte{0x80}, 1), bits([]byte{0x00}, 8)))
	assert.Equal(t, -1, env.Compare(bits(large, 800), bits(largeBigger, 800)))

	base := bits([]byte{0x12, 0x34}, 16)
	sub, err := SubBinary(h, base, 8, 8)
	require.NoError(t, err)
	assert.Equal(t, 0, env.Compare(sub, bits([]byte{0x34}, 8)))
}

func TestIdentityComparisonUsesNodeName(t *testing.T) {
	env, h := newTestEnv(t), newTestHeap(t)
	local, err := FromLocalPid(100)
	require.NoError(t, err)
	before, err := ExternalPid(h, env.MustAtom("alpha@host"), 1, 0)
	require.NoError(t, err)
	after, err := ExternalPid(h, env.MustAtom("zulu@host"), 1, 0)
	require.NoError(t, err)
	same, err := ExternalPid(h, env.Node(), 100, 0)
	require.NoError(t, err)

	assert.True(t, env.Less(before, local))
	assert.True(t, env.Less(local, after))
	assert.True(t, env.Equal(local, same))
}

func TestSort(t *testing.T) {
	env, h := newTestEnv(t), newTestHeap(t)
	want := corpus(t, env, h)
	got := make([]Term, len(want))
	for i := range want {
		got[i] = want[len(want)-1-i]
	}
	env.Sort(got)
	assert.Equal(t, want, got)
}

func TestCatchPointerIsNotComparable(t *testing.T) {
	env := newTestEnv(t)
	c, err := FromCatchPointer(0x40)
	require.NoError(t, err)
	assert.Panics(t, func() { env.Compare(c, c) })
	assert.Panics(t, func() { env.Compare(c, MustSmallInteger(1)) })
}
