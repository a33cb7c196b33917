package term

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/ember/atom"
)

func atomTable() *atom.Table { return atom.NewTable() }

func TestImmediateTagRoundTrip(t *testing.T) {
	pid, err := FromLocalPid(42)
	require.NoError(t, err)
	port, err := FromLocalPort(7)
	require.NoError(t, err)
	a, err := FromAtomIndex(3)
	require.NoError(t, err)
	c, err := FromCatchPointer(0x1000)
	require.NoError(t, err)

	tests := []struct {
		name string
		term Term
		tag  Tag
	}{
		{"small zero", MustSmallInteger(0), TagSmallInteger},
		{"small negative", MustSmallInteger(-1), TagSmallInteger},
		{"small max", MustSmallInteger(MaxSmallInteger), TagSmallInteger},
		{"small min", MustSmallInteger(MinSmallInteger), TagSmallInteger},
		{"pid", pid, TagLocalPid},
		{"port", port, TagLocalPort},
		{"atom", a, TagAtom},
		{"catch", c, TagCatchPointer},
		{"empty list", EmptyList, TagEmptyList},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.tag, tt.term.Tag())
			assert.Equal(t, tt.tag, tt.term.Kind())
			assert.True(t, tt.term.IsImmediate())
		})
	}

	assert.Equal(t, uint64(42), pid.PidNumber())
	assert.Equal(t, uint64(7), port.PortNumber())
	assert.Equal(t, atom.Index(3), a.AtomIndex())
	assert.Equal(t, uintptr(0x1000), c.CatchAddr())
}

func TestSmallIntegerRange(t *testing.T) {
	for _, n := range []int64{0, 1, -1, 12345, -98765, MaxSmallInteger, MinSmallInteger} {
		tm, err := FromSmallInteger(n)
		require.NoError(t, err)
		assert.Equal(t, n, tm.SmallInteger())
	}

	for _, n := range []int64{MaxSmallInteger + 1, MinSmallInteger - 1, math.MaxInt64, math.MinInt64} {
		tm, err := FromSmallInteger(n)
		var overflow *SmallIntegerOverflow
		require.True(t, errors.As(err, &overflow), "n=%d", n)
		assert.Equal(t, n, overflow.Value)
		assert.Zero(t, tm)
	}
}

func TestImmediateOverflows(t *testing.T) {
	_, err := FromAtomIndex(MaxAtomIndex + 1)
	var atomErr *AtomIndexOverflow
	assert.True(t, errors.As(err, &atomErr))

	_, err = FromLocalPid(MaxLocalNumber + 1)
	var numErr *LocalNumberOverflow
	require.True(t, errors.As(err, &numErr))
	assert.Equal(t, "pid", numErr.Kind)

	_, err = FromLocalPort(MaxLocalNumber + 1)
	require.True(t, errors.As(err, &numErr))
	assert.Equal(t, "port", numErr.Kind)

	_, err = FromAtomIndex(MaxAtomIndex)
	assert.NoError(t, err)
	assert.Equal(t, atom.Index(math.MaxUint64>>immediate6TagBits), MaxAtomIndex,
		"the atom table bounds indices to the atom payload")
}

func TestAtomFailsOnFullTable(t *testing.T) {
	env, err := NewEnv(atom.NewLimitedTable(2), "test@localhost")
	require.NoError(t, err)
	_, err = env.Atom("ok")
	require.NoError(t, err)

	_, err = env.Atom("one_too_many")
	assert.ErrorIs(t, err, atom.ErrTableFull)
	assert.Panics(t, func() { env.MustAtom("one_too_many") })

	_, err = NewEnv(atom.NewTable(), strings.Repeat("n", atom.MaxNameLength+1))
	assert.ErrorIs(t, err, atom.ErrNameTooLong)
}

func TestInvalidTagPanics(t *testing.T) {
	tests := []struct {
		name string
		word Term
		err  *TagError
	}{
		{"reserved header", Term(0b1011_00), &TagError{Bits: 0b1011_00, BitCount: headerTagBits}},
		{"reserved immediate", Term(0b10_10_11), &TagError{Bits: 0b10_10_11, BitCount: immediate6TagBits}},
		{"reserved immediate high bits", Term(0xFF00 | 0b10_10_11), &TagError{Bits: 0b10_10_11, BitCount: immediate6TagBits}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.PanicsWithError(t, tt.err.Error(), func() { tt.word.Tag() })
			assert.Contains(t, tt.word.String(), "invalid")
		})
	}
}

func TestEveryDecodedTagIsClosed(t *testing.T) {
	// Every 6-bit pattern decodes to a known tag or to a TagError.
	for bits := uint64(0); bits < 64; bits++ {
		tag, err := decodeTag(bits)
		if err != nil {
			var tagErr *TagError
			require.True(t, errors.As(err, &tagErr))
			continue
		}
		_, known := tagNames[tag]
		assert.True(t, known, "pattern %06b decoded to unnamed %s", bits, tag)
	}
}

func TestAtomInterningIsWordEqual(t *testing.T) {
	env := newTestEnv(t)
	for _, name := range []string{"ok", "error", "", "with space", "ünïcode"} {
		a1, err := env.Atom(name)
		require.NoError(t, err)
		a2, err := env.Atom(name)
		require.NoError(t, err)
		assert.Equal(t, a1, a2)
		assert.Equal(t, name, env.AtomName(a1))
	}
	assert.NotEqual(t, env.MustAtom("a"), env.MustAtom("b"))
	assert.Equal(t, env.MustAtom("true"), env.Bool(true))
	assert.Equal(t, env.MustAtom("false"), env.Bool(false))
	assert.Equal(t, "ember@localhost", env.AtomName(env.Node()))
}

func TestAccessorsPanicOnWrongVariant(t *testing.T) {
	a, err := FromAtomIndex(1)
	require.NoError(t, err)
	assert.Panics(t, func() { a.SmallInteger() })
	assert.Panics(t, func() { MustSmallInteger(1).AtomIndex() })
	assert.Panics(t, func() { EmptyList.Head() })
	assert.Panics(t, func() { a.TupleElements() })
	assert.Panics(t, func() { a.BoxedTag() })
}
