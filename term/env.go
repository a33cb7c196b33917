package term

import (
	"fmt"
	"sort"

	"github.com/chazu/ember/atom"
)

// Env is the context needed to interpret terms beyond their bits: the atom
// table, for names, and the local node, for comparing local identifiers
// against external ones. One Env is shared by every scheduler of a node.
type Env struct {
	atoms *atom.Table
	node  Term
}

// NewEnv creates an environment for the node called nodeName.
func NewEnv(atoms *atom.Table, nodeName string) (*Env, error) {
	e := &Env{atoms: atoms}
	node, err := e.Atom(nodeName)
	if err != nil {
		return nil, fmt.Errorf("node name: %w", err)
	}
	e.node = node
	return e, nil
}

// Atoms returns the atom table.
func (e *Env) Atoms() *atom.Table { return e.atoms }

// Node returns the local node name as an atom.
func (e *Env) Node() Term { return e.node }

// Atom interns name and returns it as a term. It fails once the atom
// table is full or when name is too long for an atom.
func (e *Env) Atom(name string) (Term, error) {
	idx, err := e.atoms.Intern(name)
	if err != nil {
		return 0, err
	}
	return FromAtomIndex(idx)
}

// MustAtom is Atom for names the runtime itself uses, which are interned
// while the table is still nearly empty.
func (e *Env) MustAtom(name string) Term {
	t, err := e.Atom(name)
	if err != nil {
		panic(err)
	}
	return t
}

// AtomName returns the text of an atom.
// Panics if t is not an atom.
func (e *Env) AtomName(t Term) string {
	return e.atoms.Resolve(t.AtomIndex())
}

// Bool returns the atom true or false.
func (e *Env) Bool(b bool) Term {
	if b {
		return e.MustAtom("true")
	}
	return e.MustAtom("false")
}

// Pair is one map entry.
type Pair struct {
	Key, Value Term
}

// Map stores a map of pairs on h. Keys are sorted in exact term order; when
// a key repeats, the last pair wins.
func (e *Env) Map(h Heap, pairs ...Pair) (Term, error) {
	sorted := make([]Pair, len(pairs))
	copy(sorted, pairs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return e.CompareExact(sorted[i].Key, sorted[j].Key) < 0
	})

	// Stable sort keeps input order among equal keys; keep the last.
	uniq := sorted[:0]
	for _, p := range sorted {
		if n := len(uniq); n > 0 && e.CompareExact(uniq[n-1].Key, p.Key) == 0 {
			uniq[n-1] = p
			continue
		}
		uniq = append(uniq, p)
	}

	n := len(uniq)
	words, err := h.AllocWords(1 + 2*n)
	if err != nil {
		return 0, err
	}
	words[0] = header(TagMap, uint64(n))
	for i, p := range uniq {
		words[1+i] = uint64(p.Key)
		words[1+n+i] = uint64(p.Value)
	}
	return boxed(addrOf(words)), nil
}

// MapGet looks up key in m using exact equality.
// Panics if m is not a map.
func (e *Env) MapGet(m, key Term) (Term, bool) {
	keys, values := m.MapEntries()
	i := sort.Search(len(keys), func(i int) bool {
		return e.CompareExact(keys[i], key) >= 0
	})
	if i < len(keys) && e.CompareExact(keys[i], key) == 0 {
		return values[i], true
	}
	return 0, false
}
