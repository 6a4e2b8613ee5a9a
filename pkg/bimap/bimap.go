// Package bimap provides an immutable one-to-one association between two
// disjoint sets of string keys.
//
// valgraph uses it to store relation opposites such as parent <-> child:
// Put("parent", "child") makes "parent" a left key and "child" its right
// partner, and Get works from either side.
//
// Invariant: for every key x present, Get(Get(x)) == x, and no key has two
// partners at once.
package bimap

import (
	"cmp"
	"hash/fnv"
	"slices"

	"github.com/benbjohnson/immutable"
)

type stringHasher struct{}

func (stringHasher) Hash(s string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(s))
	return h.Sum32()
}

func (stringHasher) Equal(a, b string) bool { return a == b }

// Pair is one registered association, Left <-> Right.
type Pair struct {
	Left  string
	Right string
}

// Map is an immutable bijection. The zero value is an empty Map; every
// method returns a new Map and leaves the receiver untouched.
type Map struct {
	left  *immutable.Map[string, string]
	right *immutable.Map[string, string]
}

func (m Map) sides() (*immutable.Map[string, string], *immutable.Map[string, string]) {
	left, right := m.left, m.right
	if left == nil {
		left = immutable.NewMap[string, string](stringHasher{})
	}
	if right == nil {
		right = immutable.NewMap[string, string](stringHasher{})
	}
	return left, right
}

// Len returns the number of pairs.
func (m Map) Len() int {
	if m.left == nil {
		return 0
	}
	return m.left.Len()
}

// Get returns the partner of x, looked up from either side.
func (m Map) Get(x string) (string, bool) {
	if m.left != nil {
		if y, ok := m.left.Get(x); ok {
			return y, true
		}
	}
	if m.right != nil {
		if y, ok := m.right.Get(x); ok {
			return y, true
		}
	}
	return "", false
}

// Contains reports whether x appears on either side.
func (m Map) Contains(x string) bool {
	_, ok := m.Get(x)
	return ok
}

// Opposites reports whether a and b are currently each other's partner.
func (m Map) Opposites(a, b string) bool {
	y, ok := m.Get(a)
	return ok && y == b
}

// Put registers a <-> b with a on the left. Any previous partner of a or of
// b is unlinked first, so both keys end up with exactly one partner.
func (m Map) Put(a, b string) Map {
	m = m.unlink(a).unlink(b)
	left, right := m.sides()
	return Map{
		left:  left.Set(a, b),
		right: right.Set(b, a),
	}
}

// RemovePair removes a <-> b when the two are opposites of each other, in
// either orientation. The bool reports whether anything was removed.
func (m Map) RemovePair(a, b string) (Map, bool) {
	if !m.Opposites(a, b) {
		return m, false
	}
	return m.unlink(a), true
}

// unlink drops whatever pair x belongs to.
func (m Map) unlink(x string) Map {
	left, right := m.sides()
	if y, ok := left.Get(x); ok {
		return Map{left: left.Delete(x), right: right.Delete(y)}
	}
	if y, ok := right.Get(x); ok {
		return Map{left: left.Delete(y), right: right.Delete(x)}
	}
	return m
}

// Pairs returns every pair ordered by left key.
func (m Map) Pairs() []Pair {
	out := make([]Pair, 0, m.Len())
	if m.left == nil {
		return out
	}
	itr := m.left.Iterator()
	for !itr.Done() {
		l, r, _ := itr.Next()
		out = append(out, Pair{Left: l, Right: r})
	}
	slices.SortFunc(out, func(a, b Pair) int { return cmp.Compare(a.Left, b.Left) })
	return out
}

// Keys returns every key from both sides, ascending.
func (m Map) Keys() []string {
	out := make([]string, 0, 2*m.Len())
	for _, p := range m.Pairs() {
		out = append(out, p.Left, p.Right)
	}
	slices.Sort(out)
	return out
}
