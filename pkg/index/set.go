package index

import (
	"slices"

	"github.com/benbjohnson/immutable"
)

// Set is an immutable set of entity ids. The zero value is an empty set
// and every method that changes membership returns a new Set.
type Set struct {
	m *immutable.Map[int64, struct{}]
}

// NewSet builds a set holding ids.
func NewSet(ids ...int64) Set {
	var s Set
	for _, id := range ids {
		s = s.Add(id)
	}
	return s
}

func (s Set) backing() *immutable.Map[int64, struct{}] {
	if s.m == nil {
		return immutable.NewMap[int64, struct{}](idHasher{})
	}
	return s.m
}

// Len returns the number of ids in the set.
func (s Set) Len() int {
	if s.m == nil {
		return 0
	}
	return s.m.Len()
}

// Empty reports whether the set has no members.
func (s Set) Empty() bool { return s.Len() == 0 }

// Has reports whether id is a member.
func (s Set) Has(id int64) bool {
	if s.m == nil {
		return false
	}
	_, ok := s.m.Get(id)
	return ok
}

// Add returns a set that also contains id.
func (s Set) Add(id int64) Set {
	if s.Has(id) {
		return s
	}
	return Set{m: s.backing().Set(id, struct{}{})}
}

// Remove returns a set without id.
func (s Set) Remove(id int64) Set {
	if !s.Has(id) {
		return s
	}
	return Set{m: s.m.Delete(id)}
}

// Each calls fn for every member in unspecified order. Iteration stops
// when fn returns false.
func (s Set) Each(fn func(id int64) bool) {
	if s.m == nil {
		return
	}
	itr := s.m.Iterator()
	for !itr.Done() {
		id, _, _ := itr.Next()
		if !fn(id) {
			return
		}
	}
}

// Sorted returns the members in ascending order.
func (s Set) Sorted() []int64 {
	out := make([]int64, 0, s.Len())
	s.Each(func(id int64) bool {
		out = append(out, id)
		return true
	})
	slices.Sort(out)
	return out
}

// Union returns the members of either set. The larger set is reused as the
// base so only the smaller one is walked.
func (s Set) Union(other Set) Set {
	big, small := s, other
	if small.Len() > big.Len() {
		big, small = small, big
	}
	small.Each(func(id int64) bool {
		big = big.Add(id)
		return true
	})
	return big
}

// Intersect returns the members present in both sets, walking the smaller.
func (s Set) Intersect(other Set) Set {
	big, small := s, other
	if small.Len() > big.Len() {
		big, small = small, big
	}
	var out Set
	small.Each(func(id int64) bool {
		if big.Has(id) {
			out = out.Add(id)
		}
		return true
	})
	return out
}

// Equal reports whether both sets have the same members.
func (s Set) Equal(other Set) bool {
	if s.Len() != other.Len() {
		return false
	}
	equal := true
	s.Each(func(id int64) bool {
		equal = other.Has(id)
		return equal
	})
	return equal
}
