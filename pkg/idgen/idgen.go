// Package idgen issues entity ids for valgraph.
//
// A Source is an immutable free-list-plus-watermark. Next pops the most
// recently released id if there is one (LIFO over freed ids) and otherwise
// hands out the watermark and advances it (monotonic over fresh ids).
//
// Node and edge sources share one combined id space, split by parity:
// nodes are even, edges are odd. That lets a bare int64 say which namespace
// it came from without an extra tag.
package idgen

import "github.com/benbjohnson/immutable"

// Step is the distance between consecutive fresh ids of one namespace.
const Step = 2

// Source is an immutable id generator. Next and Release return a new
// Source; the receiver keeps issuing the same ids it always would.
type Source struct {
	watermark int64
	free      *immutable.List[int64]
}

// NewSource returns a source whose first fresh id is start.
func NewSource(start int64) Source {
	return Source{watermark: start, free: immutable.NewList[int64]()}
}

// Nodes returns the source for node ids: 0, 2, 4, ...
func Nodes() Source { return NewSource(0) }

// Edges returns the source for edge ids: 1, 3, 5, ...
func Edges() Source { return NewSource(1) }

// IsNodeID reports whether id falls in the node half of the id space.
func IsNodeID(id int64) bool { return id%2 == 0 }

// Next returns the id to assign and the source to use afterwards.
func (s Source) Next() (int64, Source) {
	if s.free != nil && s.free.Len() > 0 {
		id := s.free.Get(0)
		s.free = s.free.Slice(1, s.free.Len())
		return id, s
	}
	id := s.watermark
	s.watermark += Step
	return id, s
}

// Peek returns the id Next would issue without consuming it.
func (s Source) Peek() int64 {
	id, _ := s.Next()
	return id
}

// Release returns id to the front of the free list so it is reissued
// before any fresh id. Releasing an id the source never issued is the
// caller's bug and is not detected.
func (s Source) Release(id int64) Source {
	if s.free == nil {
		s.free = immutable.NewList[int64]()
	}
	s.free = s.free.Prepend(id)
	return s
}
