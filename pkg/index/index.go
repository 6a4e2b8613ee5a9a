// Package index provides the attribute-indexed map underneath valgraph.
//
// A Map stores attribute bags by entity id and keeps two reverse indexes in
// step with every write:
//
//   - value index: (attribute, value) -> set of ids holding that value
//   - attribute index: attribute -> set of ids holding the attribute at all
//
// Every structure is persistent (github.com/benbjohnson/immutable): Put and
// Remove return a new Map that shares all untouched buckets with its
// predecessor, and the predecessor stays valid and unchanged. That is what
// lets a graph hand out snapshots to any number of readers without locks.
//
// Performance Characteristics:
//   - Get / Has: O(log32 n)
//   - KeysWith / KeysWithAttr: O(log32 n), returns a shared Set
//   - Put: O(changed keys), the old and new bag are diffed
//   - Remove: O(bag size)
//
// Example:
//
//	m := index.New()
//	m = m.Put(0, index.Attrs{"kind": "person", "name": "alice"})
//	m = m.Put(2, index.Attrs{"kind": "person", "name": "bob"})
//
//	people := m.KeysWith("kind", "person") // {0, 2}
//	named := m.KeysWithAttr("name")        // {0, 2}
//
// Values are matched by convert.IndexKey, so int(3) and int64(3) find the
// same bucket while 3 and 3.0 do not.
package index

import (
	"maps"
	"slices"

	"github.com/benbjohnson/immutable"

	"github.com/orneryd/valgraph/pkg/convert"
)

// Attrs is an attribute bag: attribute key to arbitrary value.
type Attrs map[string]any

// Clone returns a shallow copy of the bag. A nil bag clones to an empty one.
func (a Attrs) Clone() Attrs {
	out := make(Attrs, len(a))
	maps.Copy(out, a)
	return out
}

// Keys returns the bag's keys in ascending order.
func (a Attrs) Keys() []string {
	return slices.Sorted(maps.Keys(a))
}

type valueBuckets = *immutable.Map[string, Set]

// Map is an immutable id -> Attrs store with reverse indexes.
//
// The zero value is not usable; create maps with New.
type Map struct {
	entries *immutable.Map[int64, Attrs]
	byValue *immutable.Map[string, valueBuckets]
	byAttr  *immutable.Map[string, Set]
	ids     Set
}

// New returns an empty Map.
func New() *Map {
	return &Map{
		entries: immutable.NewMap[int64, Attrs](idHasher{}),
		byValue: immutable.NewMap[string, valueBuckets](stringHasher{}),
		byAttr:  immutable.NewMap[string, Set](stringHasher{}),
	}
}

// Len returns the number of stored entities.
func (m *Map) Len() int {
	return m.entries.Len()
}

// Has reports whether id is stored.
func (m *Map) Has(id int64) bool {
	_, ok := m.entries.Get(id)
	return ok
}

// Get returns a copy of the bag stored at id.
func (m *Map) Get(id int64) (Attrs, bool) {
	attrs, ok := m.entries.Get(id)
	if !ok {
		return nil, false
	}
	return attrs.Clone(), true
}

// Value returns one attribute of the bag at id without copying the bag.
func (m *Map) Value(id int64, key string) (any, bool) {
	attrs, ok := m.entries.Get(id)
	if !ok {
		return nil, false
	}
	v, ok := attrs[key]
	return v, ok
}

// Keys returns the set of stored ids.
func (m *Map) Keys() Set {
	return m.ids
}

// Each calls fn for every stored entity in unspecified order, stopping
// when fn returns false. The bag passed to fn must not be modified.
func (m *Map) Each(fn func(id int64, attrs Attrs) bool) {
	itr := m.entries.Iterator()
	for !itr.Done() {
		id, attrs, _ := itr.Next()
		if !fn(id, attrs) {
			return
		}
	}
}

// KeysWith returns the ids whose bag maps attr to value. The result is
// empty, never absent, when nothing matches.
func (m *Map) KeysWith(attr string, value any) Set {
	buckets, ok := m.byValue.Get(attr)
	if !ok {
		return Set{}
	}
	ids, _ := buckets.Get(convert.IndexKey(value))
	return ids
}

// KeysWithAttr returns the ids whose bag has attr, whatever its value.
func (m *Map) KeysWithAttr(attr string) Set {
	ids, _ := m.byAttr.Get(attr)
	return ids
}

// Put stores attrs at id, replacing any previous bag wholesale. Only keys
// whose value changed between the old and new bag touch the indexes.
func (m *Map) Put(id int64, attrs Attrs) *Map {
	stored := attrs.Clone()
	old, existed := m.entries.Get(id)

	next := *m
	next.entries = m.entries.Set(id, stored)
	if !existed {
		next.ids = m.ids.Add(id)
	}

	for key, oldValue := range old {
		newValue, kept := stored[key]
		if kept && convert.IndexKey(newValue) == convert.IndexKey(oldValue) {
			continue
		}
		next.unindexValue(id, key, oldValue)
		if !kept {
			next.unindexAttr(id, key)
		}
	}
	for key, newValue := range stored {
		oldValue, had := old[key]
		if had && convert.IndexKey(newValue) == convert.IndexKey(oldValue) {
			continue
		}
		next.indexValue(id, key, newValue)
		if !had {
			next.indexAttr(id, key)
		}
	}
	return &next
}

// Remove drops id and its index entries. Removing an absent id returns
// the receiver unchanged.
func (m *Map) Remove(id int64) *Map {
	old, existed := m.entries.Get(id)
	if !existed {
		return m
	}

	next := *m
	next.entries = m.entries.Delete(id)
	next.ids = m.ids.Remove(id)
	for key, value := range old {
		next.unindexValue(id, key, value)
		next.unindexAttr(id, key)
	}
	return &next
}

// indexValue, unindexValue, indexAttr and unindexAttr only ever replace
// the receiver's root pointers; the structures they point at are shared
// with earlier snapshots and are never written in place.

func (m *Map) indexValue(id int64, attr string, value any) {
	buckets, ok := m.byValue.Get(attr)
	if !ok {
		buckets = immutable.NewMap[string, Set](stringHasher{})
	}
	vk := convert.IndexKey(value)
	ids, _ := buckets.Get(vk)
	m.byValue = m.byValue.Set(attr, buckets.Set(vk, ids.Add(id)))
}

func (m *Map) unindexValue(id int64, attr string, value any) {
	buckets, ok := m.byValue.Get(attr)
	if !ok {
		return
	}
	vk := convert.IndexKey(value)
	ids, ok := buckets.Get(vk)
	if !ok {
		return
	}
	ids = ids.Remove(id)
	if ids.Empty() {
		buckets = buckets.Delete(vk)
	} else {
		buckets = buckets.Set(vk, ids)
	}
	if buckets.Len() == 0 {
		m.byValue = m.byValue.Delete(attr)
		return
	}
	m.byValue = m.byValue.Set(attr, buckets)
}

func (m *Map) indexAttr(id int64, attr string) {
	ids, _ := m.byAttr.Get(attr)
	m.byAttr = m.byAttr.Set(attr, ids.Add(id))
}

func (m *Map) unindexAttr(id int64, attr string) {
	ids, ok := m.byAttr.Get(attr)
	if !ok {
		return
	}
	ids = ids.Remove(id)
	if ids.Empty() {
		m.byAttr = m.byAttr.Delete(attr)
		return
	}
	m.byAttr = m.byAttr.Set(attr, ids)
}

// Attributes returns every attribute key in use, ascending.
func (m *Map) Attributes() []string {
	out := make([]string, 0, m.byAttr.Len())
	itr := m.byAttr.Iterator()
	for !itr.Done() {
		attr, _, _ := itr.Next()
		out = append(out, attr)
	}
	slices.Sort(out)
	return out
}
