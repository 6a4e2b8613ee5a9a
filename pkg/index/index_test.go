package index

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMap_PutGet(t *testing.T) {
	m := New().Put(0, Attrs{"name": "alice", "age": 30})

	got, ok := m.Get(0)
	require.True(t, ok)
	assert.Equal(t, Attrs{"name": "alice", "age": 30}, got)
	assert.Equal(t, 1, m.Len())
	assert.True(t, m.Has(0))

	_, ok = m.Get(2)
	assert.False(t, ok)

	v, ok := m.Value(0, "name")
	require.True(t, ok)
	assert.Equal(t, "alice", v)
	_, ok = m.Value(0, "missing")
	assert.False(t, ok)
}

func TestMap_CopiesBags(t *testing.T) {
	in := Attrs{"name": "alice"}
	m := New().Put(0, in)

	in["name"] = "mallory"
	got, _ := m.Get(0)
	assert.Equal(t, "alice", got["name"], "stored bag must not alias the caller's map")

	got["name"] = "eve"
	again, _ := m.Get(0)
	assert.Equal(t, "alice", again["name"], "returned bag must not alias the stored map")
}

func TestMap_KeysWith(t *testing.T) {
	m := New().
		Put(0, Attrs{"kind": "person", "name": "alice"}).
		Put(2, Attrs{"kind": "person", "name": "bob"}).
		Put(4, Attrs{"kind": "place"})

	assert.Equal(t, []int64{0, 2}, m.KeysWith("kind", "person").Sorted())
	assert.Equal(t, []int64{4}, m.KeysWith("kind", "place").Sorted())

	t.Run("miss is empty, not absent", func(t *testing.T) {
		assert.True(t, m.KeysWith("kind", "thing").Empty())
		assert.True(t, m.KeysWith("nope", "x").Empty())
		assert.True(t, m.KeysWithAttr("nope").Empty())
	})

	t.Run("attribute existence", func(t *testing.T) {
		assert.Equal(t, []int64{0, 2}, m.KeysWithAttr("name").Sorted())
		assert.Equal(t, []int64{0, 2, 4}, m.KeysWithAttr("kind").Sorted())
	})

	t.Run("integer widths match", func(t *testing.T) {
		m2 := m.Put(6, Attrs{"rank": int64(3)})
		assert.Equal(t, []int64{6}, m2.KeysWith("rank", 3).Sorted())
		assert.Equal(t, []int64{6}, m2.KeysWith("rank", uint8(3)).Sorted())
		assert.True(t, m2.KeysWith("rank", 3.0).Empty())
	})
}

func TestMap_UpdateDiffsIndex(t *testing.T) {
	m := New().Put(0, Attrs{"kind": "person", "name": "alice", "tmp": true})
	m = m.Put(0, Attrs{"kind": "robot", "name": "alice"})

	assert.True(t, m.KeysWith("kind", "person").Empty())
	assert.Equal(t, []int64{0}, m.KeysWith("kind", "robot").Sorted())
	assert.Equal(t, []int64{0}, m.KeysWith("name", "alice").Sorted())
	assert.True(t, m.KeysWithAttr("tmp").Empty())
	assert.Equal(t, []string{"kind", "name"}, m.Attributes())
	assert.Equal(t, 1, m.Len())
}

func TestMap_Remove(t *testing.T) {
	m := New().
		Put(0, Attrs{"kind": "person"}).
		Put(2, Attrs{"kind": "person"})

	m2 := m.Remove(0)
	assert.False(t, m2.Has(0))
	assert.Equal(t, []int64{2}, m2.KeysWith("kind", "person").Sorted())
	assert.Equal(t, []int64{2}, m2.Keys().Sorted())

	m3 := m2.Remove(2)
	assert.Equal(t, 0, m3.Len())
	assert.True(t, m3.KeysWithAttr("kind").Empty())
	assert.Empty(t, m3.Attributes(), "empty buckets must be pruned")

	assert.Same(t, m3, m3.Remove(42), "removing an absent id is a no-op")
}

func TestMap_StructuralSharing(t *testing.T) {
	m1 := New().Put(0, Attrs{"kind": "person"})
	m2 := m1.Put(2, Attrs{"kind": "person"})
	m3 := m2.Remove(0)

	assert.Equal(t, []int64{0}, m1.KeysWith("kind", "person").Sorted())
	assert.Equal(t, []int64{0, 2}, m2.KeysWith("kind", "person").Sorted())
	assert.Equal(t, []int64{2}, m3.KeysWith("kind", "person").Sorted())
	assert.Equal(t, 1, m1.Len())
	assert.Equal(t, 2, m2.Len())
}

func TestMap_Each(t *testing.T) {
	m := New()
	for i := int64(0); i < 10; i += 2 {
		m = m.Put(i, Attrs{"n": i})
	}

	seen := map[int64]bool{}
	m.Each(func(id int64, attrs Attrs) bool {
		assert.Equal(t, id, attrs["n"])
		seen[id] = true
		return true
	})
	assert.Len(t, seen, 5)

	count := 0
	m.Each(func(int64, Attrs) bool {
		count++
		return count < 2
	})
	assert.Equal(t, 2, count)
}

func TestMap_NonComparableValues(t *testing.T) {
	m := New().Put(0, Attrs{"tags": []string{"a", "b"}})
	assert.Equal(t, []int64{0}, m.KeysWith("tags", []string{"a", "b"}).Sorted())
	assert.True(t, m.KeysWith("tags", []string{"b", "a"}).Empty())

	m = m.
		Put(2, Attrs{"tags": []string{"a b"}}).
		Put(4, Attrs{"meta": map[string]string{"a": "1 b:2"}}).
		Put(6, Attrs{"meta": map[string]string{"a": "1", "b": "2"}})

	assert.Equal(t, []int64{2}, m.KeysWith("tags", []string{"a b"}).Sorted())
	assert.Equal(t, []int64{0}, m.KeysWith("tags", []string{"a", "b"}).Sorted())
	assert.Equal(t, []int64{4}, m.KeysWith("meta", map[string]string{"a": "1 b:2"}).Sorted())
	assert.Equal(t, []int64{6}, m.KeysWith("meta", map[string]string{"b": "2", "a": "1"}).Sorted())
}

func TestMap_NegativeZero(t *testing.T) {
	m := New().Put(0, Attrs{"z": math.Copysign(0, -1)})
	assert.Equal(t, []int64{0}, m.KeysWith("z", 0.0).Sorted())
	assert.Equal(t, []int64{0}, m.KeysWith("z", float32(0)).Sorted())
}

func TestSet(t *testing.T) {
	var empty Set
	assert.Equal(t, 0, empty.Len())
	assert.False(t, empty.Has(1))
	assert.Empty(t, empty.Sorted())

	a := NewSet(1, 3, 5)
	b := NewSet(3, 5, 7, 9)

	assert.Equal(t, []int64{3, 5}, a.Intersect(b).Sorted())
	assert.Equal(t, []int64{1, 3, 5, 7, 9}, a.Union(b).Sorted())
	assert.True(t, a.Intersect(empty).Empty())
	assert.Equal(t, []int64{1, 3, 5}, a.Union(empty).Sorted())

	a2 := a.Remove(3)
	assert.Equal(t, []int64{1, 5}, a2.Sorted())
	assert.Equal(t, []int64{1, 3, 5}, a.Sorted(), "Remove must not change the receiver")

	assert.True(t, a.Equal(NewSet(5, 3, 1)))
	assert.False(t, a.Equal(b))
}

func BenchmarkMap_Put(b *testing.B) {
	m := New()
	for i := 0; i < b.N; i++ {
		m = m.Put(int64(i), Attrs{"kind": fmt.Sprintf("k%d", i%16), "n": i})
	}
}

func BenchmarkMap_KeysWith(b *testing.B) {
	m := New()
	for i := 0; i < 10000; i++ {
		m = m.Put(int64(i), Attrs{"kind": fmt.Sprintf("k%d", i%16)})
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.KeysWith("kind", "k3")
	}
}
