package graph

import (
	"fmt"

	"github.com/orneryd/valgraph/pkg/index"
)

// Node is a lazy view of one node in one graph snapshot.
//
// A view is an id plus a pointer to the node index it was taken from.
// Attribute reads go to that index at read time, so building views for a
// large id set costs one small struct per id regardless of bag size. Two
// views are == when they share both the id and the snapshot.
//
// Views of a snapshot keep reading that snapshot: a view obtained before
// AssocNode still sees the old bag.
type Node struct {
	id    NodeID
	nodes *index.Map
}

func (Node) entity() {}

// IndexKey lets a Node stand in for its id in queries and attribute values.
func (n Node) IndexKey() string { return n.id.IndexKey() }

// ID returns the node id.
func (n Node) ID() NodeID { return n.id }

// Exists reports whether the node is present in the view's snapshot.
func (n Node) Exists() bool {
	return n.nodes != nil && n.nodes.Has(int64(n.id))
}

// Get returns one attribute.
func (n Node) Get(key string) (any, bool) {
	if n.nodes == nil {
		return nil, false
	}
	return n.nodes.Value(int64(n.id), key)
}

// GetOr returns one attribute, or def when it is absent.
func (n Node) GetOr(key string, def any) any {
	if v, ok := n.Get(key); ok {
		return v
	}
	return def
}

// Contains reports whether the node has key.
func (n Node) Contains(key string) bool {
	_, ok := n.Get(key)
	return ok
}

// Attrs returns a copy of the whole bag, or nil if the node is absent.
func (n Node) Attrs() Attrs {
	if n.nodes == nil {
		return nil
	}
	attrs, _ := n.nodes.Get(int64(n.id))
	return attrs
}

// Len returns the number of attributes.
func (n Node) Len() int {
	return len(n.Attrs())
}

// Entry is one key/value pair of a bag.
type Entry struct {
	Key   string
	Value any
}

// Entries returns the bag as key-sorted pairs.
func (n Node) Entries() []Entry {
	attrs := n.Attrs()
	out := make([]Entry, 0, len(attrs))
	for _, k := range attrs.Keys() {
		out = append(out, Entry{Key: k, Value: attrs[k]})
	}
	return out
}

func (n Node) String() string {
	return fmt.Sprintf("node(%d)", n.id)
}

// views maps an id set to views over nodes, ascending by id.
func views(ids index.Set, nodes *index.Map) []Node {
	sorted := ids.Sorted()
	out := make([]Node, len(sorted))
	for i, id := range sorted {
		out[i] = Node{id: NodeID(id), nodes: nodes}
	}
	return out
}
