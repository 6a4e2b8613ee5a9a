package graph

import (
	"maps"
	"slices"
)

// The plural helpers below fold the single-item operations left to right.
// Each step runs its own constraints; if any step fails the helper returns
// the receiver, so a failed batch leaves nothing behind.

// AddNodes adds one node per bag and returns views of them, in input order,
// over the final graph.
func (g *Graph) AddNodes(bags ...Attrs) (*Graph, []Node, error) {
	cur := g
	ids := make([]NodeID, 0, len(bags))
	for _, attrs := range bags {
		next, n, err := cur.AddNode(attrs)
		if err != nil {
			return g, nil, err
		}
		cur = next
		ids = append(ids, n.ID())
	}
	out := make([]Node, len(ids))
	for i, id := range ids {
		out[i] = cur.node(id)
	}
	return cur, out, nil
}

// RemoveNodes removes each node and its edges.
func (g *Graph) RemoveNodes(ids ...NodeID) (*Graph, error) {
	cur := g
	for _, id := range ids {
		next, err := cur.RemoveNode(id)
		if err != nil {
			return g, err
		}
		cur = next
	}
	return cur, nil
}

// AssocNodes replaces the bags of several nodes, ascending by id.
func (g *Graph) AssocNodes(updates map[NodeID]Attrs) (*Graph, error) {
	cur := g
	for _, id := range slices.Sorted(maps.Keys(updates)) {
		next, err := cur.AssocNode(id, updates[id])
		if err != nil {
			return g, err
		}
		cur = next
	}
	return cur, nil
}

// DissocNodes removes keys from every listed node.
func (g *Graph) DissocNodes(ids []NodeID, keys ...string) (*Graph, error) {
	cur := g
	for _, id := range ids {
		next, err := cur.DissocNode(id, keys...)
		if err != nil {
			return g, err
		}
		cur = next
	}
	return cur, nil
}

// AddEdges adds one edge per bag and returns their ids in input order.
func (g *Graph) AddEdges(bags ...Attrs) (*Graph, []EdgeID, error) {
	cur := g
	ids := make([]EdgeID, 0, len(bags))
	for _, attrs := range bags {
		next, id, err := cur.AddEdge(attrs)
		if err != nil {
			return g, nil, err
		}
		cur = next
		ids = append(ids, id)
	}
	return cur, ids, nil
}

// RemoveEdges removes each edge.
func (g *Graph) RemoveEdges(ids ...EdgeID) (*Graph, error) {
	cur := g
	for _, id := range ids {
		next, err := cur.RemoveEdge(id)
		if err != nil {
			return g, err
		}
		cur = next
	}
	return cur, nil
}

// AssocEdges updates several edges, ascending by id.
func (g *Graph) AssocEdges(updates map[EdgeID]Attrs) (*Graph, error) {
	cur := g
	for _, id := range slices.Sorted(maps.Keys(updates)) {
		next, err := cur.AssocEdge(id, updates[id])
		if err != nil {
			return g, err
		}
		cur = next
	}
	return cur, nil
}

// DissocEdges removes ordinary keys from every listed edge.
func (g *Graph) DissocEdges(ids []EdgeID, keys ...string) (*Graph, error) {
	cur := g
	for _, id := range ids {
		next, err := cur.DissocEdge(id, keys...)
		if err != nil {
			return g, err
		}
		cur = next
	}
	return cur, nil
}

// Relate adds an edge of relation rel from one node to another:
// Relate("parent", a, b, attrs) stores {"parent": a, "child": b} plus attrs.
func (g *Graph) Relate(rel string, from, to NodeID, attrs Attrs) (*Graph, EdgeID, error) {
	opposite, ok := g.relations.Get(rel)
	if !ok {
		return g, 0, violation("relate", -1, ErrInvalidRelation, rel)
	}
	bag := attrs.Clone()
	bag[rel] = from
	bag[opposite] = to
	return g.AddEdge(bag)
}

// Expand turns a query with multi-valued clauses into every single-valued
// bag it describes: the cartesian product of its clauses. Keys are walked
// in ascending order, values in the order given.
//
//	Expand(Query{"color": {"red", "blue"}, "size": {1, 2}})
//	// [{color:red size:1} {color:red size:2} {color:blue size:1} {color:blue size:2}]
//
// An empty query expands to one empty bag; a clause with no values
// expands to nothing.
func Expand(q Query) []Attrs {
	out := []Attrs{{}}
	for _, key := range slices.Sorted(maps.Keys(q)) {
		values := q[key]
		grown := make([]Attrs, 0, len(out)*len(values))
		for _, base := range out {
			for _, v := range values {
				bag := base.Clone()
				bag[key] = v
				grown = append(grown, bag)
			}
		}
		out = grown
	}
	return out
}

// AddExpanded adds one node for every bag Expand(q) produces.
func (g *Graph) AddExpanded(q Query) (*Graph, []Node, error) {
	return g.AddNodes(Expand(q)...)
}
