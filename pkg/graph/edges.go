package graph

import (
	"github.com/orneryd/valgraph/pkg/index"
)

// Edge is a materialized edge: its bag with the two relation keys holding
// Node views of the snapshot it was read from.
type Edge struct {
	ID    EdgeID
	Attrs Attrs
}

// Node returns the endpoint stored under relation key rel.
func (e Edge) Node(rel string) (Node, bool) {
	n, ok := e.Attrs[rel].(Node)
	return n, ok
}

// AddEdge inserts an edge. attrs must hold exactly one opposite relation
// pair, and both values must resolve to existing nodes. Endpoint values
// may be Node views, NodeIDs or integers; they are stored as NodeIDs.
//
// Returns:
//   - ErrEdgeRelations unless exactly two relation keys, opposite to each
//     other, are present
//   - ErrMissingEndpoint if an endpoint is not an existing node
//   - any error raised by a constraint
//
// Example:
//
//	g, e, err := g.AddEdge(graph.Attrs{"parent": alice, "child": bob, "since": 2019})
func (g *Graph) AddEdge(attrs Attrs) (*Graph, EdgeID, error) {
	const op = "add edge"
	id, ids := g.edgeIDs.Next()

	rels := g.relationKeys(attrs)
	if len(rels) != 2 || !g.relations.Opposites(rels[0], rels[1]) {
		return g, 0, violation(op, id, ErrEdgeRelations, rels...)
	}

	stored := attrs.Clone()
	for _, r := range rels {
		target, err := g.endpoint(op, id, r, attrs[r])
		if err != nil {
			return g, 0, err
		}
		stored[r] = target
	}

	next := g.derive()
	next.edges = g.edges.Put(id, stored)
	next.edgeIDs = ids

	out, err := next.runConstraints(EdgeID(id))
	if err != nil {
		return g, 0, err
	}
	return out, EdgeID(id), nil
}

// RemoveEdge removes an edge and returns its id to the front of the free
// list. Removing an absent edge returns the receiver and runs nothing.
func (g *Graph) RemoveEdge(id EdgeID) (*Graph, error) {
	if !g.edges.Has(int64(id)) {
		return g, nil
	}

	next := g.derive()
	next.edges = g.edges.Remove(int64(id))
	next.edgeIDs = g.edgeIDs.Release(int64(id))

	out, err := next.runConstraints(id)
	if err != nil {
		return g, err
	}
	return out, nil
}

// AssocEdge replaces the ordinary attributes of an edge wholesale and may
// re-point its endpoints, but never change its relation pair.
//
// Relation keys in attrs are checked first: each must belong to the edge's
// current pair. A pair key left out of attrs keeps its current endpoint, so
// an attribute-only update carries both endpoints over. Endpoints that are
// given must name existing nodes.
//
// Returns:
//   - ErrNotFound if the edge does not exist
//   - ErrRelationAltered if attrs names a relation key outside the pair
//   - ErrMissingEndpoint if a new endpoint is not an existing node
//   - any error raised by a constraint
func (g *Graph) AssocEdge(id EdgeID, attrs Attrs) (*Graph, error) {
	const op = "assoc edge"
	existing, ok := g.edges.Get(int64(id))
	if !ok {
		return g, violation(op, int64(id), ErrNotFound)
	}
	pair := g.relationKeys(existing)
	if len(pair) != 2 {
		return g, violation(op, int64(id), ErrEdgeRelations, pair...)
	}

	for _, r := range g.relationKeys(attrs) {
		if r != pair[0] && r != pair[1] {
			return g, violation(op, int64(id), ErrRelationAltered, r)
		}
	}

	stored := attrs.Clone()
	for _, r := range pair {
		v, given := attrs[r]
		if !given {
			stored[r] = existing[r]
			continue
		}
		target, err := g.endpoint(op, int64(id), r, v)
		if err != nil {
			return g, err
		}
		stored[r] = target
	}
	return g.putEdge(id, stored)
}

// DissocEdge removes ordinary attribute keys from an edge. Relation keys
// cannot be removed: an edge joins exactly two nodes or does not exist.
func (g *Graph) DissocEdge(id EdgeID, keys ...string) (*Graph, error) {
	const op = "dissoc edge"
	attrs, ok := g.edges.Get(int64(id))
	if !ok {
		return g, violation(op, int64(id), ErrNotFound)
	}
	var rels []string
	for _, k := range keys {
		if g.relations.Contains(k) {
			rels = append(rels, k)
		}
	}
	if len(rels) > 0 {
		return g, violation(op, int64(id), ErrRelationDissoc, rels...)
	}
	for _, k := range keys {
		delete(attrs, k)
	}
	return g.putEdge(id, attrs)
}

func (g *Graph) putEdge(id EdgeID, attrs Attrs) (*Graph, error) {
	next := g.derive()
	next.edges = g.edges.Put(int64(id), attrs)

	out, err := next.runConstraints(id)
	if err != nil {
		return g, err
	}
	return out, nil
}

// endpoint resolves an edge endpoint value to an existing node id.
func (g *Graph) endpoint(op string, edge int64, rel string, v any) (NodeID, error) {
	target, ok := toNodeID(v)
	if !ok || !g.nodes.Has(int64(target)) {
		return 0, violation(op, edge, ErrMissingEndpoint, rel)
	}
	return target, nil
}

// GetEdge materializes an edge, resolving both endpoints to Node views of
// this snapshot.
func (g *Graph) GetEdge(id EdgeID) (Edge, bool) {
	attrs, ok := g.edges.Get(int64(id))
	if !ok {
		return Edge{}, false
	}
	for _, r := range g.relationKeys(attrs) {
		if target, ok := toNodeID(attrs[r]); ok {
			attrs[r] = g.node(target)
		}
	}
	return Edge{ID: id, Attrs: attrs}, true
}

// EdgeAttrs returns the raw bag of an edge, endpoints as NodeIDs.
func (g *Graph) EdgeAttrs(id EdgeID) (Attrs, bool) {
	return g.edges.Get(int64(id))
}

// EdgeExists reports whether id is an edge of this snapshot.
func (g *Graph) EdgeExists(id EdgeID) bool {
	return g.edges.Has(int64(id))
}

// Edges returns every edge id, ascending.
func (g *Graph) Edges() []EdgeID {
	return edgeIDs(g.edges.Keys())
}

// QueryEdges returns the ids of edges matching q, ascending. Every key,
// relation keys included, is a direct lookup against the edge index: edges
// store their endpoints, so {"parent": [alice]} finds the edges whose
// parent is alice.
func (g *Graph) QueryEdges(q Query) []EdgeID {
	return edgeIDs(g.QueryEdgeIDs(q))
}

// QueryEdgeIDs is QueryEdges returning the raw id set.
func (g *Graph) QueryEdgeIDs(q Query) index.Set {
	if len(q) == 0 {
		return g.edges.Keys()
	}
	return g.conjunction(q, func(key string, values []any) index.Set {
		return g.attrClause(g.edges, key, values)
	})
}

func edgeIDs(ids index.Set) []EdgeID {
	sorted := ids.Sorted()
	out := make([]EdgeID, len(sorted))
	for i, id := range sorted {
		out[i] = EdgeID(id)
	}
	return out
}
