package graph

import (
	"slices"

	"github.com/orneryd/valgraph/pkg/index"
)

// AddNode inserts a node with attrs under the next free node id, runs the
// constraint pipeline with the new node's view and returns the resulting
// graph along with a view of the node in it. If a constraint removed the
// node, the view still carries the assigned id but Exists reports false and
// it holds no attributes.
//
// Returns:
//   - ErrRelationCollision if attrs uses a registered relation key
//   - any error raised by a constraint
//
// Example:
//
//	g, alice, err := g.AddNode(graph.Attrs{"name": "alice"})
//	if err != nil {
//		return err
//	}
//	fmt.Println(alice.GetOr("name", "?"))
func (g *Graph) AddNode(attrs Attrs) (*Graph, Node, error) {
	const op = "add node"
	id, ids := g.nodeIDs.Next()
	if keys := g.relationKeys(attrs); len(keys) > 0 {
		return g, Node{}, violation(op, id, ErrRelationCollision, keys...)
	}

	next := g.derive()
	next.nodes = g.nodes.Put(id, attrs)
	next.nodeIDs = ids

	out, err := next.runConstraints(Node{id: NodeID(id), nodes: next.nodes})
	if err != nil {
		return g, Node{}, err
	}
	return out, out.node(NodeID(id)), nil
}

// RemoveNode removes a node together with every edge touching it, under
// any relation, in one step. The node id and the edge ids go back to the
// front of their free lists. The pipeline runs once, with a view over the
// snapshot the node was removed from so constraints can still read it.
//
// Removing an absent node returns the receiver and runs nothing.
func (g *Graph) RemoveNode(id NodeID) (*Graph, error) {
	if !g.nodes.Has(int64(id)) {
		return g, nil
	}

	next := g.derive()
	g.touching(id).Each(func(edge int64) bool {
		next.edges = next.edges.Remove(edge)
		next.edgeIDs = next.edgeIDs.Release(edge)
		return true
	})
	next.nodes = g.nodes.Remove(int64(id))
	next.nodeIDs = g.nodeIDs.Release(int64(id))

	out, err := next.runConstraints(Node{id: id, nodes: g.nodes})
	if err != nil {
		return g, err
	}
	return out, nil
}

// AssocNode replaces the bag of an existing node wholesale.
//
// Returns:
//   - ErrNotFound if the node does not exist (use AddNode to create)
//   - ErrRelationCollision if attrs uses a registered relation key
//   - any error raised by a constraint
func (g *Graph) AssocNode(id NodeID, attrs Attrs) (*Graph, error) {
	const op = "assoc node"
	if !g.nodes.Has(int64(id)) {
		return g, violation(op, int64(id), ErrNotFound)
	}
	if keys := g.relationKeys(attrs); len(keys) > 0 {
		return g, violation(op, int64(id), ErrRelationCollision, keys...)
	}
	return g.putNode(id, attrs)
}

// DissocNode removes keys from a node's bag. Keys the node does not have
// are ignored.
func (g *Graph) DissocNode(id NodeID, keys ...string) (*Graph, error) {
	attrs, ok := g.nodes.Get(int64(id))
	if !ok {
		return g, violation("dissoc node", int64(id), ErrNotFound)
	}
	for _, k := range keys {
		delete(attrs, k)
	}
	return g.putNode(id, attrs)
}

func (g *Graph) putNode(id NodeID, attrs Attrs) (*Graph, error) {
	next := g.derive()
	next.nodes = g.nodes.Put(int64(id), attrs)

	out, err := next.runConstraints(Node{id: id, nodes: next.nodes})
	if err != nil {
		return g, err
	}
	return out, nil
}

// GetNode returns a view of the node, or false when it does not exist.
func (g *Graph) GetNode(id NodeID) (Node, bool) {
	if !g.nodes.Has(int64(id)) {
		return Node{}, false
	}
	return g.node(id), true
}

// NodeExists reports whether id is a node of this snapshot.
func (g *Graph) NodeExists(id NodeID) bool {
	return g.nodes.Has(int64(id))
}

// Nodes returns views of every node, ascending by id.
func (g *Graph) Nodes() []Node {
	return views(g.nodes.Keys(), g.nodes)
}

// Views maps node ids to views of this snapshot, ascending by id. Ids
// that are not nodes are dropped.
func (g *Graph) Views(ids index.Set) []Node {
	return views(ids.Intersect(g.nodes.Keys()), g.nodes)
}

func (g *Graph) node(id NodeID) Node {
	return Node{id: id, nodes: g.nodes}
}

// QueryNodes returns views of the nodes matching q, ascending by id.
//
// For an ordinary attribute key a clause matches nodes holding one of the
// listed values. For a relation key r, a clause {r: [v]} is a one-hop join
// through the edge index: it matches e[r] for every edge e whose opposite
// key points at v. With parent/child, {"parent": [bob]} yields bob's
// parents. Values for relation clauses may be Node views, NodeIDs or
// integers.
func (g *Graph) QueryNodes(q Query) []Node {
	return views(g.QueryNodeIDs(q), g.nodes)
}

// QueryNodeIDs is QueryNodes without building views.
func (g *Graph) QueryNodeIDs(q Query) index.Set {
	if len(q) == 0 {
		return g.nodes.Keys()
	}
	return g.conjunction(q, g.nodeClause)
}

func (g *Graph) nodeClause(key string, values []any) index.Set {
	opposite, isRelation := g.relations.Get(key)
	if !isRelation {
		return g.attrClause(g.nodes, key, values)
	}

	var out index.Set
	for _, v := range values {
		target, ok := toNodeID(v)
		if !ok {
			continue
		}
		g.edges.KeysWith(opposite, target).Each(func(edge int64) bool {
			if other, ok := g.edges.Value(edge, key); ok {
				if id, ok := toNodeID(other); ok {
					out = out.Add(int64(id))
				}
			}
			return true
		})
	}
	return out
}

// attrClause unions KeysWith over values.
func (g *Graph) attrClause(m *index.Map, key string, values []any) index.Set {
	var out index.Set
	for _, v := range values {
		out = out.Union(m.KeysWith(key, v))
	}
	return out
}

// conjunction intersects the clauses of q, in key order, stopping as soon
// as the running result is empty.
func (g *Graph) conjunction(q Query, clause func(key string, values []any) index.Set) index.Set {
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var result index.Set
	for i, k := range keys {
		set := clause(k, q[k])
		if i == 0 {
			result = set
		} else {
			result = result.Intersect(set)
		}
		if result.Empty() {
			break
		}
	}
	return result
}

// touching returns the edges that reference id under any relation key.
func (g *Graph) touching(id NodeID) index.Set {
	var out index.Set
	for _, r := range g.relations.Keys() {
		out = out.Union(g.edges.KeysWith(r, id))
	}
	return out
}
