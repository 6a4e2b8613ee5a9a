// Package graph provides an immutable, queryable directed graph.
//
// A Graph is a value: every mutation returns a new *Graph that shares
// structure with its predecessor, and the predecessor keeps answering
// queries exactly as before. Snapshots can be handed to any number of
// goroutines without locking.
//
// Nodes and edges are attribute bags. Edges are typed by a registered
// relation pair such as parent/child: an edge's bag carries both keys of
// exactly one pair, and their values are the ids of the two nodes it joins.
// {"parent": 0, "child": 2} reads "node 0 is the parent, node 2 the child".
//
// Example Usage:
//
//	g, err := graph.New(graph.WithRelations(graph.RelationPair{From: "parent", To: "child"}))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	g, alice, _ := g.AddNode(graph.Attrs{"name": "alice"})
//	g, bob, _ := g.AddNode(graph.Attrs{"name": "bob"})
//	g, edge, _ := g.Relate("parent", alice.ID(), bob.ID(), nil)
//
//	// Nodes whose child is bob.
//	parents := g.QueryNodes(graph.Query{"parent": {bob}})
//
//	// Edges hanging off alice as the parent.
//	edges := g.QueryEdges(graph.Query{"parent": {alice}})
//
// Invariants held after every successful mutation:
//   - every edge holds exactly one opposite relation pair, both values
//     naming existing nodes
//   - no node bag uses a registered relation key
//   - the relation bijection is symmetric
//   - a relation pair with live edges cannot be removed
//
// Rejected mutations return the receiver unchanged together with an error
// wrapping one of the Err* sentinels.
//
// Constraints are functions run after every mutation, in registration
// order, each receiving the graph produced by the one before. They may
// validate (return an error) or transform (return a new graph). A
// constraint that mutates the graph triggers the pipeline again for that
// inner mutation; a constraint that always mutates will not terminate.
package graph

import (
	"sync/atomic"

	"github.com/benbjohnson/immutable"

	"github.com/orneryd/valgraph/pkg/bimap"
	"github.com/orneryd/valgraph/pkg/idgen"
	"github.com/orneryd/valgraph/pkg/index"
)

// Constraint validates or transforms a graph after a mutation. changed is
// the Node view or EdgeID the mutation touched. Returning a nil graph with
// a nil error keeps g.
type Constraint func(g *Graph, changed Entity) (*Graph, error)

var revisions atomic.Uint64

// Graph is an immutable directed graph snapshot. The zero value is not
// usable; create graphs with New.
type Graph struct {
	rev         uint64
	nodes       *index.Map
	edges       *index.Map
	relations   bimap.Map
	nodeIDs     idgen.Source
	edgeIDs     idgen.Source
	constraints *immutable.List[Constraint]
}

// Option configures New.
type Option func(*options)

type options struct {
	relations   []RelationPair
	constraints []Constraint
}

// WithRelations pre-registers relation pairs.
func WithRelations(pairs ...RelationPair) Option {
	return func(o *options) { o.relations = append(o.relations, pairs...) }
}

// WithConstraints pre-registers constraints, run in the order given.
func WithConstraints(fns ...Constraint) Option {
	return func(o *options) { o.constraints = append(o.constraints, fns...) }
}

// New returns an empty graph. It fails only when a relation pair is
// invalid (empty or identical keys).
func New(opts ...Option) (*Graph, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	g := &Graph{
		rev:         revisions.Add(1),
		nodes:       index.New(),
		edges:       index.New(),
		nodeIDs:     idgen.Nodes(),
		edgeIDs:     idgen.Edges(),
		constraints: immutable.NewList[Constraint](),
	}
	for _, p := range o.relations {
		next, err := g.AddRelation(p.From, p.To)
		if err != nil {
			return nil, err
		}
		g = next
	}
	for _, fn := range o.constraints {
		g = g.AddConstraint(fn)
	}
	return g, nil
}

// derive returns a shallow copy with a fresh revision. Callers replace the
// fields they change; the shared structures are never written in place.
func (g *Graph) derive() *Graph {
	next := *g
	next.rev = revisions.Add(1)
	return &next
}

// Rev identifies this snapshot. Every derived graph gets a new, larger
// revision, so (Rev, query) is a stable cache key.
func (g *Graph) Rev() uint64 { return g.rev }

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return g.nodes.Len() }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return g.edges.Len() }

// NextNodeID returns the id the next AddNode will assign.
func (g *Graph) NextNodeID() NodeID { return NodeID(g.nodeIDs.Peek()) }

// NextEdgeID returns the id the next AddEdge will assign.
func (g *Graph) NextEdgeID() EdgeID { return EdgeID(g.edgeIDs.Peek()) }

// ---------------------------------------------------------------------------
// Relations
// ---------------------------------------------------------------------------

// Relations returns the relation bijection of this snapshot.
func (g *Graph) Relations() bimap.Map { return g.relations }

// Related reports whether r1 and r2 are registered opposites.
func (g *Graph) Related(r1, r2 string) bool { return g.relations.Opposites(r1, r2) }

// Opposite returns the partner of relation key r.
func (g *Graph) Opposite(r string) (string, bool) { return g.relations.Get(r) }

// IsRelation reports whether key is a registered relation key.
func (g *Graph) IsRelation(key string) bool { return g.relations.Contains(key) }

// AddRelation registers r1 and r2 as opposites. Registering an existing
// pair again is a no-op.
//
// It fails with ErrInvalidRelation for empty or identical keys, with
// ErrRelationCollision when a key is already an ordinary attribute of some
// node or edge, and with ErrRelationInUse when re-pairing a key whose
// current pair still has edges.
func (g *Graph) AddRelation(r1, r2 string) (*Graph, error) {
	const op = "add relation"
	if r1 == "" || r2 == "" || r1 == r2 {
		return g, violation(op, -1, ErrInvalidRelation, r1, r2)
	}
	if g.relations.Opposites(r1, r2) {
		return g, nil
	}
	for _, r := range []string{r1, r2} {
		if old, ok := g.relations.Get(r); ok {
			if g.relationInUse(r, old) {
				return g, violation(op, -1, ErrRelationInUse, r, old)
			}
			continue
		}
		if !g.nodes.KeysWithAttr(r).Empty() || !g.edges.KeysWithAttr(r).Empty() {
			return g, violation(op, -1, ErrRelationCollision, r)
		}
	}

	next := g.derive()
	next.relations = g.relations.Put(r1, r2)
	return next, nil
}

// RemoveRelation unregisters the pair r1/r2. The keys must currently be
// opposites (ErrNotOpposites) and no edge may use either of them
// (ErrRelationInUse).
func (g *Graph) RemoveRelation(r1, r2 string) (*Graph, error) {
	const op = "remove relation"
	relations, ok := g.relations.RemovePair(r1, r2)
	if !ok {
		return g, violation(op, -1, ErrNotOpposites, r1, r2)
	}
	if g.relationInUse(r1, r2) {
		return g, violation(op, -1, ErrRelationInUse, r1, r2)
	}

	next := g.derive()
	next.relations = relations
	return next, nil
}

func (g *Graph) relationInUse(r1, r2 string) bool {
	return !g.edges.KeysWithAttr(r1).Empty() || !g.edges.KeysWithAttr(r2).Empty()
}

// relationKeys returns the keys of attrs that are registered relations,
// ascending.
func (g *Graph) relationKeys(attrs Attrs) []string {
	var out []string
	for _, k := range attrs.Keys() {
		if g.relations.Contains(k) {
			out = append(out, k)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Constraints
// ---------------------------------------------------------------------------

// AddConstraint returns a graph whose pipeline runs fn after every
// constraint already registered. Existing data is not re-checked; call
// VerifyConstraints for that.
func (g *Graph) AddConstraint(fn Constraint) *Graph {
	next := g.derive()
	next.constraints = g.constraints.Append(fn)
	return next
}

// ResetConstraints returns a graph with an empty pipeline.
func (g *Graph) ResetConstraints() *Graph {
	next := g.derive()
	next.constraints = immutable.NewList[Constraint]()
	return next
}

// ConstraintCount returns the number of registered constraints.
func (g *Graph) ConstraintCount() int { return g.constraints.Len() }

// VerifyConstraints runs the pipeline once per node and then once per
// edge, ascending by id, threading the graph through every run. Ids are
// collected up front; an entity removed by an earlier run is skipped.
func (g *Graph) VerifyConstraints() (*Graph, error) {
	nodeIDs := g.nodes.Keys().Sorted()
	edgeIDs := g.edges.Keys().Sorted()

	cur := g
	for _, id := range nodeIDs {
		if !cur.nodes.Has(id) {
			continue
		}
		next, err := cur.runConstraints(Node{id: NodeID(id), nodes: cur.nodes})
		if err != nil {
			return g, err
		}
		cur = next
	}
	for _, id := range edgeIDs {
		if !cur.edges.Has(id) {
			continue
		}
		next, err := cur.runConstraints(EdgeID(id))
		if err != nil {
			return g, err
		}
		cur = next
	}
	return cur, nil
}

// runConstraints threads g through every constraint in order. Constraint
// errors are returned unwrapped.
func (g *Graph) runConstraints(changed Entity) (*Graph, error) {
	cur := g
	itr := g.constraints.Iterator()
	for !itr.Done() {
		_, fn := itr.Next()
		next, err := fn(cur, changed)
		if err != nil {
			return nil, err
		}
		if next != nil {
			cur = next
		}
	}
	return cur, nil
}
