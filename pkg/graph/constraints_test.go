package graph

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTooOld = errors.New("too old")

// maxAge rejects nodes older than limit.
func maxAge(limit int) Constraint {
	return func(g *Graph, changed Entity) (*Graph, error) {
		n, ok := changed.(Node)
		if !ok || !n.Exists() {
			return g, nil
		}
		if age, ok := n.GetOr("age", 0).(int); ok && age > limit {
			return nil, fmt.Errorf("node %d: %w", n.ID(), errTooOld)
		}
		return g, nil
	}
}

// stamp appends tag to the "trail" attribute of the changed node.
func stamp(tag string) Constraint {
	return func(g *Graph, changed Entity) (*Graph, error) {
		n, ok := changed.(Node)
		if !ok || !n.Exists() {
			return g, nil
		}
		cur, ok := g.GetNode(n.ID())
		if !ok {
			return g, nil
		}
		attrs := cur.Attrs()
		trail, _ := attrs["trail"].(string)
		attrs["trail"] = trail + tag
		return g.assocRaw(n.ID(), attrs), nil
	}
}

// withConstraintsOf copies src's pipeline onto g.
func (g *Graph) withConstraintsOf(src *Graph) *Graph {
	next := g.derive()
	next.constraints = src.constraints
	return next
}

// assocRaw writes a bag without running constraints.
func (g *Graph) assocRaw(id NodeID, attrs Attrs) *Graph {
	next := g.derive()
	next.nodes = g.nodes.Put(int64(id), attrs)
	return next
}

func TestConstraints_Validate(t *testing.T) {
	g, err := New(WithConstraints(maxAge(100)))
	require.NoError(t, err)

	g, _, err = g.AddNode(Attrs{"age": 30})
	require.NoError(t, err)

	got, _, err := g.AddNode(Attrs{"age": 130})
	assert.ErrorIs(t, err, errTooOld)
	assert.Same(t, g, got)
	assert.Equal(t, 1, g.NodeCount())

	id := g.Nodes()[0].ID()
	_, err = g.AssocNode(id, Attrs{"age": 101})
	assert.ErrorIs(t, err, errTooOld, "constraints run on assoc")
}

func TestConstraints_RunInRegistrationOrder(t *testing.T) {
	g, err := New(WithConstraints(stamp("a"), stamp("b")))
	require.NoError(t, err)

	g, n, err := g.AddNode(Attrs{})
	require.NoError(t, err)
	assert.Equal(t, "ab", n.GetOr("trail", ""), "second constraint sees the first one's result")
}

func TestConstraints_SeeTransformedGraph(t *testing.T) {
	var seen []int
	count := func(g *Graph, _ Entity) (*Graph, error) {
		seen = append(seen, g.NodeCount())
		return g, nil
	}
	// addShadow adds a shadow node for every real node, once.
	addShadow := func(g *Graph, changed Entity) (*Graph, error) {
		n, ok := changed.(Node)
		if !ok || n.Contains("shadow") || !n.Exists() {
			return g, nil
		}
		next, _, err := g.ResetConstraints().AddNode(Attrs{"shadow": true})
		if err != nil {
			return nil, err
		}
		return next.withConstraintsOf(g), nil
	}

	g, err := New(WithConstraints(addShadow, count))
	require.NoError(t, err)
	g, _, err = g.AddNode(Attrs{})
	require.NoError(t, err)

	assert.Equal(t, 2, g.NodeCount())
	assert.Equal(t, []int{2}, seen)
}

func TestConstraints_ReceiveChangedEntity(t *testing.T) {
	var got []string
	record := func(g *Graph, changed Entity) (*Graph, error) {
		switch c := changed.(type) {
		case Node:
			got = append(got, fmt.Sprintf("node %d exists=%v", c.ID(), c.Exists()))
		case EdgeID:
			got = append(got, fmt.Sprintf("edge %d", c))
		}
		return g, nil
	}

	g, err := New(WithRelations(parentChild), WithConstraints(record))
	require.NoError(t, err)
	g, nodes, err := g.AddNodes(Attrs{}, Attrs{})
	require.NoError(t, err)
	g, e, err := g.Relate("parent", nodes[0].ID(), nodes[1].ID(), nil)
	require.NoError(t, err)
	g, err = g.RemoveEdge(e)
	require.NoError(t, err)
	_, err = g.RemoveNode(nodes[1].ID())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"node 0 exists=true",
		"node 2 exists=true",
		"edge 1",
		"edge 1",
		"node 2 exists=true", // the removal view reads the pre-removal snapshot
	}, got)
}

func TestConstraints_NilGraphKeepsInput(t *testing.T) {
	keep := func(*Graph, Entity) (*Graph, error) { return nil, nil }
	g, err := New(WithConstraints(keep))
	require.NoError(t, err)
	g, _, err = g.AddNode(Attrs{"x": 1})
	require.NoError(t, err)
	assert.Equal(t, 1, g.NodeCount())
}

func TestConstraints_Reset(t *testing.T) {
	g, err := New(WithConstraints(maxAge(10)))
	require.NoError(t, err)

	reset := g.ResetConstraints()
	assert.Equal(t, 0, reset.ConstraintCount())
	assert.Equal(t, 1, g.ConstraintCount())

	_, _, err = reset.AddNode(Attrs{"age": 50})
	assert.NoError(t, err)
}

func TestConstraints_Verify(t *testing.T) {
	g, err := New(WithRelations(parentChild))
	require.NoError(t, err)
	g, nodes, err := g.AddNodes(Attrs{"age": 5}, Attrs{"age": 50})
	require.NoError(t, err)
	g, _, err = g.Relate("parent", nodes[1].ID(), nodes[0].ID(), nil)
	require.NoError(t, err)

	t.Run("adding a constraint does not re-check", func(t *testing.T) {
		checked := g.AddConstraint(maxAge(10))
		assert.Equal(t, 2, checked.NodeCount())

		_, err := checked.VerifyConstraints()
		assert.ErrorIs(t, err, errTooOld)
	})

	t.Run("visits nodes then edges", func(t *testing.T) {
		var order []string
		record := func(g *Graph, changed Entity) (*Graph, error) {
			switch c := changed.(type) {
			case Node:
				order = append(order, fmt.Sprintf("n%d", c.ID()))
			case EdgeID:
				order = append(order, fmt.Sprintf("e%d", c))
			}
			return g, nil
		}
		_, err := g.AddConstraint(record).VerifyConstraints()
		require.NoError(t, err)
		assert.Equal(t, []string{"n0", "n2", "e1"}, order)
	})

	t.Run("skips entities removed along the way", func(t *testing.T) {
		var visited []NodeID
		prune := func(g *Graph, changed Entity) (*Graph, error) {
			n, ok := changed.(Node)
			if !ok {
				return g, nil
			}
			visited = append(visited, n.ID())
			if n.ID() == nodes[0].ID() {
				return g.ResetConstraints().RemoveNode(nodes[1].ID())
			}
			return g, nil
		}
		out, err := g.AddConstraint(prune).VerifyConstraints()
		require.NoError(t, err)
		assert.Equal(t, []NodeID{nodes[0].ID()}, visited)
		assert.Equal(t, 1, out.NodeCount())
		assert.Equal(t, 0, out.EdgeCount())
	})
}

func TestConstraints_CascadingDelete(t *testing.T) {
	// members removes every node whose "group" names a removed node. Inner
	// removals run the pipeline again, so membership cascades.
	members := func(g *Graph, changed Entity) (*Graph, error) {
		n, ok := changed.(Node)
		if !ok || g.NodeExists(n.ID()) {
			return g, nil
		}
		var ids []NodeID
		for _, m := range g.QueryNodes(Query{"group": {n.ID()}}) {
			ids = append(ids, m.ID())
		}
		return g.RemoveNodes(ids...)
	}

	g, err := New(WithRelations(parentChild))
	require.NoError(t, err)
	g, nodes, err := g.AddNodes(Attrs{"role": "root"}, Attrs{}, Attrs{}, Attrs{}, Attrs{"role": "other"})
	require.NoError(t, err)
	root, a, b, c, other := nodes[0].ID(), nodes[1].ID(), nodes[2].ID(), nodes[3].ID(), nodes[4].ID()
	g, err = g.AssocNodes(map[NodeID]Attrs{
		a: {"group": root},
		b: {"group": root},
		c: {"group": a},
	})
	require.NoError(t, err)
	g, _, err = g.Relate("parent", root, a, nil)
	require.NoError(t, err)
	g, _, err = g.Relate("parent", other, c, nil)
	require.NoError(t, err)
	g = g.AddConstraint(members)

	out, err := g.RemoveNode(root)
	require.NoError(t, err)
	assert.Equal(t, []NodeID{other}, nodeIDs(out.Nodes()))
	assert.Equal(t, 0, out.EdgeCount())
	checkInvariants(t, out)
}

func TestConstraints_AddNodeRemovedByConstraint(t *testing.T) {
	dropTransient := func(g *Graph, changed Entity) (*Graph, error) {
		n, ok := changed.(Node)
		if !ok || !n.Exists() || n.GetOr("transient", false) != true {
			return g, nil
		}
		return g.RemoveNode(n.ID())
	}

	g, err := New()
	require.NoError(t, err)
	g = g.AddConstraint(dropTransient)

	out, n, err := g.AddNode(Attrs{"transient": true})
	require.NoError(t, err)
	assert.Equal(t, NodeID(0), n.ID(), "the view keeps the assigned id")
	assert.False(t, n.Exists())
	assert.Empty(t, n.Attrs())
	assert.Equal(t, 0, out.NodeCount())

	out, kept, err := out.AddNode(Attrs{"transient": false})
	require.NoError(t, err)
	assert.True(t, kept.Exists())
	assert.Equal(t, 1, out.NodeCount())
}

func nodeIDs(nodes []Node) []NodeID {
	out := make([]NodeID, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID()
	}
	return out
}
