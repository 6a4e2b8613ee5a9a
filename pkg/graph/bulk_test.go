package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpand(t *testing.T) {
	tests := []struct {
		name  string
		query Query
		want  []Attrs
	}{
		{"empty query", Query{}, []Attrs{{}}},
		{"single clause", Query{"a": {1, 2}}, []Attrs{{"a": 1}, {"a": 2}}},
		{"empty clause", Query{"a": {1}, "b": {}}, []Attrs{}},
		{
			"cartesian product, keys ascending",
			Query{"size": {1, 2}, "color": {"red", "blue"}},
			[]Attrs{
				{"color": "red", "size": 1},
				{"color": "red", "size": 2},
				{"color": "blue", "size": 1},
				{"color": "blue", "size": 2},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Expand(tt.query))
		})
	}
}

func TestAddExpanded(t *testing.T) {
	g, err := New()
	require.NoError(t, err)
	g, nodes, err := g.AddExpanded(Query{"color": {"red", "blue"}, "size": {1, 2, 3}})
	require.NoError(t, err)
	assert.Len(t, nodes, 6)
	assert.Len(t, g.QueryNodes(Query{"color": {"red"}}), 3)
	assert.Len(t, g.QueryNodes(Query{"size": {2}}), 2)
	assert.Len(t, g.QueryNodes(Query{"color": {"blue"}, "size": {3}}), 1)
}

func TestBatch_AllOrNothing(t *testing.T) {
	g, err := New(WithRelations(parentChild), WithConstraints(maxAge(100)))
	require.NoError(t, err)

	got, nodes, err := g.AddNodes(Attrs{"age": 1}, Attrs{"age": 2}, Attrs{"age": 300})
	assert.ErrorIs(t, err, errTooOld)
	assert.Nil(t, nodes)
	assert.Same(t, g, got)

	g, nodes, err = g.AddNodes(Attrs{"age": 1}, Attrs{"age": 2})
	require.NoError(t, err)
	got, err = g.AssocNodes(map[NodeID]Attrs{
		nodes[0].ID(): {"age": 3},
		nodes[1].ID(): {"parent": 1},
	})
	assert.ErrorIs(t, err, ErrRelationCollision)
	assert.Same(t, g, got)

	got, _, err = g.AddEdges(
		Attrs{"parent": nodes[0], "child": nodes[1]},
		Attrs{"parent": nodes[0], "child": NodeID(90)},
	)
	assert.ErrorIs(t, err, ErrMissingEndpoint)
	assert.Same(t, g, got)
	assert.Equal(t, 0, g.EdgeCount())
}

func TestBatch_Edges(t *testing.T) {
	g, err := New(WithRelations(parentChild))
	require.NoError(t, err)
	g, nodes, err := g.AddNodes(Attrs{}, Attrs{}, Attrs{})
	require.NoError(t, err)
	a, b, c := nodes[0].ID(), nodes[1].ID(), nodes[2].ID()

	g, ids, err := g.AddEdges(
		Attrs{"parent": a, "child": b, "w": 1},
		Attrs{"parent": b, "child": c, "w": 1},
		Attrs{"parent": a, "child": c, "w": 1},
	)
	require.NoError(t, err)

	g, err = g.AssocEdges(map[EdgeID]Attrs{ids[0]: {"w": 2}, ids[1]: {"w": 2}})
	require.NoError(t, err)
	assert.Equal(t, ids[:2], g.QueryEdges(Query{"w": {2}}))

	g, err = g.DissocEdges(ids, "w")
	require.NoError(t, err)
	assert.Empty(t, g.QueryEdges(Query{"w": {1, 2}}))

	g, err = g.RemoveEdges(ids[0], ids[2], EdgeID(999))
	require.NoError(t, err)
	assert.Equal(t, []EdgeID{ids[1]}, g.Edges())
	checkInvariants(t, g)
}

func TestBatch_Nodes(t *testing.T) {
	g, err := New(WithRelations(parentChild))
	require.NoError(t, err)
	g, nodes, err := g.AddNodes(Attrs{"k": 1, "x": 1}, Attrs{"k": 1, "x": 1}, Attrs{"k": 2})
	require.NoError(t, err)
	for _, n := range nodes {
		assert.True(t, n.Exists(), "views are taken over the final graph")
	}

	g, err = g.DissocNodes([]NodeID{nodes[0].ID(), nodes[1].ID()}, "x")
	require.NoError(t, err)
	assert.Empty(t, g.QueryNodes(Query{"x": {1}}))

	g, err = g.RemoveNodes(nodes[0].ID(), nodes[2].ID())
	require.NoError(t, err)
	assert.Equal(t, []NodeID{nodes[1].ID()}, nodeIDs(g.Nodes()))
}
