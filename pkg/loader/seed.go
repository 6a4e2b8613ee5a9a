// Package loader builds graphs from YAML seed documents.
//
// A seed names its nodes locally so edges can refer to them before any id
// has been assigned:
//
//	relations:
//	  - {from: parent, to: child}
//	nodes:
//	  - name: ann
//	    attrs: {kind: person, age: 70}
//	  - name: bob
//	    attrs: {kind: person, age: 45}
//	edges:
//	  - {parent: ann, child: bob, since: 1980}
//	expand:
//	  - {color: [red, blue], size: [1, 2]}
//
// Edge keys that are registered relations take node names (or raw node
// ids); every other key is an ordinary edge attribute. Each expand entry
// adds one node per combination of its values.
//
// Example Usage:
//
//	g, _ := graph.New()
//	res, err := loader.LoadFile(g, "./seed.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(res.Graph.NodeCount(), res.Names["ann"])
package loader

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/orneryd/valgraph/pkg/graph"
)

var (
	// ErrDuplicateName is returned when two seed nodes share a name.
	ErrDuplicateName = errors.New("duplicate node name")
	// ErrUnknownName is returned when an edge names a node the seed does not define.
	ErrUnknownName = errors.New("unknown node name")
)

// Seed is a parsed seed document.
type Seed struct {
	Relations []graph.RelationPair `yaml:"relations"`
	Nodes     []NodeSpec           `yaml:"nodes"`
	Edges     []map[string]any     `yaml:"edges"`
	Expand    []map[string][]any   `yaml:"expand"`
}

// NodeSpec is one seed node. Name is local to the seed and optional.
type NodeSpec struct {
	Name  string         `yaml:"name"`
	Attrs map[string]any `yaml:"attrs"`
}

// Result is the outcome of applying a seed.
type Result struct {
	Graph    *graph.Graph
	Names    map[string]graph.NodeID
	Edges    []graph.EdgeID
	Expanded []graph.NodeID
}

// Parse decodes a seed document.
func Parse(data []byte) (*Seed, error) {
	var s Seed
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decoding seed: %w", err)
	}
	return &s, nil
}

// Read decodes a seed document from r.
func Read(r io.Reader) (*Seed, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading seed: %w", err)
	}
	return Parse(data)
}

// LoadFile reads the seed at path and applies it to g.
func LoadFile(g *graph.Graph, path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening seed: %w", err)
	}
	defer f.Close()

	s, err := Read(f)
	if err != nil {
		return nil, err
	}
	return s.Apply(g)
}

// Apply adds the seed's relations, nodes, edges and expansions to g, in
// that order. g's constraints run for every entity. On any error Apply
// returns nil and g is unaffected.
func (s *Seed) Apply(g *graph.Graph) (*Result, error) {
	var err error
	for _, rel := range s.Relations {
		if g, err = g.AddRelation(rel.From, rel.To); err != nil {
			return nil, fmt.Errorf("relation %s:%s: %w", rel.From, rel.To, err)
		}
	}

	res := &Result{Names: make(map[string]graph.NodeID, len(s.Nodes))}

	bags := make([]graph.Attrs, len(s.Nodes))
	for i, n := range s.Nodes {
		if n.Name != "" {
			if _, dup := res.Names[n.Name]; dup {
				return nil, fmt.Errorf("node %d: %w: %q", i, ErrDuplicateName, n.Name)
			}
			// Placeholder until the ids are known.
			res.Names[n.Name] = -1
		}
		bags[i] = graph.Attrs(n.Attrs)
	}
	g, nodes, err := g.AddNodes(bags...)
	if err != nil {
		return nil, fmt.Errorf("creating nodes: %w", err)
	}
	for i, n := range s.Nodes {
		if n.Name != "" {
			res.Names[n.Name] = nodes[i].ID()
		}
	}

	edges := make([]graph.Attrs, len(s.Edges))
	for i, e := range s.Edges {
		bag, err := resolve(g, res.Names, e)
		if err != nil {
			return nil, fmt.Errorf("edge %d: %w", i, err)
		}
		edges[i] = bag
	}
	if g, res.Edges, err = g.AddEdges(edges...); err != nil {
		return nil, fmt.Errorf("creating edges: %w", err)
	}

	for i, q := range s.Expand {
		var added []graph.Node
		if g, added, err = g.AddExpanded(graph.Query(q)); err != nil {
			return nil, fmt.Errorf("expand %d: %w", i, err)
		}
		for _, n := range added {
			res.Expanded = append(res.Expanded, n.ID())
		}
	}

	res.Graph = g
	return res, nil
}

// resolve replaces node names under relation keys with node ids.
func resolve(g *graph.Graph, names map[string]graph.NodeID, e map[string]any) (graph.Attrs, error) {
	bag := make(graph.Attrs, len(e))
	for k, v := range e {
		name, isName := v.(string)
		if !g.IsRelation(k) || !isName {
			bag[k] = v
			continue
		}
		id, ok := names[name]
		if !ok {
			return nil, fmt.Errorf("%s: %w: %q", k, ErrUnknownName, name)
		}
		bag[k] = id
	}
	return bag, nil
}
