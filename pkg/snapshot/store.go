// Package snapshot shares one evolving graph between goroutines.
//
// A Store holds the current *graph.Graph. Readers take the current snapshot
// with Current and query it without any locking: a snapshot never changes.
// Writers hand Update a function from one snapshot to the next; the store
// publishes the result with a compare-and-swap and re-runs the function on
// the newer snapshot if another writer got there first.
//
// Example:
//
//	s := snapshot.New(g, snapshot.WithCache(cache.NewResultCache(1000, 0)))
//
//	_, err := s.Update(ctx, func(g *graph.Graph) (*graph.Graph, error) {
//		g, alice, err := g.AddNode(graph.Attrs{"name": "alice"})
//		if err != nil {
//			return nil, err
//		}
//		g, _, err = g.Relate("parent", alice.ID(), bob, nil)
//		return g, err
//	})
//
//	kids := s.QueryNodes(graph.Query{"child": {alice}})
package snapshot

import (
	"context"
	"log"
	"slices"
	"sync/atomic"

	"github.com/orneryd/valgraph/pkg/cache"
	"github.com/orneryd/valgraph/pkg/graph"
	"github.com/orneryd/valgraph/pkg/index"
)

// UpdateFunc derives the next snapshot from base. It may be called more
// than once per Update and must not have side effects beyond its result.
type UpdateFunc func(base *graph.Graph) (*graph.Graph, error)

// Store holds the current graph snapshot.
type Store struct {
	cur     atomic.Pointer[graph.Graph]
	cache   *cache.ResultCache
	verbose bool

	commits   atomic.Uint64
	rollbacks atomic.Uint64
	conflicts atomic.Uint64
}

// Option configures a Store.
type Option func(*Store)

// WithCache routes QueryNodes and QueryEdges through c.
func WithCache(c *cache.ResultCache) Option {
	return func(s *Store) { s.cache = c }
}

// WithVerbose logs every commit and rollback.
func WithVerbose(verbose bool) Option {
	return func(s *Store) { s.verbose = verbose }
}

// New creates a store whose current snapshot is g.
func New(g *graph.Graph, opts ...Option) *Store {
	s := &Store{}
	for _, opt := range opts {
		opt(s)
	}
	s.cur.Store(g)
	return s
}

// Current returns the current snapshot.
func (s *Store) Current() *graph.Graph {
	return s.cur.Load()
}

// Update applies fn to the current snapshot and publishes the result.
//
// Any number of mutations inside fn land together or not at all: if fn
// returns an error the store keeps its snapshot and Update returns that
// snapshot with the error. A nil result, or fn returning its input, is a
// no-op. If another writer publishes first, fn runs again on the newer
// snapshot until the swap succeeds or ctx is done.
func (s *Store) Update(ctx context.Context, fn UpdateFunc) (*graph.Graph, error) {
	for {
		base := s.cur.Load()
		if err := ctx.Err(); err != nil {
			return base, err
		}

		next, err := fn(base)
		if err != nil {
			s.rollbacks.Add(1)
			if s.verbose {
				log.Printf("[snapshot] rolled back on rev=%d: %v", base.Rev(), err)
			}
			return base, err
		}
		if next == nil || next == base {
			return base, nil
		}

		if s.cur.CompareAndSwap(base, next) {
			s.commits.Add(1)
			if s.cache != nil {
				s.cache.PurgeBefore(next.Rev())
			}
			if s.verbose {
				log.Printf("[snapshot] committed rev=%d nodes=%d edges=%d",
					next.Rev(), next.NodeCount(), next.EdgeCount())
			}
			return next, nil
		}
		s.conflicts.Add(1)
	}
}

// Replace publishes g unconditionally and drops every cached result.
func (s *Store) Replace(g *graph.Graph) {
	s.cur.Store(g)
	s.commits.Add(1)
	if s.cache != nil {
		s.cache.Clear()
	}
	if s.verbose {
		log.Printf("[snapshot] replaced with rev=%d nodes=%d edges=%d", g.Rev(), g.NodeCount(), g.EdgeCount())
	}
}

// QueryNodes runs a node query against the current snapshot.
func (s *Store) QueryNodes(q graph.Query) []graph.Node {
	return s.QueryNodesAt(s.Current(), q)
}

// QueryNodesAt runs a node query against g, which may be an older snapshot
// taken from this store.
func (s *Store) QueryNodesAt(g *graph.Graph, q graph.Query) []graph.Node {
	if s.cache == nil {
		return g.QueryNodes(q)
	}
	key := cache.Key(g.Rev(), "nodes", Canonical(q))
	if hit, ok := s.cache.Get(key); ok {
		return g.Views(hit.(index.Set))
	}
	ids := g.QueryNodeIDs(q)
	s.cache.Put(key, g.Rev(), ids)
	return g.Views(ids)
}

// QueryEdges runs an edge query against the current snapshot.
func (s *Store) QueryEdges(q graph.Query) []graph.EdgeID {
	return s.QueryEdgesAt(s.Current(), q)
}

// QueryEdgesAt runs an edge query against g.
func (s *Store) QueryEdgesAt(g *graph.Graph, q graph.Query) []graph.EdgeID {
	if s.cache == nil {
		return g.QueryEdges(q)
	}
	key := cache.Key(g.Rev(), "edges", Canonical(q))
	if hit, ok := s.cache.Get(key); ok {
		return slices.Clone(hit.([]graph.EdgeID))
	}
	ids := g.QueryEdges(q)
	s.cache.Put(key, g.Rev(), slices.Clone(ids))
	return ids
}

// Stats describes the store.
type Stats struct {
	Rev       uint64
	Nodes     int
	Edges     int
	Commits   uint64
	Rollbacks uint64
	Conflicts uint64 // lost compare-and-swap races
	Cache     cache.Stats
}

// Stats returns current statistics.
func (s *Store) Stats() Stats {
	g := s.Current()
	st := Stats{
		Rev:       g.Rev(),
		Nodes:     g.NodeCount(),
		Edges:     g.EdgeCount(),
		Commits:   s.commits.Load(),
		Rollbacks: s.rollbacks.Load(),
		Conflicts: s.conflicts.Load(),
	}
	if s.cache != nil {
		st.Cache = s.cache.Stats()
	}
	return st
}
