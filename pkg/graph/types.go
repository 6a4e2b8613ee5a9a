package graph

import (
	"errors"
	"fmt"
	"strings"

	"github.com/orneryd/valgraph/pkg/convert"
	"github.com/orneryd/valgraph/pkg/idgen"
	"github.com/orneryd/valgraph/pkg/index"
)

// Errors returned by graph mutations. Every write-time failure wraps one of
// these, so callers can branch with errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrRelationCollision = errors.New("attribute collides with a relation key")
	ErrEdgeRelations     = errors.New("edge must have exactly two relations")
	ErrMissingEndpoint   = errors.New("edge endpoint is not an existing node")
	ErrRelationAltered   = errors.New("relation type may not be altered")
	ErrRelationDissoc    = errors.New("relation keys may not be dissociated from an edge")
	ErrRelationInUse     = errors.New("relation has live edges")
	ErrNotOpposites      = errors.New("relations are not opposites")
	ErrInvalidRelation   = errors.New("invalid relation")
)

// NodeID identifies a node. Node ids are even.
type NodeID int64

// IndexKey makes a NodeID match the plain integer it wraps in the
// attribute index, so edge queries accept either.
func (id NodeID) IndexKey() string { return convert.IntKey(int64(id)) }

// EdgeID identifies an edge. Edge ids are odd.
type EdgeID int64

func (EdgeID) entity() {}

// Attrs is an attribute bag.
type Attrs = index.Attrs

// Query maps an attribute or relation key to the values it may take.
//
// Clauses are intersected; the values of one clause are unioned. An absent
// key imposes no constraint, an empty Query matches everything, and a key
// with an empty value list matches nothing.
type Query map[string][]any

// RelationPair names two mutually opposite relation keys.
type RelationPair struct {
	From string
	To   string
}

// Entity is what a constraint is told changed: a Node view or an EdgeID.
type Entity interface {
	entity()
}

// ViolationError reports a rejected mutation together with the operation,
// the entity id and the keys that caused it. It unwraps to one of the
// package's sentinel errors.
type ViolationError struct {
	Op   string
	ID   int64
	Keys []string
	Err  error
}

func (e *ViolationError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.ID >= 0 {
		fmt.Fprintf(&b, " %d", e.ID)
	}
	b.WriteString(": ")
	b.WriteString(e.Err.Error())
	if len(e.Keys) > 0 {
		fmt.Fprintf(&b, " %v", e.Keys)
	}
	return b.String()
}

func (e *ViolationError) Unwrap() error { return e.Err }

func violation(op string, id int64, err error, keys ...string) error {
	return &ViolationError{Op: op, ID: id, Keys: keys, Err: err}
}

// toNodeID resolves a Node view, a NodeID or a plain integer to a NodeID.
// Odd integers are edge ids and never resolve.
func toNodeID(v any) (NodeID, bool) {
	switch val := v.(type) {
	case Node:
		return val.id, true
	case NodeID:
		return val, true
	case EdgeID:
		return 0, false
	}
	i, ok := convert.ToInteger(v)
	if !ok || !idgen.IsNodeID(i) {
		return 0, false
	}
	return NodeID(i), true
}
