package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/orneryd/valgraph/pkg/convert"
	"github.com/orneryd/valgraph/pkg/graph"
)

// parseQuery parses "key=v1|v2,key2=v3". A key given twice accumulates
// values. "key=" is a clause with no values, which matches nothing.
func parseQuery(s string) (graph.Query, error) {
	q := graph.Query{}
	for _, clause := range strings.Split(s, ",") {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			continue
		}
		key, raw, ok := strings.Cut(clause, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("clause %q: want key=value", clause)
		}
		if _, seen := q[key]; !seen {
			q[key] = []any{}
		}
		for _, v := range strings.Split(raw, "|") {
			if v = strings.TrimSpace(v); v != "" {
				q[key] = append(q[key], parseValue(v))
			}
		}
	}
	return q, nil
}

// parseValue reads integers, floats and booleans; anything else stays a
// string. Quote a value ("42") to force a string.
func parseValue(s string) any {
	if unq, err := strconv.Unquote(s); err == nil {
		return unq
	}
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	if f, ok := convert.ToFloat64(s); ok {
		return f
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}

func formatAttrs(attrs graph.Attrs) string {
	parts := make([]string, 0, len(attrs))
	for _, k := range attrs.Keys() {
		parts = append(parts, fmt.Sprintf("%s=%v", k, attrs[k]))
	}
	return "{" + strings.Join(parts, " ") + "}"
}

func formatNode(n graph.Node) string {
	return fmt.Sprintf("%d %s", n.ID(), formatAttrs(n.Attrs()))
}

func formatEdge(e graph.Edge) string {
	return fmt.Sprintf("%d %s", e.ID, formatAttrs(e.Attrs))
}

func formatPairs(g *graph.Graph) string {
	pairs := g.Relations().Pairs()
	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = p.Left + ":" + p.Right
	}
	return strings.Join(parts, " ")
}
