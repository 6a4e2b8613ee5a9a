package snapshot

import (
	"maps"
	"slices"
	"strconv"

	"github.com/orneryd/valgraph/pkg/convert"
	"github.com/orneryd/valgraph/pkg/graph"
	"github.com/orneryd/valgraph/pkg/pool"
)

// Canonical renders q so that two queries matching the same entities on
// any snapshot render the same: keys sorted, each clause's values reduced
// to their index keys, sorted and deduplicated.
//
//	Canonical(graph.Query{"b": {2, int8(1)}, "a": {"x"}})
//	// "a"=["string:x"];"b"=["int:1","int:2"]
func Canonical(q graph.Query) string {
	b := pool.GetBuilder()
	defer pool.PutBuilder(b)
	vals := pool.GetStrings()
	defer pool.PutStrings(vals)

	for i, key := range slices.Sorted(maps.Keys(q)) {
		if i > 0 {
			_ = b.WriteByte(';')
		}
		b.WriteString(strconv.Quote(key))
		b.WriteString("=[")

		*vals = (*vals)[:0]
		for _, v := range q[key] {
			*vals = append(*vals, convert.IndexKey(v))
		}
		slices.Sort(*vals)
		for j, v := range slices.Compact(*vals) {
			if j > 0 {
				_ = b.WriteByte(',')
			}
			b.WriteString(strconv.Quote(v))
		}
		_ = b.WriteByte(']')
	}
	return b.String()
}
