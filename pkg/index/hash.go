package index

import "hash/fnv"

// idHasher hashes int64 ids for immutable.Map.
type idHasher struct{}

func (idHasher) Hash(id int64) uint32 {
	u := uint64(id)
	u ^= u >> 33
	u *= 0xff51afd7ed558ccd
	u ^= u >> 33
	return uint32(u)
}

func (idHasher) Equal(a, b int64) bool { return a == b }

// stringHasher hashes attribute names and canonical value keys.
type stringHasher struct{}

func (stringHasher) Hash(s string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(s))
	return h.Sum32()
}

func (stringHasher) Equal(a, b string) bool { return a == b }
