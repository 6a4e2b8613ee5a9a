// Package convert provides value normalization helpers for valgraph.
//
// Attribute bags hold arbitrary values, so the same logical value can arrive
// under several Go types: a literal 3 is an int, a YAML seed decodes it as an
// int, a caller may hand in int64(3) or uint8(3). The helpers here fold those
// representations together so that lookups in the attribute index and
// endpoint resolution for edges agree on what "equal" means.
//
// Key Functions:
//   - ToInteger: strict conversion, integer kinds only
//   - ToFloat64: lenient conversion to float64 (strings parse)
//   - IndexKey: canonical string key for a value (see key.go)
//
// Example:
//
//	if id, ok := convert.ToInteger(raw); ok {
//		// raw was an integer of some width
//	}
//
//	k := convert.IndexKey(int32(7)) // same key as IndexKey(7)
package convert

import (
	"strconv"
)

// ToFloat64 converts various numeric types to float64.
// Returns (value, true) on success, (0, false) on failure.
//
// Supported types:
//   - float64 (returned as-is)
//   - float32 (converted)
//   - signed and unsigned integers of every width
//   - string (parsed as decimal, supports scientific notation)
//
// Example:
//
//	f, ok := ToFloat64(42)       // (42.0, true)
//	f, ok := ToFloat64("1.5e-3") // (0.0015, true)
//	f, ok := ToFloat64("nope")   // (0, false)
func ToFloat64(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case string:
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f, true
		}
		return 0, false
	}
	if i, ok := ToInteger(v); ok {
		return float64(i), true
	}
	if u, ok := v.(uint64); ok {
		return float64(u), true
	}
	return 0, false
}

// ToInteger converts integer kinds to int64 and rejects everything else,
// including floats, strings, and uint64 values above math.MaxInt64.
func ToInteger(v any) (int64, bool) {
	switch val := v.(type) {
	case int:
		return int64(val), true
	case int8:
		return int64(val), true
	case int16:
		return int64(val), true
	case int32:
		return int64(val), true
	case int64:
		return val, true
	case uint:
		return unsignedToInt64(uint64(val))
	case uint8:
		return int64(val), true
	case uint16:
		return int64(val), true
	case uint32:
		return int64(val), true
	case uint64:
		return unsignedToInt64(val)
	}
	return 0, false
}

func unsignedToInt64(u uint64) (int64, bool) {
	if u > 1<<63-1 {
		return 0, false
	}
	return int64(u), true
}
