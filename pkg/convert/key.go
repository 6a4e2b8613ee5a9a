package convert

import (
	"cmp"
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"
)

// IndexKeyer lets a type choose its own reverse-index key. Types whose
// values should compare equal to plain integers (node ids, for instance)
// return the same key IndexKey would produce for that integer.
type IndexKeyer interface {
	IndexKey() string
}

// IndexKey returns the canonical reverse-index key for v. Two values get
// the same key exactly when they should match each other in a lookup.
//
// Integer kinds share one key space, so IndexKey(3), IndexKey(int64(3)) and
// IndexKey(uint8(3)) are identical. float32 widens to float64 and -0 folds
// into 0. Floats and integers stay distinct: 3 and 3.0 are different keys.
// Slices, arrays and maps are keyed by their type plus the quoted keys of
// their elements (map entries sorted), so []string{"a b"} and
// []string{"a", "b"} never collide. Anything else falls back to its type
// and its Go-syntax representation.
func IndexKey(v any) string {
	switch val := v.(type) {
	case nil:
		return "nil"
	case IndexKeyer:
		return val.IndexKey()
	case string:
		return "string:" + val
	case bool:
		if val {
			return "bool:true"
		}
		return "bool:false"
	case float64:
		return FloatKey(val)
	case float32:
		return FloatKey(float64(val))
	}
	if i, ok := ToInteger(v); ok {
		return IntKey(i)
	}
	if u, ok := v.(uint64); ok {
		return "uint:" + strconv.FormatUint(u, 10)
	}
	return compositeKey(reflect.ValueOf(v))
}

// IntKey is the key IndexKey uses for every integer kind.
func IntKey(i int64) string {
	return "int:" + strconv.FormatInt(i, 10)
}

// FloatKey is the key IndexKey uses for float32 and float64.
func FloatKey(f float64) string {
	if f == 0 {
		f = 0 // -0 == 0
	}
	return "float:" + strconv.FormatFloat(f, 'g', -1, 64)
}

func compositeKey(rv reflect.Value) string {
	var b strings.Builder
	b.WriteString(rv.Type().String())

	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			b.WriteString("(nil)")
			break
		}
		b.WriteByte('[')
		for i := 0; i < rv.Len(); i++ {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(elemKey(rv.Index(i)))
		}
		b.WriteByte(']')

	case reflect.Map:
		if rv.IsNil() {
			b.WriteString("(nil)")
			break
		}
		entries := make([][2]string, 0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			entries = append(entries, [2]string{elemKey(iter.Key()), elemKey(iter.Value())})
		}
		slices.SortFunc(entries, func(a, b [2]string) int { return cmp.Compare(a[0], b[0]) })
		b.WriteByte('{')
		for i, e := range entries {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(e[0])
			b.WriteByte(':')
			b.WriteString(e[1])
		}
		b.WriteByte('}')

	default:
		fmt.Fprintf(&b, ":%#v", rv.Interface())
	}
	return b.String()
}

// elemKey is the quoted IndexKey of one element or map entry side.
func elemKey(rv reflect.Value) string {
	if rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return strconv.Quote("nil")
		}
		rv = rv.Elem()
	}
	return strconv.Quote(IndexKey(rv.Interface()))
}
