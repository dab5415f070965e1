package store

import (
	"fmt"
	"math"
	"reflect"
)

// NormalizeKey maps equal primary key values of different Go types onto one
// comparable representation: signed and unsigned integers become int64,
// integral floats become int64 and byte slices become strings.
func NormalizeKey(v any) any {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case int64:
		return x
	case uint:
		return uintKey(uint64(x))
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		return uintKey(x)
	case float32:
		return floatKey(float64(x))
	case float64:
		return floatKey(x)
	case []byte:
		return string(x)
	default:
		return v
	}
}

func uintKey(u uint64) any {
	if u <= math.MaxInt64 {
		return int64(u)
	}
	return u
}

func floatKey(f float64) any {
	if f == math.Trunc(f) && f >= math.MinInt64 && f <= math.MaxInt64 {
		return int64(f)
	}
	return f
}

// KeysEqual compares two key values after normalization.
func KeysEqual(a, b any) bool {
	a, b = NormalizeKey(a), NormalizeKey(b)
	if !Comparable(a) || !Comparable(b) {
		return reflect.DeepEqual(a, b)
	}
	return a == b
}

// Comparable reports whether v can be used as a map key.
func Comparable(v any) bool {
	if v == nil {
		return true
	}
	return reflect.TypeOf(v).Comparable()
}

// TupleKey flattens a composite key into a single comparable value.
func TupleKey(vs []any) string {
	s := ""
	for i, v := range vs {
		if i > 0 {
			s += "\x1f"
		}
		s += fmt.Sprintf("%T:%v", NormalizeKey(v), NormalizeKey(v))
	}
	return s
}
