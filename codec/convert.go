package codec

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"

	"github.com/wippyai/platform-channels/errors"
)

// FromGo converts a plain Go value into a Value.
//
// Whole numbers in the signed 32-bit range become Int32, other whole numbers
// Int64. Unsigned values above math.MaxInt64 overflow. Go maps are emitted in
// sorted key order so the conversion is deterministic. A Value passes through
// unchanged.
func FromGo(v any) (Value, error) {
	return fromGo(v, nil, 0)
}

// MustFromGo is FromGo that panics on error. Intended for literals in tests
// and examples.
func MustFromGo(v any) Value {
	out, err := FromGo(v)
	if err != nil {
		panic(err)
	}
	return out
}

func fromGo(v any, path []string, depth int) (Value, error) {
	if depth > maxDepth {
		return nil, errors.New(errors.PhaseEncode, errors.KindUnsupported).
			Path(path...).
			Detail("nesting deeper than %d", maxDepth).
			Build()
	}

	switch x := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return x, nil
	case bool:
		return Bool(x), nil
	case int:
		return Integer(int64(x)), nil
	case int8:
		return Int32(x), nil
	case int16:
		return Int32(x), nil
	case int32:
		return Int32(x), nil
	case int64:
		return Integer(x), nil
	case uint:
		return fromUint(uint64(x), path)
	case uint8:
		return Int32(x), nil
	case uint16:
		return Int32(x), nil
	case uint32:
		return Integer(int64(x)), nil
	case uint64:
		return fromUint(x, path)
	case float32:
		return Float64(x), nil
	case float64:
		return Float64(x), nil
	case string:
		return String(x), nil
	case []byte:
		return Bytes(x), nil
	case []int32:
		return Int32Array(x), nil
	case []int64:
		return Int64Array(x), nil
	case []float32:
		return Float32Array(x), nil
	case []float64:
		return Float64Array(x), nil
	case []any:
		list := make(List, len(x))
		for i, item := range x {
			elem, err := fromGo(item, append(path, strconv.Itoa(i)), depth+1)
			if err != nil {
				return nil, err
			}
			list[i] = elem
		}
		return list, nil
	case []string:
		list := make(List, len(x))
		for i, s := range x {
			list[i] = String(s)
		}
		return list, nil
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		m := NewMap(len(keys))
		for _, k := range keys {
			elem, err := fromGo(x[k], append(path, k), depth+1)
			if err != nil {
				return nil, err
			}
			m.Set(String(k), elem)
		}
		return m, nil
	case map[any]any:
		type pair struct {
			key   Value
			value any
			order string
		}
		pairs := make([]pair, 0, len(x))
		for k, val := range x {
			key, err := fromGo(k, append(path, "key"), depth+1)
			if err != nil {
				return nil, err
			}
			pairs = append(pairs, pair{key: key, value: val, order: sortKey(key)})
		}
		sort.Slice(pairs, func(i, j int) bool { return pairs[i].order < pairs[j].order })
		m := NewMap(len(pairs))
		for _, p := range pairs {
			elem, err := fromGo(p.value, append(path, p.order), depth+1)
			if err != nil {
				return nil, err
			}
			m.Set(p.key, elem)
		}
		return m, nil
	}

	return fromReflect(reflect.ValueOf(v), path, depth)
}

// fromReflect handles named types and slices/maps of concrete element types.
func fromReflect(rv reflect.Value, path []string, depth int) (Value, error) {
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Null{}, nil
		}
		return fromGo(rv.Elem().Interface(), path, depth+1)
	case reflect.Bool:
		return Bool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Integer(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return fromUint(rv.Uint(), path)
	case reflect.Float32, reflect.Float64:
		return Float64(rv.Float()), nil
	case reflect.String:
		return String(rv.String()), nil
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return Null{}, nil
		}
		list := make(List, rv.Len())
		for i := range list {
			elem, err := fromGo(rv.Index(i).Interface(), append(path, strconv.Itoa(i)), depth+1)
			if err != nil {
				return nil, err
			}
			list[i] = elem
		}
		return list, nil
	case reflect.Map:
		generic := make(map[any]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			generic[iter.Key().Interface()] = iter.Value().Interface()
		}
		return fromGo(generic, path, depth)
	}
	return nil, errors.New(errors.PhaseEncode, errors.KindUnsupported).
		Path(path...).
		ValueType(rv.Type().String()).
		Detail("no Value representation").
		Build()
}

func fromUint(u uint64, path []string) (Value, error) {
	if u > math.MaxInt64 {
		return nil, errors.Overflow(errors.PhaseEncode, path, u, "Int64")
	}
	return Integer(int64(u)), nil
}

// sortKey orders map keys by kind, then by formatted value.
func sortKey(k Value) string {
	return fmt.Sprintf("%02d:%s", k.Kind(), Format(k))
}

// ToGo converts a Value into plain Go values: nil, bool, int32, int64,
// float64, string, []byte, the typed numeric slices, []any, and for maps
// map[string]any when every key is a String, map[any]any otherwise. Keys
// that are not comparable in Go (lists, maps, byte arrays) are formatted
// to strings.
func ToGo(v Value) any {
	switch x := orNull(v).(type) {
	case Null:
		return nil
	case Bool:
		return bool(x)
	case Int32:
		return int32(x)
	case Int64:
		return int64(x)
	case Float64:
		return float64(x)
	case String:
		return string(x)
	case *Traced:
		return x.Trace
	case Bytes:
		return []byte(x)
	case Int32Array:
		return []int32(x)
	case Int64Array:
		return []int64(x)
	case Float32Array:
		return []float32(x)
	case Float64Array:
		return []float64(x)
	case List:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = ToGo(item)
		}
		return out
	case *Map:
		allStrings := true
		for _, e := range x.Entries() {
			if _, ok := e.Key.(String); !ok {
				allStrings = false
				break
			}
		}
		if allStrings {
			out := make(map[string]any, x.Len())
			for _, e := range x.Entries() {
				out[string(e.Key.(String))] = ToGo(e.Value)
			}
			return out
		}
		out := make(map[any]any, x.Len())
		for _, e := range x.Entries() {
			out[goKey(e.Key)] = ToGo(e.Value)
		}
		return out
	}
	return nil
}

func goKey(k Value) any {
	switch k.(type) {
	case Bytes, Int32Array, Int64Array, Float32Array, Float64Array, List, *Map:
		return Format(k)
	}
	return ToGo(k)
}
