package codec

import (
	"bytes"
	"math"
)

// Equal reports whether a and b are structurally identical: same variant,
// same elements in the same order. Floats compare by bit pattern so NaN
// payloads and signed zeros survive a round trip check. Map entries compare
// in order.
func Equal(a, b Value) bool {
	a, b = orNull(a), orNull(b)
	switch av := a.(type) {
	case Null:
		_, ok := b.(Null)
		return ok
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Int32:
		bv, ok := b.(Int32)
		return ok && av == bv
	case Int64:
		bv, ok := b.(Int64)
		return ok && av == bv
	case Float64:
		bv, ok := b.(Float64)
		return ok && math.Float64bits(float64(av)) == math.Float64bits(float64(bv))
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case Bytes:
		bv, ok := b.(Bytes)
		return ok && bytes.Equal(av, bv)
	case Int32Array:
		bv, ok := b.(Int32Array)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if av[i] != bv[i] {
				return false
			}
		}
		return true
	case Int64Array:
		bv, ok := b.(Int64Array)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if av[i] != bv[i] {
				return false
			}
		}
		return true
	case Float32Array:
		bv, ok := b.(Float32Array)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if math.Float32bits(av[i]) != math.Float32bits(bv[i]) {
				return false
			}
		}
		return true
	case Float64Array:
		bv, ok := b.(Float64Array)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if math.Float64bits(av[i]) != math.Float64bits(bv[i]) {
				return false
			}
		}
		return true
	case List:
		bv, ok := b.(List)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case *Map:
		bv, ok := b.(*Map)
		if !ok || av.Len() != bv.Len() {
			return false
		}
		ae, be := av.Entries(), bv.Entries()
		for i := range ae {
			if !Equal(ae[i].Key, be[i].Key) || !Equal(ae[i].Value, be[i].Value) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
