package codec

// Kind identifies the variant of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt32
	KindInt64
	KindFloat64
	KindString
	KindBytes
	KindInt32Array
	KindInt64Array
	KindFloat32Array
	KindFloat64Array
	KindList
	KindMap
)

var kindNames = [...]string{
	KindNull:         "Null",
	KindBool:         "Bool",
	KindInt32:        "Int32",
	KindInt64:        "Int64",
	KindFloat64:      "Float64",
	KindString:       "String",
	KindBytes:        "ByteArray",
	KindInt32Array:   "Int32Array",
	KindInt64Array:   "Int64Array",
	KindFloat32Array: "Float32Array",
	KindFloat64Array: "Float64Array",
	KindList:         "List",
	KindMap:          "Map",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Unknown"
}

// Value is a dynamically typed message value. The set of implementations is
// closed: only the types declared in this package satisfy it.
//
// Values form finite trees. Building a cycle through a *Map is a caller
// error; encoders stop at a fixed nesting depth rather than recurse forever.
type Value interface {
	Kind() Kind
	isValue()
}

type (
	// Null is the absent value.
	Null struct{}
	// Bool is true or false.
	Bool bool
	// Int32 is a signed 32-bit integer.
	Int32 int32
	// Int64 is a signed 64-bit integer.
	Int64 int64
	// Float64 is an IEEE 754 double.
	Float64 float64
	// String is UTF-8 text.
	String string
	// Bytes is an opaque byte array.
	Bytes []byte
	// Int32Array is a packed array of signed 32-bit integers.
	Int32Array []int32
	// Int64Array is a packed array of signed 64-bit integers.
	Int64Array []int64
	// Float32Array is a packed array of IEEE 754 singles.
	Float32Array []float32
	// Float64Array is a packed array of IEEE 754 doubles.
	Float64Array []float64
	// List is an ordered sequence of values.
	List []Value
)

func (Null) Kind() Kind         { return KindNull }
func (Bool) Kind() Kind         { return KindBool }
func (Int32) Kind() Kind        { return KindInt32 }
func (Int64) Kind() Kind        { return KindInt64 }
func (Float64) Kind() Kind      { return KindFloat64 }
func (String) Kind() Kind       { return KindString }
func (Bytes) Kind() Kind        { return KindBytes }
func (Int32Array) Kind() Kind   { return KindInt32Array }
func (Int64Array) Kind() Kind   { return KindInt64Array }
func (Float32Array) Kind() Kind { return KindFloat32Array }
func (Float64Array) Kind() Kind { return KindFloat64Array }
func (List) Kind() Kind         { return KindList }
func (*Map) Kind() Kind         { return KindMap }

func (Null) isValue()         {}
func (Bool) isValue()         {}
func (Int32) isValue()        {}
func (Int64) isValue()        {}
func (Float64) isValue()      {}
func (String) isValue()       {}
func (Bytes) isValue()        {}
func (Int32Array) isValue()   {}
func (Int64Array) isValue()   {}
func (Float32Array) isValue() {}
func (Float64Array) isValue() {}
func (List) isValue()         {}
func (*Map) isValue()         {}

// Integer returns the narrowest integer variant holding n: Int32 when n is
// in signed 32-bit range, Int64 otherwise.
func Integer(n int64) Value {
	if n >= -1<<31 && n <= 1<<31-1 {
		return Int32(n)
	}
	return Int64(n)
}

// IsNull reports whether v is absent. A nil interface counts as Null.
func IsNull(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Null)
	return ok
}

// orNull maps a nil interface to Null.
func orNull(v Value) Value {
	if v == nil {
		return Null{}
	}
	return v
}
