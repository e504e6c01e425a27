package codec

import (
	"encoding/hex"
	"strconv"
	"strings"
)

// Format renders v on a single line, for logs and diagnostics.
//
//	{"name": "x", "n": 1, "raw": bytes(0a0b), "xs": int32[1, 2]}
func Format(v Value) string {
	var b strings.Builder
	format(&b, v, "", "")
	return b.String()
}

// FormatIndent renders v over multiple lines, nesting containers with indent.
func FormatIndent(v Value, indent string) string {
	var b strings.Builder
	format(&b, v, "", indent)
	return b.String()
}

func format(b *strings.Builder, v Value, prefix, indent string) {
	switch x := orNull(v).(type) {
	case Null:
		b.WriteString("null")
	case Bool:
		b.WriteString(strconv.FormatBool(bool(x)))
	case Int32:
		b.WriteString(strconv.FormatInt(int64(x), 10))
	case Int64:
		b.WriteString(strconv.FormatInt(int64(x), 10))
		b.WriteString("L")
	case Float64:
		s := strconv.FormatFloat(float64(x), 'g', -1, 64)
		if !strings.ContainsAny(s, ".eEnN") {
			s += ".0"
		}
		b.WriteString(s)
	case String:
		b.WriteString(strconv.Quote(string(x)))
	case *Traced:
		b.WriteString("traced(")
		b.WriteString(strconv.Quote(x.Trace))
		b.WriteString(")")
	case Bytes:
		b.WriteString("bytes(")
		b.WriteString(hex.EncodeToString(x))
		b.WriteString(")")
	case Int32Array:
		b.WriteString("int32[")
		for i, n := range x {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(strconv.FormatInt(int64(n), 10))
		}
		b.WriteString("]")
	case Int64Array:
		b.WriteString("int64[")
		for i, n := range x {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(strconv.FormatInt(n, 10))
		}
		b.WriteString("]")
	case Float32Array:
		b.WriteString("float32[")
		for i, f := range x {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(strconv.FormatFloat(float64(f), 'g', -1, 32))
		}
		b.WriteString("]")
	case Float64Array:
		b.WriteString("float64[")
		for i, f := range x {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
		}
		b.WriteString("]")
	case List:
		if len(x) == 0 {
			b.WriteString("[]")
			return
		}
		b.WriteString("[")
		inner := prefix + indent
		for i, item := range x {
			separate(b, i, inner, indent)
			format(b, item, inner, indent)
		}
		closeContainer(b, prefix, indent)
		b.WriteString("]")
	case *Map:
		if x.Len() == 0 {
			b.WriteString("{}")
			return
		}
		b.WriteString("{")
		inner := prefix + indent
		for i, e := range x.Entries() {
			separate(b, i, inner, indent)
			format(b, e.Key, inner, indent)
			b.WriteString(": ")
			format(b, e.Value, inner, indent)
		}
		closeContainer(b, prefix, indent)
		b.WriteString("}")
	default:
		b.WriteString("<invalid>")
	}
}

func separate(b *strings.Builder, i int, inner, indent string) {
	if indent == "" {
		if i > 0 {
			b.WriteString(", ")
		}
		return
	}
	if i > 0 {
		b.WriteString(",")
	}
	b.WriteString("\n")
	b.WriteString(inner)
}

func closeContainer(b *strings.Builder, prefix, indent string) {
	if indent != "" {
		b.WriteString("\n")
		b.WriteString(prefix)
	}
}
