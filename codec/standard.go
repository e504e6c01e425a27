package codec

import (
	"encoding/binary"
	"math"
	"strconv"

	"github.com/wippyai/platform-channels/bytecursor"
	"github.com/wippyai/platform-channels/errors"
)

// Wire type tags.
const (
	tagNull         byte = 0
	tagTrue         byte = 1
	tagFalse        byte = 2
	tagInt32        byte = 3
	tagInt64        byte = 4
	tagBigInt       byte = 5 // reserved, never written or accepted
	tagFloat64      byte = 6
	tagString       byte = 7
	tagBytes        byte = 8
	tagInt32Array   byte = 9
	tagInt64Array   byte = 10
	tagFloat64Array byte = 11
	tagList         byte = 12
	tagMap          byte = 13
	tagFloat32Array byte = 14
)

// Size prefix markers.
const (
	sizeMaxInline = 253
	sizeMarker16  = 254
	sizeMarker32  = 255
)

// maxDepth bounds List/Map nesting on both encode and decode.
const maxDepth = 1000

// StandardMessageCodec encodes Values in the standard self-describing binary
// format: one type byte per value followed by a type-specific payload.
//
// The codec holds no mutable state; the zero value is ready to use and
// encodes multi-byte quantities little-endian.
type StandardMessageCodec struct {
	// Order is the designated byte order. nil means little-endian.
	Order binary.ByteOrder
}

func (c StandardMessageCodec) order() binary.ByteOrder {
	if c.Order == nil {
		return binary.LittleEndian
	}
	return c.Order
}

// EncodeMessage encodes one top-level value. A nil Value encodes as Null.
func (c StandardMessageCodec) EncodeMessage(v Value) ([]byte, error) {
	w := bytecursor.Get()
	defer bytecursor.Put(w)
	if err := c.WriteValue(w, v); err != nil {
		return nil, err
	}
	return append([]byte(nil), w.Bytes()...), nil
}

// DecodeMessage decodes exactly one top-level value. Empty input, an unknown
// type tag, or unconsumed trailing bytes are corrupted_message errors.
func (c StandardMessageCodec) DecodeMessage(data []byte) (Value, error) {
	if len(data) == 0 {
		return nil, errors.CorruptedMessage(0, "empty message")
	}
	r := bytecursor.Wrap(data)
	v, err := c.ReadValue(r)
	if err != nil {
		return nil, err
	}
	if r.HasRemaining() {
		return nil, errors.TrailingBytes(r.Position(), r.Remaining())
	}
	return v, nil
}

// WriteValue writes the type byte and payload of v at the cursor position.
func (c StandardMessageCodec) WriteValue(w *bytecursor.Cursor, v Value) error {
	return c.writeValue(w, v, 0)
}

func (c StandardMessageCodec) writeValue(w *bytecursor.Cursor, v Value, depth int) error {
	if depth > maxDepth {
		return errors.New(errors.PhaseEncode, errors.KindUnsupported).
			Detail("nesting deeper than %d (cyclic value?)", maxDepth).
			Build()
	}
	order := c.order()

	switch v := orNull(v).(type) {
	case Null:
		w.WriteUint8(tagNull)
	case Bool:
		if v {
			w.WriteUint8(tagTrue)
		} else {
			w.WriteUint8(tagFalse)
		}
	case Int32:
		w.WriteUint8(tagInt32)
		w.WriteInt32(int32(v), order)
	case Int64:
		w.WriteUint8(tagInt64)
		w.WriteInt64(int64(v), order)
	case Float64:
		w.WriteUint8(tagFloat64)
		_ = w.Align(8)
		w.WriteFloat64(float64(v), order)
	case String:
		w.WriteUint8(tagString)
		if err := WriteSize(w, len(v), order); err != nil {
			return err
		}
		w.WriteString(string(v))
	case *Traced:
		return c.writeValue(w, wireDetails(v), depth)
	case Bytes:
		w.WriteUint8(tagBytes)
		if err := WriteSize(w, len(v), order); err != nil {
			return err
		}
		w.WriteBytes(v)
	case Int32Array:
		w.WriteUint8(tagInt32Array)
		if err := WriteSize(w, len(v), order); err != nil {
			return err
		}
		_ = w.Align(4)
		w.WriteInt32s(v, order)
	case Int64Array:
		w.WriteUint8(tagInt64Array)
		if err := WriteSize(w, len(v), order); err != nil {
			return err
		}
		_ = w.Align(8)
		w.WriteInt64s(v, order)
	case Float32Array:
		w.WriteUint8(tagFloat32Array)
		if err := WriteSize(w, len(v), order); err != nil {
			return err
		}
		_ = w.Align(4)
		w.WriteFloat32s(v, order)
	case Float64Array:
		w.WriteUint8(tagFloat64Array)
		if err := WriteSize(w, len(v), order); err != nil {
			return err
		}
		_ = w.Align(8)
		w.WriteFloat64s(v, order)
	case List:
		w.WriteUint8(tagList)
		if err := WriteSize(w, len(v), order); err != nil {
			return err
		}
		for i, item := range v {
			if err := c.writeValue(w, item, depth+1); err != nil {
				return withPath(err, strconv.Itoa(i))
			}
		}
	case *Map:
		w.WriteUint8(tagMap)
		if err := WriteSize(w, v.Len(), order); err != nil {
			return err
		}
		for _, e := range v.Entries() {
			if err := c.writeValue(w, e.Key, depth+1); err != nil {
				return withPath(err, "key")
			}
			if err := c.writeValue(w, e.Value, depth+1); err != nil {
				return withPath(err, keyLabel(e.Key))
			}
		}
	default:
		return errors.New(errors.PhaseEncode, errors.KindUnsupported).
			Detail("unsupported value type %T", v).
			Build()
	}
	return nil
}

// ReadValue reads one type byte and its payload.
func (c StandardMessageCodec) ReadValue(r *bytecursor.Cursor) (Value, error) {
	return c.readValue(r, 0)
}

func (c StandardMessageCodec) readValue(r *bytecursor.Cursor, depth int) (Value, error) {
	if depth > maxDepth {
		return nil, errors.CorruptedMessage(r.Position(), "nesting too deep")
	}
	tag, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	return c.readValueOfType(tag, r, depth)
}

// ReadValueOfType reads the payload for an already consumed type byte.
func (c StandardMessageCodec) ReadValueOfType(tag byte, r *bytecursor.Cursor) (Value, error) {
	return c.readValueOfType(tag, r, 0)
}

func (c StandardMessageCodec) readValueOfType(tag byte, r *bytecursor.Cursor, depth int) (Value, error) {
	order := c.order()

	switch tag {
	case tagNull:
		return Null{}, nil
	case tagTrue:
		return Bool(true), nil
	case tagFalse:
		return Bool(false), nil
	case tagInt32:
		v, err := r.ReadInt32(order)
		return Int32(v), err
	case tagInt64:
		v, err := r.ReadInt64(order)
		return Int64(v), err
	case tagFloat64:
		if err := r.Align(8); err != nil {
			return nil, err
		}
		v, err := r.ReadFloat64(order)
		return Float64(v), err
	case tagString:
		n, err := ReadSize(r, order)
		if err != nil {
			return nil, err
		}
		s, err := r.ReadString(n)
		return String(s), err
	case tagBytes:
		n, err := ReadSize(r, order)
		if err != nil {
			return nil, err
		}
		b, err := r.ReadBytes(n)
		return Bytes(b), err
	case tagInt32Array:
		n, err := readArrayHeader(r, order, 4)
		if err != nil {
			return nil, err
		}
		items, err := r.ReadInt32s(n, order)
		return Int32Array(items), err
	case tagInt64Array:
		n, err := readArrayHeader(r, order, 8)
		if err != nil {
			return nil, err
		}
		items, err := r.ReadInt64s(n, order)
		return Int64Array(items), err
	case tagFloat32Array:
		n, err := readArrayHeader(r, order, 4)
		if err != nil {
			return nil, err
		}
		items, err := r.ReadFloat32s(n, order)
		return Float32Array(items), err
	case tagFloat64Array:
		n, err := readArrayHeader(r, order, 8)
		if err != nil {
			return nil, err
		}
		items, err := r.ReadFloat64s(n, order)
		return Float64Array(items), err
	case tagList:
		n, err := readCount(r, order)
		if err != nil {
			return nil, err
		}
		list := make(List, n)
		for i := range list {
			if list[i], err = c.readValue(r, depth+1); err != nil {
				return nil, withPath(err, strconv.Itoa(i))
			}
		}
		return list, nil
	case tagMap:
		n, err := readCount(r, order)
		if err != nil {
			return nil, err
		}
		m := NewMap(n)
		for i := 0; i < n; i++ {
			k, err := c.readValue(r, depth+1)
			if err != nil {
				return nil, withPath(err, "key")
			}
			v, err := c.readValue(r, depth+1)
			if err != nil {
				return nil, withPath(err, keyLabel(k))
			}
			m.appendEntry(k, v)
		}
		return m, nil
	case tagBigInt:
		return nil, errors.New(errors.PhaseDecode, errors.KindCorruptedMessage).
			Offset(r.Position()-1).
			Value(tag).
			Detail("type tag 5 (BigInt) is reserved").
			Build()
	default:
		return nil, errors.UnknownTag(r.Position()-1, tag)
	}
}

// WriteSize writes a variable-width size prefix: one byte below 254, byte 254
// plus uint16 up to 0xFFFF, byte 255 plus uint32 beyond.
func WriteSize(w *bytecursor.Cursor, n int, order binary.ByteOrder) error {
	switch {
	case n < 0:
		return errors.InvalidInput(errors.PhaseEncode, "negative size")
	case n <= sizeMaxInline:
		w.WriteUint8(uint8(n))
	case n <= math.MaxUint16:
		w.WriteUint8(sizeMarker16)
		w.WriteUint16(uint16(n), order)
	case uint64(n) <= math.MaxUint32:
		w.WriteUint8(sizeMarker32)
		w.WriteUint32(uint32(n), order)
	default:
		return errors.Overflow(errors.PhaseEncode, nil, n, "uint32 size")
	}
	return nil
}

// ReadSize reads a size prefix written by WriteSize.
func ReadSize(r *bytecursor.Cursor, order binary.ByteOrder) (int, error) {
	b, err := r.ReadUint8()
	if err != nil {
		return 0, err
	}
	switch b {
	case sizeMarker16:
		v, err := r.ReadUint16(order)
		return int(v), err
	case sizeMarker32:
		v, err := r.ReadUint32(order)
		if err != nil {
			return 0, err
		}
		if uint64(v) > uint64(math.MaxInt) {
			return 0, errors.CorruptedMessage(r.Position()-4, "size exceeds platform int")
		}
		return int(v), nil
	default:
		return int(b), nil
	}
}

// readCount reads an element count and rejects counts that cannot fit in
// the remaining input, each element taking at least one byte.
func readCount(r *bytecursor.Cursor, order binary.ByteOrder) (int, error) {
	start := r.Position()
	n, err := ReadSize(r, order)
	if err != nil {
		return 0, err
	}
	if n > r.Remaining() {
		return 0, errors.New(errors.PhaseDecode, errors.KindCorruptedMessage).
			Offset(start).
			Value(n).
			Detail("count %d exceeds %d remaining bytes", n, r.Remaining()).
			Build()
	}
	return n, nil
}

func readArrayHeader(r *bytecursor.Cursor, order binary.ByteOrder, align int) (int, error) {
	n, err := ReadSize(r, order)
	if err != nil {
		return 0, err
	}
	if err := r.Align(align); err != nil {
		return 0, err
	}
	return n, nil
}

// withPath prepends a path segment to structured errors raised while
// descending into a container.
func withPath(err error, segment string) error {
	if e, ok := err.(*errors.Error); ok {
		e.Path = append([]string{segment}, e.Path...)
	}
	return err
}

func keyLabel(k Value) string {
	if s, ok := k.(String); ok {
		return string(s)
	}
	return "[" + k.Kind().String() + "]"
}
