package bytecursor

import (
	"encoding/binary"
	"math"
	"unicode/utf8"

	"github.com/wippyai/platform-channels/errors"
)

// growSlack is the extra headroom added on every reallocation.
const growSlack = 512

// Cursor is a contiguous byte region with a single read/write position.
//
// A cursor created by New is a writer: writes past the current capacity
// reallocate. A cursor created by Wrap is a reader over a fixed region and
// never grows; reading past its end returns an out_of_range error.
type Cursor struct {
	buf    []byte
	pos    int
	length int
	fixed  bool
}

// New creates a growable writer cursor with the given initial capacity.
func New(capacity int) *Cursor {
	if capacity < 0 {
		capacity = 0
	}
	return &Cursor{buf: make([]byte, capacity)}
}

// Wrap creates a read-only cursor over data. The slice is not copied.
func Wrap(data []byte) *Cursor {
	return &Cursor{buf: data, length: len(data), fixed: true}
}

// Position returns the current byte position from the start of the buffer.
func (c *Cursor) Position() int {
	return c.pos
}

// Len returns the number of valid bytes in the buffer.
func (c *Cursor) Len() int {
	return c.length
}

// Cap returns the current capacity.
func (c *Cursor) Cap() int {
	return len(c.buf)
}

// Remaining returns the number of bytes between the position and the end.
func (c *Cursor) Remaining() int {
	return c.length - c.pos
}

// HasRemaining reports whether unread bytes remain.
func (c *Cursor) HasRemaining() bool {
	return c.pos < c.length
}

// Bytes returns the valid bytes. The slice aliases the cursor's storage.
func (c *Cursor) Bytes() []byte {
	return c.buf[:c.length]
}

// Reset rewinds the position. A writer also discards its contents.
func (c *Cursor) Reset() {
	c.pos = 0
	if !c.fixed {
		c.length = 0
	}
}

// Skip advances the position by n bytes. Writers zero-fill the gap.
func (c *Cursor) Skip(n int) error {
	if n < 0 {
		return errors.InvalidInput(errors.PhaseDecode, "negative skip")
	}
	if c.fixed {
		if c.pos+n > c.length {
			return errors.OutOfRange(c.pos, n, c.length)
		}
		c.pos += n
		return nil
	}
	c.zero(n)
	return nil
}

// Align advances the position to the next multiple of n measured from the
// start of the buffer. Writers emit zero bytes; readers skip.
func (c *Cursor) Align(n int) error {
	if n <= 1 {
		return nil
	}
	mod := c.pos % n
	if mod == 0 {
		return nil
	}
	return c.Skip(n - mod)
}

// ensure makes room for n more bytes at the current position.
func (c *Cursor) ensure(n int) {
	if c.fixed {
		panic("bytecursor: write to read-only cursor")
	}
	required := c.pos + n
	if required <= len(c.buf) {
		return
	}
	newCap := len(c.buf) + n + growSlack
	if newCap < required {
		newCap = required
	}
	grown := make([]byte, newCap)
	copy(grown, c.buf[:c.length])
	c.buf = grown
}

func (c *Cursor) advance(n int) {
	c.pos += n
	if c.pos > c.length {
		c.length = c.pos
	}
}

func (c *Cursor) zero(n int) {
	c.ensure(n)
	clear(c.buf[c.pos : c.pos+n])
	c.advance(n)
}

// take returns the next n bytes without copying.
func (c *Cursor) take(n int) ([]byte, error) {
	if n < 0 || c.pos+n > c.length {
		return nil, errors.OutOfRange(c.pos, n, c.length)
	}
	b := c.buf[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

// WriteUint8 writes a single byte.
func (c *Cursor) WriteUint8(v uint8) {
	c.ensure(1)
	c.buf[c.pos] = v
	c.advance(1)
}

// WriteInt8 writes a signed byte.
func (c *Cursor) WriteInt8(v int8) {
	c.WriteUint8(uint8(v))
}

// WriteUint16 writes a 16-bit unsigned integer in the given byte order.
func (c *Cursor) WriteUint16(v uint16, order binary.ByteOrder) {
	c.ensure(2)
	order.PutUint16(c.buf[c.pos:], v)
	c.advance(2)
}

// WriteInt16 writes a 16-bit signed integer in the given byte order.
func (c *Cursor) WriteInt16(v int16, order binary.ByteOrder) {
	c.WriteUint16(uint16(v), order)
}

// WriteUint32 writes a 32-bit unsigned integer in the given byte order.
func (c *Cursor) WriteUint32(v uint32, order binary.ByteOrder) {
	c.ensure(4)
	order.PutUint32(c.buf[c.pos:], v)
	c.advance(4)
}

// WriteInt32 writes a 32-bit signed integer in the given byte order.
func (c *Cursor) WriteInt32(v int32, order binary.ByteOrder) {
	c.WriteUint32(uint32(v), order)
}

// WriteUint64 writes a 64-bit unsigned integer in the given byte order.
func (c *Cursor) WriteUint64(v uint64, order binary.ByteOrder) {
	c.ensure(8)
	order.PutUint64(c.buf[c.pos:], v)
	c.advance(8)
}

// WriteInt64 writes a 64-bit signed integer in the given byte order.
func (c *Cursor) WriteInt64(v int64, order binary.ByteOrder) {
	c.WriteUint64(uint64(v), order)
}

// WriteFloat32 writes an IEEE 754 single in the given byte order.
func (c *Cursor) WriteFloat32(v float32, order binary.ByteOrder) {
	c.WriteUint32(math.Float32bits(v), order)
}

// WriteFloat64 writes an IEEE 754 double in the given byte order.
func (c *Cursor) WriteFloat64(v float64, order binary.ByteOrder) {
	c.WriteUint64(math.Float64bits(v), order)
}

// WriteBytes writes raw bytes.
func (c *Cursor) WriteBytes(data []byte) {
	c.ensure(len(data))
	copy(c.buf[c.pos:], data)
	c.advance(len(data))
}

// WriteString writes the UTF-8 bytes of s with no length prefix.
func (c *Cursor) WriteString(s string) {
	c.ensure(len(s))
	copy(c.buf[c.pos:], s)
	c.advance(len(s))
}

// WriteInt32s writes items back-to-back.
func (c *Cursor) WriteInt32s(items []int32, order binary.ByteOrder) {
	c.ensure(len(items) * 4)
	for _, v := range items {
		order.PutUint32(c.buf[c.pos:], uint32(v))
		c.advance(4)
	}
}

// WriteInt64s writes items back-to-back.
func (c *Cursor) WriteInt64s(items []int64, order binary.ByteOrder) {
	c.ensure(len(items) * 8)
	for _, v := range items {
		order.PutUint64(c.buf[c.pos:], uint64(v))
		c.advance(8)
	}
}

// WriteFloat32s writes items back-to-back.
func (c *Cursor) WriteFloat32s(items []float32, order binary.ByteOrder) {
	c.ensure(len(items) * 4)
	for _, v := range items {
		order.PutUint32(c.buf[c.pos:], math.Float32bits(v))
		c.advance(4)
	}
}

// WriteFloat64s writes items back-to-back.
func (c *Cursor) WriteFloat64s(items []float64, order binary.ByteOrder) {
	c.ensure(len(items) * 8)
	for _, v := range items {
		order.PutUint64(c.buf[c.pos:], math.Float64bits(v))
		c.advance(8)
	}
}

// ReadUint8 reads a single byte.
func (c *Cursor) ReadUint8() (uint8, error) {
	b, err := c.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadInt8 reads a signed byte.
func (c *Cursor) ReadInt8() (int8, error) {
	v, err := c.ReadUint8()
	return int8(v), err
}

// ReadUint16 reads a 16-bit unsigned integer in the given byte order.
func (c *Cursor) ReadUint16(order binary.ByteOrder) (uint16, error) {
	b, err := c.take(2)
	if err != nil {
		return 0, err
	}
	return order.Uint16(b), nil
}

// ReadInt16 reads a 16-bit signed integer in the given byte order.
func (c *Cursor) ReadInt16(order binary.ByteOrder) (int16, error) {
	v, err := c.ReadUint16(order)
	return int16(v), err
}

// ReadUint32 reads a 32-bit unsigned integer in the given byte order.
func (c *Cursor) ReadUint32(order binary.ByteOrder) (uint32, error) {
	b, err := c.take(4)
	if err != nil {
		return 0, err
	}
	return order.Uint32(b), nil
}

// ReadInt32 reads a 32-bit signed integer in the given byte order.
func (c *Cursor) ReadInt32(order binary.ByteOrder) (int32, error) {
	v, err := c.ReadUint32(order)
	return int32(v), err
}

// ReadUint64 reads a 64-bit unsigned integer in the given byte order.
func (c *Cursor) ReadUint64(order binary.ByteOrder) (uint64, error) {
	b, err := c.take(8)
	if err != nil {
		return 0, err
	}
	return order.Uint64(b), nil
}

// ReadInt64 reads a 64-bit signed integer in the given byte order.
func (c *Cursor) ReadInt64(order binary.ByteOrder) (int64, error) {
	v, err := c.ReadUint64(order)
	return int64(v), err
}

// ReadFloat32 reads an IEEE 754 single in the given byte order.
func (c *Cursor) ReadFloat32(order binary.ByteOrder) (float32, error) {
	v, err := c.ReadUint32(order)
	return math.Float32frombits(v), err
}

// ReadFloat64 reads an IEEE 754 double in the given byte order.
func (c *Cursor) ReadFloat64(order binary.ByteOrder) (float64, error) {
	v, err := c.ReadUint64(order)
	return math.Float64frombits(v), err
}

// ReadBytes reads exactly n bytes into a new slice.
func (c *Cursor) ReadBytes(n int) ([]byte, error) {
	b, err := c.take(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b)
	return out, nil
}

// ReadString reads n bytes and returns them as a UTF-8 string.
func (c *Cursor) ReadString(n int) (string, error) {
	start := c.pos
	b, err := c.take(n)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		c.pos = start
		return "", errors.InvalidUTF8(errors.PhaseDecode, nil, b)
	}
	return string(b), nil
}

// checkElems verifies count elements of size bytes fit before allocating.
func (c *Cursor) checkElems(count, size int) error {
	if count < 0 || count > c.Remaining()/size {
		return errors.OutOfRange(c.pos, count*size, c.length)
	}
	return nil
}

// ReadInt32s reads count items written back-to-back.
func (c *Cursor) ReadInt32s(count int, order binary.ByteOrder) ([]int32, error) {
	if err := c.checkElems(count, 4); err != nil {
		return nil, err
	}
	out := make([]int32, count)
	for i := range out {
		out[i] = int32(order.Uint32(c.buf[c.pos:]))
		c.pos += 4
	}
	return out, nil
}

// ReadInt64s reads count items written back-to-back.
func (c *Cursor) ReadInt64s(count int, order binary.ByteOrder) ([]int64, error) {
	if err := c.checkElems(count, 8); err != nil {
		return nil, err
	}
	out := make([]int64, count)
	for i := range out {
		out[i] = int64(order.Uint64(c.buf[c.pos:]))
		c.pos += 8
	}
	return out, nil
}

// ReadFloat32s reads count items written back-to-back.
func (c *Cursor) ReadFloat32s(count int, order binary.ByteOrder) ([]float32, error) {
	if err := c.checkElems(count, 4); err != nil {
		return nil, err
	}
	out := make([]float32, count)
	for i := range out {
		out[i] = math.Float32frombits(order.Uint32(c.buf[c.pos:]))
		c.pos += 4
	}
	return out, nil
}

// ReadFloat64s reads count items written back-to-back.
func (c *Cursor) ReadFloat64s(count int, order binary.ByteOrder) ([]float64, error) {
	if err := c.checkElems(count, 8); err != nil {
		return nil, err
	}
	out := make([]float64, count)
	for i := range out {
		out[i] = math.Float64frombits(order.Uint64(c.buf[c.pos:]))
		c.pos += 8
	}
	return out, nil
}
