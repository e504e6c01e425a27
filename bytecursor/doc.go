// Package bytecursor provides an endian-aware byte buffer with a single
// read/write position.
//
// Writers grow on demand; readers wrap a fixed region and report
// out_of_range errors instead of truncating:
//
//	w := bytecursor.New(64)
//	w.WriteUint8(7)
//	w.Align(8)
//	w.WriteFloat64(1.5, binary.LittleEndian)
//
//	r := bytecursor.Wrap(w.Bytes())
//	tag, _ := r.ReadUint8()
//	_ = r.Align(8)
//	f, err := r.ReadFloat64(binary.LittleEndian)
//
// Alignment is always measured from the start of the buffer, which is what
// the standard message codec relies on for its float and typed-array
// padding.
package bytecursor
