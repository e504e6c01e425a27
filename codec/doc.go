// Package codec provides the value model and the binary codecs spoken over
// platform channels.
//
// # Value Model
//
// Value is a closed sum type. Every encode and decode site switches over the
// concrete variants:
//
//	Go type        Tag   Payload
//	─────────────────────────────────────────────────────
//	Null           0     -
//	Bool           1/2   - (true/false)
//	Int32          3     4 bytes
//	Int64          4     8 bytes
//	(reserved)     5     rejected on decode
//	Float64        6     align(8), 8 bytes
//	String         7     size, UTF-8 bytes
//	Bytes          8     size, raw bytes
//	Int32Array     9     count, align(4), items
//	Int64Array     10    count, align(8), items
//	Float64Array   11    count, align(8), items
//	List           12    count, values
//	*Map           13    count, key/value pairs
//	Float32Array   14    count, align(4), items
//
// Sizes and counts use a variable-width prefix: one byte below 254, 254
// followed by a uint16 up to 0xFFFF, 255 followed by a uint32 beyond.
// Alignment is measured from the start of the message.
//
// Map keeps insertion order, so encode, decode, encode is byte-identical.
//
// # Method Envelopes
//
//	call:     String(method) Value(arguments)
//	success:  0x00 Value(result)
//	error:    0x01 String(code) String|Null(message) Value(details) [String(stacktrace)]
//
// DecodeEnvelope returns *EnvelopeError for well-formed error replies and
// a corrupted_message error for anything it cannot parse.
//
// # Other Codecs
//
//	BinaryCodec       bytes pass through
//	StringCodec       raw UTF-8
//	JSONMessageCodec  JSON text, ordered objects
//	CBORMessageCodec  RFC 8949 CBOR
//
// All codecs are stateless values and safe for concurrent use.
package codec
