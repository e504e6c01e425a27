package codec

import (
	"unicode/utf8"

	"github.com/wippyai/platform-channels/errors"
)

// MessageCodec converts between typed messages and their byte form.
//
// Decoding an empty or nil payload is codec specific; channel facades treat
// an empty reply as "no value" before consulting the codec.
type MessageCodec[T any] interface {
	EncodeMessage(message T) ([]byte, error)
	DecodeMessage(data []byte) (T, error)
}

// MethodCodec converts method calls and result envelopes.
type MethodCodec interface {
	EncodeMethodCall(call MethodCall) ([]byte, error)
	DecodeMethodCall(data []byte) (MethodCall, error)
	EncodeSuccessEnvelope(result Value) ([]byte, error)
	EncodeErrorEnvelope(code string, message *string, details Value) ([]byte, error)
	DecodeEnvelope(data []byte) (Value, error)
}

// Stateless codec values, safe for concurrent use.
var (
	Standard       = StandardMessageCodec{}
	StandardMethod = StandardMethodCodec{}
)

var (
	_ MessageCodec[Value]  = StandardMessageCodec{}
	_ MessageCodec[[]byte] = BinaryCodec{}
	_ MessageCodec[string] = StringCodec{}
	_ MessageCodec[Value]  = JSONMessageCodec{}
	_ MessageCodec[Value]  = CBORMessageCodec{}
	_ MethodCodec          = StandardMethodCodec{}
)

// BinaryCodec passes bytes through unchanged.
type BinaryCodec struct{}

func (BinaryCodec) EncodeMessage(message []byte) ([]byte, error) {
	return message, nil
}

func (BinaryCodec) DecodeMessage(data []byte) ([]byte, error) {
	return data, nil
}

// StringCodec encodes strings as raw UTF-8 without a prefix.
type StringCodec struct{}

func (StringCodec) EncodeMessage(message string) ([]byte, error) {
	return []byte(message), nil
}

func (StringCodec) DecodeMessage(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", errors.InvalidUTF8(errors.PhaseDecode, nil, data)
	}
	return string(data), nil
}
