package codec

import (
	"encoding/binary"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/wippyai/platform-channels/errors"
)

var (
	cborEnc cbor.EncMode
	cborDec cbor.DecMode
)

func init() {
	em, err := cbor.EncOptions{}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("codec: failed to create CBOR enc mode: %v", err))
	}
	cborEnc = em

	dm, err := cbor.DecOptions{MaxNestedLevels: maxDepth}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("codec: failed to create CBOR dec mode: %v", err))
	}
	cborDec = dm
}

// CBORMessageCodec encodes Values as CBOR (RFC 8949), for peers that speak
// CBOR instead of the standard binary format.
//
// Maps are written in insertion order. Decoded maps come back with keys in
// sorted order, and typed numeric arrays come back as Lists; integers take
// the narrowest integer variant.
type CBORMessageCodec struct{}

func (CBORMessageCodec) EncodeMessage(message Value) ([]byte, error) {
	data, err := cborEnc.Marshal(cborValue(message))
	if err != nil {
		return nil, errors.Wrap(errors.PhaseEncode, errors.KindUnsupported, err, "cbor encode")
	}
	return data, nil
}

func (CBORMessageCodec) DecodeMessage(data []byte) (Value, error) {
	if len(data) == 0 {
		return nil, errors.CorruptedMessage(0, "empty message")
	}
	var raw any
	if err := cborDec.Unmarshal(data, &raw); err != nil {
		return nil, errors.New(errors.PhaseDecode, errors.KindCorruptedMessage).
			Cause(err).
			Detail("cbor decode").
			Build()
	}
	v, err := FromGo(raw)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseDecode, errors.KindCorruptedMessage, err, "cbor value")
	}
	return v, nil
}

// cborMap keeps a Map's entry order on the wire.
type cborMap struct {
	m *Map
}

func (c cborMap) MarshalCBOR() ([]byte, error) {
	out := cborMapHeader(c.m.Len())
	for _, e := range c.m.Entries() {
		k, err := cborEnc.Marshal(cborValue(e.Key))
		if err != nil {
			return nil, err
		}
		v, err := cborEnc.Marshal(cborValue(e.Value))
		if err != nil {
			return nil, err
		}
		out = append(out, k...)
		out = append(out, v...)
	}
	return out, nil
}

// cborMapHeader encodes the initial bytes of a definite-length map
// (major type 5) holding n pairs.
func cborMapHeader(n int) []byte {
	const major = 5 << 5
	switch {
	case n < 24:
		return []byte{major | byte(n)}
	case n <= 0xff:
		return []byte{major | 24, byte(n)}
	case n <= 0xffff:
		return binary.BigEndian.AppendUint16([]byte{major | 25}, uint16(n))
	case uint64(n) <= 0xffffffff:
		return binary.BigEndian.AppendUint32([]byte{major | 26}, uint32(n))
	default:
		return binary.BigEndian.AppendUint64([]byte{major | 27}, uint64(n))
	}
}

func cborValue(v Value) any {
	switch x := orNull(v).(type) {
	case *Map:
		if x == nil {
			return cborMap{m: NewMap(0)}
		}
		return cborMap{m: x}
	case List:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = cborValue(item)
		}
		return out
	default:
		return ToGo(x)
	}
}
