package wsbridge

import (
	pc "github.com/wippyai/platform-channels"
	"github.com/wippyai/platform-channels/codec"
	"github.com/wippyai/platform-channels/errors"
)

// Frame kinds.
const (
	KindMessage = 0
	KindReply   = 1
)

// Frame is one WebSocket binary message: a standard-codec List of
// [Int32 kind, String channel, Int64 id, Bytes|Null payload].
type Frame struct {
	Kind    int
	Channel string
	ID      pc.ReplyID
	Payload []byte
}

// EncodeFrame encodes f with the standard message codec.
func EncodeFrame(f Frame) ([]byte, error) {
	var payload codec.Value = codec.Null{}
	if len(f.Payload) > 0 {
		payload = codec.Bytes(f.Payload)
	}
	return codec.Standard.EncodeMessage(codec.List{
		codec.Int32(f.Kind),
		codec.String(f.Channel),
		codec.Int64(f.ID),
		payload,
	})
}

// DecodeFrame parses a frame produced by EncodeFrame.
func DecodeFrame(data []byte) (Frame, error) {
	v, err := codec.Standard.DecodeMessage(data)
	if err != nil {
		return Frame{}, err
	}
	list, ok := v.(codec.List)
	if !ok || len(list) != 4 {
		return Frame{}, errors.CorruptedMessage(-1, "frame is not a 4-element list")
	}
	kind, ok1 := list[0].(codec.Int32)
	channel, ok2 := list[1].(codec.String)
	id, ok3 := list[2].(codec.Int64)
	if !ok1 || !ok2 || !ok3 {
		return Frame{}, errors.CorruptedMessage(-1, "frame header has wrong field types")
	}
	if kind != KindMessage && kind != KindReply {
		return Frame{}, errors.New(errors.PhaseDecode, errors.KindCorruptedMessage).
			Value(int32(kind)).
			Detail("unknown frame kind %d", kind).
			Build()
	}

	f := Frame{Kind: int(kind), Channel: string(channel), ID: pc.ReplyID(id)}
	switch p := list[3].(type) {
	case codec.Bytes:
		f.Payload = p
	case codec.Null:
	default:
		return Frame{}, errors.CorruptedMessage(-1, "frame payload must be bytes or null")
	}
	return f, nil
}
