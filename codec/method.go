package codec

import (
	"fmt"

	"github.com/wippyai/platform-channels/bytecursor"
	"github.com/wippyai/platform-channels/errors"
)

// Envelope flag bytes.
const (
	envelopeSuccess byte = 0
	envelopeError   byte = 1
)

// MethodCall is a named method invocation with its arguments.
type MethodCall struct {
	Method    string
	Arguments Value
}

// Argument returns the value for key when Arguments is a Map.
func (c MethodCall) Argument(key string) (Value, bool) {
	m, ok := c.Arguments.(*Map)
	if !ok {
		return nil, false
	}
	return m.GetString(key)
}

// HasArgument reports whether Arguments is a Map containing key.
func (c MethodCall) HasArgument(key string) bool {
	_, ok := c.Argument(key)
	return ok
}

// EnvelopeError is a well-formed error reply decoded from an envelope.
// It is a normal response, not a protocol failure.
type EnvelopeError struct {
	Code       string
	Message    *string
	Details    Value
	Stacktrace *string
}

func (e *EnvelopeError) Error() string {
	if e.Message != nil {
		return fmt.Sprintf("platform error %s: %s", e.Code, *e.Message)
	}
	return "platform error " + e.Code
}

// Traced attaches a diagnostic trace to error details. When an error
// envelope is encoded, the trace replaces the details on the wire.
type Traced struct {
	Details Value
	Trace   string
}

// Kind reports the wire kind of a Traced value, which is always String.
func (*Traced) Kind() Kind { return KindString }
func (*Traced) isValue()   {}

// StandardMethodCodec encodes method calls and result envelopes using a
// StandardMessageCodec for the individual values.
type StandardMethodCodec struct {
	Message StandardMessageCodec
}

// EncodeMethodCall writes the method name followed by the arguments.
func (c StandardMethodCodec) EncodeMethodCall(call MethodCall) ([]byte, error) {
	w := bytecursor.Get()
	defer bytecursor.Put(w)
	if err := c.Message.WriteValue(w, String(call.Method)); err != nil {
		return nil, err
	}
	if err := c.Message.WriteValue(w, call.Arguments); err != nil {
		return nil, withPath(err, "arguments")
	}
	return append([]byte(nil), w.Bytes()...), nil
}

// DecodeMethodCall reads a method name and arguments and requires the input
// to be fully consumed.
func (c StandardMethodCodec) DecodeMethodCall(data []byte) (MethodCall, error) {
	r := bytecursor.Wrap(data)
	v, err := c.Message.ReadValue(r)
	if err != nil {
		return MethodCall{}, errors.New(errors.PhaseDecode, errors.KindCorruptedMessage).
			Offset(0).
			Cause(err).
			Detail("method call: cannot read method name").
			Build()
	}
	method, ok := v.(String)
	if !ok {
		return MethodCall{}, errors.New(errors.PhaseDecode, errors.KindCorruptedMessage).
			Offset(0).
			ValueType(v.Kind().String()).
			Detail("method call: method name is not a String").
			Build()
	}
	args, err := c.Message.ReadValue(r)
	if err != nil {
		return MethodCall{}, err
	}
	if r.HasRemaining() {
		return MethodCall{}, errors.TrailingBytes(r.Position(), r.Remaining())
	}
	return MethodCall{Method: string(method), Arguments: args}, nil
}

// EncodeSuccessEnvelope writes flag 0 followed by result.
func (c StandardMethodCodec) EncodeSuccessEnvelope(result Value) ([]byte, error) {
	w := bytecursor.Get()
	defer bytecursor.Put(w)
	w.WriteUint8(envelopeSuccess)
	if err := c.Message.WriteValue(w, result); err != nil {
		return nil, err
	}
	return append([]byte(nil), w.Bytes()...), nil
}

// EncodeErrorEnvelope writes flag 1, the code, the message or Null, and the
// details. A *Traced details value is sent as its trace.
func (c StandardMethodCodec) EncodeErrorEnvelope(code string, message *string, details Value) ([]byte, error) {
	return c.encodeError(code, message, details, nil)
}

// EncodeErrorEnvelopeWithStacktrace is EncodeErrorEnvelope followed by a
// stacktrace String.
func (c StandardMethodCodec) EncodeErrorEnvelopeWithStacktrace(code string, message *string, details Value, stacktrace string) ([]byte, error) {
	return c.encodeError(code, message, details, &stacktrace)
}

func (c StandardMethodCodec) encodeError(code string, message *string, details Value, stacktrace *string) ([]byte, error) {
	w := bytecursor.Get()
	defer bytecursor.Put(w)
	w.WriteUint8(envelopeError)
	if err := c.Message.WriteValue(w, String(code)); err != nil {
		return nil, err
	}
	var msg Value = Null{}
	if message != nil {
		msg = String(*message)
	}
	if err := c.Message.WriteValue(w, msg); err != nil {
		return nil, err
	}
	if err := c.Message.WriteValue(w, wireDetails(details)); err != nil {
		return nil, withPath(err, "details")
	}
	if stacktrace != nil {
		if err := c.Message.WriteValue(w, String(*stacktrace)); err != nil {
			return nil, err
		}
	}
	return append([]byte(nil), w.Bytes()...), nil
}

func wireDetails(details Value) Value {
	if t, ok := details.(*Traced); ok {
		if t == nil {
			return Null{}
		}
		return String(t.Trace)
	}
	return details
}

// DecodeEnvelope decodes a result envelope. A success envelope returns its
// result. An error envelope returns an *EnvelopeError. Flag 0 followed by
// more than one value is read as an error envelope from the position after
// the first value. Any other shape is a corrupted_message error.
func (c StandardMethodCodec) DecodeEnvelope(data []byte) (Value, error) {
	if len(data) == 0 {
		return nil, errors.CorruptedMessage(0, "empty envelope")
	}
	r := bytecursor.Wrap(data)
	flag, _ := r.ReadUint8()
	switch flag {
	case envelopeSuccess:
		result, err := c.Message.ReadValue(r)
		if err != nil {
			return nil, err
		}
		if !r.HasRemaining() {
			return result, nil
		}
	case envelopeError:
	default:
		return nil, errors.New(errors.PhaseDecode, errors.KindCorruptedMessage).
			Offset(0).
			Value(flag).
			Detail("invalid envelope flag %d", flag).
			Build()
	}
	return nil, c.readErrorEnvelope(r)
}

// readErrorEnvelope returns the decoded *EnvelopeError, or a corrupted
// message error when the fields are malformed.
func (c StandardMethodCodec) readErrorEnvelope(r *bytecursor.Cursor) error {
	start := r.Position()
	corrupted := func(detail string, cause error) error {
		return errors.New(errors.PhaseDecode, errors.KindCorruptedMessage).
			Offset(start).
			Cause(cause).
			Detail("error envelope: %s", detail).
			Build()
	}

	code, err := c.Message.ReadValue(r)
	if err != nil {
		return corrupted("cannot read code", err)
	}
	codeStr, ok := code.(String)
	if !ok {
		return corrupted("code is "+code.Kind().String()+", want String", nil)
	}

	msg, err := c.Message.ReadValue(r)
	if err != nil {
		return corrupted("cannot read message", err)
	}
	out := &EnvelopeError{Code: string(codeStr)}
	switch m := msg.(type) {
	case String:
		s := string(m)
		out.Message = &s
	case Null:
	default:
		return corrupted("message is "+msg.Kind().String()+", want String or Null", nil)
	}

	if out.Details, err = c.Message.ReadValue(r); err != nil {
		return corrupted("cannot read details", err)
	}

	if r.HasRemaining() {
		st, err := c.Message.ReadValue(r)
		if err != nil {
			return corrupted("cannot read stacktrace", err)
		}
		switch s := st.(type) {
		case String:
			v := string(s)
			out.Stacktrace = &v
		case Null:
		default:
			return corrupted("stacktrace is "+st.Kind().String()+", want String or Null", nil)
		}
	}
	if r.HasRemaining() {
		return errors.TrailingBytes(r.Position(), r.Remaining())
	}
	return out
}
