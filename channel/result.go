package channel

import (
	"fmt"

	"go.uber.org/zap"

	pc "github.com/wippyai/platform-channels"
	"github.com/wippyai/platform-channels/codec"
	"github.com/wippyai/platform-channels/errors"
)

// ErrNotImplemented is returned by Invoke when the peer has no handler for
// the channel or declined the method.
var ErrNotImplemented = &errors.Error{Phase: errors.PhaseReply, Kind: errors.KindNotImplemented}

// MethodResult receives the outcome of a method call. Exactly one method is
// called, once.
type MethodResult interface {
	Success(result codec.Value)
	// Error reports a failure. An empty message is sent as null, so the peer
	// sees no message rather than an empty string. details is converted with
	// codec.FromGo; an error value travels as its trace.
	Error(code, message string, details any)
	NotImplemented()
}

// ResultFuncs adapts functions to MethodResult. Nil fields are skipped.
type ResultFuncs struct {
	OnSuccess        func(result codec.Value)
	OnError          func(code, message string, details any)
	OnNotImplemented func()
}

func (f ResultFuncs) Success(result codec.Value) {
	if f.OnSuccess != nil {
		f.OnSuccess(result)
	}
}

func (f ResultFuncs) Error(code, message string, details any) {
	if f.OnError != nil {
		f.OnError(code, message, details)
	}
}

func (f ResultFuncs) NotImplemented() {
	if f.OnNotImplemented != nil {
		f.OnNotImplemented()
	}
}

// replyResult answers an inbound method call through its reply token.
type replyResult struct {
	reply   *pc.Reply
	codec   codec.MethodCodec
	channel string
	method  string
}

func (r *replyResult) Success(result codec.Value) {
	data, err := r.codec.EncodeSuccessEnvelope(result)
	if err != nil {
		Logger().Error("cannot encode method result",
			zap.String("channel", r.channel),
			zap.String("method", r.method),
			zap.Error(err),
		)
		r.Error("error", err.Error(), nil)
		return
	}
	r.send(data)
}

func (r *replyResult) Error(code, message string, details any) {
	var msg *string
	if message != "" {
		msg = &message
	}
	data, err := r.codec.EncodeErrorEnvelope(code, msg, errorDetails(details))
	if err != nil {
		Logger().Error("cannot encode error details",
			zap.String("channel", r.channel),
			zap.String("method", r.method),
			zap.Error(err),
		)
		data, err = r.codec.EncodeErrorEnvelope(code, msg, nil)
		if err != nil {
			r.NotImplemented()
			return
		}
	}
	r.send(data)
}

func (r *replyResult) NotImplemented() {
	r.send(nil)
}

func (r *replyResult) send(data []byte) {
	if err := r.reply.Send(data); err != nil {
		Logger().Warn("method result submitted twice",
			zap.String("channel", r.channel),
			zap.String("method", r.method),
		)
	}
}

// errorDetails converts details for an error envelope. Errors are sent as
// their trace; values that have no codec form are sent as their text.
func errorDetails(details any) codec.Value {
	switch d := details.(type) {
	case nil:
		return codec.Null{}
	case codec.Value:
		return d
	case error:
		return &codec.Traced{Details: codec.String(d.Error()), Trace: fmt.Sprintf("%+v", d)}
	}
	v, err := codec.FromGo(details)
	if err != nil {
		return codec.String(fmt.Sprint(details))
	}
	return v
}

// deliver decodes a reply envelope into result.
func deliver(c codec.MethodCodec, channel, method string, reply []byte, result MethodResult) {
	if len(reply) == 0 {
		result.NotImplemented()
		return
	}
	v, err := c.DecodeEnvelope(reply)
	if err == nil {
		result.Success(v)
		return
	}
	if env, ok := err.(*codec.EnvelopeError); ok {
		message := ""
		if env.Message != nil {
			message = *env.Message
		}
		result.Error(env.Code, message, env.Details)
		return
	}
	Logger().Warn("cannot decode method reply",
		zap.String("channel", channel),
		zap.String("method", method),
		zap.Error(err),
	)
	result.Error(string(errors.KindCorruptedMessage), err.Error(), nil)
}
