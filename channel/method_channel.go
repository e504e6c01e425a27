package channel

import (
	"context"
	"fmt"
	"runtime/debug"

	"go.uber.org/zap"

	pc "github.com/wippyai/platform-channels"
	"github.com/wippyai/platform-channels/codec"
	"github.com/wippyai/platform-channels/errors"
)

// Option configures a channel facade.
type Option func(*channelOptions)

type channelOptions struct {
	queue pc.TaskQueue
}

// WithTaskQueue runs the channel's handler on q.
func WithTaskQueue(q pc.TaskQueue) Option {
	return func(o *channelOptions) {
		o.queue = q
	}
}

func applyOptions(opts []Option) channelOptions {
	var o channelOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// MethodCallHandler handles one inbound method call and completes result.
type MethodCallHandler func(call codec.MethodCall, result MethodResult)

// MethodChannel invokes named methods on the peer and serves the peer's
// calls, using a MethodCodec over a BinaryMessenger.
type MethodChannel struct {
	messenger pc.BinaryMessenger
	codec     codec.MethodCodec
	queue     pc.TaskQueue
	name      string
}

// NewMethodChannel creates a method channel. A nil codec selects
// codec.StandardMethod.
func NewMethodChannel(m pc.BinaryMessenger, name string, c codec.MethodCodec, opts ...Option) *MethodChannel {
	if c == nil {
		c = codec.StandardMethod
	}
	o := applyOptions(opts)
	return &MethodChannel{messenger: m, codec: c, queue: o.queue, name: name}
}

// Name returns the channel name.
func (ch *MethodChannel) Name() string {
	return ch.name
}

// InvokeMethod sends a method call. result, when non-nil, receives the
// outcome on the messenger's platform runner.
func (ch *MethodChannel) InvokeMethod(method string, args codec.Value, result MethodResult) error {
	data, err := ch.codec.EncodeMethodCall(codec.MethodCall{Method: method, Arguments: args})
	if err != nil {
		return fmt.Errorf("encode call %s.%s: %w", ch.name, method, err)
	}
	var callback pc.BinaryReply
	if result != nil {
		callback = func(reply []byte) {
			deliver(ch.codec, ch.name, method, reply, result)
		}
	}
	return ch.messenger.Send(ch.name, data, callback)
}

// Invoke calls method and waits for the reply. A declined call returns
// ErrNotImplemented; an error reply returns *codec.EnvelopeError.
func (ch *MethodChannel) Invoke(ctx context.Context, method string, args codec.Value) (codec.Value, error) {
	type outcome struct {
		value codec.Value
		err   error
	}
	done := make(chan outcome, 1)

	data, err := ch.codec.EncodeMethodCall(codec.MethodCall{Method: method, Arguments: args})
	if err != nil {
		return nil, fmt.Errorf("encode call %s.%s: %w", ch.name, method, err)
	}
	err = ch.messenger.Send(ch.name, data, func(reply []byte) {
		if len(reply) == 0 {
			done <- outcome{err: ErrNotImplemented}
			return
		}
		v, err := ch.codec.DecodeEnvelope(reply)
		done <- outcome{value: v, err: err}
	})
	if err != nil {
		return nil, err
	}

	select {
	case out := <-done:
		return out.value, out.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// SetMethodCallHandler registers handler for calls from the peer. A nil
// handler clears it, after which calls are buffered or declined by the
// messenger.
//
// A call that cannot be decoded is answered with a corrupted_message error.
// A handler that panics is answered with an "error" reply carrying the
// stack trace as details.
func (ch *MethodChannel) SetMethodCallHandler(handler MethodCallHandler) {
	if handler == nil {
		ch.messenger.SetMessageHandler(ch.name, nil, ch.queue)
		return
	}
	ch.messenger.SetMessageHandler(ch.name, func(message []byte, reply *pc.Reply) {
		call, err := ch.codec.DecodeMethodCall(message)
		result := &replyResult{reply: reply, codec: ch.codec, channel: ch.name}
		if err != nil {
			Logger().Warn("cannot decode method call",
				zap.String("channel", ch.name),
				zap.Error(err),
			)
			result.Error(string(errors.KindCorruptedMessage), err.Error(), nil)
			return
		}
		result.method = call.Method

		defer func() {
			if r := recover(); r != nil {
				Logger().Error("method call handler panicked",
					zap.String("channel", ch.name),
					zap.String("method", call.Method),
					zap.Any("panic", r),
				)
				if !reply.Done() {
					result.Error("error", fmt.Sprint(r), &codec.Traced{
						Details: codec.Null{},
						Trace:   string(debug.Stack()),
					})
				}
			}
		}()
		handler(call, result)
	}, ch.queue)
}
