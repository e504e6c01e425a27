package channel

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	pc "github.com/wippyai/platform-channels"
	"github.com/wippyai/platform-channels/codec"
)

// StreamHandler produces events for an EventChannel.
type StreamHandler interface {
	// OnListen starts the stream. Events go to sink until OnCancel.
	OnListen(args codec.Value, sink EventSink) error
	// OnCancel stops the stream.
	OnCancel(args codec.Value) error
}

// EventSink emits stream events to the peer.
type EventSink interface {
	Success(event codec.Value)
	// Error emits an error event. As with MethodResult.Error, an empty
	// message is sent as null.
	Error(code, message string, details any)
	EndOfStream()
}

// EventChannel serves a stream of events to the peer. The peer starts and
// stops the stream with "listen" and "cancel" method calls; events travel
// as envelopes on the same channel.
type EventChannel struct {
	messenger pc.BinaryMessenger
	codec     codec.MethodCodec
	queue     pc.TaskQueue
	name      string

	mu   sync.Mutex
	sink *eventSink
}

// NewEventChannel creates an event channel. A nil codec selects
// codec.StandardMethod.
func NewEventChannel(m pc.BinaryMessenger, name string, c codec.MethodCodec, opts ...Option) *EventChannel {
	if c == nil {
		c = codec.StandardMethod
	}
	o := applyOptions(opts)
	return &EventChannel{messenger: m, codec: c, queue: o.queue, name: name}
}

// SetStreamHandler registers handler. A nil handler clears it.
func (ch *EventChannel) SetStreamHandler(handler StreamHandler) {
	if handler == nil {
		ch.messenger.SetMessageHandler(ch.name, nil, ch.queue)
		return
	}
	ch.messenger.SetMessageHandler(ch.name, func(message []byte, reply *pc.Reply) {
		result := &replyResult{reply: reply, codec: ch.codec, channel: ch.name}
		call, err := ch.codec.DecodeMethodCall(message)
		if err != nil {
			result.Error("error", err.Error(), nil)
			return
		}
		result.method = call.Method

		switch call.Method {
		case "listen":
			ch.onListen(handler, call.Arguments, result)
		case "cancel":
			ch.onCancel(handler, call.Arguments, result)
		default:
			result.NotImplemented()
		}
	}, ch.queue)
}

func (ch *EventChannel) onListen(handler StreamHandler, args codec.Value, result MethodResult) {
	sink := &eventSink{channel: ch}

	ch.mu.Lock()
	previous := ch.sink
	ch.sink = sink
	ch.mu.Unlock()

	if previous != nil {
		previous.active.Store(false)
		if err := handler.OnCancel(nil); err != nil {
			Logger().Warn("failed to close existing event stream",
				zap.String("channel", ch.name),
				zap.Error(err),
			)
		}
	}

	sink.active.Store(true)
	if err := handler.OnListen(args, sink); err != nil {
		sink.active.Store(false)
		ch.mu.Lock()
		if ch.sink == sink {
			ch.sink = nil
		}
		ch.mu.Unlock()
		result.Error("error", err.Error(), nil)
		return
	}
	result.Success(codec.Null{})
}

func (ch *EventChannel) onCancel(handler StreamHandler, args codec.Value, result MethodResult) {
	ch.mu.Lock()
	sink := ch.sink
	ch.sink = nil
	ch.mu.Unlock()

	if sink == nil {
		result.Error("error", "No active stream to cancel", nil)
		return
	}
	sink.active.Store(false)
	if err := handler.OnCancel(args); err != nil {
		result.Error("error", err.Error(), nil)
		return
	}
	result.Success(codec.Null{})
}

type eventSink struct {
	channel *EventChannel
	active  atomic.Bool
}

func (s *eventSink) Success(event codec.Value) {
	if !s.active.Load() {
		return
	}
	data, err := s.channel.codec.EncodeSuccessEnvelope(event)
	if err != nil {
		Logger().Error("cannot encode event", zap.String("channel", s.channel.name), zap.Error(err))
		return
	}
	s.send(data)
}

func (s *eventSink) Error(code, message string, details any) {
	if !s.active.Load() {
		return
	}
	var msg *string
	if message != "" {
		msg = &message
	}
	data, err := s.channel.codec.EncodeErrorEnvelope(code, msg, errorDetails(details))
	if err != nil {
		Logger().Error("cannot encode event error", zap.String("channel", s.channel.name), zap.Error(err))
		return
	}
	s.send(data)
}

func (s *eventSink) EndOfStream() {
	if !s.active.CompareAndSwap(true, false) {
		return
	}
	s.send(nil)
}

func (s *eventSink) send(data []byte) {
	if err := s.channel.messenger.Send(s.channel.name, data, nil); err != nil {
		Logger().Warn("cannot send event",
			zap.String("channel", s.channel.name),
			zap.Error(err),
		)
	}
}
