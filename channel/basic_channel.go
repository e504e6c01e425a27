package channel

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	pc "github.com/wippyai/platform-channels"
	"github.com/wippyai/platform-channels/codec"
)

// MessageReply receives the answer to a BasicMessageChannel message. An
// empty answer yields the zero message and a nil error.
type MessageReply[T any] func(reply T, err error)

// MessageHandler handles one inbound message and answers through responder.
type MessageHandler[T any] func(message T, responder *Responder[T])

// Responder answers one inbound message. Only the first answer is sent.
type Responder[T any] struct {
	reply *pc.Reply
	codec codec.MessageCodec[T]
}

// Send encodes and sends the answer.
func (r *Responder[T]) Send(message T) error {
	data, err := r.codec.EncodeMessage(message)
	if err != nil {
		_ = r.reply.SendEmpty()
		return err
	}
	return r.reply.Send(data)
}

// SendEmpty answers with no message.
func (r *Responder[T]) SendEmpty() error {
	return r.reply.SendEmpty()
}

// BasicMessageChannel exchanges messages of type T, encoded with a
// MessageCodec, over a BinaryMessenger.
type BasicMessageChannel[T any] struct {
	messenger pc.BinaryMessenger
	codec     codec.MessageCodec[T]
	queue     pc.TaskQueue
	name      string
}

// NewBasicMessageChannel creates a message channel.
func NewBasicMessageChannel[T any](m pc.BinaryMessenger, name string, c codec.MessageCodec[T], opts ...Option) *BasicMessageChannel[T] {
	o := applyOptions(opts)
	return &BasicMessageChannel[T]{messenger: m, codec: c, queue: o.queue, name: name}
}

// Name returns the channel name.
func (ch *BasicMessageChannel[T]) Name() string {
	return ch.name
}

// Send encodes message and sends it. reply, when non-nil, receives the
// decoded answer on the messenger's platform runner.
func (ch *BasicMessageChannel[T]) Send(message T, reply MessageReply[T]) error {
	data, err := ch.codec.EncodeMessage(message)
	if err != nil {
		return fmt.Errorf("encode message on %s: %w", ch.name, err)
	}
	var callback pc.BinaryReply
	if reply != nil {
		callback = func(answer []byte) {
			var zero T
			if len(answer) == 0 {
				reply(zero, nil)
				return
			}
			v, err := ch.codec.DecodeMessage(answer)
			if err != nil {
				Logger().Warn("cannot decode reply",
					zap.String("channel", ch.name),
					zap.Error(err),
				)
				reply(zero, err)
				return
			}
			reply(v, nil)
		}
	}
	return ch.messenger.Send(ch.name, data, callback)
}

// Request sends message and waits for the answer.
func (ch *BasicMessageChannel[T]) Request(ctx context.Context, message T) (T, error) {
	type outcome struct {
		value T
		err   error
	}
	done := make(chan outcome, 1)
	if err := ch.Send(message, func(reply T, err error) {
		done <- outcome{value: reply, err: err}
	}); err != nil {
		var zero T
		return zero, err
	}

	select {
	case out := <-done:
		return out.value, out.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// SetMessageHandler registers handler for messages from the peer. A nil
// handler clears it. Messages that cannot be decoded get an empty answer.
func (ch *BasicMessageChannel[T]) SetMessageHandler(handler MessageHandler[T]) {
	if handler == nil {
		ch.messenger.SetMessageHandler(ch.name, nil, ch.queue)
		return
	}
	ch.messenger.SetMessageHandler(ch.name, func(message []byte, reply *pc.Reply) {
		var decoded T
		if len(message) > 0 {
			v, err := ch.codec.DecodeMessage(message)
			if err != nil {
				Logger().Warn("cannot decode message",
					zap.String("channel", ch.name),
					zap.Error(err),
				)
				_ = reply.SendEmpty()
				return
			}
			decoded = v
		}
		handler(decoded, &Responder[T]{reply: reply, codec: ch.codec})
	}, ch.queue)
}
