package platformchannels

import (
	"sync/atomic"

	"github.com/wippyai/platform-channels/errors"
)

// Reply is a one-shot completion token for an inbound message. The first
// Send wins; later calls return a double_reply error and do nothing.
type Reply struct {
	channel string
	send    BinaryReply
	done    atomic.Bool
}

// NewReply creates a token that forwards its payload to send. A nil send
// yields a token that discards its payload.
func NewReply(channel string, send BinaryReply) *Reply {
	return &Reply{channel: channel, send: send}
}

// Channel returns the channel the message arrived on.
func (r *Reply) Channel() string {
	return r.channel
}

// Send completes the reply with payload. An empty payload signals that the
// message was not handled.
func (r *Reply) Send(payload []byte) error {
	if !r.done.CompareAndSwap(false, true) {
		return errors.DoubleReply(r.channel)
	}
	if r.send != nil {
		r.send(payload)
	}
	return nil
}

// SendEmpty completes the reply with no payload.
func (r *Reply) SendEmpty() error {
	return r.Send(nil)
}

// Done reports whether the reply has been completed.
func (r *Reply) Done() bool {
	return r.done.Load()
}
