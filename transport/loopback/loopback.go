// Package loopback joins two messengers in one process. Each endpoint is
// the Transport of one side and delivers into the Receiver of the other.
package loopback

import (
	"sync"

	pc "github.com/wippyai/platform-channels"
	"github.com/wippyai/platform-channels/errors"
)

// Endpoint is one side of a loopback pair.
type Endpoint struct {
	peer     *Endpoint
	delivery pc.TaskQueue

	mu       sync.RWMutex
	receiver pc.Receiver
	closed   bool
}

// Option configures a pair.
type Option func(*Endpoint)

// WithDelivery delivers every message and reply through q instead of on the
// sending goroutine.
func WithDelivery(q pc.TaskQueue) Option {
	return func(e *Endpoint) {
		e.delivery = q
	}
}

// NewPair creates two connected endpoints.
func NewPair(opts ...Option) (*Endpoint, *Endpoint) {
	a, b := &Endpoint{}, &Endpoint{}
	a.peer, b.peer = b, a
	for _, opt := range opts {
		opt(a)
		opt(b)
	}
	return a, b
}

// Attach sets the receiver this endpoint delivers into: the messenger that
// uses this endpoint as its transport.
func (e *Endpoint) Attach(r pc.Receiver) {
	e.mu.Lock()
	e.receiver = r
	e.mu.Unlock()
}

func (e *Endpoint) target() (pc.Receiver, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.receiver, !e.closed
}

// Send delivers payload to the peer's receiver. A copy of payload is
// delivered so callers may reuse their buffer.
func (e *Endpoint) Send(channel string, payload []byte, id pc.ReplyID) error {
	if _, open := e.target(); !open {
		return errors.Closed(errors.PhaseTransport, "loopback endpoint")
	}
	peer, open := e.peer.target()
	if !open {
		return errors.Closed(errors.PhaseTransport, "loopback peer")
	}
	if peer == nil {
		return errors.NotFound(errors.PhaseTransport, "receiver for channel", channel)
	}

	var reply pc.BinaryReply
	if id != pc.NoReply {
		reply = func(answer []byte) {
			task := func() {
				if origin, open := e.target(); open && origin != nil {
					origin.HandleReply(id, clone(answer))
				}
			}
			if !e.deliver(task) {
				// delivery queue is gone; the sender still gets its answer
				task()
			}
		}
	}
	message := clone(payload)
	if !e.deliver(func() { peer.Dispatch(channel, message, reply) }) {
		return errors.Closed(errors.PhaseTransport, "loopback delivery queue")
	}
	return nil
}

func (e *Endpoint) deliver(task func()) bool {
	if e.delivery == nil {
		task()
		return true
	}
	return e.delivery.Post(task)
}

// Close disconnects the endpoint. Later sends from either side fail and
// replies addressed to it are dropped.
func (e *Endpoint) Close() error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	return nil
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}
